package tasks

// TaskSchedulerInterface defines the interface for background task processing.
// Used by the main application and the API handlers to run ingestion batches
// and rule syncs off the request path.
// Example usage:
//
//	scheduler := NewScheduler(ruleRepo, rulesCache, interval, workerCount)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewIngestBatchTask(...))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
