package ingest

import "time"

// Result summarizes a single pipeline run. Counters are per-record: every
// record is counted once in Processed, and at most once in each of Matched
// and Stored. Errors holds one entry per failed record, identifying the
// record and the stage that failed.
type Result struct {
	JobID     string        `json:"job_id"`
	Platform  string        `json:"platform"`
	Processed int           `json:"processed"`
	Matched   int           `json:"matched"`
	Stored    int           `json:"stored"`
	Errors    []string      `json:"errors"`
	Duration  time.Duration `json:"duration_ns"`
}

// Combine sums the counters of two results and concatenates their error
// lists. JobID and Platform are taken from the receiver; combining results
// from different platforms yields an aggregate keyed by the first.
func (r Result) Combine(other Result) Result {
	errs := make([]string, 0, len(r.Errors)+len(other.Errors))
	errs = append(errs, r.Errors...)
	errs = append(errs, other.Errors...)

	return Result{
		JobID:     r.JobID,
		Platform:  r.Platform,
		Processed: r.Processed + other.Processed,
		Matched:   r.Matched + other.Matched,
		Stored:    r.Stored + other.Stored,
		Errors:    errs,
		Duration:  r.Duration + other.Duration,
	}
}
