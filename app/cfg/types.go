package cfg

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Cache configuration
	RedisAddr string
	SeenTTL   int

	// Application configuration
	RulesDir          string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	BatchTimeout      int
	APIAccessKey      string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
