package domain

// Config holds the complete Kestrel configuration. It is built once at
// process start and passed explicitly into each component's constructor;
// there is no ambient module state.
type Config struct {
	// Server settings (monitoring API)
	Server ServerConfig `json:"server"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Scoring cycle settings
	Scoring ScoringConfig `json:"scoring"`

	// Categorization settings
	Categorization CategorizationConfig `json:"categorization"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// ScoringConfig holds the per-cycle scoring parameters.
type ScoringConfig struct {
	// Identity of this detection system within the dedup registry.
	SystemID         string `json:"systemId"`
	ControlCode      string `json:"controlCode"`
	IntermediaryCode string `json:"intermediaryCode"`

	// ModelName identifies the trained classifier (name + training date).
	ModelName string `json:"modelName"`

	// ModelURL is the endpoint of the external model service.
	ModelURL string `json:"modelUrl"`

	// Threshold is the minimum probability for a customer to be reported.
	Threshold float64 `json:"threshold"`

	// WindowMonths is the observation-window length per customer.
	WindowMonths int `json:"windowMonths"`

	// SkipMonths excludes customers already reported within this many
	// months. 0 disables skip-set filtering entirely.
	SkipMonths int `json:"skipMonths"`

	// BatchSize bounds the number of ids per persistence query.
	BatchSize int `json:"batchSize"`

	// FetchWorkers bounds concurrent batch fetches. 1 = sequential.
	FetchWorkers int `json:"fetchWorkers"`

	// ExcludedSystems are sibling detection systems whose current-period
	// alerts suppress duplicate reporting by this system.
	ExcludedSystems []string `json:"excludedSystems"`

	// GateExpression is an optional CEL acceptance rule evaluated over
	// (score, features). Empty means "score >= threshold".
	GateExpression string `json:"gateExpression"`
}

// CategorizationConfig holds the demographic bucketing parameters.
type CategorizationConfig struct {
	// Age bins: fixed-width intervals over [AgeMin, AgeMax).
	AgeBinWidth int `json:"ageBinWidth"`
	AgeMin      int `json:"ageMin"`
	AgeMax      int `json:"ageMax"`

	// MissingSentinels are raw values treated as absent.
	MissingSentinels []string `json:"missingSentinels"`

	// ReferencePath points at a JSON categorization-tables file.
	// Empty means the compiled-in defaults.
	ReferencePath string `json:"referencePath"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
}

// DefaultConfig returns the default configuration: embedded SQLite,
// in-memory cache, in-process bus, sequential fetches.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./kestrel.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Scoring: ScoringConfig{
			SystemID:     "KESTREL",
			ControlCode:  "SCORING",
			ModelName:    "kestrel-20240101",
			Threshold:    0.4,
			WindowMonths: 12,
			SkipMonths:   6,
			BatchSize:    500,
			FetchWorkers: 1,
		},
		Categorization: CategorizationConfig{
			AgeBinWidth: 10,
			AgeMin:      0,
			AgeMax:      100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "kestrel",
		},
	}
}
