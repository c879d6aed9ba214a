package config

import "time"

// EngineConfig is the top-level configuration cmd/flowengine loads before
// building a scheduler.Run, generalizing ServiceConfig/DatabaseConfig's
// env-var-driven shape into the one struct that names every external
// adapter the CLI entrypoint wires: object store, board store, trace log,
// metering sink, and run-level knobs.
type EngineConfig struct {
	Service ServiceConfig

	ObjectStoreBucket    string
	ObjectStoreRegion    string
	ObjectStoreEndpoint  string
	ObjectStoreAccessKey string
	ObjectStoreSecretKey string

	Board DatabaseConfig

	TracePostgresDSN string

	MeteringDynamoTable string
	MeteringTTL         time.Duration

	Cache DatabaseConfig

	ConcurrencyLimit int
	RunTimeout       time.Duration
}

// LoadEngineConfig loads EngineConfig from environment variables prefixed
// FLOWENGINE (FLOWENGINE_S3_BUCKET, FLOWENGINE_BOARD_URL, ...), following
// the same prefixed-EnvConfig composition LoadAll uses for AllConfig.
func LoadEngineConfig(prefix string) EngineConfig {
	if prefix == "" {
		prefix = "FLOWENGINE"
	}
	env := NewEnvConfig(prefix)

	return EngineConfig{
		Service: LoadServiceConfig(prefix),

		ObjectStoreBucket:    env.GetString("S3_BUCKET", ""),
		ObjectStoreRegion:    env.GetString("S3_REGION", "us-east-1"),
		ObjectStoreEndpoint:  env.GetString("S3_ENDPOINT", ""),
		ObjectStoreAccessKey: env.GetString("S3_ACCESS_KEY", ""),
		ObjectStoreSecretKey: env.GetString("S3_SECRET_KEY", ""),

		Board: LoadDatabaseConfig(prefix + "_BOARD"),

		TracePostgresDSN: env.GetString("TRACE_POSTGRES_DSN", ""),

		MeteringDynamoTable: env.GetString("METERING_DYNAMO_TABLE", ""),
		MeteringTTL:         env.GetDuration("METERING_TTL", 30*24*time.Hour),

		Cache: LoadDatabaseConfig(prefix + "_CACHE"),

		ConcurrencyLimit: env.GetInt("CONCURRENCY_LIMIT", 10),
		RunTimeout:       env.GetDuration("RUN_TIMEOUT", 0),
	}
}

// Validate checks the subset of EngineConfig fields that have no sane
// default and would otherwise fail deep inside adapter construction with a
// less useful error.
func (c EngineConfig) Validate() error {
	v := NewValidator()
	v.RequireString("Service.Name", c.Service.Name)
	v.RequirePositiveInt("ConcurrencyLimit", c.ConcurrencyLimit)
	return v.Validate()
}
