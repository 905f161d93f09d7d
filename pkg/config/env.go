package config

const (
	EnvStoreDriver = "STORE_DRIVER"

	EnvPostgresDSN          = "POSTGRES_DSN"
	EnvPostgresMaxOpenConns = "POSTGRES_MAX_OPEN_CONNS"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvLockBackend          = "LOCK_BACKEND"
	EnvBookingLockTTL       = "BOOKING_LOCK_TTL"
	EnvBookingLockWait      = "BOOKING_LOCK_WAIT"
	EnvAvailabilityCacheTTL = "AVAILABILITY_CACHE_TTL"

	EnvJWTSecret    = "JWT_SECRET"
	EnvOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvEnvironment  = "ENV"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRPS   = "RATE_LIMIT_RPS"
	EnvRateLimitBurst = "RATE_LIMIT_BURST"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
