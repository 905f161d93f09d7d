package kafka_config

import "time"

const (
	// Empty means events are not published.
	DefaultKafkaBrokers = ""

	DefaultBookingTopic = "hotel.bookings"

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1 // all replicas
	DefaultProducerCompression  = "snappy"
	DefaultProducerAsync        = false
)
