package kafka_config

import "time"

const (
	// Default Kafka broker
	DefaultKafkaBrokers = "localhost:9092"
	DefaultClientID     = "campbook"

	DefaultEventsTopic   = "campbook.events"
	DefaultDLQTopic      = "campbook.events.dlq"
	DefaultConsumerGroup = "campbook-notifier"

	// Producer defaults
	DefaultProducerMaxAttempts  = 5
	DefaultProducerBackoffMin   = 100 * time.Millisecond
	DefaultProducerBackoffMax   = 2 * time.Second
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerWriteTimeout = 10 * time.Second
	DefaultProducerRequireAcks  = -1 // Require all replicas
	DefaultProducerCompression  = "snappy"

	// Consumer defaults
	DefaultConsumerStartOffset       = -2 // Oldest messages, a new group must not skip history
	DefaultConsumerMinBytes          = 1
	DefaultConsumerMaxBytes          = 10 * 1024 * 1024 // 10MB
	DefaultConsumerMaxWait           = 500 * time.Millisecond
	DefaultConsumerHeartbeatInterval = 3 * time.Second
	DefaultConsumerSessionTimeout    = 10 * time.Second
	DefaultConsumerRebalanceTimeout  = 60 * time.Second
	DefaultConsumerMaxRetries        = 3
	DefaultConsumerRetryBackoff      = 500 * time.Millisecond
	DefaultConsumerRetryBackoffMax   = 5 * time.Second
	DefaultConsumerRestartBackoff    = 2 * time.Second

	DefaultEnableMiddleware = true
)
