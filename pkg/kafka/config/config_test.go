package kafka_config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, DefaultEventsTopic, cfg.EventsTopic)
	assert.Equal(t, DefaultDLQTopic, cfg.DLQTopic)
	assert.Equal(t, 5, cfg.ProducerMaxAttempts)
	assert.Equal(t, 3, cfg.ConsumerMaxRetries)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, " broker-1:9092 , ,broker-2:9092")
	t.Setenv(EnvKafkaConsumerMaxRetries, "7")
	t.Setenv(EnvKafkaConsumerRetryBackoff, "250ms")
	t.Setenv(EnvKafkaEnableMiddleware, "false")

	cfg := Load()

	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Brokers)
	assert.Equal(t, 7, cfg.ConsumerMaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.ConsumerRetryBackoff)
	assert.False(t, cfg.EnableMiddleware)
}

func TestLoad_IgnoresMalformedValues(t *testing.T) {
	t.Setenv(EnvKafkaProducerMaxAttempts, "many")
	t.Setenv(EnvKafkaProducerBackoffMax, "soon")

	cfg := Load()

	assert.Equal(t, DefaultProducerMaxAttempts, cfg.ProducerMaxAttempts)
	assert.Equal(t, DefaultProducerBackoffMax, cfg.ProducerBackoffMax)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"no brokers", func(c *Config) { c.Brokers = nil }, "At least one Kafka broker"},
		{"dlq equals events topic", func(c *Config) { c.DLQTopic = c.EventsTopic }, "DLQTopic must differ"},
		{"zero producer attempts", func(c *Config) { c.ProducerMaxAttempts = 0 }, "ProducerMaxAttempts"},
		{"inverted producer backoff", func(c *Config) { c.ProducerBackoffMax = time.Millisecond }, "Producer backoff"},
		{"bad compression", func(c *Config) { c.ProducerCompression = "brotli" }, "ProducerCompression"},
		{"bad acks", func(c *Config) { c.ProducerRequireAcks = 2 }, "ProducerRequireAcks"},
		{"explicit offset", func(c *Config) { c.ConsumerStartOffset = 42 }, "ConsumerStartOffset"},
		{"negative retries", func(c *Config) { c.ConsumerMaxRetries = -1 }, "ConsumerMaxRetries"},
		{"session shorter than heartbeat", func(c *Config) { c.ConsumerSessionTimeout = time.Second }, "ConsumerSessionTimeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLogConfiguration_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() { Load().LogConfiguration(nil) })
}
