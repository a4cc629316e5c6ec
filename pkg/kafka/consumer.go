package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	kafka_config "campbook/pkg/kafka/config"
	"campbook/pkg/logger"
	"campbook/pkg/retry"

	"github.com/segmentio/kafka-go"
)

const (
	commitTimeout     = 5 * time.Second
	fetchErrorBackoff = time.Second
)

// messageReader is the subset of *kafka.Reader the consumer relies on
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads a topic as part of a consumer group and commits an offset
// only once its message has been handled or dead-lettered.
type Consumer struct {
	reader     messageReader
	dlqWriter  messageWriter
	topic      string
	groupID    string
	dlqTopic   string
	policy     retry.Policy
	handler    MessageHandler
	middleware []ConsumerMiddleware
	log        *logger.Logger
	closed     bool
	mu         sync.RWMutex
	wg         sync.WaitGroup
}

type ConsumerMiddleware func(ctx context.Context, msg Message, next MessageHandler) error

func NewConsumer(cfg *kafka_config.Config, topic, groupID, dlqTopic string, handler MessageHandler, log *logger.Logger) (*Consumer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	if groupID == "" {
		return nil, fmt.Errorf("group ID cannot be empty")
	}

	if handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             topic,
		GroupID:           groupID,
		Dialer:            &kafka.Dialer{ClientID: cfg.ClientID, Timeout: 10 * time.Second, DualStack: true},
		MinBytes:          cfg.ConsumerMinBytes,
		MaxBytes:          cfg.ConsumerMaxBytes,
		MaxWait:           cfg.ConsumerMaxWait,
		CommitInterval:    0, // synchronous commits
		HeartbeatInterval: cfg.ConsumerHeartbeatInterval,
		SessionTimeout:    cfg.ConsumerSessionTimeout,
		RebalanceTimeout:  cfg.ConsumerRebalanceTimeout,
		StartOffset:       cfg.ConsumerStartOffset,
		Logger:            kafka.LoggerFunc(func(msg string, args ...any) {}), // Silence default logger
		ErrorLogger:       errorLogger(log),
	})

	var dlqWriter messageWriter
	if dlqTopic != "" {
		dlqWriter = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        dlqTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  compression(cfg.ProducerCompression),
			MaxAttempts:  cfg.ProducerMaxAttempts,
			BatchTimeout: cfg.ProducerBatchTimeout,
			Logger:       kafka.LoggerFunc(func(msg string, args ...any) {}),
			ErrorLogger:  errorLogger(log),
		}
	}

	policy := retry.Policy{
		MaxAttempts: cfg.ConsumerMaxRetries + 1,
		BaseDelay:   cfg.ConsumerRetryBackoff,
		MaxDelay:    cfg.ConsumerRetryBackoffMax,
	}

	return newConsumer(reader, dlqWriter, topic, groupID, dlqTopic, policy, handler, log), nil
}

func newConsumer(reader messageReader, dlqWriter messageWriter, topic, groupID, dlqTopic string, policy retry.Policy, handler MessageHandler, log *logger.Logger) *Consumer {
	if log == nil {
		log = logger.NewNop()
	}
	policy.Retryable = func(err error) bool { return ClassifyError(err) == ErrorTypeTransient }
	return &Consumer{
		reader:     reader,
		dlqWriter:  dlqWriter,
		topic:      topic,
		groupID:    groupID,
		dlqTopic:   dlqTopic,
		policy:     policy,
		handler:    handler,
		middleware: make([]ConsumerMiddleware, 0),
		log:        log.With("topic", topic, "group", groupID),
	}
}

func (c *Consumer) Use(middleware ConsumerMiddleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware = append(c.middleware, middleware)
}

// Start consumes until ctx is cancelled or a message can neither be handled
// nor dead-lettered. In both cases the current message stays uncommitted, so the
// group redelivers it to whichever reader picks the partition up next.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrConsumerClosed
	}
	c.wg.Add(1)
	handler := c.chain()
	c.mu.RUnlock()
	defer c.wg.Done()

	c.log.Info("Kafka consumer started")

	for {
		kafkaMsg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return ErrConsumerClosed
			}
			c.log.Warn("Failed to fetch message", "error", err)
			if err := retry.Sleep(ctx, fetchErrorBackoff); err != nil {
				return err
			}
			continue
		}

		if err := c.handleMessage(ctx, handler, kafkaMsg); err != nil {
			return err
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, handler MessageHandler, kafkaMsg kafka.Message) error {
	msg := fromKafka(kafkaMsg)
	log := c.log.With("partition", msg.Partition, "offset", msg.Offset, "event_id", msg.GetEventID())

	attempts, err := retry.Do(ctx, c.policyFor(log), func(ctx context.Context, attempt int) error {
		return handler(ctx, msg)
	})

	if err != nil {
		if ctx.Err() != nil {
			log.Info("Abandoning message on shutdown, offset not committed", "attempts", attempts)
			return ctx.Err()
		}

		if c.dlqWriter == nil {
			return fmt.Errorf("handle message at offset %d: %w", msg.Offset, err)
		}

		if dlqErr := c.sendToDLQ(ctx, msg, err, attempts); dlqErr != nil {
			log.Error("Failed to dead-letter message, offset not committed",
				"error", dlqErr, "handler_error", err, "attempts", attempts)
			return fmt.Errorf("dead-letter offset %d: %w", msg.Offset, dlqErr)
		}

		log.Warn("Message dead-lettered",
			"dlq_topic", c.dlqTopic, "error", err, "attempts", attempts)
	}

	// the side effect already happened; finish the commit even while shutting down
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()

	if err := c.reader.CommitMessages(commitCtx, kafkaMsg); err != nil {
		return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
	}
	return nil
}

func (c *Consumer) policyFor(log *logger.Logger) retry.Policy {
	p := c.policy
	p.OnRetry = func(attempt int, delay time.Duration, err error) {
		log.Warn("Message handling failed, retrying",
			"attempt", attempt, "max_attempts", p.MaxAttempts, "backoff", delay, "error", err)
	}
	return p
}

func (c *Consumer) chain() MessageHandler {
	handler := c.handler
	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := handler
		handler = func(ctx context.Context, m Message) error {
			return middleware(ctx, m, next)
		}
	}
	return handler
}

// sendToDLQ copies msg to the dead letter topic with failure metadata
func (c *Consumer) sendToDLQ(ctx context.Context, msg Message, cause error, attempts int) error {
	headers := make(map[string]string, len(msg.Headers)+6)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[HeaderOriginalTopic] = c.topic
	headers[HeaderDLQError] = cause.Error()
	headers[HeaderDLQTimestamp] = time.Now().UTC().Format(time.RFC3339)
	headers[HeaderDLQGroup] = c.groupID
	headers[HeaderDLQPartition] = strconv.Itoa(msg.Partition)
	headers[HeaderDLQOffset] = strconv.FormatInt(msg.Offset, 10)

	dead := Message{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Timestamp: time.Now().UTC(),
	}
	dead.SetRetryCount(attempts - 1)

	return c.dlqWriter.WriteMessages(ctx, dead.toKafka())
}

// Close waits for in-flight handling to finish, then releases the reader and DLQ writer.
// Cancel the context passed to Start first.
func (c *Consumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.wg.Wait()

	err := c.reader.Close()
	if c.dlqWriter != nil {
		if dlqErr := c.dlqWriter.Close(); err == nil {
			err = dlqErr
		}
	}

	return err
}
