package events

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler processes one message. The offset is committed only when it
// returns nil; a failed message is retried until it succeeds or the
// consumer stops, so later messages never commit past it.
type Handler func(ctx context.Context, msg kafka.Message) error

type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader  KafkaReader
	logger  *zap.Logger
	handler Handler
	done    chan struct{}

	// retryPolicy paces redelivery of a failed message.
	retryPolicy func() backoff.BackOff
}

// NewConsumer joins groupID on topic.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return NewConsumerFromReader(kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   topic,
		Dialer:  kafka.DefaultDialer,
	}), logger)
}

// NewConsumerFromReader wraps an existing reader.
func NewConsumerFromReader(reader KafkaReader, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader:      reader,
		logger:      logger.Named("kafka_consumer"),
		done:        make(chan struct{}),
		retryPolicy: redeliveryBackOff,
	}
}

func redeliveryBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Start consumes in the background until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, io.EOF) {
					return
				}
				c.logger.Error("Failed to fetch message", zap.Error(err))
				continue
			}

			if err := c.handle(ctx, msg); err != nil {
				c.logger.Warn("Leaving message uncommitted",
					zap.Error(err),
					zap.ByteString("key", msg.Key),
					zap.Int64("offset", msg.Offset),
				)
				return
			}

			if err := c.reader.CommitMessages(context.WithoutCancel(ctx), msg); err != nil {
				c.logger.Error("Failed to commit message",
					zap.Error(err),
					zap.Int64("offset", msg.Offset),
				)
			}
		}
	}()
}

// handle runs the handler on msg until it succeeds. It gives up only when
// ctx is done.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	return backoff.RetryNotify(func() error {
		return c.handler(ctx, msg)
	}, backoff.WithContext(c.retryPolicy(), ctx), func(err error, wait time.Duration) {
		c.logger.Error("Failed to handle message, retrying",
			zap.Error(err),
			zap.ByteString("key", msg.Key),
			zap.Int64("offset", msg.Offset),
			zap.Duration("wait", wait),
		)
	})
}

func (c *Consumer) RegisterHandler(fn Handler) {
	c.handler = fn
}

// Done is closed once the consume loop has returned.
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("Failed to close Kafka reader", zap.Error(err))
	}
}
