package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	e "github.com/gartstein/hr/internal/hr/errors"
	"github.com/gartstein/hr/internal/hr/events"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaQueue publishes jobs to a topic and runs the jobs it consumes from
// the same topic as part of a consumer group. Any number of processes may
// share the group; each job is executed by one of them.
type KafkaQueue struct {
	writer   events.KafkaWriter
	consumer *events.Consumer
	exec     Executor
	logger   *zap.Logger

	mu         sync.Mutex
	stopFetch  context.CancelFunc
	runCtx     context.Context
	cancelRuns context.CancelFunc
	stopped    bool
}

func NewKafkaQueue(brokers []string, topic, groupID string, exec Executor, logger *zap.Logger) *KafkaQueue {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		Topic:                  topic,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	consumer := events.NewConsumer(brokers, groupID, topic, logger)
	return newKafkaQueue(writer, consumer, exec, logger)
}

func newKafkaQueue(writer events.KafkaWriter, consumer *events.Consumer, exec Executor, logger *zap.Logger) *KafkaQueue {
	runCtx, cancelRuns := context.WithCancel(context.Background())
	q := &KafkaQueue{
		writer:     writer,
		consumer:   consumer,
		exec:       exec,
		logger:     logger.Named("import_queue"),
		runCtx:     runCtx,
		cancelRuns: cancelRuns,
	}
	consumer.RegisterHandler(q.handle)
	return q
}

// Start begins consuming jobs.
func (q *KafkaQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	ctx, cancel := context.WithCancel(context.Background())
	q.stopFetch = cancel
	q.consumer.Start(ctx)
}

// Submit writes job to the topic, keyed by company.
func (q *KafkaQueue) Submit(ctx context.Context, job Job) error {
	q.mu.Lock()
	stopped := q.stopped
	q.mu.Unlock()
	if stopped {
		return ErrStopped
	}

	value, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	err = q.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(job.CompanyID.String()),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// handle runs on the job context rather than the fetch context so that
// stopping the fetch loop does not cancel the job in progress. A job
// interrupted by Stop returns an error, which leaves its message
// uncommitted for redelivery.
func (q *KafkaQueue) handle(_ context.Context, msg kafka.Message) error {
	var job Job
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		q.logger.Error("dropping undecodable job message", zap.Error(err), zap.ByteString("value", msg.Value))
		return nil
	}

	_, err := q.exec.Run(q.runCtx, job.ID)
	if errors.Is(err, e.ErrNotFound) {
		q.logger.Warn("dropping message for unknown job", zap.String("job_id", job.ID.String()))
		return nil
	}
	return err
}

// Stop stops fetching, waits for the job in progress until ctx is done,
// cancels it past that point and closes the connections.
func (q *KafkaQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	stopFetch := q.stopFetch
	q.mu.Unlock()

	var err error
	if stopFetch != nil {
		stopFetch()
		select {
		case <-q.consumer.Done():
		case <-ctx.Done():
			err = ctx.Err()
			q.cancelRuns()
			<-q.consumer.Done()
		}
	}
	q.cancelRuns()
	q.consumer.Close()
	if cerr := q.writer.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
