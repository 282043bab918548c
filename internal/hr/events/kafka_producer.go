package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

type EventType string

const (
	CompanyCreated    EventType = "company_created"
	CompanyUpdated    EventType = "company_updated"
	CompanyDeleted    EventType = "company_deleted"
	UserCreated       EventType = "user_created"
	UserUpdated       EventType = "user_updated"
	UserDeleted       EventType = "user_deleted"
	EmployeeCreated   EventType = "employee_created"
	EmployeeUpdated   EventType = "employee_updated"
	EmployeeDeleted   EventType = "employee_deleted"
	EmployeesImported EventType = "employees_imported"
)

// Event is the envelope written to the events topic. Messages are keyed by
// company so one tenant's events stay ordered within a partition.
type Event struct {
	Type       EventType `json:"type"`
	CompanyID  uuid.UUID `json:"company_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// Publisher is what services need from a producer.
type Publisher interface {
	Produce(eventType EventType, companyID uuid.UUID, payload any)
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer    KafkaWriter
	events    chan Event
	logger    *zap.Logger
	closeChan chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

func NewProducer(brokers []string, logger *zap.Logger, topic string) *Producer {
	return newProducer(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		Topic:                  topic,
		AllowAutoTopicCreation: true,
	}, logger)
}

func newProducer(writer KafkaWriter, logger *zap.Logger) *Producer {
	p := &Producer{
		writer:    writer,
		events:    make(chan Event, 1000),
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
		done:      make(chan struct{}),
	}

	go p.eventLoop()
	return p
}

// EnsureTopic creates topic on the cluster if it does not exist yet.
func EnsureTopic(brokers []string, topic string, partitions int, logger *zap.Logger) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Warn("failed to create topic (may already exist)", zap.String("topic", topic), zap.Error(err))
	}
	return nil
}

// Produce queues an event without blocking. Events are dropped when the
// buffer is full.
func (p *Producer) Produce(eventType EventType, companyID uuid.UUID, payload any) {
	select {
	case p.events <- Event{Type: eventType, CompanyID: companyID, OccurredAt: time.Now().UTC(), Payload: payload}:
	default:
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("event_type", string(eventType)),
			zap.String("company_id", companyID.String()),
		)
	}
}

func (p *Producer) eventLoop() {
	defer close(p.done)
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			p.drain()
			return
		}
	}
}

func (p *Producer) drain() {
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		default:
			return
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, event Event) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.String("company_id", event.CompanyID.String()),
		)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.CompanyID.String()),
		Value: value,
	})
	if err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.String("company_id", event.CompanyID.String()),
		)
	}
}

// Close flushes queued events and closes the writer.
func (p *Producer) Close() {
	p.closeOnce.Do(func() {
		close(p.closeChan)
		<-p.done
		if err := p.writer.Close(); err != nil {
			p.logger.Error("Failed to close Kafka writer", zap.Error(err))
		}
	})
}

// NopPublisher discards events. It stands in when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Produce(EventType, uuid.UUID, any) {}
