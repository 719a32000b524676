package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gartstein/salaries/internal/salary/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

type EventType string

const (
	SalaryCreated  EventType = "salary_created"
	SalaryUpdated  EventType = "salary_updated"
	SalaryDeleted  EventType = "salary_deleted"
	SalaryApproved EventType = "salary_approved"
	SalaryRejected EventType = "salary_rejected"
	SalaryRestored EventType = "salary_restored"
)

// IsModeration reports whether t records a moderation transition.
func (t EventType) IsModeration() bool {
	switch t {
	case SalaryApproved, SalaryRejected, SalaryRestored:
		return true
	}
	return false
}

type Event struct {
	Type       EventType            `json:"type"`
	Salary     *models.SalaryRecord `json:"salary"`
	OccurredAt time.Time            `json:"occurredAt"`
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
}

// EnsureTopic creates the topic on the first broker if it does not exist yet.
func EnsureTopic(brokers []string, topic string, logger *zap.Logger) error {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Warn("failed to create topic (may already exist)", zap.Error(err))
	}
	return nil
}

func NewProducer(brokers []string, logger *zap.Logger, topic string) *Producer {
	p := &Producer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.Hash{},
			Topic:    topic,
		},
		events:    make(chan Event, 1000),
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
	}

	go p.eventLoop()
	return p
}

// Produce queues an event without blocking. When the queue is full the
// event is dropped and logged.
func (p *Producer) Produce(eventType EventType, salary *models.SalaryRecord) {
	event := Event{Type: eventType, Salary: salary.Clone(), OccurredAt: time.Now().UTC()}
	select {
	case p.events <- event:
	default:
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("event_type", string(eventType)),
			zap.String("salary_id", salary.ID.String()),
		)
	}
}

func (p *Producer) eventLoop() {
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			return
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, event Event) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("salary_id", event.Salary.ID.String()),
		)
		return
	}
	// Keyed by salary id so every event of one record lands on the same
	// partition, in order.
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Salary.ID.String()),
		Value: value,
	})
	if err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.String("salary_id", event.Salary.ID.String()),
		)
		return
	}
}

func (p *Producer) Close() {
	close(p.closeChan)
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka writer", zap.Error(err))
	}
}
