package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
)

// Producer publishes job lifecycle events.
type Producer interface {
	SendJobEvent(ctx context.Context, event *JobEvent) error
	Close() error
}

type JobEvent struct {
	JobID      string    `json:"job_id"`
	TraceID    string    `json:"trace_id"`
	Status     string    `json:"status"`
	Filename   string    `json:"original_filename"`
	Speed      string    `json:"translation_speed"`
	Mode       string    `json:"translation_mode"`
	WordCount  int       `json:"word_count"`
	Model      string    `json:"model"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type producer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewProducer(brokers []string, topic string) (Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	p, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return NewProducerFromSync(p, topic), nil
}

func NewProducerFromSync(p sarama.SyncProducer, topic string) Producer {
	return &producer{producer: p, topic: topic}
}

func (p *producer) SendJobEvent(ctx context.Context, event *JobEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.JobID),
		Value: sarama.ByteEncoder(data),
	}

	_, _, err = p.producer.SendMessage(msg)
	return err
}

func (p *producer) Close() error {
	return p.producer.Close()
}
