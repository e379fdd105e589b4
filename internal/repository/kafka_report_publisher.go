package repository

import (
	"context"

	"FinScope/internal/domain/models"
	"FinScope/internal/domain/repository"
	pkgkafka "FinScope/pkg/kafka"
)

// KafkaPublisher implements ReportPublisher for Kafka. Reports are keyed by symbol
// so one symbol's reports stay ordered within a partition.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.ReportPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, r *models.AnalysisReport) error {
	return p.producer.Publish(ctx, p.topic, []byte(r.Symbol), r)
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, reports []*models.AnalysisReport) error {
	if len(reports) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(reports))
	for _, r := range reports {
		if r == nil {
			continue
		}
		msgs = append(msgs, pkgkafka.Message{Key: []byte(r.Symbol), Value: r})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
