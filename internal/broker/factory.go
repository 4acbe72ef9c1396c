package broker

import (
	"context"
	"fmt"

	"inlet/internal/config"
	"inlet/internal/logger"
)

// NopProducer drops events. Used when no broker is configured; ingestion
// works without downstream consumers.
type NopProducer struct{}

func (NopProducer) Publish(ctx context.Context, topic string, event AcceptedEvent) error {
	return nil
}

func (NopProducer) Close() error { return nil }

func NewProducer(cfg config.BrokerConfig, log logger.Logger) (Producer, error) {
	switch cfg.Type {
	case "":
		return NopProducer{}, nil
	case "kafka":
		return NewKafkaProducer(cfg.Kafka, log), nil
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}
