package events

import (
	"context"
	"fmt"
	"log/slog"

	"snapshare/internal/config"
	"snapshare/internal/middleware"
	"snapshare/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Sink names accepted by EVENTS_SINK.
const (
	SinkNone  = "none"
	SinkRedis = "redis"
	SinkKafka = "kafka"
)

// New returns the publisher selected by cfg.EventsSink. An empty sink means redis.
func New(cfg *config.Config, rdb *redis.Client) (Publisher, error) {
	sink := cfg.EventsSink
	if sink == "" {
		sink = SinkRedis
	}

	switch sink {
	case SinkNone:
		return NopPublisher{}, nil
	case SinkRedis:
		return instrument(SinkRedis, NewRedisPublisher(rdb)), nil
	case SinkKafka:
		kp, err := NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, err
		}
		middleware.Logger.Info("kafka event sink configured",
			slog.String("brokers", cfg.KafkaBrokers), slog.String("topic", cfg.KafkaTopic))
		return instrument(SinkKafka, kp), nil
	default:
		return nil, fmt.Errorf("unsupported events sink %q", sink)
	}
}

type instrumented struct {
	Publisher
	sink string
}

func instrument(sink string, p Publisher) Publisher {
	return &instrumented{Publisher: p, sink: sink}
}

func (p *instrumented) Publish(ctx context.Context, evt Event) error {
	err := p.Publisher.Publish(ctx, evt)
	observability.EventsPublished.WithLabelValues(p.sink, observability.OutcomeOf(err)).Inc()
	return err
}
