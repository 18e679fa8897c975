package repository

import (
	"context"
	"time"

	"MarketLab/internal/domain/models"
	domrepo "MarketLab/internal/domain/repository"
	pkgkafka "MarketLab/pkg/kafka"
	applogger "MarketLab/pkg/logger"
)

// KafkaEventPublisher emits cache-refresh and retrain events for downstream
// consumers (dashboards, schedulers). Publishing is best effort; a broker
// outage must never fail the operation that produced the event.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
	l        *applogger.Logger
}

func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string, l *applogger.Logger) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic, l: l}
}

var _ domrepo.EventPublisher = (*KafkaEventPublisher)(nil)

type cacheRefreshEvent struct {
	Type     string    `json:"type"`
	Symbol   string    `json:"symbol"`
	Period   string    `json:"period"`
	Interval string    `json:"interval"`
	Source   string    `json:"source"`
	BarCount int       `json:"barCount"`
	At       time.Time `json:"at"`
}

type retrainEvent struct {
	Type        string    `json:"type"`
	Symbol      string    `json:"symbol"`
	TrainedAt   time.Time `json:"trainedAt"`
	ValAccuracy float64   `json:"validationAccuracy"`
	SampleCount int       `json:"sampleCount"`
}

func (p *KafkaEventPublisher) PublishCacheRefresh(ctx context.Context, symbol, period, interval, source string, barCount int) error {
	event := cacheRefreshEvent{
		Type:     "cache_refresh",
		Symbol:   symbol,
		Period:   period,
		Interval: interval,
		Source:   source,
		BarCount: barCount,
		At:       time.Now().UTC(),
	}
	if err := p.producer.Publish(ctx, p.topic, []byte(symbol), event); err != nil {
		p.l.Warn("cache refresh event publish failed",
			applogger.String("symbol", symbol), applogger.Error(err))
		return err
	}
	return nil
}

func (p *KafkaEventPublisher) PublishRetrain(ctx context.Context, report *models.TrainReport) error {
	event := retrainEvent{
		Type:        "retrain",
		Symbol:      report.Symbol,
		TrainedAt:   report.TrainedAt,
		ValAccuracy: report.ValAccuracy,
		SampleCount: report.SampleCount,
	}
	if err := p.producer.Publish(ctx, p.topic, []byte(report.Symbol), event); err != nil {
		p.l.Warn("retrain event publish failed",
			applogger.String("symbol", report.Symbol), applogger.Error(err))
		return err
	}
	return nil
}

func (p *KafkaEventPublisher) Close() error {
	return p.producer.Close()
}

// NopEventPublisher is used when Kafka is disabled in configuration.
type NopEventPublisher struct{}

var _ domrepo.EventPublisher = (*NopEventPublisher)(nil)

func (NopEventPublisher) PublishCacheRefresh(context.Context, string, string, string, string, int) error {
	return nil
}
func (NopEventPublisher) PublishRetrain(context.Context, *models.TrainReport) error { return nil }
func (NopEventPublisher) Close() error                                              { return nil }
