// Package marketprocessor keeps market values of comics fresh in background.
//
// Producer lists comics with missing or old market data on every tick and
// consumer workers refresh them one by one.
package marketprocessor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/comictracker/internal/logger"
	"github.com/nkiryanov/comictracker/internal/models"
)

const (
	defaultCountWorkers    = 4              // Number of workers to refresh comics
	defaultProduceInterval = time.Hour      // Interval for looking for stale comics
	defaultMaxAge          = 24 * time.Hour // Market data older than this is refreshed
	defaultBatchSize       = 100
)

type comicService interface {
	ListStale(ctx context.Context, maxAge time.Duration, limit int) ([]models.Comic, error)
	RefreshMarket(ctx context.Context, userID uuid.UUID, comicID uuid.UUID) (models.Comic, error)
}

type Config struct {
	// Defaults are used for zero values
	CountWorkers int
	Interval     time.Duration
	MaxAge       time.Duration
	BatchSize    int
}

type Processor struct {
	consumer *Consumer
	producer *Producer
	logger   logger.Logger
}

func New(cfg Config, logger logger.Logger, comicService comicService) *Processor {
	if cfg.CountWorkers <= 0 {
		cfg.CountWorkers = defaultCountWorkers
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultProduceInterval
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = defaultMaxAge
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}

	return &Processor{
		consumer: &Consumer{
			countWorkers: cfg.CountWorkers,
			comicService: comicService,
			logger:       logger,
		},
		producer: &Producer{
			interval:     cfg.Interval,
			maxAge:       cfg.MaxAge,
			batchSize:    cfg.BatchSize,
			comicService: comicService,
			logger:       logger,
		},
		logger: logger,
	}
}

// Start producer and consumer. Returned channel is closed when both stopped after ctx is done
func (p *Processor) Process(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})

	comicChan := make(chan models.Comic)

	producerStopped := p.producer.Produce(ctx, comicChan)
	consumerStopped := p.consumer.Consume(ctx, comicChan)

	go func() {
		defer close(idleStopped)
		defer close(comicChan)
		<-producerStopped
		<-consumerStopped
		p.logger.Debug("MarketProcessor stopped")
	}()

	return idleStopped
}
