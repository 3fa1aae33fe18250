package marketprocessor

import (
	"context"
	"time"

	"github.com/nkiryanov/comictracker/internal/logger"
	"github.com/nkiryanov/comictracker/internal/models"
)

type Producer struct {
	interval     time.Duration
	maxAge       time.Duration
	batchSize    int
	logger       logger.Logger
	comicService comicService
}

func (p *Producer) Produce(ctx context.Context, out chan<- models.Comic) <-chan struct{} {
	idleStopped := make(chan struct{})
	p.logger.Debug("Starting producer", "interval", p.interval, "max_age", p.maxAge, "batch_size", p.batchSize)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Debug("Producer stopped by context")
				return

			case <-ticker.C:
				comics, err := p.comicService.ListStale(ctx, p.maxAge, p.batchSize)
				if err != nil {
					p.logger.Error("Failed to list stale comics", "error", err)
					continue
				}
				p.logger.Debug("Producer tick", "stale_comics", len(comics))

				for _, comic := range comics {
					select {
					case <-ctx.Done():
						p.logger.Debug("Producer stopped by context while sending comics")
						return
					case out <- comic:
					}
				}
			}
		}
	}()

	return idleStopped
}
