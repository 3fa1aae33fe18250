package marketprocessor

import (
	"context"
	"errors"
	"sync"

	"github.com/nkiryanov/comictracker/internal/apperrors"
	"github.com/nkiryanov/comictracker/internal/logger"
	"github.com/nkiryanov/comictracker/internal/models"
)

type Consumer struct {
	countWorkers int

	comicService comicService
	logger       logger.Logger
}

func (c *Consumer) Consume(ctx context.Context, in <-chan models.Comic) <-chan struct{} {
	idleStopped := make(chan struct{})

	var wg sync.WaitGroup
	for range c.countWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.worker(ctx, in)
		}()
	}

	go func() {
		defer close(idleStopped)
		wg.Wait()
		c.logger.Debug("Consumer stopped")
	}()

	return idleStopped
}

func (c *Consumer) worker(ctx context.Context, in <-chan models.Comic) {
	for {
		select {
		case <-ctx.Done():
			return

		case comic, ok := <-in:
			if !ok {
				c.logger.Debug("Consumer worker stopped, input channel closed")
				return
			}

			_, err := c.comicService.RefreshMarket(ctx, comic.UserID, comic.ID)
			switch {
			case err == nil:
				c.logger.Debug("Market refreshed", "comic_id", comic.ID)
			case errors.Is(err, apperrors.ErrComicNotFound):
				// Deleted after listed
			case errors.Is(err, context.Canceled):
			default:
				c.logger.Error("Failed to refresh market", "error", err, "comic_id", comic.ID)
			}
		}
	}
}
