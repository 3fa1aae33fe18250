package comic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/comictracker/internal/apperrors"
	"github.com/nkiryanov/comictracker/internal/models"
	"github.com/nkiryanov/comictracker/internal/repository"
	"github.com/nkiryanov/comictracker/internal/service/market"
)

// Source of recent sales for a comic
type salesSource interface {
	Sales(title string, issue string) []models.Sale
}

type ComicService struct {
	// Repository to access long term data
	comicRepo repository.ComicRepo

	sales salesSource
}

func NewService(comicRepo repository.ComicRepo, sales salesSource) *ComicService {
	if sales == nil {
		sales = market.NewGenerator()
	}

	return &ComicService{
		comicRepo: comicRepo,
		sales:     sales,
	}
}

// User comics, newest first. Filtered by want list flag if wantList not nil
func (s *ComicService) List(ctx context.Context, userID uuid.UUID, wantList *bool) ([]models.Comic, error) {
	return s.comicRepo.ListComics(ctx, repository.ListComicsOpts{UserID: userID, WantList: wantList})
}

func (s *ComicService) Get(ctx context.Context, userID uuid.UUID, comicID uuid.UUID) (models.Comic, error) {
	return s.comicRepo.GetComic(ctx, userID, comicID)
}

func (s *ComicService) Create(ctx context.Context, userID uuid.UUID, info models.ComicInfo) (models.Comic, error) {
	if strings.TrimSpace(info.Title) == "" {
		return models.Comic{}, fmt.Errorf("%w: title is required", apperrors.ErrInvalidInput)
	}

	return s.comicRepo.CreateComic(ctx, userID, info)
}

// Replace all editable fields of the comic
func (s *ComicService) Update(ctx context.Context, userID uuid.UUID, comicID uuid.UUID, info models.ComicInfo) (models.Comic, error) {
	if strings.TrimSpace(info.Title) == "" {
		return models.Comic{}, fmt.Errorf("%w: title is required", apperrors.ErrInvalidInput)
	}

	return s.comicRepo.UpdateComic(ctx, userID, comicID, info)
}

func (s *ComicService) Delete(ctx context.Context, userID uuid.UUID, comicID uuid.UUID) error {
	return s.comicRepo.DeleteComic(ctx, userID, comicID)
}

// Fetch fresh sales and store them with the average price
func (s *ComicService) RefreshMarket(ctx context.Context, userID uuid.UUID, comicID uuid.UUID) (models.Comic, error) {
	comic, err := s.comicRepo.GetComic(ctx, userID, comicID)
	if err != nil {
		return comic, err
	}

	sales := s.sales.Sales(comic.Title, comic.Issue)

	return s.comicRepo.SetMarket(ctx, userID, comicID, market.Average(sales), sales)
}

// Stored market value of the comic. Refreshed first if there is none yet
func (s *ComicService) Market(ctx context.Context, userID uuid.UUID, comicID uuid.UUID) (models.MarketValue, error) {
	comic, err := s.comicRepo.GetComic(ctx, userID, comicID)
	if err != nil {
		return models.MarketValue{}, err
	}

	if comic.MarketAverage == nil {
		comic, err = s.RefreshMarket(ctx, userID, comicID)
		if err != nil {
			return models.MarketValue{}, err
		}
	}

	value := models.MarketValue{Average: *comic.MarketAverage, Sales: comic.MarketSales}
	if comic.MarketUpdatedAt != nil {
		value.UpdatedAt = *comic.MarketUpdatedAt
	}

	return value, nil
}

// Comics of all users whose market data is missing or older than maxAge
func (s *ComicService) ListStale(ctx context.Context, maxAge time.Duration, limit int) ([]models.Comic, error) {
	return s.comicRepo.ListStaleMarket(ctx, repository.ListStaleMarketOpts{
		UpdatedBefore: time.Now().Add(-maxAge),
		Limit:         limit,
	})
}
