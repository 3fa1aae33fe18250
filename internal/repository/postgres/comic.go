package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/comictracker/internal/apperrors"
	"github.com/nkiryanov/comictracker/internal/models"
	"github.com/nkiryanov/comictracker/internal/repository"
)

type ComicRepo struct {
	DB DBTX
}

const comicColumns = `id, user_id, created_at, updated_at,
	title, series_title, issue, year, publisher, grade, notes, image, want_list,
	market_average, market_sales, market_updated_at`

const createComic = `-- name: CreateComic
INSERT INTO comics (id, user_id, created_at, updated_at, title, series_title, issue, year, publisher, grade, notes, image, want_list)
VALUES ($1, $2, $3, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING ` + comicColumns

func (r *ComicRepo) CreateComic(ctx context.Context, userID uuid.UUID, info models.ComicInfo) (models.Comic, error) {
	rows, _ := r.DB.Query(ctx, createComic,
		uuid.New(), userID, time.Now(),
		info.Title, info.SeriesTitle, info.Issue, info.Year, info.Publisher, info.Grade, info.Notes, info.Image, info.WantList,
	)
	comic, err := pgx.CollectOneRow(rows, rowToComic)
	if err != nil {
		return comic, fmt.Errorf("db error: %w", err)
	}

	return comic, nil
}

const getComic = `-- name: GetComic
SELECT ` + comicColumns + ` FROM comics
WHERE id = $1 AND user_id = $2
`

func (r *ComicRepo) GetComic(ctx context.Context, userID uuid.UUID, comicID uuid.UUID) (models.Comic, error) {
	rows, _ := r.DB.Query(ctx, getComic, comicID, userID)
	return collectComic(rows)
}

// Newest first, as users expect to see just added comics on top
const listComics = `-- name: ListComics
SELECT ` + comicColumns + ` FROM comics
WHERE user_id = $1 AND ($2::boolean IS NULL OR want_list = $2)
ORDER BY created_at DESC
`

func (r *ComicRepo) ListComics(ctx context.Context, opts repository.ListComicsOpts) ([]models.Comic, error) {
	rows, _ := r.DB.Query(ctx, listComics, opts.UserID, opts.WantList)
	comics, err := pgx.CollectRows(rows, rowToComic)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return comics, nil
}

const updateComic = `-- name: UpdateComic
UPDATE comics
SET title = $3, series_title = $4, issue = $5, year = $6, publisher = $7, grade = $8, notes = $9, image = $10, want_list = $11,
	updated_at = now()
WHERE id = $1 AND user_id = $2
RETURNING ` + comicColumns

func (r *ComicRepo) UpdateComic(ctx context.Context, userID uuid.UUID, comicID uuid.UUID, info models.ComicInfo) (models.Comic, error) {
	rows, _ := r.DB.Query(ctx, updateComic,
		comicID, userID,
		info.Title, info.SeriesTitle, info.Issue, info.Year, info.Publisher, info.Grade, info.Notes, info.Image, info.WantList,
	)
	return collectComic(rows)
}

const deleteComic = `-- name: DeleteComic
DELETE FROM comics
WHERE id = $1 AND user_id = $2
`

func (r *ComicRepo) DeleteComic(ctx context.Context, userID uuid.UUID, comicID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, deleteComic, comicID, userID)

	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrComicNotFound
	default:
		return nil
	}
}

const setMarket = `-- name: SetMarket
UPDATE comics
SET market_average = $3, market_sales = $4, market_updated_at = now()
WHERE id = $1 AND user_id = $2
RETURNING ` + comicColumns

func (r *ComicRepo) SetMarket(ctx context.Context, userID uuid.UUID, comicID uuid.UUID, average decimal.Decimal, sales []models.Sale) (models.Comic, error) {
	if sales == nil {
		sales = []models.Sale{}
	}

	rows, _ := r.DB.Query(ctx, setMarket, comicID, userID, average, sales)
	return collectComic(rows)
}

const listStaleMarket = `-- name: ListStaleMarket
SELECT ` + comicColumns + ` FROM comics
WHERE market_updated_at IS NULL OR market_updated_at < $1
ORDER BY market_updated_at ASC NULLS FIRST, created_at ASC
LIMIT $2
`

func (r *ComicRepo) ListStaleMarket(ctx context.Context, opts repository.ListStaleMarketOpts) ([]models.Comic, error) {
	rows, _ := r.DB.Query(ctx, listStaleMarket, opts.UpdatedBefore, opts.Limit)
	comics, err := pgx.CollectRows(rows, rowToComic)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return comics, nil
}

func collectComic(rows pgx.Rows) (models.Comic, error) {
	comic, err := pgx.CollectOneRow(rows, rowToComic)

	switch {
	case err == nil:
		return comic, nil
	case errors.Is(err, pgx.ErrNoRows):
		return comic, apperrors.ErrComicNotFound
	default:
		return comic, fmt.Errorf("db error: %w", err)
	}
}

func rowToComic(row pgx.CollectableRow) (models.Comic, error) {
	var c models.Comic
	err := row.Scan(
		&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt,
		&c.Title, &c.SeriesTitle, &c.Issue, &c.Year, &c.Publisher, &c.Grade, &c.Notes, &c.Image, &c.WantList,
		&c.MarketAverage, &c.MarketSales, &c.MarketUpdatedAt,
	)
	return c, err
}
