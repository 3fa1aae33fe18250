package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/comictracker/internal/apperrors"
	"github.com/nkiryanov/comictracker/internal/handlers/render"
	"github.com/nkiryanov/comictracker/internal/handlers/userctx"
	"github.com/nkiryanov/comictracker/internal/logger"
	"github.com/nkiryanov/comictracker/internal/models"
)

const msgComicNotFound = "Comic not found"

type ComicRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	SeriesTitle string `json:"series_title" validate:"max=200"`
	Issue       string `json:"issue" validate:"max=20"`
	Year        string `json:"year" validate:"max=10"`
	Publisher   string `json:"publisher" validate:"max=100"`
	Grade       string `json:"grade" validate:"max=20"`
	Notes       string `json:"notes" validate:"max=2000"`
	Image       string `json:"image" validate:"max=2048"`
	WantList    bool   `json:"want_list"`
}

func (c ComicRequest) info() models.ComicInfo {
	return models.ComicInfo{
		Title:       c.Title,
		SeriesTitle: c.SeriesTitle,
		Issue:       c.Issue,
		Year:        c.Year,
		Publisher:   c.Publisher,
		Grade:       c.Grade,
		Notes:       c.Notes,
		Image:       c.Image,
		WantList:    c.WantList,
	}
}

type SaleResponse struct {
	Price decimal.Decimal `json:"price"`
	Date  time.Time       `json:"date"`
}

type ComicResponse struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	SeriesTitle string    `json:"series_title"`
	Issue       string    `json:"issue"`
	Year        string    `json:"year"`
	Publisher   string    `json:"publisher"`
	Grade       string    `json:"grade"`
	Notes       string    `json:"notes"`
	Image       string    `json:"image"`
	WantList    bool      `json:"want_list"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	MarketAverage   *decimal.Decimal `json:"market_average,omitempty"`
	MarketSales     []SaleResponse   `json:"market_sales,omitempty"`
	MarketUpdatedAt *time.Time       `json:"market_updated_at,omitempty"`
}

type MarketResponse struct {
	Average   decimal.Decimal `json:"average"`
	Sales     []SaleResponse  `json:"sales"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func toSales(sales []models.Sale) []SaleResponse {
	res := make([]SaleResponse, 0, len(sales))
	for _, s := range sales {
		res = append(res, SaleResponse{Price: s.Price, Date: s.Date})
	}
	return res
}

func toComicResponse(c models.Comic) ComicResponse {
	res := ComicResponse{
		ID:              c.ID,
		Title:           c.Title,
		SeriesTitle:     c.SeriesTitle,
		Issue:           c.Issue,
		Year:            c.Year,
		Publisher:       c.Publisher,
		Grade:           c.Grade,
		Notes:           c.Notes,
		Image:           c.Image,
		WantList:        c.WantList,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		MarketAverage:   c.MarketAverage,
		MarketUpdatedAt: c.MarketUpdatedAt,
	}
	if len(c.MarketSales) > 0 {
		res.MarketSales = toSales(c.MarketSales)
	}
	return res
}

// Render comic service error. Not found comics are 404, anything unexpected is logged
func renderComicError(w http.ResponseWriter, logger logger.Logger, err error) {
	switch {
	case errors.Is(err, apperrors.ErrComicNotFound):
		render.ServiceError(w, msgComicNotFound, http.StatusNotFound)
	case errors.Is(err, apperrors.ErrInvalidInput):
		render.ServiceError(w, "Invalid comic", http.StatusBadRequest)
	default:
		logger.Error("comic request failed", "error", err)
		render.ServiceError(w, msgInternalError, http.StatusInternalServerError)
	}
}

// Return authenticated user and comic id from path
// Malformed id can't belong to any comic, so it is 404 too
func comicTarget(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, _ := userctx.FromContext(r.Context())

	comicID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		render.ServiceError(w, msgComicNotFound, http.StatusNotFound)
		return userID, comicID, false
	}

	return userID, comicID, true
}

func handleListComics(comicService comicService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := userctx.FromContext(r.Context())

		var wantList *bool
		if raw := r.URL.Query().Get("want"); raw != "" {
			want, err := strconv.ParseBool(raw)
			if err != nil {
				render.ServiceError(w, "Query parameter 'want' has to be true or false", http.StatusBadRequest)
				return
			}
			wantList = &want
		}

		comics, err := comicService.List(r.Context(), userID, wantList)
		if err != nil {
			renderComicError(w, logger, err)
			return
		}

		res := make([]ComicResponse, 0, len(comics))
		for _, c := range comics {
			res = append(res, toComicResponse(c))
		}
		render.JSON(w, res)
	})
}

func handleCreateComic(comicService comicService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := userctx.FromContext(r.Context())

		data, err := render.BindAndValidate[ComicRequest](w, r)
		if err != nil {
			return
		}

		comic, err := comicService.Create(r.Context(), userID, data.info())
		if err != nil {
			renderComicError(w, logger, err)
			return
		}

		render.JSONWithStatus(w, toComicResponse(comic), http.StatusCreated)
	})
}

func handleGetComic(comicService comicService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, comicID, ok := comicTarget(w, r)
		if !ok {
			return
		}

		comic, err := comicService.Get(r.Context(), userID, comicID)
		if err != nil {
			renderComicError(w, logger, err)
			return
		}

		render.JSON(w, toComicResponse(comic))
	})
}

func handleUpdateComic(comicService comicService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, comicID, ok := comicTarget(w, r)
		if !ok {
			return
		}

		data, err := render.BindAndValidate[ComicRequest](w, r)
		if err != nil {
			return
		}

		comic, err := comicService.Update(r.Context(), userID, comicID, data.info())
		if err != nil {
			renderComicError(w, logger, err)
			return
		}

		render.JSON(w, toComicResponse(comic))
	})
}

func handleDeleteComic(comicService comicService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, comicID, ok := comicTarget(w, r)
		if !ok {
			return
		}

		if err := comicService.Delete(r.Context(), userID, comicID); err != nil {
			renderComicError(w, logger, err)
			return
		}

		render.JSON(w, messageResponse{Message: "Comic deleted"})
	})
}

func handleComicMarket(comicService comicService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, comicID, ok := comicTarget(w, r)
		if !ok {
			return
		}

		value, err := comicService.Market(r.Context(), userID, comicID)
		if err != nil {
			renderComicError(w, logger, err)
			return
		}

		render.JSON(w, MarketResponse{Average: value.Average, Sales: toSales(value.Sales), UpdatedAt: value.UpdatedAt})
	})
}

func handleRefreshComicMarket(comicService comicService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, comicID, ok := comicTarget(w, r)
		if !ok {
			return
		}

		comic, err := comicService.RefreshMarket(r.Context(), userID, comicID)
		if err != nil {
			renderComicError(w, logger, err)
			return
		}

		render.JSON(w, toComicResponse(comic))
	})
}
