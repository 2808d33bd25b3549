package handlers

import (
	"log/slog"
	"net/http"

	"dcc-backend/internal/cache"
	"dcc-backend/internal/catalog"
	"dcc-backend/internal/config"
	"dcc-backend/internal/currency"
	"dcc-backend/internal/db"
	"dcc-backend/internal/lifecycle"
	"dcc-backend/internal/listing"
	"dcc-backend/internal/middleware"
	"dcc-backend/internal/models"
	"dcc-backend/internal/validation"
)

// Server bundles the catalog-style endpoints that read and mutate the
// clinic's offer directly: services, headquarters, shared catalogs and
// currency rates.
type Server struct {
	Cfg      *config.Config
	Cols     *db.Collections
	Val      *validation.Validator
	Log      *slog.Logger
	Cache    cache.Cache
	Catalog  *catalog.Context
	Currency *currency.Client

	tracker  *lifecycle.Tracker
	svcTable *listing.Controller[models.Service]
	svcGrid  *listing.Controller[models.Service]
}

func NewServer(cfg *config.Config, cols *db.Collections, val *validation.Validator, log *slog.Logger, c cache.Cache, cat *catalog.Context, cur *currency.Client) (*Server, error) {
	if c == nil {
		c = cache.NewNoop()
	}

	searchText := func(s models.Service) []string {
		return []string{s.Name, s.Description}
	}
	byID := listing.ByString(func(s models.Service) string { return s.ID })
	comparators := map[string]listing.Comparator[models.Service]{
		"name":     listing.ByString(func(s models.Service) string { return s.Name }),
		"price":    listing.ByNumber(func(s models.Service) float64 { return s.Price }),
		"duration": listing.ByNumber(func(s models.Service) float64 { return float64(s.Duration) }),
	}

	table, err := listing.NewController(listing.AdminPageSize, searchText, byID, comparators)
	if err != nil {
		return nil, err
	}
	grid, err := listing.NewController(listing.PatientGridPageSize, searchText, byID, comparators)
	if err != nil {
		return nil, err
	}

	return &Server{
		Cfg:      cfg,
		Cols:     cols,
		Val:      val,
		Log:      log,
		Cache:    c,
		Catalog:  cat,
		Currency: cur,
		tracker:  lifecycle.NewTracker(),
		svcTable: table,
		svcGrid:  grid,
	}, nil
}

func (s *Server) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return s.Log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return s.Log.With(slog.String("request_id", id))
	}
	return s.Log
}
