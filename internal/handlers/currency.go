package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dcc-backend/internal/middleware"
	"dcc-backend/internal/transport"
)

// GetCurrencyRates returns exchange rates based on the clinic's billing
// currency. Rates move slowly, responses are cached hard.
func (s *Server) GetCurrencyRates(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	if clinic == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}
	if s.Currency == nil {
		log.Warn("currency rates: provider not configured")
		transport.WriteError(w, http.StatusServiceUnavailable, "currency rates unavailable", nil)
		return
	}

	cacheKey := "rates:" + clinic.CurrencyCode
	if cached, ok, err := s.Cache.Get(r.Context(), cacheKey); err == nil && ok {
		log.Info("currency rates: cache hit")
		transport.WriteRaw(w, http.StatusOK, cached)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	rates, err := s.Currency.GetRates(ctx, clinic.CurrencyCode)
	if err != nil {
		log.Error("currency rates: provider error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadGateway, "currency provider error", nil)
		return
	}

	if payload, err := json.Marshal(transport.DataResponse{Data: rates}); err == nil {
		_ = s.Cache.Set(r.Context(), cacheKey, payload, time.Hour)
	}

	log.Info("currency rates: ok", slog.String("base", rates.Base))
	transport.WriteData(w, http.StatusOK, rates)
}

// ConvertCurrency converts an amount from the clinic's billing currency
// into the requested target currency.
func (s *Server) ConvertCurrency(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	if clinic == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}
	if s.Currency == nil {
		transport.WriteError(w, http.StatusServiceUnavailable, "currency rates unavailable", nil)
		return
	}

	amount, err := strconv.ParseFloat(r.URL.Query().Get("amount"), 64)
	if err != nil || amount < 0 {
		transport.WriteError(w, http.StatusBadRequest, "invalid amount", nil)
		return
	}
	to := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("to")))
	if to == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing target currency", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	converted, err := s.Currency.Convert(ctx, amount, clinic.CurrencyCode, to)
	if err != nil {
		log.Error("currency convert: provider error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadGateway, "currency provider error", nil)
		return
	}

	transport.WriteData(w, http.StatusOK, map[string]any{
		"from":   clinic.CurrencyCode,
		"to":     to,
		"amount": amount,
		"result": converted,
	})
}
