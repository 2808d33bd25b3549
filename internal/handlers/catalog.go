package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"dcc-backend/internal/middleware"
	"dcc-backend/internal/transport"
)

// GetCatalog serves the shared static vocabularies the clients render
// pickers from. The payload is immutable for the process lifetime.
func (s *Server) GetCatalog(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	log.Info("catalog: ok")
	transport.WriteData(w, http.StatusOK, s.Catalog.Snapshot())
}

// GetCities lists cities for the tenant clinic's country, or for an
// explicit ?country= override.
func (s *Server) GetCities(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)

	countryCode := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("country")))
	if countryCode == "" {
		clinic := middleware.ClinicFromContext(r.Context())
		if clinic == nil {
			transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
			return
		}
		countryCode = clinic.CountryCode
	}

	if _, ok := s.Catalog.Country(countryCode); !ok {
		log.Warn("catalog cities: unknown country", slog.String("country_code", countryCode))
		transport.WriteError(w, http.StatusBadRequest, "unknown country", nil)
		return
	}

	transport.WriteData(w, http.StatusOK, s.Catalog.CitiesForCountry(countryCode))
}
