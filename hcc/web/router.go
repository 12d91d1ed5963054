package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/seenhealth/hccinfhir/hcc/api"
	"github.com/seenhealth/hccinfhir/hcc/monitoring"
	"github.com/seenhealth/hccinfhir/hcc/tables"
	"github.com/seenhealth/hccinfhir/log"
)

var h *api.Handler

func init() {
	h = api.NewHandler(tables.Default())
}

// NewAPIRouter provides a router for the scoring API.
func NewAPIRouter() http.Handler {
	r := chi.NewRouter()
	m := monitoring.GetMonitor()
	r.Use(middleware.RequestID, log.NewStructuredLogger(), log.NewCtxLogger, middleware.Recoverer, SecurityHeader, ConnectionClose)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post(m.WrapHandler("/score", h.Score))
		r.Post(m.WrapHandler("/score/categories", h.ScoreCategories))
		r.Post(m.WrapHandler("/score/claims", h.ScoreClaims))
		r.Get(m.WrapHandler("/models", h.Models))
		r.Get(m.WrapHandler("/riskassessment", h.RiskAssessment))
		r.Post(m.WrapHandler("/riskassessment", h.RiskAssessment))
	})
	r.Get(m.WrapHandler("/_version", h.GetVersion))
	r.Get(m.WrapHandler("/_health", h.HealthCheck))
	return r
}

// NewHTTPRouter provides a router that accepts and redirects HTTP requests
// to HTTPS.
func NewHTTPRouter() http.Handler {
	r := chi.NewRouter()
	m := monitoring.GetMonitor()
	r.Use(ConnectionClose)
	r.With(log.NewStructuredLogger()).Get(m.WrapHandler("/*", func(w http.ResponseWriter, req *http.Request) {
		url := "https://" + req.Host + req.URL.String()
		http.Redirect(w, req, url, http.StatusMovedPermanently)
	}))
	return r
}
