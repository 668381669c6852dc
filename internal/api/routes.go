package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/applications", h.CreateApplication)
		r.Get("/queue", h.Queue)
		r.Post("/nic/decode", h.DecodeNIC)
		r.Get("/workflows", h.ListWorkflows)
		r.Get("/workflows/{kind}", func(w http.ResponseWriter, r *http.Request) {
			h.GetWorkflow(w, r, chi.URLParam(r, "kind"))
		})
		r.Route("/applications/{applicationId}", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				h.GetApplication(w, r, chi.URLParam(r, "applicationId"))
			})
			r.Get("/transitions", func(w http.ResponseWriter, r *http.Request) {
				h.GetTransitions(w, r, chi.URLParam(r, "applicationId"))
			})
			r.Post("/status", func(w http.ResponseWriter, r *http.Request) {
				h.ChangeStatus(w, r, chi.URLParam(r, "applicationId"))
			})
			r.Get("/history", func(w http.ResponseWriter, r *http.Request) {
				h.GetHistory(w, r, chi.URLParam(r, "applicationId"))
			})
			r.Post("/documents", func(w http.ResponseWriter, r *http.Request) {
				h.UploadDocument(w, r, chi.URLParam(r, "applicationId"))
			})
			r.Get("/documents/{filename}", func(w http.ResponseWriter, r *http.Request) {
				h.DownloadDocument(w, r, chi.URLParam(r, "applicationId"), chi.URLParam(r, "filename"))
			})
		})
	})

	return r
}
