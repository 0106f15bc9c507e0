// Package api serves the weather page and its JSON endpoints.
package api

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Xassemblianist/ATALWF/internal/acquire"
	"github.com/Xassemblianist/ATALWF/internal/era5"
	"github.com/Xassemblianist/ATALWF/internal/store"
)

//go:embed all:assets
var content embed.FS

// Service is what the handlers need from weather.Service.
type Service interface {
	HasData() bool
	Location() era5.Location
	Current() (era5.WeatherRecord, error)
	Refresh(ctx context.Context) (acquire.Snapshot, error)
	History(from, to time.Time) ([]era5.Reading, error)
	Latest() (era5.Reading, error)
	HistoryLen() int
}

// Server routes HTTP requests to a Service.
type Server struct {
	logger         *zap.SugaredLogger
	service        Service
	refreshTimeout time.Duration
	assets         fs.FS
	index          *template.Template
	router         *mux.Router
}

// NewServer builds the router. refreshTimeout bounds a refresh triggered
// over HTTP; zero leaves it to the acquirer.
func NewServer(logger *zap.SugaredLogger, service Service, refreshTimeout time.Duration) (*Server, error) {
	assets, err := fs.Sub(content, "assets")
	if err != nil {
		return nil, err
	}
	index, err := template.ParseFS(assets, "index.html.tmpl")
	if err != nil {
		return nil, err
	}

	s := &Server{
		logger:         logger,
		service:        service,
		refreshTimeout: refreshTimeout,
		assets:         assets,
		index:          index,
	}

	router := mux.NewRouter()
	router.Use(s.logRequests)
	router.HandleFunc("/", s.serveIndex).Methods(http.MethodGet)
	router.HandleFunc("/api/weather", s.getWeather).Methods(http.MethodGet)
	router.HandleFunc("/api/refresh", s.refresh).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/api/history", s.getHistory).Methods(http.MethodGet)
	router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	router.PathPrefix("/static/").Handler(http.FileServer(http.FS(assets)))
	s.router = router

	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.index.Execute(w, s.service.Location()); err != nil {
		s.logger.Errorw("Could not render index", "err", err)
	}
}

// statusOf maps domain errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, era5.ErrNoData), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, era5.ErrFieldUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, era5.ErrAcquisitionFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func messageOf(err error) string {
	switch {
	case errors.Is(err, era5.ErrNoData):
		return "no data, call /api/refresh first"
	case errors.Is(err, store.ErrNotFound):
		return "no readings in the requested range"
	default:
		return err.Error()
	}
}
