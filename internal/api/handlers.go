package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Xassemblianist/ATALWF/internal/era5"
)

var validate = validator.New()

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type weatherResponse struct {
	Status string `json:"status"`
	era5.WeatherRecord
}

type refreshResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Snapshot  string    `json:"snapshot"`
	Completed time.Time `json:"completed"`
}

type historyResponse struct {
	Status   string         `json:"status"`
	Location string         `json:"location"`
	Readings []era5.Reading `json:"readings"`
}

type healthResponse struct {
	Status          string     `json:"status"`
	HasData         bool       `json:"has_data"`
	Readings        int        `json:"readings"`
	LatestValidTime *time.Time `json:"latest_valid_time,omitempty"`
}

func (s *Server) getWeather(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.Current()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, weatherResponse{Status: "ok", WeatherRecord: rec})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	// A client hanging up must not abort a download half way.
	ctx := context.WithoutCancel(r.Context())
	if s.refreshTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.refreshTimeout)
		defer cancel()
	}

	snap, err := s.service.Refresh(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, refreshResponse{
		Status:    "ok",
		Message:   "data downloaded successfully",
		Snapshot:  snap.ID,
		Completed: snap.Completed,
	})
}

// historyQuery holds the optional bounds of /api/history.
type historyQuery struct {
	From time.Time
	To   time.Time `validate:"omitempty,gtefield=From"`
}

func (h *historyQuery) bind(r *http.Request) error {
	var err error
	if h.From, err = parseTime(r.URL.Query().Get("from")); err != nil {
		return err
	}
	if h.To, err = parseTime(r.URL.Query().Get("to")); err != nil {
		return err
	}
	return validate.Struct(h)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	var q historyQuery
	if err := q.bind(r); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Message: err.Error()})
		return
	}
	readings, err := s.service.History(q.From, q.To)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, historyResponse{
		Status:   "ok",
		Location: s.service.Location().Name,
		Readings: readings,
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		HasData:  s.service.HasData(),
		Readings: s.service.HistoryLen(),
	}
	if latest, err := s.service.Latest(); err == nil {
		resp.LatestValidTime = &latest.ValidTime
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// parseTime accepts RFC3339 or unix seconds. An empty string is the zero
// time, which leaves that end of the range open.
func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339, v); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	if code >= http.StatusInternalServerError {
		s.logger.Errorw("Request failed", "path", r.URL.Path, "status", code, "err", err)
	} else {
		s.logger.Debugw("Request failed", "path", r.URL.Path, "status", code, "err", err)
	}
	s.writeJSON(w, code, errorResponse{Status: "error", Message: messageOf(err)})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Errorw("Could not encode response", "err", err)
	}
}
