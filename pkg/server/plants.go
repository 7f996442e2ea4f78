package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/solarfleet/solarfleet/pkg/log"
	"github.com/solarfleet/solarfleet/pkg/storage"
	"github.com/solarfleet/solarfleet/pkg/types"
	"github.com/solarfleet/solarfleet/pkg/vendor"
)

// errorStatus picks the HTTP status for an error coming out of a plant call.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrPlantNotFound), errors.Is(err, storage.ErrNotificationNotFound):
		return http.StatusNotFound
	case errors.Is(err, vendor.ErrUnsupportedVendor):
		return http.StatusUnprocessableEntity
	case errors.Is(err, vendor.ErrAuth), errors.Is(err, vendor.ErrUpstream), errors.Is(err, vendor.ErrDataFormat):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// withPlantSession loads the plant named in the path, logs in to its vendor
// and runs fn. Any failure is written to w wrapped with what.
func (s *Server) withPlantSession(w http.ResponseWriter, r *http.Request, what string, fn func(ctx context.Context, a vendor.Adapter, sess *vendor.Session) error) bool {
	ctx := r.Context()
	err := func() error {
		plant, err := s.storage.GetPlant(ctx, r.PathValue("id"))
		if err != nil {
			return err
		}
		ctx = log.WithPlant(ctx, plant.ID, plant.Vendor)
		a, err := s.adapters.Adapter(plant.Vendor)
		if err != nil {
			return err
		}
		return vendor.WithSession(ctx, a, plant.Credentials, func(ctx context.Context, sess *vendor.Session) error {
			return fn(ctx, a, sess)
		})
	}()
	if err != nil {
		err = fmt.Errorf("failed to %s: %w", what, err)
		log.Ctx(ctx).ErrorContext(ctx, "plant request failed", slog.Any("error", err))
		writeJSONError(w, err.Error(), errorStatus(err))
		return false
	}
	return true
}

type parametersResponse struct {
	PlantID  string              `json:"plantID"`
	Snapshot types.PlantSnapshot `json:"snapshot"`
}

func (s *Server) handlePlantParameters(w http.ResponseWriter, r *http.Request) {
	var snap types.PlantSnapshot
	ok := s.withPlantSession(w, r, "fetch current parameters", func(ctx context.Context, a vendor.Adapter, sess *vendor.Session) error {
		var err error
		snap, err = a.FetchSnapshot(ctx, sess)
		return err
	})
	if !ok {
		return
	}
	writeJSON(w, parametersResponse{PlantID: r.PathValue("id"), Snapshot: snap})
}

type errorLogResponse struct {
	PlantID string                `json:"plantID"`
	Year    int                   `json:"year"`
	Entries []types.ErrorLogEntry `json:"entries"`
}

func (s *Server) handlePlantErrors(w http.ResponseWriter, r *http.Request) {
	year := time.Now().In(s.location).Year()
	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 2000 || y > 9999 {
			writeJSONError(w, "invalid year", http.StatusBadRequest)
			return
		}
		year = y
	}

	var entries []types.ErrorLogEntry
	ok := s.withPlantSession(w, r, "fetch error log", func(ctx context.Context, a vendor.Adapter, sess *vendor.Session) error {
		var err error
		entries, err = a.FetchErrorLog(ctx, sess, year)
		return err
	})
	if !ok {
		return
	}
	if entries == nil {
		entries = []types.ErrorLogEntry{}
	}
	writeJSON(w, errorLogResponse{PlantID: r.PathValue("id"), Year: year, Entries: entries})
}

type chartResponse struct {
	PlantID string            `json:"plantID"`
	Date    string            `json:"date"`
	Device  string            `json:"device,omitempty"`
	Series  types.ChartSeries `json:"series"`
}

func (s *Server) handlePlantChart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	g, valid := types.ParseGranularity(q.Get("granularity"))
	if !valid {
		writeJSONError(w, "invalid granularity", http.StatusBadRequest)
		return
	}
	ref := time.Now().In(s.location)
	if v := q.Get("date"); v != "" {
		d, err := time.ParseInLocation(time.DateOnly, v, s.location)
		if err != nil {
			writeJSONError(w, "invalid date", http.StatusBadRequest)
			return
		}
		ref = d
	}
	device := q.Get("device")

	var series types.ChartSeries
	ok := s.withPlantSession(w, r, "fetch chart series", func(ctx context.Context, a vendor.Adapter, sess *vendor.Session) error {
		var err error
		series, err = a.FetchChartSeries(ctx, sess, g, ref, device)
		return err
	})
	if !ok {
		return
	}
	writeJSON(w, chartResponse{
		PlantID: r.PathValue("id"),
		Date:    ref.Format(time.DateOnly),
		Device:  device,
		Series:  series,
	})
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.storage.MarkNotificationRead(ctx, r.PathValue("id")); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to mark notification read", slog.Any("error", err))
		writeJSONError(w, fmt.Errorf("failed to mark notification read: %w", err).Error(), errorStatus(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
