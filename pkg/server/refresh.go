package server

import (
	"log/slog"
	"net/http"

	"github.com/solarfleet/solarfleet/pkg/log"
)

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := s.refresher.Run(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "fleet refresh failed", slog.Any("error", err))
		writeJSONError(w, "fleet refresh failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, res)
}
