package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/lampnode/internal/api/models"
	"github.com/smazurov/lampnode/internal/logging"
)

func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent Logs",
		Description: "Most recent log records kept in memory",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401, 422},
	}, func(_ context.Context, input *models.LogsInput) (*models.LogsResponse, error) {
		recent := logging.Recent(input.Limit)

		entries := make([]models.LogEntry, len(recent))
		for i, e := range recent {
			entries[i] = models.LogEntry{
				Time:    e.Time.Format(time.RFC3339Nano),
				Level:   e.Level,
				Module:  e.Module,
				Message: e.Message,
				Attrs:   e.Attrs,
			}
		}
		return &models.LogsResponse{
			Body: models.LogsData{Entries: entries, Count: len(entries)},
		}, nil
	})
}
