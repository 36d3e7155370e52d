package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/lampnode/internal/api/models"
)

func (s *Server) registerSystemdRoutes() {
	if s.options.SystemdManager == nil || s.options.ServiceName == "" {
		return
	}

	serviceName := s.options.ServiceName

	huma.Register(s.api, huma.Operation{
		OperationID: "get-service-status",
		Method:      http.MethodGet,
		Path:        "/api/service/status",
		Summary:     "Service Status",
		Description: "Get the lampnode systemd unit state",
		Tags:        []string{"systemd"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, _ *struct{}) (*models.ServiceStatusResponse, error) {
		status, err := s.options.SystemdManager.GetServiceStatus(ctx, serviceName)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to get service status", err)
		}
		return &models.ServiceStatusResponse{
			Body: models.ServiceStatus{Service: serviceName, Status: status},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "restart-service",
		Method:      http.MethodPost,
		Path:        "/api/service/restart",
		Summary:     "Restart Service",
		Description: "Ask systemd to restart the lampnode unit. The response is sent before the restart takes effect.",
		Tags:        []string{"systemd"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, _ *struct{}) (*models.ServiceActionResponse, error) {
		if err := s.options.SystemdManager.RestartService(ctx, serviceName); err != nil {
			return nil, huma.Error500InternalServerError("Failed to restart service", err)
		}
		return &models.ServiceActionResponse{
			Body: models.ServiceAction{Service: serviceName, Action: "restart", Success: true},
		}, nil
	})
}
