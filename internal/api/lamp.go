package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/lampnode/internal/api/models"
	"github.com/smazurov/lampnode/internal/version"
)

func (s *Server) registerLampRoutes() {
	if s.options.State == nil {
		s.logger.Debug("State reader not set, skipping lamp routes")
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Lamp Status",
		Description: "Current lamp state, indicator level, resolved backend identity and push connectivity",
		Tags:        []string{"lamp"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.StatusResponse, error) {
		return &models.StatusResponse{Body: s.status()}, nil
	})

	if s.options.Press == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID:   "press-button",
		Method:        http.MethodPost,
		Path:          "/api/button",
		Summary:       "Press Button",
		Description:   "Queue a button press, exactly as the hardware button does",
		Tags:          []string{"lamp"},
		Security:      withAuth(),
		Errors:        []int{401},
		DefaultStatus: http.StatusAccepted,
	}, func(_ context.Context, _ *struct{}) (*models.PressResponse, error) {
		s.options.Press()
		return &models.PressResponse{Body: models.PressData{Queued: true}}, nil
	})
}

func (s *Server) status() models.StatusData {
	data := models.StatusData{
		State:   s.options.State.State().String(),
		Version: version.String(),
	}
	if ind := s.options.Indicator; ind != nil {
		data.Indicator = models.IndicatorStatus{Name: ind.Name(), Level: ind.Level()}
	}
	if s.options.Cache != nil {
		data.Identity = s.options.Cache.Snapshot()
	}
	if s.options.Push != nil {
		data.PushConnected = s.options.Push.IsConnected()
	}
	return data
}
