package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/lampnode/internal/api/models"
	"github.com/smazurov/lampnode/internal/updater"
)

func (s *Server) registerUpdateRoutes() {
	svc := s.options.Updater
	if svc == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-update-status",
		Method:      http.MethodGet,
		Path:        "/api/update/status",
		Summary:     "Update Status",
		Description: "Get the self-update state and backup availability",
		Tags:        []string{"update"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.UpdateStatusResponse, error) {
		st := svc.GetStatus()
		return &models.UpdateStatusResponse{
			Body: models.UpdateStatusData{
				Enabled:         svc.IsEnabled(),
				DisabledReason:  svc.DisabledReason(),
				State:           string(st.State),
				CurrentVersion:  st.CurrentVersion,
				TargetVersion:   st.TargetVersion,
				Error:           st.Error,
				LastChecked:     st.LastChecked,
				BackupAvailable: st.BackupAvailable,
				BackupVersion:   st.BackupVersion,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "check-update",
		Method:      http.MethodGet,
		Path:        "/api/update/check",
		Summary:     "Check for Update",
		Description: "Compare the running version with the newest release without downloading it",
		Tags:        []string{"update"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 500, 503},
	}, func(ctx context.Context, _ *struct{}) (*models.UpdateCheckResponse, error) {
		info, err := svc.CheckForUpdate(ctx)
		if err != nil {
			return nil, updateError(err)
		}
		return &models.UpdateCheckResponse{
			Body: models.UpdateCheckData{
				CurrentVersion:  info.CurrentVersion,
				LatestVersion:   info.LatestVersion,
				ReleaseNotes:    info.ReleaseNotes,
				ReleaseURL:      info.ReleaseURL,
				PublishedAt:     info.PublishedAt,
				AssetSize:       info.AssetSize,
				UpdateAvailable: info.UpdateAvailable,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "apply-update",
		Method:      http.MethodPost,
		Path:        "/api/update/apply",
		Summary:     "Apply Update",
		Description: "Install the newest release and restart. The current binary is backed up first.",
		Tags:        []string{"update"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 500, 503},
	}, func(ctx context.Context, _ *struct{}) (*models.UpdateActionResponse, error) {
		if err := svc.ApplyUpdate(ctx); err != nil {
			return nil, updateError(err)
		}
		resp := &models.UpdateActionResponse{}
		resp.Body.Message = "Update applied, restarting"
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "rollback-update",
		Method:      http.MethodPost,
		Path:        "/api/update/rollback",
		Summary:     "Rollback Update",
		Description: "Restore the backed up binary and restart",
		Tags:        []string{"update"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 500, 503},
	}, func(ctx context.Context, _ *struct{}) (*models.UpdateActionResponse, error) {
		if err := svc.Rollback(ctx); err != nil {
			return nil, updateError(err)
		}
		resp := &models.UpdateActionResponse{}
		resp.Body.Message = "Rollback complete, restarting"
		return resp, nil
	})
}

func updateError(err error) error {
	switch updater.CodeOf(err) {
	case updater.CodeDisabled:
		return huma.Error503ServiceUnavailable("Self-update is disabled", err)
	case updater.CodeNotFound, updater.CodeNoBackup:
		return huma.Error404NotFound(err.Error())
	case updater.CodeInvalidState, updater.CodeNoUpdate:
		return huma.Error409Conflict(err.Error())
	default:
		return huma.Error500InternalServerError("Update failed", err)
	}
}
