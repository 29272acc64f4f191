package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ewaste-backend/internal/export"
	"ewaste-backend/internal/middleware"
	"ewaste-backend/internal/models"
	"ewaste-backend/internal/services"
	"ewaste-backend/internal/workflow"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"validation", workflow.Validationf("wasteType is required"), http.StatusBadRequest, "wasteType is required"},
		{"not found", workflow.NotFoundf("request 4 not found"), http.StatusNotFound, "request 4 not found"},
		{"conflict", workflow.Conflictf("already assigned"), http.StatusConflict, "already assigned"},
		{"forbidden", workflow.Unauthorizedf("admin access required"), http.StatusForbidden, "admin access required"},
		{"store", workflow.KindError(workflow.ErrTransientStore, "list", errors.New("dial tcp: refused")), http.StatusServiceUnavailable, "Service temporarily unavailable, please retry"},
		{"credentials", services.ErrInvalidCredentials, http.StatusUnauthorized, services.ErrInvalidCredentials.Error()},
		{"disabled", services.ErrAccountDisabled, http.StatusForbidden, services.ErrAccountDisabled.Error()},
		{"untyped", fmt.Errorf("request 9 has no status history"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.code, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.msg, body["error"])
		})
	}
}

type stubExporter struct {
	res *export.Result
	err error
}

func (s stubExporter) Export(context.Context) (*export.Result, error) { return s.res, s.err }

func TestExportHistory(t *testing.T) {
	admin := workflow.Actor{ID: 1, Role: models.RoleAdmin}

	tests := []struct {
		name  string
		actor *workflow.Actor
		exp   stubExporter
		code  int
	}{
		{"no identity", nil, stubExporter{}, http.StatusForbidden},
		{"donor", &workflow.Actor{ID: 2, Role: models.RoleDonor}, stubExporter{}, http.StatusForbidden},
		{"not configured", &admin, stubExporter{err: export.ErrNotConfigured}, http.StatusServiceUnavailable},
		{"upload failed", &admin, stubExporter{err: errors.New("access denied")}, http.StatusServiceUnavailable},
		{"ok", &admin, stubExporter{res: &export.Result{Bucket: "b", Key: "k"}}, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/admin/exports/history", nil)
			if tt.actor != nil {
				req = req.WithContext(middleware.WithActor(req.Context(), *tt.actor))
			}
			rec := httptest.NewRecorder()
			NewExportHandler(tt.exp).ExportHistory(rec, req)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}
