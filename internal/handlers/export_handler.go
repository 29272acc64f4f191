package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ewaste-backend/internal/export"
	"ewaste-backend/internal/models"
	"ewaste-backend/internal/workflow"
	"ewaste-backend/pkg/utils"
)

// Exporter uploads a history snapshot.
type Exporter interface {
	Export(ctx context.Context) (*export.Result, error)
}

type ExportHandler struct {
	Exporter Exporter
}

func NewExportHandler(e Exporter) *ExportHandler {
	return &ExportHandler{Exporter: e}
}

// ExportHistory handles POST /api/admin/exports/history
func (h *ExportHandler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !a.Is(models.RoleAdmin) {
		writeError(w, r, workflow.Unauthorizedf("admin access required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 120*time.Second)
	defer cancel()

	res, err := h.Exporter.Export(ctx)
	if errors.Is(err, export.ErrNotConfigured) {
		utils.Error(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		writeError(w, r, workflow.KindError(workflow.ErrTransientStore, "history export", err))
		return
	}
	utils.JSON(w, http.StatusCreated, res)
}
