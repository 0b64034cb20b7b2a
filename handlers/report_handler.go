package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/playnow/reservas-api/services"
)

type ReportHandler struct {
	reportService services.ReportService
}

func NewReportHandler(reportService services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// ExportCSV streams the reservation report as a CSV download.
func (h *ReportHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	filename, data, err := h.reportService.BuildCSV(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		// Заголовки уже отправлены, остаётся только залогировать.
		slog.Error("failed to stream report", slog.Any("error", err))
	}
}

// ArchiveCSV builds the report and stores it in the archive bucket,
// returning the public location of the stored file.
func (h *ReportHandler) ArchiveCSV(w http.ResponseWriter, r *http.Request) {
	result, err := h.reportService.ArchiveCSV(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	payload := jsonResponse{
		"key":      result.Key,
		"location": result.Location,
	}
	if err := writeJSON(w, http.StatusCreated, payload, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
