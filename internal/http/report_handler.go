package httpapi

import (
	"net/http"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/directory"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/service"

	"go.uber.org/zap"
)

type ReportHandler struct {
	reports service.ReportService
	logger  *zap.Logger
}

func NewReportHandler(reports service.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

// Stats GET /api/reports/stats?campId=&site=
func (h *ReportHandler) Stats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rep, err := h.reports.Stats(r.Context(), service.StatsRequest{
		Actor:  directory.FromContext(r.Context()),
		CampID: q.Get("campId"),
		Site:   q.Get("site"),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rep))
}
