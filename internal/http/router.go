package httpapi

import (
	"net/http"
	"time"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/directory"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（Go 1.22 方法 + 路径参数模式）
// 每个请求先经 Directory 解析调用者身份，再分发到 handler
type Router struct {
	mux    *http.ServeMux
	dir    directory.Directory
	logger *zap.Logger
}

func NewRouter(dir directory.Directory, logger *zap.Logger) *Router {
	if dir == nil {
		dir = directory.HeaderDirectory{}
	}
	return &Router{
		mux:    http.NewServeMux(),
		dir:    dir,
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口（用于 /metrics 等）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	id, err := r.dir.Resolve(req.Context(), req)
	if err != nil {
		writeError(w, r.logger, req, err)
		return
	}
	req = req.WithContext(directory.WithIdentity(req.Context(), id))
	r.mux.ServeHTTP(w, req)
	r.logger.Debug("HTTP request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.String("email", id.Email),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// RegisterHealthRoutes 健康检查
func (r *Router) RegisterHealthRoutes() {
	r.Handle("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Ok("ok"))
	})
}

func (r *Router) RegisterCampRoutes(h *CampHandler) {
	r.Handle("GET /api/camps", h.ListCamps)
	r.Handle("POST /api/camps", h.CreateCamp)
	r.Handle("POST /api/camps/join", h.JoinCamp)
	r.Handle("GET /api/camps/{id}", h.GetCamp)
	r.Handle("PUT /api/camps/{id}", h.UpdateCamp)
	r.Handle("DELETE /api/camps/{id}", h.DeleteCamp)
	r.Handle("POST /api/camps/{id}/share", h.ShareCamp)
	r.Handle("DELETE /api/camps/{id}/share", h.UnshareCamp)
	r.Handle("POST /api/camps/{id}/codes", h.RegenerateCodes)
}

func (r *Router) RegisterOccupancyRoutes(h *OccupancyHandler) {
	r.Handle("GET /api/rooms", h.ListRooms)
	r.Handle("POST /api/rooms", h.CreateRoom)
	r.Handle("GET /api/rooms/{id}", h.GetRoom)
	r.Handle("PUT /api/rooms/{id}", h.UpdateRoom)
	r.Handle("DELETE /api/rooms/{id}", h.DeleteRoom)

	r.Handle("GET /api/workers", h.ListWorkers)
	r.Handle("POST /api/workers", h.CreateWorker)
	r.Handle("GET /api/workers/{id}", h.GetWorker)
	r.Handle("PUT /api/workers/{id}", h.UpdateWorker)
	r.Handle("DELETE /api/workers/{id}", h.DeleteWorker)

	r.Handle("GET /api/camps/{id}/consistency", h.CheckConsistency)
	r.Handle("POST /api/camps/{id}/consistency", h.Reconcile)
}

func (r *Router) RegisterImportRoutes(h *ImportHandler) {
	r.Handle("POST /api/rooms/import", h.ImportRooms)
	r.Handle("POST /api/workers/import", h.ImportWorkers)
	r.Handle("GET /api/import/template", h.Template)
	r.Handle("GET /api/camps/{id}/export", h.Export)
}

func (r *Router) RegisterReportRoutes(h *ReportHandler) {
	r.Handle("GET /api/reports/stats", h.Stats)
}

func (r *Router) RegisterPersonnelRoutes(h *PersonnelHandler) {
	r.Handle("GET /api/personnel", h.ListPersonnel)
	r.Handle("POST /api/personnel", h.CreatePersonnel)
	r.Handle("GET /api/personnel/{id}", h.GetPersonnel)
	r.Handle("PUT /api/personnel/{id}", h.UpdatePersonnel)
	r.Handle("DELETE /api/personnel/{id}", h.DeletePersonnel)

	r.Handle("GET /api/attendance", h.ListAttendance)
	r.Handle("POST /api/attendance", h.RecordAttendance)
	r.Handle("GET /api/attendance/summary", h.DailySummary)
}
