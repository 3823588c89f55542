package httpapi

import (
	"net/http"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/directory"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/service"

	"go.uber.org/zap"
)

// OccupancyHandler 房间 / 工人 Handler
type OccupancyHandler struct {
	occupancy service.OccupancyService
	logger    *zap.Logger
}

func NewOccupancyHandler(occupancy service.OccupancyService, logger *zap.Logger) *OccupancyHandler {
	return &OccupancyHandler{occupancy: occupancy, logger: logger}
}

// ============================================
// Rooms
// ============================================

// roomBody 不含 availableBeds：该值由服务端按 capacity - 入住人数推导，请求里带了也会被忽略
type roomBody struct {
	CampID   string  `json:"campId"`
	Number   *string `json:"number"`
	Capacity *int    `json:"capacity"`
	Company  *string `json:"company"`
	Project  *string `json:"project"`
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func (h *OccupancyHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.occupancy.ListRooms(r.Context(), service.ListRoomsRequest{
		Actor:   directory.FromContext(r.Context()),
		CampID:  q.Get("campId"),
		Project: q.Get("project"),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *OccupancyHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	resp, err := h.occupancy.GetRoom(r.Context(), service.GetRoomRequest{
		Actor:  directory.FromContext(r.Context()),
		RoomID: r.PathValue("id"),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *OccupancyHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var body roomBody
	if err := readBodyJSON(r, maxJSONBody, &body); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	resp, err := h.occupancy.CreateRoom(r.Context(), service.CreateRoomRequest{
		Actor:    directory.FromContext(r.Context()),
		CampID:   body.CampID,
		Number:   deref(body.Number),
		Capacity: deref(body.Capacity),
		Company:  deref(body.Company),
		Project:  deref(body.Project),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(resp))
}

func (h *OccupancyHandler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	var body roomBody
	if err := readBodyJSON(r, maxJSONBody, &body); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	resp, err := h.occupancy.UpdateRoom(r.Context(), service.UpdateRoomRequest{
		Actor:    directory.FromContext(r.Context()),
		RoomID:   r.PathValue("id"),
		Number:   body.Number,
		Capacity: body.Capacity,
		Company:  body.Company,
		Project:  body.Project,
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *OccupancyHandler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	resp, err := h.occupancy.DeleteRoom(r.Context(), service.DeleteRoomRequest{
		Actor:  directory.FromContext(r.Context()),
		RoomID: r.PathValue("id"),
		CampID: r.URL.Query().Get("campId"),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// ============================================
// Workers
// ============================================

type workerBody struct {
	CampID             string  `json:"campId"`
	RoomID             *string `json:"roomId"`
	Name               *string `json:"name"`
	Surname            *string `json:"surname"`
	RegistrationNumber *string `json:"registrationNumber"`
	Project            *string `json:"project"`
	Company            *string `json:"company"`
	EntryDate          *string `json:"entryDate"`
}

func (h *OccupancyHandler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.occupancy.ListWorkers(r.Context(), service.ListWorkersRequest{
		Actor:   directory.FromContext(r.Context()),
		CampID:  q.Get("campId"),
		RoomID:  q.Get("roomId"),
		Project: q.Get("project"),
		Search:  q.Get("search"),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *OccupancyHandler) GetWorker(w http.ResponseWriter, r *http.Request) {
	resp, err := h.occupancy.GetWorker(r.Context(), service.GetWorkerRequest{
		Actor:    directory.FromContext(r.Context()),
		WorkerID: r.PathValue("id"),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *OccupancyHandler) CreateWorker(w http.ResponseWriter, r *http.Request) {
	var body workerBody
	if err := readBodyJSON(r, maxJSONBody, &body); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	entry, err := parseDate(deref(body.EntryDate))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	resp, err := h.occupancy.CreateWorker(r.Context(), service.CreateWorkerRequest{
		Actor:              directory.FromContext(r.Context()),
		CampID:             body.CampID,
		RoomID:             deref(body.RoomID),
		Name:               deref(body.Name),
		Surname:            deref(body.Surname),
		RegistrationNumber: deref(body.RegistrationNumber),
		Project:            deref(body.Project),
		Company:            deref(body.Company),
		EntryDate:          entry,
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(resp))
}

// UpdateWorker 字段更新；带 roomId 时按换房处理（"" 表示退房）
// campId 可选，给出时两条路径都校验工人归属
func (h *OccupancyHandler) UpdateWorker(w http.ResponseWriter, r *http.Request) {
	var body workerBody
	if err := readBodyJSON(r, maxJSONBody, &body); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	entry, err := parseDatePtr(body.EntryDate)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	actor := directory.FromContext(r.Context())
	id := r.PathValue("id")

	// 只换房（带 campId 校验归属）走 MoveWorker
	if body.RoomID != nil && body.Name == nil && body.Surname == nil && body.RegistrationNumber == nil &&
		body.Project == nil && body.Company == nil && body.EntryDate == nil {
		resp, err := h.occupancy.MoveWorker(r.Context(), service.MoveWorkerRequest{
			Actor:    actor,
			WorkerID: id,
			CampID:   body.CampID,
			RoomID:   *body.RoomID,
		})
		if err != nil {
			writeError(w, h.logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(resp))
		return
	}

	resp, err := h.occupancy.UpdateWorker(r.Context(), service.UpdateWorkerRequest{
		Actor:              actor,
		WorkerID:           id,
		CampID:             body.CampID,
		Name:               body.Name,
		Surname:            body.Surname,
		RegistrationNumber: body.RegistrationNumber,
		Project:            body.Project,
		Company:            body.Company,
		RoomID:             body.RoomID,
		EntryDate:          entry,
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *OccupancyHandler) DeleteWorker(w http.ResponseWriter, r *http.Request) {
	err := h.occupancy.DeleteWorker(r.Context(), service.GetWorkerRequest{
		Actor:    directory.FromContext(r.Context()),
		WorkerID: r.PathValue("id"),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": true}))
}

// ============================================
// Consistency
// ============================================

func (h *OccupancyHandler) CheckConsistency(w http.ResponseWriter, r *http.Request) {
	resp, err := h.occupancy.CheckConsistency(r.Context(), service.CampRequest{
		Actor:  directory.FromContext(r.Context()),
		CampID: r.PathValue("id"),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *OccupancyHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	resp, err := h.occupancy.Reconcile(r.Context(), service.CampRequest{
		Actor:  directory.FromContext(r.Context()),
		CampID: r.PathValue("id"),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}
