package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/domain"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/events"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OccupancyService 房间/工人占用协调
// 每个变更在一个事务内同时更新 rooms.workers、rooms.available_beds 与 workers.room_id
type OccupancyService interface {
	// Room 管理
	ListRooms(ctx context.Context, req ListRoomsRequest) (*ListRoomsResponse, error)
	GetRoom(ctx context.Context, req GetRoomRequest) (*RoomResponse, error)
	CreateRoom(ctx context.Context, req CreateRoomRequest) (*RoomResponse, error)
	UpdateRoom(ctx context.Context, req UpdateRoomRequest) (*RoomResponse, error)
	DeleteRoom(ctx context.Context, req DeleteRoomRequest) (*DeleteRoomResponse, error)

	// Worker 管理
	ListWorkers(ctx context.Context, req ListWorkersRequest) (*ListWorkersResponse, error)
	GetWorker(ctx context.Context, req GetWorkerRequest) (*WorkerResponse, error)
	CreateWorker(ctx context.Context, req CreateWorkerRequest) (*WorkerResponse, error)
	UpdateWorker(ctx context.Context, req UpdateWorkerRequest) (*WorkerResponse, error)
	MoveWorker(ctx context.Context, req MoveWorkerRequest) (*WorkerResponse, error)
	DeleteWorker(ctx context.Context, req GetWorkerRequest) error

	// 一致性
	CheckConsistency(ctx context.Context, req CampRequest) (*domain.ConsistencyReport, error)
	Reconcile(ctx context.Context, req CampRequest) (*ReconcileResponse, error)
}

type occupancyService struct {
	store  repository.Store
	hooks  *Hooks
	logger *zap.Logger
}

func NewOccupancyService(st repository.Store, hooks *Hooks, logger *zap.Logger) OccupancyService {
	return &occupancyService{store: st, hooks: hooks, logger: logger}
}

// ============================================
// 请求/响应结构
// ============================================

type CampRequest struct {
	Actor  domain.Identity
	CampID string
}

type ListRoomsRequest struct {
	Actor   domain.Identity
	CampID  string // 必填
	Project string // 可选
}

type ListRoomsResponse struct {
	Items []*domain.Room `json:"items"`
	Total int            `json:"total"`
}

type GetRoomRequest struct {
	Actor  domain.Identity
	RoomID string
}

type RoomResponse struct {
	Room *domain.Room `json:"room"`
}

type CreateRoomRequest struct {
	Actor    domain.Identity
	CampID   string // 必填
	Number   string // 必填，营地内唯一
	Capacity int    // 必填，>= 1
	Company  string
	Project  string // 必填（工地）
}

// UpdateRoomRequest: nil 表示不修改。AvailableBeds 总是由 Capacity 与成员数推导，
// 客户端传入的值被忽略。
type UpdateRoomRequest struct {
	Actor    domain.Identity
	RoomID   string
	Number   *string
	Capacity *int
	Company  *string
	Project  *string
}

type DeleteRoomRequest struct {
	Actor  domain.Identity
	RoomID string
	CampID string // 可选；给出时必须与房间所属营地一致
}

type DeleteRoomResponse struct {
	DeletedWorkers int `json:"deletedWorkers"`
}

type ListWorkersRequest struct {
	Actor   domain.Identity
	CampID  string // 必填
	RoomID  string
	Project string
	Search  string
}

type ListWorkersResponse struct {
	Items []*domain.Worker `json:"items"`
	Total int              `json:"total"`
}

type GetWorkerRequest struct {
	Actor    domain.Identity
	WorkerID string
}

type WorkerResponse struct {
	Worker *domain.Worker `json:"worker"`
}

type CreateWorkerRequest struct {
	Actor              domain.Identity
	CampID             string // 必填
	RoomID             string // 可选；为空表示未分配房间
	Name               string // 必填
	Surname            string // 必填
	RegistrationNumber string // 必填，营地内唯一
	Project            string // 必填
	Company            string
	EntryDate          time.Time // 零值时取当前时间
}

type UpdateWorkerRequest struct {
	Actor              domain.Identity
	WorkerID           string
	CampID             string // 可选；给出时必须与工人所属营地一致
	Name               *string
	Surname            *string
	RegistrationNumber *string
	Project            *string
	Company            *string
	RoomID             *string // 非 nil 时按换房处理；"" 表示退房
	EntryDate          *time.Time
}

type MoveWorkerRequest struct {
	Actor    domain.Identity
	WorkerID string
	CampID   string
	RoomID   string // "" 表示退房
}

type ReconcileResponse struct {
	RoomsUpdated      int                       `json:"roomsUpdated"`
	WorkersUnassigned int                       `json:"workersUnassigned"`
	Before            *domain.ConsistencyReport `json:"before"`
}

// ============================================
// Room
// ============================================

func (s *occupancyService) ListRooms(ctx context.Context, req ListRoomsRequest) (*ListRoomsResponse, error) {
	if _, _, err := authorizeCamp(ctx, s.store, req.Actor, req.CampID, domain.PermissionRead); err != nil {
		return nil, err
	}
	rooms, err := s.store.Rooms().ListRooms(ctx, repository.RoomFilter{
		CampID:  req.CampID,
		Project: strings.TrimSpace(req.Project),
	})
	if err != nil {
		s.logger.Error("ListRooms failed", zap.String("camp_id", req.CampID), zap.Error(err))
		return nil, err
	}
	return &ListRoomsResponse{Items: rooms, Total: len(rooms)}, nil
}

func (s *occupancyService) GetRoom(ctx context.Context, req GetRoomRequest) (*RoomResponse, error) {
	if err := requireActor(req.Actor, false); err != nil {
		return nil, err
	}
	room, err := s.store.Rooms().GetRoom(ctx, req.RoomID)
	if err != nil {
		return nil, translate(err, "room %s", req.RoomID)
	}
	if _, _, err := authorizeCamp(ctx, s.store, req.Actor, room.CampID, domain.PermissionRead); err != nil {
		return nil, err
	}
	return &RoomResponse{Room: room}, nil
}

// roomNumberTaken reports whether another room of the camp already uses number.
func roomNumberTaken(ctx context.Context, tx repository.Repos, campID, number, exceptID string) (bool, error) {
	rooms, err := tx.Rooms().ListRooms(ctx, repository.RoomFilter{CampID: campID, Number: number})
	if err != nil {
		return false, err
	}
	for _, r := range rooms {
		if r.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (s *occupancyService) CreateRoom(ctx context.Context, req CreateRoomRequest) (*RoomResponse, error) {
	number := strings.TrimSpace(req.Number)
	project := strings.TrimSpace(req.Project)
	if number == "" {
		return nil, domain.Validation("number is required")
	}
	if project == "" {
		return nil, domain.Validation("project is required")
	}
	if req.Capacity < 1 {
		return nil, domain.Validation("capacity must be at least 1")
	}

	var room *domain.Room
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Repos) error {
		camp, _, err := authorizeCamp(ctx, tx, req.Actor, req.CampID, domain.PermissionWrite)
		if err != nil {
			return err
		}
		taken, err := roomNumberTaken(ctx, tx, camp.ID, number, "")
		if err != nil {
			return err
		}
		if taken {
			return domain.DuplicateKey("room number %s already exists in this camp", number)
		}
		room, err = createRoom(ctx, tx, camp, number, project, strings.TrimSpace(req.Company), req.Capacity)
		return err
	})
	s.hooks.done(ctx, "room.create", err, roomEvent(events.RoomCreated, room))
	if err != nil {
		s.logger.Error("CreateRoom failed",
			zap.String("camp_id", req.CampID),
			zap.String("number", number),
			zap.Error(err),
		)
		return nil, err
	}
	s.logger.Info("Room created", zap.String("camp_id", room.CampID), zap.String("room_id", room.ID))
	return &RoomResponse{Room: room}, nil
}

// createRoom inserts an empty room and lists it on the camp.
func createRoom(ctx context.Context, tx repository.Repos, camp *domain.Camp, number, project, company string, capacity int) (*domain.Room, error) {
	now := time.Now().UTC()
	room := &domain.Room{
		ID:            uuid.NewString(),
		CampID:        camp.ID,
		Number:        number,
		Capacity:      capacity,
		AvailableBeds: capacity,
		Company:       company,
		Project:       project,
		Workers:       []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := tx.Rooms().CreateRoom(ctx, room); err != nil {
		return nil, translate(err, "room %s", number)
	}
	camp.AddRoom(room.ID)
	if err := tx.Camps().UpdateCamp(ctx, camp); err != nil {
		return nil, translate(err, "camp %s", camp.ID)
	}
	return room, nil
}

// Rooms and workers never change camp, so their camp is resolved before the
// transaction. Inside it the camp row is always locked first, then the room or
// worker rows, which keeps lock order identical across every mutation.

func (s *occupancyService) roomCamp(ctx context.Context, actor domain.Identity, roomID string) (string, error) {
	if err := requireActor(actor, true); err != nil {
		return "", err
	}
	room, err := s.store.Rooms().GetRoom(ctx, roomID)
	if err != nil {
		return "", translate(err, "room %s", roomID)
	}
	return room.CampID, nil
}

func (s *occupancyService) workerCamp(ctx context.Context, actor domain.Identity, workerID string) (string, error) {
	if err := requireActor(actor, true); err != nil {
		return "", err
	}
	w, err := s.store.Workers().GetWorker(ctx, workerID)
	if err != nil {
		return "", translate(err, "worker %s", workerID)
	}
	return w.CampID, nil
}

func (s *occupancyService) UpdateRoom(ctx context.Context, req UpdateRoomRequest) (*RoomResponse, error) {
	var room *domain.Room
	campID, err := s.roomCamp(ctx, req.Actor, req.RoomID)
	if err == nil {
		err = s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Repos) error {
			if _, _, err := authorizeCamp(ctx, tx, req.Actor, campID, domain.PermissionWrite); err != nil {
				return err
			}
			current, err := tx.Rooms().GetRoom(ctx, req.RoomID)
			if err != nil {
				return translate(err, "room %s", req.RoomID)
			}
			if err := applyRoomUpdate(ctx, tx, current, req); err != nil {
				return err
			}
			room = current
			return nil
		})
	}
	s.hooks.done(ctx, "room.update", err, roomEvent(events.RoomUpdated, room))
	if err != nil {
		s.logger.Error("UpdateRoom failed", zap.String("room_id", req.RoomID), zap.Error(err))
		return nil, err
	}
	return &RoomResponse{Room: room}, nil
}

// applyRoomUpdate edits room in place and saves it. AvailableBeds is always
// recomputed from capacity and the member list.
func applyRoomUpdate(ctx context.Context, tx repository.Repos, room *domain.Room, req UpdateRoomRequest) error {
	if number := trimPtr(req.Number); number != nil && *number != room.Number {
		if *number == "" {
			return domain.Validation("number cannot be empty")
		}
		taken, err := roomNumberTaken(ctx, tx, room.CampID, *number, room.ID)
		if err != nil {
			return err
		}
		if taken {
			return domain.DuplicateKey("room number %s already exists in this camp", *number)
		}
		room.Number = *number
	}
	if req.Capacity != nil {
		if *req.Capacity < 1 {
			return domain.Validation("capacity must be at least 1")
		}
		if *req.Capacity < room.Occupants() {
			return domain.Validation("capacity %d is below the %d workers in room %s",
				*req.Capacity, room.Occupants(), room.Number)
		}
		room.Capacity = *req.Capacity
	}
	if company := trimPtr(req.Company); company != nil {
		room.Company = *company
	}
	if project := trimPtr(req.Project); project != nil {
		if *project == "" {
			return domain.Validation("project cannot be empty")
		}
		room.Project = *project
	}
	room.Recount()
	if err := tx.Rooms().UpdateRoom(ctx, room); err != nil {
		return translate(err, "room %s", room.ID)
	}
	return nil
}

// DeleteRoom deletes the room, every worker assigned to it, and its entry on
// the parent camp.
func (s *occupancyService) DeleteRoom(ctx context.Context, req DeleteRoomRequest) (*DeleteRoomResponse, error) {
	var (
		room    *domain.Room
		deleted int
	)
	campID, err := s.roomCamp(ctx, req.Actor, req.RoomID)
	if err == nil && req.CampID != "" && campID != req.CampID {
		err = domain.ForeignCamp("room %s does not belong to camp %s", req.RoomID, req.CampID)
	}
	if err == nil {
		err = s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Repos) error {
			camp, _, err := authorizeCamp(ctx, tx, req.Actor, campID, domain.PermissionWrite)
			if err != nil {
				return err
			}
			r, err := tx.Rooms().GetRoom(ctx, req.RoomID)
			if err != nil {
				return translate(err, "room %s", req.RoomID)
			}
			if deleted, err = tx.Workers().DeleteWorkersByRoom(ctx, r.ID); err != nil {
				return err
			}
			if err := tx.Rooms().DeleteRoom(ctx, r.ID); err != nil {
				return translate(err, "room %s", r.ID)
			}
			camp.RemoveRoom(r.ID)
			if err := tx.Camps().UpdateCamp(ctx, camp); err != nil {
				return translate(err, "camp %s", camp.ID)
			}
			room = r
			return nil
		})
	}
	ev := roomEvent(events.RoomDeleted, room)
	ev.Count = deleted
	s.hooks.done(ctx, "room.delete", err, ev)
	if err != nil {
		s.logger.Error("DeleteRoom failed", zap.String("room_id", req.RoomID), zap.Error(err))
		return nil, err
	}
	s.logger.Info("Room deleted",
		zap.String("camp_id", room.CampID),
		zap.String("room_id", room.ID),
		zap.Int("deleted_workers", deleted),
	)
	return &DeleteRoomResponse{DeletedWorkers: deleted}, nil
}

// ============================================
// Worker
// ============================================

func (s *occupancyService) ListWorkers(ctx context.Context, req ListWorkersRequest) (*ListWorkersResponse, error) {
	if _, _, err := authorizeCamp(ctx, s.store, req.Actor, req.CampID, domain.PermissionRead); err != nil {
		return nil, err
	}
	workers, err := s.store.Workers().ListWorkers(ctx, repository.WorkerFilter{
		CampID:  req.CampID,
		RoomID:  req.RoomID,
		Project: strings.TrimSpace(req.Project),
		Search:  req.Search,
	})
	if err != nil {
		s.logger.Error("ListWorkers failed", zap.String("camp_id", req.CampID), zap.Error(err))
		return nil, err
	}
	return &ListWorkersResponse{Items: workers, Total: len(workers)}, nil
}

func (s *occupancyService) GetWorker(ctx context.Context, req GetWorkerRequest) (*WorkerResponse, error) {
	if err := requireActor(req.Actor, false); err != nil {
		return nil, err
	}
	w, err := s.store.Workers().GetWorker(ctx, req.WorkerID)
	if err != nil {
		return nil, translate(err, "worker %s", req.WorkerID)
	}
	if _, _, err := authorizeCamp(ctx, s.store, req.Actor, w.CampID, domain.PermissionRead); err != nil {
		return nil, err
	}
	return &WorkerResponse{Worker: w}, nil
}

// claimBed loads roomID and checks it can take one more worker of campID.
func claimBed(ctx context.Context, tx repository.Repos, campID, roomID string) (*domain.Room, error) {
	room, err := tx.Rooms().GetRoom(ctx, roomID)
	if err != nil {
		return nil, translate(err, "room %s", roomID)
	}
	if room.CampID != campID {
		return nil, domain.ForeignCamp("room %s belongs to another camp", room.Number)
	}
	if room.AvailableBeds <= 0 {
		return nil, domain.NoCapacity("room %s has no available beds", room.Number)
	}
	return room, nil
}

func registrationTaken(ctx context.Context, tx repository.Repos, campID, reg, exceptID string) (bool, error) {
	ws, err := tx.Workers().ListWorkers(ctx, repository.WorkerFilter{CampID: campID, RegistrationNumber: reg})
	if err != nil {
		return false, err
	}
	return slices.ContainsFunc(ws, func(w *domain.Worker) bool { return w.ID != exceptID }), nil
}

// insertWorker validates uniqueness, stores w and, when w.RoomID is set, takes
// a bed in that room.
func insertWorker(ctx context.Context, tx repository.Repos, w *domain.Worker) error {
	var room *domain.Room
	if w.RoomID != "" {
		r, err := claimBed(ctx, tx, w.CampID, w.RoomID)
		if err != nil {
			return err
		}
		room = r
	}
	taken, err := registrationTaken(ctx, tx, w.CampID, w.RegistrationNumber, "")
	if err != nil {
		return err
	}
	if taken {
		return domain.DuplicateKey("registration number %s already exists", w.RegistrationNumber)
	}
	if err := tx.Workers().CreateWorker(ctx, w); err != nil {
		return translate(err, "registration number %s", w.RegistrationNumber)
	}
	if room != nil {
		room.AddWorker(w.ID)
		if err := tx.Rooms().UpdateRoom(ctx, room); err != nil {
			return translate(err, "room %s", room.ID)
		}
	}
	return nil
}

func (s *occupancyService) CreateWorker(ctx context.Context, req CreateWorkerRequest) (*WorkerResponse, error) {
	now := time.Now().UTC()
	w := &domain.Worker{
		ID:                 uuid.NewString(),
		CampID:             req.CampID,
		Name:               strings.TrimSpace(req.Name),
		Surname:            strings.TrimSpace(req.Surname),
		RegistrationNumber: strings.TrimSpace(req.RegistrationNumber),
		Project:            strings.TrimSpace(req.Project),
		Company:            strings.TrimSpace(req.Company),
		RoomID:             strings.TrimSpace(req.RoomID),
		EntryDate:          req.EntryDate,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if w.EntryDate.IsZero() {
		w.EntryDate = now
	}
	switch {
	case w.Name == "":
		return nil, domain.Validation("name is required")
	case w.Surname == "":
		return nil, domain.Validation("surname is required")
	case w.RegistrationNumber == "":
		return nil, domain.Validation("registrationNumber is required")
	case w.Project == "":
		return nil, domain.Validation("project is required")
	}

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Repos) error {
		if _, _, err := authorizeCamp(ctx, tx, req.Actor, req.CampID, domain.PermissionWrite); err != nil {
			return err
		}
		return insertWorker(ctx, tx, w)
	})
	s.hooks.done(ctx, "worker.create", err, workerEvent(events.WorkerCreated, w, ""))
	if err != nil {
		s.logger.Error("CreateWorker failed",
			zap.String("camp_id", req.CampID),
			zap.String("room_id", req.RoomID),
			zap.String("registration_number", w.RegistrationNumber),
			zap.Error(err),
		)
		return nil, err
	}
	s.logger.Info("Worker created",
		zap.String("camp_id", w.CampID),
		zap.String("room_id", w.RoomID),
		zap.String("worker_id", w.ID),
	)
	return &WorkerResponse{Worker: w}, nil
}

// relocate moves w to target ("" = no room), updating both rooms. It does not
// save w. Reports whether anything changed.
func relocate(ctx context.Context, tx repository.Repos, w *domain.Worker, target string) (bool, error) {
	if target == w.RoomID {
		return false, nil
	}
	var next *domain.Room
	if target != "" {
		r, err := claimBed(ctx, tx, w.CampID, target)
		if err != nil {
			return false, err
		}
		next = r
	}
	if err := releaseBed(ctx, tx, w); err != nil {
		return false, err
	}
	if next != nil {
		next.AddWorker(w.ID)
		if err := tx.Rooms().UpdateRoom(ctx, next); err != nil {
			return false, translate(err, "room %s", next.ID)
		}
	}
	w.RoomID = target
	return true, nil
}

// releaseBed removes w from its current room's member list. A room that no
// longer exists is ignored.
func releaseBed(ctx context.Context, tx repository.Repos, w *domain.Worker) error {
	if w.RoomID == "" {
		return nil
	}
	room, err := tx.Rooms().GetRoom(ctx, w.RoomID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !room.RemoveWorker(w.ID) {
		return nil
	}
	return translate(tx.Rooms().UpdateRoom(ctx, room), "room %s", room.ID)
}

func (s *occupancyService) UpdateWorker(ctx context.Context, req UpdateWorkerRequest) (*WorkerResponse, error) {
	var (
		w     *domain.Worker
		from  string
		moved bool
	)
	campID, err := s.workerCamp(ctx, req.Actor, req.WorkerID)
	if err == nil && req.CampID != "" && campID != req.CampID {
		err = domain.ForeignCamp("worker %s does not belong to camp %s", req.WorkerID, req.CampID)
	}
	if err == nil {
		err = s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Repos) error {
			if _, _, err := authorizeCamp(ctx, tx, req.Actor, campID, domain.PermissionWrite); err != nil {
				return err
			}
			current, err := tx.Workers().GetWorker(ctx, req.WorkerID)
			if err != nil {
				return translate(err, "worker %s", req.WorkerID)
			}
			from = current.RoomID
			if err := applyWorkerFields(ctx, tx, current, req); err != nil {
				return err
			}
			if target := trimPtr(req.RoomID); target != nil {
				if moved, err = relocate(ctx, tx, current, *target); err != nil {
					return err
				}
			}
			if err := tx.Workers().UpdateWorker(ctx, current); err != nil {
				return translate(err, "registration number %s", current.RegistrationNumber)
			}
			w = current
			return nil
		})
	}
	op, evType := "worker.update", events.WorkerUpdated
	if moved {
		op, evType = "worker.move", events.WorkerMoved
	}
	s.hooks.done(ctx, op, err, workerEvent(evType, w, from))
	if err != nil {
		s.logger.Error("UpdateWorker failed", zap.String("worker_id", req.WorkerID), zap.Error(err))
		return nil, err
	}
	return &WorkerResponse{Worker: w}, nil
}

func applyWorkerFields(ctx context.Context, tx repository.Repos, w *domain.Worker, req UpdateWorkerRequest) error {
	for _, f := range []struct {
		name string
		val  *string
		dst  *string
	}{
		{"name", trimPtr(req.Name), &w.Name},
		{"surname", trimPtr(req.Surname), &w.Surname},
		{"project", trimPtr(req.Project), &w.Project},
	} {
		if f.val == nil {
			continue
		}
		if *f.val == "" {
			return domain.Validation("%s cannot be empty", f.name)
		}
		*f.dst = *f.val
	}
	if c := trimPtr(req.Company); c != nil {
		w.Company = *c
	}
	if req.EntryDate != nil && !req.EntryDate.IsZero() {
		w.EntryDate = *req.EntryDate
	}
	if reg := trimPtr(req.RegistrationNumber); reg != nil && *reg != w.RegistrationNumber {
		if *reg == "" {
			return domain.Validation("registrationNumber cannot be empty")
		}
		taken, err := registrationTaken(ctx, tx, w.CampID, *reg, w.ID)
		if err != nil {
			return err
		}
		if taken {
			return domain.DuplicateKey("registration number %s already exists", *reg)
		}
		w.RegistrationNumber = *reg
	}
	return nil
}

// MoveWorker assigns the worker to RoomID; moving to the current room is a no-op.
func (s *occupancyService) MoveWorker(ctx context.Context, req MoveWorkerRequest) (*WorkerResponse, error) {
	var (
		w     *domain.Worker
		from  string
		moved bool
	)
	target := strings.TrimSpace(req.RoomID)
	campID, err := s.workerCamp(ctx, req.Actor, req.WorkerID)
	if err == nil && req.CampID != "" && campID != req.CampID {
		err = domain.ForeignCamp("worker %s does not belong to camp %s", req.WorkerID, req.CampID)
	}
	if err == nil {
		err = s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Repos) error {
			if _, _, err := authorizeCamp(ctx, tx, req.Actor, campID, domain.PermissionWrite); err != nil {
				return err
			}
			current, err := tx.Workers().GetWorker(ctx, req.WorkerID)
			if err != nil {
				return translate(err, "worker %s", req.WorkerID)
			}
			from = current.RoomID
			if moved, err = relocate(ctx, tx, current, target); err != nil {
				return err
			}
			if moved {
				if err := tx.Workers().UpdateWorker(ctx, current); err != nil {
					return translate(err, "worker %s", current.ID)
				}
			}
			w = current
			return nil
		})
	}
	if err != nil || moved {
		s.hooks.done(ctx, "worker.move", err, workerEvent(events.WorkerMoved, w, from))
	}
	if err != nil {
		s.logger.Error("MoveWorker failed",
			zap.String("worker_id", req.WorkerID),
			zap.String("room_id", target),
			zap.Error(err),
		)
		return nil, err
	}
	return &WorkerResponse{Worker: w}, nil
}

func (s *occupancyService) DeleteWorker(ctx context.Context, req GetWorkerRequest) error {
	var w *domain.Worker
	campID, err := s.workerCamp(ctx, req.Actor, req.WorkerID)
	if err == nil {
		err = s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Repos) error {
			if _, _, err := authorizeCamp(ctx, tx, req.Actor, campID, domain.PermissionWrite); err != nil {
				return err
			}
			current, err := tx.Workers().GetWorker(ctx, req.WorkerID)
			if err != nil {
				return translate(err, "worker %s", req.WorkerID)
			}
			if err := tx.Workers().DeleteWorker(ctx, current.ID); err != nil {
				return translate(err, "worker %s", current.ID)
			}
			if err := releaseBed(ctx, tx, current); err != nil {
				return err
			}
			w = current
			return nil
		})
	}
	s.hooks.done(ctx, "worker.delete", err, workerEvent(events.WorkerDeleted, w, ""))
	if err != nil {
		s.logger.Error("DeleteWorker failed", zap.String("worker_id", req.WorkerID), zap.Error(err))
		return err
	}
	s.logger.Info("Worker deleted", zap.String("camp_id", w.CampID), zap.String("worker_id", w.ID))
	return nil
}

// ============================================
// Consistency
// ============================================

func (s *occupancyService) CheckConsistency(ctx context.Context, req CampRequest) (*domain.ConsistencyReport, error) {
	if _, _, err := authorizeCamp(ctx, s.store, req.Actor, req.CampID, domain.PermissionRead); err != nil {
		return nil, err
	}
	rooms, workers, err := loadCamp(ctx, s.store, req.CampID)
	if err != nil {
		return nil, err
	}
	return checkConsistency(req.CampID, rooms, workers), nil
}

func loadCamp(ctx context.Context, repos repository.Repos, campID string) ([]*domain.Room, []*domain.Worker, error) {
	rooms, err := repos.Rooms().ListRooms(ctx, repository.RoomFilter{CampID: campID})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	workers, err := repos.Workers().ListWorkers(ctx, repository.WorkerFilter{CampID: campID})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list workers: %w", err)
	}
	return rooms, workers, nil
}

// checkConsistency compares each room's bookkeeping with worker.roomId.
func checkConsistency(campID string, rooms []*domain.Room, workers []*domain.Worker) *domain.ConsistencyReport {
	rep := &domain.ConsistencyReport{
		CampID:  campID,
		Rooms:   len(rooms),
		Workers: len(workers),
		Issues:  []domain.ConsistencyIssue{},
	}
	byID := make(map[string]*domain.Worker, len(workers))
	for _, w := range workers {
		byID[w.ID] = w
	}
	roomByID := make(map[string]*domain.Room, len(rooms))
	for _, r := range rooms {
		roomByID[r.ID] = r
		if !r.Consistent() {
			rep.Issues = append(rep.Issues, domain.ConsistencyIssue{
				RoomID: r.ID,
				Problem: fmt.Sprintf("availableBeds %d + workers %d != capacity %d",
					r.AvailableBeds, len(r.Workers), r.Capacity),
			})
		}
		for _, id := range r.Workers {
			w, ok := byID[id]
			switch {
			case !ok:
				rep.Issues = append(rep.Issues, domain.ConsistencyIssue{
					RoomID: r.ID, WorkerID: id, Problem: "listed worker does not exist",
				})
			case w.RoomID != r.ID:
				rep.Issues = append(rep.Issues, domain.ConsistencyIssue{
					RoomID: r.ID, WorkerID: id, Problem: "listed worker is assigned to another room",
				})
			}
		}
	}
	for _, w := range workers {
		if w.RoomID == "" {
			continue
		}
		r, ok := roomByID[w.RoomID]
		switch {
		case !ok:
			rep.Issues = append(rep.Issues, domain.ConsistencyIssue{
				RoomID: w.RoomID, WorkerID: w.ID, Problem: "worker points to a missing room",
			})
		case !r.HasWorker(w.ID):
			rep.Issues = append(rep.Issues, domain.ConsistencyIssue{
				RoomID: r.ID, WorkerID: w.ID, Problem: "worker is not listed by its room",
			})
		}
	}
	return rep
}

// Reconcile rebuilds every room's member list and bed count from worker.roomId.
func (s *occupancyService) Reconcile(ctx context.Context, req CampRequest) (*ReconcileResponse, error) {
	resp := &ReconcileResponse{}
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Repos) error {
		camp, _, err := authorizeCamp(ctx, tx, req.Actor, req.CampID, domain.PermissionWrite)
		if err != nil {
			return err
		}
		rooms, workers, err := loadCamp(ctx, tx, camp.ID)
		if err != nil {
			return err
		}
		resp.Before = checkConsistency(camp.ID, rooms, workers)

		members := make(map[string][]string, len(rooms))
		for _, r := range rooms {
			members[r.ID] = []string{}
		}
		for _, w := range workers {
			if w.RoomID == "" {
				continue
			}
			if _, ok := members[w.RoomID]; !ok {
				w.RoomID = ""
				if err := tx.Workers().UpdateWorker(ctx, w); err != nil {
					return translate(err, "worker %s", w.ID)
				}
				resp.WorkersUnassigned++
				continue
			}
			members[w.RoomID] = append(members[w.RoomID], w.ID)
		}

		roomIDs := make([]string, 0, len(rooms))
		for _, r := range rooms {
			roomIDs = append(roomIDs, r.ID)
			want := orderLike(r.Workers, members[r.ID])
			if slices.Equal(want, r.Workers) && r.Consistent() {
				continue
			}
			r.Workers = want
			r.Recount()
			if err := tx.Rooms().UpdateRoom(ctx, r); err != nil {
				return translate(err, "room %s", r.ID)
			}
			resp.RoomsUpdated++
		}
		if !sameSet(camp.Rooms, roomIDs) {
			camp.Rooms = roomIDs
			if err := tx.Camps().UpdateCamp(ctx, camp); err != nil {
				return translate(err, "camp %s", camp.ID)
			}
		}
		return nil
	})
	ev := events.Event{Type: events.CampReconciled, CampID: req.CampID, Count: resp.RoomsUpdated}
	s.hooks.done(ctx, "camp.reconcile", err, ev)
	if err != nil {
		s.logger.Error("Reconcile failed", zap.String("camp_id", req.CampID), zap.Error(err))
		return nil, err
	}
	s.logger.Info("Camp reconciled",
		zap.String("camp_id", req.CampID),
		zap.Int("rooms_updated", resp.RoomsUpdated),
		zap.Int("workers_unassigned", resp.WorkersUnassigned),
	)
	return resp, nil
}

// orderLike returns ids ordered as in prev first, then the rest in their
// original order.
func orderLike(prev, ids []string) []string {
	in := make(map[string]bool, len(ids))
	for _, id := range ids {
		in[id] = true
	}
	out := make([]string, 0, len(ids))
	for _, id := range prev {
		if in[id] {
			out = append(out, id)
			delete(in, id)
		}
	}
	for _, id := range ids {
		if in[id] {
			out = append(out, id)
		}
	}
	return out
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa, sb := slices.Clone(a), slices.Clone(b)
	slices.Sort(sa)
	slices.Sort(sb)
	return slices.Equal(sa, sb)
}

func roomEvent(typ string, r *domain.Room) events.Event {
	if r == nil {
		return events.Event{Type: typ}
	}
	return events.Event{Type: typ, CampID: r.CampID, RoomID: r.ID}
}

func workerEvent(typ string, w *domain.Worker, from string) events.Event {
	if w == nil {
		return events.Event{Type: typ}
	}
	return events.Event{Type: typ, CampID: w.CampID, RoomID: w.RoomID, FromRoom: from, WorkerID: w.ID}
}
