package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/domain"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/events"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/repository"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/spreadsheet"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ImportService 批量导入（房间 / 工人）
// 按行顺序处理，每行一个事务；单行失败记录到 errors[]，不影响其他行
type ImportService interface {
	ImportRooms(ctx context.Context, req ImportRoomsRequest) (*domain.ImportResult, error)
	ImportWorkers(ctx context.Context, req ImportWorkersRequest) (*domain.ImportResult, error)
}

type importService struct {
	store  repository.Store
	hooks  *Hooks
	logger *zap.Logger
	now    func() time.Time
}

func NewImportService(st repository.Store, hooks *Hooks, logger *zap.Logger) ImportService {
	return &importService{store: st, hooks: hooks, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

type ImportRoomsRequest struct {
	Actor  domain.Identity
	CampID string
	Rows   []spreadsheet.RoomRow
}

type ImportWorkersRequest struct {
	Actor  domain.Identity
	CampID string
	Rows   []spreadsheet.WorkerRow
}

// rowError prefixes err with the sheet row number.
type rowError struct {
	row int
	err error
}

func (e *rowError) Error() string { return fmt.Sprintf("row %d: %v", e.row, e.err) }
func (e *rowError) Unwrap() error { return e.err }

func (s *importService) begin(ctx context.Context, actor domain.Identity, campID string, rows int) error {
	if _, _, err := authorizeCamp(ctx, s.store, actor, campID, domain.PermissionWrite); err != nil {
		return err
	}
	if rows == 0 {
		return domain.Validation("no rows to import")
	}
	return nil
}

// record folds one row outcome into res.
func (s *importService) record(res *domain.ImportResult, kind string, row int, err error) {
	if s.hooks != nil && s.hooks.Metrics != nil {
		s.hooks.Metrics.ImportRow(kind, err == nil)
	}
	if err == nil {
		res.Success++
		return
	}
	res.Failed++
	re := &rowError{row: row, err: err}
	res.Errors = append(res.Errors, re.Error())
	s.logger.Debug("Import row failed",
		zap.String("kind", kind),
		zap.Int("row", row),
		zap.String("error_kind", string(domain.KindOf(err))),
		zap.Error(err),
	)
}

func (s *importService) ImportRooms(ctx context.Context, req ImportRoomsRequest) (*domain.ImportResult, error) {
	if err := s.begin(ctx, req.Actor, req.CampID, len(req.Rows)); err != nil {
		return nil, err
	}
	res := &domain.ImportResult{Errors: []string{}}
	for _, row := range req.Rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Repos) error {
			return s.importRoom(ctx, tx, req.Actor, req.CampID, row)
		})
		s.record(res, "rooms", row.Row, err)
	}
	if res.Success > 0 {
		s.hooks.done(ctx, "rooms.import", nil, events.Event{Type: events.RoomsImported, CampID: req.CampID, Count: res.Success})
	}
	s.logger.Info("Rooms imported",
		zap.String("camp_id", req.CampID),
		zap.Int("success", res.Success),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

// importRoom creates the room, or updates the capacity of the room with the
// same number and site. A room with the same number under another site is a
// duplicate.
func (s *importService) importRoom(ctx context.Context, tx repository.Repos, actor domain.Identity, campID string, row spreadsheet.RoomRow) error {
	number, site := strings.TrimSpace(row.Number), strings.TrimSpace(row.Site)
	if number == "" || site == "" || strings.TrimSpace(row.Capacity) == "" {
		return domain.Validation("%s, %s and %s are required",
			spreadsheet.ColRoomNo, spreadsheet.ColRoomSite, spreadsheet.ColCapacity)
	}
	capacity, ok := spreadsheet.ParseCapacity(row.Capacity)
	if !ok || capacity < 1 {
		return domain.Validation("%s must be a whole number of at least 1, got %q", spreadsheet.ColCapacity, row.Capacity)
	}

	camp, _, err := authorizeCamp(ctx, tx, actor, campID, domain.PermissionWrite)
	if err != nil {
		return err
	}
	existing, err := tx.Rooms().ListRooms(ctx, repository.RoomFilter{CampID: campID, Number: number})
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		_, err := createRoom(ctx, tx, camp, number, site, "", capacity)
		return err
	}
	room := existing[0]
	if room.Project != site {
		return domain.DuplicateKey("room %s already exists under site %s", number, room.Project)
	}
	if capacity < room.Occupants() {
		return domain.Validation("room %s has %d workers, capacity %d is too small", number, room.Occupants(), capacity)
	}
	room.Capacity = capacity
	room.Recount()
	return translate(tx.Rooms().UpdateRoom(ctx, room), "room %s", number)
}

func (s *importService) ImportWorkers(ctx context.Context, req ImportWorkersRequest) (*domain.ImportResult, error) {
	if err := s.begin(ctx, req.Actor, req.CampID, len(req.Rows)); err != nil {
		return nil, err
	}
	res := &domain.ImportResult{Errors: []string{}}
	for _, row := range req.Rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Repos) error {
			return s.importWorker(ctx, tx, req.Actor, req.CampID, row)
		})
		s.record(res, "workers", row.Row, err)
	}
	if res.Success > 0 {
		s.hooks.done(ctx, "workers.import", nil, events.Event{Type: events.WorkersImported, CampID: req.CampID, Count: res.Success})
	}
	s.logger.Info("Workers imported",
		zap.String("camp_id", req.CampID),
		zap.Int("success", res.Success),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

// importWorker creates one worker. The room column is optional and is
// resolved by room number within the camp; membership stores the worker id.
func (s *importService) importWorker(ctx context.Context, tx repository.Repos, actor domain.Identity, campID string, row spreadsheet.WorkerRow) error {
	reg := strings.TrimSpace(row.RegistrationNumber)
	fullName := strings.TrimSpace(row.FullName)
	site := strings.TrimSpace(row.Site)
	if reg == "" || fullName == "" || site == "" {
		return domain.Validation("%s, %s and %s are required",
			spreadsheet.ColRegistration, spreadsheet.ColFullName, spreadsheet.ColWorkerSite)
	}

	if _, _, err := authorizeCamp(ctx, tx, actor, campID, domain.PermissionWrite); err != nil {
		return err
	}
	taken, err := registrationTaken(ctx, tx, campID, reg, "")
	if err != nil {
		return err
	}
	if taken {
		return domain.DuplicateKey("registration number %s already exists", reg)
	}

	now := s.now()
	name, surname := domain.SplitFullName(fullName)
	w := &domain.Worker{
		ID:                 uuid.NewString(),
		CampID:             campID,
		Name:               name,
		Surname:            surname,
		RegistrationNumber: reg,
		Project:            site,
		EntryDate:          spreadsheet.ParseEntryDate(row.EntryDate, now),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if number := strings.TrimSpace(row.Room); number != "" {
		rooms, err := tx.Rooms().ListRooms(ctx, repository.RoomFilter{CampID: campID, Number: number})
		if err != nil {
			return err
		}
		if len(rooms) == 0 {
			return domain.NotFound("room %s not found", number)
		}
		w.RoomID = rooms[0].ID
		w.Company = rooms[0].Company
	}
	return insertWorker(ctx, tx, w)
}
