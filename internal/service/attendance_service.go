package service

import (
	"context"
	"strings"
	"time"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/domain"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AttendanceService 考勤：每人每天一条记录（upsert）
type AttendanceService interface {
	Record(ctx context.Context, req RecordAttendanceRequest) (*AttendanceResponse, error)
	ListAttendance(ctx context.Context, req ListAttendanceRequest) (*ListAttendanceResponse, error)
	DailySummary(ctx context.Context, req DailySummaryRequest) (*domain.DailySummary, error)
}

type attendanceService struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewAttendanceService(st repository.Store, logger *zap.Logger) AttendanceService {
	return &attendanceService{store: st, logger: logger, now: time.Now}
}

type RecordAttendanceRequest struct {
	Actor       domain.Identity
	PersonnelID string
	Date        string // YYYY-MM-DD，默认今天
	Status      string
	Note        string
}

type AttendanceResponse struct {
	Attendance *domain.Attendance `json:"attendance"`
}

type ListAttendanceRequest struct {
	Actor       domain.Identity
	Site        string
	PersonnelID string
	From        string
	To          string
}

type ListAttendanceResponse struct {
	Items []*domain.Attendance `json:"items"`
	Total int                  `json:"total"`
}

type DailySummaryRequest struct {
	Actor domain.Identity
	Site  string
	Date  string
}

// dateKey validates a YYYY-MM-DD key; empty means today.
func (s *attendanceService) dateKey(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.now().Format(domain.DateKeyLayout), nil
	}
	t, err := time.Parse(domain.DateKeyLayout, raw)
	if err != nil {
		return "", domain.Validation("date must be YYYY-MM-DD, got %q", raw)
	}
	return t.Format(domain.DateKeyLayout), nil
}

func (s *attendanceService) Record(ctx context.Context, req RecordAttendanceRequest) (*AttendanceResponse, error) {
	if err := requireActor(req.Actor, true); err != nil {
		return nil, err
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if !domain.ValidAttendanceStatus(status) {
		return nil, domain.Validation("status must be one of %s", strings.Join(domain.AttendanceStatuses, ", "))
	}
	key, err := s.dateKey(req.Date)
	if err != nil {
		return nil, err
	}

	p, err := s.store.Personnel().GetPersonnel(ctx, req.PersonnelID)
	if err != nil {
		return nil, translate(err, "personnel %s", req.PersonnelID)
	}
	if _, err := resolveSite(req.Actor, p.Site); err != nil {
		return nil, err
	}

	a := &domain.Attendance{
		ID:          uuid.NewString(),
		Site:        p.Site,
		PersonnelID: p.ID,
		DateKey:     key,
		Status:      status,
		Note:        strings.TrimSpace(req.Note),
		RecordedBy:  req.Actor.Email,
	}
	if err := s.store.Attendance().SaveAttendance(ctx, a); err != nil {
		s.logger.Error("Record attendance failed",
			zap.String("personnel_id", p.ID),
			zap.String("date", key),
			zap.Error(err),
		)
		return nil, err
	}
	return &AttendanceResponse{Attendance: a}, nil
}

func (s *attendanceService) ListAttendance(ctx context.Context, req ListAttendanceRequest) (*ListAttendanceResponse, error) {
	if err := requireActor(req.Actor, false); err != nil {
		return nil, err
	}
	site, err := resolveSite(req.Actor, req.Site)
	if err != nil {
		return nil, err
	}
	filter := repository.AttendanceFilter{Site: site, PersonnelID: strings.TrimSpace(req.PersonnelID)}
	if req.From != "" {
		if filter.From, err = s.dateKey(req.From); err != nil {
			return nil, err
		}
	}
	if req.To != "" {
		if filter.To, err = s.dateKey(req.To); err != nil {
			return nil, err
		}
	}
	items, err := s.store.Attendance().ListAttendance(ctx, filter)
	if err != nil {
		s.logger.Error("ListAttendance failed", zap.String("site", site), zap.Error(err))
		return nil, err
	}
	return &ListAttendanceResponse{Items: items, Total: len(items)}, nil
}

// DailySummary counts each status for the day; Unrecorded is the number of
// active personnel at the site without a record.
func (s *attendanceService) DailySummary(ctx context.Context, req DailySummaryRequest) (*domain.DailySummary, error) {
	if err := requireActor(req.Actor, false); err != nil {
		return nil, err
	}
	site, err := resolveSite(req.Actor, req.Site)
	if err != nil {
		return nil, err
	}
	if site == "" {
		return nil, domain.Validation("site is required")
	}
	key, err := s.dateKey(req.Date)
	if err != nil {
		return nil, err
	}

	roster, err := s.store.Personnel().ListPersonnel(ctx, repository.PersonnelFilter{Site: site, Status: domain.PersonnelActive})
	if err != nil {
		return nil, err
	}
	records, err := s.store.Attendance().ListAttendance(ctx, repository.AttendanceFilter{Site: site, From: key, To: key})
	if err != nil {
		return nil, err
	}

	sum := &domain.DailySummary{Site: site, Date: key, Total: len(roster), Counts: map[string]int{}}
	for _, st := range domain.AttendanceStatuses {
		sum.Counts[st] = 0
	}
	recorded := make(map[string]bool, len(records))
	for _, a := range records {
		sum.Counts[a.Status]++
		recorded[a.PersonnelID] = true
	}
	for _, p := range roster {
		if !recorded[p.ID] {
			sum.Unrecorded++
		}
	}
	return sum, nil
}
