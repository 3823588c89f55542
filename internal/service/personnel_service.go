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

// PersonnelService 人员名册（按 site 划分，与营地无关）
type PersonnelService interface {
	ListPersonnel(ctx context.Context, req ListPersonnelRequest) (*ListPersonnelResponse, error)
	GetPersonnel(ctx context.Context, req GetPersonnelRequest) (*PersonnelResponse, error)
	CreatePersonnel(ctx context.Context, req CreatePersonnelRequest) (*PersonnelResponse, error)
	UpdatePersonnel(ctx context.Context, req UpdatePersonnelRequest) (*PersonnelResponse, error)
	DeletePersonnel(ctx context.Context, req GetPersonnelRequest) error
}

type personnelService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewPersonnelService(st repository.Store, logger *zap.Logger) PersonnelService {
	return &personnelService{store: st, logger: logger}
}

type ListPersonnelRequest struct {
	Actor  domain.Identity
	Site   string
	Status string
	Search string
}

type ListPersonnelResponse struct {
	Items []*domain.Personnel `json:"items"`
	Total int                 `json:"total"`
}

type GetPersonnelRequest struct {
	Actor       domain.Identity
	PersonnelID string
}

type PersonnelResponse struct {
	Personnel *domain.Personnel `json:"personnel"`
}

type CreatePersonnelRequest struct {
	Actor          domain.Identity
	Site           string // 必填（非管理员默认为本人所属工地）
	EmployeeID     string // 必填
	PassportNumber string
	FirstName      string // 必填
	LastName       string // 必填
	Position       string
	Company        string
	Status         string // 默认 active
	HireDate       time.Time
}

type UpdatePersonnelRequest struct {
	Actor          domain.Identity
	PersonnelID    string
	EmployeeID     *string
	PassportNumber *string
	FirstName      *string
	LastName       *string
	Position       *string
	Company        *string
	Status         *string
	HireDate       *time.Time
}

// resolveSite applies site scoping: admins and users without a site may use
// any site; everyone else is pinned to their own.
func resolveSite(actor domain.Identity, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if actor.IsAdmin() || actor.Site == "" {
		return requested, nil
	}
	if requested == "" || requested == actor.Site {
		return actor.Site, nil
	}
	return "", domain.Forbidden("no access to site %s", requested)
}

func validPersonnelStatus(s string) bool {
	return s == domain.PersonnelActive || s == domain.PersonnelInactive
}

func (s *personnelService) ListPersonnel(ctx context.Context, req ListPersonnelRequest) (*ListPersonnelResponse, error) {
	if err := requireActor(req.Actor, false); err != nil {
		return nil, err
	}
	site, err := resolveSite(req.Actor, req.Site)
	if err != nil {
		return nil, err
	}
	items, err := s.store.Personnel().ListPersonnel(ctx, repository.PersonnelFilter{
		Site:   site,
		Status: strings.TrimSpace(req.Status),
		Search: req.Search,
	})
	if err != nil {
		s.logger.Error("ListPersonnel failed", zap.String("site", site), zap.Error(err))
		return nil, err
	}
	return &ListPersonnelResponse{Items: items, Total: len(items)}, nil
}

// load fetches the record and checks the actor's site scope.
func (s *personnelService) load(ctx context.Context, repos repository.Repos, actor domain.Identity, id string) (*domain.Personnel, error) {
	p, err := repos.Personnel().GetPersonnel(ctx, id)
	if err != nil {
		return nil, translate(err, "personnel %s", id)
	}
	if _, err := resolveSite(actor, p.Site); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *personnelService) GetPersonnel(ctx context.Context, req GetPersonnelRequest) (*PersonnelResponse, error) {
	if err := requireActor(req.Actor, false); err != nil {
		return nil, err
	}
	p, err := s.load(ctx, s.store, req.Actor, req.PersonnelID)
	if err != nil {
		return nil, err
	}
	return &PersonnelResponse{Personnel: p}, nil
}

func (s *personnelService) CreatePersonnel(ctx context.Context, req CreatePersonnelRequest) (*PersonnelResponse, error) {
	if err := requireActor(req.Actor, true); err != nil {
		return nil, err
	}
	site, err := resolveSite(req.Actor, req.Site)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	p := &domain.Personnel{
		ID:             uuid.NewString(),
		Site:           site,
		EmployeeID:     strings.TrimSpace(req.EmployeeID),
		PassportNumber: strings.TrimSpace(req.PassportNumber),
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		Position:       strings.TrimSpace(req.Position),
		Company:        strings.TrimSpace(req.Company),
		Status:         strings.TrimSpace(req.Status),
		HireDate:       req.HireDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if p.Status == "" {
		p.Status = domain.PersonnelActive
	}
	if p.HireDate.IsZero() {
		p.HireDate = now
	}
	switch {
	case p.Site == "":
		return nil, domain.Validation("site is required")
	case p.EmployeeID == "":
		return nil, domain.Validation("employeeId is required")
	case p.FirstName == "" || p.LastName == "":
		return nil, domain.Validation("firstName and lastName are required")
	case !validPersonnelStatus(p.Status):
		return nil, domain.Validation("status must be active or inactive")
	}

	if err := s.store.Personnel().CreatePersonnel(ctx, p); err != nil {
		s.logger.Error("CreatePersonnel failed",
			zap.String("site", p.Site),
			zap.String("employee_id", p.EmployeeID),
			zap.Error(err),
		)
		return nil, translate(err, "employee %s or passport at site %s", p.EmployeeID, p.Site)
	}
	return &PersonnelResponse{Personnel: p}, nil
}

func (s *personnelService) UpdatePersonnel(ctx context.Context, req UpdatePersonnelRequest) (*PersonnelResponse, error) {
	if err := requireActor(req.Actor, true); err != nil {
		return nil, err
	}
	var out *domain.Personnel
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Repos) error {
		p, err := s.load(ctx, tx, req.Actor, req.PersonnelID)
		if err != nil {
			return err
		}
		for _, f := range []struct {
			name string
			val  *string
			dst  *string
		}{
			{"employeeId", trimPtr(req.EmployeeID), &p.EmployeeID},
			{"firstName", trimPtr(req.FirstName), &p.FirstName},
			{"lastName", trimPtr(req.LastName), &p.LastName},
		} {
			if f.val == nil {
				continue
			}
			if *f.val == "" {
				return domain.Validation("%s cannot be empty", f.name)
			}
			*f.dst = *f.val
		}
		if v := trimPtr(req.PassportNumber); v != nil {
			p.PassportNumber = *v
		}
		if v := trimPtr(req.Position); v != nil {
			p.Position = *v
		}
		if v := trimPtr(req.Company); v != nil {
			p.Company = *v
		}
		if v := trimPtr(req.Status); v != nil {
			if !validPersonnelStatus(*v) {
				return domain.Validation("status must be active or inactive")
			}
			p.Status = *v
		}
		if req.HireDate != nil && !req.HireDate.IsZero() {
			p.HireDate = *req.HireDate
		}
		if err := tx.Personnel().UpdatePersonnel(ctx, p); err != nil {
			return translate(err, "employee %s or passport at site %s", p.EmployeeID, p.Site)
		}
		out = p
		return nil
	})
	if err != nil {
		s.logger.Error("UpdatePersonnel failed", zap.String("personnel_id", req.PersonnelID), zap.Error(err))
		return nil, err
	}
	return &PersonnelResponse{Personnel: out}, nil
}

// DeletePersonnel removes the record together with its attendance history.
func (s *personnelService) DeletePersonnel(ctx context.Context, req GetPersonnelRequest) error {
	if err := requireActor(req.Actor, true); err != nil {
		return err
	}
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Repos) error {
		p, err := s.load(ctx, tx, req.Actor, req.PersonnelID)
		if err != nil {
			return err
		}
		if _, err := tx.Attendance().DeleteAttendanceByPersonnel(ctx, p.ID); err != nil {
			return err
		}
		return translate(tx.Personnel().DeletePersonnel(ctx, p.ID), "personnel %s", p.ID)
	})
	if err != nil {
		s.logger.Error("DeletePersonnel failed", zap.String("personnel_id", req.PersonnelID), zap.Error(err))
	}
	return err
}
