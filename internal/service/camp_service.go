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

// CampService 营地管理：创建、共享、加入、删除
type CampService interface {
	ListCamps(ctx context.Context, req ListCampsRequest) (*ListCampsResponse, error)
	GetCamp(ctx context.Context, req GetCampRequest) (*GetCampResponse, error)
	CreateCamp(ctx context.Context, req CreateCampRequest) (*GetCampResponse, error)
	UpdateCamp(ctx context.Context, req UpdateCampRequest) (*GetCampResponse, error)
	ShareCamp(ctx context.Context, req ShareCampRequest) (*GetCampResponse, error)
	UnshareCamp(ctx context.Context, req UnshareCampRequest) (*GetCampResponse, error)
	JoinCamp(ctx context.Context, req JoinCampRequest) (*GetCampResponse, error)
	RegenerateCodes(ctx context.Context, req GetCampRequest) (*GetCampResponse, error)
	DeleteCamp(ctx context.Context, req GetCampRequest) error
}

type campService struct {
	store  repository.Store
	hooks  *Hooks
	logger *zap.Logger
}

func NewCampService(st repository.Store, hooks *Hooks, logger *zap.Logger) CampService {
	return &campService{store: st, hooks: hooks, logger: logger}
}

type ListCampsRequest struct {
	Actor domain.Identity
}

type ListCampsResponse struct {
	Items []*domain.Camp `json:"items"`
}

type GetCampRequest struct {
	Actor  domain.Identity
	CampID string
}

type GetCampResponse struct {
	Camp       *domain.Camp      `json:"camp"`
	Permission domain.Permission `json:"permission"`
}

type CreateCampRequest struct {
	Actor       domain.Identity
	Name        string   // 必填
	Description string   // 可选
	IsPublic    bool     // 可选
	PublicSites []string // 可选，公开时可见的工地；为空表示全部
}

type UpdateCampRequest struct {
	Actor       domain.Identity
	CampID      string
	Name        *string
	Description *string
	IsPublic    *bool
	PublicSites *[]string
}

type ShareCampRequest struct {
	Actor      domain.Identity
	CampID     string
	Email      string
	Permission domain.Permission
}

type UnshareCampRequest struct {
	Actor  domain.Identity
	CampID string
	Email  string
}

type JoinCampRequest struct {
	Actor domain.Identity
	Code  string
}

func newShareCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// view hides share codes from callers without write access.
func view(camp *domain.Camp, perm domain.Permission) *GetCampResponse {
	c := camp.Clone()
	if !perm.Allows(domain.PermissionWrite) {
		c.ShareCodes = domain.ShareCodes{}
	}
	return &GetCampResponse{Camp: c, Permission: perm}
}

func cleanSites(sites []string) []string {
	out := make([]string, 0, len(sites))
	seen := map[string]bool{}
	for _, s := range sites {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func (s *campService) ListCamps(ctx context.Context, req ListCampsRequest) (*ListCampsResponse, error) {
	if err := requireActor(req.Actor, false); err != nil {
		return nil, err
	}
	filter := repository.CampFilter{Email: req.Actor.Email, All: req.Actor.IsAdmin()}
	camps, err := s.store.Camps().ListCamps(ctx, filter)
	if err != nil {
		s.logger.Error("ListCamps failed", zap.String("email", req.Actor.Email), zap.Error(err))
		return nil, err
	}
	items := make([]*domain.Camp, 0, len(camps))
	for _, c := range camps {
		perm, _ := c.AccessFor(req.Actor)
		items = append(items, view(c, perm).Camp)
	}
	return &ListCampsResponse{Items: items}, nil
}

func (s *campService) GetCamp(ctx context.Context, req GetCampRequest) (*GetCampResponse, error) {
	camp, perm, err := authorizeCamp(ctx, s.store, req.Actor, req.CampID, domain.PermissionRead)
	if err != nil {
		return nil, err
	}
	return view(camp, perm), nil
}

func (s *campService) CreateCamp(ctx context.Context, req CreateCampRequest) (*GetCampResponse, error) {
	if err := requireActor(req.Actor, true); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.Validation("name is required")
	}
	now := time.Now().UTC()
	camp := &domain.Camp{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		OwnerEmail:  strings.ToLower(req.Actor.Email),
		SharedWith:  []domain.Share{},
		ShareCodes:  domain.ShareCodes{Read: newShareCode(), Write: newShareCode()},
		Rooms:       []string{},
		IsPublic:    req.IsPublic,
		PublicSites: cleanSites(req.PublicSites),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Camps().CreateCamp(ctx, camp); err != nil {
		s.logger.Error("CreateCamp failed", zap.String("owner", camp.OwnerEmail), zap.Error(err))
		return nil, translate(err, "camp %s", camp.ID)
	}
	s.logger.Info("Camp created", zap.String("camp_id", camp.ID), zap.String("owner", camp.OwnerEmail))
	return view(camp, domain.PermissionWrite), nil
}

// mutateOwned runs fn on the camp inside a transaction after checking that the
// actor owns it (or is an admin), then saves it.
func (s *campService) mutateOwned(ctx context.Context, actor domain.Identity, campID string, fn func(c *domain.Camp) error) (*domain.Camp, error) {
	var out *domain.Camp
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Repos) error {
		camp, _, err := authorizeCamp(ctx, tx, actor, campID, domain.PermissionWrite)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && !strings.EqualFold(camp.OwnerEmail, actor.Email) {
			return domain.Forbidden("only the owner can manage camp %s", campID)
		}
		if err := fn(camp); err != nil {
			return err
		}
		if err := tx.Camps().UpdateCamp(ctx, camp); err != nil {
			return translate(err, "camp %s", campID)
		}
		out = camp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *campService) UpdateCamp(ctx context.Context, req UpdateCampRequest) (*GetCampResponse, error) {
	var camp *domain.Camp
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Repos) error {
		c, _, err := authorizeCamp(ctx, tx, req.Actor, req.CampID, domain.PermissionWrite)
		if err != nil {
			return err
		}
		if name := trimPtr(req.Name); name != nil {
			if *name == "" {
				return domain.Validation("name cannot be empty")
			}
			c.Name = *name
		}
		if d := trimPtr(req.Description); d != nil {
			c.Description = *d
		}
		if req.IsPublic != nil {
			c.IsPublic = *req.IsPublic
		}
		if req.PublicSites != nil {
			c.PublicSites = cleanSites(*req.PublicSites)
		}
		if err := tx.Camps().UpdateCamp(ctx, c); err != nil {
			return translate(err, "camp %s", req.CampID)
		}
		camp = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.hooks.invalidate(ctx, camp.ID)
	return view(camp, domain.PermissionWrite), nil
}

func (s *campService) ShareCamp(ctx context.Context, req ShareCampRequest) (*GetCampResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.Validation("a valid email is required")
	}
	if !req.Permission.Valid() {
		return nil, domain.Validation("permission must be read or write")
	}
	camp, err := s.mutateOwned(ctx, req.Actor, req.CampID, func(c *domain.Camp) error {
		if strings.EqualFold(c.OwnerEmail, email) {
			return domain.Validation("the owner already has full access")
		}
		c.SetShare(email, req.Permission)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Camp shared",
		zap.String("camp_id", camp.ID),
		zap.String("email", email),
		zap.String("permission", string(req.Permission)),
	)
	return view(camp, domain.PermissionWrite), nil
}

func (s *campService) UnshareCamp(ctx context.Context, req UnshareCampRequest) (*GetCampResponse, error) {
	email := strings.TrimSpace(req.Email)
	camp, err := s.mutateOwned(ctx, req.Actor, req.CampID, func(c *domain.Camp) error {
		if !c.RemoveShare(email) {
			return domain.NotFound("%s has no share on camp %s", email, c.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view(camp, domain.PermissionWrite), nil
}

func (s *campService) JoinCamp(ctx context.Context, req JoinCampRequest) (*GetCampResponse, error) {
	if err := requireActor(req.Actor, true); err != nil {
		return nil, err
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return nil, domain.Validation("code is required")
	}
	var (
		camp *domain.Camp
		perm domain.Permission
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Repos) error {
		c, err := tx.Camps().FindCampByShareCode(ctx, code)
		if err != nil {
			return translate(err, "share code %s", code)
		}
		granted := domain.PermissionRead
		if c.ShareCodes.Write == code {
			granted = domain.PermissionWrite
		}
		if current, ok := c.AccessFor(req.Actor); ok && c.IsMember(req.Actor) && current.Allows(granted) {
			camp, perm = c, current
			return nil
		}
		c.SetShare(strings.ToLower(req.Actor.Email), granted)
		if err := tx.Camps().UpdateCamp(ctx, c); err != nil {
			return translate(err, "camp %s", c.ID)
		}
		camp, perm = c, granted
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Camp joined", zap.String("camp_id", camp.ID), zap.String("email", req.Actor.Email))
	return view(camp, perm), nil
}

func (s *campService) RegenerateCodes(ctx context.Context, req GetCampRequest) (*GetCampResponse, error) {
	camp, err := s.mutateOwned(ctx, req.Actor, req.CampID, func(c *domain.Camp) error {
		c.ShareCodes = domain.ShareCodes{Read: newShareCode(), Write: newShareCode()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view(camp, domain.PermissionWrite), nil
}

// DeleteCamp removes an empty camp. Rooms and unassigned workers must be deleted first.
func (s *campService) DeleteCamp(ctx context.Context, req GetCampRequest) error {
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Repos) error {
		camp, _, err := authorizeCamp(ctx, tx, req.Actor, req.CampID, domain.PermissionWrite)
		if err != nil {
			return err
		}
		if !req.Actor.IsAdmin() && !strings.EqualFold(camp.OwnerEmail, req.Actor.Email) {
			return domain.Forbidden("only the owner can delete camp %s", req.CampID)
		}
		rooms, err := tx.Rooms().ListRooms(ctx, repository.RoomFilter{CampID: camp.ID})
		if err != nil {
			return err
		}
		if len(rooms) > 0 {
			return domain.Validation("camp %s still has %d rooms", camp.ID, len(rooms))
		}
		workers, err := tx.Workers().ListWorkers(ctx, repository.WorkerFilter{CampID: camp.ID})
		if err != nil {
			return err
		}
		if len(workers) > 0 {
			return domain.Validation("camp %s still has %d workers", camp.ID, len(workers))
		}
		return translate(tx.Camps().DeleteCamp(ctx, camp.ID), "camp %s", camp.ID)
	})
	if err != nil {
		return err
	}
	s.hooks.invalidate(ctx, req.CampID)
	s.logger.Info("Camp deleted", zap.String("camp_id", req.CampID))
	return nil
}
