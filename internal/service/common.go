package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/domain"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/events"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/metrics"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/repository"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/store"

	"go.uber.org/zap"
)

// Hooks 提交后的副作用：报表缓存失效、事件发布、指标计数
// 任何字段为 nil 时跳过对应步骤；副作用失败只记录日志，不影响调用方
type Hooks struct {
	Cache   store.KV
	Events  events.Publisher
	Metrics metrics.Recorder
	Logger  *zap.Logger
}

func (h *Hooks) logger() *zap.Logger {
	if h == nil || h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

// done records op and, when err is nil, runs the post-commit side effects for
// every event.
func (h *Hooks) done(ctx context.Context, op string, err error, evs ...events.Event) {
	if h == nil {
		return
	}
	if h.Metrics != nil {
		h.Metrics.Mutation(op, err)
	}
	if err != nil {
		return
	}
	invalidated := map[string]bool{}
	for _, e := range evs {
		if e.CampID != "" && !invalidated[e.CampID] {
			invalidated[e.CampID] = true
			h.invalidate(ctx, e.CampID)
		}
		if h.Events == nil {
			continue
		}
		if e.At.IsZero() {
			e.At = time.Now().UTC()
		}
		if perr := h.Events.Publish(ctx, e); perr != nil {
			h.logger().Warn("Publish event failed",
				zap.String("event_type", e.Type),
				zap.String("camp_id", e.CampID),
				zap.Error(perr),
			)
		}
	}
}

func (h *Hooks) invalidate(ctx context.Context, campID string) {
	if h == nil || h.Cache == nil {
		return
	}
	if _, err := store.DeletePattern(ctx, h.Cache, reportCachePattern(campID)); err != nil {
		h.logger().Warn("Invalidate report cache failed", zap.String("camp_id", campID), zap.Error(err))
	}
}

const reportCachePrefix = "reports:stats:"

func reportCachePattern(campID string) string {
	return reportCachePrefix + campID + ":*"
}

func reportCacheKey(campID string, sites []string) string {
	return reportCachePrefix + campID + ":" + strings.Join(sites, ",")
}

// requireActor rejects anonymous callers and, for writes, unapproved accounts.
func requireActor(actor domain.Identity, write bool) error {
	if !actor.Authenticated() {
		return domain.Unauthorized("authentication required")
	}
	if write && !actor.Approved && !actor.IsAdmin() {
		return domain.Forbidden("account is not approved")
	}
	return nil
}

// authorizeCamp loads the camp through repos and checks that actor holds need on
// it. Inside a transaction the camp row is locked, which serializes mutations
// of the same camp.
func authorizeCamp(ctx context.Context, repos repository.Repos, actor domain.Identity, campID string, need domain.Permission) (*domain.Camp, domain.Permission, error) {
	if err := requireActor(actor, need == domain.PermissionWrite); err != nil {
		return nil, "", err
	}
	if campID == "" {
		return nil, "", domain.Validation("campId is required")
	}
	camp, err := repos.Camps().GetCamp(ctx, campID)
	if err != nil {
		return nil, "", translate(err, "camp %s", campID)
	}
	perm, ok := camp.AccessFor(actor)
	if !ok || !perm.Allows(need) {
		return nil, "", domain.Forbidden("no %s access to camp %s", need, campID)
	}
	return camp, perm, nil
}

// translate turns repository sentinels into domain errors named after subject.
func translate(err error, subject string, args ...any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return domain.NotFound(subject+" not found", args...)
	case errors.Is(err, repository.ErrDuplicate):
		return domain.DuplicateKey(subject+" already exists", args...)
	case errors.Is(err, repository.ErrReferenced):
		return domain.Validation(subject+" is still referenced", args...)
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(subject, args...), err)
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}
