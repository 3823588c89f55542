package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/domain"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/repository"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/store"

	"go.uber.org/zap"
)

// ReportService 占用统计（只读，每次由 rooms/workers 重新计算，结果按 TTL 缓存）
type ReportService interface {
	Stats(ctx context.Context, req StatsRequest) (*domain.OccupancyReport, error)
}

type reportService struct {
	store  repository.Store
	hooks  *Hooks
	ttl    time.Duration
	logger *zap.Logger
}

func NewReportService(st repository.Store, hooks *Hooks, ttl time.Duration, logger *zap.Logger) ReportService {
	return &reportService{store: st, hooks: hooks, ttl: ttl, logger: logger}
}

type StatsRequest struct {
	Actor  domain.Identity
	CampID string
	Site   string // 可选，进一步限定工地
}

// availableSites returns the sites the actor may see; nil means all of them.
// Members see every site; other viewers of a public camp see PublicSites.
func availableSites(camp *domain.Camp, actor domain.Identity) []string {
	if camp.IsMember(actor) || len(camp.PublicSites) == 0 {
		return nil
	}
	return slices.Clone(camp.PublicSites)
}

func (s *reportService) Stats(ctx context.Context, req StatsRequest) (*domain.OccupancyReport, error) {
	camp, _, err := authorizeCamp(ctx, s.store, req.Actor, req.CampID, domain.PermissionRead)
	if err != nil {
		return nil, err
	}
	sites := availableSites(camp, req.Actor)
	if site := strings.TrimSpace(req.Site); site != "" {
		if sites != nil && !slices.Contains(sites, site) {
			return nil, domain.Forbidden("site %s is not available in camp %s", site, camp.ID)
		}
		sites = []string{site}
	}
	slices.Sort(sites)

	key := reportCacheKey(camp.ID, sites)
	if rep, ok := s.cached(ctx, key); ok {
		return rep, nil
	}

	rooms, workers, err := loadCamp(ctx, s.store, camp.ID)
	if err != nil {
		s.logger.Error("Stats failed", zap.String("camp_id", camp.ID), zap.Error(err))
		return nil, err
	}
	rep := BuildReport(camp.ID, sites, rooms, workers)
	s.save(ctx, key, rep)
	return rep, nil
}

func (s *reportService) cache() store.KV {
	if s.hooks == nil {
		return nil
	}
	return s.hooks.Cache
}

func (s *reportService) cached(ctx context.Context, key string) (*domain.OccupancyReport, bool) {
	kv := s.cache()
	if kv == nil {
		return nil, false
	}
	raw, err := kv.Get(ctx, key)
	hit := err == nil
	if s.hooks.Metrics != nil {
		s.hooks.Metrics.ReportCache(hit)
	}
	if err != nil {
		if !errors.Is(err, store.ErrMiss) {
			s.logger.Warn("Report cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var rep domain.OccupancyReport
	if err := json.Unmarshal([]byte(raw), &rep); err != nil {
		s.logger.Warn("Report cache entry is corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &rep, true
}

func (s *reportService) save(ctx context.Context, key string, rep *domain.OccupancyReport) {
	kv := s.cache()
	if kv == nil {
		return
	}
	b, err := json.Marshal(rep)
	if err != nil {
		return
	}
	if err := kv.Set(ctx, key, string(b), s.ttl); err != nil {
		s.logger.Warn("Report cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// rate is occupied/capacity as a percentage rounded to two decimals; 0 when
// capacity is 0.
func rate(occupied, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	return math.Round(float64(occupied)/float64(capacity)*10000) / 100
}

// BuildReport computes occupancy from worker.roomId. sites restricts the rooms
// (and unassigned workers) considered; nil means every site.
func BuildReport(campID string, sites []string, rooms []*domain.Room, workers []*domain.Worker) *domain.OccupancyReport {
	include := func(site string) bool { return sites == nil || slices.Contains(sites, site) }

	occupants := map[string][]*domain.Worker{}
	rep := &domain.OccupancyReport{CampID: campID, Sites: []string{}, BySite: []domain.SiteStats{}}
	for _, w := range workers {
		if w.RoomID == "" {
			if include(w.Project) {
				rep.UnassignedWorkers++
			}
			continue
		}
		occupants[w.RoomID] = append(occupants[w.RoomID], w)
	}

	bySite := map[string]*domain.SiteStats{}
	var most, least *domain.RoomStats
	for _, r := range rooms {
		if !include(r.Project) {
			continue
		}
		in := occupants[r.ID]
		avail := max(r.Capacity-len(in), 0)
		rs := &domain.RoomStats{
			RoomID:        r.ID,
			Number:        r.Number,
			Project:       r.Project,
			Capacity:      r.Capacity,
			Workers:       len(in),
			AvailableBeds: avail,
			OccupancyRate: rate(len(in), r.Capacity),
		}
		if most == nil || rs.OccupancyRate > most.OccupancyRate {
			most = rs
		}
		if least == nil || rs.OccupancyRate < least.OccupancyRate {
			least = rs
		}

		rep.TotalRooms++
		rep.TotalCapacity += r.Capacity
		rep.TotalWorkers += len(in)
		rep.AvailableBeds += avail

		st, ok := bySite[r.Project]
		if !ok {
			st = &domain.SiteStats{Site: r.Project}
			bySite[r.Project] = st
		}
		st.TotalRooms++
		st.TotalCapacity += r.Capacity
		st.TotalWorkers += len(in)
		st.AvailableBeds += avail
		for _, w := range in {
			if w.Project == r.Project {
				st.SameProjectWorkers++
			} else {
				st.CrossProjectWorkers++
			}
		}
	}
	rep.OccupancyRate = rate(rep.TotalWorkers, rep.TotalCapacity)
	rep.MostOccupiedRoom = most
	rep.LeastOccupiedRoom = least

	for site, st := range bySite {
		st.OccupancyRate = rate(st.TotalWorkers, st.TotalCapacity)
		rep.Sites = append(rep.Sites, site)
	}
	sort.Strings(rep.Sites)
	for _, site := range rep.Sites {
		rep.BySite = append(rep.BySite, *bySite[site])
	}
	return rep
}
