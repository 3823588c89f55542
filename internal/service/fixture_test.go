package service

import (
	"context"
	"sync"
	"testing"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/domain"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/events"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/metrics"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/repository"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	owner    = domain.Identity{Email: "owner@example.com", Role: domain.RoleUser, Approved: true}
	stranger = domain.Identity{Email: "stranger@example.com", Role: domain.RoleUser, Approved: true}
	admin    = domain.Identity{Email: "root@example.com", Role: domain.RoleAdmin}
)

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store     *repository.MemoryStore
	cache     *store.MemoryKV
	events    *recorder
	hooks     *Hooks
	camps     CampService
	occupancy OccupancyService
	imports   ImportService
	reports   ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	f := &fixture{
		store:  repository.NewMemoryStore(),
		cache:  store.NewMemoryKV(),
		events: &recorder{},
	}
	f.hooks = &Hooks{Cache: f.cache, Events: f.events, Metrics: metrics.Nop{}, Logger: logger}
	f.camps = NewCampService(f.store, f.hooks, logger)
	f.occupancy = NewOccupancyService(f.store, f.hooks, logger)
	f.imports = NewImportService(f.store, f.hooks, logger)
	f.reports = NewReportService(f.store, f.hooks, 0, logger)
	return f
}

func (f *fixture) camp(t *testing.T) string {
	t.Helper()
	resp, err := f.camps.CreateCamp(context.Background(), CreateCampRequest{Actor: owner, Name: "Kamp A"})
	require.NoError(t, err)
	return resp.Camp.ID
}

func (f *fixture) room(t *testing.T, campID, number, project string, capacity int) *domain.Room {
	t.Helper()
	resp, err := f.occupancy.CreateRoom(context.Background(), CreateRoomRequest{
		Actor: owner, CampID: campID, Number: number, Project: project, Capacity: capacity,
	})
	require.NoError(t, err)
	return resp.Room
}

func (f *fixture) worker(t *testing.T, campID, roomID, reg, project string) *domain.Worker {
	t.Helper()
	resp, err := f.occupancy.CreateWorker(context.Background(), CreateWorkerRequest{
		Actor: owner, CampID: campID, RoomID: roomID,
		Name: "Ali", Surname: "Veli", RegistrationNumber: reg, Project: project,
	})
	require.NoError(t, err)
	return resp.Worker
}

func (f *fixture) getRoom(t *testing.T, roomID string) *domain.Room {
	t.Helper()
	r, err := f.store.Rooms().GetRoom(context.Background(), roomID)
	require.NoError(t, err)
	return r
}

func (f *fixture) getCamp(t *testing.T, campID string) *domain.Camp {
	t.Helper()
	c, err := f.store.Camps().GetCamp(context.Background(), campID)
	require.NoError(t, err)
	return c
}

// requireConsistent checks the room/worker bookkeeping of the camp.
func (f *fixture) requireConsistent(t *testing.T, campID string) {
	t.Helper()
	rep, err := f.occupancy.CheckConsistency(context.Background(), CampRequest{Actor: owner, CampID: campID})
	require.NoError(t, err)
	require.Empty(t, rep.Issues)
}
