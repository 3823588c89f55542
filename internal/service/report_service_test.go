package service

import (
	"context"
	"testing"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReport(t *testing.T) {
	rooms := []*domain.Room{
		{ID: "r1", Number: "101", Project: "Site A", Capacity: 5},
		{ID: "r2", Number: "102", Project: "Site B", Capacity: 2},
		{ID: "r3", Number: "103", Project: "Site B", Capacity: 0},
	}
	workers := []*domain.Worker{
		{ID: "w1", RoomID: "r1", Project: "Site A"},
		{ID: "w2", RoomID: "r1", Project: "Site B"},
		{ID: "w3", RoomID: "r2", Project: "Site B"},
		{ID: "w4", RoomID: "r2", Project: "Site B"},
		{ID: "w5", Project: "Site A"},
	}

	rep := BuildReport("c1", nil, rooms, workers)
	assert.Equal(t, 3, rep.TotalRooms)
	assert.Equal(t, 7, rep.TotalCapacity)
	assert.Equal(t, 4, rep.TotalWorkers)
	assert.Equal(t, 3, rep.AvailableBeds)
	assert.Equal(t, 57.14, rep.OccupancyRate)
	assert.Equal(t, 1, rep.UnassignedWorkers)
	assert.Equal(t, []string{"Site A", "Site B"}, rep.Sites)

	require.Len(t, rep.BySite, 2)
	siteA := rep.BySite[0]
	assert.Equal(t, 40.0, siteA.OccupancyRate)
	assert.Equal(t, 1, siteA.SameProjectWorkers)
	assert.Equal(t, 1, siteA.CrossProjectWorkers)
	assert.Equal(t, 100.0, rep.BySite[1].OccupancyRate)

	require.NotNil(t, rep.MostOccupiedRoom)
	assert.Equal(t, "102", rep.MostOccupiedRoom.Number)
	assert.Equal(t, "103", rep.LeastOccupiedRoom.Number)
	assert.Zero(t, rep.LeastOccupiedRoom.OccupancyRate)

	onlyA := BuildReport("c1", []string{"Site A"}, rooms, workers)
	assert.Equal(t, 1, onlyA.TotalRooms)
	assert.Equal(t, 2, onlyA.TotalWorkers)
	assert.Equal(t, 40.0, onlyA.OccupancyRate)
	assert.Equal(t, 1, onlyA.UnassignedWorkers)
}

func TestBuildReport_Empty(t *testing.T) {
	rep := BuildReport("c1", nil, nil, nil)
	assert.Zero(t, rep.OccupancyRate)
	assert.Nil(t, rep.MostOccupiedRoom)
	assert.Empty(t, rep.BySite)
}

func TestReportService_Stats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	campID := f.camp(t)
	room := f.room(t, campID, "101", "Site A", 5)
	f.worker(t, campID, room.ID, "W1", "Site A")
	f.worker(t, campID, room.ID, "W2", "Site A")
	w3 := f.worker(t, campID, "", "W3", "Site A")

	rep, err := f.reports.Stats(ctx, StatsRequest{Actor: owner, CampID: campID})
	require.NoError(t, err)
	assert.Equal(t, 40.0, rep.OccupancyRate)
	assert.Equal(t, 3, rep.AvailableBeds)

	// 绕过服务直接改库：缓存命中时结果不变
	w3.RoomID = room.ID
	require.NoError(t, f.store.Workers().UpdateWorker(ctx, w3))
	cached, err := f.reports.Stats(ctx, StatsRequest{Actor: owner, CampID: campID})
	require.NoError(t, err)
	assert.Equal(t, 2, cached.TotalWorkers)

	// 经服务的变更使缓存失效
	f.worker(t, campID, room.ID, "W4", "Site A")
	fresh, err := f.reports.Stats(ctx, StatsRequest{Actor: owner, CampID: campID})
	require.NoError(t, err)
	assert.Equal(t, 4, fresh.TotalWorkers)
	assert.Equal(t, 80.0, fresh.OccupancyRate)
}

func TestReportService_PublicSites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	resp, err := f.camps.CreateCamp(ctx, CreateCampRequest{
		Actor: owner, Name: "Açık Kamp", IsPublic: true, PublicSites: []string{"Site A"},
	})
	require.NoError(t, err)
	campID := resp.Camp.ID
	f.room(t, campID, "101", "Site A", 2)
	f.room(t, campID, "201", "Site B", 2)

	pub, err := f.reports.Stats(ctx, StatsRequest{Actor: stranger, CampID: campID})
	require.NoError(t, err)
	assert.Equal(t, []string{"Site A"}, pub.Sites)
	assert.Equal(t, 1, pub.TotalRooms)

	_, err = f.reports.Stats(ctx, StatsRequest{Actor: stranger, CampID: campID, Site: "Site B"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	all, err := f.reports.Stats(ctx, StatsRequest{Actor: owner, CampID: campID})
	require.NoError(t, err)
	assert.Equal(t, 2, all.TotalRooms)

	narrowed, err := f.reports.Stats(ctx, StatsRequest{Actor: owner, CampID: campID, Site: "Site B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Site B"}, narrowed.Sites)
}
