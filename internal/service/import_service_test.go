package service

import (
	"context"
	"testing"
	"time"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/domain"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/events"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/repository"
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/spreadsheet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportService_ImportRooms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	campID := f.camp(t)

	res, err := f.imports.ImportRooms(ctx, ImportRoomsRequest{Actor: owner, CampID: campID, Rows: []spreadsheet.RoomRow{
		{Row: 2, Number: "5", Site: "Site A", Capacity: "3"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Success)
	assert.Zero(t, res.Failed)
	assert.Empty(t, res.Errors)

	rooms, err := f.store.Rooms().ListRooms(ctx, repository.RoomFilter{CampID: campID, Number: "5"})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "Site A", rooms[0].Project)
	assert.Equal(t, 3, rooms[0].Capacity)
	assert.Equal(t, 3, rooms[0].AvailableBeds)
	assert.Equal(t, []string{rooms[0].ID}, f.getCamp(t, campID).Rooms)
	assert.Contains(t, f.events.types(), events.RoomsImported)
}

func TestImportService_ImportRooms_PartialFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	campID := f.camp(t)
	existing := f.room(t, campID, "10", "Site A", 2)
	f.worker(t, campID, existing.ID, "W1", "Site A")
	f.worker(t, campID, existing.ID, "W2", "Site A")

	res, err := f.imports.ImportRooms(ctx, ImportRoomsRequest{Actor: owner, CampID: campID, Rows: []spreadsheet.RoomRow{
		{Row: 2, Number: "1", Site: "Site A", Capacity: "4"},
		{Row: 3, Number: "2", Site: "Site A", Capacity: "many"},
		{Row: 4, Number: "10", Site: "Site B", Capacity: "4"},
		{Row: 5, Number: "10", Site: "Site A", Capacity: "1"},
		{Row: 6, Number: "", Site: "Site A", Capacity: "1"},
		{Row: 7, Number: "3", Site: "Site B", Capacity: "2"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Success)
	assert.Equal(t, 4, res.Failed)
	require.Len(t, res.Errors, 4)
	assert.Contains(t, res.Errors[0], "row 3:")
	assert.Contains(t, res.Errors[1], "row 4:")
	assert.Contains(t, res.Errors[2], "row 5:")
	assert.Contains(t, res.Errors[3], "row 6:")

	rooms, err := f.store.Rooms().ListRooms(ctx, repository.RoomFilter{CampID: campID})
	require.NoError(t, err)
	assert.Len(t, rooms, 3)
	assert.Equal(t, 2, f.getRoom(t, existing.ID).Capacity)
	f.requireConsistent(t, campID)
}

func TestImportService_ImportRooms_UpdatesCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	campID := f.camp(t)
	room := f.room(t, campID, "10", "Site A", 2)
	f.worker(t, campID, room.ID, "W1", "Site A")

	res, err := f.imports.ImportRooms(ctx, ImportRoomsRequest{Actor: owner, CampID: campID, Rows: []spreadsheet.RoomRow{
		{Row: 2, Number: "10", Site: "Site A", Capacity: "6"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Success)

	got := f.getRoom(t, room.ID)
	assert.Equal(t, 6, got.Capacity)
	assert.Equal(t, 5, got.AvailableBeds)
	assert.Len(t, got.Workers, 1)
}

func TestImportService_ImportRooms_Rejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	campID := f.camp(t)

	_, err := f.imports.ImportRooms(ctx, ImportRoomsRequest{Actor: owner, CampID: campID})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.imports.ImportRooms(ctx, ImportRoomsRequest{Actor: stranger, CampID: campID, Rows: []spreadsheet.RoomRow{
		{Row: 2, Number: "1", Site: "Site A", Capacity: "1"},
	}})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestImportService_ImportWorkers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	campID := f.camp(t)
	room := f.room(t, campID, "101", "Site A", 2)
	fixed := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	f.imports.(*importService).now = func() time.Time { return fixed }

	res, err := f.imports.ImportWorkers(ctx, ImportWorkersRequest{Actor: owner, CampID: campID, Rows: []spreadsheet.WorkerRow{
		{Row: 2, RegistrationNumber: "S-1", FullName: "Ahmet Can Yılmaz", Room: "101", Site: "Site A", EntryDate: "15.01.2024"},
		{Row: 3, RegistrationNumber: "S-2", FullName: "Cher", Site: "Site B"},
		{Row: 4, RegistrationNumber: "S-1", FullName: "Tekrar Kişi", Room: "101", Site: "Site A"},
		{Row: 5, RegistrationNumber: "S-3", FullName: "Yok Oda", Room: "999", Site: "Site A"},
		{Row: 6, RegistrationNumber: "S-4", FullName: "Dolu Oda", Room: "101", Site: "Site A"},
		{Row: 7, RegistrationNumber: "S-5", FullName: "Taşan Kişi", Room: "101", Site: "Site A"},
		{Row: 8, RegistrationNumber: "", FullName: "Numarasız", Site: "Site A"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Success)
	assert.Equal(t, 4, res.Failed)
	require.Len(t, res.Errors, 4)
	assert.Contains(t, res.Errors[0], "row 4:")
	assert.Contains(t, res.Errors[1], "row 5:")
	assert.Contains(t, res.Errors[2], "row 7:")
	assert.Contains(t, res.Errors[3], "row 8:")

	workers, err := f.store.Workers().ListWorkers(ctx, repository.WorkerFilter{CampID: campID})
	require.NoError(t, err)
	require.Len(t, workers, 3)

	first := workers[0]
	assert.Equal(t, "S-1", first.RegistrationNumber)
	assert.Equal(t, "Ahmet Can", first.Name)
	assert.Equal(t, "Yılmaz", first.Surname)
	assert.Equal(t, room.ID, first.RoomID)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), first.EntryDate.UTC())

	single := workers[1]
	assert.Equal(t, "Cher", single.Name)
	assert.Equal(t, domain.SurnamePlaceholder, single.Surname)
	assert.Empty(t, single.RoomID)
	assert.Equal(t, fixed, single.EntryDate)

	got := f.getRoom(t, room.ID)
	assert.Equal(t, 0, got.AvailableBeds)
	assert.Len(t, got.Workers, 2)
	f.requireConsistent(t, campID)
}

func TestImportService_DuplicateReportedBeforeCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	campID := f.camp(t)
	room := f.room(t, campID, "101", "Site A", 1)
	f.worker(t, campID, room.ID, "S-1", "Site A")

	res, err := f.imports.ImportWorkers(ctx, ImportWorkersRequest{Actor: owner, CampID: campID, Rows: []spreadsheet.WorkerRow{
		{Row: 2, RegistrationNumber: "S-1", FullName: "Ali Veli", Room: "101", Site: "Site A"},
	}})
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "already exists")
}
