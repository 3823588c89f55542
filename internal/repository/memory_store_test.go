package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RunInTx_Rollback(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.Rooms().CreateRoom(ctx, &domain.Room{ID: "r1", CampID: "c1", Number: "1", Capacity: 2, AvailableBeds: 2}))

	boom := errors.New("boom")
	err := st.RunInTx(ctx, func(ctx context.Context, tx Repos) error {
		room, err := tx.Rooms().GetRoom(ctx, "r1")
		require.NoError(t, err)
		room.AddWorker("w1")
		require.NoError(t, tx.Rooms().UpdateRoom(ctx, room))
		require.NoError(t, tx.Workers().CreateWorker(ctx, &domain.Worker{ID: "w1", CampID: "c1", RegistrationNumber: "R1", RoomID: "r1"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	room, err := st.Rooms().GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, room.Workers)
	assert.Equal(t, 2, room.AvailableBeds)
	_, err = st.Workers().GetWorker(ctx, "w1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_RunInTx_Commit(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	err := st.RunInTx(ctx, func(ctx context.Context, tx Repos) error {
		return tx.Camps().CreateCamp(ctx, &domain.Camp{ID: "c1", OwnerEmail: "a@example.com"})
	})
	require.NoError(t, err)
	camp, err := st.Camps().GetCamp(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", camp.OwnerEmail)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.Rooms().CreateRoom(ctx, &domain.Room{ID: "r1", CampID: "c1", Number: "1", Capacity: 1, AvailableBeds: 1}))

	room, err := st.Rooms().GetRoom(ctx, "r1")
	require.NoError(t, err)
	room.Workers = append(room.Workers, "intruder")

	again, err := st.Rooms().GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, again.Workers)
}

func TestMemoryStore_WorkerUniqueness(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.Workers().CreateWorker(ctx, &domain.Worker{ID: "w1", CampID: "c1", RegistrationNumber: "R1"}))

	err := st.Workers().CreateWorker(ctx, &domain.Worker{ID: "w2", CampID: "c1", RegistrationNumber: "R1"})
	assert.ErrorIs(t, err, ErrDuplicate)

	// 不同营地可以使用相同的登记号
	require.NoError(t, st.Workers().CreateWorker(ctx, &domain.Worker{ID: "w3", CampID: "c2", RegistrationNumber: "R1"}))

	n, err := st.Workers().DeleteWorkersByRoom(ctx, "none")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryStore_ListRoomsSorted(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	for _, n := range []string{"10", "B", "2", "1"} {
		require.NoError(t, st.Rooms().CreateRoom(ctx, &domain.Room{ID: "r" + n, CampID: "c1", Number: n, Capacity: 1}))
	}
	rooms, err := st.Rooms().ListRooms(ctx, RoomFilter{CampID: "c1"})
	require.NoError(t, err)
	var got []string
	for _, r := range rooms {
		got = append(got, r.Number)
	}
	assert.Equal(t, []string{"1", "2", "10", "B"}, got)
}

func TestMemoryStore_AttendanceUpsert(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	first := &domain.Attendance{ID: "a1", Site: "S", PersonnelID: "p1", DateKey: "2025-05-20", Status: "present"}
	require.NoError(t, st.Attendance().SaveAttendance(ctx, first))

	second := &domain.Attendance{ID: "a2", Site: "S", PersonnelID: "p1", DateKey: "2025-05-20", Status: "absent"}
	require.NoError(t, st.Attendance().SaveAttendance(ctx, second))
	assert.Equal(t, "a1", second.ID)

	list, err := st.Attendance().ListAttendance(ctx, AttendanceFilter{Site: "S", From: "2025-05-20", To: "2025-05-20"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "absent", list[0].Status)
}
