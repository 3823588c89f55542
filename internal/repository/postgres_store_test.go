package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockStore(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresStore(db)
}

var roomColumnNames = []string{
	"room_id", "camp_id", "number", "capacity", "available_beds", "company", "project", "workers",
	"created_at", "updated_at",
}

func TestPostgresStore_GetRoom(t *testing.T) {
	db, mock, st := setupMockStore(t)
	defer db.Close()

	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT room_id, camp_id, number`).
		WithArgs("room-1").
		WillReturnRows(sqlmock.NewRows(roomColumnNames).
			AddRow("room-1", "camp-1", "101", 3, 1, "Acme", "Site A", "{w1,w2}", ts, ts))

	room, err := st.Rooms().GetRoom(context.Background(), "room-1")
	require.NoError(t, err)
	assert.Equal(t, "101", room.Number)
	assert.Equal(t, []string{"w1", "w2"}, room.Workers)
	assert.True(t, room.Consistent())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRoom_NotFound(t *testing.T) {
	db, mock, st := setupMockStore(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT room_id, camp_id, number`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(roomColumnNames))

	_, err := st.Rooms().GetRoom(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRooms_FilterAndOrder(t *testing.T) {
	db, mock, st := setupMockStore(t)
	defer db.Close()

	ts := time.Now()
	mock.ExpectQuery(`FROM rooms WHERE camp_id = \$1 AND project = \$2 ORDER BY number`).
		WithArgs("camp-1", "Site A").
		WillReturnRows(sqlmock.NewRows(roomColumnNames).
			AddRow("r10", "camp-1", "10", 2, 2, "", "Site A", "{}", ts, ts).
			AddRow("r2", "camp-1", "2", 2, 2, "", "Site A", "{}", ts, ts))

	rooms, err := st.Rooms().ListRooms(context.Background(), RoomFilter{CampID: "camp-1", Project: "Site A"})
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "2", rooms[0].Number)
	assert.Equal(t, "10", rooms[1].Number)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateWorker_Duplicate(t *testing.T) {
	db, mock, st := setupMockStore(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO workers`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := st.Workers().CreateWorker(context.Background(), &domain.Worker{
		ID: "w1", CampID: "camp-1", Name: "Ali", Surname: "Veli", RegistrationNumber: "R-1", Project: "Site A",
	})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteCamp_StillReferenced(t *testing.T) {
	db, mock, st := setupMockStore(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM camps WHERE camp_id = \$1`).
		WithArgs("camp-1").
		WillReturnError(&pq.Error{Code: "23503", Message: "update or delete on table \"camps\" violates foreign key constraint"})

	err := st.Camps().DeleteCamp(context.Background(), "camp-1")
	assert.ErrorIs(t, err, ErrReferenced)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRoom_NotFound(t *testing.T) {
	db, mock, st := setupMockStore(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE rooms SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := st.Rooms().UpdateRoom(context.Background(), &domain.Room{ID: "gone", Capacity: 1})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RunInTx_Commit(t *testing.T) {
	db, mock, st := setupMockStore(t)
	defer db.Close()

	ts := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM rooms WHERE room_id = \$1 FOR UPDATE`).
		WithArgs("room-1").
		WillReturnRows(sqlmock.NewRows(roomColumnNames).
			AddRow("room-1", "camp-1", "101", 2, 2, "", "Site A", "{}", ts, ts))
	mock.ExpectExec(`UPDATE rooms SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := st.RunInTx(context.Background(), func(ctx context.Context, tx Repos) error {
		room, err := tx.Rooms().GetRoom(ctx, "room-1")
		if err != nil {
			return err
		}
		room.AddWorker("w1")
		return tx.Rooms().UpdateRoom(ctx, room)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RunInTx_Rollback(t *testing.T) {
	db, mock, st := setupMockStore(t)
	defer db.Close()

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM rooms`).WithArgs("room-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := st.RunInTx(context.Background(), func(ctx context.Context, tx Repos) error {
		if err := tx.Rooms().DeleteRoom(ctx, "room-1"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveAttendance_KeepsExistingID(t *testing.T) {
	db, mock, st := setupMockStore(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO attendance .* ON CONFLICT \(site, personnel_id, date_key\)`).
		WillReturnRows(sqlmock.NewRows([]string{"attendance_id"}).AddRow("existing-id"))

	a := &domain.Attendance{ID: "new-id", Site: "Site A", PersonnelID: "p1", DateKey: "2025-05-20", Status: "present"}
	require.NoError(t, st.Attendance().SaveAttendance(context.Background(), a))
	assert.Equal(t, "existing-id", a.ID)
	assert.False(t, a.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompareRoomNumbers(t *testing.T) {
	assert.Negative(t, CompareRoomNumbers("2", "10"))
	assert.Positive(t, CompareRoomNumbers("A1", "10"))
	assert.Negative(t, CompareRoomNumbers("A1", "B1"))
	assert.Zero(t, CompareRoomNumbers(" 7", "7"))
	// extreme values must not wrap around
	assert.Negative(t, CompareRoomNumbers("-9223372036854775808", "1"))
	assert.Positive(t, CompareRoomNumbers("9223372036854775807", "-1"))
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, `%50\%\_off%`, likePattern("50%_off"))
}
