package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/domain"

	"github.com/lib/pq"
)

const roomColumns = `room_id, camp_id, number, capacity, available_beds, company, project, workers,
	created_at, updated_at`

func scanRoom(row rowScanner) (*domain.Room, error) {
	var room domain.Room
	if err := row.Scan(
		&room.ID,
		&room.CampID,
		&room.Number,
		&room.Capacity,
		&room.AvailableBeds,
		&room.Company,
		&room.Project,
		pq.Array(&room.Workers),
		&room.CreatedAt,
		&room.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return room.Clone(), nil
}

func (r *pgRepos) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	q := `SELECT ` + roomColumns + ` FROM rooms WHERE room_id = $1` + r.lockClause()
	room, err := scanRoom(r.q.QueryRowContext(ctx, q, roomID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

func (r *pgRepos) ListRooms(ctx context.Context, filter RoomFilter) ([]*domain.Room, error) {
	var where whereBuilder
	if filter.CampID != "" {
		where.add("camp_id = ?", filter.CampID)
	}
	if filter.Number != "" {
		where.add("number = ?", filter.Number)
	}
	if filter.Project != "" {
		where.add("project = ?", filter.Project)
	}
	q := `SELECT ` + roomColumns + ` FROM rooms` + where.String() + ` ORDER BY number`

	rows, err := r.q.QueryContext(ctx, q, where.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortRooms(out)
	return out, nil
}

func (r *pgRepos) CreateRoom(ctx context.Context, room *domain.Room) error {
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now()
	}
	room.UpdatedAt = room.CreatedAt
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO rooms (room_id, camp_id, number, capacity, available_beds, company, project, workers,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		room.ID, room.CampID, room.Number, room.Capacity, room.AvailableBeds,
		room.Company, room.Project, pq.Array(nonNil(room.Workers)),
		room.CreatedAt, room.UpdatedAt,
	)
	if err != nil {
		return translatePgError(err)
	}
	return nil
}

func (r *pgRepos) UpdateRoom(ctx context.Context, room *domain.Room) error {
	room.UpdatedAt = now()
	res, err := r.q.ExecContext(ctx, `
		UPDATE rooms SET number = $2, capacity = $3, available_beds = $4, company = $5, project = $6,
			workers = $7, updated_at = $8
		WHERE room_id = $1`,
		room.ID, room.Number, room.Capacity, room.AvailableBeds, room.Company, room.Project,
		pq.Array(nonNil(room.Workers)), room.UpdatedAt,
	)
	if err != nil {
		return translatePgError(err)
	}
	return checkAffected(res)
}

func (r *pgRepos) DeleteRoom(ctx context.Context, roomID string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM rooms WHERE room_id = $1`, roomID)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	return checkAffected(res)
}
