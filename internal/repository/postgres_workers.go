package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/domain"
)

const workerColumns = `worker_id, camp_id, name, surname, registration_number, project, company, room_id,
	entry_date, created_at, updated_at`

func scanWorker(row rowScanner) (*domain.Worker, error) {
	var w domain.Worker
	var roomID sql.NullString
	if err := row.Scan(
		&w.ID,
		&w.CampID,
		&w.Name,
		&w.Surname,
		&w.RegistrationNumber,
		&w.Project,
		&w.Company,
		&roomID,
		&w.EntryDate,
		&w.CreatedAt,
		&w.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if roomID.Valid {
		w.RoomID = roomID.String
	}
	return &w, nil
}

// nullableRoom stores an unassigned worker as NULL room_id.
func nullableRoom(roomID string) sql.NullString {
	return sql.NullString{String: roomID, Valid: roomID != ""}
}

func (r *pgRepos) GetWorker(ctx context.Context, workerID string) (*domain.Worker, error) {
	q := `SELECT ` + workerColumns + ` FROM workers WHERE worker_id = $1` + r.lockClause()
	w, err := scanWorker(r.q.QueryRowContext(ctx, q, workerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get worker: %w", err)
	}
	return w, nil
}

func (r *pgRepos) ListWorkers(ctx context.Context, filter WorkerFilter) ([]*domain.Worker, error) {
	var where whereBuilder
	if filter.CampID != "" {
		where.add("camp_id = ?", filter.CampID)
	}
	if filter.RoomID != "" {
		where.add("room_id = ?", filter.RoomID)
	}
	if filter.Project != "" {
		where.add("project = ?", filter.Project)
	}
	if filter.RegistrationNumber != "" {
		where.add("registration_number = ?", filter.RegistrationNumber)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		// every ? in one condition binds the same argument
		where.add("(name ILIKE ? OR surname ILIKE ? OR registration_number ILIKE ?)", likePattern(s))
	}
	q := `SELECT ` + workerColumns + ` FROM workers` + where.String() + ` ORDER BY registration_number, worker_id`

	rows, err := r.q.QueryContext(ctx, q, where.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Worker, 0)
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *pgRepos) CreateWorker(ctx context.Context, w *domain.Worker) error {
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now()
	}
	w.UpdatedAt = w.CreatedAt
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO workers (worker_id, camp_id, name, surname, registration_number, project, company,
			room_id, entry_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		w.ID, w.CampID, w.Name, w.Surname, w.RegistrationNumber, w.Project, w.Company,
		nullableRoom(w.RoomID), w.EntryDate, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return translatePgError(err)
	}
	return nil
}

func (r *pgRepos) UpdateWorker(ctx context.Context, w *domain.Worker) error {
	w.UpdatedAt = now()
	res, err := r.q.ExecContext(ctx, `
		UPDATE workers SET name = $2, surname = $3, registration_number = $4, project = $5, company = $6,
			room_id = $7, entry_date = $8, updated_at = $9
		WHERE worker_id = $1`,
		w.ID, w.Name, w.Surname, w.RegistrationNumber, w.Project, w.Company,
		nullableRoom(w.RoomID), w.EntryDate, w.UpdatedAt,
	)
	if err != nil {
		return translatePgError(err)
	}
	return checkAffected(res)
}

func (r *pgRepos) DeleteWorker(ctx context.Context, workerID string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM workers WHERE worker_id = $1`, workerID)
	if err != nil {
		return fmt.Errorf("failed to delete worker: %w", err)
	}
	return checkAffected(res)
}

func (r *pgRepos) DeleteWorkersByRoom(ctx context.Context, roomID string) (int, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM workers WHERE room_id = $1`, roomID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete workers of room: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
