package repository

import (
	"context"
	"fmt"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/domain"
)

// SaveAttendance: upsert on UNIQUE (site, personnel_id, date_key); the id of an
// existing row is kept and written back into a.
func (r *pgRepos) SaveAttendance(ctx context.Context, a *domain.Attendance) error {
	a.UpdatedAt = now()
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO attendance (attendance_id, site, personnel_id, date_key, status, note, recorded_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (site, personnel_id, date_key)
		DO UPDATE SET status = EXCLUDED.status,
		              note = EXCLUDED.note,
		              recorded_by = EXCLUDED.recorded_by,
		              updated_at = EXCLUDED.updated_at
		RETURNING attendance_id`,
		a.ID, a.Site, a.PersonnelID, a.DateKey, a.Status, a.Note, a.RecordedBy, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to save attendance: %w", translatePgError(err))
	}
	return nil
}

func (r *pgRepos) ListAttendance(ctx context.Context, filter AttendanceFilter) ([]*domain.Attendance, error) {
	var where whereBuilder
	if filter.Site != "" {
		where.add("site = ?", filter.Site)
	}
	if filter.PersonnelID != "" {
		where.add("personnel_id = ?", filter.PersonnelID)
	}
	if filter.From != "" {
		where.add("date_key >= ?", filter.From)
	}
	if filter.To != "" {
		where.add("date_key <= ?", filter.To)
	}
	q := `SELECT attendance_id, site, personnel_id, date_key, status, note, recorded_by, updated_at
		FROM attendance` + where.String() + ` ORDER BY date_key, personnel_id`

	rows, err := r.q.QueryContext(ctx, q, where.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Attendance, 0)
	for rows.Next() {
		var a domain.Attendance
		if err := rows.Scan(&a.ID, &a.Site, &a.PersonnelID, &a.DateKey, &a.Status, &a.Note, &a.RecordedBy, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *pgRepos) DeleteAttendanceByPersonnel(ctx context.Context, personnelID string) (int, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM attendance WHERE personnel_id = $1`, personnelID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete attendance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
