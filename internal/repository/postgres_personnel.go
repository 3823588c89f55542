package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/domain"
)

const personnelColumns = `personnel_id, site, employee_id, passport_number, first_name, last_name, position,
	company, status, hire_date, created_at, updated_at`

func scanPersonnel(row rowScanner) (*domain.Personnel, error) {
	var p domain.Personnel
	if err := row.Scan(
		&p.ID,
		&p.Site,
		&p.EmployeeID,
		&p.PassportNumber,
		&p.FirstName,
		&p.LastName,
		&p.Position,
		&p.Company,
		&p.Status,
		&p.HireDate,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pgRepos) GetPersonnel(ctx context.Context, personnelID string) (*domain.Personnel, error) {
	q := `SELECT ` + personnelColumns + ` FROM personnel WHERE personnel_id = $1` + r.lockClause()
	p, err := scanPersonnel(r.q.QueryRowContext(ctx, q, personnelID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get personnel: %w", err)
	}
	return p, nil
}

func (r *pgRepos) ListPersonnel(ctx context.Context, filter PersonnelFilter) ([]*domain.Personnel, error) {
	var where whereBuilder
	if filter.Site != "" {
		where.add("site = ?", filter.Site)
	}
	if filter.Status != "" {
		where.add("status = ?", filter.Status)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		where.add("(first_name ILIKE ? OR last_name ILIKE ? OR employee_id ILIKE ?)", likePattern(s))
	}
	q := `SELECT ` + personnelColumns + ` FROM personnel` + where.String() + ` ORDER BY employee_id`

	rows, err := r.q.QueryContext(ctx, q, where.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list personnel: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Personnel, 0)
	for rows.Next() {
		p, err := scanPersonnel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *pgRepos) CreatePersonnel(ctx context.Context, p *domain.Personnel) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}
	p.UpdatedAt = p.CreatedAt
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO personnel (personnel_id, site, employee_id, passport_number, first_name, last_name,
			position, company, status, hire_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.Site, p.EmployeeID, p.PassportNumber, p.FirstName, p.LastName,
		p.Position, p.Company, p.Status, p.HireDate, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return translatePgError(err)
	}
	return nil
}

func (r *pgRepos) UpdatePersonnel(ctx context.Context, p *domain.Personnel) error {
	p.UpdatedAt = now()
	res, err := r.q.ExecContext(ctx, `
		UPDATE personnel SET site = $2, employee_id = $3, passport_number = $4, first_name = $5,
			last_name = $6, position = $7, company = $8, status = $9, hire_date = $10, updated_at = $11
		WHERE personnel_id = $1`,
		p.ID, p.Site, p.EmployeeID, p.PassportNumber, p.FirstName,
		p.LastName, p.Position, p.Company, p.Status, p.HireDate, p.UpdatedAt,
	)
	if err != nil {
		return translatePgError(err)
	}
	return checkAffected(res)
}

func (r *pgRepos) DeletePersonnel(ctx context.Context, personnelID string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM personnel WHERE personnel_id = $1`, personnelID)
	if err != nil {
		return fmt.Errorf("failed to delete personnel: %w", err)
	}
	return checkAffected(res)
}
