package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/domain"

	"github.com/lib/pq"
)

const campColumns = `camp_id, name, description, owner_email, shared_with, read_code, write_code,
	rooms, is_public, public_sites, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCamp(row rowScanner) (*domain.Camp, error) {
	var c domain.Camp
	var sharedWith []byte
	if err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.OwnerEmail,
		&sharedWith,
		&c.ShareCodes.Read,
		&c.ShareCodes.Write,
		pq.Array(&c.Rooms),
		&c.IsPublic,
		pq.Array(&c.PublicSites),
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(sharedWith) > 0 {
		if err := json.Unmarshal(sharedWith, &c.SharedWith); err != nil {
			return nil, fmt.Errorf("failed to decode shared_with: %w", err)
		}
	}
	return c.Clone(), nil
}

func marshalShares(shares []domain.Share) ([]byte, error) {
	if shares == nil {
		shares = []domain.Share{}
	}
	return json.Marshal(shares)
}

func (r *pgRepos) GetCamp(ctx context.Context, campID string) (*domain.Camp, error) {
	q := `SELECT ` + campColumns + ` FROM camps WHERE camp_id = $1` + r.lockClause()
	c, err := scanCamp(r.q.QueryRowContext(ctx, q, campID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get camp: %w", err)
	}
	return c, nil
}

func (r *pgRepos) FindCampByShareCode(ctx context.Context, code string) (*domain.Camp, error) {
	if code == "" {
		return nil, ErrNotFound
	}
	q := `SELECT ` + campColumns + ` FROM camps WHERE read_code = $1 OR write_code = $1 LIMIT 1` + r.lockClause()
	c, err := scanCamp(r.q.QueryRowContext(ctx, q, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find camp by share code: %w", err)
	}
	return c, nil
}

func (r *pgRepos) ListCamps(ctx context.Context, filter CampFilter) ([]*domain.Camp, error) {
	q := `SELECT ` + campColumns + ` FROM camps`
	var args []any
	if !filter.All {
		q += ` WHERE lower(owner_email) = lower($1)
			OR EXISTS (
				SELECT 1 FROM jsonb_array_elements(shared_with) s
				WHERE lower(s->>'email') = lower($1)
			)`
		args = append(args, filter.Email)
	}
	q += ` ORDER BY created_at, camp_id`

	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list camps: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Camp, 0)
	for rows.Next() {
		c, err := scanCamp(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *pgRepos) CreateCamp(ctx context.Context, camp *domain.Camp) error {
	shares, err := marshalShares(camp.SharedWith)
	if err != nil {
		return err
	}
	if camp.CreatedAt.IsZero() {
		camp.CreatedAt = now()
	}
	camp.UpdatedAt = camp.CreatedAt
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO camps (camp_id, name, description, owner_email, shared_with, read_code, write_code,
			rooms, is_public, public_sites, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9, $10, $11, $12)`,
		camp.ID, camp.Name, camp.Description, camp.OwnerEmail, string(shares),
		camp.ShareCodes.Read, camp.ShareCodes.Write,
		pq.Array(nonNil(camp.Rooms)), camp.IsPublic, pq.Array(nonNil(camp.PublicSites)),
		camp.CreatedAt, camp.UpdatedAt,
	)
	if err != nil {
		return translatePgError(err)
	}
	return nil
}

func (r *pgRepos) UpdateCamp(ctx context.Context, camp *domain.Camp) error {
	shares, err := marshalShares(camp.SharedWith)
	if err != nil {
		return err
	}
	camp.UpdatedAt = now()
	res, err := r.q.ExecContext(ctx, `
		UPDATE camps SET name = $2, description = $3, owner_email = $4, shared_with = $5::jsonb,
			read_code = $6, write_code = $7, rooms = $8, is_public = $9, public_sites = $10,
			updated_at = $11
		WHERE camp_id = $1`,
		camp.ID, camp.Name, camp.Description, camp.OwnerEmail, string(shares),
		camp.ShareCodes.Read, camp.ShareCodes.Write,
		pq.Array(nonNil(camp.Rooms)), camp.IsPublic, pq.Array(nonNil(camp.PublicSites)),
		camp.UpdatedAt,
	)
	if err != nil {
		return translatePgError(err)
	}
	return checkAffected(res)
}

func (r *pgRepos) DeleteCamp(ctx context.Context, campID string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM camps WHERE camp_id = $1`, campID)
	if err != nil {
		return fmt.Errorf("failed to delete camp: %w", translatePgError(err))
	}
	return checkAffected(res)
}

// nonNil keeps NOT NULL TEXT[] columns as '{}' instead of NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
