package repository

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"

	"client-vetting/internal/domain"
)

type RedFlagRepository interface {
	ListActiveByClientID(ctx context.Context, clientID string) ([]domain.ClientRedFlag, error)
	// CreateIfNoActive inserta el flag salvo que ya exista uno activo del mismo tipo.
	// Devuelve true si se creo.
	CreateIfNoActive(ctx context.Context, flag domain.ClientRedFlag) (bool, error)
}

type PgRedFlagRepository struct {
	pool *pgxpool.Pool
}

func NewPgRedFlagRepository(pool *pgxpool.Pool) *PgRedFlagRepository {
	return &PgRedFlagRepository{pool: pool}
}

func (r *PgRedFlagRepository) ListActiveByClientID(ctx context.Context, clientID string) ([]domain.ClientRedFlag, error) {
	const query = `
		SELECT id, client_id, flag_type, severity, description, detected_at, is_active
		FROM client_red_flags
		WHERE client_id = $1 AND is_active
		ORDER BY detected_at ASC
	`
	rows, err := r.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flags []domain.ClientRedFlag
	for rows.Next() {
		var f domain.ClientRedFlag
		var desc sql.NullString
		if err := rows.Scan(
			&f.ID,
			&f.ClientID,
			&f.FlagType,
			&f.Severity,
			&desc,
			&f.DetectedAt,
			&f.IsActive,
		); err != nil {
			return nil, err
		}
		f.Description = desc.String
		flags = append(flags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return flags, nil
}

func (r *PgRedFlagRepository) CreateIfNoActive(ctx context.Context, flag domain.ClientRedFlag) (bool, error) {
	const query = `
		INSERT INTO client_red_flags (id, client_id, flag_type, severity, description, detected_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		ON CONFLICT (client_id, lower(flag_type)) WHERE is_active
		DO NOTHING
	`
	tag, err := r.pool.Exec(ctx, query,
		flag.ID,
		flag.ClientID,
		flag.FlagType,
		string(flag.Severity),
		flag.Description,
		flag.DetectedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
