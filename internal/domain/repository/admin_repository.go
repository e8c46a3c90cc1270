package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"podpal/internal/common"
	"podpal/internal/domain/model"
)

// adminBootstrapLock serialises first-admin creation across concurrent requests.
const adminBootstrapLock = 7_420_001

type pgAdminRepository struct {
	pool PgxPool
	now  func() time.Time
}

func NewPgAdminRepository(pool PgxPool) AdminRepository {
	return &pgAdminRepository{pool: pool, now: time.Now}
}

func (r *pgAdminRepository) Create(ctx context.Context, admin *model.Admin) error {
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = r.now().UTC()
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO admins (id, username, email, password_hash, created_at)
	          VALUES ($1, $2, $3, $4, $5)`,
		admin.ID, admin.Username, admin.Email, admin.PasswordHash, admin.CreatedAt)
	if err != nil {
		return fmt.Errorf("pgAdminRepository.Create: %w", translatePgError(err))
	}
	return nil
}

func (r *pgAdminRepository) CreateFirst(ctx context.Context, admin *model.Admin) error {
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = r.now().UTC()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // Rollback if not committed

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, adminBootstrapLock); err != nil {
		return fmt.Errorf("acquire admin bootstrap lock: %w", err)
	}

	var count int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count); err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("an admin already exists: %w", common.ErrForbidden)
	}

	_, err = tx.Exec(ctx, `INSERT INTO admins (id, username, email, password_hash, created_at)
	          VALUES ($1, $2, $3, $4, $5)`,
		admin.ID, admin.Username, admin.Email, admin.PasswordHash, admin.CreatedAt)
	if err != nil {
		return fmt.Errorf("pgAdminRepository.CreateFirst: %w", translatePgError(err))
	}
	return tx.Commit(ctx)
}

func (r *pgAdminRepository) FindByIdentifier(ctx context.Context, id model.Identifier) (*model.Admin, error) {
	var where string
	switch id.Kind {
	case model.IdentifierEmail:
		where = `email = $1`
	case model.IdentifierName:
		where = `username = $1`
	default:
		return nil, fmt.Errorf("unsupported identifier kind %d: %w", id.Kind, common.ErrBadRequest)
	}

	a := &model.Admin{}
	err := r.pool.QueryRow(ctx, `SELECT id, username, email, password_hash, created_at
	          FROM admins WHERE `+where, id.Value).Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgAdminRepository.FindByIdentifier: %w", err)
	}
	return a, nil
}
