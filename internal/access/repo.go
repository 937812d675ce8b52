package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian-access/internal/shared"
)

// RecordStore defines persistence operations for per-user access records.
type RecordStore interface {
	// Get fetches the record for uid, or shared.ErrNotFound.
	Get(ctx context.Context, uid string) (*AccessRecord, error)
	// Put creates the record or fully replaces an existing one, creation
	// timestamp included.
	Put(ctx context.Context, rec *AccessRecord) error
	// SetAccess updates role and permissions in place, preserving the
	// creation timestamp. Returns shared.ErrNotFound when no record exists.
	SetAccess(ctx context.Context, uid string, role Role, perms PermissionSet) error
	// SetPermissions updates permissions only, leaving the role untouched.
	SetPermissions(ctx context.Context, uid string, perms PermissionSet) error
}

// PGRecordStore implements RecordStore using PostgreSQL with the permission
// set held in a jsonb column.
type PGRecordStore struct {
	pool *pgxpool.Pool
}

// NewRecordStore constructs a PostgreSQL record store.
func NewRecordStore(pool *pgxpool.Pool) *PGRecordStore {
	return &PGRecordStore{pool: pool}
}

// Get fetches the record for uid.
func (s *PGRecordStore) Get(ctx context.Context, uid string) (*AccessRecord, error) {
	const q = `SELECT role, permissions, created_at, updated_at FROM user_access_records WHERE uid = $1`
	var (
		role      string
		permsJSON []byte
		createdAt time.Time
		updatedAt time.Time
	)
	if err := s.pool.QueryRow(ctx, q, uid).Scan(&role, &permsJSON, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	perms := PermissionSet{}
	if len(permsJSON) > 0 {
		// Grant decoding normalizes any legacy boolean grants still on disk.
		if err := json.Unmarshal(permsJSON, &perms); err != nil {
			return nil, fmt.Errorf("decode permissions for %s: %w", uid, err)
		}
	}
	return &AccessRecord{
		UID:         uid,
		Role:        Role(role),
		Permissions: perms,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

// Put creates or fully replaces the record for rec.UID.
func (s *PGRecordStore) Put(ctx context.Context, rec *AccessRecord) error {
	permsJSON, err := json.Marshal(rec.Permissions)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO user_access_records (uid, role, permissions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (uid) DO UPDATE
		SET role = EXCLUDED.role,
		    permissions = EXCLUDED.permissions,
		    created_at = EXCLUDED.created_at,
		    updated_at = NOW()`
	_, err = s.pool.Exec(ctx, q, rec.UID, string(rec.Role), permsJSON, rec.CreatedAt.UTC())
	return err
}

// SetAccess updates role and permissions in place.
func (s *PGRecordStore) SetAccess(ctx context.Context, uid string, role Role, perms PermissionSet) error {
	permsJSON, err := json.Marshal(perms)
	if err != nil {
		return err
	}
	const q = `UPDATE user_access_records SET role = $2, permissions = $3, updated_at = NOW() WHERE uid = $1`
	tag, err := s.pool.Exec(ctx, q, uid, string(role), permsJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetPermissions updates permissions only.
func (s *PGRecordStore) SetPermissions(ctx context.Context, uid string, perms PermissionSet) error {
	permsJSON, err := json.Marshal(perms)
	if err != nil {
		return err
	}
	const q = `UPDATE user_access_records SET permissions = $2, updated_at = NOW() WHERE uid = $1`
	tag, err := s.pool.Exec(ctx, q, uid, permsJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ RecordStore = (*PGRecordStore)(nil)
