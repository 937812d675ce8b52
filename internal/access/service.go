package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridian-pos/meridian-access/internal/shared"
)

// ClaimsStore writes a user's custom claim set in the identity provider.
// Every write fully replaces the previous claims for that user.
type ClaimsStore interface {
	SetClaims(ctx context.Context, uid string, claims ClaimSet) error
}

// Reconciler schedules a best-effort repair of the claims store from the
// document store after a partial dual-write failure.
type Reconciler interface {
	EnqueueReconcile(ctx context.Context, uid string) error
}

// AuditRecorder persists audit trail entries. Satisfied by shared.AuditLogger.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// FailureCounter counts partial dual-write failures for observability.
// Satisfied by observability.Metrics.
type FailureCounter interface {
	CountDualWriteFailure(operation string)
}

// Service orchestrates role assignment and permission updates across the
// claims store and the document store. Both writes are attempted in sequence
// with no rollback: a partial failure leaves the stores inconsistent until a
// later successful write or a reconciliation task realigns them.
type Service struct {
	claims     ClaimsStore
	records    RecordStore
	reconciler Reconciler
	audit      AuditRecorder
	metrics    FailureCounter
	logger     *slog.Logger
	now        func() time.Time
}

// NewService constructs a Service. reconciler, audit and metrics may be nil.
func NewService(logger *slog.Logger, claims ClaimsStore, records RecordStore, reconciler Reconciler, audit AuditRecorder, metrics FailureCounter) *Service {
	return &Service{
		claims:     claims,
		records:    records,
		reconciler: reconciler,
		audit:      audit,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// AssignRole sets uid's role and resets their permissions to the role
// defaults, discarding any prior per-module customization. Only admins may
// call it.
func (s *Service) AssignRole(ctx context.Context, actor Claims, uid string, roleName string) (Role, error) {
	if err := s.requireAdmin(actor); err != nil {
		return "", err
	}
	role, err := ParseRole(roleName)
	if err != nil {
		return "", err
	}
	perms, err := DefaultsFor(role)
	if err != nil {
		return "", err
	}

	if err := s.claims.SetClaims(ctx, uid, ClaimSet{Role: role, Permissions: perms}); err != nil {
		return "", fmt.Errorf("claims store: %w", err)
	}
	if err := s.writeRecord(ctx, uid, role, perms); err != nil {
		// The claims write already landed; the stores now disagree.
		s.partialFailure(ctx, "assign_role", uid)
		return "", fmt.Errorf("document store: %w", err)
	}

	s.recordAudit(ctx, actor.UID, "access.assign_role", uid, map[string]any{"role": role})
	return role, nil
}

// UpdatePermissions applies a partial permission patch to uid's record and
// mirrors the merged result into the claims store. The role is taken from
// the stored record, never from the caller, so the two stores stay
// role-aligned. Only admins may call it.
func (s *Service) UpdatePermissions(ctx context.Context, actor Claims, uid string, patch map[string]json.RawMessage) (PermissionSet, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}

	rec, err := s.records.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("document store: %w", err)
	}

	current := rec.Permissions
	if current == nil {
		current = PermissionSet{}
	}
	merged, err := Merge(current, patch)
	if err != nil {
		return nil, err
	}

	if err := s.records.SetPermissions(ctx, uid, merged); err != nil {
		return nil, fmt.Errorf("document store: %w", err)
	}
	if err := s.claims.SetClaims(ctx, uid, ClaimSet{Role: rec.Role, Permissions: merged}); err != nil {
		// Document write landed, claims write did not.
		s.partialFailure(ctx, "update_permissions", uid)
		return nil, fmt.Errorf("claims store: %w", err)
	}

	s.recordAudit(ctx, actor.UID, "access.update_permissions", uid, map[string]any{"modules": patchKeys(patch)})
	return merged, nil
}

// Bootstrap provisions uid as the first administrator with the full
// permission set. The caller is trusted; the shared-secret gate lives at the
// transport layer since no admin exists yet to authorize against. Repeat
// calls overwrite the record, creation timestamp included.
func (s *Service) Bootstrap(ctx context.Context, uid string) error {
	perms, err := DefaultsFor(RoleAdmin)
	if err != nil {
		return err
	}

	if err := s.claims.SetClaims(ctx, uid, ClaimSet{Role: RoleAdmin, Permissions: perms}); err != nil {
		return fmt.Errorf("claims store: %w", err)
	}
	rec := &AccessRecord{UID: uid, Role: RoleAdmin, Permissions: perms, CreatedAt: s.now().UTC()}
	if err := s.records.Put(ctx, rec); err != nil {
		s.partialFailure(ctx, "bootstrap", uid)
		return fmt.Errorf("document store: %w", err)
	}

	s.recordAudit(ctx, uid, "access.bootstrap", uid, nil)
	return nil
}

func (s *Service) requireAdmin(actor Claims) error {
	if actor.Role != RoleAdmin {
		return shared.ErrForbidden
	}
	return nil
}

// writeRecord updates an existing record in place, preserving its creation
// timestamp, or creates a fresh one.
func (s *Service) writeRecord(ctx context.Context, uid string, role Role, perms PermissionSet) error {
	err := s.records.SetAccess(ctx, uid, role, perms)
	if errors.Is(err, shared.ErrNotFound) {
		return s.records.Put(ctx, &AccessRecord{UID: uid, Role: role, Permissions: perms, CreatedAt: s.now().UTC()})
	}
	return err
}

// partialFailure records that one store was written and the other was not,
// and schedules a best-effort repair from the document store.
func (s *Service) partialFailure(ctx context.Context, operation, uid string) {
	if s.metrics != nil {
		s.metrics.CountDualWriteFailure(operation)
	}
	if s.reconciler == nil {
		return
	}
	if err := s.reconciler.EnqueueReconcile(ctx, uid); err != nil && s.logger != nil {
		s.logger.Error("enqueue claims reconcile", slog.String("uid", uid), slog.Any("error", err))
	}
}

func (s *Service) recordAudit(ctx context.Context, actorUID, action, targetUID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	entry := shared.AuditLog{
		ActorUID: actorUID,
		Action:   action,
		Entity:   "user_access_record",
		EntityID: targetUID,
		Meta:     meta,
	}
	if err := s.audit.Record(ctx, entry); err != nil && s.logger != nil {
		s.logger.Warn("record audit", slog.String("action", action), slog.Any("error", err))
	}
}

func patchKeys(patch map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	return keys
}
