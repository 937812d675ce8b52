package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-access/internal/access"
	"github.com/meridian-pos/meridian-access/internal/shared"
)

type fakeClaims struct {
	sets map[string]access.ClaimSet
	err  error
}

func (f *fakeClaims) SetClaims(ctx context.Context, uid string, claims access.ClaimSet) error {
	if f.err != nil {
		return f.err
	}
	f.sets[uid] = claims
	return nil
}

type fakeRecords struct {
	records map[string]*access.AccessRecord
	err     error
}

func (f *fakeRecords) Get(ctx context.Context, uid string) (*access.AccessRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.records[uid]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return rec, nil
}

func (f *fakeRecords) Put(ctx context.Context, rec *access.AccessRecord) error { return nil }

func (f *fakeRecords) SetAccess(ctx context.Context, uid string, role access.Role, perms access.PermissionSet) error {
	return nil
}

func (f *fakeRecords) SetPermissions(ctx context.Context, uid string, perms access.PermissionSet) error {
	return nil
}

func TestReconcileRewritesClaimsFromRecord(t *testing.T) {
	perms, err := access.DefaultsFor(access.RoleCashier)
	require.NoError(t, err)
	records := &fakeRecords{records: map[string]*access.AccessRecord{
		"u1": {UID: "u1", Role: access.RoleCashier, Permissions: perms},
	}}
	claims := &fakeClaims{sets: make(map[string]access.ClaimSet)}
	h := &ReconcileHandler{Records: records, Claims: claims}

	task, err := NewClaimsReconcileTask(ClaimsReconcilePayload{UID: "u1"})
	require.NoError(t, err)
	require.NoError(t, h.HandleClaimsReconcile(context.Background(), task))

	assert.Equal(t, access.ClaimSet{Role: access.RoleCashier, Permissions: perms}, claims.sets["u1"])
}

func TestReconcileMissingRecordIsNoOp(t *testing.T) {
	records := &fakeRecords{records: map[string]*access.AccessRecord{}}
	claims := &fakeClaims{sets: make(map[string]access.ClaimSet)}
	h := &ReconcileHandler{Records: records, Claims: claims}

	task, err := NewClaimsReconcileTask(ClaimsReconcilePayload{UID: "ghost"})
	require.NoError(t, err)
	require.NoError(t, h.HandleClaimsReconcile(context.Background(), task))
	assert.Empty(t, claims.sets)
}

func TestReconcileStoreErrorIsRetried(t *testing.T) {
	records := &fakeRecords{err: errors.New("connection reset")}
	h := &ReconcileHandler{Records: records, Claims: &fakeClaims{sets: make(map[string]access.ClaimSet)}}

	task, err := NewClaimsReconcileTask(ClaimsReconcilePayload{UID: "u1"})
	require.NoError(t, err)
	err = h.HandleClaimsReconcile(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry), "transient errors must stay retryable")
}

func TestReconcileBadPayloadSkipsRetry(t *testing.T) {
	h := &ReconcileHandler{Records: &fakeRecords{}, Claims: &fakeClaims{sets: make(map[string]access.ClaimSet)}}

	err := h.HandleClaimsReconcile(context.Background(), asynq.NewTask(TaskTypeClaimsReconcile, []byte("not-json")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	err = h.HandleClaimsReconcile(context.Background(), asynq.NewTask(TaskTypeClaimsReconcile, []byte(`{}`)))
	assert.True(t, errors.Is(err, asynq.SkipRetry), "empty uid")
}
