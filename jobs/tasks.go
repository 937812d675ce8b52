package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-pos/meridian-access/internal/access"
	"github.com/meridian-pos/meridian-access/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeClaimsReconcile repairs the claims store from the document
	// store after a partial dual-write failure.
	TaskTypeClaimsReconcile = "claims:reconcile"
)

// ClaimsReconcilePayload names the user whose claims need realignment.
type ClaimsReconcilePayload struct {
	UID string `json:"uid"`
}

// NewClaimsReconcileTask constructs an Asynq task.
func NewClaimsReconcileTask(payload ClaimsReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeClaimsReconcile, data), nil
}

// Enqueuer schedules background tasks from the request path. It implements
// access.Reconciler.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer constructs an Enqueuer over the given Redis connection.
func NewEnqueuer(opts asynq.RedisClientOpt) *Enqueuer {
	return &Enqueuer{client: asynq.NewClient(opts)}
}

// EnqueueReconcile queues a claims repair for uid.
func (e *Enqueuer) EnqueueReconcile(ctx context.Context, uid string) error {
	task, err := NewClaimsReconcileTask(ClaimsReconcilePayload{UID: uid})
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	return err
}

// Close releases the underlying client connection.
func (e *Enqueuer) Close() error {
	return e.client.Close()
}

var _ access.Reconciler = (*Enqueuer)(nil)

// ReconcileHandler processes TaskTypeClaimsReconcile tasks. The document
// store is treated as the source of truth: the stored record is re-read and
// its role and permissions are rewritten into the claims store. A record
// that no longer exists makes the task a no-op.
type ReconcileHandler struct {
	Records access.RecordStore
	Claims  access.ClaimsStore
	Logger  *slog.Logger
}

// HandleClaimsReconcile realigns the claims store for the payload's user.
func (h *ReconcileHandler) HandleClaimsReconcile(ctx context.Context, t *asynq.Task) error {
	var payload ClaimsReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.UID == "" {
		return asynq.SkipRetry
	}

	rec, err := h.Records.Get(ctx, payload.UID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			if h.Logger != nil {
				h.Logger.Info("reconcile skipped, record missing", slog.String("uid", payload.UID))
			}
			return nil
		}
		return err
	}

	if err := h.Claims.SetClaims(ctx, payload.UID, access.ClaimSet{Role: rec.Role, Permissions: rec.Permissions}); err != nil {
		return err
	}
	if h.Logger != nil {
		h.Logger.Info("claims realigned from record", slog.String("uid", payload.UID), slog.String("role", string(rec.Role)))
	}
	return nil
}
