package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/assetdesk/assetdesk/internal/identity"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSessionPrune is the task type for expiring stale session audit rows.
	TaskTypeSessionPrune = "sessions:prune"
)

// SessionPrunePayload carries parameters for a prune run.
type SessionPrunePayload struct {
	RequestedAt time.Time `json:"requested_at"`
}

// NewSessionPruneTask constructs an Asynq task.
func NewSessionPruneTask() (*asynq.Task, error) {
	data, err := json.Marshal(SessionPrunePayload{RequestedAt: time.Now().UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSessionPrune, data), nil
}

// SessionPruneJob deletes expired session rows from storage.
type SessionPruneJob struct {
	service *identity.Service
	logger  *slog.Logger
}

// NewSessionPruneJob constructs a SessionPruneJob.
func NewSessionPruneJob(service *identity.Service, logger *slog.Logger) *SessionPruneJob {
	return &SessionPruneJob{service: service, logger: logger}
}

// Handle processes TaskTypeSessionPrune tasks.
func (j *SessionPruneJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SessionPrunePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	pruned, err := j.service.PruneSessions(ctx)
	if err != nil {
		return err
	}
	if j.logger != nil {
		j.logger.Info("session prune completed", slog.Int64("pruned", pruned))
	}
	return nil
}
