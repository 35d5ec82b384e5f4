package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/rs/zerolog"
)

// DefaultAuditRetentionDays applies when a prune task names no retention.
const DefaultAuditRetentionDays = 30

// AuditPruner deletes audit events older than a retention window.
type AuditPruner interface {
	DeleteOldEvents(retention time.Duration) (int64, error)
}

// PruneAuditTask trims the audit log. It is enqueued once at startup.
type PruneAuditTask struct {
	RetentionDays int `json:"retention_days"`
}

func (t PruneAuditTask) Config() backlite.QueueConfig {
	return queueConfig("prune_audit_log", 3, 5*time.Minute, 2*time.Minute)
}

func (t PruneAuditTask) retention() time.Duration {
	days := t.RetentionDays
	if days <= 0 {
		days = DefaultAuditRetentionDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// NewPruneAuditQueue returns the queue running PruneAuditTask against pruner.
func NewPruneAuditQueue(pruner AuditPruner, logger zerolog.Logger) backlite.Queue {
	return backlite.NewQueue(pruneAudit(pruner, logger))
}

func pruneAudit(pruner AuditPruner, logger zerolog.Logger) backlite.QueueProcessor[PruneAuditTask] {
	return func(_ context.Context, task PruneAuditTask) error {
		if pruner == nil {
			return errors.New("prune audit log: no audit store")
		}
		keep := task.retention()
		n, err := pruner.DeleteOldEvents(keep)
		if err != nil {
			return fmt.Errorf("prune audit log: %w", err)
		}
		logger.Info().Int64("deleted", n).Dur("retention", keep).Msg("audit log pruned")
		return nil
	}
}
