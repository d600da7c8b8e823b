package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"superadmin/internal/model"
	"superadmin/internal/repository"
)

// AuditSummary aggregates audit entries over an optional time window.
type AuditSummary struct {
	TotalCount       int64            `json:"totalCount"`
	ActionCounts     []ActionCount    `json:"actionCounts"`
	TargetTypeCounts []TargetCount    `json:"targetTypeCounts"`
	RecentActivity   []model.AuditLog `json:"-"`
}

// ActionCount is the number of entries for one action.
type ActionCount struct {
	Action string `json:"action"`
	Count  int64  `json:"count"`
}

// TargetCount is the number of entries for one target type.
type TargetCount struct {
	TargetType string `json:"targetType"`
	Count      int64  `json:"count"`
}

// AuditService records and queries the audit trail.
type AuditService interface {
	// Record writes an entry. Failures are logged, never returned.
	Record(ctx context.Context, actorID *uuid.UUID, action, targetType, targetID string, details interface{})
	List(ctx context.Context, filter repository.AuditFilter) ([]model.AuditLog, int64, error)
	Actions(ctx context.Context) ([]string, error)
	TargetTypes(ctx context.Context) ([]string, error)
	Summary(ctx context.Context, start, end *time.Time) (*AuditSummary, error)
	LatestByAction(ctx context.Context, action string) (*model.AuditLog, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

type auditService struct {
	repo repository.AuditLogRepository
	log  *zap.Logger
	now  func() time.Time
}

// NewAuditService creates a new audit service.
func NewAuditService(repo repository.AuditLogRepository, log *zap.Logger) AuditService {
	return &auditService{repo: repo, log: log, now: utcNow}
}

func (s *auditService) Record(ctx context.Context, actorID *uuid.UUID, action, targetType, targetID string, details interface{}) {
	entry := &model.AuditLog{
		ActorUserID: actorID,
		Action:      action,
		TargetType:  targetType,
		TargetID:    targetID,
		Details:     encodeDetails(details),
		Timestamp:   s.now(),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.log.Error("audit log write failed",
			zap.String("action", action),
			zap.String("target_type", targetType),
			zap.String("target_id", targetID),
			zap.Error(err))
	}
}

// encodeDetails keeps strings verbatim and stores everything else as JSON text.
func encodeDetails(details interface{}) string {
	switch d := details.(type) {
	case nil:
		return ""
	case string:
		return d
	default:
		raw, err := json.Marshal(d)
		if err != nil {
			return fmt.Sprint(d)
		}
		return string(raw)
	}
}

func (s *auditService) List(ctx context.Context, filter repository.AuditFilter) ([]model.AuditLog, int64, error) {
	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, total, nil
}

func (s *auditService) Actions(ctx context.Context) ([]string, error) {
	return s.repo.DistinctActions(ctx)
}

func (s *auditService) TargetTypes(ctx context.Context) ([]string, error) {
	return s.repo.DistinctTargetTypes(ctx)
}

func (s *auditService) Summary(ctx context.Context, start, end *time.Time) (*AuditSummary, error) {
	total, err := s.repo.Count(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("count audit logs: %w", err)
	}
	byAction, err := s.repo.CountByAction(ctx, start, end, 0)
	if err != nil {
		return nil, fmt.Errorf("count by action: %w", err)
	}
	byTarget, err := s.repo.CountByTargetType(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("count by target type: %w", err)
	}
	recent, err := s.repo.Recent(ctx, 10)
	if err != nil {
		return nil, fmt.Errorf("recent audit logs: %w", err)
	}

	summary := &AuditSummary{
		TotalCount:       total,
		ActionCounts:     make([]ActionCount, 0, len(byAction)),
		TargetTypeCounts: make([]TargetCount, 0, len(byTarget)),
		RecentActivity:   recent,
	}
	for _, row := range byAction {
		summary.ActionCounts = append(summary.ActionCounts, ActionCount{Action: row.Name, Count: row.Total})
	}
	for _, row := range byTarget {
		summary.TargetTypeCounts = append(summary.TargetTypeCounts, TargetCount{TargetType: row.Name, Count: row.Total})
	}
	return summary, nil
}

func (s *auditService) LatestByAction(ctx context.Context, action string) (*model.AuditLog, error) {
	return s.repo.LatestByAction(ctx, action)
}

func (s *auditService) Prune(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.repo.DeleteBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("prune audit logs: %w", err)
	}
	return n, nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}
