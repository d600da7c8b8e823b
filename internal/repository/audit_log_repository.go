package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"superadmin/internal/model"
)

// AuditFilter narrows an audit log listing. Date bounds are inclusive.
type AuditFilter struct {
	Page
	Sort
	UserName   string
	UserEmail  string
	Action     string
	TargetType string
	Start      *time.Time
	End        *time.Time
}

// ActorCount is the number of entries written by one actor.
type ActorCount struct {
	ActorUserID uuid.UUID `json:"actorUserId"`
	Total       int64     `json:"count" gorm:"column:total"`
}

// AuditLogRepository defines persistence operations for audit entries.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, filter AuditFilter) ([]model.AuditLog, int64, error)
	Recent(ctx context.Context, limit int) ([]model.AuditLog, error)
	LatestByAction(ctx context.Context, action string) (*model.AuditLog, error)
	DistinctActions(ctx context.Context) ([]string, error)
	DistinctTargetTypes(ctx context.Context) ([]string, error)
	Count(ctx context.Context, start, end *time.Time) (int64, error)
	CountByAction(ctx context.Context, start, end *time.Time, limit int) ([]NameCount, error)
	CountByTargetType(ctx context.Context, start, end *time.Time) ([]NameCount, error)
	CountActionSince(ctx context.Context, action string, since time.Time) (int64, error)
	TimestampsSince(ctx context.Context, action string, since time.Time) ([]time.Time, error)
	TopActors(ctx context.Context, since time.Time, limit int) ([]ActorCount, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository builds a GORM-backed repository.
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

var auditSortColumns = map[string]string{
	"timestamp":  "audit_logs.timestamp",
	"action":     "audit_logs.action",
	"targetType": "audit_logs.target_type",
}

func (r *auditLogRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	return r.db.WithContext(ctx).Omit("Actor").Create(entry).Error
}

func between(q *gorm.DB, column string, start, end *time.Time) *gorm.DB {
	if start != nil {
		q = q.Where(column+" >= ?", *start)
	}
	if end != nil {
		q = q.Where(column+" <= ?", *end)
	}
	return q
}

// List filters on actor name/email in SQL so pagination totals stay exact.
func (r *auditLogRepository) List(ctx context.Context, filter AuditFilter) ([]model.AuditLog, int64, error) {
	page := filter.Page.Normalize(50)

	q := r.db.WithContext(ctx).Model(&model.AuditLog{})
	if filter.UserName != "" || filter.UserEmail != "" {
		q = q.Joins("LEFT JOIN users ON users.id = audit_logs.actor_user_id")
		if filter.UserName != "" {
			q = q.Where("LOWER(users.name) LIKE ?", likePattern(filter.UserName))
		}
		if filter.UserEmail != "" {
			q = q.Where("LOWER(users.email) LIKE ?", likePattern(filter.UserEmail))
		}
	}
	if filter.Action != "" {
		q = q.Where("audit_logs.action = ?", filter.Action)
	}
	if filter.TargetType != "" {
		q = q.Where("audit_logs.target_type = ?", filter.TargetType)
	}
	q = between(q, "audit_logs.timestamp", filter.Start, filter.End)
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []model.AuditLog
	err := q.Select("audit_logs.*").
		Preload("Actor").
		Order(filter.Sort.clause(auditSortColumns, "timestamp")).
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func (r *auditLogRepository) Recent(ctx context.Context, limit int) ([]model.AuditLog, error) {
	var logs []model.AuditLog
	err := r.db.WithContext(ctx).Preload("Actor").Order("timestamp DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

func (r *auditLogRepository) LatestByAction(ctx context.Context, action string) (*model.AuditLog, error) {
	var entry model.AuditLog
	if err := r.db.WithContext(ctx).Where("action = ?", action).Order("timestamp DESC").First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *auditLogRepository) distinct(ctx context.Context, column string) ([]string, error) {
	values := []string{}
	err := r.db.WithContext(ctx).Model(&model.AuditLog{}).
		Distinct(column).
		Order(column+" ASC").
		Pluck(column, &values).Error
	return values, err
}

func (r *auditLogRepository) DistinctActions(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "action")
}

func (r *auditLogRepository) DistinctTargetTypes(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "target_type")
}

func (r *auditLogRepository) Count(ctx context.Context, start, end *time.Time) (int64, error) {
	var total int64
	err := between(r.db.WithContext(ctx).Model(&model.AuditLog{}), "timestamp", start, end).Count(&total).Error
	return total, err
}

func (r *auditLogRepository) groupCount(ctx context.Context, column string, start, end *time.Time, limit int) ([]NameCount, error) {
	q := between(r.db.WithContext(ctx).Model(&model.AuditLog{}), "timestamp", start, end).
		Select(column + " AS name, COUNT(*) AS total").
		Group(column).
		Order("total DESC, name ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	rows := []NameCount{}
	err := q.Scan(&rows).Error
	return rows, err
}

func (r *auditLogRepository) CountByAction(ctx context.Context, start, end *time.Time, limit int) ([]NameCount, error) {
	return r.groupCount(ctx, "action", start, end, limit)
}

func (r *auditLogRepository) CountByTargetType(ctx context.Context, start, end *time.Time) ([]NameCount, error) {
	return r.groupCount(ctx, "target_type", start, end, 0)
}

func (r *auditLogRepository) CountActionSince(ctx context.Context, action string, since time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.AuditLog{}).
		Where("action = ? AND timestamp >= ?", action, since).
		Count(&total).Error
	return total, err
}

// TimestampsSince returns entry times since the given instant; an empty action matches all.
func (r *auditLogRepository) TimestampsSince(ctx context.Context, action string, since time.Time) ([]time.Time, error) {
	q := r.db.WithContext(ctx).Model(&model.AuditLog{}).Where("timestamp >= ?", since)
	if action != "" {
		q = q.Where("action = ?", action)
	}
	var stamps []time.Time
	err := q.Order("timestamp ASC").Pluck("timestamp", &stamps).Error
	return stamps, err
}

func (r *auditLogRepository) TopActors(ctx context.Context, since time.Time, limit int) ([]ActorCount, error) {
	rows := []ActorCount{}
	err := r.db.WithContext(ctx).Model(&model.AuditLog{}).
		Select("actor_user_id, COUNT(*) AS total").
		Where("timestamp >= ? AND actor_user_id IS NOT NULL", since).
		Group("actor_user_id").
		Order("total DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *auditLogRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("timestamp < ?", before).Delete(&model.AuditLog{})
	return res.RowsAffected, res.Error
}
