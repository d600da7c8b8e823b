package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"superadmin/internal/model"
)

// UserFilter narrows a user listing.
type UserFilter struct {
	Page
	Sort
	Search string
	Role   string
}

// InactiveQuery selects users with no login or activity since Cutoff.
// When Eligible is set only users that may receive another reminder are returned.
type InactiveQuery struct {
	Cutoff         time.Time
	Eligible       bool
	ReminderBefore time.Time
	MaxReminders   int
}

// ReminderBucket counts inactive users per reminder count.
type ReminderBucket struct {
	ReminderCount int   `json:"reminderCount"`
	Count         int64 `json:"count" gorm:"column:total"`
}

// UserRepository defines persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindDetail(ctx context.Context, id uuid.UUID, recentLogs int) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, filter UserFilter) ([]model.User, int64, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}, roles []model.Role) error
	Delete(ctx context.Context, id uuid.UUID) error
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error

	FindInactive(ctx context.Context, q InactiveQuery) ([]model.User, error)
	CountInactive(ctx context.Context, cutoff time.Time) (int64, error)
	ReminderBreakdown(ctx context.Context, cutoff time.Time) ([]ReminderBucket, error)
	CountWithReminders(ctx context.Context) (int64, error)
	RecordReminder(ctx context.Context, id uuid.UUID, at time.Time) error
	ResetReminders(ctx context.Context, id uuid.UUID) error

	Count(ctx context.Context) (int64, error)
	CountLoggedInSince(ctx context.Context, since time.Time) (int64, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
	CreatedSince(ctx context.Context, since time.Time) ([]time.Time, error)
	RecentlyActive(ctx context.Context, since time.Time, limit int) ([]model.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

var userSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
	"email":     "email",
	"lastLogin": "last_login",
}

// Create inserts the user and links any already-persisted roles.
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Omit("Roles.*").Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Preload("Roles").First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindDetail(ctx context.Context, id uuid.UUID, recentLogs int) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Preload("Roles").
		Preload("AuditLogs", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp DESC").Limit(recentLogs)
		}).
		First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Preload("Roles").Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]model.User, int64, error) {
	page := filter.Page.Normalize(10)

	q := r.db.WithContext(ctx).Model(&model.User{})
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(email) LIKE ?)", pattern, pattern)
	}
	if filter.Role != "" {
		holders := r.db.Table("user_roles").
			Select("user_roles.user_id").
			Joins("JOIN roles ON roles.id = user_roles.role_id").
			Where("roles.name = ?", filter.Role)
		q = q.Where("id IN (?)", holders)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []model.User
	err := q.Preload("Roles").
		Order(filter.Sort.clause(userSortColumns, "createdAt")).
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Update applies fields and, when roles is non-nil, replaces the role set.
func (r *userRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}, roles []model.Role) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := model.User{ID: id}
		if len(fields) > 0 {
			if err := tx.Model(&user).Updates(fields).Error; err != nil {
				return err
			}
		}
		if roles == nil {
			return nil
		}
		if err := tx.Where("user_id = ?", id).Delete(&model.UserRole{}).Error; err != nil {
			return err
		}
		for _, role := range roles {
			if err := tx.Create(&model.UserRole{UserID: id, RoleID: role.ID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes the user and its role links. Audit entries survive with the actor cleared.
func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.AuditLog{}).Where("actor_user_id = ?", id).Update("actor_user_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&model.UserRole{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.User{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *userRepository) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{ID: id}).
		UpdateColumns(map[string]interface{}{"last_login": at, "last_activity": at}).Error
}

func (r *userRepository) TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{ID: id}).UpdateColumn("last_activity", at).Error
}

func (r *userRepository) inactive(ctx context.Context, cutoff time.Time) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("is_active = ?", true).
		Where("email <> ?", model.SystemUserEmail).
		Where("(last_login IS NULL OR last_login < ?)", cutoff).
		Where("(last_activity IS NULL OR last_activity < ?)", cutoff)
}

func (r *userRepository) FindInactive(ctx context.Context, q InactiveQuery) ([]model.User, error) {
	tx := r.inactive(ctx, q.Cutoff)
	if q.Eligible {
		tx = tx.Where("reminder_count < ?", q.MaxReminders).
			Where("(last_reminder_sent IS NULL OR last_reminder_sent < ?)", q.ReminderBefore)
	}
	var users []model.User
	if err := tx.Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) CountInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	err := r.inactive(ctx, cutoff).Count(&total).Error
	return total, err
}

func (r *userRepository) ReminderBreakdown(ctx context.Context, cutoff time.Time) ([]ReminderBucket, error) {
	var rows []ReminderBucket
	err := r.inactive(ctx, cutoff).
		Select("reminder_count, COUNT(*) AS total").
		Group("reminder_count").
		Order("reminder_count ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *userRepository) CountWithReminders(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("is_active = ? AND reminder_count > ?", true, 0).
		Count(&total).Error
	return total, err
}

// RecordReminder stamps the send time and increments the counter in one statement.
func (r *userRepository) RecordReminder(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{ID: id}).
		UpdateColumns(map[string]interface{}{
			"last_reminder_sent": at,
			"reminder_count":     gorm.Expr("reminder_count + ?", 1),
		}).Error
}

func (r *userRepository) ResetReminders(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.User{ID: id}).
		UpdateColumns(map[string]interface{}{"last_reminder_sent": nil, "reminder_count": 0}).Error
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Count(&total).Error
	return total, err
}

func (r *userRepository) CountLoggedInSince(ctx context.Context, since time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("last_login >= ?", since).Count(&total).Error
	return total, err
}

func (r *userRepository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("created_at >= ?", since).Count(&total).Error
	return total, err
}

func (r *userRepository) CreatedSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	var stamps []time.Time
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Pluck("created_at", &stamps).Error
	return stamps, err
}

func (r *userRepository) RecentlyActive(ctx context.Context, since time.Time, limit int) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("last_login >= ?", since).
		Order("last_login DESC").
		Limit(limit).
		Find(&users).Error
	return users, err
}
