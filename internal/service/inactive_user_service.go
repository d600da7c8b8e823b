package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"superadmin/internal/config"
	apperrors "superadmin/internal/errors"
	"superadmin/internal/mailer"
	"superadmin/internal/metrics"
	"superadmin/internal/model"
	"superadmin/internal/repository"
)

const (
	systemUserName     = "System (Automated)"
	systemUserPassword = "system-user-no-login"
)

// ReminderResult is the outcome of one reminder attempt.
type ReminderResult struct {
	Success       bool      `json:"success"`
	UserID        uuid.UUID `json:"userId"`
	Email         string    `json:"email"`
	MessageID     string    `json:"messageId,omitempty"`
	ReminderCount int       `json:"reminderCount,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// BulkReminderResult summarises a reminder run.
type BulkReminderResult struct {
	TotalUsers  int              `json:"totalUsers"`
	Successful  int              `json:"successful"`
	Failed      int              `json:"failed"`
	SuccessRate float64          `json:"successRate"`
	Results     []ReminderResult `json:"results"`
}

// ReminderStats describes the inactive population.
type ReminderStats struct {
	TotalInactive       int64                       `json:"totalInactive"`
	UsersWithReminders  int64                       `json:"usersWithReminders"`
	ReminderBreakdown   []repository.ReminderBucket `json:"reminderBreakdown"`
	InactivityThreshold int                         `json:"inactivityThreshold"`
	MaxReminders        int                         `json:"maxReminders"`
	ReminderInterval    int                         `json:"reminderInterval"`
}

// CleanupResult is produced by the periodic cleanup job.
type CleanupResult struct {
	Stats      *ReminderStats `json:"stats"`
	PrunedLogs int64          `json:"prunedLogs"`
}

// InactiveUserService finds dormant accounts and nudges them by email.
//
// A user moves from eligible to reminded on every successful send. Once the
// reminder interval has elapsed it becomes eligible again, until the reminder
// count reaches the configured maximum. Sends happen before bookkeeping, so a
// crash in between may repeat an email on the next run.
type InactiveUserService interface {
	FindEligible(ctx context.Context) ([]model.User, error)
	FindAllInactive(ctx context.Context) ([]model.User, error)
	SendReminder(ctx context.Context, userID uuid.UUID, actorID *uuid.UUID) (*ReminderResult, error)
	SendReminderToUser(ctx context.Context, user *model.User, actorID *uuid.UUID) *ReminderResult
	SendRemindersToAll(ctx context.Context, actorID *uuid.UUID) (*BulkReminderResult, error)
	MarkActive(ctx context.Context, userID uuid.UUID) (*model.User, error)
	ResetReminders(ctx context.Context, actorID, userID uuid.UUID) error
	Stats(ctx context.Context) (*ReminderStats, error)
	Cleanup(ctx context.Context, retentionDays int) (*CleanupResult, error)
	SystemUserID(ctx context.Context) (uuid.UUID, error)
}

type inactiveUserService struct {
	users       repository.UserRepository
	audit       AuditService
	mail        mailer.Mailer
	metrics     *metrics.Metrics
	policy      config.ReminderConfig
	frontendURL string
	log         *zap.Logger
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error

	systemMu sync.Mutex
	systemID uuid.UUID
}

// NewInactiveUserService creates a new inactive user service.
func NewInactiveUserService(
	users repository.UserRepository,
	audit AuditService,
	mail mailer.Mailer,
	m *metrics.Metrics,
	policy config.ReminderConfig,
	frontendURL string,
	log *zap.Logger,
) InactiveUserService {
	if mail == nil {
		mail = mailer.Disabled{}
	}
	return &inactiveUserService{
		users:       users,
		audit:       audit,
		mail:        mail,
		metrics:     m,
		policy:      policy,
		frontendURL: frontendURL,
		log:         log,
		now:         utcNow,
		sleep:       sleepContext,
	}
}

func (s *inactiveUserService) cutoff() time.Time {
	return s.now().AddDate(0, 0, -s.policy.InactivityThresholdDays)
}

func (s *inactiveUserService) FindEligible(ctx context.Context) ([]model.User, error) {
	users, err := s.users.FindInactive(ctx, repository.InactiveQuery{
		Cutoff:         s.cutoff(),
		Eligible:       true,
		ReminderBefore: s.now().AddDate(0, 0, -s.policy.IntervalDays),
		MaxReminders:   s.policy.MaxReminders,
	})
	if err != nil {
		return nil, fmt.Errorf("find eligible users: %w", err)
	}
	return users, nil
}

func (s *inactiveUserService) FindAllInactive(ctx context.Context) ([]model.User, error) {
	users, err := s.users.FindInactive(ctx, repository.InactiveQuery{Cutoff: s.cutoff()})
	if err != nil {
		return nil, fmt.Errorf("find inactive users: %w", err)
	}
	return users, nil
}

// SendReminder emails one user regardless of eligibility.
func (s *inactiveUserService) SendReminder(ctx context.Context, userID uuid.UUID, actorID *uuid.UUID) (*ReminderResult, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, apperrors.ErrUserNotFound)
	}
	return s.SendReminderToUser(ctx, user, actorID), nil
}

func (s *inactiveUserService) SendReminderToUser(ctx context.Context, user *model.User, actorID *uuid.UUID) *ReminderResult {
	actor := s.resolveActor(ctx, actorID)
	result := &ReminderResult{UserID: user.ID, Email: user.Email}

	messageID, err := s.deliver(ctx, user)
	if err != nil {
		s.metrics.ObserveReminder(false)
		result.Error = err.Error()
		s.log.Warn("reminder email failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		s.audit.Record(ctx, actor, model.ActionReminderFailed, model.TargetUser, user.ID.String(), map[string]interface{}{
			"email": user.Email,
			"error": err.Error(),
		})
		return result
	}
	s.metrics.ObserveReminder(true)

	sentAt := s.now()
	if err := s.users.RecordReminder(ctx, user.ID, sentAt); err != nil {
		result.Error = "reminder sent but not recorded"
		result.MessageID = messageID
		s.log.Error("record reminder", zap.String("user_id", user.ID.String()), zap.Error(err))
		s.audit.Record(ctx, actor, model.ActionReminderFailed, model.TargetUser, user.ID.String(), map[string]interface{}{
			"email":     user.Email,
			"messageId": messageID,
			"error":     "reminder sent but not recorded: " + err.Error(),
		})
		return result
	}
	user.ReminderCount++
	user.LastReminderSent = &sentAt

	result.Success = true
	result.MessageID = messageID
	result.ReminderCount = user.ReminderCount
	s.audit.Record(ctx, actor, model.ActionReminderSent, model.TargetUser, user.ID.String(), map[string]interface{}{
		"email":         user.Email,
		"messageId":     messageID,
		"reminderCount": user.ReminderCount,
	})
	return result
}

func (s *inactiveUserService) deliver(ctx context.Context, user *model.User) (string, error) {
	msg, err := mailer.ReminderMessage(s.recipient(user))
	if err != nil {
		return "", err
	}
	return s.mail.Send(ctx, msg)
}

func (s *inactiveUserService) recipient(user *model.User) mailer.Recipient {
	return mailer.Recipient{
		Name:           user.Name,
		Email:          user.Email,
		LoginURL:       s.frontendURL + "/login",
		InactivityDays: inactiveDays(user, s.now()),
	}
}

// inactiveDays counts whole days since the user's last sign of life.
func inactiveDays(u *model.User, now time.Time) int {
	last := u.CreatedAt
	for _, t := range []*time.Time{u.LastLogin, u.LastActivity} {
		if t != nil && t.After(last) {
			last = *t
		}
	}
	if last.IsZero() || last.After(now) {
		return 0
	}
	return int(now.Sub(last).Hours() / 24)
}

// SendRemindersToAll emails every eligible user in turn, pausing between sends.
func (s *inactiveUserService) SendRemindersToAll(ctx context.Context, actorID *uuid.UUID) (*BulkReminderResult, error) {
	users, err := s.FindEligible(ctx)
	if err != nil {
		return nil, err
	}
	actor := s.resolveActor(ctx, actorID)

	out := &BulkReminderResult{TotalUsers: len(users), Results: make([]ReminderResult, 0, len(users))}
	for i := range users {
		if i > 0 && s.policy.SendDelay > 0 {
			if err := s.sleep(ctx, s.policy.SendDelay); err != nil {
				out.SuccessRate = percentageFloat(out.Successful, len(out.Results))
				return out, err
			}
		}
		res := s.SendReminderToUser(ctx, &users[i], actor)
		if res.Success {
			out.Successful++
		} else {
			out.Failed++
		}
		out.Results = append(out.Results, *res)
	}
	out.SuccessRate = percentageFloat(out.Successful, out.TotalUsers)

	s.log.Info("reminder run finished",
		zap.Int("total", out.TotalUsers),
		zap.Int("successful", out.Successful),
		zap.Int("failed", out.Failed))
	return out, nil
}

func percentageFloat(part, whole int) float64 {
	return percentage(int64(part), int64(whole))
}

// MarkActive records activity now. Previously reminded users get a welcome-back email.
func (s *inactiveUserService) MarkActive(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, apperrors.ErrUserNotFound)
	}
	now := s.now()
	if err := s.users.TouchActivity(ctx, userID, now); err != nil {
		return nil, fmt.Errorf("mark active: %w", err)
	}
	user.LastActivity = &now

	if user.ReminderCount > 0 {
		s.welcomeBack(ctx, user)
	}
	return user, nil
}

func (s *inactiveUserService) welcomeBack(ctx context.Context, user *model.User) {
	msg, err := mailer.WelcomeBackMessage(s.recipient(user))
	if err == nil {
		_, err = s.mail.Send(ctx, msg)
	}
	if err != nil {
		s.log.Warn("welcome back email failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		return
	}
	s.audit.Record(ctx, s.resolveActor(ctx, nil), model.ActionWelcomeBackSent, model.TargetUser, user.ID.String(), map[string]interface{}{
		"email":         user.Email,
		"reminderCount": user.ReminderCount,
	})
}

func (s *inactiveUserService) ResetReminders(ctx context.Context, actorID, userID uuid.UUID) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return notFound(err, apperrors.ErrUserNotFound)
	}
	if err := s.users.ResetReminders(ctx, userID); err != nil {
		return fmt.Errorf("reset reminders: %w", err)
	}
	s.audit.Record(ctx, &actorID, model.ActionRemindersReset, model.TargetUser, userID.String(), map[string]interface{}{
		"email":                 user.Email,
		"previousReminderCount": user.ReminderCount,
	})
	return nil
}

func (s *inactiveUserService) Stats(ctx context.Context) (*ReminderStats, error) {
	cutoff := s.cutoff()
	total, err := s.users.CountInactive(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("count inactive users: %w", err)
	}
	reminded, err := s.users.CountWithReminders(ctx)
	if err != nil {
		return nil, fmt.Errorf("count reminded users: %w", err)
	}
	breakdown, err := s.users.ReminderBreakdown(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("reminder breakdown: %w", err)
	}
	if breakdown == nil {
		breakdown = []repository.ReminderBucket{}
	}
	s.metrics.SetInactiveUsers(total)
	return &ReminderStats{
		TotalInactive:       total,
		UsersWithReminders:  reminded,
		ReminderBreakdown:   breakdown,
		InactivityThreshold: s.policy.InactivityThresholdDays,
		MaxReminders:        s.policy.MaxReminders,
		ReminderInterval:    s.policy.IntervalDays,
	}, nil
}

// Cleanup refreshes inactive-user statistics and prunes audit entries older than retentionDays.
func (s *inactiveUserService) Cleanup(ctx context.Context, retentionDays int) (*CleanupResult, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}
	out := &CleanupResult{Stats: stats}
	if retentionDays > 0 {
		pruned, err := s.audit.Prune(ctx, s.now().AddDate(0, 0, -retentionDays))
		if err != nil {
			return nil, err
		}
		out.PrunedLogs = pruned
	}
	return out, nil
}

// SystemUserID returns the automation account, creating it on first use.
func (s *inactiveUserService) SystemUserID(ctx context.Context) (uuid.UUID, error) {
	s.systemMu.Lock()
	defer s.systemMu.Unlock()
	if s.systemID != uuid.Nil {
		return s.systemID, nil
	}

	user, err := s.users.FindByEmail(ctx, model.SystemUserEmail)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = &model.User{
			Name:           systemUserName,
			Email:          model.SystemUserEmail,
			HashedPassword: systemUserPassword,
			IsActive:       true,
		}
		if err = s.users.Create(ctx, user); err != nil {
			// lost a race with another process
			user, err = s.users.FindByEmail(ctx, model.SystemUserEmail)
		}
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("system user: %w", err)
	}
	s.systemID = user.ID
	return s.systemID, nil
}

func (s *inactiveUserService) resolveActor(ctx context.Context, actorID *uuid.UUID) *uuid.UUID {
	if actorID != nil {
		return actorID
	}
	id, err := s.SystemUserID(ctx)
	if err != nil {
		s.log.Warn("audit without actor", zap.Error(err))
		return nil
	}
	return &id
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
