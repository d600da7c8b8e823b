package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"superadmin/internal/cache"
	"superadmin/internal/model"
	"superadmin/internal/repository"
)

const (
	summaryCacheKey = "analytics:summary"
	summaryCacheTTL = 30 * time.Second

	// DefaultUserPeriodDays and DefaultActivityPeriodDays apply when no valid period is requested.
	DefaultUserPeriodDays     = 30
	DefaultActivityPeriodDays = 7
	// MaxPeriodDays bounds the period; larger requests get the default.
	MaxPeriodDays = 365
)

// DayCount is a per-day bucket keyed by local date (YYYY-MM-DD).
type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// HourCount is a per-hour bucket of the current local day.
type HourCount struct {
	Hour  int   `json:"hour"`
	Count int64 `json:"count"`
}

// RoleShare is the number of users holding a role.
type RoleShare struct {
	Name      string `json:"name"`
	UserCount int64  `json:"userCount"`
}

// RoleCount is RoleShare keyed the way the user report expects.
type RoleCount struct {
	Role  string `json:"role"`
	Count int64  `json:"count"`
}

// ActorActivity is the number of audit entries written by one user.
type ActorActivity struct {
	User  model.UserSummary `json:"user"`
	Count int64             `json:"count"`
}

// AnalyticsSummary is the dashboard overview.
type AnalyticsSummary struct {
	TotalUsers           int64            `json:"totalUsers"`
	TotalRoles           int64            `json:"totalRoles"`
	TotalAuditLogs       int64            `json:"totalAuditLogs"`
	ActiveUsersLast7Days int64            `json:"activeUsersLast7Days"`
	ActiveUserRate       float64          `json:"activeUserRate"`
	LoginsLast7Days      int64            `json:"loginsLast7Days"`
	NewUsersLast30Days   int64            `json:"newUsersLast30Days"`
	RoleDistribution     []RoleShare      `json:"roleDistribution"`
	TopActions           []ActionCount    `json:"topActions"`
	DailyLogins          []DayCount       `json:"dailyLogins"`
	RecentActivity       []model.AuditLog `json:"recentActivity"`
}

// UserAnalytics reports registrations and activity over a period.
type UserAnalytics struct {
	Period              int          `json:"period"`
	UserRegistrations   []DayCount   `json:"userRegistrations"`
	UsersByRole         []RoleCount  `json:"usersByRole"`
	RecentlyActiveUsers []model.User `json:"recentlyActiveUsers"`
}

// ActivityAnalytics reports audit activity over a period.
type ActivityAnalytics struct {
	Period           int             `json:"period"`
	ActivityByAction []ActionCount   `json:"activityByAction"`
	ActivityByUser   []ActorActivity `json:"activityByUser"`
	HourlyActivity   []HourCount     `json:"hourlyActivity"`
}

// AnalyticsService aggregates dashboard statistics.
type AnalyticsService interface {
	Summary(ctx context.Context) (*AnalyticsSummary, error)
	Users(ctx context.Context, periodDays int) (*UserAnalytics, error)
	Activity(ctx context.Context, periodDays int) (*ActivityAnalytics, error)
}

type analyticsService struct {
	users  repository.UserRepository
	roles  repository.RoleRepository
	audits repository.AuditLogRepository
	cache  *cache.Client
	loc    *time.Location
	log    *zap.Logger
	now    func() time.Time
}

// NewAnalyticsService creates a new analytics service. Day and hour buckets use loc.
func NewAnalyticsService(users repository.UserRepository, roles repository.RoleRepository, audits repository.AuditLogRepository, cache *cache.Client, loc *time.Location, log *zap.Logger) AnalyticsService {
	if loc == nil {
		loc = time.UTC
	}
	return &analyticsService{users: users, roles: roles, audits: audits, cache: cache, loc: loc, log: log, now: utcNow}
}

func (s *analyticsService) Summary(ctx context.Context) (*AnalyticsSummary, error) {
	var cached AnalyticsSummary
	if s.cache.GetJSON(ctx, summaryCacheKey, &cached) {
		return &cached, nil
	}

	now := s.now()
	weekAgo := now.AddDate(0, 0, -7)
	out := &AnalyticsSummary{}
	var err error

	if out.TotalUsers, err = s.users.Count(ctx); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if out.TotalRoles, err = s.roles.Count(ctx); err != nil {
		return nil, fmt.Errorf("count roles: %w", err)
	}
	if out.TotalAuditLogs, err = s.audits.Count(ctx, nil, nil); err != nil {
		return nil, fmt.Errorf("count audit logs: %w", err)
	}
	if out.ActiveUsersLast7Days, err = s.users.CountLoggedInSince(ctx, weekAgo); err != nil {
		return nil, fmt.Errorf("count active users: %w", err)
	}
	if out.LoginsLast7Days, err = s.audits.CountActionSince(ctx, model.ActionLogin, weekAgo); err != nil {
		return nil, fmt.Errorf("count logins: %w", err)
	}
	if out.NewUsersLast30Days, err = s.users.CountCreatedSince(ctx, now.AddDate(0, 0, -30)); err != nil {
		return nil, fmt.Errorf("count new users: %w", err)
	}
	out.ActiveUserRate = percentage(out.ActiveUsersLast7Days, out.TotalUsers)

	dist, err := s.roles.Distribution(ctx)
	if err != nil {
		return nil, fmt.Errorf("role distribution: %w", err)
	}
	out.RoleDistribution = make([]RoleShare, 0, len(dist))
	for _, row := range dist {
		out.RoleDistribution = append(out.RoleDistribution, RoleShare{Name: row.Name, UserCount: row.Total})
	}

	top, err := s.audits.CountByAction(ctx, nil, nil, 5)
	if err != nil {
		return nil, fmt.Errorf("top actions: %w", err)
	}
	out.TopActions = toActionCounts(top)

	dayStart := s.startOfDay(now).AddDate(0, 0, -6)
	logins, err := s.audits.TimestampsSince(ctx, model.ActionLogin, dayStart.UTC())
	if err != nil {
		return nil, fmt.Errorf("daily logins: %w", err)
	}
	out.DailyLogins = dayBuckets(logins, dayStart, 7, s.loc)

	if out.RecentActivity, err = s.audits.Recent(ctx, 10); err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}

	if err := s.cache.SetJSON(ctx, summaryCacheKey, out, summaryCacheTTL); err != nil {
		s.log.Debug("analytics summary not cached", zap.Error(err))
	}
	return out, nil
}

func (s *analyticsService) Users(ctx context.Context, periodDays int) (*UserAnalytics, error) {
	periodDays = normalizePeriod(periodDays, DefaultUserPeriodDays)
	now := s.now()
	dayStart := s.startOfDay(now).AddDate(0, 0, -(periodDays - 1))

	created, err := s.users.CreatedSince(ctx, dayStart.UTC())
	if err != nil {
		return nil, fmt.Errorf("registrations: %w", err)
	}
	dist, err := s.roles.Distribution(ctx)
	if err != nil {
		return nil, fmt.Errorf("users by role: %w", err)
	}
	active, err := s.users.RecentlyActive(ctx, now.AddDate(0, 0, -periodDays), 10)
	if err != nil {
		return nil, fmt.Errorf("recently active users: %w", err)
	}

	out := &UserAnalytics{
		Period:              periodDays,
		UserRegistrations:   dayBuckets(created, dayStart, periodDays, s.loc),
		UsersByRole:         make([]RoleCount, 0, len(dist)),
		RecentlyActiveUsers: active,
	}
	for _, row := range dist {
		out.UsersByRole = append(out.UsersByRole, RoleCount{Role: row.Name, Count: row.Total})
	}
	return out, nil
}

func (s *analyticsService) Activity(ctx context.Context, periodDays int) (*ActivityAnalytics, error) {
	periodDays = normalizePeriod(periodDays, DefaultActivityPeriodDays)
	now := s.now()
	since := now.AddDate(0, 0, -periodDays)

	byAction, err := s.audits.CountByAction(ctx, &since, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("activity by action: %w", err)
	}
	actors, err := s.audits.TopActors(ctx, since, 10)
	if err != nil {
		return nil, fmt.Errorf("activity by user: %w", err)
	}

	out := &ActivityAnalytics{
		Period:           periodDays,
		ActivityByAction: toActionCounts(byAction),
		ActivityByUser:   make([]ActorActivity, 0, len(actors)),
	}
	for _, a := range actors {
		user, err := s.users.FindByID(ctx, a.ActorUserID)
		if err != nil {
			s.log.Debug("skipping unknown actor", zap.String("actor_id", a.ActorUserID.String()), zap.Error(err))
			continue
		}
		out.ActivityByUser = append(out.ActivityByUser, ActorActivity{User: user.Summary(), Count: a.Total})
	}

	today := s.startOfDay(now)
	stamps, err := s.audits.TimestampsSince(ctx, "", today.UTC())
	if err != nil {
		return nil, fmt.Errorf("hourly activity: %w", err)
	}
	out.HourlyActivity = hourBuckets(stamps, s.loc)
	return out, nil
}

func normalizePeriod(days, def int) int {
	if days <= 0 || days > MaxPeriodDays {
		return def
	}
	return days
}

func (s *analyticsService) startOfDay(t time.Time) time.Time {
	y, m, d := t.In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

// dayBuckets counts stamps per local day for days consecutive days from start, oldest first.
func dayBuckets(stamps []time.Time, start time.Time, days int, loc *time.Location) []DayCount {
	index := make(map[string]int, days)
	out := make([]DayCount, days)
	for i := 0; i < days; i++ {
		key := start.AddDate(0, 0, i).Format("2006-01-02")
		out[i] = DayCount{Date: key}
		index[key] = i
	}
	for _, t := range stamps {
		if i, ok := index[t.In(loc).Format("2006-01-02")]; ok {
			out[i].Count++
		}
	}
	return out
}

// hourBuckets counts stamps per local hour of day.
func hourBuckets(stamps []time.Time, loc *time.Location) []HourCount {
	out := make([]HourCount, 24)
	for h := range out {
		out[h].Hour = h
	}
	for _, t := range stamps {
		out[t.In(loc).Hour()].Count++
	}
	return out
}

// percentage returns part/whole*100 rounded to two places.
func percentage(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromInt(part).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(whole), 2).
		InexactFloat64()
}

func toActionCounts(rows []repository.NameCount) []ActionCount {
	out := make([]ActionCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, ActionCount{Action: row.Name, Count: row.Total})
	}
	return out
}
