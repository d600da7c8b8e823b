package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"superadmin/internal/model"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func utc(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

type analyticsFixture struct {
	svc      *analyticsService
	ada, bob *model.User
}

// newAnalyticsFixture pins "now" to 2025-03-11 01:30 IST.
func newAnalyticsFixture(t *testing.T) analyticsFixture {
	t.Helper()
	env := newTestEnv(t)
	ctx := context.Background()

	super := env.role(t, model.RoleSuperAdmin, "all")
	admin := env.role(t, model.RoleAdmin, "read", "write")

	ada := env.user(t, model.User{Name: "Ada", Email: "ada@example.com", IsActive: true,
		CreatedAt: utc("2025-03-10 17:00"), LastLogin: ptr(utc("2025-03-10 19:00"))}, super)
	bob := env.user(t, model.User{Name: "Bob", Email: "bob@example.com", IsActive: true,
		CreatedAt: utc("2025-03-09 12:00"), LastLogin: ptr(utc("2025-03-01 08:00"))}, admin)
	env.user(t, model.User{Name: "Cy", Email: "cy@example.com", IsActive: true,
		CreatedAt: utc("2025-01-01 00:00")}, admin)

	entries := []model.AuditLog{
		{ActorUserID: &ada.ID, Action: model.ActionLogin, TargetType: model.TargetUser, Timestamp: utc("2025-03-10 19:00")},
		{ActorUserID: &ada.ID, Action: model.ActionLogin, TargetType: model.TargetUser, Timestamp: utc("2025-03-10 17:00")},
		{ActorUserID: &bob.ID, Action: model.ActionLogin, TargetType: model.TargetUser, Timestamp: utc("2025-03-05 10:00")},
		{ActorUserID: &bob.ID, Action: model.ActionLogin, TargetType: model.TargetUser, Timestamp: utc("2025-03-01 08:00")},
		{ActorUserID: &ada.ID, Action: model.ActionCreateUser, TargetType: model.TargetUser, Timestamp: utc("2025-03-10 19:30")},
	}
	for i := range entries {
		require.NoError(t, env.audits.Create(ctx, &entries[i]))
	}

	svc := NewAnalyticsService(env.users, env.roles, env.audits, nil, ist, zap.NewNop()).(*analyticsService)
	svc.now = func() time.Time { return utc("2025-03-10 20:00") }
	return analyticsFixture{svc: svc, ada: ada, bob: bob}
}

func TestAnalyticsService_Summary(t *testing.T) {
	f := newAnalyticsFixture(t)

	summary, err := f.svc.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), summary.TotalUsers)
	assert.Equal(t, int64(2), summary.TotalRoles)
	assert.Equal(t, int64(5), summary.TotalAuditLogs)
	assert.Equal(t, int64(1), summary.ActiveUsersLast7Days)
	assert.Equal(t, 33.33, summary.ActiveUserRate)
	assert.Equal(t, int64(3), summary.LoginsLast7Days)
	assert.Equal(t, int64(2), summary.NewUsersLast30Days)

	if diff := cmp.Diff([]RoleShare{
		{Name: model.RoleAdmin, UserCount: 2},
		{Name: model.RoleSuperAdmin, UserCount: 1},
	}, summary.RoleDistribution); diff != "" {
		t.Errorf("role distribution mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]ActionCount{
		{Action: model.ActionLogin, Count: 4},
		{Action: model.ActionCreateUser, Count: 1},
	}, summary.TopActions); diff != "" {
		t.Errorf("top actions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]DayCount{
		{Date: "2025-03-05", Count: 1},
		{Date: "2025-03-06"},
		{Date: "2025-03-07"},
		{Date: "2025-03-08"},
		{Date: "2025-03-09"},
		{Date: "2025-03-10", Count: 1},
		{Date: "2025-03-11", Count: 1},
	}, summary.DailyLogins); diff != "" {
		t.Errorf("daily logins mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, summary.RecentActivity, 5)
	assert.Equal(t, model.ActionCreateUser, summary.RecentActivity[0].Action)
	require.NotNil(t, summary.RecentActivity[0].Actor)
	assert.Equal(t, "Ada", summary.RecentActivity[0].Actor.Name)
}

func TestAnalyticsService_Users(t *testing.T) {
	f := newAnalyticsFixture(t)

	for _, period := range []int{0, -3, MaxPeriodDays + 1, 100_000_000} {
		report, err := f.svc.Users(context.Background(), period)
		require.NoError(t, err)
		assert.Equal(t, DefaultUserPeriodDays, report.Period)
		assert.Len(t, report.UserRegistrations, DefaultUserPeriodDays)
	}

	report, err := f.svc.Users(context.Background(), MaxPeriodDays)
	require.NoError(t, err)
	assert.Len(t, report.UserRegistrations, MaxPeriodDays)

	report, err = f.svc.Users(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, report.UserRegistrations, 30)
	assert.Equal(t, "2025-02-10", report.UserRegistrations[0].Date)

	last := report.UserRegistrations[27:]
	if diff := cmp.Diff([]DayCount{
		{Date: "2025-03-09", Count: 1},
		{Date: "2025-03-10", Count: 1},
		{Date: "2025-03-11"},
	}, last); diff != "" {
		t.Errorf("registrations mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]RoleCount{
		{Role: model.RoleAdmin, Count: 2},
		{Role: model.RoleSuperAdmin, Count: 1},
	}, report.UsersByRole); diff != "" {
		t.Errorf("users by role mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, report.RecentlyActiveUsers, 2)
	assert.Equal(t, "Ada", report.RecentlyActiveUsers[0].Name)
	assert.Equal(t, "Bob", report.RecentlyActiveUsers[1].Name)
}

func TestAnalyticsService_Activity(t *testing.T) {
	f := newAnalyticsFixture(t)

	report, err := f.svc.Activity(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultActivityPeriodDays, report.Period)

	capped, err := f.svc.Activity(context.Background(), MaxPeriodDays+1)
	require.NoError(t, err)
	assert.Equal(t, DefaultActivityPeriodDays, capped.Period)

	if diff := cmp.Diff([]ActionCount{
		{Action: model.ActionLogin, Count: 3},
		{Action: model.ActionCreateUser, Count: 1},
	}, report.ActivityByAction); diff != "" {
		t.Errorf("activity by action mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, report.ActivityByUser, 2)
	assert.Equal(t, f.ada.ID, report.ActivityByUser[0].User.ID)
	assert.Equal(t, int64(3), report.ActivityByUser[0].Count)
	assert.Equal(t, f.bob.ID, report.ActivityByUser[1].User.ID)
	assert.Equal(t, int64(1), report.ActivityByUser[1].Count)

	require.Len(t, report.HourlyActivity, 24)
	assert.Equal(t, HourCount{Hour: 0, Count: 1}, report.HourlyActivity[0])
	assert.Equal(t, HourCount{Hour: 1, Count: 1}, report.HourlyActivity[1])
	var total int64
	for _, h := range report.HourlyActivity {
		total += h.Count
	}
	assert.Equal(t, int64(2), total)
}

func TestAnalyticsService_ActivitySkipsDeletedActors(t *testing.T) {
	f := newAnalyticsFixture(t)
	ghost := uuid.New()
	require.NoError(t, f.svc.audits.Create(context.Background(), &model.AuditLog{
		ActorUserID: &ghost, Action: model.ActionLogin, TargetType: model.TargetUser, Timestamp: utc("2025-03-10 18:00"),
	}))

	report, err := f.svc.Activity(context.Background(), 7)
	require.NoError(t, err)
	for _, a := range report.ActivityByUser {
		assert.NotEqual(t, ghost, a.User.ID)
	}
}

func TestDayBuckets(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, ist)
	stamps := []time.Time{
		utc("2024-12-31 19:00"), // 2025-01-01 00:30 IST
		utc("2025-01-01 18:29"), // 2025-01-01 23:59 IST
		utc("2025-01-02 18:30"), // 2025-01-03 00:00 IST
		utc("2025-01-10 00:00"), // outside the window
	}
	want := []DayCount{
		{Date: "2025-01-01", Count: 2},
		{Date: "2025-01-02"},
		{Date: "2025-01-03", Count: 1},
	}
	if diff := cmp.Diff(want, dayBuckets(stamps, start, 3, ist)); diff != "" {
		t.Errorf("dayBuckets mismatch (-want +got):\n%s", diff)
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		part, whole int64
		want        float64
	}{
		{0, 0, 0},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{3, 3, 100},
		{0, 10, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, percentage(tt.part, tt.whole), "%d/%d", tt.part, tt.whole)
	}
}
