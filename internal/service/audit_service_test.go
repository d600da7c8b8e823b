package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"superadmin/internal/model"
	"superadmin/internal/repository"
)

// failingAuditRepo rejects every write.
type failingAuditRepo struct {
	repository.AuditLogRepository
	mock.Mock
}

func (f *failingAuditRepo) Create(ctx context.Context, entry *model.AuditLog) error {
	return f.Called(ctx, entry).Error(0)
}

func TestEncodeDetails(t *testing.T) {
	assert.Equal(t, "", encodeDetails(nil))
	assert.Equal(t, "free text", encodeDetails("free text"))
	assert.Equal(t, `{"email":"a@example.com"}`, encodeDetails(map[string]string{"email": "a@example.com"}))
	assert.Equal(t, `["a","b"]`, encodeDetails([]string{"a", "b"}))
}

func TestAuditService_RecordSwallowsErrors(t *testing.T) {
	repo := new(failingAuditRepo)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*model.AuditLog")).Return(errors.New("disk full"))

	svc := NewAuditService(repo, zap.NewNop())
	assert.NotPanics(t, func() {
		svc.Record(context.Background(), nil, model.ActionLogin, model.TargetUser, "x", nil)
	})
	repo.AssertExpectations(t)
}

func TestAuditService_Summary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := env.user(t, model.User{Name: "Ada", Email: "ada@example.com", IsActive: true})

	svc := env.audit.(*auditService)
	at := utc("2025-03-01 10:00")
	svc.now = func() time.Time { return at }
	svc.Record(ctx, &actor.ID, model.ActionLogin, model.TargetUser, actor.ID.String(), nil)
	svc.Record(ctx, &actor.ID, model.ActionLogin, model.TargetUser, actor.ID.String(), nil)
	at = utc("2025-03-05 10:00")
	svc.Record(ctx, &actor.ID, model.ActionCreateRole, model.TargetRole, "r1", map[string]string{"name": "editor"})

	summary, err := svc.Summary(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.TotalCount)
	assert.Equal(t, []ActionCount{{Action: model.ActionLogin, Count: 2}, {Action: model.ActionCreateRole, Count: 1}}, summary.ActionCounts)
	assert.Equal(t, []TargetCount{{TargetType: model.TargetUser, Count: 2}, {TargetType: model.TargetRole, Count: 1}}, summary.TargetTypeCounts)
	require.Len(t, summary.RecentActivity, 3)
	assert.Equal(t, model.ActionCreateRole, summary.RecentActivity[0].Action)
	assert.Equal(t, `{"name":"editor"}`, summary.RecentActivity[0].Details)

	start := utc("2025-03-02 00:00")
	windowed, err := svc.Summary(ctx, &start, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), windowed.TotalCount)

	actions, err := svc.Actions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{model.ActionCreateRole, model.ActionLogin}, actions)

	pruned, err := svc.Prune(ctx, start)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pruned)
}
