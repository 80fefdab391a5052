package users

import (
	"context"
	"strings"
	"testing"

	"github.com/bobmcallan/partsdesk/internal/common"
	"github.com/bobmcallan/partsdesk/internal/models"
	"github.com/bobmcallan/partsdesk/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() *Service {
	logger := common.NewSilentLogger()
	return NewService(memory.NewManager(logger), logger)
}

func asUser(id, role string) context.Context {
	return common.WithUserContext(context.Background(), &common.UserContext{UserID: id, Role: role})
}

func TestCreateAndAuthenticate(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	u, err := svc.Create(ctx, " Priya ", "priya@shop.test", "counter-pass", "")
	require.NoError(t, err)
	assert.Equal(t, "priya", u.UserID)
	assert.Equal(t, common.RoleCashier, u.Role)
	assert.NotEqual(t, "counter-pass", u.PasswordHash)

	got, err := svc.Authenticate(ctx, "PRIYA", "counter-pass")
	require.NoError(t, err)
	assert.Equal(t, "priya", got.UserID)

	_, err = svc.Authenticate(ctx, "priya", "wrong-pass")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	_, err = svc.Authenticate(ctx, "nobody", "counter-pass")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = svc.Create(ctx, "priya", "", "another-pass", "")
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestCreate_Validation(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	tests := []struct {
		name, username, password, role string
		want                           error
	}{
		{"short username", "a", "long-enough", "", models.ErrInvalid},
		{"bad characters", "a b", "long-enough", "", models.ErrInvalid},
		{"short password", "ravi", "short", "", models.ErrInvalid},
		{"unknown role", "ravi", "long-enough", "owner", models.ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.username, "", tt.password, tt.role)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := svc.Create(asUser("priya", common.RoleCashier), "ravi", "", "long-enough", "")
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestLongPasswordsAreTruncated(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	long := strings.Repeat("x", 80)
	_, err := svc.Create(ctx, "owner", "", long, common.RoleAdmin)
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "owner", strings.Repeat("x", 72))
	assert.NoError(t, err)
}

func TestSetPassword(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	_, err := svc.Create(ctx, "priya", "", "first-pass", "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "ravi", "", "ravi-pass", "")
	require.NoError(t, err)

	self := asUser("priya", common.RoleCashier)
	require.NoError(t, svc.SetPassword(self, "priya", "second-pass"))
	_, err = svc.Authenticate(ctx, "priya", "second-pass")
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.SetPassword(self, "ravi", "stolen-pass"), models.ErrForbidden)
	assert.ErrorIs(t, svc.SetPassword(ctx, "priya", "short"), models.ErrInvalid)
	assert.ErrorIs(t, svc.SetPassword(ctx, "ghost", "long-enough"), models.ErrNotFound)
}

func TestListAndDelete(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	_, err := svc.Create(ctx, "owner", "", "owner-pass", common.RoleAdmin)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "priya", "", "counter-pass", "")
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "owner", list[0].UserID)

	_, err = svc.List(asUser("priya", common.RoleCashier))
	assert.ErrorIs(t, err, models.ErrForbidden)

	assert.ErrorIs(t, svc.Delete(ctx, "owner"), models.ErrInvalid)
	require.NoError(t, svc.Delete(ctx, "priya"))
	assert.ErrorIs(t, svc.Delete(ctx, "priya"), models.ErrNotFound)
}

func TestEnsureAdmin(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	password, err := svc.EnsureAdmin(ctx)
	require.NoError(t, err)
	assert.Len(t, password, 24)

	u, err := svc.Authenticate(ctx, AdminUsername, password)
	require.NoError(t, err)
	assert.Equal(t, common.RoleAdmin, u.Role)

	again, err := svc.EnsureAdmin(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)
}
