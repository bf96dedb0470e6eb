package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
	"github.com/lumilearn/lumiauth/internal/auth/store"
	"github.com/lumilearn/lumiauth/internal/auth/store/drivers/sqlite"
	"github.com/lumilearn/lumiauth/pkg/cryptox"
	"github.com/lumilearn/lumiauth/pkg/idx"
	"github.com/lumilearn/lumiauth/pkg/jwtx"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "lumiauth-service-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func newTestKeyManager(t *testing.T, issuer string) *jwtx.KeyManager {
	t.Helper()

	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Issuer:  issuer,
		NumKeys: 1,
	})
	require.NoError(t, err)
	return km
}

type fixture struct {
	Role     domain.Role
	User     domain.User
	Client   domain.Client
	Password string
}

// seedFixture creates a role, a user with a known password, and a public
// client sharing the role's scopes.
func seedFixture(t *testing.T, ctx context.Context, st store.Store) fixture {
	t.Helper()

	now := time.Now()
	role := domain.Role{
		ID:        idx.New().String(),
		Name:      domain.RoleTeacher,
		Scopes:    []string{"profile", "courses.read", "courses.write"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.Roles().CreateRole(ctx, role))

	password := "correct horse battery"
	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	user := domain.User{
		ID:           idx.New().String(),
		Email:        "teacher@lumilearn.example",
		DisplayName:  "Ms Nguyen",
		PasswordHash: hash,
		RoleID:       role.ID,
		Locale:       "en-AU",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Users().CreateUser(ctx, user))

	client := domain.Client{
		ID:           idx.New().String(),
		Name:         "lumilearn-web",
		RedirectURIs: []string{"https://app.lumilearn.example/callback"},
		Scopes:       []string{"profile", "courses.read", "courses.write"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Clients().CreateClient(ctx, client))

	return fixture{Role: role, User: user, Client: client, Password: password}
}
