package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ewaste-backend/internal/config"
	"ewaste-backend/internal/models"
	"ewaste-backend/internal/store/sqlite"
)

func sqliteEnv(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.db")
	t.Setenv("DB_DRIVER", config.DriverSQLite)
	t.Setenv("DB_SQLITE_PATH", path)
	t.Setenv("JWT_SECRET", "cli-secret")
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSeedAdminCommand(t *testing.T) {
	path := sqliteEnv(t)

	out, err := run(t, "seed-admin", "--email", "Root@Example.com", "--password", "password1")
	require.NoError(t, err)
	assert.Contains(t, out, "Created admin root@example.com")

	store, err := sqlite.Open(path)
	require.NoError(t, err)
	defer store.Close()
	u, err := store.GetUserByEmail(context.Background(), "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.Equal(t, "Administrator", u.Name)

	_, err = run(t, "seed-admin", "--email", "root@example.com", "--password", "password1")
	assert.Error(t, err)
}

func TestSeedAdminRequiresFlags(t *testing.T) {
	sqliteEnv(t)
	_, err := run(t, "seed-admin", "--email", "root@example.com")
	assert.Error(t, err)
}

func TestMigrateCommandOnSQLite(t *testing.T) {
	sqliteEnv(t)
	_, err := run(t, "migrate")
	assert.NoError(t, err)
}

func TestCommandsRegistered(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"serve", "migrate", "seed-admin"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
	assert.NotNil(t, root.Flags().Lookup("port"))
}
