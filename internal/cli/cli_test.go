package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/SAP-F-2025/quizform-service/internal/auth"
	"github.com/SAP-F-2025/quizform-service/internal/config"
	"github.com/SAP-F-2025/quizform-service/internal/repositories/memory"
	"github.com/SAP-F-2025/quizform-service/internal/timer"
	"github.com/SAP-F-2025/quizform-service/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STORE_DRIVER", "postgres")

	opts := &rootOptions{port: "7000", storeDriver: storeMemory}
	cfg, err := opts.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, storeMemory, cfg.StoreDriver)
}

func TestIdentityProvider(t *testing.T) {
	p, err := identityProvider(&config.Config{AuthProvider: "jwt", JWTSecret: "s"})
	require.NoError(t, err)
	assert.IsType(t, &auth.JWTProvider{}, p)

	p, err = identityProvider(&config.Config{AuthProvider: "none", Environment: "development"})
	require.NoError(t, err)
	assert.IsType(t, auth.AnonymousProvider{}, p)

	_, err = identityProvider(&config.Config{AuthProvider: "none", Environment: "production"})
	assert.Error(t, err)

	_, err = identityProvider(&config.Config{AuthProvider: "ldap"})
	assert.Error(t, err)
}

func TestOpenMemoryBackends(t *testing.T) {
	ctx := context.Background()
	var closers cleanup
	defer closers.run()

	cfg := &config.Config{StoreDriver: storeMemory}
	repo, err := openRepository(ctx, cfg, &closers)
	require.NoError(t, err)
	assert.IsType(t, &memory.Repository{}, repo)
	assert.NoError(t, repo.Ping(ctx))

	timers, answers, err := openStores(ctx, cfg, utils.ToSlogLogger(utils.NewDiscardLogger()), &closers)
	require.NoError(t, err)
	assert.IsType(t, &timer.MemoryStore{}, timers)
	assert.NotNil(t, answers)

	_, err = openRepository(ctx, &config.Config{StoreDriver: "sqlite"}, &closers)
	assert.Error(t, err)

	assert.NoError(t, runMigrations(ctx, cfg, utils.NewDiscardLogger()))
}

func TestCleanupRunsInReverse(t *testing.T) {
	var order []int
	var c cleanup
	c.add(func() { order = append(order, 1) })
	c.add(func() { order = append(order, 2) })
	c.run()
	assert.Equal(t, []int{2, 1}, order)
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("ENVIRONMENT", "development")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "owner-1", "--email", "owner@example.com"})
	require.NoError(t, cmd.Execute())

	claims, err := auth.NewJWTProvider("cli-secret").Parse(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "owner-1", claims.UserID)
	assert.Equal(t, "owner@example.com", claims.Email)
}
