package di

import (
	"context"
	"errors"
	"testing"

	"returnsdesk/internal/config"
	"returnsdesk/internal/observability"
	"returnsdesk/internal/storage"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContainer(t *testing.T) *ServiceContainer {
	t.Helper()
	cfg := &config.Config{}
	cfg.Auth.Users = config.DefaultUsers()
	cfg.Uploads.Backend = config.UploadBackendLocal
	cfg.Uploads.Dir = t.TempDir()
	cfg.Uploads.AllowedExtensions = config.DefaultAllowedExtensions

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sc := NewServiceContainer(cfg, observability.NewNopLogger(), nil)
	sc.db = sqlx.NewDb(db, "postgres")
	return sc
}

func TestServiceContainer_InitializeServices(t *testing.T) {
	sc := newTestContainer(t)
	require.NoError(t, sc.initializeServices(context.Background()))

	svc, err := sc.GetReturnService()
	require.NoError(t, err)
	assert.NotNil(t, svc)

	store, err := sc.GetImageStore()
	require.NoError(t, err)
	local, ok := store.(*storage.LocalStore)
	require.True(t, ok)
	assert.Equal(t, sc.cfg.Uploads.Dir, local.Root())

	assert.NotNil(t, sc.GetDatabase())
	assert.NotNil(t, sc.GetDatabaseManager())
	assert.Same(t, sc.cfg, sc.GetConfig())
	assert.NotNil(t, sc.GetLogger())
}

func TestServiceContainer_InvalidUserDirectory(t *testing.T) {
	sc := newTestContainer(t)
	sc.cfg.Auth.Users = []config.UserEntry{{Username: "x", Password: "y", Role: "admin"}}

	err := sc.initializeServices(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestServiceContainer_GetServiceErrors(t *testing.T) {
	sc := newTestContainer(t)

	_, err := sc.GetService("missing")
	assert.Error(t, err)

	sc.services[ServiceReturns] = "not a service"
	_, err = sc.GetReturnService()
	assert.Error(t, err)
}

func TestServiceContainer_ShutdownRunsInReverseOrder(t *testing.T) {
	sc := newTestContainer(t)

	var order []int
	sc.shutdownFuncs = []func(context.Context) error{
		func(context.Context) error { order = append(order, 1); return nil },
		func(context.Context) error { order = append(order, 2); return errors.New("boom") },
		func(context.Context) error { order = append(order, 3); return nil },
	}

	err := sc.Shutdown(context.Background())
	assert.Error(t, err)
	assert.Equal(t, []int{3, 2, 1}, order)

	// a second shutdown has nothing left to run
	assert.NoError(t, sc.Shutdown(context.Background()))
}
