package settings_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/coffeeduty/core/settings"
	inmemdb "github.com/trezcool/coffeeduty/storage/database/inmem"
)

func TestService_Automation(t *testing.T) {
	svc := settings.NewService(inmemdb.NewSettingsStore(inmemdb.NewDB()))
	ctx := context.Background()

	enabled, err := svc.AutomationEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled, "automation is on until switched off")

	require.NoError(t, svc.SetAutomation(ctx, false))
	enabled, err = svc.AutomationEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, svc.SetAutomation(ctx, true))
	enabled, err = svc.AutomationEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestService_AutomationCorrupted(t *testing.T) {
	store := inmemdb.NewSettingsStore(inmemdb.NewDB())
	svc := settings.NewService(store)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, settings.KeyAutomationEnabled, "perhaps"))
	_, err := svc.AutomationEnabled(ctx)
	assert.Error(t, err)
}
