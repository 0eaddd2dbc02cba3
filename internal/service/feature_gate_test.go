package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeaturesForTags(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want []string
	}{
		{
			name: "basic plan",
			tags: []string{"all_auto_reply", "moderation", "scheduling"},
			want: basicFeatures,
		},
		{
			name: "free plan ignores unmapped tag",
			tags: []string{"basic_auto_reply", "welcome_message"},
			want: []string{"auto_reply"},
		},
		{
			name: "premium plan deduplicates",
			tags: []string{"all_features", "highest_priority", "customization"},
			want: []string{"analytics", "auto_reply", "custom_keywords", "custom_messages", "intelligence", "moderation"},
		},
		{
			name: "no tags",
			tags: nil,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FeaturesForTags(tt.tags))
		})
	}
}

func TestKnownFeatures(t *testing.T) {
	known := KnownFeatures()
	for _, f := range append(append([]string{}, PaidFeatures...), FreeFeatures...) {
		assert.Contains(t, known, f)
	}
	assert.True(t, IsKnownFeature("custom_keywords"))
	assert.False(t, IsKnownFeature("teleport"))
}

func TestFeatureGate_IsEnabled_DefaultsFalse(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	enabled, err := env.gate.IsEnabled(context.Background(), 1001, "moderation")
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestFeatureGate_Enable_Idempotent(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, env.gate.Enable(ctx, 1001, "night_mode", 7))
	require.NoError(t, env.gate.Enable(ctx, 1001, "night_mode", 8))

	enabled, err := env.gate.IsEnabled(ctx, 1001, "night_mode")
	require.NoError(t, err)
	assert.True(t, enabled)

	changes, err := env.gate.Changes(ctx, 1001, 0)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, int64(7), changes[0].ChangedBy)
}

func TestFeatureGate_Disable_Idempotent(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, env.gate.Disable(ctx, 1001, "anti_spam", 7))
	changes, err := env.gate.Changes(ctx, 1001, 0)
	require.NoError(t, err)
	assert.Empty(t, changes)

	require.NoError(t, env.gate.Enable(ctx, 1001, "anti_spam", 7))
	require.NoError(t, env.gate.Disable(ctx, 1001, "anti_spam", 7))
	require.NoError(t, env.gate.Disable(ctx, 1001, "anti_spam", 7))

	enabled, err := env.gate.IsEnabled(ctx, 1001, "anti_spam")
	require.NoError(t, err)
	assert.False(t, enabled)

	changes, err = env.gate.Changes(ctx, 1001, 0)
	require.NoError(t, err)
	assert.Len(t, changes, 2)
}

func TestFeatureGate_Toggle(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()

	state, err := env.gate.Toggle(ctx, 1001, "analytics", 7)
	require.NoError(t, err)
	assert.True(t, state)

	state, err = env.gate.Toggle(ctx, 1001, "analytics", 7)
	require.NoError(t, err)
	assert.False(t, state)
}

func TestFeatureGate_UnknownFeature(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	err := env.gate.Enable(context.Background(), 1001, "teleport", 7)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.gate.Toggle(context.Background(), 1001, "teleport", 7)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFeatureGate_ForceUnlock(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, env.gate.ForceUnlock(ctx, 1001, "intelligence", 7))

	enabled, err := env.gate.IsEnabled(ctx, 1001, "intelligence")
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.Contains(t, env.events.types(), "feature_changed")
}

func TestFeatureGate_ChangesAreCapped(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	env.cfg.Subscription.FeatureLogLimit = 3
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := env.gate.Toggle(ctx, 1001, "night_mode", 7)
		require.NoError(t, err)
		_, err = env.gate.Toggle(ctx, 1002, "night_mode", 7)
		require.NoError(t, err)
	}

	all, err := env.gate.Changes(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestFeatureGate_GrantsIncludeDisabled(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, env.gate.Enable(ctx, 1001, "night_mode", 7))
	require.NoError(t, env.gate.Enable(ctx, 1001, "analytics", 7))
	require.NoError(t, env.gate.Disable(ctx, 1001, "analytics", 8))

	grants, err := env.gate.Grants(ctx, 1001)
	require.NoError(t, err)
	require.Len(t, grants, 2)
	assert.Equal(t, "analytics", grants[0].Feature)
	assert.False(t, grants[0].Enabled)
	assert.Equal(t, int64(8), grants[0].ChangedBy)
	assert.True(t, grants[1].Enabled)

	enabled, err := env.gate.EnabledFeatures(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, []string{"night_mode"}, enabled)
}
