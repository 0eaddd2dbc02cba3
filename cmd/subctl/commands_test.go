package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/group_sub_server/config"
	"github.com/qs3c/group_sub_server/internal/app"
	"github.com/qs3c/group_sub_server/internal/testutil"
)

func setupCLI(t *testing.T) (*app.App, func(args ...string) (string, error)) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	a := app.New(config.Default(), db, nil, clockwork.NewFakeClockAt(testutil.BaseTime))
	open := func(*cobra.Command) (*app.App, error) { return a, nil }

	run := func(args ...string) (string, error) {
		root := newRootCmd(open)
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(args)
		err := root.ExecuteContext(context.Background())
		return out.String(), err
	}
	return a, run
}

func TestBootstrapAndPlans(t *testing.T) {
	_, run := setupCLI(t)

	out, err := run("bootstrap")
	require.NoError(t, err)
	assert.Contains(t, out, "default plans created")
	assert.Contains(t, out, "operators seeded: 0")

	out, err = run("bootstrap")
	require.NoError(t, err)
	assert.Contains(t, out, "plan catalog already present")

	out, err = run("plans")
	require.NoError(t, err)
	assert.Contains(t, out, "premium")
	assert.Contains(t, out, "200.00")
}

func TestPendingAndStatus(t *testing.T) {
	a, run := setupCLI(t)
	require.NoError(t, a.Init(context.Background()))

	out, err := run("pending")
	require.NoError(t, err)
	assert.Contains(t, out, "no pending requests")

	id, err := a.Approval.Submit(context.Background(), 1001, 55, "basic", nil)
	require.NoError(t, err)

	out, err = run("pending")
	require.NoError(t, err)
	assert.Contains(t, out, "1001")

	_, err = a.Approval.Approve(context.Background(), id, 7, nil)
	require.NoError(t, err)

	out, err = run("status", "1001")
	require.NoError(t, err)
	assert.Contains(t, out, "plan:      basic")
	assert.Contains(t, out, "active:    true")
	assert.Contains(t, out, "(30 days)")

	out, err = run("status", "4040")
	require.NoError(t, err)
	assert.Contains(t, out, "has no subscription")

	_, err = run("status", "abc")
	assert.Error(t, err)
}

func TestSweep(t *testing.T) {
	a, run := setupCLI(t)
	require.NoError(t, a.Init(context.Background()))

	testutil.TestEntitlement(t, a.Store.DB(), 2002, "basic", testutil.BaseTime.Add(-time.Minute))

	out, err := run("sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "groups checked:  1")
	assert.Contains(t, out, "expired handled: 1")
}

func TestOperatorAdd(t *testing.T) {
	_, run := setupCLI(t)

	out, err := run("operator", "add", "alice", "--password", "password123")
	require.NoError(t, err)
	assert.Contains(t, out, "operator alice created")

	_, err = run("operator", "add", "bob")
	assert.Error(t, err)

	_, err = run("operator", "add", "carol", "--password", "short")
	assert.Error(t, err)
}

func TestFeatures(t *testing.T) {
	a, run := setupCLI(t)

	out, err := run("features")
	require.NoError(t, err)
	assert.Contains(t, out, "night_mode")
	assert.Contains(t, out, "paid")
	assert.Contains(t, out, "custom_keywords")

	out, err = run("features", "--group", "1001")
	require.NoError(t, err)
	assert.Contains(t, out, "has no feature switches")

	require.NoError(t, a.Gate.Enable(context.Background(), 1001, "night_mode", 7))
	require.NoError(t, a.Gate.Enable(context.Background(), 1001, "anti_spam", 7))
	require.NoError(t, a.Gate.Disable(context.Background(), 1001, "anti_spam", 7))

	out, err = run("features", "--group", "1001")
	require.NoError(t, err)
	assert.Contains(t, out, "night_mode")
	assert.Contains(t, out, "anti_spam")
	assert.Contains(t, out, "false")
}

func TestQueue(t *testing.T) {
	_, run := setupCLI(t)

	_, err := run("queue")
	assert.Error(t, err)

	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	client, _, cleanup := testutil.SetupTestRedis(t)
	defer cleanup()

	a := app.New(config.Default(), db, client, clockwork.NewFakeClockAt(testutil.BaseTime))
	require.NoError(t, a.Init(context.Background()))
	testutil.TestEntitlement(t, db, 2002, "basic", testutil.BaseTime.Add(7*24*time.Hour))

	root := newRootCmd(func(*cobra.Command) (*app.App, error) { return a, nil })
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"sweep"})
	require.NoError(t, root.ExecuteContext(context.Background()))

	out.Reset()
	root = newRootCmd(func(*cobra.Command) (*app.App, error) { return a, nil })
	root.SetOut(&out)
	root.SetArgs([]string{"queue"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "pending notifications: 1")
}
