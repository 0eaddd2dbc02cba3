package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/group_sub_server/internal/model"
	"github.com/qs3c/group_sub_server/internal/testutil"
)

func TestStore_Atomic_Commit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	store := NewStore(db)
	expires := testutil.BaseTime.Add(30 * 24 * time.Hour)

	err := store.Atomic(context.Background(), func(tx *Store) error {
		if err := tx.Entitlements.Upsert(&model.Entitlement{
			GroupID:   1001,
			PlanID:    "basic",
			Active:    true,
			ExpiresAt: &expires,
		}); err != nil {
			return err
		}
		return tx.Features.Upsert(&model.FeatureGrant{GroupID: 1001, Feature: "welcome_message", Enabled: true})
	})
	require.NoError(t, err)

	ent, err := store.Entitlements.GetByGroupID(1001)
	require.NoError(t, err)
	assert.True(t, ent.Active)

	enabled, err := store.Features.ListEnabled(1001)
	require.NoError(t, err)
	assert.Equal(t, []string{"welcome_message"}, enabled)
}

func TestStore_Atomic_Rollback(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	store := NewStore(db)
	boom := errors.New("boom")

	err := store.Atomic(context.Background(), func(tx *Store) error {
		if err := tx.Entitlements.Upsert(&model.Entitlement{GroupID: 1001, PlanID: "basic", Active: true}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrCommitUncertain)

	_, err = store.Entitlements.GetByGroupID(1001)
	assert.Error(t, err)
}

func TestStore_Atomic_PanicRollsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	store := NewStore(db)

	assert.Panics(t, func() {
		_ = store.Atomic(context.Background(), func(tx *Store) error {
			_ = tx.Entitlements.Upsert(&model.Entitlement{GroupID: 1001, PlanID: "basic"})
			panic("boom")
		})
	})

	count, err := store.Entitlements.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTrimOldest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewHistoryRepository(db)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.AppendCancellation(&model.CancellationRecord{
			GroupID:     int64(i + 1),
			Reason:      "refund",
			CancelledAt: testutil.BaseTime.Add(time.Duration(i) * time.Minute),
		}))
	}

	require.NoError(t, repo.TrimCancellations(3))

	records, err := repo.ListCancellations(0, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, int64(5), records[0].GroupID)
	assert.Equal(t, int64(3), records[2].GroupID)

	// 未超出上限时不删除
	require.NoError(t, repo.TrimCancellations(10))
	records, err = repo.ListCancellations(0, 0)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}
