package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ftc-platform/pkg/db/option"
	"ftc-platform/services/testutil"
)

type widget struct {
	ID        string `gorm:"column:id;primaryKey"`
	Kind      string `gorm:"column:kind"`
	Size      int    `gorm:"column:size"`
	CreatedAt time.Time
}

func TestStoreCRUD(t *testing.T) {
	db := testutil.NewTestDB(t, &widget{})
	repo := ProvideStore[widget](db)
	ctx := context.Background()

	require.NoError(t, repo.BatchCreate(ctx, []*widget{
		{ID: "1", Kind: "a", Size: 1},
		{ID: "2", Kind: "a", Size: 5},
		{ID: "3", Kind: "b", Size: 9},
	}))

	found, err := repo.Find(ctx, &widget{Kind: "a"}, option.ApplyOperator(option.Condition{Field: "size", Operator: option.GT, Value: 2}))
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "2", found[0].ID)

	missing, err := repo.FindOne(ctx, &widget{ID: "404"})
	require.NoError(t, err)
	require.Nil(t, missing)

	require.NoError(t, repo.Update(ctx, "3", map[string]any{"size": 10}))
	require.ErrorIs(t, repo.Update(ctx, "404", map[string]any{"size": 10}), gorm.ErrRecordNotFound)

	n, err := repo.Count(ctx, &widget{Kind: "a"})
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}

func TestStoreWithTrxRollback(t *testing.T) {
	db := testutil.NewTestDB(t, &widget{})
	repo := ProvideStore[widget](db)
	ctx := context.Background()

	_ = db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, repo.WithTrx(tx).Create(ctx, &widget{ID: "1"}))
		return gorm.ErrInvalidTransaction
	})

	n, err := repo.Count(ctx, &widget{})
	require.NoError(t, err)
	require.Zero(t, n)
}
