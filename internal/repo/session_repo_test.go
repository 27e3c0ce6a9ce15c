package repo

import (
	"context"
	"testing"

	"github.com/cafe/cafe/internal/cafe"
	"github.com/cafe/cafe/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadUnknownSession(t *testing.T) {
	database := setupTestDB(t)
	repo := NewSessionRepository(database, logger.NewLogger("test", "info"))

	state, err := repo.LoadFormState(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, state.PendingName)
	assert.True(t, state.PendingPrice.IsZero())
}

func TestSaveFormStateOverwrites(t *testing.T) {
	database := setupTestDB(t)
	repo := NewSessionRepository(database, logger.NewLogger("test", "info"))

	ctx := context.Background()

	first := cafe.FormState{PendingName: "Latte", PendingPrice: decimal.RequireFromString("3.5")}
	require.NoError(t, repo.SaveFormState(ctx, "s1", first))

	second := cafe.FormState{PendingName: "Mocha", PendingPrice: decimal.RequireFromString("4.25")}
	require.NoError(t, repo.SaveFormState(ctx, "s1", second))
	require.NoError(t, repo.SaveFormState(ctx, "s2", first))

	state, err := repo.LoadFormState(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, second.Equal(state), "got %+v", state)

	state, err = repo.LoadFormState(ctx, "s2")
	require.NoError(t, err)
	assert.True(t, first.Equal(state), "got %+v", state)
}
