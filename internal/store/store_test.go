package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/apperr"
	"github.com/cleared-dev/ledger/internal/config"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
	"github.com/cleared-dev/ledger/internal/store/storetest"
)

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := store.Open(config.DatabaseConfig{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestMigrate_CreatesTables(t *testing.T) {
	db := storetest.Open(t)

	for _, m := range []any{
		&model.Account{}, &model.Period{}, &model.Entry{}, &model.Line{}, &model.EntrySequence{},
		&model.Template{}, &model.TemplateLine{}, &model.Transaction{}, &model.TransactionLine{}, &model.Execution{},
	} {
		assert.True(t, db.Migrator().HasTable(m), "table for %T", m)
	}
}

func TestDuplicateKeyTranslated(t *testing.T) {
	db := storetest.Open(t)
	seq := model.EntrySequence{CompanyID: "c1", Prefix: "JE", Year: 2024, Month: 1, LastValue: 1}
	require.NoError(t, db.Create(&seq).Error)

	err := db.Create(&model.EntrySequence{CompanyID: "c1", Prefix: "JE", Year: 2024, Month: 1, LastValue: 1}).Error
	require.Error(t, err)
	assert.True(t, store.IsDuplicate(err))
}

func TestRetry_ConflictThenSuccess(t *testing.T) {
	calls := 0
	got, err := store.Retry(context.Background(), 5, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, fmt.Errorf("account a1: %w", apperr.ErrConflict)
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestRetry_PermanentErrorNotRetried(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	_, err := store.Retry(context.Background(), 5, func() (int, error) {
		calls++
		return 0, boom
	})
	require.Error(t, err)
	assert.Equal(t, boom, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_ExhaustedKeepsConflict(t *testing.T) {
	calls := 0
	_, err := store.Retry(context.Background(), 2, func() (struct{}, error) {
		calls++
		return struct{}{}, apperr.ErrConflict
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, 2, calls)
}
