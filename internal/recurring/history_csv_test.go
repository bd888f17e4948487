package recurring

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/model"
)

func TestHistoryCSV(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	tmpl := f.rent(t, nil)

	_, err := f.engine.ProcessDue(ctx, date(2024, 1, 15))
	require.NoError(t, err)
	execs, err := f.engine.History(ctx, tmpl.ID)
	require.NoError(t, err)
	require.Len(t, execs, 1)

	var buf bytes.Buffer
	require.NoError(t, WriteHistory(&buf, execs))
	assert.True(t, strings.HasPrefix(buf.String(), HistoryHeader+"\n"))

	got, err := ReadHistory(&buf)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, tmpl.ID, got[0].TemplateID)
	assert.Equal(t, date(2024, 1, 15), got[0].ScheduledDate)
	assert.Equal(t, model.ExecutionSuccess, got[0].Status)
	assert.Equal(t, execs[0].EntryID, got[0].EntryID)
	assert.Equal(t, execs[0].ProcessedAt.UTC().Truncate(time.Second), got[0].ProcessedAt)
}

func TestReadHistory_Errors(t *testing.T) {
	tests := []struct {
		name string
		row  string
	}{
		{"bad date", "t1,15/01/2024,2024-01-15T00:00:00Z,success,,,"},
		{"bad status", "t1,2024-01-15,2024-01-15T00:00:00Z,skipped,,,"},
		{"short row", "t1,2024-01-15"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadHistory(strings.NewReader(HistoryHeader + "\n" + tt.row + "\n"))
			assert.Error(t, err)
		})
	}

	execs, err := ReadHistory(strings.NewReader(HistoryHeader + "\n"))
	require.NoError(t, err)
	assert.Empty(t, execs)
}
