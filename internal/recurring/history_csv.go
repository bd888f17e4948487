package recurring

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cleared-dev/ledger/internal/model"
)

// HistoryHeader is the CSV header for exported execution history.
const HistoryHeader = "template_id,scheduled_date,processed_at,status,entry_id,transaction_id,error"

const (
	dateFormat     = "2006-01-02"
	historyFields  = 7
	colTemplate    = 0
	colScheduled   = 1
	colProcessed   = 2
	colStatus      = 3
	colEntry       = 4
	colTransaction = 5
	colError       = 6
)

// MarshalExecution converts an Execution to a CSV row.
func MarshalExecution(e model.Execution) []string {
	row := make([]string, historyFields)
	row[colTemplate] = e.TemplateID
	row[colScheduled] = e.ScheduledDate.Format(dateFormat)
	row[colProcessed] = e.ProcessedAt.UTC().Format(time.RFC3339)
	row[colStatus] = string(e.Status)
	if e.EntryID != nil {
		row[colEntry] = *e.EntryID
	}
	if e.TransactionID != nil {
		row[colTransaction] = *e.TransactionID
	}
	row[colError] = e.ErrorMessage
	return row
}

// UnmarshalExecution converts a CSV row to an Execution. The row carries no
// execution ID.
func UnmarshalExecution(record []string) (model.Execution, error) {
	if len(record) != historyFields {
		return model.Execution{}, fmt.Errorf("expected %d fields, got %d", historyFields, len(record))
	}

	scheduled, err := time.Parse(dateFormat, record[colScheduled])
	if err != nil {
		return model.Execution{}, fmt.Errorf("parsing scheduled date %q: %w", record[colScheduled], err)
	}
	processed, err := time.Parse(time.RFC3339, record[colProcessed])
	if err != nil {
		return model.Execution{}, fmt.Errorf("parsing processed at %q: %w", record[colProcessed], err)
	}
	status := model.ExecutionStatus(record[colStatus])
	if status != model.ExecutionSuccess && status != model.ExecutionFailed {
		return model.Execution{}, fmt.Errorf("unknown status %q", record[colStatus])
	}

	e := model.Execution{
		TemplateID:    record[colTemplate],
		ScheduledDate: scheduled,
		ProcessedAt:   processed,
		Status:        status,
		ErrorMessage:  record[colError],
	}
	if v := record[colEntry]; v != "" {
		e.EntryID = &v
	}
	if v := record[colTransaction]; v != "" {
		e.TransactionID = &v
	}
	return e, nil
}

// WriteHistory writes executions as CSV including the header.
func WriteHistory(w io.Writer, execs []model.Execution) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(HistoryHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, e := range execs {
		if err := cw.Write(MarshalExecution(e)); err != nil {
			return fmt.Errorf("writing execution %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadHistory reads executions written by WriteHistory.
func ReadHistory(r io.Reader) ([]model.Execution, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = historyFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading history CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var execs []model.Execution
	for i, rec := range records[1:] {
		e, err := UnmarshalExecution(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		execs = append(execs, e)
	}
	return execs, nil
}
