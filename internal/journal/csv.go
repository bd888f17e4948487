package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/model"
)

// Header is the CSV header for entry line files.
const Header = "account,description,debit,credit"

const (
	numFields = 4
	colAcct   = 0
	colDesc   = 1
	colDebit  = 2
	colCredit = 3
)

// LineRecord is one line of an entry file, keyed by account code.
type LineRecord struct {
	AccountCode string
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// ReadLines reads all line records from an entry CSV reader.
func ReadLines(r io.Reader) ([]LineRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading entry CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var lines []LineRecord
	for i, rec := range records[1:] {
		l, err := UnmarshalLine(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		lines = append(lines, l)
	}
	return lines, nil
}

// WriteLines writes line records to an entry CSV writer (including header).
func WriteLines(w io.Writer, lines []LineRecord) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, l := range lines {
		if err := cw.Write(MarshalLine(l)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalLine converts a LineRecord to a CSV row.
func MarshalLine(l LineRecord) []string {
	row := make([]string, numFields)
	row[colAcct] = l.AccountCode
	row[colDesc] = l.Description
	if !l.Debit.IsZero() {
		row[colDebit] = l.Debit.StringFixed(2)
	}
	if !l.Credit.IsZero() {
		row[colCredit] = l.Credit.StringFixed(2)
	}
	return row
}

// UnmarshalLine converts a CSV row to a LineRecord.
func UnmarshalLine(record []string) (LineRecord, error) {
	if len(record) != numFields {
		return LineRecord{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	if record[colAcct] == "" {
		return LineRecord{}, fmt.Errorf("account is required")
	}

	var debit, credit decimal.Decimal
	var err error

	if record[colDebit] != "" {
		debit, err = decimal.NewFromString(record[colDebit])
		if err != nil {
			return LineRecord{}, fmt.Errorf("parsing debit %q: %w", record[colDebit], err)
		}
	}

	if record[colCredit] != "" {
		credit, err = decimal.NewFromString(record[colCredit])
		if err != nil {
			return LineRecord{}, fmt.Errorf("parsing credit %q: %w", record[colCredit], err)
		}
	}

	return LineRecord{
		AccountCode: record[colAcct],
		Description: record[colDesc],
		Debit:       debit,
		Credit:      credit,
	}, nil
}

// RecordsFromEntry converts a loaded entry's lines to line records. Lines
// must have their Account attached.
func RecordsFromEntry(entry *model.Entry) []LineRecord {
	out := make([]LineRecord, len(entry.Lines))
	for i, l := range entry.Lines {
		code := l.AccountID
		if l.Account != nil {
			code = l.Account.Code
		}
		out[i] = LineRecord{AccountCode: code, Description: l.Description, Debit: l.Debit, Credit: l.Credit}
	}
	return out
}
