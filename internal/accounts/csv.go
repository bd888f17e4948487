package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/cleared-dev/ledger/internal/model"
)

// ChartAccount is one row of a chart-of-accounts file.
type ChartAccount struct {
	Code             string
	Name             string
	Type             model.AccountType
	NormalBalance    model.NormalBalance
	ParentCode       string
	AllowManualEntry bool
	Active           bool
	Description      string
}

const (
	numFields = 8
	colCode   = 0
	colName   = 1
	colType   = 2
	colNormal = 3
	colParent = 4
	colManual = 5
	colActive = 6
	colDesc   = 7
)

var chartHeader = []string{"code", "name", "type", "normal_balance", "parent_code", "allow_manual_entry", "active", "description"}

// ReadChart reads a chart-of-accounts CSV.
func ReadChart(r io.Reader) ([]ChartAccount, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var chart []ChartAccount
	for i, rec := range records[1:] {
		acct, err := UnmarshalChartAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		chart = append(chart, acct)
	}
	return chart, nil
}

// WriteChart writes a chart-of-accounts CSV including the header.
func WriteChart(w io.Writer, chart []ChartAccount) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(chartHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range chart {
		if err := cw.Write(MarshalChartAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalChartAccount converts a ChartAccount to a CSV row.
func MarshalChartAccount(acct ChartAccount) []string {
	row := make([]string, numFields)
	row[colCode] = acct.Code
	row[colName] = acct.Name
	row[colType] = string(acct.Type)
	row[colNormal] = string(acct.NormalBalance)
	row[colParent] = acct.ParentCode
	row[colManual] = strconv.FormatBool(acct.AllowManualEntry)
	row[colActive] = strconv.FormatBool(acct.Active)
	row[colDesc] = acct.Description
	return row
}

// UnmarshalChartAccount converts a CSV row to a ChartAccount. An empty
// normal_balance column takes the type's default direction.
func UnmarshalChartAccount(record []string) (ChartAccount, error) {
	if len(record) != numFields {
		return ChartAccount{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	acctType := model.AccountType(record[colType])
	if !acctType.Valid() {
		return ChartAccount{}, fmt.Errorf("unknown account type %q", record[colType])
	}

	normal := model.NormalBalance(record[colNormal])
	if normal == "" {
		normal = acctType.NormalBalance()
	}
	if !normal.Valid() {
		return ChartAccount{}, fmt.Errorf("unknown normal balance %q", record[colNormal])
	}

	manual, err := parseBool(record[colManual], true)
	if err != nil {
		return ChartAccount{}, fmt.Errorf("parsing allow_manual_entry %q: %w", record[colManual], err)
	}
	active, err := parseBool(record[colActive], true)
	if err != nil {
		return ChartAccount{}, fmt.Errorf("parsing active %q: %w", record[colActive], err)
	}

	return ChartAccount{
		Code:             record[colCode],
		Name:             record[colName],
		Type:             acctType,
		NormalBalance:    normal,
		ParentCode:       record[colParent],
		AllowManualEntry: manual,
		Active:           active,
		Description:      record[colDesc],
	}, nil
}

func parseBool(s string, def bool) (bool, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseBool(s)
}

// sortParentsFirst orders chart rows so every parent precedes its children,
// keeping the input order otherwise. Rows whose parent never appears go last.
func sortParentsFirst(chart []ChartAccount) []ChartAccount {
	placed := make(map[string]bool, len(chart))
	out := make([]ChartAccount, 0, len(chart))
	pending := chart
	for len(pending) > 0 {
		var next []ChartAccount
		for _, c := range pending {
			if c.ParentCode == "" || placed[c.ParentCode] {
				out = append(out, c)
				placed[c.Code] = true
				continue
			}
			next = append(next, c)
		}
		if len(next) == len(pending) {
			return append(out, next...)
		}
		pending = next
	}
	return out
}
