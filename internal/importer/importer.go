// Package importer loads transactions from CSV exports into a store.
//
// The expected header is date,description,amount[,type][,category] in any order,
// matched case-insensitively. Without a type column, negative amounts are expenses
// and positive amounts income. Rows without a category are categorized from their
// description.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/budgetai/insights/internal/domain"
)

var dateLayouts = []string{"2006-01-02", "01/02/2006", "2006/01/02", "02 Jan 2006", time.RFC3339}

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// TransactionCreator is the store capability the importer needs.
type TransactionCreator interface {
	Create(ctx context.Context, tx domain.Transaction) (domain.Transaction, error)
}

// RowError describes a skipped row. Line is 1-based and counts the header.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Result summarizes one import.
type Result struct {
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors,omitempty"`
}

// Importer parses CSV files and stores the valid rows.
type Importer struct {
	store  TransactionCreator
	source Source
	log    zerolog.Logger
	now    func() time.Time
}

// New creates an importer. source may be nil when only Import is used.
func New(store TransactionCreator, source Source, log zerolog.Logger) *Importer {
	return &Importer{store: store, source: source, log: log, now: time.Now}
}

// ImportURI opens uri through the configured source and imports it for userID.
func (im *Importer) ImportURI(ctx context.Context, userID, uri string) (Result, error) {
	if im.source == nil {
		return Result{}, fmt.Errorf("ImportURI: no import source configured")
	}
	rc, err := im.source.Open(ctx, uri)
	if err != nil {
		return Result{}, fmt.Errorf("ImportURI: %w", err)
	}
	defer rc.Close()

	res, err := im.Import(ctx, userID, rc)
	if err != nil {
		return res, fmt.Errorf("ImportURI: %s: %w", FilenameFromURI(uri), err)
	}
	return res, nil
}

type columns struct {
	date, description, amount, txType, category int
}

func readHeader(header []string) (columns, error) {
	cols := columns{date: -1, description: -1, amount: -1, txType: -1, category: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "date":
			cols.date = i
		case "description":
			cols.description = i
		case "amount":
			cols.amount = i
		case "type":
			cols.txType = i
		case "category":
			cols.category = i
		}
	}

	var missing []string
	if cols.date < 0 {
		missing = append(missing, "date")
	}
	if cols.description < 0 {
		missing = append(missing, "description")
	}
	if cols.amount < 0 {
		missing = append(missing, "amount")
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return cols, nil
}

// Import reads CSV from r and creates a transaction for every valid row. Invalid rows
// are skipped and reported in the result; a store failure aborts the import.
func (im *Importer) Import(ctx context.Context, userID string, r io.Reader) (Result, error) {
	res := Result{}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("Import: read header: %w", err)
	}
	cols, err := readHeader(header)
	if err != nil {
		return res, fmt.Errorf("Import: %w", err)
	}

	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			res.skip(line, err.Error())
			continue
		}
		if isBlank(record) {
			continue
		}

		tx, err := im.parseRecord(record, cols)
		if err != nil {
			res.skip(line, err.Error())
			continue
		}
		tx.UserID = userID

		if _, err := im.store.Create(ctx, tx); err != nil {
			return res, fmt.Errorf("Import: line %d: create: %w", line, err)
		}
		res.Imported++
	}

	im.log.Info().
		Str("user_id", userID).
		Int("imported", res.Imported).
		Int("skipped", res.Skipped).
		Msg("CSV import finished")
	return res, nil
}

func (res *Result) skip(line int, reason string) {
	res.Skipped++
	res.Errors = append(res.Errors, RowError{Line: line, Reason: reason})
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func (im *Importer) parseRecord(record []string, cols columns) (domain.Transaction, error) {
	date, err := parseDate(field(record, cols.date))
	if err != nil {
		return domain.Transaction{}, err
	}

	rawAmount := strings.NewReplacer(",", "", "$", "", "₱", "").Replace(field(record, cols.amount))
	amount, err := strconv.ParseFloat(rawAmount, 64)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid amount %q", field(record, cols.amount))
	}

	txType := domain.TransactionType(strings.ToLower(field(record, cols.txType)))
	if txType == "" {
		txType = domain.TypeIncome
		if amount < 0 {
			txType = domain.TypeExpense
		}
	}

	tx := domain.Transaction{
		Amount:      amount,
		Description: field(record, cols.description),
		Category:    domain.Category(field(record, cols.category)),
		Type:        txType,
		Date:        date,
	}
	tx.Normalize(im.now().UTC())
	if err := tx.Validate(); err != nil {
		return domain.Transaction{}, err
	}
	return tx, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
