package importer

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/budgetai/insights/internal/domain"
)

type mockCreator struct {
	created    []domain.Transaction
	CreateFunc func(ctx context.Context, tx domain.Transaction) (domain.Transaction, error)
}

func (m *mockCreator) Create(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx)
	}
	m.created = append(m.created, tx)
	return tx, nil
}

type mockSource struct {
	OpenFunc func(ctx context.Context, uri string) (io.ReadCloser, error)
}

func (m *mockSource) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	return m.OpenFunc(ctx, uri)
}

func TestImport(t *testing.T) {
	csvData := strings.Join([]string{
		"Date,Description,Amount,Type,Category",
		"2025-03-01,Salary,3000,income,Income",
		"2025-03-02,Grocery run,-82.40,expense,",
		"03/05/2025,Netflix,15.99,expense,Entertainment",
		"2025-03-06,Broken,abc,expense,Other",
		"not-a-date,Lunch,12,expense,Food & Dining",
		"2025-03-07,Mystery,10,expense,Gadgets",
		",,,,",
		"2025-03-08,Bus pass,40,expense,Transportation",
	}, "\n")

	store := &mockCreator{}
	im := New(store, nil, zerolog.Nop())

	res, err := im.Import(context.Background(), "alice", strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Imported != 4 || res.Skipped != 3 {
		t.Errorf("result = %+v, want 4 imported / 3 skipped", res)
	}

	wantLines := []int{5, 6, 7}
	for i, e := range res.Errors {
		if e.Line != wantLines[i] {
			t.Errorf("Errors[%d].Line = %d, want %d", i, e.Line, wantLines[i])
		}
	}

	grocery := store.created[1]
	if grocery.Amount != 82.40 {
		t.Errorf("grocery amount = %v, want positive magnitude", grocery.Amount)
	}
	if grocery.Category != domain.CategoryFood {
		t.Errorf("grocery category = %q, want smart-categorized Food & Dining", grocery.Category)
	}
	if grocery.UserID != "alice" {
		t.Errorf("UserID = %q", grocery.UserID)
	}

	netflix := store.created[2]
	if !netflix.Date.Equal(time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("netflix date = %v", netflix.Date)
	}
}

func TestImport_TypeFromSign(t *testing.T) {
	csvData := "description,amount,date\nRefund,25,2025-01-01\nCoffee,-4.5,2025-01-02\n"
	store := &mockCreator{}

	if _, err := New(store, nil, zerolog.Nop()).Import(context.Background(), "u", strings.NewReader(csvData)); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if store.created[0].Type != domain.TypeIncome || store.created[1].Type != domain.TypeExpense {
		t.Errorf("types = %q, %q", store.created[0].Type, store.created[1].Type)
	}
}

func TestImport_HeaderErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"missing amount", "date,description\n2025-01-01,x\n", ErrMissingColumn},
		{"empty file", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&mockCreator{}, nil, zerolog.Nop()).Import(context.Background(), "u", strings.NewReader(tt.data))
			if tt.wantErr == nil && err != nil {
				t.Errorf("Import() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Import() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestImport_StoreFailureAborts(t *testing.T) {
	storeErr := errors.New("disk full")
	store := &mockCreator{CreateFunc: func(context.Context, domain.Transaction) (domain.Transaction, error) {
		return domain.Transaction{}, storeErr
	}}

	_, err := New(store, nil, zerolog.Nop()).Import(context.Background(), "u",
		strings.NewReader("date,description,amount\n2025-01-01,Rent,-900\n"))
	if !errors.Is(err, storeErr) {
		t.Errorf("Import() error = %v, want %v", err, storeErr)
	}
}

func TestImportURI(t *testing.T) {
	var gotURI string
	src := &mockSource{OpenFunc: func(_ context.Context, uri string) (io.ReadCloser, error) {
		gotURI = uri
		return io.NopCloser(strings.NewReader("date,description,amount\n2025-01-01,Rent,-900\n")), nil
	}}
	store := &mockCreator{}

	res, err := New(store, src, zerolog.Nop()).ImportURI(context.Background(), "u", "gs://bucket/exports/jan.csv")
	if err != nil {
		t.Fatalf("ImportURI() error = %v", err)
	}
	if gotURI != "gs://bucket/exports/jan.csv" || res.Imported != 1 {
		t.Errorf("uri = %q, result = %+v", gotURI, res)
	}

	if _, err := New(store, nil, zerolog.Nop()).ImportURI(context.Background(), "u", "gs://b/o"); err == nil {
		t.Error("ImportURI() without source error = nil")
	}
}

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs://budget-imports/alice/march.csv", "budget-imports", "alice/march.csv", false},
		{"gs://bucket/file.csv", "bucket", "file.csv", false},
		{"gs://bucket", "", "", true},
		{"gs://bucket/", "", "", true},
		{"s3://bucket/file.csv", "", "", true},
		{"/tmp/file.csv", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGCSURI() error = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("ParseGCSURI() = %q, %q", bucket, object)
			}
		})
	}
}

func TestFilenameFromURI(t *testing.T) {
	tests := map[string]string{
		"gs://bucket/folder/file.csv": "file.csv",
		"gs://bucket/file.csv":        "file.csv",
		"gs://bucket":                 "bucket",
	}
	for uri, want := range tests {
		if got := FilenameFromURI(uri); got != want {
			t.Errorf("FilenameFromURI(%q) = %q, want %q", uri, got, want)
		}
	}
}
