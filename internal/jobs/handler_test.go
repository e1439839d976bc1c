package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/budgetai/insights/internal/importer"
)

type mockImporter struct {
	ImportURIFunc func(ctx context.Context, userID, uri string) (importer.Result, error)
}

func (m *mockImporter) ImportURI(ctx context.Context, userID, uri string) (importer.Result, error) {
	return m.ImportURIFunc(ctx, userID, uri)
}

func TestImportHandler(t *testing.T) {
	importErr := errors.New("bucket missing")

	tests := []struct {
		name         string
		job          ImportTransactionsJob
		result       importer.Result
		importErr    error
		wantErr      bool
		wantImported int
		wantSkipped  int
	}{
		{
			name:         "records counts",
			job:          ImportTransactionsJob{JobID: "j1", UserID: "alice", SourceURI: "gs://b/a.csv"},
			result:       importer.Result{Imported: 7, Skipped: 2},
			wantImported: 7,
			wantSkipped:  2,
		},
		{
			name:      "import failure",
			job:       ImportTransactionsJob{JobID: "j2", UserID: "alice", SourceURI: "gs://b/a.csv"},
			importErr: importErr,
			wantErr:   true,
		},
		{
			name:    "missing source",
			job:     ImportTransactionsJob{JobID: "j3", UserID: "alice"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			im := &mockImporter{ImportURIFunc: func(_ context.Context, userID, uri string) (importer.Result, error) {
				if userID != tt.job.UserID || uri != tt.job.SourceURI {
					t.Errorf("ImportURI(%q, %q)", userID, uri)
				}
				return tt.result, tt.importErr
			}}

			job := tt.job
			err := NewImportHandler(im, zerolog.Nop())(context.Background(), &job)
			if (err != nil) != tt.wantErr {
				t.Fatalf("handler error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.importErr != nil && !errors.Is(err, tt.importErr) {
				t.Errorf("handler error = %v, want wrapped %v", err, tt.importErr)
			}
			if job.Imported != tt.wantImported || job.Skipped != tt.wantSkipped {
				t.Errorf("counts = %d/%d, want %d/%d", job.Imported, job.Skipped, tt.wantImported, tt.wantSkipped)
			}
		})
	}
}
