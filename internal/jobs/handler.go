package jobs

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/budgetai/insights/internal/importer"
)

// URIImporter is the importer capability the import handler needs.
type URIImporter interface {
	ImportURI(ctx context.Context, userID, uri string) (importer.Result, error)
}

// NewImportHandler returns a JobHandler that imports the job's source file and
// records the row counts on the job.
func NewImportHandler(im URIImporter, log zerolog.Logger) JobHandler {
	return func(ctx context.Context, job *ImportTransactionsJob) error {
		if job.UserID == "" || job.SourceURI == "" {
			return fmt.Errorf("ImportHandler: job %s: user id and source uri are required", job.JobID)
		}

		log.Info().
			Str("job_id", job.JobID).
			Str("user_id", job.UserID).
			Str("source_uri", job.SourceURI).
			Msg("Processing import job")

		res, err := im.ImportURI(ctx, job.UserID, job.SourceURI)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", job.JobID).
				Msg("Import failed")
			return fmt.Errorf("ImportHandler: job %s: %w", job.JobID, err)
		}

		job.Imported = res.Imported
		job.Skipped = res.Skipped

		log.Info().
			Str("job_id", job.JobID).
			Int("imported", res.Imported).
			Int("skipped", res.Skipped).
			Msg("Import job completed")
		return nil
	}
}
