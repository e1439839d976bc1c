package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const transactionsTable = "transactions"

// Dataset identifies where the transactions table lives.
type Dataset struct {
	ProjectID string
	DatasetID string
}

func (d Dataset) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", d.ProjectID, d.DatasetID, name)
}

// InsertTransactionWithClient inserts one row with a DML statement. Streaming inserts
// would keep the row out of reach of UPDATE and DELETE for a while.
func InsertTransactionWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, row *TransactionRow) error {
	q := client.Query(fmt.Sprintf(`
		INSERT %s (
			transaction_id,
			user_id,
			transaction_date,
			amount,
			direction,
			description,
			category_name,
			created_ts
		)
		VALUES (
			@transaction_id,
			@user_id,
			@transaction_date,
			@amount,
			@direction,
			@description,
			@category_name,
			@created_ts
		)
	`, ds.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: row.TransactionID},
		{Name: "user_id", Value: row.UserID},
		{Name: "transaction_date", Value: row.TransactionDate},
		{Name: "amount", Value: row.Amount},
		{Name: "direction", Value: row.Direction},
		{Name: "description", Value: row.Description},
		{Name: "category_name", Value: row.CategoryName},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertTransaction: %w", err)
	}
	return nil
}

// QueryTransactionsByUserWithClient returns the user's rows, most recent first.
func QueryTransactionsByUserWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string) ([]*TransactionRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			transaction_id,
			user_id,
			transaction_date,
			amount,
			direction,
			description,
			category_name,
			created_ts,
			updated_ts
		FROM %s
		WHERE user_id = @user_id
		ORDER BY transaction_date DESC, created_ts DESC
	`, ds.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	rows, err := readRows(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactionsByUser: %w", err)
	}
	return rows, nil
}

// GetTransactionWithClient returns one row, or nil when the user has no such transaction.
func GetTransactionWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID, transactionID string) (*TransactionRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			transaction_id,
			user_id,
			transaction_date,
			amount,
			direction,
			description,
			category_name,
			created_ts,
			updated_ts
		FROM %s
		WHERE user_id = @user_id AND transaction_id = @transaction_id
		LIMIT 1
	`, ds.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "transaction_id", Value: transactionID},
	}

	rows, err := readRows(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// UpdateTransactionWithClient rewrites the mutable columns of one row and reports how
// many rows matched.
func UpdateTransactionWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, row *TransactionRow) (int64, error) {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET
			transaction_date = @transaction_date,
			amount = @amount,
			direction = @direction,
			description = @description,
			category_name = @category_name,
			updated_ts = CURRENT_TIMESTAMP()
		WHERE user_id = @user_id AND transaction_id = @transaction_id
	`, ds.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_date", Value: row.TransactionDate},
		{Name: "amount", Value: row.Amount},
		{Name: "direction", Value: row.Direction},
		{Name: "description", Value: row.Description},
		{Name: "category_name", Value: row.CategoryName},
		{Name: "user_id", Value: row.UserID},
		{Name: "transaction_id", Value: row.TransactionID},
	}

	n, err := runDML(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("UpdateTransaction: %w", err)
	}
	return n, nil
}

// DeleteTransactionWithClient deletes one row and reports how many rows matched.
func DeleteTransactionWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID, transactionID string) (int64, error) {
	q := client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = @user_id AND transaction_id = @transaction_id
	`, ds.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "transaction_id", Value: transactionID},
	}

	n, err := runDML(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("DeleteTransaction: %w", err)
	}
	return n, nil
}

func readRows(ctx context.Context, q *bigquery.Query) ([]*TransactionRow, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}

// runDML runs a DML statement to completion and returns the affected row count.
func runDML(ctx context.Context, q *bigquery.Query) (int64, error) {
	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("job error: %w", err)
	}

	if status.Statistics != nil {
		if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			return qs.NumDMLAffectedRows, nil
		}
	}
	return 0, nil
}
