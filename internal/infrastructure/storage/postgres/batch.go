package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// BatchInserter provides bulk insert via the COPY protocol. Movement
// generation for large documents (production runs, stock counts) writes
// hundreds of rows per call; COPY beats row-by-row INSERT well before
// that point.
type BatchInserter struct {
	txManager *TxManager
}

// NewBatchInserter creates a new batch inserter.
func NewBatchInserter(txManager *TxManager) *BatchInserter {
	return &BatchInserter{txManager: txManager}
}

// CopyFromSlice performs bulk insert from a slice of rows. Requires an
// active transaction so the copied rows commit or roll back with the
// rest of the movement set.
func (b *BatchInserter) CopyFromSlice(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	t := b.txManager.GetTx(ctx)
	if t == nil {
		return 0, fmt.Errorf("CopyFromSlice requires transaction context")
	}

	return t.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
}

// CopyFromRows performs bulk insert streaming rows from a channel.
// Each row is []any matching columns.
func (b *BatchInserter) CopyFromRows(ctx context.Context, table string, columns []string, rows <-chan []any) (int64, error) {
	t := b.txManager.GetTx(ctx)
	if t == nil {
		return 0, fmt.Errorf("CopyFromRows requires transaction context")
	}

	source := &channelCopyFromSource{rows: rows}
	return t.CopyFrom(ctx, pgx.Identifier{table}, columns, source)
}

// channelCopyFromSource implements pgx.CopyFromSource for channel-based row streaming.
type channelCopyFromSource struct {
	rows    <-chan []any
	current []any
}

func (s *channelCopyFromSource) Next() bool {
	row, ok := <-s.rows
	if !ok {
		return false
	}
	s.current = row
	return true
}

func (s *channelCopyFromSource) Values() ([]any, error) {
	return s.current, nil
}

func (s *channelCopyFromSource) Err() error {
	return nil
}
