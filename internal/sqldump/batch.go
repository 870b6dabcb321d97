package sqldump

import (
	"fmt"
	"strings"
)

// DefaultBatchLimit is the record cap per batch when the caller does not
// configure one. Observed import loops use 500-2000.
const DefaultBatchLimit = 1000

// MaterializeBatches regroups a directive's tuples into ordered batches of at
// most limit records each.
//
// When the whole statement fits in one batch, the original statement text is
// passed through unmodified. Otherwise each chunk is re-serialized from the
// captured raw tuple fragments, never from coerced values, so numeric
// precision and quoting style survive the round trip exactly. Concatenating
// the batches' records in order reproduces the original record order.
func MaterializeBatches(dir InsertDirective, tuples []RawTuple, statementText string, limit int) []Batch {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	n := len(tuples)
	if n == 0 {
		return nil
	}

	if n <= limit {
		return []Batch{{
			Table:         dir.Table,
			Columns:       dir.Columns,
			StatementText: statementText,
			RecordCount:   n,
		}}
	}

	batches := make([]Batch, 0, (n+limit-1)/limit)
	cols := strings.Join(dir.Columns, ", ")
	for start := 0; start < n; start += limit {
		end := start + limit
		if end > n {
			end = n
		}
		frags := make([]string, 0, end-start)
		for _, tup := range tuples[start:end] {
			frags = append(frags, tup.Text)
		}
		batches = append(batches, Batch{
			Table:         dir.Table,
			Columns:       dir.Columns,
			StatementText: fmt.Sprintf("INSERT INTO %s (%s) VALUES %s;", dir.Table, cols, strings.Join(frags, ",")),
			RecordCount:   end - start,
		})
	}
	return batches
}
