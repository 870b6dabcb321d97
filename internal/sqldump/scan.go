package sqldump

import "context"

// Options configures one pass over a source. The zero value uses the default
// encoding candidates and batch limit with comment stripping enabled.
type Options struct {
	// Encodings is the ordered candidate list for Normalize. Empty means
	// DefaultEncodings.
	Encodings []string

	// BatchLimit caps records per materialized batch. Zero or negative means
	// DefaultBatchLimit.
	BatchLimit int

	// DisableCommentStripping leaves /* */ and -- comments in place.
	DisableCommentStripping bool
}

// Scan is a pull-based pass over one source's statements and records. A slow
// consumer naturally throttles decomposition: tuples are tokenized one
// statement at a time, as Next advances. Cancellation is honored between
// statements; a partially decomposed statement is discarded, never partially
// emitted. Record and diagnostic order is deterministic for identical input
// bytes.
type Scan struct {
	ctx      context.Context
	sourceID string
	limit    int

	stmts   []RawStatement
	stmtIdx int

	pending    []Record
	pendingIdx int
	cur        Record

	batches []Batch
	diags   []Diagnostic
	stats   Stats
	err     error
}

// NewScan normalizes and splits data and returns a Scan positioned before
// the first record. Splitting happens eagerly (statement order and offsets
// are needed up front); directive decomposition and coercion happen lazily.
func NewScan(ctx context.Context, sourceID string, data []byte, opts Options) *Scan {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &Scan{
		ctx:      ctx,
		sourceID: sourceID,
		limit:    opts.BatchLimit,
	}

	text, clean := Normalize(data, opts.Encodings)
	if !clean {
		s.report(Diagnostic{StatementIndex: -1, Snippet: snippet(text), Reason: ReasonEncodingExhausted})
	}

	if !opts.DisableCommentStripping {
		text = StripComments(text)
	}

	stmts, unterminated := SplitStatements(text, sourceID)
	s.stmts = stmts
	if unterminated && len(stmts) > 0 {
		last := stmts[len(stmts)-1]
		s.report(Diagnostic{
			StatementIndex: len(stmts) - 1,
			ByteOffset:     last.ByteOffset,
			Snippet:        snippet(last.Text),
			Reason:         ReasonUnterminatedQuote,
		})
	}
	return s
}

// Next advances to the next record, decomposing statements as needed.
// It returns false when the source is exhausted, or when the context was
// cancelled (check Err).
func (s *Scan) Next() bool {
	if s.err != nil {
		return false
	}
	for {
		if s.pendingIdx < len(s.pending) {
			s.cur = s.pending[s.pendingIdx]
			s.pendingIdx++
			return true
		}
		if s.stmtIdx >= len(s.stmts) {
			return false
		}
		if err := s.ctx.Err(); err != nil {
			s.err = err
			return false
		}
		s.decompose(s.stmts[s.stmtIdx], s.stmtIdx)
		s.stmtIdx++
	}
}

// Record returns the record produced by the last successful Next.
func (s *Scan) Record() Record { return s.cur }

// Err returns the cancellation error, if any. Malformed input is never an
// error; it surfaces through Diagnostics.
func (s *Scan) Err() error { return s.err }

// Diagnostics returns the diagnostics accumulated so far, in emission order.
func (s *Scan) Diagnostics() []Diagnostic { return s.diags }

// Batches returns the batches materialized so far. It is complete once Next
// has returned false without a cancellation error.
func (s *Scan) Batches() []Batch { return s.batches }

// Stats returns the counters accumulated so far.
func (s *Scan) Stats() Stats { return s.stats }

// decompose turns one statement into pending records, diagnostics, and
// batches. Non-INSERT statements are counted and skipped.
func (s *Scan) decompose(stmt RawStatement, idx int) {
	s.stats.Statements++
	s.pending = nil
	s.pendingIdx = 0

	if !IsInsert(stmt.Text) {
		s.stats.OtherStatements++
		return
	}

	dir, ok := ParseInsertDirective(stmt)
	if !ok {
		s.stats.OtherStatements++
		s.report(Diagnostic{
			StatementIndex: idx,
			ByteOffset:     stmt.ByteOffset,
			Snippet:        snippet(stmt.Text),
			Reason:         ReasonUnrecognizedInsertShape,
		})
		return
	}
	s.stats.InsertDirectives++

	tuples := ScanTuples(dir.TupleListText)
	records := make([]Record, 0, len(tuples))
	for i, tup := range tuples {
		records = append(records, s.emitRecord(dir, tup, stmt, idx, i))
	}
	s.pending = records
	s.stats.Records += len(records)

	batches := MaterializeBatches(dir, tuples, stmt.Text, s.limit)
	s.batches = append(s.batches, batches...)
	s.stats.Batches += len(batches)
}

// emitRecord zips the directive's columns with one tuple's coerced values.
// The shorter side wins: excess raw tokens are dropped, missing trailing
// slots become Null. A length mismatch is reported but never drops the
// record.
func (s *Scan) emitRecord(dir InsertDirective, tup RawTuple, stmt RawStatement, stmtIdx, recIdx int) Record {
	if len(tup.Tokens) != len(dir.Columns) {
		s.report(Diagnostic{
			StatementIndex: stmtIdx,
			ByteOffset:     stmt.ByteOffset,
			Snippet:        snippet(tup.Text),
			Reason:         ReasonColumnValueMismatch,
		})
	}

	values := make([]TypedValue, len(dir.Columns))
	for i := range dir.Columns {
		if i >= len(tup.Tokens) {
			values[i] = Null()
			continue
		}
		v, recognized := Coerce(tup.Tokens[i])
		if !recognized {
			s.report(Diagnostic{
				StatementIndex: stmtIdx,
				ByteOffset:     stmt.ByteOffset,
				Snippet:        snippet(tup.Tokens[i]),
				Reason:         ReasonValueCoercionAmbiguity,
			})
		}
		values[i] = v
	}

	return Record{
		Table:       dir.Table,
		Columns:     dir.Columns,
		Values:      values,
		SourceID:    stmt.SourceID,
		RecordIndex: recIdx,
	}
}

func (s *Scan) report(d Diagnostic) {
	s.diags = append(s.diags, d)
	s.stats.Diagnostics++
}

// Result is the fully drained output of one pass, for callers that do not
// need the pull-based interface.
type Result struct {
	Records     []Record
	Batches     []Batch
	Diagnostics []Diagnostic
	Stats       Stats
}

// ParseAll drains a Scan over data. The only possible error is context
// cancellation; already-produced records are discarded with it since a
// partial result would break the batch/record ordering contract.
func ParseAll(ctx context.Context, sourceID string, data []byte, opts Options) (*Result, error) {
	sc := NewScan(ctx, sourceID, data, opts)
	var records []Record
	for sc.Next() {
		records = append(records, sc.Record())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return &Result{
		Records:     records,
		Batches:     sc.Batches(),
		Diagnostics: sc.Diagnostics(),
		Stats:       sc.Stats(),
	}, nil
}
