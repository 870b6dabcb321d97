package sqldump

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

func TestParseAllTwoRecords(t *testing.T) {
	input := []byte("INSERT INTO t (a, b) VALUES (1, 'x'), (2, 'y');")

	res, err := ParseAll(context.Background(), "dump.sql", input, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(res.Records))
	}
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %#v", res.Diagnostics)
	}

	want := []Record{
		{Table: "t", Columns: []string{"a", "b"}, Values: []TypedValue{Int64(1), Text("x")}, SourceID: "dump.sql", RecordIndex: 0},
		{Table: "t", Columns: []string{"a", "b"}, Values: []TypedValue{Int64(2), Text("y")}, SourceID: "dump.sql", RecordIndex: 1},
	}
	for i := range want {
		if !reflect.DeepEqual(res.Records[i], want[i]) {
			t.Errorf("record %d = %+v, want %+v", i, res.Records[i], want[i])
		}
	}

	if len(res.Batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(res.Batches))
	}
	if res.Batches[0].RecordCount != 2 {
		t.Errorf("batch record count = %d", res.Batches[0].RecordCount)
	}
}

func TestParseAllMixedValueKinds(t *testing.T) {
	input := []byte("INSERT INTO employees (id, name, note, hired) VALUES " +
		"(1, N'Alice', NULL, DATE '2020-01-02'), " +
		"(2, 'Bob', 'on leave', TIMESTAMP '2021-06-01 09:00:00');")

	res, err := ParseAll(context.Background(), "employees.sql", input, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %#v", res.Diagnostics)
	}
	if len(res.Records) != 2 {
		t.Fatalf("got %d records", len(res.Records))
	}

	wantValues := [][]TypedValue{
		{Int64(1), Text("Alice"), Null(), Date("2020-01-02")},
		{Int64(2), Text("Bob"), Text("on leave"), Date("2021-06-01 09:00:00")},
	}
	for i, rec := range res.Records {
		if !reflect.DeepEqual(rec.Values, wantValues[i]) {
			t.Errorf("record %d values = %+v, want %+v", i, rec.Values, wantValues[i])
		}
	}
}

func TestParseAllColumnValueMismatch(t *testing.T) {
	// Three tokens against two columns: the record survives with the excess
	// token dropped, and the mismatch is reported once.
	input := []byte("INSERT INTO t (a, b) VALUES (1, 'x', 'extra');")

	res, err := ParseAll(context.Background(), "f", input, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Records))
	}
	rec := res.Records[0]
	if len(rec.Values) != 2 {
		t.Fatalf("got %d values, want 2", len(rec.Values))
	}
	if rec.Values[0] != Int64(1) || rec.Values[1] != Text("x") {
		t.Errorf("values = %+v", rec.Values)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Reason != ReasonColumnValueMismatch {
		t.Errorf("diagnostics = %#v", res.Diagnostics)
	}
}

func TestParseAllShortTuplePadsNull(t *testing.T) {
	input := []byte("INSERT INTO t (a, b, c) VALUES (1, 'x');")

	res, err := ParseAll(context.Background(), "f", input, Options{})
	if err != nil {
		t.Fatal(err)
	}
	rec := res.Records[0]
	if len(rec.Values) != 3 || !rec.Values[2].IsNull() {
		t.Errorf("values = %+v, want trailing null", rec.Values)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Reason != ReasonColumnValueMismatch {
		t.Errorf("diagnostics = %#v", res.Diagnostics)
	}
}

func TestParseAllUnrecognizedInsertShape(t *testing.T) {
	// INSERT without a column list starts with the keyword but does not match
	// the directive shape.
	input := []byte("INSERT INTO t VALUES (1);")

	res, err := ParseAll(context.Background(), "f", input, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 0 {
		t.Errorf("got %d records, want 0", len(res.Records))
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Reason != ReasonUnrecognizedInsertShape {
		t.Errorf("diagnostics = %#v", res.Diagnostics)
	}
	if res.Stats.OtherStatements != 1 || res.Stats.InsertDirectives != 0 {
		t.Errorf("stats = %+v", res.Stats)
	}
}

func TestParseAllSkipsNonInsertStatements(t *testing.T) {
	input := []byte(`SET NAMES utf8;
CREATE TABLE t (a int);
INSERT INTO t (a) VALUES (1);
COMMIT;`)

	res, err := ParseAll(context.Background(), "f", input, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.Statements != 4 {
		t.Errorf("statements = %d, want 4", res.Stats.Statements)
	}
	if res.Stats.InsertDirectives != 1 || res.Stats.OtherStatements != 3 {
		t.Errorf("stats = %+v", res.Stats)
	}
	if len(res.Records) != 1 {
		t.Errorf("got %d records", len(res.Records))
	}
	if len(res.Diagnostics) != 0 {
		t.Errorf("diagnostics = %#v", res.Diagnostics)
	}
}

func TestParseAllStripsComments(t *testing.T) {
	input := []byte(`-- header comment
INSERT INTO t (a) VALUES (1); /* mid */ INSERT INTO t (a) VALUES (2);`)

	res, err := ParseAll(context.Background(), "f", input, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 2 {
		t.Fatalf("got %d records, want 2: %#v", len(res.Records), res.Records)
	}
}

func TestParseAllEncodingFallbackDiagnostic(t *testing.T) {
	input := []byte{0xFF, 0x00, 0x00, 0xFF, 0xFF}

	res, err := ParseAll(context.Background(), "f", input, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Diagnostics) == 0 {
		t.Fatal("expected an encoding diagnostic")
	}
	d := res.Diagnostics[0]
	if d.Reason != ReasonEncodingExhausted {
		t.Errorf("reason = %v", d.Reason)
	}
	if d.StatementIndex != -1 {
		t.Errorf("statement index = %d, want -1", d.StatementIndex)
	}
}

func TestParseAllUnterminatedQuoteDiagnostic(t *testing.T) {
	input := []byte("INSERT INTO t (a) VALUES (1); SELECT 'broken")

	res, err := ParseAll(context.Background(), "f", input, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 1 {
		t.Errorf("got %d records", len(res.Records))
	}
	found := false
	for _, d := range res.Diagnostics {
		if d.Reason == ReasonUnterminatedQuote {
			found = true
		}
	}
	if !found {
		t.Errorf("no unterminated-quote diagnostic in %#v", res.Diagnostics)
	}
}

func TestParseAllBatchCount(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO t (a) VALUES ")
	const n = 23
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(" + itoa(i) + ")")
	}
	sb.WriteString(";")

	res, err := ParseAll(context.Background(), "f", []byte(sb.String()), Options{BatchLimit: 5})
	if err != nil {
		t.Fatal(err)
	}
	// ceil(23/5) = 5 batches, order preserved across the boundary.
	if len(res.Batches) != 5 {
		t.Fatalf("got %d batches, want 5", len(res.Batches))
	}
	total := 0
	next := 0
	for _, b := range res.Batches {
		total += b.RecordCount
		for _, frag := range extractFragments(b.StatementText) {
			if frag != "("+itoa(next)+")" {
				t.Fatalf("out of order: got %s at position %d", frag, next)
			}
			next++
		}
	}
	if total != n {
		t.Errorf("total batched records = %d, want %d", total, n)
	}
	if len(res.Records) != n {
		t.Errorf("got %d records, want %d", len(res.Records), n)
	}
}

// Identical input bytes must produce identical output, independent of timing.
func TestParseAllDeterministic(t *testing.T) {
	input := []byte(`INSERT INTO a (x) VALUES (1),(2),(3);
INSERT INTO b (y, z) VALUES ('p', NOW()), ('q', 2.5);
BROKEN STATEMENT;
INSERT INTO c VALUES (9);`)

	first, err := ParseAll(context.Background(), "f", input, Options{BatchLimit: 2})
	if err != nil {
		t.Fatal(err)
	}
	second, err := ParseAll(context.Background(), "f", input, Options{BatchLimit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("two passes over identical input diverged")
	}
}

func TestScanCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := []byte("INSERT INTO t (a) VALUES (1); INSERT INTO t (a) VALUES (2);")
	sc := NewScan(ctx, "f", input, Options{})
	if sc.Next() {
		t.Error("Next succeeded after cancellation")
	}
	if sc.Err() != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", sc.Err())
	}

	if _, err := ParseAll(ctx, "f", input, Options{}); err != context.Canceled {
		t.Errorf("ParseAll err = %v, want context.Canceled", err)
	}
}

func TestScanPullInterface(t *testing.T) {
	input := []byte("INSERT INTO t (a) VALUES (1),(2);")
	sc := NewScan(context.Background(), "f", input, Options{})

	var got []int64
	for sc.Next() {
		got = append(got, sc.Record().Values[0].Int)
	}
	if sc.Err() != nil {
		t.Fatal(sc.Err())
	}
	if !reflect.DeepEqual(got, []int64{1, 2}) {
		t.Errorf("got %v", got)
	}
	if sc.Stats().Records != 2 || sc.Stats().InsertDirectives != 1 {
		t.Errorf("stats = %+v", sc.Stats())
	}
}

func TestParseAllEmptyInput(t *testing.T) {
	res, err := ParseAll(context.Background(), "f", nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 0 || len(res.Batches) != 0 || len(res.Diagnostics) != 0 {
		t.Errorf("non-empty result for empty input: %+v", res)
	}
}

func BenchmarkParseAll(b *testing.B) {
	var sb strings.Builder
	sb.WriteString("-- bench dump\n")
	for s := 0; s < 50; s++ {
		sb.WriteString("INSERT INTO orders (id, customer, total, note) VALUES ")
		for t := 0; t < 40; t++ {
			if t > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(")
			sb.WriteString(itoa(s*40 + t))
			sb.WriteString(", 'customer ''x''', 19.99, N'memo')")
		}
		sb.WriteString(";\n")
	}
	data := []byte(sb.String())
	b.SetBytes(int64(len(data)))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := ParseAll(context.Background(), "bench.sql", data, Options{}); err != nil {
			b.Fatal(err)
		}
	}
}
