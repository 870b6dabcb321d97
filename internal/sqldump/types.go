package sqldump

import "strconv"

// ValueKind identifies the variant held by a TypedValue.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindText
	KindInt
	KindFloat
	KindDate
	KindRaw
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDate:
		return "date"
	default:
		return "raw"
	}
}

// TypedValue is an immutable tagged union produced by the value coercer.
// Exactly one payload field is meaningful, selected by Kind: Str carries
// text, date literals, and raw fallbacks; Int and Float carry numbers.
type TypedValue struct {
	Kind  ValueKind
	Str   string
	Int   int64
	Float float64
}

// Null returns the Null variant.
func Null() TypedValue { return TypedValue{Kind: KindNull} }

// Text returns a Text variant holding s.
func Text(s string) TypedValue { return TypedValue{Kind: KindText, Str: s} }

// Int64 returns an integer Number variant.
func Int64(i int64) TypedValue { return TypedValue{Kind: KindInt, Int: i} }

// Float64 returns a floating-point Number variant.
func Float64(f float64) TypedValue { return TypedValue{Kind: KindFloat, Float: f} }

// Date returns a DateLiteral variant holding the quoted literal's contents.
func Date(s string) TypedValue { return TypedValue{Kind: KindDate, Str: s} }

// Raw returns the opaque fallback variant holding the token unchanged.
func Raw(s string) TypedValue { return TypedValue{Kind: KindRaw, Str: s} }

// IsNull reports whether v is the Null variant.
func (v TypedValue) IsNull() bool { return v.Kind == KindNull }

// String renders the value for display and search projection.
// It is never used to rebuild statement text; batches re-serialize from the
// original tuple fragments instead.
func (v TypedValue) String() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	default:
		return v.Str
	}
}

// RawStatement is one top-level statement produced by the splitter.
// ByteOffset is the statement's position within the normalized text.
type RawStatement struct {
	Text       string
	ByteOffset int
	SourceID   string
}

// InsertDirective is the structural shape of a recognized INSERT statement.
// Columns preserves declaration order; uniqueness is not required.
// TupleListText is the unparsed text following VALUES.
type InsertDirective struct {
	Table         string
	Columns       []string
	TupleListText string
}

// RawTuple is one parenthesized record from a tuple list. Tokens are the
// trimmed raw value strings; Text is the original "(...)" fragment, kept
// verbatim so batches can be rebuilt without re-printing values.
type RawTuple struct {
	Tokens []string
	Text   string
}

// Record is one fully coerced, column-aligned row. Values is always the same
// length as Columns: excess raw tokens are dropped and missing slots are
// filled with Null.
type Record struct {
	Table       string
	Columns     []string
	Values      []TypedValue
	SourceID    string
	RecordIndex int
}

// Batch is a size-bounded, independently executable chunk of an INSERT
// statement. RecordCount never exceeds the configured limit.
type Batch struct {
	Table         string
	Columns       []string
	StatementText string
	RecordCount   int
}

// Stats tracks counters for one pass over a source.
type Stats struct {
	Statements       int
	InsertDirectives int
	OtherStatements  int
	Records          int
	Batches          int
	Diagnostics      int
}
