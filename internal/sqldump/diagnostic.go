package sqldump

import "unicode/utf8"

// Reason classifies a non-fatal condition recorded during parsing.
type Reason int

const (
	// ReasonEncodingExhausted means no candidate encoding decoded cleanly and
	// the lossy UTF-8 fallback was used. Informational only.
	ReasonEncodingExhausted Reason = iota

	// ReasonUnterminatedQuote means quote state was unbalanced at end of
	// input; the remainder was emitted as one final statement.
	ReasonUnterminatedQuote

	// ReasonUnrecognizedInsertShape means a statement started with INSERT but
	// did not match the directive grammar; record extraction was skipped.
	ReasonUnrecognizedInsertShape

	// ReasonColumnValueMismatch means a tuple's raw token count differed from
	// the declared column count; the record was truncated or Null-padded.
	ReasonColumnValueMismatch

	// ReasonValueCoercionAmbiguity means a token matched no coercion rule and
	// fell through to the Raw variant.
	ReasonValueCoercionAmbiguity
)

func (r Reason) String() string {
	switch r {
	case ReasonEncodingExhausted:
		return "encoding_exhausted"
	case ReasonUnterminatedQuote:
		return "unterminated_quote"
	case ReasonUnrecognizedInsertShape:
		return "unrecognized_insert_shape"
	case ReasonColumnValueMismatch:
		return "column_value_mismatch"
	case ReasonValueCoercionAmbiguity:
		return "value_coercion_ambiguity"
	default:
		return "unknown"
	}
}

// SnippetLimit bounds Diagnostic.Snippet length in bytes.
const SnippetLimit = 120

// Diagnostic is an auditable note about a skipped or adjusted unit of input.
// Diagnostics are reported instead of errors; they never stop a parse.
type Diagnostic struct {
	StatementIndex int
	ByteOffset     int
	Snippet        string
	Reason         Reason
}

// snippet truncates s to SnippetLimit bytes on a rune boundary.
func snippet(s string) string {
	if len(s) <= SnippetLimit {
		return s
	}
	cut := SnippetLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
