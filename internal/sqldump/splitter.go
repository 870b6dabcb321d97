package sqldump

import "strings"

// StripComments blanks out block comments (/* ... */, non-greedy, no
// nesting) and line comments (-- to end of line) that appear outside string
// literals. Comment bytes are replaced with spaces rather than removed so
// statement byte offsets survive the pass; newlines are kept.
func StripComments(text string) string {
	out := []byte(text)
	var (
		inQuote   bool
		quoteChar byte
		inLine    bool
		inBlock   bool
	)
	for i := 0; i < len(out); i++ {
		c := out[i]
		switch {
		case inLine:
			if c == '\n' {
				inLine = false
			} else {
				out[i] = ' '
			}
		case inBlock:
			if c == '*' && i+1 < len(out) && out[i+1] == '/' {
				out[i], out[i+1] = ' ', ' '
				i++
				inBlock = false
			} else if c != '\n' {
				out[i] = ' '
			}
		case inQuote:
			if c == quoteChar {
				// A doubled quote stays inside the literal.
				if i+1 < len(out) && out[i+1] == quoteChar {
					i++
				} else {
					inQuote = false
				}
			}
		default:
			switch {
			case c == '\'' || c == '"':
				inQuote = true
				quoteChar = c
			case c == '-' && i+1 < len(out) && out[i+1] == '-':
				out[i], out[i+1] = ' ', ' '
				i++
				inLine = true
			case c == '/' && i+1 < len(out) && out[i+1] == '*':
				out[i], out[i+1] = ' ', ' '
				i++
				inBlock = true
			}
		}
	}
	return string(out)
}

// SplitStatements divides normalized text into top-level statements with a
// single left-to-right scan. A semicolon terminates a statement only outside
// string literals; the honored escaping rule is quote doubling ('' or ""),
// not backslashes. A trailing non-empty span without a terminator is emitted
// as a final statement, and unterminated reports whether quote state was
// still open at end of input (the remainder is kept, not dropped).
//
// SplitStatements never fails; worst case malformed quoting mis-splits.
func SplitStatements(text, sourceID string) (stmts []RawStatement, unterminated bool) {
	var (
		inQuote   bool
		quoteChar byte
		start     int
	)
	emit := func(end int) {
		span := text[start:end]
		trimmed := strings.TrimSpace(span)
		if trimmed != "" {
			offset := start + strings.Index(span, trimmed[:1])
			stmts = append(stmts, RawStatement{Text: trimmed, ByteOffset: offset, SourceID: sourceID})
		}
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inQuote {
			if c == quoteChar {
				if i+1 < len(text) && text[i+1] == quoteChar {
					i++
				} else {
					inQuote = false
				}
			}
			continue
		}
		switch c {
		case '\'', '"':
			inQuote = true
			quoteChar = c
		case ';':
			emit(i)
			start = i + 1
		}
	}
	emit(len(text))
	return stmts, inQuote
}
