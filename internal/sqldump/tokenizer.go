package sqldump

import "strings"

// ScanTuples splits a tuple-list text into its parenthesized records with a
// single character scan tracking quote state and parenthesis depth.
//
// A '(' at depth 0 opens a record and is not part of any token; the ')' that
// returns to depth 0 closes it. Inside a record, a comma at depth 1 outside
// quotes splits tokens; parens beyond depth 1 (nested function calls, tuple
// literals) are ordinary token text. Quote toggling honors doubled-quote
// escaping, mirroring the statement splitter. Tokens are stored trimmed;
// each tuple also keeps its original "(...)" fragment verbatim for lossless
// batch re-serialization.
//
// Record order follows left-to-right appearance and becomes the
// Record.RecordIndex ordering downstream.
func ScanTuples(text string) []RawTuple {
	var (
		tuples    []RawTuple
		tokens    []string
		token     strings.Builder
		inQuote   bool
		quoteChar byte
		depth     int
		fragStart int
	)
	for i := 0; i < len(text); i++ {
		c := text[i]

		if inQuote {
			token.WriteByte(c)
			if c == quoteChar {
				if i+1 < len(text) && text[i+1] == quoteChar {
					token.WriteByte(text[i+1])
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
			token.WriteByte(c)
		case '(':
			depth++
			if depth == 1 {
				fragStart = i
				tokens = nil
				token.Reset()
			} else {
				token.WriteByte(c)
			}
		case ')':
			if depth == 0 {
				// Stray closer between tuples; ignore.
				continue
			}
			depth--
			if depth == 0 {
				if last := strings.TrimSpace(token.String()); last != "" {
					tokens = append(tokens, last)
				}
				token.Reset()
				tuples = append(tuples, RawTuple{
					Tokens: tokens,
					Text:   text[fragStart : i+1],
				})
				tokens = nil
			} else {
				token.WriteByte(c)
			}
		case ',':
			if depth == 1 {
				tokens = append(tokens, strings.TrimSpace(token.String()))
				token.Reset()
			} else if depth > 1 {
				token.WriteByte(c)
			}
			// Commas at depth 0 separate tuples and carry no data.
		default:
			if depth >= 1 {
				token.WriteByte(c)
			}
		}
	}
	return tuples
}
