// Package sqldump turns loosely formatted SQL INSERT dumps into typed,
// ordered records and re-executable size-bounded batches.
//
// The package reconstructs structure from ambiguous text without a full SQL
// grammar: it normalizes the byte encoding, strips comments, splits
// statements with a quote-aware scan, decomposes INSERT directives, tokenizes
// tuple lists tracking quote state and parenthesis depth, coerces raw tokens
// into a small tagged union, and regroups oversized statements into batches
// re-serialized from the original tuple text so literals round-trip
// losslessly.
//
// Malformed input never causes an error. Anything skipped or adjusted is
// reported as a Diagnostic; processing continues. The only fatal condition is
// the caller failing to read the source bytes, which happens before this
// package is involved.
package sqldump
