// Package lp provides the pseudo-Boolean problem model and its LP-format
// reader and writer.
//
// The accepted dialect is the classic LP text format restricted to integer
// constraint coefficients: an objective section ("minimize" or "maximize"
// followed by a linear form, with an optional "obj:" label), "subject to"
// and its constraint lines, then the optional "bounds", "binary" (or
// "binaries") and "general" sections, closed by "end". Section keywords
// are case-insensitive and comments run from a backslash to the end of the
// line.
package lp
