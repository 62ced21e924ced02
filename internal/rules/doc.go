// Package rules holds the fixed, ordered catalog of detectors. Filename rules
// look at the lower-cased base name of a path; content rules look at the
// decoded text of a file. Each rule fires at most once per file.
package rules
