// Package jsonldb stores a collection of rows as a single formatted JSON
// array document.
//
// # Storage Model
//
// There is no row-level write. Every mutation reads the whole document,
// changes it in memory and replaces the file. Nothing is cached between calls:
// each [Document.Load] reads the file again.
//
// # Concurrency
//
// A [Document] serializes its own read-modify-write cycles with a lock held
// for the entire cycle, and writes through a temporary file renamed over the
// original, so readers never observe a partial document. Two Document values
// (or two processes) pointing at the same file are not coordinated and can
// lose updates.
package jsonldb
