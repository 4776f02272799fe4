//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package ingest splits documents into chunks and loads them into a
// vector store.
package ingest

import (
	"strings"
	"unicode"
)

// Default chunking parameters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Splitter cuts text into overlapping chunks. Sizes are in runes, not
// bytes, so multibyte text never splits mid-character.
type Splitter struct {
	chunkSize int
	overlap   int
}

// NewSplitter creates a splitter. Non-positive size or overlap fall
// back to the defaults; overlap is clamped below the chunk size so
// every chunk makes forward progress.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 5
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}
}

// Split cuts text into chunks of at most chunkSize runes, overlapping
// by roughly the configured overlap. Chunk ends prefer a sentence or
// whitespace boundary near the size limit so words stay whole.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= s.chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + s.chunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		end = s.breakPoint(runes, start, end)
		chunks = append(chunks, string(runes[start:end]))

		next := end - s.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks
}

// breakPoint scans backwards from end for a break within the last
// eighth of the chunk: first a sentence end or newline, then any
// whitespace. No boundary in range means a hard cut.
func (s *Splitter) breakPoint(runes []rune, start, end int) int {
	limit := end - s.chunkSize/8
	if limit <= start {
		limit = start + 1
	}

	for i := end - 1; i >= limit; i-- {
		r := runes[i]
		if r == '\n' {
			return i + 1
		}
		if (r == '.' || r == '!' || r == '?') && unicode.IsSpace(runes[i+1]) {
			return i + 1
		}
	}
	for i := end - 1; i >= limit; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return end
}
