//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitter_ShortTextPassesThrough(t *testing.T) {
	s := NewSplitter(100, 20)

	chunks := s.Split("short text")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "short text" {
		t.Errorf("expected text unchanged, got %q", chunks[0])
	}
}

func TestSplitter_EmptyText(t *testing.T) {
	s := NewSplitter(100, 20)

	if chunks := s.Split(""); chunks != nil {
		t.Errorf("expected nil for empty text, got %v", chunks)
	}
	if chunks := s.Split("   \n\t  "); chunks != nil {
		t.Errorf("expected nil for whitespace text, got %v", chunks)
	}
}

func TestSplitter_ChunksAreContiguousSubstrings(t *testing.T) {
	s := NewSplitter(100, 20)

	var sb strings.Builder
	for i := 0; i < 80; i++ {
		sb.WriteString("The quick brown fox jumps over the lazy dog. ")
	}
	text := sb.String()

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, c := range chunks {
		if utf8.RuneCountInString(c) > 100 {
			t.Errorf("chunk %d exceeds chunk size: %d runes", i, utf8.RuneCountInString(c))
		}
		if !strings.Contains(text, c) {
			t.Errorf("chunk %d is not a substring of the input", i)
		}
	}

	if !strings.HasSuffix(text, chunks[len(chunks)-1]) {
		t.Error("last chunk does not reach the end of the input")
	}
}

func TestSplitter_OverlapPreservesContext(t *testing.T) {
	s := NewSplitter(100, 20)

	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("alpha beta gamma delta epsilon ")
	}

	chunks := s.Split(sb.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// The head of each chunk repeats the tail of the previous one.
	head := string([]rune(chunks[1])[:10])
	if !strings.Contains(chunks[0], head) {
		t.Errorf("expected chunk 1 head %q to appear in chunk 0", head)
	}
}

func TestSplitter_BreaksAtSentenceBoundary(t *testing.T) {
	s := NewSplitter(50, 10)

	// The period sits inside the backward search window at the 50-rune
	// mark, so the chunk should end right after it.
	text := strings.Repeat("a", 44) + ". " + strings.Repeat("b", 30)

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], ".") {
		t.Errorf("expected first chunk to end at sentence boundary, got %q", chunks[0])
	}
}

func TestSplitter_BreaksAtWhitespace(t *testing.T) {
	s := NewSplitter(50, 10)

	text := strings.Repeat("word ", 40)

	chunks := s.Split(text)
	for i, c := range chunks[:len(chunks)-1] {
		if !strings.HasSuffix(c, " ") {
			t.Errorf("chunk %d cut a word in half: %q", i, c)
		}
	}
}

func TestSplitter_RuneSafe(t *testing.T) {
	s := NewSplitter(100, 20)

	text := strings.Repeat("数据库複製是一種機制", 50)

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Errorf("chunk %d is not valid UTF-8", i)
		}
		if utf8.RuneCountInString(c) > 100 {
			t.Errorf("chunk %d exceeds chunk size: %d runes", i, utf8.RuneCountInString(c))
		}
	}
}

func TestSplitter_OverlapClampedBelowChunkSize(t *testing.T) {
	s := NewSplitter(100, 150)

	chunks := s.Split(strings.Repeat("x", 500))
	if len(chunks) < 2 {
		t.Fatal("expected splitter to make progress with oversized overlap")
	}
}
