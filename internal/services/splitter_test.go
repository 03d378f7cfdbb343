package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/docurisk/backend/internal/config"
)

func splitterConfig() *config.Config {
	return &config.Config{
		TextChunkSize: 100,
		PagesPerBatch: 5,
		MaxTotalPages: 20,
		MaxBatchBytes: 1024,
	}
}

func TestSplitTextReassemblesToInput(t *testing.T) {
	s := NewSplitter(splitterConfig())

	paragraphs := []string{
		strings.Repeat("a", 40),
		strings.Repeat("b", 40),
		strings.Repeat("c", 40),
		strings.Repeat("d", 40),
	}
	text := strings.Join(paragraphs, "\n\n")

	chunks := s.SplitText(text)
	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks for %d chars at target 100, got %d", len(text), len(chunks))
	}

	var parts []string
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("Expected chunk index %d, got %d", i, c.Index)
		}
		parts = append(parts, c.Content)
	}
	if strings.Join(parts, "\n\n") != text {
		t.Error("Concatenating chunks did not reproduce the input text")
	}
}

func TestSplitTextRespectsTarget(t *testing.T) {
	s := NewSplitter(splitterConfig())

	var paragraphs []string
	for i := 0; i < 20; i++ {
		paragraphs = append(paragraphs, strings.Repeat("x", 30))
	}
	chunks := s.SplitText(strings.Join(paragraphs, "\n\n"))

	for _, c := range chunks {
		if len(c.Content) > 100 {
			t.Errorf("Chunk %d has %d chars, exceeds target of 100", c.Index, len(c.Content))
		}
	}
}

func TestSplitTextOversizedParagraphStandsAlone(t *testing.T) {
	s := NewSplitter(splitterConfig())

	big := strings.Repeat("y", 250)
	text := "small one\n\n" + big + "\n\nsmall two"

	chunks := s.SplitText(text)
	found := false
	for _, c := range chunks {
		if c.Content == big {
			found = true
		}
	}
	if !found {
		t.Error("Expected the oversized paragraph to become a chunk on its own, unsplit")
	}
}

func TestSplitTextSingleChunk(t *testing.T) {
	s := NewSplitter(splitterConfig())

	chunks := s.SplitText("short text")
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "short text" {
		t.Errorf("Expected content preserved, got %q", chunks[0].Content)
	}
}

func TestSplitPagesBatchRanges(t *testing.T) {
	s := NewSplitter(splitterConfig())
	s.materialize = func(raw []byte, start, end int) ([]byte, error) {
		return []byte(fmt.Sprintf("pages-%d-%d", start, end)), nil
	}

	batches, err := s.SplitPages([]byte("pdf"), 12)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(batches) != 3 {
		t.Fatalf("Expected 3 batches for 12 pages at 5 per batch, got %d", len(batches))
	}

	expected := []struct{ start, end int }{{1, 5}, {6, 10}, {11, 12}}
	for i, want := range expected {
		if batches[i].StartPage != want.start || batches[i].EndPage != want.end {
			t.Errorf("Batch %d: expected pages %d-%d, got %d-%d",
				i, want.start, want.end, batches[i].StartPage, batches[i].EndPage)
		}
		if batches[i].Index != i {
			t.Errorf("Batch %d: expected index %d, got %d", i, i, batches[i].Index)
		}
	}
}

func TestSplitPagesDropsOverflowPages(t *testing.T) {
	s := NewSplitter(splitterConfig())
	s.materialize = func(raw []byte, start, end int) ([]byte, error) {
		return []byte("batch"), nil
	}

	batches, err := s.SplitPages([]byte("pdf"), 100)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// Ceiling is 20 pages at 5 per batch.
	if len(batches) != 4 {
		t.Fatalf("Expected 4 batches capped at 20 pages, got %d", len(batches))
	}
	last := batches[len(batches)-1]
	if last.EndPage != 20 {
		t.Errorf("Expected last batch to end at page 20, got %d", last.EndPage)
	}
}

func TestSplitPagesDegradesOnMaterializeError(t *testing.T) {
	s := NewSplitter(splitterConfig())
	s.materialize = func(raw []byte, start, end int) ([]byte, error) {
		if start != end && start == 1 {
			return nil, fmt.Errorf("bulk creation failed")
		}
		return []byte(fmt.Sprintf("page-%d", start)), nil
	}

	batches, err := s.SplitPages([]byte("pdf"), 7)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// First run of 5 degrades into single pages, second run (6-7) stays bulk.
	if len(batches) != 6 {
		t.Fatalf("Expected 6 batches (5 single + 1 bulk), got %d", len(batches))
	}
	for i := 0; i < 5; i++ {
		if batches[i].StartPage != i+1 || batches[i].EndPage != i+1 {
			t.Errorf("Batch %d: expected single page %d, got %d-%d",
				i, i+1, batches[i].StartPage, batches[i].EndPage)
		}
	}
	if batches[5].StartPage != 6 || batches[5].EndPage != 7 {
		t.Errorf("Expected final bulk batch 6-7, got %d-%d", batches[5].StartPage, batches[5].EndPage)
	}
}

func TestSplitPagesDegradesOnOversizedBatch(t *testing.T) {
	s := NewSplitter(splitterConfig())
	s.materialize = func(raw []byte, start, end int) ([]byte, error) {
		if start != end {
			return make([]byte, 2048), nil // over MaxBatchBytes
		}
		return []byte("single"), nil
	}

	batches, err := s.SplitPages([]byte("pdf"), 5)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(batches) != 5 {
		t.Fatalf("Expected 5 single-page batches, got %d", len(batches))
	}
}

func TestSplitPagesSkipsFailingSinglePage(t *testing.T) {
	s := NewSplitter(splitterConfig())
	s.materialize = func(raw []byte, start, end int) ([]byte, error) {
		if start != end {
			return nil, fmt.Errorf("bulk failed")
		}
		if start == 3 {
			return nil, fmt.Errorf("page 3 corrupt")
		}
		return []byte("single"), nil
	}

	batches, err := s.SplitPages([]byte("pdf"), 5)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(batches) != 4 {
		t.Fatalf("Expected 4 batches with page 3 skipped, got %d", len(batches))
	}
	for _, b := range batches {
		if b.StartPage == 3 {
			t.Error("Expected page 3 to be skipped")
		}
	}
}

func TestSplitPagesAllFailing(t *testing.T) {
	s := NewSplitter(splitterConfig())
	s.materialize = func(raw []byte, start, end int) ([]byte, error) {
		return nil, fmt.Errorf("unreadable")
	}

	if _, err := s.SplitPages([]byte("pdf"), 5); err == nil {
		t.Error("Expected error when no batch could be created")
	}
}

func TestSplitPagesNoPages(t *testing.T) {
	s := NewSplitter(splitterConfig())
	if _, err := s.SplitPages([]byte("pdf"), 0); err == nil {
		t.Error("Expected error for zero pages")
	}
}
