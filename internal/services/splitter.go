package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/docurisk/backend/internal/config"
	"github.com/docurisk/backend/internal/logger"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpumodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// TextChunk is one text fragment sent to the AI service in one request.
type TextChunk struct {
	Index   int
	Content string
}

// PageBatch is a page-subset PDF sent to the AI service in one request.
// StartPage and EndPage are 1-based and inclusive.
type PageBatch struct {
	Index     int
	StartPage int
	EndPage   int
	Content   []byte
}

// Splitter partitions document content into analyzable units.
type Splitter struct {
	cfg *config.Config

	// materialize builds a PDF containing only pages start..end.
	// Replaceable in tests.
	materialize func(raw []byte, start, end int) ([]byte, error)
}

func NewSplitter(cfg *config.Config) *Splitter {
	return &Splitter{cfg: cfg, materialize: trimPages}
}

// SplitText partitions extracted text on blank-line paragraph boundaries,
// greedily accumulating paragraphs until the next one would push the chunk
// past the target size. A paragraph is never split, so a single paragraph
// larger than the target becomes a chunk on its own.
func (s *Splitter) SplitText(text string) []TextChunk {
	target := s.cfg.TextChunkSize
	paragraphs := strings.Split(text, "\n\n")

	var chunks []TextChunk
	var current strings.Builder
	flush := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, TextChunk{
			Index:   len(chunks),
			Content: current.String(),
		})
		current.Reset()
	}

	for _, para := range paragraphs {
		addition := len(para)
		if current.Len() > 0 {
			addition += 2 // separator
		}
		if current.Len() > 0 && current.Len()+addition > target {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()
	return chunks
}

// SplitPages partitions pages 1..pageCount into runs of at most
// PagesPerBatch, up to the MaxTotalPages safety ceiling, and materializes
// each run as an independent PDF. A run whose serialized size exceeds
// MaxBatchBytes, or whose bulk creation fails for any reason, is degraded
// into one-page batches rather than aborting the split.
func (s *Splitter) SplitPages(raw []byte, pageCount int) ([]PageBatch, error) {
	if pageCount <= 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	limit := pageCount
	if limit > s.cfg.MaxTotalPages {
		logger.Warn("Page count exceeds safety ceiling, overflow pages dropped", map[string]interface{}{
			"pages":   pageCount,
			"ceiling": s.cfg.MaxTotalPages,
		})
		limit = s.cfg.MaxTotalPages
	}

	var batches []PageBatch
	for start := 1; start <= limit; start += s.cfg.PagesPerBatch {
		end := start + s.cfg.PagesPerBatch - 1
		if end > limit {
			end = limit
		}

		content, err := s.materialize(raw, start, end)
		switch {
		case err != nil:
			logger.Warn("Batch creation failed, degrading to single pages", map[string]interface{}{
				"startPage": start,
				"endPage":   end,
				"error":     err.Error(),
			})
			batches = s.appendSinglePages(batches, raw, start, end)
		case int64(len(content)) > s.cfg.MaxBatchBytes:
			logger.Warn("Batch exceeds size limit, degrading to single pages", map[string]interface{}{
				"startPage": start,
				"endPage":   end,
				"size":      len(content),
			})
			batches = s.appendSinglePages(batches, raw, start, end)
		default:
			batches = append(batches, PageBatch{
				Index:     len(batches),
				StartPage: start,
				EndPage:   end,
				Content:   content,
			})
		}
	}

	if len(batches) == 0 {
		return nil, fmt.Errorf("no page batches could be created")
	}
	return batches, nil
}

// appendSinglePages materializes pages start..end one at a time. A page
// that still fails is dropped with a warning instead of failing the split.
func (s *Splitter) appendSinglePages(batches []PageBatch, raw []byte, start, end int) []PageBatch {
	for page := start; page <= end; page++ {
		content, err := s.materialize(raw, page, page)
		if err != nil {
			logger.Warn("Page extraction failed, page skipped", map[string]interface{}{
				"page":  page,
				"error": err.Error(),
			})
			continue
		}
		batches = append(batches, PageBatch{
			Index:     len(batches),
			StartPage: page,
			EndPage:   page,
			Content:   content,
		})
	}
	return batches
}

// trimPages produces a PDF holding only pages start..end of the source.
func trimPages(raw []byte, start, end int) ([]byte, error) {
	conf := pdfcpumodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfcpumodel.ValidationRelaxed

	var buf bytes.Buffer
	selection := []string{fmt.Sprintf("%d-%d", start, end)}
	if err := api.Trim(bytes.NewReader(raw), &buf, selection, conf); err != nil {
		return nil, fmt.Errorf("failed to trim pages %d-%d: %w", start, end, err)
	}
	return buf.Bytes(), nil
}
