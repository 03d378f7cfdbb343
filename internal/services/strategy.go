package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/docurisk/backend/internal/config"
	"github.com/docurisk/backend/internal/logger"
	"github.com/docurisk/backend/internal/models"
	"github.com/ledongthuc/pdf"
)

// StrategyAnalyzer inspects a document and selects a processing strategy.
// It never fails: an unanalyzable document still receives a strategy.
type StrategyAnalyzer struct {
	cfg *config.Config

	// extractText is swappable so the decision table can be tested with
	// synthetic measurements instead of real PDFs.
	extractText func(raw []byte) (text string, pageCount int, err error)
}

func NewStrategyAnalyzer(cfg *config.Config) *StrategyAnalyzer {
	return &StrategyAnalyzer{cfg: cfg, extractText: ExtractPDFText}
}

// Analyze measures the document and applies the decision table:
// small + text-bearing -> direct-text, small + scanned -> direct-pdf,
// large + text-bearing -> text-chunk, everything else -> page-split.
func (a *StrategyAnalyzer) Analyze(raw []byte) models.Strategy {
	size := int64(len(raw))

	text, pageCount, err := a.extractText(raw)
	if err != nil {
		// Text extraction failed; a page-count-only read still lets us
		// distinguish direct-pdf from page-split.
		pageCount, err = pdfPageCount(raw)
		if err != nil {
			logger.Warn("Document unreadable, defaulting to direct-pdf", map[string]interface{}{
				"size":  size,
				"error": err.Error(),
			})
			return models.Strategy{
				Kind:           models.StrategyDirectPDF,
				Scanned:        true,
				EstimatedUnits: 1,
				Warning:        fmt.Sprintf("document could not be read: %v", err),
			}
		}
		text = ""
	}

	textLength := len(text)
	scanned := a.isScanned(textLength, pageCount)

	strategy := models.Strategy{
		PageCount:  pageCount,
		TextLength: textLength,
		Scanned:    scanned,
	}

	switch {
	case size <= a.cfg.DirectThresholdBytes && !scanned:
		strategy.Kind = models.StrategyDirectText
		strategy.EstimatedUnits = 1
	case size <= a.cfg.DirectThresholdBytes:
		strategy.Kind = models.StrategyDirectPDF
		strategy.EstimatedUnits = 1
	case !scanned && textLength >= a.cfg.ScannedMinTotalChars:
		strategy.Kind = models.StrategyTextChunk
		strategy.EstimatedUnits = ceilDiv(textLength, a.cfg.TextChunkSize)
	default:
		strategy.Kind = models.StrategyPageSplit
		pages := pageCount
		if pages > a.cfg.MaxTotalPages {
			pages = a.cfg.MaxTotalPages
		}
		strategy.EstimatedUnits = ceilDiv(pages, a.cfg.PagesPerBatch)
	}

	if strategy.EstimatedUnits < 1 {
		strategy.EstimatedUnits = 1
	}
	return strategy
}

// isScanned classifies a document as scanned when extraction yields almost
// no text, in total or per page.
func (a *StrategyAnalyzer) isScanned(textLength, pageCount int) bool {
	if textLength < a.cfg.ScannedMinTotalChars {
		return true
	}
	if pageCount > 0 && textLength/pageCount < a.cfg.ScannedMinCharsPage {
		return true
	}
	return false
}

func ceilDiv(n, d int) int {
	if d <= 0 {
		return 1
	}
	return (n + d - 1) / d
}

// ExtractPDFText extracts the plain text and page count of a PDF.
// Pages that fail to decode are skipped; the reader panicking on corrupt
// input is converted into an error.
func ExtractPDFText(raw []byte) (text string, pageCount int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", 0, fmt.Errorf("failed to open pdf: %w", err)
	}

	pageCount = reader.NumPage()
	var sb strings.Builder
	for i := 1; i <= pageCount; i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			logger.Debug("Failed to extract text from page", map[string]interface{}{
				"page":  i,
				"error": err.Error(),
			})
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n\n")
	}
	return strings.TrimSpace(sb.String()), pageCount, nil
}

func pdfPageCount(raw []byte) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return 0, fmt.Errorf("failed to open pdf: %w", err)
	}
	return reader.NumPage(), nil
}
