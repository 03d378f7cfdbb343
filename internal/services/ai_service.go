package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/docurisk/backend/internal/config"
	"github.com/docurisk/backend/internal/logger"
	"github.com/docurisk/backend/internal/models"
)

// ContentKind tells the service how to interpret a unit's payload.
type ContentKind string

const (
	ContentText ContentKind = "text"
	ContentPDF  ContentKind = "pdf"
)

// UnitContent is the payload of one analyzable unit.
type UnitContent struct {
	Kind ContentKind
	Text string
	Data []byte
}

// ChunkPosition tells the service which part of a multi-unit document it is
// looking at, so it does not claim completeness for fields it cannot see.
type ChunkPosition struct {
	Index     int // 1-based
	Total     int
	PageStart int // 0 when the unit is a text chunk
	PageEnd   int
}

// Usage is the token cost of one service invocation.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ServiceError is a typed failure from the AI analysis service.
type ServiceError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration // server-provided retry hint, zero when absent
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("ai service returned status %d: %s", e.StatusCode, e.Message)
}

// RateLimited reports an explicit rate-limit or overload signal.
func (e *ServiceError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == 529
}

// Transient reports a server-side error worth retrying.
func (e *ServiceError) Transient() bool {
	return e.StatusCode >= 500 && e.StatusCode != 529
}

// Permanent reports a client-side error that retrying cannot fix.
func (e *ServiceError) Permanent() bool {
	return !e.RateLimited() && !e.Transient()
}

// ParseError marks a response that could not be read as a structured record.
type ParseError struct {
	Raw string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ai response is not a structured record: %.200s", e.Raw)
}

// AIService invokes the external AI text-analysis service for one unit at a
// time, retrying rate-limited and transient failures with exponential
// backoff and pacing successive units to stay under sustained rate limits.
type AIService struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
	cfg     *config.Config

	// sleep is replaceable in tests to observe backoff without waiting.
	sleep func(time.Duration)
}

func NewAIService(cfg *config.Config) *AIService {
	return &AIService{
		baseURL: cfg.AIBaseURL,
		model:   cfg.AIModel,
		apiKey:  cfg.AIAPIKey,
		client:  &http.Client{Timeout: cfg.AITimeout},
		cfg:     cfg,
		sleep:   time.Sleep,
	}
}

type analyzeRequest struct {
	Model     string        `json:"model"`
	System    string        `json:"system"`
	MaxTokens int           `json:"max_tokens"`
	Content   []contentPart `json:"content"`
}

type contentPart struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
}

type analyzeResponse struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

type analyzeErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// AnalyzeUnit sends one unit to the service and returns its structured
// record and token cost. Rate-limited and transient failures are retried
// with exponential backoff up to the configured attempt limit; permanent
// failures and exhausted retries surface as the unit's failure.
func (s *AIService) AnalyzeUnit(ctx context.Context, unit UnitContent, pos *ChunkPosition) (*models.AnalysisRecord, Usage, error) {
	system := buildSystemInstructions(pos)

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		raw, usage, err := s.callOnce(ctx, unit, system)
		if err == nil {
			record, perr := parseRecord(raw)
			if perr != nil {
				return nil, usage, perr
			}
			return record, usage, nil
		}

		svcErr, ok := err.(*ServiceError)
		if !ok || svcErr.Permanent() {
			return nil, Usage{}, err
		}
		lastErr = err

		if attempt == s.cfg.MaxAttempts {
			break
		}

		delay := s.backoffDelay(attempt, svcErr.RetryAfter)
		logger.Warn("AI invocation failed, retrying", map[string]interface{}{
			"attempt": attempt,
			"status":  svcErr.StatusCode,
			"delay":   delay.String(),
		})
		s.sleep(delay)
	}
	return nil, Usage{}, fmt.Errorf("ai service exhausted after %d attempts: %w", s.cfg.MaxAttempts, lastErr)
}

// backoffDelay doubles the base delay per attempt, caps it, adds random
// jitter, and never undercuts a server-provided retry hint.
func (s *AIService) backoffDelay(attempt int, hint time.Duration) time.Duration {
	delay := s.cfg.RetryBaseDelay << (attempt - 1)
	if delay > s.cfg.RetryMaxDelay {
		delay = s.cfg.RetryMaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(s.cfg.RetryBaseDelay)/2 + 1))
	delay += jitter
	if hint > delay {
		delay = hint
	}
	return delay
}

// Pace inserts the fixed delay between successive units of one document.
// Independent of the retry backoff; it only bounds the sustained rate.
func (s *AIService) Pace(largeFile bool) {
	if largeFile {
		s.sleep(s.cfg.LargePacingDelay)
		return
	}
	s.sleep(s.cfg.UnitPacingDelay)
}

func (s *AIService) callOnce(ctx context.Context, unit UnitContent, system string) (string, Usage, error) {
	request := analyzeRequest{
		Model:     s.model,
		System:    system,
		MaxTokens: 4096,
	}
	switch unit.Kind {
	case ContentPDF:
		request.Content = []contentPart{{
			Type:      "document",
			MediaType: "application/pdf",
			Data:      base64.StdEncoding.EncodeToString(unit.Data),
		}}
	default:
		request.Content = []contentPart{{
			Type: "text",
			Text: unit.Text,
		}}
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", Usage{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/analyze", s.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", Usage{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("X-Api-Key", s.apiKey)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return "", Usage{}, &ServiceError{StatusCode: http.StatusServiceUnavailable, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		message := string(body)
		var errResp analyzeErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			message = errResp.Error.Message
		}
		return "", Usage{}, &ServiceError{
			StatusCode: resp.StatusCode,
			Message:    message,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var analyzeResp analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&analyzeResp); err != nil {
		return "", Usage{}, fmt.Errorf("failed to decode ai response: %w", err)
	}

	logger.Debug("AI invocation completed", map[string]interface{}{
		"duration":      time.Since(start).String(),
		"input_tokens":  analyzeResp.Usage.InputTokens,
		"output_tokens": analyzeResp.Usage.OutputTokens,
	})
	return analyzeResp.Content, analyzeResp.Usage, nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return 0
}

// parseRecord reads the service output as an AnalysisRecord. The service is
// instructed to return only the record; when it wraps the record in fences
// or prose anyway, the embedded JSON object is extracted before giving up.
func parseRecord(raw string) (*models.AnalysisRecord, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	var record models.AnalysisRecord
	if err := json.Unmarshal([]byte(clean), &record); err == nil {
		return &record, nil
	}

	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start == -1 || end <= start {
		return nil, &ParseError{Raw: raw}
	}
	if err := json.Unmarshal([]byte(clean[start:end+1]), &record); err != nil {
		return nil, &ParseError{Raw: raw}
	}
	return &record, nil
}

// buildSystemInstructions assembles the master prompt with the fixed field
// schema, plus chunk-position context for multi-unit documents.
func buildSystemInstructions(pos *ChunkPosition) string {
	var sb strings.Builder
	sb.WriteString(`You are a legal-document risk analyst reviewing loan and property documents.

Extract the following fields from the document content and return ONLY a JSON object with exactly these keys:

{
  "applicant_number": "loan or application number, or "Unknown"",
  "borrower_name": "primary borrower's full name, or "Unknown"",
  "property_address": "full property address, or "Unknown"",
  "property_type": "Residential|Commercial|Agricultural|Industrial|Unknown",
  "state": "state or region of the property, or "Unknown"",
  "document_date": "date of execution (YYYY-MM-DD), or "Unknown"",
  "mutation_status": "mutation/transfer status, or "Unknown"",
  "adverse_entries": "yes|no|Unknown",
  "adverse_remarks": "description of liens, encumbrances or disputes, or "Unknown"",
  "risk_rating": "High|Medium|Low|Manual Review Required",
  "enforceability_decision": "Enforceable|Enforceable with Conditions|Not Enforceable|Manual Review Required",
  "confidence_score": 0-100,
  "rationale": "short reasoning for the risk rating",
  "recommended_actions": "concrete next steps, semicolon separated"
}

Use "Not in this section" for fields whose answer would be in a part of the document you were not given. Return only the JSON object, no markdown, no commentary.`)

	if pos != nil && pos.Total > 1 {
		sb.WriteString(fmt.Sprintf("\n\nYou are analyzing part %d of %d of this document.", pos.Index, pos.Total))
		if pos.PageStart > 0 {
			sb.WriteString(fmt.Sprintf(" This part covers pages %d to %d.", pos.PageStart, pos.PageEnd))
		}
		sb.WriteString(" Do not claim the document lacks information that may appear in other parts.")
	}
	return sb.String()
}
