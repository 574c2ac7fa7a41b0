package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"dualsub/internal/audio"
	"dualsub/internal/metrics"
	"dualsub/internal/pipeline"

	"google.golang.org/genai"
)

const (
	DefaultEndpoint    = "https://generativelanguage.googleapis.com/"
	DefaultAPIVersion  = "v1beta"
	DefaultModel       = "gemini-2.5-flash"
	DefaultTemperature = 0.2
	uploadTimeout      = 10 * time.Minute
	errorBodyLimit     = 512
)

const systemInstruction = `You are a professional transcriber and subtitle translator.
Transcribe the speech in the provided audio sentence by sentence, in its original language.
For every sentence give its start and end time in seconds from the beginning of this audio,
the original text, and a fluent Simplified Chinese translation.
Return only the JSON array described by the response schema.`

const userPrompt = "Transcribe this audio and translate each sentence into Simplified Chinese, with per-sentence timestamps."

// Config configures the transcription client.
type Config struct {
	Endpoint    string // base URL, without the API version
	APIVersion  string
	Model       string
	APIKey      string
	Timeout     time.Duration
	Temperature float64
}

// Client calls the Gemini generateContent API with inline audio and a strict
// JSON response schema.
type Client struct {
	cfg        Config
	genai      *genai.Client
	httpClient *http.Client
	metrics    *metrics.Metrics
	progress   ProgressFunc
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMetrics records request counts, latency and payload size.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithProgress reports upload progress.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Client) {
		c.progress = fn
	}
}

// NewClient fills unset config fields with defaults and builds the SDK client.
func NewClient(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = uploadTimeout
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: newHTTPClient(c.httpClient, c.progress),
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.Endpoint,
			APIVersion: cfg.APIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	c.genai = gc
	return c, nil
}

// segmentSchema is the strict array-of-objects shape every reply must follow.
var segmentSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"startTime":      {Type: genai.TypeNumber},
			"endTime":        {Type: genai.TypeNumber},
			"originalText":   {Type: genai.TypeString},
			"translatedText": {Type: genai.TypeString},
		},
		Required: []string{"startTime", "endTime", "originalText", "translatedText"},
	},
}

func (c *Client) buildRequest(blob audio.Blob) ([]*genai.Content, *genai.GenerateContentConfig) {
	mimeType := blob.MIMEType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{Data: blob.Data, MIMEType: mimeType}},
			{Text: userPrompt},
		},
	}}
	temperature := float32(c.cfg.Temperature)
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
		Temperature:       &temperature,
		ResponseMIMEType:  "application/json",
		ResponseSchema:    segmentSchema,
	}
	return contents, config
}

// Transcribe uploads one audio payload and returns its segments, timed from
// the start of the payload. Ids are synthesized from the call time and the
// element index.
func (c *Client) Transcribe(ctx context.Context, blob audio.Blob) ([]pipeline.Segment, error) {
	invokedAt := c.now()
	start := time.Now()

	contents, config := c.buildRequest(blob)
	stats := &callStats{}
	resp, err := c.genai.Models.GenerateContent(withStats(ctx, stats), c.cfg.Model, contents, config)

	var segs []pipeline.Segment
	if err != nil {
		err = classify(ctx, stats, err)
	} else {
		segs, err = parseResponse(resp)
	}

	result := "ok"
	var netErr *NetworkError
	var fmtErr *ResponseFormatError
	switch {
	case errors.As(err, &netErr):
		result = "network_error"
	case errors.As(err, &fmtErr):
		result = "format_error"
	case err != nil:
		result = "error"
	}
	c.metrics.Request(result, time.Since(start).Seconds(), int(stats.bodyBytes), len(segs))
	if err != nil {
		return nil, err
	}

	for i := range segs {
		segs[i].ID = fmt.Sprintf("%d-%d", invokedAt.UnixNano(), i)
	}
	slog.Debug("transcription received",
		"segments", len(segs),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return segs, nil
}

// classify maps an SDK error onto our error types using what the transport
// saw on the wire.
func classify(ctx context.Context, stats *callStats, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("transcription request canceled: %w", ctxErr)
	}
	switch {
	case stats.err != nil:
		return &NetworkError{PayloadBytes: int(stats.bodyBytes), Err: stats.err}
	case stats.status == 0:
		return fmt.Errorf("transcription request: %w", err)
	case stats.status < 200 || stats.status > 299:
		return &NetworkError{
			StatusCode:   stats.status,
			PayloadBytes: int(stats.bodyBytes),
			Body:         stats.body,
			Err:          err,
		}
	}
	return &ResponseFormatError{Reason: "reply is not JSON", Body: truncate(err.Error(), errorBodyLimit)}
}

// parseResponse extracts the model text from a generateContent reply and
// decodes it as a segment array.
func parseResponse(resp *genai.GenerateContentResponse) ([]pipeline.Segment, error) {
	if resp == nil {
		return nil, &ResponseFormatError{Reason: "reply is empty"}
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return nil, &ResponseFormatError{Reason: "request blocked: " + string(fb.BlockReason)}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil, &ResponseFormatError{Reason: "reply has no candidates"}
	}

	cand := resp.Candidates[0]
	var text strings.Builder
	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			if p == nil || p.Thought {
				continue
			}
			text.WriteString(p.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		reason := "reply is empty"
		if fr := cand.FinishReason; fr != "" && fr != genai.FinishReasonStop {
			reason += " (finish reason " + string(fr) + ")"
		}
		return nil, &ResponseFormatError{Reason: reason}
	}

	return ParseSegments([]byte(text.String()))
}

// rawSegment uses pointers so a missing field can be told apart from zero.
type rawSegment struct {
	StartTime      *float64 `json:"startTime"`
	EndTime        *float64 `json:"endTime"`
	OriginalText   *string  `json:"originalText"`
	TranslatedText *string  `json:"translatedText"`
}

// ParseSegments decodes the model's JSON array and checks every element
// against the segment schema. Ids are left empty.
func ParseSegments(data []byte) ([]pipeline.Segment, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &ResponseFormatError{Reason: "reply is empty"}
	}
	if trimmed[0] != '[' {
		return nil, &ResponseFormatError{Reason: "reply is not a JSON array", Body: truncate(string(trimmed), errorBodyLimit)}
	}

	var items []rawSegment
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, &ResponseFormatError{
			Reason: fmt.Sprintf("reply does not match the segment schema: %v", err),
			Body:   truncate(string(trimmed), errorBodyLimit),
		}
	}

	segs := make([]pipeline.Segment, 0, len(items))
	for i, it := range items {
		if err := it.validate(); err != nil {
			return nil, &ResponseFormatError{Reason: fmt.Sprintf("element %d: %v", i, err)}
		}
		segs = append(segs, pipeline.Segment{
			Start:          *it.StartTime,
			End:            *it.EndTime,
			OriginalText:   strings.TrimSpace(*it.OriginalText),
			TranslatedText: strings.TrimSpace(*it.TranslatedText),
		})
	}
	return segs, nil
}

func (r rawSegment) validate() error {
	switch {
	case r.StartTime == nil:
		return errors.New("missing startTime")
	case r.EndTime == nil:
		return errors.New("missing endTime")
	case r.OriginalText == nil:
		return errors.New("missing originalText")
	case r.TranslatedText == nil:
		return errors.New("missing translatedText")
	case math.IsNaN(*r.StartTime) || *r.StartTime < 0:
		return fmt.Errorf("startTime %v is negative", *r.StartTime)
	case *r.EndTime <= *r.StartTime:
		return fmt.Errorf("endTime %v is not after startTime %v", *r.EndTime, *r.StartTime)
	case strings.TrimSpace(*r.OriginalText) == "":
		return errors.New("originalText is empty")
	case strings.TrimSpace(*r.TranslatedText) == "":
		return errors.New("translatedText is empty")
	}
	return nil
}
