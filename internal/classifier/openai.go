// Package classifier submits chunks to an LLM for relevance filtering and
// enrichment, with a bounded worker pool for concurrent calls.
package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/oenoai/ragcrawl/internal/ingest"
)

// Policy selects how kept chunks are annotated.
type Policy string

const (
	// PolicyKeywords asks for a comma-separated keyword list as strict JSON.
	PolicyKeywords Policy = "keywords"
	// PolicySummary asks for a single-sentence topic summary using the
	// line-oriented KEEP/DELETE protocol.
	PolicySummary Policy = "summary"
)

// hallucinationMargin caps how much longer the model's echoed content may be
// before it is discarded in favor of the original text.
const hallucinationMargin = 1.2

// Options configures the OpenAI-compatible classifier.
type Options struct {
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Policy      Policy
}

// OpenAI classifies chunks through an OpenAI-compatible chat endpoint.
type OpenAI struct {
	client llms.Model
	opts   Options
	logger *zap.Logger
}

// NewOpenAI builds the LLM client. BaseURL may point at any
// OpenAI-compatible service; the API key defaults to "none" for local
// services without authentication.
func NewOpenAI(opts Options, logger *zap.Logger) (*OpenAI, error) {
	if opts.Policy != PolicyKeywords && opts.Policy != PolicySummary {
		return nil, fmt.Errorf("unknown classifier policy %q", opts.Policy)
	}
	clientOpts := []openai.Option{openai.WithModel(opts.Model)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(opts.BaseURL))
	}
	token := opts.APIKey
	if token == "" {
		token = "none"
	}
	clientOpts = append(clientOpts, openai.WithToken(token))

	client, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAI{client: client, opts: opts, logger: logger}, nil
}

// Classify submits one chunk and parses the verdict. Malformed responses are
// returned as non-keep verdicts so unreviewed content never reaches the
// store. The returned Verdict's Content is always safe to persist: model
// rewrites that grow the text past the hallucination margin are replaced
// with the chunk's original content.
func (o *OpenAI) Classify(ctx context.Context, chunk ingest.Chunk) (ingest.Verdict, error) {
	systemPrompt := keywordSystemPrompt
	if o.opts.Policy == PolicySummary {
		systemPrompt = summarySystemPrompt
	}
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(userPromptPrefix + chunk.Content)},
		},
	}

	callOpts := []llms.CallOption{llms.WithTemperature(o.opts.Temperature)}
	if o.opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(o.opts.MaxTokens))
	}
	if o.opts.Policy == PolicyKeywords {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	response, err := o.client.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return ingest.Verdict{}, fmt.Errorf("generate verdict: %w", err)
	}
	if len(response.Choices) == 0 {
		return ingest.Verdict{}, fmt.Errorf("model returned no choices")
	}
	raw := response.Choices[0].Content

	var verdict ingest.Verdict
	switch o.opts.Policy {
	case PolicySummary:
		verdict, err = parseSummaryResponse(raw)
	default:
		verdict, err = parseKeywordResponse(raw)
	}
	if err != nil {
		o.logger.Warn("unparseable classifier response, dropping chunk",
			zap.String("chunk_id", chunk.ID),
			zap.String("response_head", firstLine(raw)),
			zap.Error(err))
		return ingest.Verdict{}, nil
	}
	if !verdict.Keep {
		return verdict, nil
	}
	verdict.Content = guardContent(o.logger, chunk, verdict.Content)
	return verdict, nil
}

// guardContent trusts the model for annotations only. If the echoed content
// is empty or grew beyond the margin over the original, the original text is
// kept verbatim.
func guardContent(logger *zap.Logger, chunk ingest.Chunk, echoed string) string {
	echoed = strings.TrimSpace(echoed)
	if echoed == "" {
		return chunk.Content
	}
	limit := int(float64(len(chunk.Content)) * hallucinationMargin)
	if len(echoed) > limit {
		logger.Warn("model inflated chunk content, keeping original",
			zap.String("chunk_id", chunk.ID),
			zap.Int("original_len", len(chunk.Content)),
			zap.Int("echoed_len", len(echoed)))
		return chunk.Content
	}
	return echoed
}
