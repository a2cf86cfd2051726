package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	defaultGeminiModel    = "gemini-2.0-flash"
	defaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"
	maxPromptComments     = 200
	maxCommentChars       = 500
)

type GeminiConfig struct {
	APIKey     string
	Model      string
	Endpoint   string
	HTTPClient *http.Client
}

// GeminiOracle delegates analysis to Google Gemini. Calls go through a circuit
// breaker so a failing service is skipped until the half-open probe.
type GeminiOracle struct {
	cfg     GeminiConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewGemini(cfg GeminiConfig, logger *zap.Logger) *GeminiOracle {
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultGeminiEndpoint
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := cfg.HTTPClient
	if client == nil {
		// Deadlines come from the caller's context; this is a backstop.
		client = &http.Client{Timeout: 30 * time.Second}
	}

	g := &GeminiOracle{
		cfg:    cfg,
		client: client,
		logger: logger.Named("gemini"),
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gemini-oracle",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn("oracle circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return g
}

func (g *GeminiOracle) Name() string { return "gemini" }

func (g *GeminiOracle) Analyze(ctx context.Context, in Input) (Analysis, error) {
	if g.cfg.APIKey == "" {
		return Analysis{}, ErrNoCredentials
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		text, err := g.generate(ctx, BuildPrompt(in))
		if err != nil {
			return nil, err
		}
		return parseAnalysis(text)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Analysis{}, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
		}
		return Analysis{}, err
	}
	return result.(Analysis), nil
}

// BuildPrompt renders the statistics preamble followed by the collected comments.
func BuildPrompt(in Input) string {
	var b strings.Builder
	agg := in.Aggregate

	b.WriteString("You analyze facility inspection results for a facility management company.\n")
	b.WriteString("Ratings use a 0-4 scale where 0 means not rated.\n\n")
	b.WriteString("STATISTICS\n")
	fmt.Fprintf(&b, "- Evaluations: %d\n", agg.TotalEvaluations)
	fmt.Fprintf(&b, "- Checklist items: %d (%d completed)\n", agg.TotalTasks, agg.CompletedTasks)
	fmt.Fprintf(&b, "- Completion rate: %.2f%%\n", agg.CompletionRatePct)
	fmt.Fprintf(&b, "- Average rating: %.2f of 4 (%.2f%%)\n", agg.AverageRating, agg.AverageRatingPct)
	fmt.Fprintf(&b, "- Active locations: %d, active inspectors: %d\n", agg.ActiveLocations, agg.ActiveUsers)
	for _, c := range in.Categories {
		fmt.Fprintf(&b, "- Category %q: rating %.2f, completion %.2f%%\n", c.CategoryLabel, c.AverageRating, c.CompletionRatePct)
	}
	if in.Trend != nil {
		fmt.Fprintf(&b, "- Trend: %s (rating change %+.2f, completion change %+.2f)\n",
			in.Trend.Trend, in.Trend.RatingChange, in.Trend.CompletionChange)
	}

	b.WriteString("\nINSPECTOR COMMENTS\n")
	for i, c := range in.Comments {
		if i == maxPromptComments {
			fmt.Fprintf(&b, "(%d more comments omitted)\n", len(in.Comments)-maxPromptComments)
			break
		}
		if r := []rune(c); len(r) > maxCommentChars {
			c = string(r[:maxCommentChars])
		}
		fmt.Fprintf(&b, "- %s\n", c)
	}

	b.WriteString("\nRespond with JSON only, matching:\n")
	b.WriteString(`{"insights":[{"kind":"achievement|concern|trend","title":"","description":"","impactLevel":"high|medium|low","actionItems":[""]}],`)
	b.WriteString(`"strengths":[""],"weaknesses":[""],"recommendations":[""]}`)
	return b.String()
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiGenerationConfig struct {
	ResponseMIMEType string `json:"responseMimeType"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (g *GeminiOracle) generate(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/%s:generateContent", strings.TrimRight(g.cfg.Endpoint, "/"), g.cfg.Model)

	body, err := json.Marshal(geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{ResponseMIMEType: "application/json"},
	})
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read gemini response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini returned %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var gr geminiResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if gr.Error != nil {
		return "", fmt.Errorf("gemini error %d: %s", gr.Error.Code, gr.Error.Message)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini returned empty response")
	}
	return gr.Candidates[0].Content.Parts[0].Text, nil
}

// parseAnalysis accepts raw or fenced JSON and drops insights with an unknown kind.
func parseAnalysis(text string) (Analysis, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var a Analysis
	if err := json.Unmarshal([]byte(text), &a); err != nil {
		return Analysis{}, fmt.Errorf("parse oracle analysis: %w (response: %.200s)", err, text)
	}

	valid := make([]Insight, 0, len(a.Insights))
	for _, in := range a.Insights {
		if !in.Kind.valid() || strings.TrimSpace(in.Title) == "" {
			continue
		}
		switch in.ImpactLevel {
		case ImpactHigh, ImpactMedium, ImpactLow:
		default:
			in.ImpactLevel = ImpactMedium
		}
		valid = append(valid, in)
	}
	if len(valid) == 0 {
		return Analysis{}, errors.New("oracle analysis contained no usable insights")
	}
	a.Insights = valid
	return finalize(a), nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
