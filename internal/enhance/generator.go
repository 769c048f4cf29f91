// Package enhance generates work item content (descriptions, acceptance
// criteria, estimates) with the Anthropic API. The generated text feeds back
// through the normal mutation path as a field update; this package never
// writes to the remote store itself.
package enhance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/steveyegge/lasso/internal/telemetry"
	"github.com/steveyegge/lasso/internal/types"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "claude-3-5-haiku-20241022"

	maxRetries     = 3
	initialBackoff = 1 * time.Second
	maxTokens      = 1024
)

// errAPIKeyRequired is returned when an API key is needed but not provided.
var errAPIKeyRequired = errors.New("API key required")

// Generator produces enhancement content via the Anthropic API.
type Generator struct {
	client         anthropic.Client
	model          anthropic.Model
	templates      map[types.EnhanceKind]*template.Template
	maxRetries     int
	initialBackoff time.Duration
}

// NewGenerator creates an Anthropic-backed content generator. Env var
// ANTHROPIC_API_KEY takes precedence over the explicit apiKey. An empty
// model selects DefaultModel.
func NewGenerator(apiKey, model string) (*Generator, error) {
	envKey := os.Getenv("ANTHROPIC_API_KEY")
	if envKey != "" {
		apiKey = envKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY environment variable or provide via config", errAPIKeyRequired)
	}
	if model == "" {
		model = DefaultModel
	}

	templates := make(map[types.EnhanceKind]*template.Template, len(promptTemplates))
	for kind, text := range promptTemplates {
		tmpl, err := template.New(string(kind)).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", kind, err)
		}
		templates[kind] = tmpl
	}

	aiMetricsOnce.Do(initAIMetrics)

	return &Generator{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:          anthropic.Model(model),
		templates:      templates,
		maxRetries:     maxRetries,
		initialBackoff: initialBackoff,
	}, nil
}

// Generate renders the prompt for the requested enhancement kind and calls
// the model, retrying transient API failures.
func (g *Generator) Generate(ctx context.Context, item types.WorkItemSnapshot, kind types.EnhanceKind, style types.EnhanceStyle) (string, error) {
	prompt, err := g.renderPrompt(item, kind, style)
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}

	content, err := g.callWithRetry(ctx, kind, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// aiMetrics holds lazily-initialized OTel instruments for Anthropic API calls.
var aiMetrics struct {
	inputTokens  metric.Int64Counter
	outputTokens metric.Int64Counter
	duration     metric.Float64Histogram
}

var aiMetricsOnce sync.Once

func initAIMetrics() {
	m := telemetry.Meter("github.com/steveyegge/lasso/ai")
	aiMetrics.inputTokens, _ = m.Int64Counter("lasso.ai.input_tokens",
		metric.WithDescription("Anthropic API input tokens consumed"),
		metric.WithUnit("{token}"),
	)
	aiMetrics.outputTokens, _ = m.Int64Counter("lasso.ai.output_tokens",
		metric.WithDescription("Anthropic API output tokens generated"),
		metric.WithUnit("{token}"),
	)
	aiMetrics.duration, _ = m.Float64Histogram("lasso.ai.request.duration",
		metric.WithDescription("Anthropic API request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
}

func (g *Generator) callWithRetry(ctx context.Context, kind types.EnhanceKind, prompt string) (string, error) {
	tracer := telemetry.Tracer("github.com/steveyegge/lasso/ai")
	ctx, span := tracer.Start(ctx, "anthropic.messages.new")
	defer span.End()
	span.SetAttributes(
		attribute.String("lasso.ai.model", string(g.model)),
		attribute.String("lasso.ai.operation", "enhance."+string(kind)),
	)

	var lastErr error
	params := anthropic.MessageNewParams{
		Model:     g.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := g.initialBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		t0 := time.Now()
		message, err := g.client.Messages.New(ctx, params)
		ms := float64(time.Since(t0).Milliseconds())

		if err == nil {
			modelAttr := attribute.String("lasso.ai.model", string(g.model))
			if aiMetrics.inputTokens != nil {
				aiMetrics.inputTokens.Add(ctx, message.Usage.InputTokens, metric.WithAttributes(modelAttr))
				aiMetrics.outputTokens.Add(ctx, message.Usage.OutputTokens, metric.WithAttributes(modelAttr))
				aiMetrics.duration.Record(ctx, ms, metric.WithAttributes(modelAttr))
			}
			span.SetAttributes(
				attribute.Int64("lasso.ai.input_tokens", message.Usage.InputTokens),
				attribute.Int64("lasso.ai.output_tokens", message.Usage.OutputTokens),
				attribute.Int("lasso.ai.attempts", attempt+1),
			)

			if len(message.Content) > 0 {
				content := message.Content[0]
				if content.Type == "text" {
					return content.Text, nil
				}
				return "", fmt.Errorf("unexpected response format: not a text block (type=%s)", content.Type)
			}
			return "", fmt.Errorf("unexpected response format: no content blocks")
		}

		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		if !isRetryable(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return "", fmt.Errorf("non-retryable error: %w", err)
		}
	}

	if lastErr != nil {
		span.RecordError(lastErr)
		span.SetStatus(codes.Error, lastErr.Error())
	}
	return "", fmt.Errorf("failed after %d retries: %w", g.maxRetries+1, lastErr)
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		statusCode := apiErr.StatusCode
		if statusCode == 429 || statusCode >= 500 {
			return true
		}
		return false
	}

	return false
}
