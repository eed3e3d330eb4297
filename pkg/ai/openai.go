package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	completionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "intervu",
		Subsystem: "ai",
		Name:      "completion_duration_seconds",
		Help:      "Duration of completion provider requests",
	}, []string{"model", "mode"})

	completionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "intervu",
		Subsystem: "ai",
		Name:      "completion_failures_total",
		Help:      "Number of failed completion provider requests",
	}, []string{"model", "mode"})
)

// OpenAIConfig defines configuration options for the OpenAI completer.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIClient implements Completer against the OpenAI chat completion API.
type OpenAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIClient builds a new completer using the provided configuration.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}

	tracer := otel.Tracer("github.com/intervu-dev/intervu-go-api/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAIClient{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// Complete sends a blocking chat completion request and returns the full
// reply text.
func (c *OpenAIClient) Complete(parent context.Context, prompt Prompt) (string, error) {
	ctx, span := c.tracer.Start(parent, "openai.complete", trace.WithAttributes(
		attribute.String("model", c.cfg.Model),
	))
	defer span.End()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, c.request(prompt))
	completionDuration.WithLabelValues(c.cfg.Model, "blocking").Observe(time.Since(start).Seconds())
	if err != nil {
		completionFailures.WithLabelValues(c.cfg.Model, "blocking").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("openai complete: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		completionFailures.WithLabelValues(c.cfg.Model, "blocking").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// CompleteStream requests a streamed chat completion and forwards each text
// fragment to onFragment. The accumulated text is returned alongside any
// provider or callback error.
func (c *OpenAIClient) CompleteStream(parent context.Context, prompt Prompt, onFragment func(string) error) (string, error) {
	ctx, span := c.tracer.Start(parent, "openai.complete_stream", trace.WithAttributes(
		attribute.String("model", c.cfg.Model),
	))
	defer span.End()

	start := time.Now()
	stream, err := c.client.CreateChatCompletionStream(ctx, c.request(prompt))
	if err != nil {
		completionDuration.WithLabelValues(c.cfg.Model, "stream").Observe(time.Since(start).Seconds())
		completionFailures.WithLabelValues(c.cfg.Model, "stream").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("openai stream: %w", err)
	}
	defer stream.Close()

	var accumulated strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			completionDuration.WithLabelValues(c.cfg.Model, "stream").Observe(time.Since(start).Seconds())
			completionFailures.WithLabelValues(c.cfg.Model, "stream").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return accumulated.String(), fmt.Errorf("openai stream recv: %w", err)
		}

		if len(resp.Choices) == 0 {
			continue
		}

		fragment := resp.Choices[0].Delta.Content
		if fragment == "" {
			continue
		}

		accumulated.WriteString(fragment)
		if err := onFragment(fragment); err != nil {
			completionDuration.WithLabelValues(c.cfg.Model, "stream").Observe(time.Since(start).Seconds())
			c.logger.Debug().Err(err).Msg("stream consumer stopped accepting fragments")
			return accumulated.String(), err
		}
	}

	completionDuration.WithLabelValues(c.cfg.Model, "stream").Observe(time.Since(start).Seconds())
	return accumulated.String(), nil
}

func (c *OpenAIClient) request(prompt Prompt) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: prompt.System,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt.User,
			},
		},
	}
}
