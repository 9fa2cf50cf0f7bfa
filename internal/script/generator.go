package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/apresai/paperpod/internal/llm"
	"github.com/apresai/paperpod/internal/retry"
)

var tracer = otel.Tracer("paperpod/script")

// Sampling parameters used for every segment request.
const (
	DefaultMaxTokens   = 3000
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
)

// GeneratorOptions configures a Generator. Zero values fall back to the
// Talking Machines defaults.
type GeneratorOptions struct {
	Show        Show
	Roster      Roster
	Opener      Persona // host who speaks the opening line; defaults to Roster.A
	Policy      retry.Policy
	MaxTokens   int
	Temperature float64
	TopP        float64
	Logger      *slog.Logger
}

// Generator writes one segment of dialogue per call.
type Generator struct {
	client      llm.Client
	show        Show
	roster      Roster
	opener      Persona
	system      string
	policy      retry.Policy
	maxTokens   int
	temperature float64
	topP        float64
	logger      *slog.Logger
}

// NewGenerator builds a Generator around client.
func NewGenerator(client llm.Client, opts GeneratorOptions) *Generator {
	if opts.Show.Name == "" {
		opts.Show = DefaultShow()
	}
	if opts.Roster.A.Name == "" {
		opts.Roster = DefaultRoster()
	}
	if opts.Opener.Name == "" {
		opts.Opener = opts.Roster.A
	}
	if opts.Policy.MaxAttempts == 0 {
		opts.Policy = retry.Default()
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.TopP == 0 {
		opts.TopP = DefaultTopP
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Generator{
		client:      client,
		show:        opts.Show,
		roster:      opts.Roster,
		opener:      opts.Opener,
		system:      BuildSystemPrompt(opts.Show, opts.Roster),
		policy:      opts.Policy,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		topP:        opts.TopP,
		logger:      opts.Logger,
	}
}

// Opener returns the host who speaks the opening line.
func (g *Generator) Opener() Persona { return g.opener }

// Generate writes the segment described by seg. slice is the document text the
// segment consumes, history the conversation-so-far context.
//
// Service failures are retried under the generator's policy. When the policy
// degrades, the last failure is logged and Generate returns "" with a nil
// error so the run continues with an empty segment. Context cancellation is
// always returned.
func (g *Generator) Generate(ctx context.Context, seg SegmentSpec, slice, history, topic string) (string, error) {
	ctx, span := tracer.Start(ctx, "script.segment")
	defer span.End()
	span.SetAttributes(
		attribute.String("segment.name", seg.Name),
		attribute.Int("segment.words", seg.Words),
		attribute.String("segment.role", string(seg.Role)),
		attribute.Int("segment.history_chars", len(history)),
	)

	req := llm.Request{
		System: g.system,
		User: BuildUserPrompt(PromptInput{
			Segment: seg,
			Slice:   slice,
			History: history,
			Topic:   topic,
			Show:    g.show,
			Roster:  g.roster,
			Opener:  g.opener,
		}),
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		TopP:        g.topP,
	}

	var text string
	err := g.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		out, err := g.client.Complete(ctx, req)
		if err != nil {
			g.logger.Warn("segment generation failed",
				"segment", seg.Name,
				"attempt", attempt,
				"max_attempts", g.policy.MaxAttempts,
				"error", err,
			)
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		if g.policy.Degrade {
			g.logger.Error("segment degraded to empty output", "segment", seg.Name, "error", err)
			return "", nil
		}
		return "", fmt.Errorf("generate segment %q: %w", seg.Name, err)
	}

	span.SetAttributes(attribute.Int("segment.output_words", len(strings.Fields(text))))
	return text, nil
}
