// Package metadata writes an episode title and description from a finished
// script.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/apresai/paperpod/internal/discover"
	"github.com/apresai/paperpod/internal/llm"
	"github.com/apresai/paperpod/internal/retry"
	"github.com/apresai/paperpod/internal/script"
)

var tracer = otel.Tracer("paperpod/metadata")

// ErrEmptyScript is returned for scripts with no turns.
var ErrEmptyScript = errors.New("script has no dialogue")

const (
	titleExcerptChars       = 1000
	descriptionExcerptChars = 1500
	titleMaxTokens          = 50
	descriptionMaxTokens    = 300
	temperature             = 0.7
)

// Episode is the generated metadata.
type Episode struct {
	Title       string
	Description string
}

// Format renders the metadata artifact.
func (e Episode) Format() string {
	return fmt.Sprintf("Title: %s\n\nDescription:\n%s", e.Title, e.Description)
}

// Markdown renders the episode as show notes.
func (e Episode) Markdown(hosts []script.Persona) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n", e.Title, e.Description)
	if len(hosts) > 0 {
		names := make([]string, len(hosts))
		for i, h := range hosts {
			names[i] = h.Name
		}
		fmt.Fprintf(&b, "\n**Hosts:** %s\n", strings.Join(names, " and "))
	}
	return b.String()
}

// Generator asks a language model for an episode title and description.
type Generator struct {
	client llm.Client
	show   script.Show
	roster script.Roster
	policy retry.Policy
	logger *slog.Logger
}

func NewGenerator(client llm.Client, show script.Show, roster script.Roster, policy retry.Policy, logger *slog.Logger) *Generator {
	if show.Name == "" {
		show = script.DefaultShow()
	}
	if roster.A.Name == "" {
		roster = script.DefaultRoster()
	}
	if policy.MaxAttempts == 0 {
		policy = retry.Default()
	}
	// A metadata file with a blank title is worse than a failed run.
	policy.Degrade = false
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{client: client, show: show, roster: roster, policy: policy, logger: logger}
}

// Generate produces metadata for s. The hosts are taken from the script's
// turns: the first speaker, then the other host.
func (g *Generator) Generate(ctx context.Context, s *script.Script, topic string) (Episode, error) {
	ctx, span := tracer.Start(ctx, "metadata.generate")
	defer span.End()
	span.SetAttributes(attribute.String("metadata.script", s.Path))

	if len(s.Turns) == 0 {
		return Episode{}, ErrEmptyScript
	}
	hosts := s.Hosts(g.roster)
	labelled := s.Labelled()

	title, err := g.complete(ctx, "title", llm.Request{
		System:      "You are a podcast producer creating engaging, clear titles for AI-focused content that balance technical accuracy with accessibility.",
		User:        titlePrompt(topic, hosts, excerpt(labelled, titleExcerptChars)),
		MaxTokens:   titleMaxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return Episode{}, err
	}
	title = cleanTitle(title)

	desc, err := g.complete(ctx, "description", llm.Request{
		System:      "You are a podcast producer creating concise, factual descriptions without promotional language.",
		User:        descriptionPrompt(g.show, title, excerpt(labelled, descriptionExcerptChars)),
		MaxTokens:   descriptionMaxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return Episode{}, err
	}

	return Episode{Title: title, Description: strings.TrimSpace(desc)}, nil
}

func (g *Generator) complete(ctx context.Context, what string, req llm.Request) (string, error) {
	var out string
	err := g.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		text, err := g.client.Complete(ctx, req)
		if err != nil {
			g.logger.WarnContext(ctx, "metadata request failed", "field", what, "attempt", attempt, "error", err)
			return err
		}
		out = text
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", what, err)
	}
	return out, nil
}

func titlePrompt(topic string, hosts []script.Persona, excerptText string) string {
	return fmt.Sprintf(`Generate a podcast episode title based on the podcast script.
The title should be catchy, clear to a general AI-interested audience, and capture the central idea of the discussion about %s.
Aim for a balance between intrigue and clarity, like something you'd see on a popular AI podcast.

Hosts: %s and %s

Script excerpt for context:
%s

Title:`, topic, hosts[0].Name, hosts[1].Name, excerptText)
}

func descriptionPrompt(show script.Show, title, excerptText string) string {
	return fmt.Sprintf(`You are a podcast producer for %q podcast.
Based on the following script excerpt and title, generate a clear, concise description in exactly 2 paragraphs.
Keep it factual and engaging, without promotional language.

First paragraph:
- State the main topic clearly
- Explain its significance
- Use a direct, engaging tone

Second paragraph:
- Present 2-3 key insights from the discussion
- Focus on the most interesting findings or implications
- Keep it concise and factual

Title: %s

Script excerpt:
%s

Description:`, show.Name, title, excerptText)
}

// excerpt returns at most n characters of text, cut on a rune boundary.
func excerpt(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n])
}

func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "Title:")
	return strings.TrimSpace(strings.NewReplacer(`"`, "", "'", "").Replace(s))
}

// DefaultPath is {dir}/{script stem}_metadata.txt.
func DefaultPath(scriptPath, dir string) string {
	return discover.DefaultOutput(scriptPath, dir, "_metadata", ".txt")
}
