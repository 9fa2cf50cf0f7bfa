package pipeline

import (
	"context"
	"fmt"

	"github.com/apresai/paperpod/internal/ingest"
	"github.com/apresai/paperpod/internal/progress"
	"github.com/apresai/paperpod/internal/script"
)

// ScriptResult describes a written script.
type ScriptResult struct {
	Path          string
	First         script.Persona
	Match         script.MatchResult
	EmptySegments int
	Issues        []script.ReviewIssue
}

// chooseOpener resolves Settings.Opener to the host who opens the show.
func (p *Pipeline) chooseOpener() script.Persona {
	roster := p.settings.Roster
	if persona, ok := roster.Lookup(p.settings.Opener); ok {
		return persona
	}
	return roster.Personas()[p.deps.IntN(2)]
}

// Script turns the document at input into a two-host script. Segments are
// generated one at a time, in plan order, with a fixed pause after every
// request. output follows script.ArtifactPath rules.
func (p *Pipeline) Script(ctx context.Context, input, output string) (*ScriptResult, error) {
	if err := p.require(StageScript, p.deps.LLM != nil, "language model"); err != nil {
		return nil, err
	}
	logger := p.deps.Logger.With("stage", StageScript, "input", input)

	p.emit(progress.Event{Stage: progress.StageIngest, Message: "Extracting text from " + input})
	content, err := ingest.Ingest(ctx, input)
	if err != nil {
		return nil, &PipelineError{Stage: StageScript, Message: "failed to extract content", Err: err}
	}
	logger.InfoContext(ctx, "document extracted",
		"title", content.Title, "type", content.Type, "words", content.WordCount, "pages", content.Pages, "skipped_pages", content.SkippedPages)

	doc := script.NewDocument(content.Text)
	topic := script.TopicFromSource(input)
	opener := p.chooseOpener()
	gen := script.NewGenerator(p.deps.LLM, script.GeneratorOptions{
		Show:        p.settings.Show,
		Roster:      p.settings.Roster,
		Opener:      opener,
		Policy:      p.settings.ScriptPolicy,
		MaxTokens:   p.settings.MaxTokens,
		Temperature: p.settings.Temperature,
		TopP:        p.settings.TopP,
		Logger:      logger,
	})
	logger.InfoContext(ctx, "generating script", "topic", topic, "opener", opener.Name, "llm", p.deps.LLM.Name())

	plan := p.settings.Plan
	history := script.NewContinuity(p.settings.TailWords)
	outputs := make([]string, 0, len(plan))
	for i, seg := range plan {
		p.emit(progress.StepEvent(progress.StageScript, "Generating "+seg.Name, i+1, len(plan)))

		out, err := gen.Generate(ctx, seg, doc.Slice(seg.Slice), history.String(), topic)
		if err != nil {
			return nil, &PipelineError{Stage: StageScript, Message: fmt.Sprintf("segment %q failed", seg.Name), Err: err}
		}
		outputs = append(outputs, out)
		history.Append(out)

		if err := p.deps.Sleep(ctx, p.settings.Pause); err != nil {
			return nil, &PipelineError{Stage: StageScript, Message: "interrupted", Err: err}
		}
	}

	asm := script.Assemble(outputs, p.settings.Roster)
	issues := script.Review(plan, outputs, asm, p.settings.Roster, p.settings.Show, topic)
	for _, issue := range issues {
		logger.WarnContext(ctx, "script review", "category", issue.Category, "issue", issue.Message)
	}

	p.emit(progress.Event{Stage: progress.StageScript, Message: "Writing script", Percent: 1})
	path := script.ArtifactPath(output, input, asm.First)
	if err := script.WriteArtifact(path, []byte(asm.Text)); err != nil {
		return nil, &PipelineError{Stage: StageScript, Message: "failed to write script", Err: err}
	}
	logger.InfoContext(ctx, "script written",
		"path", path, "first_speaker", asm.First.Name, "match", asm.Match.String(), "empty_segments", asm.EmptyCount)
	p.deps.Catalog.Record(ctx, StageScript, path)

	return &ScriptResult{
		Path:          path,
		First:         asm.First,
		Match:         asm.Match,
		EmptySegments: asm.EmptyCount,
		Issues:        issues,
	}, nil
}
