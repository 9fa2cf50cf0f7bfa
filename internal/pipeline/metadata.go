package pipeline

import (
	"context"

	"github.com/apresai/paperpod/internal/fsutil"
	"github.com/apresai/paperpod/internal/metadata"
	"github.com/apresai/paperpod/internal/progress"
	"github.com/apresai/paperpod/internal/script"
)

// MetadataResult describes written episode metadata.
type MetadataResult struct {
	Path     string
	HTMLPath string
	Episode  metadata.Episode
}

// Metadata writes a title and description for the script at scriptPath.
// An empty output means {MetadataDir}/{script stem}_metadata.txt.
func (p *Pipeline) Metadata(ctx context.Context, scriptPath, output string) (*MetadataResult, error) {
	if err := p.require(StageMetadata, p.deps.LLM != nil, "language model"); err != nil {
		return nil, err
	}
	logger := p.deps.Logger.With("stage", StageMetadata, "script", scriptPath)
	roster := p.settings.Roster

	s, err := script.LoadScript(scriptPath, roster)
	if err != nil {
		return nil, &PipelineError{Stage: StageMetadata, Message: "failed to load script", Err: err}
	}
	if !s.Tagged {
		logger.WarnContext(ctx, "script name has no first-speaker tag", "assumed_first", s.First.Name)
	}

	p.emit(progress.Event{Stage: progress.StageMetadata, Message: "Generating title and description"})
	gen := metadata.NewGenerator(p.deps.LLM, p.settings.Show, roster, p.settings.ScriptPolicy, logger)
	ep, err := gen.Generate(ctx, s, script.TopicFromScript(scriptPath, roster))
	if err != nil {
		return nil, &PipelineError{Stage: StageMetadata, Message: "failed to generate metadata", Err: err}
	}

	if output == "" {
		output = metadata.DefaultPath(scriptPath, p.settings.MetadataDir)
	}
	if err := fsutil.WriteFileAtomic(output, []byte(ep.Format())); err != nil {
		return nil, &PipelineError{Stage: StageMetadata, Message: "failed to write metadata", Err: err}
	}
	logger.InfoContext(ctx, "metadata written", "path", output, "title", ep.Title)
	p.deps.Catalog.Record(ctx, StageMetadata, output)

	res := &MetadataResult{Path: output, Episode: ep}
	if p.settings.HTML {
		res.HTMLPath = metadata.HTMLPath(output)
		if err := metadata.WriteHTML(res.HTMLPath, ep, s.Hosts(roster)); err != nil {
			return nil, &PipelineError{Stage: StageMetadata, Message: "failed to write show notes", Err: err}
		}
		p.deps.Catalog.Record(ctx, StageMetadata, res.HTMLPath)
	}
	return res, nil
}
