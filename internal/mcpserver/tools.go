package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/apresai/paperpod/internal/config"
	"github.com/apresai/paperpod/internal/observability"
	"github.com/apresai/paperpod/internal/pipeline"
	"github.com/apresai/paperpod/internal/tts"
)

var tracer = otel.Tracer("paperpod-mcp")

// Stages is the stage surface the tools call; *pipeline.Pipeline implements it.
type Stages interface {
	Script(ctx context.Context, input, output string) (*pipeline.ScriptResult, error)
	Metadata(ctx context.Context, scriptPath, output string) (*pipeline.MetadataResult, error)
	Audio(ctx context.Context, scriptPath, output string) (*pipeline.AudioResult, error)
}

// Builder creates the stages needed by one tool call.
type Builder func(ctx context.Context, stage string) (Stages, func() error, error)

// NewConfigBuilder builds real pipelines from cfg.
func NewConfigBuilder(cfg *config.Config, logger *slog.Logger) Builder {
	return func(ctx context.Context, stage string) (Stages, func() error, error) {
		p, closeFn, err := pipeline.Build(ctx, cfg, logger, nil, stage)
		if err != nil {
			return nil, nil, err
		}
		return p, closeFn, nil
	}
}

// ToolDefs returns the MCP tool definitions.
func ToolDefs() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool("generate_script",
			mcp.WithDescription("Turn a PDF (or .txt/.md) research paper into a two-host podcast script. Returns the script path; the file name records which host speaks first."),
			mcp.WithString("input", mcp.Required(), mcp.Description("Path to the source document")),
			mcp.WithString("output", mcp.Description("Output file or directory (default: the scripts directory)")),
		),
		mcp.NewTool("generate_metadata",
			mcp.WithDescription("Write an episode title and two-paragraph description for a script."),
			mcp.WithString("script", mcp.Required(), mcp.Description("Path to a script written by generate_script")),
			mcp.WithString("output", mcp.Description("Output file (default: metadata/{script}_metadata.txt)")),
		),
		mcp.NewTool("generate_audio",
			mcp.WithDescription("Voice a script with alternating host voices and write one MP3."),
			mcp.WithString("script", mcp.Required(), mcp.Description("Path to a script written by generate_script")),
			mcp.WithString("output", mcp.Description("Output file (default: audio/{script}.mp3)")),
		),
		mcp.NewTool("list_voices",
			mcp.WithDescription("List the voices offered by a text-to-speech provider."),
			mcp.WithString("provider", mcp.Required(), mcp.Description("elevenlabs, google, polly or gemini")),
		),
	}
}

// Handlers contains tool handler implementations.
type Handlers struct {
	base  context.Context
	build Builder
	log   *slog.Logger
}

func NewHandlers(base context.Context, build Builder, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{base: base, build: build, log: logger}
}

// run builds the stage and calls fn under a context that carries the
// request's trace but is cancelled only by the server.
func (h *Handlers) run(ctx context.Context, stage string, fn func(ctx context.Context, s Stages) (map[string]any, error)) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool."+stage)
	defer span.End()

	stages, closeFn, err := h.build(ctx, stage)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build failed")
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer closeFn()

	runCtx := observability.DetachTraceContextFrom(ctx, h.base)
	result, err := fn(runCtx, stages)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, stage+" failed")
		h.log.ErrorContext(ctx, "tool failed", "stage", stage, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func requiredPath(req mcp.CallToolRequest, key string) (string, error) {
	path := mcp.ParseString(req, key, "")
	if path == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return path, nil
}

// HandleGenerateScript runs the script stage.
func (h *Handlers) HandleGenerateScript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := requiredPath(req, "input")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	output := mcp.ParseString(req, "output", "")

	return h.run(ctx, pipeline.StageScript, func(ctx context.Context, s Stages) (map[string]any, error) {
		res, err := s.Script(ctx, input, output)
		if err != nil {
			return nil, err
		}
		out := map[string]any{
			"path":           res.Path,
			"first_speaker":  res.First.Name,
			"introduction":   res.Match.String(),
			"empty_segments": res.EmptySegments,
		}
		if len(res.Issues) > 0 {
			issues := make([]string, len(res.Issues))
			for i, issue := range res.Issues {
				issues[i] = issue.Category + ": " + issue.Message
			}
			out["review"] = issues
		}
		return out, nil
	})
}

// HandleGenerateMetadata runs the metadata stage.
func (h *Handlers) HandleGenerateMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scriptPath, err := requiredPath(req, "script")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	output := mcp.ParseString(req, "output", "")

	return h.run(ctx, pipeline.StageMetadata, func(ctx context.Context, s Stages) (map[string]any, error) {
		res, err := s.Metadata(ctx, scriptPath, output)
		if err != nil {
			return nil, err
		}
		out := map[string]any{
			"path":        res.Path,
			"title":       res.Episode.Title,
			"description": res.Episode.Description,
		}
		if res.HTMLPath != "" {
			out["html_path"] = res.HTMLPath
		}
		return out, nil
	})
}

// HandleGenerateAudio runs the audio stage.
func (h *Handlers) HandleGenerateAudio(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scriptPath, err := requiredPath(req, "script")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	output := mcp.ParseString(req, "output", "")

	return h.run(ctx, pipeline.StageAudio, func(ctx context.Context, s Stages) (map[string]any, error) {
		res, err := s.Audio(ctx, scriptPath, output)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"path":          res.Path,
			"turns":         res.Turns,
			"empty_turns":   res.EmptyTurns,
			"assembler":     res.Assembler,
			"first_speaker": res.FirstSpeaker,
		}, nil
	})
}

// HandleListVoices returns the voice registry for a provider.
func (h *Handlers) HandleListVoices(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, span := tracer.Start(ctx, "tool.list_voices")
	defer span.End()

	voices, err := tts.AvailableVoices(mcp.ParseString(req, "provider", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	list := make([]map[string]any, 0, len(voices))
	for _, v := range voices {
		item := map[string]any{"id": v.ID, "name": v.Name, "gender": v.Gender, "description": v.Description}
		if v.DefaultFor != "" {
			item["default_for"] = v.DefaultFor
		}
		list = append(list, item)
	}
	return jsonResult(map[string]any{"voices": list, "count": len(list)})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
