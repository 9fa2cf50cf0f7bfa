package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/apresai/paperpod/internal/assembly"
	"github.com/apresai/paperpod/internal/discover"
	"github.com/apresai/paperpod/internal/pipeline"
	"github.com/apresai/paperpod/internal/progress"
)

var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "Write a two-host script from a PDF",
	Long: "Write a two-host script from a PDF. Without --input the single PDF in\n" +
		"the configured pdfs directory is used.",
	Args: cobra.NoArgs,
	RunE: withApp(runScript),
}

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Write an episode title and description for a script",
	Args:  cobra.NoArgs,
	RunE:  withApp(runMetadata),
}

var audioCmd = &cobra.Command{
	Use:   "audio",
	Short: "Voice a script and assemble the episode MP3",
	Args:  cobra.NoArgs,
	RunE:  withApp(runAudio),
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run script, metadata and audio for one PDF",
	Args:  cobra.NoArgs,
	RunE:  withApp(runAll),
}

// outcome is what a finished command reports to the user.
type outcome struct {
	message   string
	artifacts []string
	warnings  int
}

func (o *outcome) event(start time.Time) progress.Event {
	return progress.Event{
		Stage:     progress.StageComplete,
		Message:   o.message,
		Elapsed:   time.Since(start),
		Artifacts: o.artifacts,
		Warnings:  o.warnings,
	}
}

type stageFunc func(ctx context.Context, p *pipeline.Pipeline) (*outcome, error)

func runScript(cmd *cobra.Command, a *app) error {
	input, ok, err := a.resolve(flagInput, a.cfg.Paths.PDFs, ".pdf")
	if !ok {
		return err
	}
	return a.execute(cmd.Context(), input, func(ctx context.Context, p *pipeline.Pipeline) (*outcome, error) {
		return writeScript(ctx, p, input, a.scriptOutput(flagOutput))
	}, pipeline.StageScript)
}

func runMetadata(cmd *cobra.Command, a *app) error {
	input, ok, err := a.resolve(flagInput, a.cfg.Paths.Scripts, ".txt")
	if !ok {
		return err
	}
	return a.execute(cmd.Context(), input, func(ctx context.Context, p *pipeline.Pipeline) (*outcome, error) {
		return writeMetadata(ctx, p, input, flagOutput)
	}, pipeline.StageMetadata)
}

func runAudio(cmd *cobra.Command, a *app) error {
	input, ok, err := a.resolve(flagInput, a.cfg.Paths.Scripts, ".txt")
	if !ok {
		return err
	}
	if err := a.checkFFmpeg(); err != nil {
		return err
	}
	return a.execute(cmd.Context(), input, func(ctx context.Context, p *pipeline.Pipeline) (*outcome, error) {
		return writeAudio(ctx, p, input, flagOutput)
	}, pipeline.StageAudio)
}

func runAll(cmd *cobra.Command, a *app) error {
	input, ok, err := a.resolve(flagInput, a.cfg.Paths.PDFs, ".pdf")
	if !ok {
		return err
	}
	if err := a.checkFFmpeg(); err != nil {
		return err
	}
	return a.execute(cmd.Context(), input, func(ctx context.Context, p *pipeline.Pipeline) (*outcome, error) {
		return a.episode(ctx, p, input)
	}, pipeline.StageScript, pipeline.StageMetadata, pipeline.StageAudio)
}

// episode runs all three stages for one PDF.
func (a *app) episode(ctx context.Context, p *pipeline.Pipeline, input string) (*outcome, error) {
	sr, err := writeScript(ctx, p, input, a.scriptOutput(""))
	if err != nil {
		return nil, err
	}
	scriptPath := sr.artifacts[0]

	mr, err := writeMetadata(ctx, p, scriptPath, "")
	if err != nil {
		return nil, err
	}
	ar, err := writeAudio(ctx, p, scriptPath, "")
	if err != nil {
		return nil, err
	}

	return &outcome{
		message:   "Episode ready: " + ar.message,
		artifacts: append(append(sr.artifacts, mr.artifacts...), ar.artifacts...),
		warnings:  sr.warnings + ar.warnings,
	}, nil
}

func writeScript(ctx context.Context, p *pipeline.Pipeline, input, output string) (*outcome, error) {
	res, err := p.Script(ctx, input, output)
	if err != nil {
		return nil, err
	}
	return &outcome{
		message:   fmt.Sprintf("Script written, %s opens", res.First.Name),
		artifacts: []string{res.Path},
		warnings:  res.EmptySegments,
	}, nil
}

func writeMetadata(ctx context.Context, p *pipeline.Pipeline, scriptPath, output string) (*outcome, error) {
	res, err := p.Metadata(ctx, scriptPath, output)
	if err != nil {
		return nil, err
	}
	out := &outcome{
		message:   fmt.Sprintf("Metadata written: %q", res.Episode.Title),
		artifacts: []string{res.Path},
	}
	if res.HTMLPath != "" {
		out.artifacts = append(out.artifacts, res.HTMLPath)
	}
	return out, nil
}

func writeAudio(ctx context.Context, p *pipeline.Pipeline, scriptPath, output string) (*outcome, error) {
	res, err := p.Audio(ctx, scriptPath, output)
	if err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("%d turns, %s", res.Turns, formatSize(res.SizeBytes))
	if d, err := assembly.ProbeDuration(ctx, res.Path); err == nil {
		msg += ", " + d.Round(time.Second).String()
	}
	return &outcome{
		message:   "Audio written: " + msg,
		artifacts: []string{res.Path},
		warnings:  res.EmptyTurns,
	}, nil
}

// resolve picks the input file. A discovery failure is reported and ok is
// false with a nil error: the command ends without doing any work.
func (a *app) resolve(explicit, dir string, exts ...string) (string, bool, error) {
	input, err := discover.Resolve(explicit, dir, exts...)
	if err == nil {
		return input, true, nil
	}
	if discover.IsDiscovery(err) {
		fmt.Fprintln(a.out, err)
		return "", false, nil
	}
	return "", false, err
}

// scriptOutput places scripts in the scripts directory unless an explicit
// output is given.
func (a *app) scriptOutput(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return a.cfg.Paths.Scripts + string(os.PathSeparator)
}

// checkFFmpeg fails early when the chosen assembler or speech provider needs
// FFmpeg and it is not installed.
func (a *app) checkFFmpeg() error {
	var reason string
	switch {
	case a.cfg.Audio.Assembler == "ffmpeg":
		reason = "the ffmpeg assembler"
	case a.cfg.TTS.Provider == "gemini":
		reason = "gemini speech, which returns raw PCM"
	default:
		return nil
	}
	if assembly.NewFFmpegAssembler().Available() {
		return nil
	}
	return fmt.Errorf("FFmpeg not found, needed for %s: install it and make sure it is on PATH", reason)
}

// execute builds the pipeline for stages, runs fn and reports the outcome.
func (a *app) execute(ctx context.Context, source string, fn stageFunc, stages ...string) error {
	var cb progress.Callback
	if !flagVerbose {
		r := progress.NewBarRenderer(os.Stdout)
		defer r.Finish()
		cb = r.Handle
	}

	p, closeFn, err := pipeline.Build(ctx, a.cfg, a.logger, cb, stages...)
	if err != nil {
		return err
	}
	defer closeFn()

	start := time.Now()
	p.BeginRun(ctx, source)
	out, err := fn(ctx, p)
	p.FinishRun(ctx, err)
	if err != nil {
		return err
	}

	done := out.event(start)
	if cb != nil {
		cb(done)
	} else {
		printOutcome(a.out, done)
	}
	return nil
}

func printOutcome(w io.Writer, e progress.Event) {
	fmt.Fprintf(w, "%s (%s)\n", e.Message, e.Elapsed.Round(time.Second))
	for _, path := range e.Artifacts {
		fmt.Fprintf(w, "  %s\n", path)
	}
	if e.Warnings > 0 {
		fmt.Fprintf(w, "  %d part(s) came back empty; see the log\n", e.Warnings)
	}
}

func formatSize(n int) string {
	const mb = 1024 * 1024
	if n >= mb {
		return fmt.Sprintf("%.1f MB", float64(n)/mb)
	}
	return fmt.Sprintf("%d KB", n/1024)
}
