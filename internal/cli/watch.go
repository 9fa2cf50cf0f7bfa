package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/apresai/paperpod/internal/pipeline"
	"github.com/apresai/paperpod/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Produce an episode for every PDF dropped into the pdfs directory",
	Long: "Watch the configured pdfs directory and run script, metadata and audio\n" +
		"for each new PDF, one at a time. Files already present are left alone.",
	Args: cobra.NoArgs,
	RunE: withApp(runWatch),
}

func runWatch(cmd *cobra.Command, a *app) error {
	ctx := cmd.Context()
	dir := a.cfg.Paths.PDFs
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	if err := a.checkFFmpeg(); err != nil {
		return err
	}

	// One pipeline serves every file; the progress bar does not suit a
	// long-running process, so only the log and a line per episode are shown.
	p, closeFn, err := pipeline.Build(ctx, a.cfg, a.logger, nil,
		pipeline.StageScript, pipeline.StageMetadata, pipeline.StageAudio)
	if err != nil {
		return err
	}
	defer closeFn()

	w, err := watcher.New(dir, []string{".pdf"}, a.watchHandler(p), watcher.Options{Logger: a.logger})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Watching %s for new PDFs (Ctrl-C to stop)\n", dir)

	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *app) watchHandler(p *pipeline.Pipeline) watcher.Handler {
	return func(ctx context.Context, path string) error {
		start := time.Now()
		p.BeginRun(ctx, path)
		out, err := a.episode(ctx, p, path)
		p.FinishRun(ctx, err)
		if err != nil {
			fmt.Fprintf(a.out, "Failed: %s: %v\n", path, err)
			return err
		}
		printOutcome(a.out, out.event(start))
		return nil
	}
}
