package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/rift-rewind/internal/model"
	"github.com/pable/rift-rewind/internal/pipeline"
	"github.com/pable/rift-rewind/internal/report"
)

var (
	cState    = color.New(color.FgCyan, color.Bold)
	cComplete = color.New(color.FgGreen, color.Bold)
	cError    = color.New(color.FgRed, color.Bold)
	cMuted    = color.New(color.Faint)
)

var statusPoll = 500 * time.Millisecond

var (
	runDryRun    bool
	runNarrative bool
	runFresh     bool
)

var runCmd = &cobra.Command{
	Use:   "run <Name#TAG>",
	Short: "Build (or resume) a player's rewind",
	Long: `Looks up the player, lists their ranked matches, samples large histories,
fetches match details in checkpointed batches and generates the narrative.
A cached result is returned without any fetching. Interrupt with Ctrl-C and
run again to resume from the last completed batch.

Examples:
  rewind run "Hide on bush#KR1" --region kr
  rewind run Alice#EUW -r euw1 --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "skip narrative generation")
	runCmd.Flags().BoolVar(&runNarrative, "narrative", true, "print the narrative after the tables")
	runCmd.Flags().BoolVar(&runFresh, "fresh", false, "discard any cached result or checkpoint first")
}

func runRun(cmd *cobra.Command, args []string) error {
	id, err := parseRiotID(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	orch, err := newOrchestrator(cfg, s, runDryRun)
	if err != nil {
		return err
	}
	if runFresh {
		if _, err := orch.Invalidate(ctx, id); err != nil {
			return fmt.Errorf("invalidate: %w", err)
		}
	}

	fmt.Printf("Rewind for %s\n", id)
	stopFollow := followStatus(ctx, s, id.Hash(), os.Stdout)
	rec, err := orch.Run(ctx, id)
	stopFollow()
	if err != nil {
		var je *pipeline.JobError
		if errors.As(err, &je) {
			if je.Kind == pipeline.UpstreamUnavailable && errors.Is(err, context.Canceled) {
				cMuted.Println("Interrupted. Run the same command again to resume.")
			}
			return fmt.Errorf("%s", je.Message)
		}
		return err
	}
	return report.PrintResult(rec, runNarrative)
}

// followStatus prints a line whenever the job's status document changes.
// The returned stop func returns only after the follower has exited.
func followStatus(ctx context.Context, s *stores, hash string, w io.Writer) (stop func()) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		watchStatus(ctx, s, hash, w, done)
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

func watchStatus(ctx context.Context, s *stores, hash string, w io.Writer, done <-chan struct{}) {
	t := time.NewTicker(statusPoll)
	defer t.Stop()
	var last model.StatusDoc
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-t.C:
		}
		doc, ok, err := s.status.Get(ctx, hash)
		if err != nil || !ok {
			continue
		}
		if doc.State == last.State && doc.Progress == last.Progress {
			continue
		}
		last = doc
		label := stateColor(doc.State).Sprintf("[%s]", doc.State)
		if doc.Progress.Planned > 0 {
			fmt.Fprintf(w, "  %s %d/%d matches  %s\n", label, doc.Progress.Analyzed, doc.Progress.Planned, doc.Message)
		} else {
			fmt.Fprintf(w, "  %s %s\n", label, doc.Message)
		}
	}
}

func stateColor(s model.JobState) *color.Color {
	switch s {
	case model.StateComplete:
		return cComplete
	case model.StateError:
		return cError
	default:
		return cState
	}
}
