package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/rift-rewind/internal/report"
)

var statusCmd = &cobra.Command{
	Use:   "status <Name#TAG | hash>",
	Short: "Show the progress of a player's rewind",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	hash, err := resolveHash(args[0])
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	s, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	doc, ok, err := s.status.Get(ctx, hash)
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	if ok {
		report.PrintStatus(os.Stdout, &doc, time.Now())
	} else {
		fmt.Println("No job status recorded.")
	}

	cp, ok, err := s.checkpoints.Get(ctx, hash)
	if err != nil {
		fmt.Fprintf(os.Stderr, "checkpoint unreadable: %v\n", err)
	} else if ok {
		fmt.Printf("Checkpoint: %s, %d analyzed, %d left, batch %d, job %s\n",
			cp.Status, len(cp.AnalyzedRefs), len(cp.UnanalyzedRefs), cp.LastBatchNumber, cp.JobID)
	}

	if rec, ok, err := s.results.Get(ctx, hash); err == nil && ok {
		fmt.Printf("Result: cached, %d matches, expires %s\n", rec.MatchCount, rec.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}
