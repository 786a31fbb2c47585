package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var invalidateForce bool

// invalidateCmd forgets a player's cached result, checkpoint and stored batches.
var invalidateCmd = &cobra.Command{
	Use:   "invalidate <Name#TAG>",
	Short: "Forget a player's cached rewind",
	Long:  "Delete the cached result, checkpoint, stored batches and status of a player. The next run starts from scratch.",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvalidate,
}

func init() {
	invalidateCmd.Flags().BoolVarP(&invalidateForce, "force", "f", false, "skip confirmation prompt")
}

func runInvalidate(cmd *cobra.Command, args []string) error {
	id, err := parseRiotID(args[0])
	if err != nil {
		return err
	}
	if !invalidateForce {
		fmt.Fprintf(os.Stderr, "This will delete everything stored for %s\n", id)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}

	ctx := cmd.Context()
	s, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	existed, err := storeOnlyOrchestrator(s).Invalidate(ctx, id)
	if err != nil {
		return fmt.Errorf("invalidate: %w", err)
	}
	if existed {
		fmt.Fprintf(os.Stdout, "Deleted cached rewind for %s\n", id)
	} else {
		fmt.Fprintln(os.Stdout, "No cached rewind, nothing to delete.")
	}
	return nil
}
