package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/rift-rewind/internal/report"
)

var (
	showJSON      bool
	showNarrative bool
)

var showCmd = &cobra.Command{
	Use:   "show <Name#TAG | hash>",
	Short: "Show a cached rewind",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print the stored result as JSON")
	showCmd.Flags().BoolVar(&showNarrative, "narrative", true, "render the narrative and insights")
}

func runShow(cmd *cobra.Command, args []string) error {
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

	rec, ok, err := s.results.Get(ctx, hash)
	if err != nil {
		return fmt.Errorf("read result: %w", err)
	}
	if !ok {
		fmt.Fprintf(os.Stderr, "No cached rewind for %s\n", args[0])
		return nil
	}
	if showJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}
	return report.PrintResult(&rec, showNarrative)
}
