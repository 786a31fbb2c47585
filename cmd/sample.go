package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/rift-rewind/internal/report"
	"github.com/pable/rift-rewind/internal/riot"
	"github.com/pable/rift-rewind/internal/sampler"
)

var sampleVerbose bool

var sampleCmd = &cobra.Command{
	Use:   "sample <Name#TAG>",
	Short: "Preview how a player's history would be sampled",
	Long: `Lists the player's ranked match ids and prints the sampling plan that a
run would use, without fetching any match details.`,
	Args: cobra.ExactArgs(1),
	RunE: runSample,
}

func init() {
	sampleCmd.Flags().BoolVarP(&sampleVerbose, "verbose", "v", false, "also print the selected match ids")
}

func runSample(cmd *cobra.Command, args []string) error {
	id, err := parseRiotID(args[0])
	if err != nil {
		return err
	}
	if err := cfg.RequireRiotKey(); err != nil {
		return err
	}
	ctx := cmd.Context()
	client := riot.NewClient(cfg.RiotAPIKey,
		riot.WithLimits(cfg.RiotRPS, cfg.RiotPer2Min),
		riot.WithTimeout(cfg.RequestTimeout),
	)

	acct, err := client.LookupAccount(ctx, id)
	if err != nil {
		return fmt.Errorf("lookup account: %w", err)
	}
	refs, err := client.ListMatchRefs(ctx, acct.PUUID, id.Region, cfg.SinceTime())
	if err != nil {
		return fmt.Errorf("list matches: %w", err)
	}
	fmt.Printf("Player: %s#%s  region=%s  matches=%d\n\n", acct.GameName, acct.TagLine, id.Region, len(refs))

	if len(refs) <= cfg.SampleThreshold {
		fmt.Printf("%d matches is within the threshold of %d; every match is analyzed.\n", len(refs), cfg.SampleThreshold)
		return nil
	}
	plan := sampler.Plan(refs)
	report.PrintSamplingTable(os.Stdout, &plan)
	fmt.Println()
	fmt.Print(plan.Report())
	if sampleVerbose {
		for _, r := range plan.SelectedRefs {
			fmt.Println(r)
		}
	}
	return nil
}
