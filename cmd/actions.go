/*
Copyright © 2026 Paulo Suderio
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/suderio/scopedsl/internal/action"
	"github.com/suderio/scopedsl/internal/diag"
)

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "Discover the action candidates of an actor",
	Long: `Runs every action of the action file through target resolution,
validation and combination for the actor and prints the resulting commands.
Usage:
	scopedsl actions --actions core --actor hero`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		actorID, _ := cmd.Flags().GetString("actor")
		asJSON, _ := cmd.Flags().GetBool("json")
		showSkipped, _ := cmd.Flags().GetBool("skipped")
		trace, _ := cmd.Flags().GetBool("trace")

		rec := &diag.Recorder{}
		app, _, err := openSession(cmd, rec)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, cancel := signalContext()
		defer cancel()
		results, err := app.Actions(ctx, actorID)
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if showSkipped {
				return enc.Encode(results)
			}
			return enc.Encode(action.Candidates(results))
		}
		for _, r := range results {
			if !r.Emitted() {
				if showSkipped {
					fmt.Printf("# %s skipped: %s\n", r.ActionID, r.Reason)
				}
				continue
			}
			for _, c := range r.Candidates {
				fmt.Printf("%s\t%s\n", c.ActionID, c.Command)
			}
			if meta := r.Candidates[0].Metadata; meta.Overflowed() {
				fmt.Printf("# %s limited to %d of %d combinations\n", r.ActionID, meta.LimitedTo, meta.TotalCombinations)
			}
		}
		if trace {
			printTrace(rec)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(actionsCmd)
	actionsCmd.Flags().String("actor", "", "entity whose actions are discovered")
	actionsCmd.Flags().Bool("json", false, "print candidates as JSON")
	actionsCmd.Flags().Bool("skipped", false, "include skipped actions and their reason")
	actionsCmd.Flags().Bool("trace", false, "print diagnostics to stderr")
	_ = actionsCmd.MarkFlagRequired("actor")
}
