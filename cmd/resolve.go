/*
Copyright © 2026 Paulo Suderio
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/suderio/scopedsl/internal/diag"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <expression>",
	Short: "Resolve a scope expression for an actor",
	Long: `Parses the expression and prints the candidate entities it selects for
the actor, in order.
Usage:
	scopedsl resolve --actor hero 'actor.topmost_clothing[]'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		actorID, _ := cmd.Flags().GetString("actor")
		target, _ := cmd.Flags().GetString("target")
		underwear, _ := cmd.Flags().GetBool("underwear")
		asJSON, _ := cmd.Flags().GetBool("json")
		trace, _ := cmd.Flags().GetBool("trace")

		rec := &diag.Recorder{}
		app, _, err := openSession(cmd, rec)
		if err != nil {
			return err
		}
		defer app.Close()

		cands, err := app.Resolve(actorID, args[0], app.Context(actorID, target, underwear))
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(cands); err != nil {
				return err
			}
		} else {
			for _, c := range cands {
				fmt.Printf("%s\t%s\n", c.ID, c.DisplayName)
			}
			if len(cands) == 0 {
				fmt.Fprintln(os.Stderr, "(no candidates)")
			}
		}
		if trace {
			printTrace(rec)
		}
		return nil
	},
}

// printTrace writes the recorded warnings to stderr.
func printTrace(rec *diag.Recorder) {
	for _, e := range rec.Events() {
		if e.Level != diag.LevelWarn {
			continue
		}
		fmt.Fprintf(os.Stderr, "warn: %s %v\n", e.Name, e.Fields)
	}
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().String("actor", "", "entity the expression is resolved for")
	resolveCmd.Flags().String("target", "", "entity bound as target")
	resolveCmd.Flags().Bool("underwear", false, "allow removing underwear")
	resolveCmd.Flags().Bool("json", false, "print candidates as JSON")
	resolveCmd.Flags().Bool("trace", false, "print diagnostics to stderr")
	_ = resolveCmd.MarkFlagRequired("actor")
}
