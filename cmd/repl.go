/*
Copyright © 2026 Paulo Suderio
*/
package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start the interactive REPL shell",
	Long: `Starts the read-eval-print loop for resolving scope expressions and
discovering actions against the loaded world.
Usage:
	> actor hero
	> resolve actor.topmost_clothing[]
	> actions`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		actorID, _ := cmd.Flags().GetString("actor")

		app, _, err := openSession(cmd, nil)
		if err != nil {
			return fmt.Errorf("failed to bootstrap session: %w", err)
		}
		defer app.Close()

		if actorID != "" {
			if err := app.SetActor(actorID); err != nil {
				return err
			}
		}

		worldRef, _ := cmd.Flags().GetString("world")
		return RunTUI(app, filepath.Base(worldRef))
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
	replCmd.Flags().String("actor", "", "default actor")
}
