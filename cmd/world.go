/*
Copyright © 2026 Paulo Suderio
*/
package cmd

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/suderio/scopedsl/internal/world"
)

//go:embed samples/*.yaml
var samples embed.FS

// sampleFiles maps embedded samples to their place in a data directory.
var sampleFiles = []struct{ src, dst string }{
	{"samples/world.yaml", filepath.Join("worlds", "world.yaml")},
	{"samples/actions.yaml", filepath.Join("actions", "core.yaml")},
	{"samples/scopedsl.yaml", "scopedsl.yaml"},
}

var worldCmd = &cobra.Command{
	Use:   "world",
	Short: "Inspect and bootstrap worlds",
}

var worldShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the entities of a world",
	Long: `Loads the world and lists every entity with its component types, or
prints the whole world as YAML with --yaml.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asYAML, _ := cmd.Flags().GetBool("yaml")
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ref, _ := cmd.Flags().GetString("world")
		store, err := world.NewLoader(cfg.DataDirs).Load(ref)
		if err != nil {
			return err
		}
		if asYAML {
			return world.Encode(os.Stdout, store)
		}
		for _, id := range store.EntityIDs() {
			fmt.Printf("%s\t%s\n", id, strings.Join(store.ComponentTypes(id), ", "))
		}
		return nil
	},
}

var worldInitCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a sample world, action file and config",
	Long: `Bootstraps a data directory with worlds/world.yaml, actions/core.yaml
and scopedsl.yaml so that the other commands have something to run against.
Existing files are kept unless --force is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")

		fmt.Printf("Initializing sample data in: %s\n", dir)
		bar := progressbar.Default(int64(len(sampleFiles)), "Writing samples")
		for _, f := range sampleFiles {
			path := filepath.Join(dir, f.dst)
			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Printf("\nSkipping existing %s\n", path)
					_ = bar.Add(1)
					continue
				}
			}
			data, err := samples.ReadFile(f.src)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			_ = bar.Add(1)
		}
		fmt.Println("\nSample data ready! Try: scopedsl actions -a core --actor hero")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(worldCmd)
	worldCmd.AddCommand(worldShowCmd, worldInitCmd)
	worldShowCmd.Flags().Bool("yaml", false, "print the world as YAML")
	worldInitCmd.Flags().Bool("force", false, "overwrite existing files")
}
