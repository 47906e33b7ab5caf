/*
Copyright © 2026 Paulo Suderio
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/suderio/scopedsl/internal/action"
	"github.com/suderio/scopedsl/internal/parser"
	"github.com/suderio/scopedsl/internal/predicate"
)

var errCheckFailed = errors.New("action files have problems")

var checkCmd = &cobra.Command{
	Use:   "check [action_file...]",
	Short: "Check action files for authoring mistakes",
	Long: `Parses every target scope of the given action files (or the --actions
file) and reports syntax errors, duplicate ids and contextFrom cycles.
Also checks predicates when --predicates is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		refs := args
		if len(refs) == 0 {
			ref, _ := cmd.Flags().GetString("actions")
			if ref == "" {
				return fmt.Errorf("must specify action files or the --actions flag")
			}
			refs = []string{ref}
		}
		vocab, err := cfg.Vocabulary()
		if err != nil {
			return err
		}
		p := parser.New(parser.WithLimits(cfg.Limits.Limits), parser.WithKeys(vocab.IsKey))
		checkPredicates, _ := cmd.Flags().GetBool("predicates")

		loader := action.NewLoader(cfg.DataDirs)
		failed := false
		for _, ref := range refs {
			catalog, err := loader.Load(ref)
			if err != nil {
				fmt.Printf("%s: %v\n", ref, err)
				failed = true
				continue
			}
			problems := action.Check(catalog, p)
			if checkPredicates {
				problems = append(problems, predicateProblems(cfg.Predicate.Engine, p, catalog)...)
			}
			for _, problem := range problems {
				fmt.Printf("%s: action %s: %v\n", ref, problem.ActionID, describeProblem(problem))
			}
			if len(problems) > 0 {
				failed = true
				continue
			}
			fmt.Printf("%s: %d actions ok\n", ref, len(catalog.Actions))
		}
		if failed {
			return errCheckFailed
		}
		return nil
	},
}

func describeProblem(p action.Problem) error {
	err := parser.MapError(p.Err)
	if p.Target != "" {
		return fmt.Errorf("target %s: %w", p.Target, err)
	}
	return err
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().Bool("predicates", false, "also compile prerequisites, validations and filters with the predicate engine")
}

func predicateProblems(engine string, p *parser.Parser, catalog *action.Catalog) []action.Problem {
	ev, err := predicate.New(engine)
	if err != nil {
		return []action.Problem{{ActionID: "*", Err: err}}
	}
	if closer, ok := ev.(interface{ Close() }); ok {
		defer closer.Close()
	}
	checker, ok := ev.(predicate.Checker)
	if !ok {
		return nil
	}
	return action.CheckPredicates(catalog, p, checker)
}
