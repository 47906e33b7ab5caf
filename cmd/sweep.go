/*
Copyright © 2026 Paulo Suderio
*/
package cmd

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/suderio/scopedsl/internal/report"
)

// actorComponent marks the entities a sweep discovers actions for.
const actorComponent = "core:actor"

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Discover actions for every actor in the world",
	Long: `Runs action discovery for each entity with a core:actor component,
several actors at a time, and optionally appends the results to a JSONL
report.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		showMetrics, _ := cmd.Flags().GetBool("metrics")
		jobs, _ := cmd.Flags().GetInt("jobs")

		app, cfg, err := openSession(cmd, nil)
		if err != nil {
			return err
		}
		defer app.Close()
		if jobs <= 0 {
			jobs = max(cfg.Concurrency, 1)
		}

		var w *report.Writer
		if out != "" {
			if w, err = report.Create(out); err != nil {
				return err
			}
			defer w.Close()
		}

		actors := app.Store().EntitiesWithComponent(actorComponent, false)
		bar := progressbar.Default(int64(len(actors)), "Sweeping actors")

		ctx, cancel := signalContext()
		defer cancel()
		start := time.Now()

		var mu sync.Mutex
		summary := report.Summary{Actors: len(actors)}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(jobs)
		for _, id := range actors {
			g.Go(func() error {
				results, err := app.Actions(gctx, id)
				if err != nil {
					return err
				}
				mu.Lock()
				defer mu.Unlock()
				for _, r := range results {
					if r.Emitted() {
						summary.Candidates += len(r.Candidates)
					} else {
						summary.Skipped++
					}
				}
				if w != nil {
					if err := w.Append(report.Actor{ActorID: id, Results: results}); err != nil {
						return err
					}
				}
				return bar.Add(1)
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}

		summary.ElapsedMS = time.Since(start).Milliseconds()
		if w != nil {
			if err := w.Append(summary); err != nil {
				return err
			}
		}
		fmt.Printf("\n%d actors, %d candidates, %d skipped actions in %dms\n",
			summary.Actors, summary.Candidates, summary.Skipped, summary.ElapsedMS)

		if showMetrics {
			return writeMetrics()
		}
		return nil
	},
}

// writeMetrics dumps this process' scopedsl metrics in the Prometheus text
// format.
func writeMetrics() error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "scopedsl_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(os.Stdout, mf); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(sweepCmd)
	sweepCmd.Flags().String("out", "", "append results to this JSONL report")
	sweepCmd.Flags().Bool("metrics", false, "print resolution metrics after the sweep")
	sweepCmd.Flags().IntP("jobs", "j", 0, "actors discovered at once (default: concurrency setting or 1)")
}
