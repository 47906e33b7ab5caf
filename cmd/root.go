/*
Copyright © 2026 Paulo Suderio
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/suderio/scopedsl/internal/config"
	"github.com/suderio/scopedsl/internal/diag"
	"github.com/suderio/scopedsl/internal/logger"
	"github.com/suderio/scopedsl/internal/session"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scopedsl",
	Short: "Resolve scope expressions and discover actions against a world",
	Long: `scopedsl evaluates scope expressions such as

	actor.topmost_clothing.torso_upper
	actor.core:inventory.items[][has_component(entity, "core:key")]

against an entity/component world and discovers the action candidates an
actor can take, with bounded target combinations.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./scopedsl.yaml or $HOME/.scopedsl.yaml)")
	flags.StringSlice("data-dir", nil, "data directories searched for worlds and actions, in order")
	flags.StringP("world", "w", "world", "world file path or name under <data-dir>/worlds")
	flags.StringP("actions", "a", "", "action file path or name under <data-dir>/actions")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("predicate", "", "predicate engine (cel or lua)")
	flags.Bool("no-cache", false, "disable the resolution cache")

	_ = viper.BindPFlag("data_dirs", flags.Lookup("data-dir"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("predicate.engine", flags.Lookup("predicate"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.SetDefaults(viper.GetViper())
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName("scopedsl")
	}
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig unmarshals the layered configuration and initializes logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		viper.Set("cache.enabled", false)
	}
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format, nil)
	return cfg, nil
}

// openSession loads the configured world and actions.
func openSession(cmd *cobra.Command, tracer diag.Tracer) (*session.Session, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	worldRef, _ := cmd.Flags().GetString("world")
	actionsRef, _ := cmd.Flags().GetString("actions")
	var opts []session.Option
	if tracer != nil {
		opts = append(opts, session.WithTracer(tracer))
	}
	s, err := session.Load(cfg, worldRef, actionsRef, opts...)
	if err != nil {
		return nil, nil, err
	}
	return s, cfg, nil
}

// signalContext is canceled on interrupt.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
