// ABOUTME: Cobra command tree and configuration loading for the patchrelay binary.
// ABOUTME: Reads .env, an optional YAML file and PATCHRELAY_* variables through viper.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jfeddern/PatchRelay/internal/config"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cli struct {
	v       *viper.Viper
	cfgFile string

	cfg     *config.Config
	logger  *logrus.Logger
	closeFn func()
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New(), closeFn: func() {}}

	rootCmd := &cobra.Command{
		Use:           "patchrelay",
		Short:         "Dependency patch intelligence for locally checked-out projects",
		Long:          "PatchRelay scans projects with their package manager, caches outdated and vulnerable\ndependencies, and serves a prioritized remediation queue.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initConfig(cmd.ErrOrStderr())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.closeFn()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default is ./patchrelay.yaml)")
	flags.Bool("mock", false, "Use canned package-manager output instead of running commands")
	flags.String("data-dir", "", "Directory for caches, state and history")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")

	c.v.BindPFlag("mock", flags.Lookup("mock"))
	c.v.BindPFlag("data_dir", flags.Lookup("data-dir"))
	c.v.BindPFlag("log_level", flags.Lookup("log-level"))

	rootCmd.AddCommand(
		c.newServeCmd(),
		c.newScanCmd(),
		c.newQueueCmd(),
		c.newHistoryCmd(),
		c.newInvalidateCmd(),
	)
	return rootCmd
}

// initConfig reads in config file and ENV variables if set.
func (c *cli) initConfig(stderr io.Writer) error {
	// A missing .env is normal
	_ = godotenv.Load()

	config.SetDefaults(c.v)

	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
	} else {
		c.v.AddConfigPath(".")
		c.v.SetConfigType("yaml")
		c.v.SetConfigName("patchrelay")
	}

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if c.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := config.Load(c.v)
	if err != nil {
		return err
	}

	logger, closeFn, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}
	if used := c.v.ConfigFileUsed(); used != "" {
		logger.WithField("config_file", used).Debug("Using config file")
	}

	c.cfg = cfg
	c.logger = logger
	c.closeFn = closeFn
	return nil
}

func (c *cli) app() (*application, error) {
	return newApplication(c.cfg, c.logger)
}

// signalContext is cancelled on SIGINT or SIGTERM
func (c *cli) signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func writeJSON(w io.Writer, v interface{}, pretty bool) error {
	encoder := json.NewEncoder(w)
	if pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(v)
}
