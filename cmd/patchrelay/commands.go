// ABOUTME: Subcommands: serve, scan, queue, history and invalidate.
// ABOUTME: One-shot commands print JSON to stdout so they compose with other tools.

package main

import (
	"fmt"

	"github.com/jfeddern/PatchRelay/internal/types"
	"github.com/spf13/cobra"
)

func (c *cli) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with periodic background refresh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			port, _ := cmd.Flags().GetInt("port")
			if cmd.Flags().Changed("port") {
				c.cfg.Port = port
			}

			exporter, err := NewExporter(c.cfg, c.logger)
			if err != nil {
				return err
			}

			ctx, cancel := c.signalContext(cmd.Context())
			defer cancel()
			return exporter.Start(ctx)
		},
	}
	cmd.Flags().Int("port", 9090, "Port to serve the API and metrics on")
	return cmd
}

func (c *cli) newScanCmd() *cobra.Command {
	var force bool
	var projectID string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan projects for outdated and vulnerable dependencies",
		Long:  "Without --project every project is rescanned one at a time. With --project only that\nproject is scanned, reusing a live cache unless --force is given.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.app()
			if err != nil {
				return err
			}
			ctx, cancel := c.signalContext(cmd.Context())
			defer cancel()

			if projectID == "" {
				result, err := app.engine.ScanAll(ctx, app.engine.Projects())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), result, true)
			}

			project, ok := c.cfg.Project(projectID)
			if !ok {
				return fmt.Errorf("unknown project %q", projectID)
			}
			entry, err := app.engine.ScanProject(ctx, project, force)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), entry, true)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Ignore a live cache for --project")
	cmd.Flags().StringVar(&projectID, "project", "", "Scan only this project id")
	return cmd
}

func (c *cli) newQueueCmd() *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Print the prioritized remediation queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.app()
			if err != nil {
				return err
			}
			ctx, cancel := c.signalContext(cmd.Context())
			defer cancel()

			result := app.engine.BuildQueue(ctx, app.engine.Projects())
			return writeJSON(cmd.OutOrStdout(), result, pretty)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent JSON output")
	return cmd
}

func (c *cli) newHistoryCmd() *cobra.Command {
	var limit int
	var projectID string
	var commitMessage bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print applied updates, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.app()
			if err != nil {
				return err
			}

			if commitMessage {
				msg := app.engine.CommitMessage(projectID)
				if msg != "" {
					fmt.Fprintln(cmd.OutOrStdout(), msg)
				}
				return nil
			}

			entries := app.engine.ReadPatchHistory(projectID, limit)
			return writeJSON(cmd.OutOrStdout(), struct {
				History []types.PatchHistoryEntry `json:"history"`
			}{entries}, true)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to print (0 for all)")
	cmd.Flags().StringVar(&projectID, "project", "", "Only entries for this project id")
	cmd.Flags().BoolVar(&commitMessage, "commit-message", false, "Print a commit message summarizing successful updates")
	return cmd
}

func (c *cli) newInvalidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate <project-id>",
		Short: "Drop a project's cache so the next read rescans it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.app()
			if err != nil {
				return err
			}
			if _, ok := c.cfg.Project(args[0]); !ok {
				c.logger.WithField("project", args[0]).Warn("Invalidating cache for an unconfigured project")
			}
			if err := app.engine.InvalidateProjectCache(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "invalidated %s\n", args[0])
			return nil
		},
	}
}
