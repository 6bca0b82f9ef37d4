package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/maternity-risk-server/internal/app"
	"github.com/maternity-risk-server/internal/assessment"
	"github.com/maternity-risk-server/internal/setup"
)

func categoriesCmd(opts *rootOptions) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Print the risk category identifiers the engine assigns",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			resolve := e.risk.CategoryIDs
			if refresh {
				resolve = e.risk.RefreshCategories
			}
			ids, err := resolve(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), ids)
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "drop cached identifiers before resolving")
	return cmd
}

func assessmentsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assessments",
		Short: "Inspect, export and import the assessment log",
	}

	var patientRef string
	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List assessments for a patient, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, opts, func(h assessment.Store) error {
				records, err := h.ListByPatient(cmd.Context(), patientRef, limit, offset)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), records)
			})
		},
	}
	listCmd.Flags().StringVar(&patientRef, "patient-ref", "", "patient reference")
	listCmd.Flags().IntVar(&limit, "limit", assessment.DefaultListLimit, "maximum number of assessments")
	listCmd.Flags().IntVar(&offset, "offset", 0, "assessments to skip")
	_ = listCmd.MarkFlagRequired("patient-ref")

	var output string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the assessment log as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, opts, func(h assessment.Store) error {
				w := cmd.OutOrStdout()
				if output != "-" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("creating export file: %w", err)
					}
					defer f.Close()
					w = f
				}
				return h.ExportJSON(cmd.Context(), w)
			})
		},
	}
	exportCmd.Flags().StringVarP(&output, "output", "o", "-", "file to write, - for stdout")

	var input string
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Load assessments from a JSON export, skipping known identifiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, opts, func(h assessment.Store) error {
				f, err := os.Open(input)
				if err != nil {
					return fmt.Errorf("opening import file: %w", err)
				}
				defer f.Close()

				imported, skipped, err := h.ImportJSON(cmd.Context(), f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d\n", imported, skipped)
				return nil
			})
		},
	}
	importCmd.Flags().StringVarP(&input, "input", "i", "", "export file to read")
	_ = importCmd.MarkFlagRequired("input")

	cmd.AddCommand(listCmd, exportCmd, importCmd)
	return cmd
}

func withHistory(cmd *cobra.Command, opts *rootOptions, fn func(assessment.Store) error) error {
	e, err := opts.openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer e.close()

	if e.history == nil {
		return fmt.Errorf("assessment recording is disabled")
	}
	return fn(e.history)
}

func migrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	run := func(up bool) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			m, err := opts.configManager()
			if err != nil {
				return err
			}
			logger, err := opts.logger()
			if err != nil {
				return err
			}
			return app.Migrate(cmd.Context(), m, logger, up)
		}
	}

	cmd.AddCommand(
		&cobra.Command{Use: "up", Short: "Apply pending migrations", RunE: run(true)},
		&cobra.Command{Use: "down", Short: "Roll back the latest migration", RunE: run(false)},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := opts.configManager()
				if err != nil {
					return err
				}
				logger, err := opts.logger()
				if err != nil {
					return err
				}
				status, err := app.MigrationStatus(m, logger)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), status)
			},
		},
	)
	return cmd
}

func setupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the standalone MCP server with a desktop MCP client",
	}

	var opts setup.Options
	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Add the risk server to the client's mcpServers configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := setup.Register(opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s in %s\n", setup.ServerName, path)
			return nil
		},
	}
	registerCmd.Flags().StringVar(&opts.ConfigPath, "client-config", "", "client configuration file")
	registerCmd.Flags().StringVar(&opts.BinaryPath, "binary", "", "path to mcp-server-lite")
	registerCmd.Flags().StringVar(&opts.DataDir, "server-data-dir", "", "data directory passed to the server")

	var statusPath string
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the risk server is registered",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := setup.GetStatus(statusPath)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), status)
		},
	}
	statusCmd.Flags().StringVar(&statusPath, "client-config", "", "client configuration file")

	cmd.AddCommand(registerCmd, statusCmd)
	return cmd
}
