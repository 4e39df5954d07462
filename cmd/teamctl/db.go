package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yukikurage/teamflow/internal/config"
	"github.com/yukikurage/teamflow/internal/database"
	"github.com/yukikurage/teamflow/internal/hierarchy"
	"github.com/yukikurage/teamflow/internal/repository"
	"github.com/yukikurage/teamflow/internal/services"
)

// connect opens the database described by the environment and CONFIG_FILE
func connect() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := database.Connect(cfg); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := connect(); err != nil {
				return err
			}
			if err := database.Migrate(); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newOrgChartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "orgchart <org-id>",
		Short: "Print an organization's reporting tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orgID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid organization id %q", args[0])
			}
			if err := connect(); err != nil {
				return err
			}

			orgService := services.NewOrganizationService(repository.NewOrganizationRepository(database.GetDB()))
			roots, err := orgService.GetOrgChart(orgID)
			if err != nil {
				return err
			}
			if len(roots) == 0 {
				return fmt.Errorf("organization %d has no members", orgID)
			}

			printOrgChart(cmd.OutOrStdout(), roots)
			return nil
		},
	}
}

// printOrgChart writes one line per member, indented by depth
func printOrgChart(w io.Writer, roots []*hierarchy.TreeNode) {
	for _, n := range roots {
		name := n.Member.User.Username
		if name == "" {
			name = "#" + strconv.FormatUint(n.ID(), 10)
		}
		fmt.Fprintf(w, "%s%s (%s)\n", strings.Repeat("  ", n.Depth), name, n.Member.Role)
		printOrgChart(w, n.Children)
	}
}
