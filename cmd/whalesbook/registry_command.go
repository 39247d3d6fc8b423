package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/melih/whalesbook/internal/adapters/registry"
)

func newRegistryCommand(ctx *commandContext) *cobra.Command {
	registryCmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect the configured registry",
	}
	registryCmd.AddCommand(&cobra.Command{
		Use:   "repos",
		Short: "List registry repositories and their tag counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := registry.NewClient(cfg.Registry)
			if err != nil {
				return err
			}
			repos, err := client.Repositories(cmd.Context())
			if err != nil {
				return err
			}
			sort.Strings(repos)

			rows := make([][]string, 0, len(repos))
			for _, repo := range repos {
				tags, err := client.Tags(cmd.Context(), repo)
				count := strconv.Itoa(len(tags))
				if err != nil {
					count = "error: " + err.Error()
				}
				rows = append(rows, []string{repo, count})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Repository", "Tags"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	})
	return registryCmd
}
