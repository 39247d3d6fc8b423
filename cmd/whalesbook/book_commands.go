package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/melih/whalesbook/internal/core/domain"
)

func newBookCommand(ctx *commandContext) *cobra.Command {
	bookCmd := &cobra.Command{
		Use:   "book",
		Short: "Inspect and reconcile books",
	}

	bookCmd.AddCommand(newBookListCommand(ctx))
	bookCmd.AddCommand(newBookUpdateCommand(ctx))
	bookCmd.AddCommand(newBookRebuildCommand(ctx))
	bookCmd.AddCommand(newBookStateCommand(ctx))
	bookCmd.AddCommand(newBookStopCommand(ctx))
	bookCmd.AddCommand(newBookPruneCommand(ctx))

	return bookCmd
}

func newBookListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured books",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderBooks(cfg.BookList()))
			return nil
		},
	}
}

func renderBooks(books []domain.Book) string {
	rows := make([][]string, 0, len(books))
	for _, b := range books {
		refs := 0
		for _, r := range b.Repos {
			refs += len(r.Refs)
		}
		host := "-"
		if b.Traefik != nil {
			host = "*." + b.Name + "." + b.Traefik.BaseDomain
		}
		rows = append(rows, []string{
			b.Name,
			b.RegistryNamespace,
			strconv.Itoa(len(b.Repos)),
			strconv.Itoa(refs),
			b.Builder + " → " + b.Runner,
			host,
		})
	}
	return renderTable(
		[]string{"Book", "Image", "Repos", "Refs", "Contexts", "Hosts"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
	)
}

func newBookUpdateCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "update [book...]",
		Short: "Run one update cycle for the given books (all when none given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			books, errs := a.books(args)
			results := make([]domain.UpdateResult, 0, len(books))
			for _, book := range books {
				res, err := a.engine.UpdateBook(cmd.Context(), book, force)
				results = append(results, res)
				errs = multierr.Append(errs, bookError(book.Name, err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderUpdates(results))
			return errs
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Converge containers even when nothing changed")
	return cmd
}

func newBookRebuildCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild <book>...",
		Short: "Rebuild every tracked ref of the given books",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			books, errs := a.books(args)
			results := make([]domain.UpdateResult, 0, len(books))
			for _, book := range books {
				res, err := a.engine.RebuildBook(cmd.Context(), book)
				results = append(results, res)
				errs = multierr.Append(errs, bookError(book.Name, err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderUpdates(results))
			return errs
		},
	}
}

func renderUpdates(results []domain.UpdateResult) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := "updated"
		if r.Skipped {
			status = "skipped"
		}
		rows = append(rows, []string{
			r.Book,
			status,
			strconv.Itoa(len(r.Diff.RefsToUpdate)),
			strconv.Itoa(r.Built),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.Started),
			strconv.Itoa(r.Stopped),
		})
	}
	return renderTable(
		[]string{"Book", "Status", "Changed", "Built", "Failed", "Started", "Stopped"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	)
}

func newBookStateCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "state <book>",
		Short: "Show the observed state of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			book, err := a.cfg.Book(args[0])
			if err != nil {
				return err
			}
			state := a.engine.BookState(cmd.Context(), book)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(state)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderState(state))
			for _, e := range state.Errors {
				fmt.Fprintln(cmd.ErrOrStderr(), "error:", e)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the state as JSON")
	return cmd
}

func renderState(state domain.BookState) string {
	var rows [][]string
	for _, repo := range domain.SortedKeys(state.Repos) {
		refs := state.Repos[repo]
		for _, ref := range domain.SortedKeys(refs) {
			s := refs[ref]
			commit := s.Commit
			if len(commit) > 12 {
				commit = commit[:12]
			}
			names := make([]string, 0, len(s.Containers))
			for _, c := range s.Containers {
				names = append(names, c.Name)
			}
			rows = append(rows, []string{
				repo,
				ref,
				s.Slug,
				commit,
				yesNo(s.SlugPublished),
				yesNo(s.CommitPublished),
				strings.Join(names, ", "),
			})
		}
	}
	return renderTable(
		[]string{"Repo", "Ref", "Slug", "Commit", "Slug tag", "Commit tag", "Containers"},
		rows,
		nil,
	)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func newBookStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <book>...",
		Short: "Stop and remove every container of the given books",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			books, errs := a.books(args)
			for _, book := range books {
				n, err := a.engine.StopBookContainers(cmd.Context(), book)
				fmt.Fprintf(cmd.OutOrStdout(), "%s: stopped %d containers\n", book.Name, n)
				errs = multierr.Append(errs, bookError(book.Name, err))
			}
			return errs
		},
	}
}

func newBookPruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune [book...]",
		Short: "Delete stale registry tags and local images",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			books, errs := a.books(args)
			rows := make([][]string, 0, len(books))
			for _, book := range books {
				report, err := a.engine.Prune(cmd.Context(), book)
				errs = multierr.Append(errs, bookError(book.Name, err))
				rows = append(rows, []string{
					book.Name,
					strconv.Itoa(len(report.DeletedTags)),
					strconv.Itoa(len(report.RemovedImages)),
					strconv.Itoa(report.Failures),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Book", "Deleted tags", "Removed images", "Failures"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
			))
			return errs
		},
	}
}

func bookError(book string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrReconcileInProgress) {
		return fmt.Errorf("%s: %w (another update is running)", book, err)
	}
	return fmt.Errorf("%s: %w", book, err)
}
