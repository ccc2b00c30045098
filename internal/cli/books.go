package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/storefront/internal/catalog"
	"github.com/roach88/storefront/internal/query"
)

// BooksOptions holds flags for the books command.
type BooksOptions struct {
	*RootOptions
	Search string
	Genre  string
	Sort   string
}

// NewBooksCommand creates the books command.
func NewBooksCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BooksOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "books",
		Short: "List, search or filter the catalog",
		Long: `List the catalog. --genre filters on the server and --search runs a
title/author search; when both are given the search is applied last and
replaces the filtered set, exactly as typing into the search box would.

Sort keys: ` + sortKeyList() + `

Examples:
  storefront books
  storefront books --search dune
  storefront books --genre Classic --sort price-low
  storefront books --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBooks(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Search, "search", "", "search term")
	cmd.Flags().StringVar(&opts.Genre, "genre", "", "genre filter (\"all\" for none)")
	cmd.Flags().StringVar(&opts.Sort, "sort", string(catalog.DefaultSortKey), "sort key")

	return cmd
}

// NewGenresCommand creates the genres command.
func NewGenresCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "genres",
		Short: "List the genres present in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd, rootOpts, false)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			if err := settle(ctx, e.app.Query, e.app.Query.LoadCatalog); err != nil {
				return e.fail(err)
			}
			v, err := e.app.Query.View(ctx)
			if err != nil {
				return e.fail(err)
			}
			if errors.Is(v.Err, query.ErrCatalogUnavailable) {
				return e.out.Fail(ExitFailure, ErrCodeRemote, v.Message(), nil)
			}
			return e.out.Emit(v.Genres, strings.Join(v.Genres, "\n"))
		},
	}
}

func runBooks(cmd *cobra.Command, opts *BooksOptions) error {
	key, err := catalog.ParseSortKey(opts.Sort)
	if err != nil {
		return newFormatter(cmd, opts.RootOptions).Fail(ExitCommandError, ErrCodeValidation, err.Error(), nil)
	}

	e, err := openEnv(cmd, opts.RootOptions, false)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	q := e.app.Query
	if err := q.SetSortKey(ctx, key); err != nil {
		return e.fail(err)
	}
	if err := settle(ctx, q, q.LoadCatalog); err != nil {
		return e.fail(err)
	}
	if opts.Genre != "" {
		err := settle(ctx, q, func(ctx context.Context) error {
			return q.SetGenreFilter(ctx, opts.Genre)
		})
		if err != nil {
			return e.fail(err)
		}
	}
	if strings.TrimSpace(opts.Search) != "" {
		err := settle(ctx, q, func(ctx context.Context) error {
			if err := q.SetSearchTerm(ctx, opts.Search); err != nil {
				return err
			}
			return q.SubmitSearch(ctx)
		})
		if err != nil {
			return e.fail(err)
		}
	}

	v, err := q.View(ctx)
	if err != nil {
		return e.fail(err)
	}
	if v.Err != nil {
		e.app.Logger.Debug("query failed", "error", v.Err)
		return e.out.Fail(ExitFailure, ErrCodeRemote, v.Message(), errorDetails(v.Err))
	}
	return e.out.Emit(booksResult(v), renderBooks(v))
}

// settle applies one query event and waits until the engine is idle.
func settle(ctx context.Context, q *query.Engine, event func(context.Context) error) error {
	if err := event(ctx); err != nil {
		return err
	}
	return q.Idle(ctx)
}

func sortKeyList() string {
	keys := catalog.SortKeys()
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
