package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/storefront/internal/cart"
	"github.com/roach88/storefront/internal/catalog"
)

// CartOptions holds flags shared by the cart commands.
type CartOptions struct {
	*RootOptions
	Yes bool // accept every confirmation
}

// NewCartCommand creates the cart command and its subcommands.
func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CartOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and manage your cart",
		Long: `Show the cart with its order summary. Subcommands change the cart;
remove, clear and checkout ask for confirmation unless --yes is given.

Exit codes:
  0 - Done (or declined at the prompt)
  1 - Rejected or failed
  2 - Command error
  3 - Not logged in

Examples:
  storefront cart
  storefront cart add 4
  storefront cart remove 101 --yes
  storefront cart checkout`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCart(cmd, opts, func(ctx context.Context, e *env) (cart.Outcome, error) {
				if _, err := e.app.Gate.RequireSession(ctx); err != nil {
					return cart.Outcome{}, &cart.ActionError{Op: "view", Message: "Please login to view your cart", Err: err}
				}
				return cart.Outcome{}, nil
			}, full)
		},
	}
	cmd.PersistentFlags().BoolVarP(&opts.Yes, "yes", "y", false, "skip confirmation prompts")

	cmd.AddCommand(&cobra.Command{
		Use:   "add <book-id>",
		Short: "Add a book to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCart(cmd, opts, func(ctx context.Context, e *env) (cart.Outcome, error) {
				book, err := e.app.FindBook(ctx, catalog.ID(args[0]))
				if err != nil {
					return cart.Outcome{}, err
				}
				return e.app.Cart.Add(ctx, book)
			}, brief)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "quick-buy <book-id>",
		Short: "Add a book and show the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCart(cmd, opts, func(ctx context.Context, e *env) (cart.Outcome, error) {
				book, err := e.app.FindBook(ctx, catalog.ID(args[0]))
				if err != nil {
					return cart.Outcome{}, err
				}
				return e.app.Cart.QuickBuy(ctx, book)
			}, full)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <line-id>",
		Short: "Remove one cart line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCart(cmd, opts, func(ctx context.Context, e *env) (cart.Outcome, error) {
				return e.app.Cart.Remove(ctx, catalog.ID(args[0]))
			}, full)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCart(cmd, opts, func(ctx context.Context, e *env) (cart.Outcome, error) {
				return e.app.Cart.Clear(ctx)
			}, full)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "checkout",
		Short: "Place the order for everything in the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCart(cmd, opts, func(ctx context.Context, e *env) (cart.Outcome, error) {
				return e.app.Cart.Checkout(ctx)
			}, full)
		},
	})

	return cmd
}

// Cart output styles. Add does not refresh the mirror, so it reports the
// badge counter instead of lines.
const (
	full  = false
	brief = true
)

// withCart opens the client, loads the server cart into the mirror, runs
// action and prints the outcome followed by the cart.
func withCart(cmd *cobra.Command, opts *CartOptions, action func(context.Context, *env) (cart.Outcome, error), short bool) error {
	e, err := openEnv(cmd, opts.RootOptions, opts.Yes)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	if _, err := e.app.Cart.Fetch(ctx); err != nil {
		return e.fail(err)
	}
	out, err := action(ctx, e)
	if err != nil {
		return e.fail(err)
	}
	return e.showCart(out, short)
}

func (e *env) showCart(out cart.Outcome, short bool) error {
	c := e.app.Cart
	lines := c.Lines()
	sum := c.Summary()

	res := cartResult(lines, c.Count(), sum)
	res.Message = out.Message
	res.Declined = out.Declined

	text := renderCart(lines, sum)
	if short {
		text = fmt.Sprintf("Cart: %d item(s)", c.Count())
	}
	switch {
	case out.Declined:
		text = "Cancelled.\n" + text
	case out.Message != "":
		text = out.Message + "\n" + text
	}
	return e.out.Emit(res, text)
}
