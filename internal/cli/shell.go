package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/storefront/internal/cart"
	"github.com/roach88/storefront/internal/catalog"
	"github.com/roach88/storefront/internal/session"
)

const shellHelp = `Commands:
  search <text>      type into the search box (blank text clears it)
  submit             run the pending search now
  genre <name>       filter by genre ("all" clears the filter)
  sort <key>         sort results (title, author, price-low, price-high, rating, year)
  reset              clear search, filter and sort
  show               wait for results and print them
  genres             list genres
  add <book-id>      add a book to the cart
  buy <book-id>      add a book and show the cart
  cart               show the cart
  remove <line-id>   remove a cart line
  clear              empty the cart
  checkout           place the order
  login <user> <pw>  log in
  whoami             show the logged-in user
  help               show this help
  quit               leave the shell`

// NewShellCommand creates the interactive shell command.
func NewShellCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive browse and cart session",
		Long: `Start an interactive session. Every input line is one event; search,
genre, sort and reset update the view without waiting, so several quick
searches collapse into one request. "show" waits for the view to settle
and prints it.

Confirmations are asked inline and read from the next input line.

Example:
  printf 'search du\nsearch dune\nshow\n' | storefront shell`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd, rootOpts, false)
			if err != nil {
				return err
			}
			defer e.Close()
			return e.shell(cmd.Context())
		},
	}
}

type lineResult struct {
	line string
	err  error
}

func (e *env) shell(ctx context.Context) error {
	w := e.cmd.OutOrStdout()
	text := e.out.Format == "text"

	if err := e.app.Query.LoadCatalog(ctx); err != nil {
		return e.fail(err)
	}
	if _, err := e.app.Cart.Fetch(ctx); err != nil {
		e.report(err)
	}
	if text {
		fmt.Fprintln(w, `Type "help" for commands.`)
	}

	lines := make(chan lineResult, 1)
	for {
		if text {
			fmt.Fprint(w, "storefront> ")
		}
		// One read per prompt; confirmations read synchronously in between.
		go func() {
			l, err := e.readLine()
			lines <- lineResult{l, err}
		}()

		var in lineResult
		select {
		case <-ctx.Done():
			return nil
		case in = <-lines:
		}
		if errors.Is(in.err, io.EOF) {
			return nil
		}
		if in.err != nil {
			return WrapExitError(ExitCommandError, "failed to read input", in.err)
		}

		quit, err := e.dispatch(ctx, strings.TrimSpace(in.line))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			e.report(err)
		}
		if quit {
			return nil
		}
	}
}

// dispatch runs one shell line.
func (e *env) dispatch(ctx context.Context, line string) (quit bool, err error) {
	verb, arg, _ := strings.Cut(line, " ")
	verb = strings.ToLower(verb)
	arg = strings.TrimSpace(arg)
	q := e.app.Query

	switch verb {
	case "":
		return false, nil
	case "quit", "exit":
		return true, nil
	case "help":
		return false, e.out.Emit(shellHelp, shellHelp)
	case "search":
		return false, q.SetSearchTerm(ctx, arg)
	case "submit":
		return false, q.SubmitSearch(ctx)
	case "genre":
		return false, q.SetGenreFilter(ctx, arg)
	case "sort":
		key, err := catalog.ParseSortKey(arg)
		if err != nil {
			return false, err
		}
		return false, q.SetSortKey(ctx, key)
	case "reset":
		return false, q.Reset(ctx)
	case "show", "books":
		if err := q.Idle(ctx); err != nil {
			return false, err
		}
		v, err := q.View(ctx)
		if err != nil {
			return false, err
		}
		return false, e.out.Emit(booksResult(v), renderBooks(v))
	case "genres":
		genres, err := q.Genres(ctx)
		if err != nil {
			return false, err
		}
		return false, e.out.Emit(genres, strings.Join(genres, "\n"))
	case "add", "buy":
		book, err := e.app.FindBook(ctx, catalog.ID(arg))
		if err != nil {
			return false, err
		}
		if verb == "buy" {
			out, err := e.app.Cart.QuickBuy(ctx, book)
			if err != nil {
				return false, err
			}
			return false, e.showCart(out, full)
		}
		out, err := e.app.Cart.Add(ctx, book)
		if err != nil {
			return false, err
		}
		return false, e.showCart(out, brief)
	case "cart":
		if _, err := e.app.Cart.Fetch(ctx); err != nil {
			return false, err
		}
		return false, e.showCart(cart.Outcome{}, full)
	case "remove":
		out, err := e.app.Cart.Remove(ctx, catalog.ID(arg))
		if err != nil {
			return false, err
		}
		return false, e.showCart(out, full)
	case "clear":
		out, err := e.app.Cart.Clear(ctx)
		if err != nil {
			return false, err
		}
		return false, e.showCart(out, full)
	case "checkout":
		out, err := e.app.Cart.Checkout(ctx)
		if err != nil {
			return false, err
		}
		return false, e.showCart(out, full)
	case "login":
		user, password, _ := strings.Cut(arg, " ")
		if _, err := e.app.Auth.Login(ctx, user, strings.TrimSpace(password)); err != nil {
			return false, e.out.Error(ErrCodeNotAuthenticated, session.UserMessage(err, false), nil)
		}
		if _, err := e.app.Cart.Fetch(ctx); err != nil {
			e.report(err)
		}
		return false, e.out.Emit(AuthResult{Message: session.MessageLoginOK, Username: user}, session.MessageLoginOK)
	case "whoami":
		sess, ok := e.app.Gate.Current(ctx)
		if !ok {
			return false, e.out.Emit(AuthResult{}, "Not logged in")
		}
		return false, e.out.Emit(AuthResult{Username: sess.Username, UserID: sess.UserID.String()},
			fmt.Sprintf("%s (user %s)", sess.Username, sess.UserID))
	default:
		return false, fmt.Errorf("unknown command %q (try \"help\")", verb)
	}
}

// report prints err and keeps the shell running.
func (e *env) report(err error) {
	_, code := classify(err)
	if werr := e.out.Error(code, cart.UserMessage(err), nil); werr != nil {
		e.app.Logger.Warn("write error", "error", werr)
	}
}
