package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/storefront/internal/api"
	"github.com/roach88/storefront/internal/app"
	"github.com/roach88/storefront/internal/cart"
	"github.com/roach88/storefront/internal/config"
	"github.com/roach88/storefront/internal/session"
)

// env is what a storefront command needs for one execution.
type env struct {
	cmd *cobra.Command
	out *OutputFormatter
	in  *bufio.Reader
	app *app.App
}

// openEnv loads configuration and opens the client. With assumeYes every
// cart confirmation is accepted; otherwise the user is asked on stdin.
func openEnv(cmd *cobra.Command, opts *RootOptions, assumeYes bool) (*env, error) {
	out := newFormatter(cmd, opts)

	cfg, err := config.Load(opts.ConfigPath, opts.EnvFile)
	if err != nil {
		return nil, out.Fail(ExitCommandError, ErrCodeConfig, "failed to load config: "+err.Error(), nil)
	}
	logger := cfg.Logging.NewLogger(cmd.ErrOrStderr(), opts.Verbose)

	e := &env{
		cmd: cmd,
		out: out,
		in:  bufio.NewReader(cmd.InOrStdin()),
	}
	var confirmer cart.Confirmer = cart.ConfirmFunc(e.prompt)
	if assumeYes {
		confirmer = cart.AlwaysConfirm
	}

	a, err := app.Open(cfg, logger, app.WithConfirmer(confirmer))
	if err != nil {
		return nil, out.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	e.app = a
	out.VerboseLog("api: %s, session: %s", cfg.API.BaseURL, cfg.Session.Path)
	return e, nil
}

func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func (e *env) Close() {
	if err := e.app.Close(); err != nil {
		e.app.Logger.Warn("close", "error", err)
	}
}

// readLine returns the next input line without its newline. io.EOF is
// returned only when nothing was read.
func (e *env) readLine() (string, error) {
	line, err := e.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// prompt asks a yes/no question on stderr. Anything but y or yes declines.
func (e *env) prompt(_ context.Context, question string) (bool, error) {
	fmt.Fprintf(e.cmd.ErrOrStderr(), "%s [y/N]: ", question)
	answer, err := e.readLine()
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// fail maps an engine error to an exit code and a user-facing message.
func (e *env) fail(err error) error {
	exit, code := classify(err)
	return e.out.Fail(exit, code, cart.UserMessage(err), errorDetails(err))
}

// failAuth is fail for login and registration, whose messages differ.
func (e *env) failAuth(err error, register bool) error {
	exit, code := classify(err)
	return e.out.Fail(exit, code, session.UserMessage(err, register), errorDetails(err))
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		return ExitNotAuthenticated, ErrCodeNotAuthenticated
	case errors.Is(err, cart.ErrInFlight):
		return ExitFailure, ErrCodeInFlight
	case errors.Is(err, session.ErrBlankCredentials),
		errors.Is(err, cart.ErrMissingBookID),
		errors.Is(err, cart.ErrEmptyCart):
		return ExitFailure, ErrCodeValidation
	case errors.Is(err, app.ErrBookNotFound):
		return ExitFailure, ErrCodeNotFound
	case api.KindOf(err) != "":
		return ExitFailure, ErrCodeRemote
	default:
		return ExitFailure, ErrCodeGeneric
	}
}

func errorDetails(err error) any {
	if k := api.KindOf(err); k != "" {
		return map[string]string{"kind": string(k), "cause": err.Error()}
	}
	return map[string]string{"cause": err.Error()}
}
