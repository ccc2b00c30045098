package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/storefront/internal/session"
)

// AuthOptions holds flags for login and register.
type AuthOptions struct {
	*RootOptions
	Password string
}

// AuthResult is the JSON payload of login, register and whoami.
type AuthResult struct {
	Message  string `json:"message,omitempty"`
	Username string `json:"username,omitempty"`
	UserID   string `json:"user_id,omitempty"`
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuthOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and remember the session",
		Long: `Log in to the bookstore. The session is stored locally and used by
every cart command until you log in again.

Without --password the password is read from the first line of stdin.

Exit codes:
  0 - Logged in
  1 - Rejected credentials or service failure
  2 - Command error (bad config, unreadable session store)

Examples:
  storefront login alice --password secret
  echo secret | storefront login alice`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.Password, "password", "p", "", "password (read from stdin when omitted)")
	return cmd
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuthOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account",
		Long: `Create an account. Registration does not log you in; run
"storefront login" afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd, opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.Password, "password", "p", "", "password (read from stdin when omitted)")
	return cmd
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd, rootOpts, false)
			if err != nil {
				return err
			}
			defer e.Close()

			sess, err := e.app.Gate.RequireSession(cmd.Context())
			if err != nil {
				return e.out.Fail(ExitNotAuthenticated, ErrCodeNotAuthenticated, "Not logged in", nil)
			}
			return e.out.Emit(AuthResult{Username: sess.Username, UserID: sess.UserID.String()},
				fmt.Sprintf("%s (user %s)", sess.Username, sess.UserID))
		},
	}
}

func runLogin(cmd *cobra.Command, opts *AuthOptions, username string) error {
	e, err := openEnv(cmd, opts.RootOptions, false)
	if err != nil {
		return err
	}
	defer e.Close()

	password := e.password(opts.Password)
	sess, err := e.app.Auth.Login(cmd.Context(), username, password)
	if err != nil {
		return e.failAuth(err, false)
	}
	return e.out.Emit(AuthResult{
		Message:  session.MessageLoginOK,
		Username: sess.Username,
		UserID:   sess.UserID.String(),
	}, session.MessageLoginOK)
}

func runRegister(cmd *cobra.Command, opts *AuthOptions, username string) error {
	e, err := openEnv(cmd, opts.RootOptions, false)
	if err != nil {
		return err
	}
	defer e.Close()

	password := e.password(opts.Password)
	if _, err := e.app.Auth.Register(cmd.Context(), username, password); err != nil {
		return e.failAuth(err, true)
	}
	return e.out.Emit(AuthResult{Message: session.MessageRegisterOK, Username: username}, session.MessageRegisterOK)
}

// password returns flag, or the next stdin line when flag is empty. An
// unreadable stdin yields "", which the authenticator rejects as blank.
func (e *env) password(flag string) string {
	if flag != "" {
		return flag
	}
	fmt.Fprint(e.cmd.ErrOrStderr(), "Password: ")
	line, _ := e.readLine()
	return line
}
