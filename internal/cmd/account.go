package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/dishdex/internal/session"
)

var (
	accountEmail         string
	accountPassword      string
	accountPasswordStdin bool
)

// passwordInput is where --password-stdin reads from.
var passwordInput io.Reader = os.Stdin

var loginCmd = &cobra.Command{
	Use:     "login",
	Short:   "Sign in with a registered email",
	GroupID: groupAccount,
	Long: `Sign in with a registered email.

The session is stored locally and used by browse, list, show and recommend.

Examples:
  dishdex login --email cook@example.com --password-stdin < pw.txt
  dishdex login --email cook@example.com --password secret`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var registerCmd = &cobra.Command{
	Use:     "register",
	Short:   "Create an account",
	GroupID: groupAccount,
	Long: `Create an account. Registration does not sign you in; run
'dishdex login' afterwards.`,
	Args: cobra.NoArgs,
	RunE: runRegister,
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	Short:   "Sign out",
	GroupID: groupAccount,
	Args:    cobra.NoArgs,
	RunE:    runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Short:   "Show the signed-in account",
	GroupID: groupAccount,
	Args:    cobra.NoArgs,
	RunE:    runWhoami,
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVar(&accountEmail, "email", "", "account email")
		c.Flags().StringVar(&accountPassword, "password", "", "account password (visible in process lists, prefer --password-stdin)")
		c.Flags().BoolVar(&accountPasswordStdin, "password-stdin", false, "read the password from stdin")
		_ = c.MarkFlagRequired("email")
		c.MarkFlagsMutuallyExclusive("password", "password-stdin")
	}
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
}

// readPassword returns the password from the flags.
func readPassword() (string, error) {
	if !accountPasswordStdin {
		return accountPassword, nil
	}
	line, err := bufio.NewReader(passwordInput).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// accountError maps account failures to the messages the browser shows.
func accountError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(session.Message(err))
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	password, err := readPassword()
	if err != nil {
		return err
	}

	e, err := openEnv(ctx, false)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.account.Login(ctx, accountEmail, password); err != nil {
		return accountError(err)
	}
	fmt.Printf("%sSigned in%s as %s\n", colorGreen, colorReset, e.account.Current().Email)
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	password, err := readPassword()
	if err != nil {
		return err
	}

	e, err := openEnv(ctx, false)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.account.Register(ctx, accountEmail, password); err != nil {
		return accountError(err)
	}
	fmt.Printf("%sRegistered%s %s. Run 'dishdex login' to sign in.\n", colorGreen, colorReset, strings.TrimSpace(accountEmail))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	e, err := openEnv(ctx, false)
	if err != nil {
		return err
	}
	defer e.Close()

	if !e.account.Current().LoggedIn {
		fmt.Printf("%sNot signed in%s\n", colorDim, colorReset)
		return nil
	}
	if err := e.account.Logout(ctx); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	fmt.Println("Signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	e, err := openEnv(context.Background(), false)
	if err != nil {
		return err
	}
	defer e.Close()

	sess := e.account.Current()
	if !sess.LoggedIn {
		fmt.Printf("%sNot signed in%s\n", colorDim, colorReset)
		return nil
	}
	fmt.Println(sess.Email)
	return nil
}
