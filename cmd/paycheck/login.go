package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rohankatakam/paycheck/internal/config"
)

var (
	loginHost  string
	loginBasic bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store tracker credentials in the OS keychain",
	Long: `Store an API token (default) or a basic-auth password for the tracker in
the OS keychain. Credentials are kept per tracker host.

Environment variables TRACKER_TOKEN and TRACKER_PASSWORD still take
precedence over the keychain; the config file comes last.

Examples:
  paycheck login
  paycheck login --basic --host jira.example.com
  echo "$TOKEN" | paycheck login`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginHost, "host", "", "tracker host (default: tracker.hostname from config)")
	loginCmd.Flags().BoolVar(&loginBasic, "basic", false, "store a basic-auth password instead of an API token")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	host, err := credentialHost()
	if err != nil {
		return err
	}

	km := config.NewKeyringManager()
	if !km.IsAvailable() {
		return fmt.Errorf("OS keychain is not available; set TRACKER_TOKEN or TRACKER_PASSWORD instead")
	}

	what := "API token"
	if loginBasic {
		what = "password"
	}
	secret, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), fmt.Sprintf("%s for %s: ", what, host))
	if err != nil {
		return err
	}

	if loginBasic {
		err = km.SetTrackerPassword(host, secret)
	} else {
		err = km.SetTrackerToken(host, secret)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s for %s saved to keychain (%s)\n", what, host, config.MaskSecret(secret))
	return nil
}

func credentialHost() (string, error) {
	host := loginHost
	if host == "" {
		host = cfg.Tracker.Hostname
	}
	if host == "" {
		return "", fmt.Errorf("no tracker host: pass --host or set tracker.hostname")
	}
	return host, nil
}

// readSecret reads without echo from a terminal, or one line from a pipe
func readSecret(in io.Reader, prompt io.Writer, label string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read secret: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	secret := strings.TrimSpace(line)
	if secret == "" {
		return "", fmt.Errorf("empty secret")
	}
	return secret, nil
}
