package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/strata-ingest/granule-discovery/internal/config"
	"github.com/strata-ingest/granule-discovery/internal/httpclient"
	"github.com/strata-ingest/granule-discovery/internal/secrets"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Fetch a catalog token",
	Long: `Fetch a bearer token from the catalog token endpoint.

This command exercises the same token flow the discover command uses, so
credential and endpoint wiring can be verified without running a full
discovery pass. The token is printed redacted unless --reveal is set.

When the basic flow is selected and no password is configured in the
environment, the password is read from STDIN.`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().Bool("reveal", false, "Print the full token instead of a redacted form")
}

func runToken(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	reveal, err := cmd.Flags().GetBool("reveal")
	if err != nil {
		return fmt.Errorf("failed to get reveal flag: %w", err)
	}

	settings := config.LoadSettings()

	interactive := false
	if settings.CatalogPassphrase == "" && settings.CatalogPassword == "" {
		var reader io.Reader
		if term.IsTerminal(int(os.Stdin.Fd())) {
			slog.Info("Reading catalog password from terminal...")
			passwordReader, err := readerFromTerminal()
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			reader = passwordReader
		} else {
			reader = cmd.InOrStdin()
		}

		passwordBytes, err := io.ReadAll(reader)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		settings.CatalogPassword = strings.TrimSpace(string(passwordBytes))
		interactive = true
	}

	// A password typed at the prompt is already plaintext, so the
	// decryption chain must not touch it
	var decrypter secrets.Decrypter
	if interactive {
		decrypter = &secrets.Plaintext{}
	} else {
		decrypter, err = buildDecrypter(ctx, settings)
		if err != nil {
			return fmt.Errorf("failed to build secret decrypter: %w", err)
		}
	}

	httpClient := httpclient.NewDefaultClient(settings.HTTPTimeout)
	tokens, err := buildTokenSource(ctx, settings, httpClient, decrypter)
	if err != nil {
		return fmt.Errorf("failed to build catalog token source: %w", err)
	}

	token, err := tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch catalog token: %w", err)
	}

	endpoint := settings.TokenURL
	if settings.CatalogPassphrase != "" {
		endpoint = settings.GatewayTokenURL
	}
	slog.InfoContext(ctx, "Catalog token fetched successfully", "endpoint", endpoint)

	if reveal {
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), redactToken(token))
	return nil
}

// redactToken keeps enough of the token to correlate against server logs
// without exposing the credential
func redactToken(token string) string {
	const visible = 6
	if len(token) <= visible {
		return strings.Repeat("*", len(token))
	}
	return fmt.Sprintf("%s... (%d characters)", token[:visible], len(token))
}

func readerFromTerminal() (io.Reader, error) {
	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	if len(passwordBytes) == 0 {
		return nil, fmt.Errorf("password cannot be empty")
	}

	return bytes.NewReader(passwordBytes), nil
}
