package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/imgvault/imgvault/internal/auth"
)

func newBootstrapCmd() *cobra.Command {
	var generate bool

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Provision the root API key",
		Long: `Provision the root credential in the local store. The key can be supplied
interactively (hidden prompt) or generated. Only its salted hash is stored;
re-running with the same key is a no-op.`,
		Example: `  imgvault bootstrap --generate
  imgvault bootstrap`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBootstrap(generate)
		},
	}

	cmd.Flags().BoolVar(&generate, "generate", false, "Generate a fresh root key instead of prompting for one")

	return cmd
}

func runBootstrap(generate bool) error {
	var rawKey string

	if generate {
		key, err := auth.GenerateKey()
		if err != nil {
			return fmt.Errorf("generate root key: %w", err)
		}
		rawKey = key
	} else {
		fmt.Print("Root API key: ")
		keyBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
		fmt.Println()

		fmt.Print("Confirm root API key: ")
		confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		fmt.Println()

		if string(keyBytes) != string(confirmBytes) {
			return fmt.Errorf("keys do not match")
		}
		rawKey = strings.TrimSpace(string(keyBytes))
	}

	if len(rawKey) < 16 {
		return fmt.Errorf("root key must be at least 16 characters")
	}

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	authSvc, err := newCLIAuthService(st)
	if err != nil {
		return err
	}
	if err := authSvc.EnsureRootKey(context.Background(), rawKey); err != nil {
		return fmt.Errorf("provision root key: %w", err)
	}

	fmt.Println("Root credential provisioned.")
	if generate {
		fmt.Println()
		fmt.Printf("  Key: %s\n", rawKey)
		fmt.Println()
		fmt.Println("  Save this key now - it cannot be retrieved again.")
	}
	return nil
}
