package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imgvault/imgvault/internal/auth"
	"github.com/imgvault/imgvault/internal/model"
	"github.com/imgvault/imgvault/internal/service"
	"github.com/imgvault/imgvault/internal/store"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"apikey"},
		Short:   "Manage API keys",
		Long:    "Create, list, and revoke API keys used to authenticate against the imgvault API.",
	}

	cmd.AddCommand(newKeyCreateCmd())
	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyRevokeCmd())

	return cmd
}

// ---------- key create ----------

func newKeyCreateCmd() *cobra.Command {
	var (
		role   string
		name   string
		teamID string
		userID string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Generate a new API key bound to a role and owner. The raw key is shown once and cannot be retrieved again.",
		Example: `  imgvault key create --role admin --team <team-id> --name "ops"
  imgvault key create --role user --team <team-id> --user <user-id>`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyCreate(role, name, teamID, userID)
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Role for the key: admin or user (required)")
	cmd.Flags().StringVar(&name, "name", "", "Human-readable name for the key")
	cmd.Flags().StringVar(&teamID, "team", "", "Team the key belongs to (required)")
	cmd.Flags().StringVar(&userID, "user", "", "User the key acts as (required for user-role keys)")
	cmd.MarkFlagRequired("role")
	cmd.MarkFlagRequired("team")

	return cmd
}

func runKeyCreate(roleName, name, teamID, userID string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	role := model.Role(roleName)
	switch role {
	case model.RoleAdmin:
	case model.RoleUser:
		if userID == "" {
			return fmt.Errorf("--user is required for user-role keys")
		}
	default:
		return fmt.Errorf("role must be admin or user, got %q", roleName)
	}

	if _, err := st.GetTeam(ctx, teamID); err != nil {
		return fmt.Errorf("team %q: %w", teamID, err)
	}
	if userID != "" {
		user, err := st.GetUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("user %q: %w", userID, err)
		}
		if user.TeamID != teamID {
			return fmt.Errorf("user %q belongs to team %q, not %q", userID, user.TeamID, teamID)
		}
	}

	authSvc, err := newCLIAuthService(st)
	if err != nil {
		return err
	}
	cred, rawKey, err := authSvc.MintCredential(ctx, name, role, teamID, userID)
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}

	fmt.Println("API Key created:")
	fmt.Println()
	fmt.Printf("  Key:  %s\n", rawKey)
	fmt.Printf("  Role: %s\n", cred.Role)
	fmt.Printf("  Team: %s\n", cred.OwnerTeamID)
	if cred.OwnerUserID != "" {
		fmt.Printf("  User: %s\n", cred.OwnerUserID)
	}
	if cred.Name != "" {
		fmt.Printf("  Name: %s\n", cred.Name)
	}
	fmt.Println()
	fmt.Println("  Save this key now - it cannot be retrieved again.")
	return nil
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runKeyList(jsonOutput bool) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	keys, err := st.ListCredentials(context.Background())
	if err != nil {
		return fmt.Errorf("list api keys: %w", err)
	}

	type keyRow struct {
		Prefix string `json:"prefix"`
		Role   string `json:"role"`
		Name   string `json:"name"`
		Team   string `json:"team_id"`
		User   string `json:"user_id"`
		Active bool   `json:"active"`
	}

	rows := make([]keyRow, len(keys))
	for i, k := range keys {
		rows[i] = keyRow{
			Prefix: k.Prefix,
			Role:   string(k.Role),
			Name:   k.Name,
			Team:   k.OwnerTeamID,
			User:   k.OwnerUserID,
			Active: !k.Revoked,
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No API keys found. Use 'imgvault key create' to create one.")
		return nil
	}

	fmt.Printf("%-14s %-8s %-20s %-38s %-8s\n", "PREFIX", "ROLE", "NAME", "TEAM", "ACTIVE")
	fmt.Printf("%-14s %-8s %-20s %-38s %-8s\n", "------", "----", "----", "----", "------")
	for _, k := range rows {
		active := "yes"
		if !k.Active {
			active = "no"
		}
		fmt.Printf("%-14s %-8s %-20s %-38s %-8s\n", k.Prefix, k.Role, k.Name, k.Team, active)
	}

	return nil
}

// ---------- key revoke ----------

func newKeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <prefix>",
		Short: "Revoke an API key by its prefix",
		Long:  "Deactivate all active API keys with the given prefix, preventing any further authenticated requests.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyRevoke(args[0])
		},
	}

	return cmd
}

func runKeyRevoke(prefix string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := st.RevokeCredentialByPrefix(context.Background(), prefix); err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}

	fmt.Printf("Revoked API key(s) with prefix %q\n", prefix)
	return nil
}

// newCLIAuthService builds an AuthService for local key management. Content
// URL signing is not used from the CLI, so any non-empty secret works.
func newCLIAuthService(st *store.Store) (*service.AuthService, error) {
	svc, err := service.NewAuthService(st, auth.NewHasher(0), "imgvault-cli", nil)
	if err != nil {
		return nil, fmt.Errorf("init auth service: %w", err)
	}
	return svc, nil
}
