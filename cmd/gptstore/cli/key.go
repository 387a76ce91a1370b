package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gptstore/gptstore/internal/auth"
	"github.com/gptstore/gptstore/internal/model"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"apikey"},
		Short:   "Manage API keys",
		Long:    "Create, list, and revoke the API keys GPTs use to authenticate.",
	}

	cmd.AddCommand(newKeyCreateCmd())
	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyRevokeCmd())

	return cmd
}

// ---------- key create ----------

func newKeyCreateCmd() *cobra.Command {
	var (
		gptID   string
		label   string
		expires time.Duration
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key for a GPT",
		Long:  "Generate an API key bound to a GPT. The raw key is shown once and cannot be retrieved again.",
		Example: `  gptstore key create --gpt gpt-recipes --label "production"
  gptstore key create --gpt gpt-notes --expires 720h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyCreate(gptID, label, expires)
		},
	}

	cmd.Flags().StringVar(&gptID, "gpt", "", "GPT to bind the key to (required)")
	cmd.Flags().StringVar(&label, "label", "", "Human-readable label for the key")
	cmd.Flags().DurationVar(&expires, "expires", 0, "Key lifetime (0 means no expiry)")
	cmd.MarkFlagRequired("gpt")

	return cmd
}

func runKeyCreate(gptID, label string, expires time.Duration) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()

	if _, err := st.GetTenant(ctx, gptID); err != nil {
		return fmt.Errorf("gpt %q not found", gptID)
	}

	raw, prefix := auth.GenerateKey()

	key := &model.APIKey{
		KeyHash:   auth.HashKey(raw),
		KeyPrefix: prefix,
		TenantID:  gptID,
		Label:     label,
		IsActive:  true,
	}
	if expires > 0 {
		at := time.Now().UTC().Add(expires)
		key.ExpiresAt = &at
	}

	if err := st.CreateAPIKey(ctx, key); err != nil {
		return fmt.Errorf("create api key: %w", err)
	}

	fmt.Println("API Key created:")
	fmt.Println()
	fmt.Printf("  Key:  %s\n", raw)
	fmt.Printf("  GPT:  %s\n", gptID)
	if label != "" {
		fmt.Printf("  Label: %s\n", label)
	}
	if key.ExpiresAt != nil {
		fmt.Printf("  Expires: %s\n", key.ExpiresAt.Format(time.RFC3339))
	}
	fmt.Println()
	fmt.Println("  Save this key now - it cannot be retrieved again.")
	return nil
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	var (
		gptID      string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List a GPT's API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyList(gptID, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&gptID, "gpt", "", "GPT whose keys to list (required)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.MarkFlagRequired("gpt")

	return cmd
}

func runKeyList(gptID string, jsonOutput bool) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	keys, err := st.ListAPIKeys(context.Background(), gptID)
	if err != nil {
		return fmt.Errorf("list api keys: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(keys)
	}

	if len(keys) == 0 {
		fmt.Printf("No API keys for %s. Use 'gptstore key create --gpt %s' to create one.\n", gptID, gptID)
		return nil
	}

	fmt.Printf("%-16s %-24s %-8s %-20s\n", "PREFIX", "LABEL", "ACTIVE", "LAST USED")
	fmt.Printf("%-16s %-24s %-8s %-20s\n", "------", "-----", "------", "---------")
	for _, k := range keys {
		active := "yes"
		if !k.IsActive {
			active = "no"
		}
		lastUsed := "never"
		if k.LastUsed != nil {
			lastUsed = k.LastUsed.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%-16s %-24s %-8s %-20s\n", k.KeyPrefix, k.Label, active, lastUsed)
	}

	return nil
}

// ---------- key revoke ----------

func newKeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <prefix>",
		Short: "Revoke an API key by its prefix",
		Long:  "Deactivate an API key, refusing any further requests that present it.",
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
		return err
	}
	defer st.Close()

	if err := st.RevokeAPIKey(context.Background(), prefix); err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}

	fmt.Printf("Revoked API key with prefix %q\n", prefix)
	return nil
}
