package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gptstore/gptstore/internal/model"
)

func newGPTCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "gpt",
		Aliases: []string{"tenant"},
		Short:   "Manage GPT tenants",
		Long:    "Create and list the GPTs whose documents this server stores.",
	}

	cmd.AddCommand(newGPTCreateCmd())
	cmd.AddCommand(newGPTListCmd())

	return cmd
}

// ---------- gpt create ----------

func newGPTCreateCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create <gpt-id>",
		Short: "Register a new GPT tenant",
		Example: `  gptstore gpt create gpt-recipes --name "Recipe Assistant"
  gptstore gpt create gpt-notes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGPTCreate(args[0], name)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Human-readable name (defaults to the id)")

	return cmd
}

func runGPTCreate(id, name string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if name == "" {
		name = id
	}
	if err := st.CreateTenant(context.Background(), &model.Tenant{ID: id, Name: name}); err != nil {
		return fmt.Errorf("create gpt: %w", err)
	}

	fmt.Printf("GPT %q registered. Create a key with: gptstore key create --gpt %s\n", id, id)
	return nil
}

// ---------- gpt list ----------

func newGPTListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered GPTs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGPTList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runGPTList(jsonOutput bool) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	tenants, err := st.ListTenants(context.Background())
	if err != nil {
		return fmt.Errorf("list gpts: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tenants)
	}

	if len(tenants) == 0 {
		fmt.Println("No GPTs registered. Use 'gptstore gpt create' to register one.")
		return nil
	}

	fmt.Printf("%-24s %-32s %-20s\n", "ID", "NAME", "CREATED")
	fmt.Printf("%-24s %-32s %-20s\n", "--", "----", "-------")
	for _, t := range tenants {
		fmt.Printf("%-24s %-32s %-20s\n", t.ID, t.Name, t.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	return nil
}
