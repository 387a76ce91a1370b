// Package cli wires the gptstore command tree: serve plus the gpt and key
// management commands used to provision tenants.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gptstore/gptstore/internal/config"
)

var cfgFile string

// Execute creates the root command tree and runs it.
func Execute(build BuildInfo) error {
	rootCmd := newRootCmd(build)
	return rootCmd.Execute()
}

func newRootCmd(build BuildInfo) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gptstore",
		Short: "Multi-tenant JSON document storage for custom GPTs",
		Long: `GPT Object Store: durable JSON storage exposed as a REST API.

Each custom GPT gets its own isolated namespace of collections holding
schemaless JSON objects, authenticated with per-GPT API keys, keyset-paginated,
and rate limited per key and per source address.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./gptstore.yaml)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newGPTCmd())
	cmd.AddCommand(newKeyCmd())
	cmd.AddCommand(newVersionCmd(build))

	return cmd
}

func initConfig() {
	config.SetDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("gptstore")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.gptstore")
	}

	viper.SetEnvPrefix("GPTSTORE")
	viper.AutomaticEnv()
	viper.ReadInConfig() // config file is optional
}
