package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	dataDir string
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chatwire",
		Short: "Self-hosted messaging gateway with API keys and webhooks",
		Long: `Chatwire exposes an authenticated REST API in front of a messaging
network driver: send text and media messages, dispatch throttled bulk
batches, and notify third parties of session and message events via
signed webhooks. Credentials are API keys with scoped permissions,
managed exclusively through the operator master key.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./chatwire.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory for the key store (default: ~/.chatwire)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newKeyCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("chatwire")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.chatwire")
	}

	viper.SetEnvPrefix("CHATWIRE")
	viper.AutomaticEnv()
	viper.ReadInConfig() // Ignore error - config file is optional
}
