package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "semsearchctl",
	Short: "semsearchctl controls the semantic search daemon",
	Long: `semsearchctl indexes document sources, runs one-off searches, and
inspects the link graph of a semsearchd deployment. Run "semsearchctl serve"
to start the daemon that keeps the index live and exposes it over MCP.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .semsearch/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set. The actual
// service configuration is loaded per-command via config.LoadConfigFromDir;
// this viper instance only back the global --config/--verbose flags, the
// same split the prior root.go draws between flag binding here and
// config.LoadConfig in each subcommand.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		viper.AutomaticEnv()
		if err := viper.ReadInConfig(); err != nil && verbose {
			fmt.Fprintln(os.Stderr, "could not read config file:", err)
		}
	}
}
