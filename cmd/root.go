package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papapumpkin/trustprop/internal/config"
	"github.com/papapumpkin/trustprop/internal/ui"
)

var rootCmd = &cobra.Command{
	Use:   "trustprop",
	Short: "Propagate trust through a signed rating network",
	Long: `Trustprop reads a chronological history of who-trusts-whom ratings, builds the
trust graph for an early or full slice of that history, and computes the
cheapest trust path from every actor to every actor it can reach.

Without a subcommand it runs "build" with the configured defaults.`,
	PersistentPreRunE: setupLogging,
	RunE:              runRootDefault,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default .trustprop.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".trustprop")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	config.BindEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}

// setupLogging installs the process-wide structured logger.
func setupLogging(cmd *cobra.Command, _ []string) error {
	verbose := viper.GetBool("verbose")
	slog.SetDefault(ui.NewLogger(cmd.ErrOrStderr(), verbose))
	if used := viper.ConfigFileUsed(); used != "" {
		slog.Debug("config loaded", "file", used)
	}
	return nil
}

// runRootDefault runs a build with configured defaults.
func runRootDefault(cmd *cobra.Command, args []string) error {
	return runBuild(cmd, args)
}
