package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/nodemesh/cmd/nodemesh/commands"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "nodemesh",
	Short: "nodemesh CLI - lifecycle nodes on an in-process bus",
	Long: `nodemesh runs lifecycle managed nodes that talk over an in-process
bus. Parameters come from a YAML parameter file, NODEMESH_* environment
variables and flags.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(commands.DemoCmd)
	rootCmd.AddCommand(commands.ParamsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.nodemesh.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().String("params-file", "", "YAML parameter file")

	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("params_file", rootCmd.PersistentFlags().Lookup("params-file"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigName(".nodemesh")
	}

	viper.SetEnvPrefix("NODEMESH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
		fmt.Fprintln(os.Stderr, "failed to read config:", err)
		os.Exit(1)
	}
}
