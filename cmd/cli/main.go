package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var apiURL string

var rootCmd = &cobra.Command{
	Use:   "fleetnotify",
	Short: "Fleet notification service CLI",
	Long:  `Operational tooling for the fleet notification broadcast service.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "http://127.0.0.1:8080", "base URL of the notifyd API")
}

func initConfig() {
	viper.AddConfigPath("./config")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("FLEETNOTIFY")
	viper.AutomaticEnv()

	// Config file is optional for API-only commands.
	_ = viper.ReadInConfig()
}

func main() {
	Execute()
}
