package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/camfleet/fleetnotify/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn := viper.GetString("database.dsn")
		source := viper.GetString("database.migrations_url")
		if source == "" {
			source = "file://migrations"
		}
		if dsn == "" {
			return fmt.Errorf("database.dsn is not configured")
		}

		if err := database.Migrate(source, dsn); err != nil {
			return err
		}
		fmt.Println("migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
