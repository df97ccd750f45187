package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <notification-id>",
	Short: "Show a notification with its recipient list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Get(apiURL + "/api/notifications/" + args[0])
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("lookup failed (%d): %s", resp.StatusCode, bytes.TrimSpace(body))
		}
		fmt.Println(string(bytes.TrimSpace(body)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
