package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	composeTitle    string
	composeBody     string
	composeCategory string
	composeBases    []string
	composeAuthor   string
)

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Compose and broadcast a notification via the API",
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := json.Marshal(map[string]any{
			"title":     composeTitle,
			"body":      composeBody,
			"category":  composeCategory,
			"base_ids":  composeBases,
			"author_id": composeAuthor,
		})
		if err != nil {
			return err
		}

		client := &http.Client{Timeout: 30 * time.Second}
		resp, err := client.Post(apiURL+"/api/notifications", "application/json", bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("compose request failed: %w", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusCreated {
			return fmt.Errorf("compose rejected (%d): %s", resp.StatusCode, bytes.TrimSpace(body))
		}
		fmt.Println(string(bytes.TrimSpace(body)))
		return nil
	},
}

func init() {
	composeCmd.Flags().StringVar(&composeTitle, "title", "", "notification title")
	composeCmd.Flags().StringVar(&composeBody, "body", "", "notification body")
	composeCmd.Flags().StringVar(&composeCategory, "category", "notice", "notification category")
	composeCmd.Flags().StringSliceVar(&composeBases, "bases", nil, "target base ids")
	composeCmd.Flags().StringVar(&composeAuthor, "author", "", "author user id")
	composeCmd.MarkFlagRequired("title")
	composeCmd.MarkFlagRequired("body")
	composeCmd.MarkFlagRequired("bases")
	composeCmd.MarkFlagRequired("author")
	rootCmd.AddCommand(composeCmd)
}
