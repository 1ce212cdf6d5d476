package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// ConceptListResponse represents the concept list API response.
type ConceptListResponse struct {
	Items   []Concept `json:"items"`
	Cursor  string    `json:"cursor,omitempty"`
	HasMore bool      `json:"has_more"`
}

// ListCmd creates the list command.
func ListCmd() *cobra.Command {
	var (
		unsorted bool
		limit    int
		cursor   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List concepts",
		Long:  "Lists stored concepts, optionally restricted to the unsorted pool.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runList(unsorted, limit, cursor, outputJSON)
		},
	}

	cmd.Flags().BoolVar(&unsorted, "unsorted", false, "Only list concepts in the unsorted pool")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runList(unsorted bool, limit int, cursor string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	params := url.Values{}
	if unsorted {
		params.Set("unsorted", "true")
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	path := "/concepts"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	var listResp ConceptListResponse
	if err := json.Unmarshal(resp.Data, &listResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(listResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(listResp.Items) == 0 {
		fmt.Println("No concepts found.")
		return nil
	}

	fmt.Printf("Found %d concepts:\n\n", len(listResp.Items))
	for i, item := range listResp.Items {
		fmt.Printf("%d. %s\n", i+1, item.Title)
		if item.FolderPath != "" {
			fmt.Printf("   Folder: %s\n", item.FolderPath)
		} else {
			fmt.Printf("   Folder: (unsorted)\n")
		}
		if item.Summary != "" {
			fmt.Printf("   Summary: %s\n", item.Summary)
		}
		fmt.Printf("   ID: %s\n", item.ID)
		if i < len(listResp.Items)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	if listResp.HasMore && listResp.Cursor != "" {
		fmt.Printf("\n%s\n", strings.Repeat("-", 40))
		fmt.Printf("More results available. Use --cursor %s\n", listResp.Cursor)
	}

	return nil
}
