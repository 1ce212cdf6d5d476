package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// Concept represents a stored concept artifact from the API.
type Concept struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	SourceText string   `json:"source_text"`
	FolderPath string   `json:"folder_path,omitempty"`
	CrossLinks []string `json:"cross_links,omitempty"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}

// GetCmd creates the get command.
func GetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "get <concept_id>",
		Short:   "Get a concept by ID",
		Long:    "Retrieves a concept by its ID and displays the full content.",
		Aliases: []string{"view"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runGet(args[0], outputJSON)
		},
	}

	return cmd
}

func runGet(conceptID string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/concepts/%s", conceptID))
	if err != nil {
		return fmt.Errorf("failed to get concept: %w", err)
	}

	var concept Concept
	if err := json.Unmarshal(resp.Data, &concept); err != nil {
		return fmt.Errorf("failed to parse concept: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(concept, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Title: %s\n", concept.Title)
		if concept.FolderPath != "" {
			fmt.Printf("Folder: %s\n", concept.FolderPath)
		} else {
			fmt.Println("Folder: (unsorted)")
		}
		for _, link := range concept.CrossLinks {
			fmt.Printf("Cross-link: %s\n", link)
		}
		fmt.Printf("Summary: %s\n", concept.Summary)
		fmt.Printf("Created: %s\n", concept.CreatedAt)
		fmt.Printf("Updated: %s\n", concept.UpdatedAt)
		fmt.Println()
		fmt.Println("--- Source ---")
		fmt.Println(concept.SourceText)
	}

	return nil
}
