package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// DuplicateCheck represents the duplicate check API response.
type DuplicateCheck struct {
	IsDuplicate bool    `json:"is_duplicate"`
	Type        string  `json:"type,omitempty"`
	MatchedID   string  `json:"matched_id,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// CheckCmd creates the check command.
func CheckCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check a fragment for duplicates without ingesting it",
		Long: `Check a text fragment against the stored corpus. Reports whether
ingesting it would be rejected as an exact or semantic duplicate.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runCheck(file, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Input file with the fragment text")

	return cmd
}

func runCheck(file string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	text, err := readInput(file)
	if err != nil {
		return err
	}

	resp, err := api.Post("/concepts/check", IngestRequest{SourceText: text})
	if err != nil {
		return fmt.Errorf("duplicate check failed: %w", err)
	}

	var result DuplicateCheck
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if result.IsDuplicate {
		fmt.Printf("Duplicate (%s) of %s, confidence %.3f\n", result.Type, result.MatchedID, result.Confidence)
	} else {
		fmt.Println("Not a duplicate")
	}

	return nil
}
