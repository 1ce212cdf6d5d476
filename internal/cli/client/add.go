package client

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// IngestRequest represents the concept ingest API request.
type IngestRequest struct {
	SourceText string    `json:"source_text"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

// CrossLink represents one secondary folder reference in a verdict.
type CrossLink struct {
	FolderPath string  `json:"folder_path"`
	Score      float64 `json:"score"`
}

// Verdict represents the routing verdict returned for an ingested concept.
type Verdict struct {
	Outcome     string      `json:"outcome"`
	FolderPath  string      `json:"folder_path,omitempty"`
	Score       float64     `json:"score"`
	CrossLinks  []CrossLink `json:"cross_links,omitempty"`
	DuplicateOf string      `json:"duplicate_of,omitempty"`
}

// IngestResponse represents the concept ingest API response.
type IngestResponse struct {
	Concept *Concept `json:"concept,omitempty"`
	Verdict *Verdict `json:"verdict"`
}

// AddCmd creates the add command.
func AddCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Ingest a text fragment from stdin or file",
		Long: `Ingest a text fragment. The server distills it to a titled concept,
embeds it, checks it against existing concepts for duplicates and routes
it into the folder taxonomy.

Examples:
  # Ingest from stdin
  echo 'Raft elects a single leader per term...' | curio add

  # Ingest from a file
  curio add --file notes/raft.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAdd(file, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Input file with the fragment text")

	return cmd
}

func runAdd(file string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	text, err := readInput(file)
	if err != nil {
		return err
	}

	resp, err := api.Post("/concepts", IngestRequest{SourceText: text})
	if err != nil {
		return fmt.Errorf("failed to ingest concept: %w", err)
	}

	var result IngestResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	printVerdict(&result)
	return nil
}

func readInput(file string) (string, error) {
	var input []byte
	var err error
	if file != "" {
		input, err = os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
	} else {
		input, err = io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
	}

	text := strings.TrimSpace(string(input))
	if text == "" {
		return "", fmt.Errorf("no input provided")
	}
	return text, nil
}

func printVerdict(result *IngestResponse) {
	v := result.Verdict

	switch v.Outcome {
	case "placed":
		fmt.Printf("Placed in: %s (score %.3f)\n", v.FolderPath, v.Score)
	case "needs_review":
		fmt.Printf("Needs review: best candidate %s (score %.3f)\n", v.FolderPath, v.Score)
	case "pooled_unsorted":
		fmt.Println("Pooled: no folder matched, held for clustering")
	case "rejected_duplicate":
		fmt.Printf("Rejected: duplicate of %s\n", v.DuplicateOf)
	default:
		fmt.Printf("Outcome: %s\n", v.Outcome)
	}

	if result.Concept != nil {
		fmt.Printf("ID: %s\n", result.Concept.ID)
		fmt.Printf("Title: %s\n", result.Concept.Title)
	}

	for _, link := range v.CrossLinks {
		fmt.Printf("Cross-link: %s (score %.3f)\n", link.FolderPath, link.Score)
	}
}
