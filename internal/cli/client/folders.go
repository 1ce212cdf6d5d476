package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// Folder represents a taxonomy folder from the API.
type Folder struct {
	Path        string `json:"path"`
	MemberCount int    `json:"member_count"`
	Provisional bool   `json:"provisional"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// MergeResult represents one collapsed duplicate group from a cleanup pass.
type MergeResult struct {
	SurvivorID  string   `json:"survivor_id"`
	AbsorbedIDs []string `json:"absorbed_ids"`
	Title       string   `json:"title"`
}

// CleanupFailure represents one group a cleanup pass could not collapse.
type CleanupFailure struct {
	ArtifactIDs []string `json:"artifact_ids"`
	Error       string   `json:"error"`
}

// CleanupResponse represents the folder cleanup API response.
type CleanupResponse struct {
	FolderPath string           `json:"folder_path"`
	GroupCount int              `json:"group_count"`
	Merges     []MergeResult    `json:"merges"`
	Failures   []CleanupFailure `json:"failures,omitempty"`
}

// FoldersCmd creates the folders command.
func FoldersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folders",
		Short: "Inspect and maintain the folder taxonomy",
	}

	cmd.AddCommand(foldersListCmd())
	cmd.AddCommand(foldersCleanupCmd())

	return cmd
}

func foldersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runFoldersList(outputJSON)
		},
	}
}

func runFoldersList(outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Get("/folders")
	if err != nil {
		return fmt.Errorf("failed to list folders: %w", err)
	}

	var folders []Folder
	if err := json.Unmarshal(resp.Data, &folders); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(folders, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(folders) == 0 {
		fmt.Println("No folders yet.")
		return nil
	}

	for _, f := range folders {
		marker := ""
		if f.Provisional {
			marker = " (provisional)"
		}
		fmt.Printf("%s  [%d members]%s\n", f.Path, f.MemberCount, marker)
	}

	return nil
}

func foldersCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup <folder_path>",
		Short: "Run the duplicate cleanup pass over one folder",
		Long: `Runs the batch duplicate detection pass over one folder: near-identical
members are merged into a single survivor with a regenerated title.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runFoldersCleanup(args[0], outputJSON)
		},
	}
}

func runFoldersCleanup(folderPath string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Post("/folders/cleanup", map[string]string{"folder_path": folderPath})
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	var result CleanupResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(result.Merges) == 0 && len(result.Failures) == 0 {
		fmt.Printf("No duplicate groups found in %s\n", result.FolderPath)
		return nil
	}

	for _, merge := range result.Merges {
		fmt.Printf("Merged %d concepts into %s (%q)\n", len(merge.AbsorbedIDs)+1, merge.SurvivorID, merge.Title)
	}
	for _, failure := range result.Failures {
		fmt.Printf("Failed group %v: %s\n", failure.ArtifactIDs, failure.Error)
	}

	return nil
}
