package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// Cluster represents one cluster suggestion from a scan.
type Cluster struct {
	ArtifactIDs     []string `json:"artifact_ids"`
	Coherence       float64  `json:"coherence"`
	SuggestedAction string   `json:"suggested_action"`
}

// ClusterScanResponse represents the cluster scan API response.
type ClusterScanResponse struct {
	Clusters []Cluster        `json:"clusters"`
	Promoted []string         `json:"promoted,omitempty"`
	Failures []CleanupFailure `json:"failures,omitempty"`
}

// ClustersCmd creates the clusters command.
func ClustersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clusters",
		Short: "Cluster the unsorted pool",
	}

	cmd.AddCommand(clustersScanCmd())

	return cmd
}

func clustersScanCmd() *cobra.Command {
	var promote bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a clustering pass over the unsorted pool",
		Long: `Runs one clustering pass over the unsorted pool. Without --promote the
suggestions are only reported; with --promote, cohesive clusters become
provisional folders and their members are placed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runClustersScan(promote, outputJSON)
		},
	}

	cmd.Flags().BoolVar(&promote, "promote", false, "Promote cohesive clusters into provisional folders")

	return cmd
}

func runClustersScan(promote bool, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Post("/clusters/scan", map[string]bool{"promote": promote})
	if err != nil {
		return fmt.Errorf("cluster scan failed: %w", err)
	}

	var result ClusterScanResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(result.Clusters) == 0 {
		fmt.Println("No clusters found.")
		return nil
	}

	for i, cluster := range result.Clusters {
		fmt.Printf("%d. %d concepts, coherence %.3f, action: %s\n",
			i+1, len(cluster.ArtifactIDs), cluster.Coherence, cluster.SuggestedAction)
	}
	for _, path := range result.Promoted {
		fmt.Printf("Promoted: %s\n", path)
	}
	for _, failure := range result.Failures {
		fmt.Printf("Failed cluster %v: %s\n", failure.ArtifactIDs, failure.Error)
	}

	return nil
}
