package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/claimlens/internal/core/domain"
)

var (
	dedupProject   string
	dedupThreshold float64
	dedupArchive   bool
	dedupJSON      bool
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Find near-duplicate evidence",
	Long: `Groups a project's evidence into duplicate clusters by vector
similarity. Each cluster keeps its oldest member as the representative;
use --archive to archive the rest.`,
	RunE: runDedup,
}

func init() {
	dedupCmd.Flags().StringVarP(&dedupProject, "project", "p", "", "project to scan")
	dedupCmd.Flags().Float64Var(&dedupThreshold, "threshold", 0, "minimum similarity for cluster membership (0 uses the configured default)")
	dedupCmd.Flags().BoolVar(&dedupArchive, "archive", false, "archive every cluster member, keeping representatives")
	dedupCmd.Flags().BoolVar(&dedupJSON, "json", false, "output the report as JSON")
	dedupCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(dedupCmd)
}

func runDedup(cmd *cobra.Command, args []string) error {
	if dedupService == nil {
		return errors.New("dedup service not configured")
	}

	ctx := context.Background()

	report, err := dedupService.GenerateReport(ctx, dedupProject, dedupThreshold)
	if err != nil {
		return fmt.Errorf("dedup failed: %w", err)
	}

	if dedupJSON {
		if err := outputDedupJSON(cmd, report); err != nil {
			return err
		}
	} else {
		outputDedupTable(cmd, report)
	}

	if dedupArchive && report.DuplicateCount > 0 {
		archived, err := dedupService.ArchiveDuplicates(ctx, report)
		if err != nil {
			return fmt.Errorf("failed to archive duplicates: %w", err)
		}
		cmd.Printf("Archived %d duplicates.\n", archived)
	}

	return nil
}

func outputDedupJSON(cmd *cobra.Command, report *domain.DedupReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputDedupTable(cmd *cobra.Command, report *domain.DedupReport) {
	if len(report.Clusters) == 0 {
		cmd.Printf("No duplicates found across %d evidence records.\n", report.TotalEvidence)
		return
	}

	cmd.Printf("Duplicate clusters (threshold %.2f):\n\n", report.Threshold)
	for i := range report.Clusters {
		cluster := &report.Clusters[i]
		cmd.Printf("  [%d] %s\n", i+1, truncate(cluster.Representative.Text, 100))
		for j := range cluster.Members {
			cmd.Printf("      ~ %s (%.2f)\n",
				truncate(cluster.Members[j].Text, 90), cluster.Members[j].Similarity)
		}
		cmd.Println()
	}

	cmd.Printf("Scanned %d records: %d duplicates in %d clusters (%.1f%% archivable)\n",
		report.TotalEvidence, report.DuplicateCount, len(report.Clusters),
		report.SavingsPercentage)
}
