package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/claimlens/internal/core/ports/driving"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show vector index statistics",
	Long: `Reports the vector index state: provider, embedding model, vector
counts per project namespace, and the matching evidence record counts.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}

// statsReport is the JSON shape of the stats command.
type statsReport struct {
	Index    *driving.IndexStatus
	Evidence map[string]int
}

func runStats(cmd *cobra.Command, args []string) error {
	if vectorIndexService == nil {
		return errors.New("vector index service not configured")
	}

	ctx := context.Background()

	if !vectorIndexService.Enabled() {
		cmd.Println("Vector index not configured. Run 'claimlens settings wizard' to set it up.")
		return nil
	}

	status, err := vectorIndexService.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read index stats: %w", err)
	}

	counts := evidenceCounts(ctx, status)

	if statsJSON {
		data, err := json.MarshalIndent(statsReport{Index: status, Evidence: counts}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal stats: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println("Vector index:")
	cmd.Printf("  Provider:        %s\n", status.Provider)
	cmd.Printf("  Embedding model: %s\n", status.EmbeddingModel)
	cmd.Printf("  Dimension:       %d\n", status.Dimension)
	cmd.Printf("  Total vectors:   %d\n", status.TotalVectors)

	if len(status.Namespaces) > 0 {
		names := make([]string, 0, len(status.Namespaces))
		for ns := range status.Namespaces {
			names = append(names, ns)
		}
		sort.Strings(names)

		cmd.Println()
		cmd.Println("Projects:")
		for _, ns := range names {
			line := fmt.Sprintf("  %s: %d vectors", ns, status.Namespaces[ns])
			if n, ok := counts[ns]; ok {
				line += fmt.Sprintf(", %d evidence records", n)
			}
			cmd.Println(line)
		}
	}

	return nil
}

// evidenceCounts looks up the record count for each indexed namespace.
// Counting is best effort: a store failure leaves the namespace out.
func evidenceCounts(ctx context.Context, status *driving.IndexStatus) map[string]int {
	if evidenceStore == nil {
		return nil
	}

	counts := make(map[string]int, len(status.Namespaces))
	for ns := range status.Namespaces {
		if n, err := evidenceStore.CountByProject(ctx, ns); err == nil {
			counts[ns] = n
		}
	}
	return counts
}
