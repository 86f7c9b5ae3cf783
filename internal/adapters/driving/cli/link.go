package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/claimlens/internal/core/domain"
)

var (
	linkProject    string
	linkTopK       int
	linkRerankK    int
	linkMinScore   float64
	linkType       string
	linkNoRerank   bool
	linkNoClassify bool
	linkFile       string
	linkJSON       bool
)

var linkCmd = &cobra.Command{
	Use:   "link [premise]",
	Short: "Find evidence for a premise",
	Long: `Searches the project's evidence index for material relevant to a premise.
Candidates are retrieved by vector similarity, reranked by an LLM when one
is configured, and classified as supporting, refuting or neutral.

Pass the premise as an argument, or use --file to link one premise per line.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLink,
}

func init() {
	linkCmd.Flags().StringVarP(&linkProject, "project", "p", "", "project to search in")
	linkCmd.Flags().IntVar(&linkTopK, "top-k", domain.DefaultLinkTopK, "number of vector search candidates")
	linkCmd.Flags().IntVar(&linkRerankK, "rerank-k", domain.DefaultLinkRerankK, "number of candidates kept after reranking")
	linkCmd.Flags().Float64Var(&linkMinScore, "min-score", domain.DefaultLinkMinScore, "minimum relevance score")
	linkCmd.Flags().StringVarP(&linkType, "type", "t", "", "restrict candidates to one evidence type")
	linkCmd.Flags().BoolVar(&linkNoRerank, "no-rerank", false, "skip the rerank stage")
	linkCmd.Flags().BoolVar(&linkNoClassify, "no-classify", false, "skip the classify stage")
	linkCmd.Flags().StringVarP(&linkFile, "file", "f", "", "link every non-empty line of this file as a premise")
	linkCmd.Flags().BoolVar(&linkJSON, "json", false, "output results as JSON")
	linkCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(linkCmd)
}

func runLink(cmd *cobra.Command, args []string) error {
	if evidenceLinker == nil {
		return errors.New("linking service not configured")
	}

	opts, err := buildLinkOptions()
	if err != nil {
		return err
	}

	ctx := context.Background()

	if linkFile != "" {
		premises, err := readPremiseFile(linkFile)
		if err != nil {
			return err
		}

		results, err := evidenceLinker.LinkBatch(ctx, premises, linkProject, opts)
		if err != nil {
			return fmt.Errorf("linking failed: %w", err)
		}

		if linkJSON {
			return outputLinkBatchJSON(cmd, results)
		}
		return outputLinkBatchTable(cmd, results)
	}

	if len(args) == 0 {
		return errors.New("provide a premise or --file")
	}

	result, err := evidenceLinker.Link(ctx, args[0], linkProject, opts)
	if err != nil {
		return fmt.Errorf("linking failed: %w", err)
	}

	if linkJSON {
		return outputLinkJSON(cmd, result)
	}
	return outputLinkTable(cmd, result)
}

// buildLinkOptions assembles linking options from the command flags.
func buildLinkOptions() (domain.LinkOptions, error) {
	opts := domain.LinkOptions{
		TopK:               linkTopK,
		RerankK:            linkRerankK,
		MinScore:           linkMinScore,
		SkipReranking:      linkNoRerank,
		SkipClassification: linkNoClassify,
	}

	if linkType != "" {
		evType := domain.EvidenceType(linkType)
		if !evType.IsValid() {
			return opts, fmt.Errorf("invalid evidence type: %s", linkType)
		}
		opts.EvidenceType = evType
	}

	return opts, nil
}

// readPremiseFile reads one premise per non-empty line.
func readPremiseFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read premise file: %w", err)
	}

	var premises []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			premises = append(premises, line)
		}
	}

	if len(premises) == 0 {
		return nil, fmt.Errorf("no premises found in %s", path)
	}
	return premises, nil
}

func outputLinkJSON(cmd *cobra.Command, result *domain.LinkingResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputLinkBatchJSON(cmd *cobra.Command, results []domain.LinkingResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputLinkTable(cmd *cobra.Command, result *domain.LinkingResult) error {
	cmd.Printf("Premise: %s\n", result.Premise)

	if len(result.LinkedEvidence) == 0 {
		cmd.Println("No evidence found.")
		return nil
	}

	cmd.Println()
	for i := range result.LinkedEvidence {
		ev := &result.LinkedEvidence[i]
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, ev.Relationship, ev.Confidence)
		cmd.Printf("      %s\n", truncate(ev.EvidenceText, 120))
		if ev.SourceTitle != "" {
			cmd.Printf("      Source: %s\n", ev.SourceTitle)
		} else if ev.SourceURL != "" {
			cmd.Printf("      Source: %s\n", ev.SourceURL)
		}
		cmd.Println()
	}

	coverage := domain.Coverage(result.LinkedEvidence)
	cmd.Printf("Coverage: %d supporting, %d refuting, %d neutral (net %+d)\n",
		coverage.SupportCount, coverage.RefuteCount, coverage.NeutralCount,
		coverage.NetSupport)
	cmd.Printf("Pipeline: %d candidates, %d after rerank, %d after filter (%dms)\n",
		result.Stats.CandidatesFound, result.Stats.AfterReranking,
		result.Stats.AfterFiltering, result.Stats.ProcessingTimeMs)

	return nil
}

func outputLinkBatchTable(cmd *cobra.Command, results []domain.LinkingResult) error {
	for i := range results {
		if i > 0 {
			cmd.Println(strings.Repeat("-", 60))
		}
		if err := outputLinkTable(cmd, &results[i]); err != nil {
			return err
		}
	}
	return nil
}

// truncate shortens a string to the specified length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
