package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/claimlens/internal/core/domain"
	"github.com/custodia-labs/claimlens/internal/logger"
)

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Inspect stored evidence",
	Long:  `List, view, archive, restore, or delete evidence records.`,
}

var evidenceListCmd = &cobra.Command{
	Use:   "list [project-id]",
	Short: "List evidence for a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvidenceList,
}

var evidenceGetCmd = &cobra.Command{
	Use:   "get [evidence-id]",
	Short: "Show evidence info",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvidenceGet,
}

var evidenceArtifactCmd = &cobra.Command{
	Use:   "artifact [artifact-id]",
	Short: "List evidence from one ingestion run",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvidenceArtifact,
}

var evidenceArchiveCmd = &cobra.Command{
	Use:   "archive [evidence-id]",
	Short: "Archive an evidence record",
	Long:  `Archives a record, keeping it for history but excluding it from linking and dedup.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runEvidenceArchive,
}

var evidenceRestoreCmd = &cobra.Command{
	Use:   "restore [evidence-id]",
	Short: "Restore an archived evidence record",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvidenceRestore,
}

var evidenceRmCmd = &cobra.Command{
	Use:   "rm [evidence-id]",
	Short: "Delete an evidence record",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvidenceRm,
}

func init() {
	evidenceCmd.AddCommand(evidenceListCmd)
	evidenceCmd.AddCommand(evidenceGetCmd)
	evidenceCmd.AddCommand(evidenceArtifactCmd)
	evidenceCmd.AddCommand(evidenceArchiveCmd)
	evidenceCmd.AddCommand(evidenceRestoreCmd)
	evidenceCmd.AddCommand(evidenceRmCmd)
	rootCmd.AddCommand(evidenceCmd)
}

func runEvidenceList(cmd *cobra.Command, args []string) error {
	if evidenceStore == nil {
		return errors.New("evidence store not configured")
	}

	projectID := args[0]
	ctx := context.Background()

	evs, err := evidenceStore.ListByProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to list evidence: %w", err)
	}

	if len(evs) == 0 {
		cmd.Printf("No evidence found for project: %s\n", projectID)
		return nil
	}

	cmd.Printf("Evidence for project %s:\n\n", projectID)
	printEvidenceList(cmd, evs)

	cmd.Printf("Total: %d evidence records\n", len(evs))
	return nil
}

func runEvidenceGet(cmd *cobra.Command, args []string) error {
	if evidenceStore == nil {
		return errors.New("evidence store not configured")
	}

	id := args[0]
	ctx := context.Background()

	ev, err := evidenceStore.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get evidence: %w", err)
	}

	cmd.Printf("Evidence: %s\n\n", ev.ID)
	cmd.Printf("  Project:  %s\n", ev.ProjectID)
	cmd.Printf("  Type:     %s\n", ev.Type)
	cmd.Printf("  Status:   %s\n", ev.Status)
	cmd.Printf("  Source:   %s", ev.SourceType)
	if ev.SourceTitle != "" {
		cmd.Printf(" (%s)", ev.SourceTitle)
	}
	cmd.Println()
	if ev.SourceURL != "" {
		cmd.Printf("  URL:      %s\n", ev.SourceURL)
	}
	if ev.ArtifactID != "" {
		cmd.Printf("  Artifact: %s (chunk %d)\n", ev.ArtifactID, ev.ChunkIndex)
	}
	if len(ev.Keywords) > 0 {
		cmd.Printf("  Keywords: %s\n", strings.Join(ev.Keywords, ", "))
	}
	cmd.Printf("  Created:  %s\n", ev.CreatedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Updated:  %s\n", ev.UpdatedAt.Format("2006-01-02 15:04:05"))
	cmd.Println()
	cmd.Println(ev.Text)

	return nil
}

func runEvidenceArtifact(cmd *cobra.Command, args []string) error {
	if evidenceStore == nil {
		return errors.New("evidence store not configured")
	}

	artifactID := args[0]
	ctx := context.Background()

	evs, err := evidenceStore.ListByArtifact(ctx, artifactID)
	if err != nil {
		return fmt.Errorf("failed to list evidence: %w", err)
	}

	if len(evs) == 0 {
		cmd.Printf("No evidence found for artifact: %s\n", artifactID)
		return nil
	}

	cmd.Printf("Evidence from artifact %s:\n\n", artifactID)
	printEvidenceList(cmd, evs)

	cmd.Printf("Total: %d evidence records\n", len(evs))
	return nil
}

func runEvidenceArchive(cmd *cobra.Command, args []string) error {
	if evidenceStore == nil {
		return errors.New("evidence store not configured")
	}

	id := args[0]
	ctx := context.Background()

	ev, err := evidenceStore.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get evidence: %w", err)
	}

	if err := evidenceStore.UpdateStatus(ctx, id, domain.EvidenceStatusArchived); err != nil {
		return fmt.Errorf("failed to archive evidence: %w", err)
	}

	// Drop the vector so linking stops returning the archived record.
	if vectorIndexService != nil && vectorIndexService.Enabled() {
		_ = vectorIndexService.DeleteEvidence(ctx, ev.ProjectID, []string{id})
	}

	cmd.Printf("Evidence %s archived.\n", id)
	return nil
}

func runEvidenceRestore(cmd *cobra.Command, args []string) error {
	if evidenceStore == nil {
		return errors.New("evidence store not configured")
	}

	id := args[0]
	ctx := context.Background()

	ev, err := evidenceStore.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get evidence: %w", err)
	}

	if err := evidenceStore.UpdateStatus(ctx, id, domain.EvidenceStatusActive); err != nil {
		return fmt.Errorf("failed to restore evidence: %w", err)
	}

	// Reindex so linking sees the record again.
	if vectorIndexService != nil && vectorIndexService.Enabled() {
		restored := *ev
		restored.Status = domain.EvidenceStatusActive
		if err := vectorIndexService.UpsertEvidence(ctx, restored); err != nil {
			logger.Warn("Reindex of %s failed: %v", id, err)
		}
	}

	cmd.Printf("Evidence %s restored.\n", id)
	return nil
}

func runEvidenceRm(cmd *cobra.Command, args []string) error {
	if evidenceStore == nil {
		return errors.New("evidence store not configured")
	}

	id := args[0]
	ctx := context.Background()

	ev, err := evidenceStore.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get evidence: %w", err)
	}

	if err := evidenceStore.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete evidence: %w", err)
	}

	if vectorIndexService != nil && vectorIndexService.Enabled() {
		_ = vectorIndexService.DeleteEvidence(ctx, ev.ProjectID, []string{id})
	}

	cmd.Printf("Evidence %s deleted.\n", id)
	return nil
}

func printEvidenceList(cmd *cobra.Command, evs []domain.Evidence) {
	for i := range evs {
		cmd.Printf("  %s [%s]\n", evs[i].ID, evs[i].Type)
		cmd.Printf("    %s\n", truncate(evs[i].Text, 100))
		if evs[i].SourceTitle != "" {
			cmd.Printf("    Source: %s\n", evs[i].SourceTitle)
		}
		if evs[i].Status != domain.EvidenceStatusActive {
			cmd.Printf("    Status: %s\n", evs[i].Status)
		}
		cmd.Println()
	}
}
