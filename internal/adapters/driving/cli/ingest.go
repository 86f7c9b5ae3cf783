package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/claimlens/internal/core/domain"
	"github.com/custodia-labs/claimlens/internal/logger"
)

var (
	ingestProject      string
	ingestUser         string
	ingestType         string
	ingestConfidence   float64
	ingestDupThreshold float64
	ingestNoDupCheck   bool
	ingestJSON         bool

	ingestTitle   string
	ingestInclude []string
	ingestExclude []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest documents as evidence",
	Long: `Turns documents into evidence records.
Text is chunked, claims are extracted from each chunk, and surviving
claims are stored and indexed for linking.`,
}

var ingestTextCmd = &cobra.Command{
	Use:   "text [text]",
	Short: "Ingest raw text",
	Long: `Ingests text passed as an argument, or read from stdin when no
argument is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngestText,
}

var ingestFileCmd = &cobra.Command{
	Use:   "file [path]",
	Short: "Ingest a local file",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestFile,
}

var ingestURLCmd = &cobra.Command{
	Use:   "url [url]",
	Short: "Fetch and ingest a web page",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestURL,
}

var ingestDirCmd = &cobra.Command{
	Use:   "dir [path]",
	Short: "Ingest a directory tree",
	Long: `Walks a directory and ingests every file matching the include
patterns. Defaults to text, markdown and HTML files.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngestDir,
}

var ingestWatchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch a directory and ingest new files",
	Long: `Watches a directory tree and ingests files as they are created or
modified. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngestWatch,
}

var ingestRmCmd = &cobra.Command{
	Use:   "rm [artifact-id]",
	Short: "Remove all evidence from an ingestion run",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestRm,
}

func init() {
	ingestCmd.PersistentFlags().StringVarP(&ingestProject, "project", "p", "", "project to ingest into")
	ingestCmd.PersistentFlags().StringVarP(&ingestUser, "user", "u", "", "user recorded as creator")
	ingestCmd.PersistentFlags().StringVarP(&ingestType, "type", "t", "", "evidence type assigned to created records")
	ingestCmd.PersistentFlags().Float64Var(&ingestConfidence, "confidence", domain.DefaultConfidenceThreshold, "minimum claim confidence")
	ingestCmd.PersistentFlags().Float64Var(&ingestDupThreshold, "dup-threshold", domain.DefaultDuplicateThreshold, "similarity at which a claim counts as a duplicate")
	ingestCmd.PersistentFlags().BoolVar(&ingestNoDupCheck, "no-dup-check", false, "skip the duplicate check")
	ingestCmd.PersistentFlags().BoolVar(&ingestJSON, "json", false, "output results as JSON")
	ingestCmd.MarkPersistentFlagRequired("project")

	ingestTextCmd.Flags().StringVar(&ingestTitle, "title", "", "origin name recorded on created records")
	ingestDirCmd.Flags().StringSliceVar(&ingestInclude, "include", nil, "glob patterns for files to ingest")
	ingestDirCmd.Flags().StringSliceVar(&ingestExclude, "exclude", nil, "glob patterns for files to skip")
	ingestWatchCmd.Flags().StringSliceVar(&ingestInclude, "include", nil, "glob patterns for files to ingest")
	ingestWatchCmd.Flags().StringSliceVar(&ingestExclude, "exclude", nil, "glob patterns for files to skip")

	ingestCmd.AddCommand(ingestTextCmd)
	ingestCmd.AddCommand(ingestFileCmd)
	ingestCmd.AddCommand(ingestURLCmd)
	ingestCmd.AddCommand(ingestDirCmd)
	ingestCmd.AddCommand(ingestWatchCmd)
	ingestCmd.AddCommand(ingestRmCmd)
	rootCmd.AddCommand(ingestCmd)
}

func runIngestText(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	opts, err := buildIngestOptions()
	if err != nil {
		return err
	}

	var text string
	if len(args) > 0 {
		text = args[0]
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
	}

	source := domain.IngestSource{
		Type:  domain.SourceTypeManual,
		Title: ingestTitle,
	}

	result, err := ingestionService.Ingest(context.Background(), text, source, ingestProject, ingestUser, opts)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	return outputIngestResult(cmd, result)
}

func runIngestFile(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	opts, err := buildIngestOptions()
	if err != nil {
		return err
	}

	result, err := ingestionService.IngestFile(context.Background(), args[0], ingestProject, ingestUser, opts)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	return outputIngestResult(cmd, result)
}

func runIngestURL(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	opts, err := buildIngestOptions()
	if err != nil {
		return err
	}

	result, err := ingestionService.IngestURL(context.Background(), args[0], ingestProject, ingestUser, opts)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	return outputIngestResult(cmd, result)
}

func runIngestDir(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	opts, err := buildIngestOptions()
	if err != nil {
		return err
	}

	dirOpts := domain.DirectoryOptions{
		Ingest:  opts,
		Include: ingestInclude,
		Exclude: ingestExclude,
	}

	// The bar is created on the first callback, once the matched file
	// count is known.
	if !ingestJSON {
		var bar *progressbar.ProgressBar
		out := cmd.OutOrStdout()
		dirOpts.Progress = func(path string, processed, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetWriter(out),
					progressbar.OptionSetDescription("Ingesting"),
					progressbar.OptionSetWidth(40),
					progressbar.OptionShowCount(),
					progressbar.OptionOnCompletion(func() {
						fmt.Fprintln(out)
					}),
				)
			}
			bar.Set(processed)
		}
	}

	result, err := ingestionService.IngestDirectory(context.Background(), args[0], ingestProject, ingestUser, dirOpts)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if ingestJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Matched %d files, ingested %d.\n", result.FilesMatched, result.FilesIngested)
	cmd.Printf("Evidence created: %d (%d duplicates skipped)\n",
		result.EvidenceCreated, result.DuplicatesSkipped)
	if len(result.Errors) > 0 {
		cmd.Printf("Errors (%d):\n", len(result.Errors))
		for _, e := range result.Errors {
			cmd.Printf("  %s\n", e)
		}
	}
	return nil
}

func runIngestWatch(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	opts, err := buildIngestOptions()
	if err != nil {
		return err
	}

	root := args[0]
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to stat watch path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch path is not a directory: %s", root)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// fsnotify does not recurse, so every subdirectory is registered
	// individually, including ones created while watching.
	if err := watchTree(watcher, root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}

	include := ingestInclude
	if len(include) == 0 {
		include = domain.DefaultIncludePatterns
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	cmd.Printf("Watching %s (Ctrl+C to stop)...\n", root)

	ctx := context.Background()
	for {
		select {
		case <-sigCh:
			cmd.Println("\nStopped watching.")
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			handleWatchEvent(ctx, cmd, watcher, root, event, include, opts)
		}
	}
}

// handleWatchEvent ingests a created or modified file when it matches the
// include patterns. Repeated writes re-ingest the file; the duplicate check
// keeps the index from accumulating copies.
func handleWatchEvent(
	ctx context.Context,
	cmd *cobra.Command,
	watcher *fsnotify.Watcher,
	root string,
	event fsnotify.Event,
	include []string,
	opts domain.IngestOptions,
) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}

	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := watcher.Add(event.Name); err != nil {
				logger.Warn("Failed to watch new directory %s: %v", event.Name, err)
			}
		}
		return
	}

	rel, err := filepath.Rel(root, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	if !matchesPatterns(include, rel) || matchesPatterns(ingestExclude, rel) {
		return
	}

	result, err := ingestionService.IngestFile(ctx, event.Name, ingestProject, ingestUser, opts)
	if err != nil {
		logger.Warn("Failed to ingest %s: %v", rel, err)
		return
	}

	cmd.Printf("%s: %d evidence records (%d duplicates skipped)\n",
		rel, result.EvidenceCreated, result.DuplicatesSkipped)
}

func runIngestRm(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	removed, err := ingestionService.RemoveArtifact(context.Background(), args[0], ingestProject)
	if err != nil {
		return fmt.Errorf("failed to remove artifact: %w", err)
	}

	cmd.Printf("Removed %d evidence records.\n", removed)
	return nil
}

// buildIngestOptions assembles ingestion options from the shared flags.
func buildIngestOptions() (domain.IngestOptions, error) {
	opts := domain.DefaultIngestOptions()
	opts.ConfidenceThreshold = ingestConfidence
	opts.DuplicateThreshold = ingestDupThreshold
	opts.SkipDuplicateCheck = ingestNoDupCheck

	if ingestType != "" {
		evType := domain.EvidenceType(ingestType)
		if !evType.IsValid() {
			return opts, fmt.Errorf("invalid evidence type: %s", ingestType)
		}
		opts.EvidenceType = evType
	}

	return opts, nil
}

func outputIngestResult(cmd *cobra.Command, result *domain.IngestionResult) error {
	if ingestJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Artifact: %s\n", result.ArtifactID)
	cmd.Printf("  Chunks processed:   %d\n", result.ChunksProcessed)
	cmd.Printf("  Claims extracted:   %d\n", result.ClaimsExtracted)
	cmd.Printf("  Evidence created:   %d\n", result.EvidenceCreated)
	cmd.Printf("  Duplicates skipped: %d\n", result.DuplicatesSkipped)
	cmd.Printf("  Elapsed:            %dms\n", result.ElapsedMs)
	if len(result.Errors) > 0 {
		cmd.Printf("  Errors (%d):\n", len(result.Errors))
		for _, e := range result.Errors {
			cmd.Printf("    %s\n", e)
		}
	}
	return nil
}

// watchTree registers root and every subdirectory with the watcher.
func watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		return nil
	})
}

// matchesPatterns reports whether the slash-separated path matches any of
// the glob patterns. Malformed patterns never match.
func matchesPatterns(patterns []string, slashPath string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, slashPath); err == nil && ok {
			return true
		}
	}
	return false
}
