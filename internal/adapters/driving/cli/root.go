// Package cli implements the ClaimLens command line interface.
// Commands are thin adapters: they parse flags, call driving-port services
// wired in root.go, and format results. Business rules live in the services.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/claimlens/internal/adapters/driven/ai"
	"github.com/custodia-labs/claimlens/internal/adapters/driven/config/file"
	"github.com/custodia-labs/claimlens/internal/adapters/driven/fetch"
	"github.com/custodia-labs/claimlens/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/claimlens/internal/core/ports/driven"
	"github.com/custodia-labs/claimlens/internal/core/ports/driving"
	"github.com/custodia-labs/claimlens/internal/core/services"
	"github.com/custodia-labs/claimlens/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// verboseFlag enables debug logging for the linking pipeline.
var verboseFlag bool

// Services wired by initServices. Commands check for nil and fail with a
// clear message, so a partially configured installation still runs the
// commands its configuration supports.
var (
	settingsService    driving.SettingsService
	ingestionService   driving.IngestionService
	evidenceLinker     driving.EvidenceLinker
	dedupService       driving.DedupService
	vectorIndexService driving.VectorIndexService
	evidenceStore      driven.EvidenceStore
)

// Closed on exit by closeServices.
var (
	aiServices *ai.InitResult
	dbStore    *sqlite.Store
)

var rootCmd = &cobra.Command{
	Use:   "claimlens",
	Short: "Semantic evidence retrieval and linking",
	Long: `ClaimLens ingests documents into evidence, links premises to relevant
evidence through vector search, LLM reranking and relationship
classification, and detects near-duplicate evidence within a project.

Configure providers with 'claimlens settings wizard', then ingest documents
and link premises against them.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose pipeline logging")
}

// Execute wires the services and runs the command tree.
// Wiring failures degrade rather than abort: each command reports which
// service it is missing.
func Execute() int {
	if err := initServices(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	defer closeServices()

	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// initServices builds the full service graph from the stored settings.
func initServices() error {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}

	settingsService = services.NewSettingsService(configStore, ai.NewConfigValidator())

	settings, err := settingsService.Get()
	if err != nil {
		defaults := settingsService.GetDefaults()
		settings = &defaults
	}

	aiServices = ai.InitServices(settings)
	for _, warning := range aiServices.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}

	store, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("open evidence store: %w", err)
	}
	dbStore = store
	evidenceStore = store.EvidenceStore()

	index := services.NewVectorIndex(
		aiServices.EmbeddingService,
		aiServices.VectorStore,
		string(settings.VectorDB.Provider),
	)
	vectorIndexService = index

	reranker := services.NewReranker(aiServices.LLMService)
	classifier := services.NewClassifier(aiServices.LLMService)
	if promptStore, err := file.NewPromptStore(""); err == nil {
		reranker.SetPromptStore(promptStore)
		classifier.SetPromptStore(promptStore)
	}

	evidenceLinker = services.NewLinking(index, reranker, classifier)
	ingestionService = services.NewIngestion(
		aiServices.ClaimExtractor,
		index,
		evidenceStore,
		fetch.NewFetcher(fetch.Config{}),
	)
	dedupService = services.NewDedup(evidenceStore, index)

	return nil
}

// closeServices releases adapter resources in reverse wiring order.
func closeServices() {
	if dbStore != nil {
		_ = dbStore.Close()
	}
	if aiServices != nil {
		aiServices.Close()
	}
}
