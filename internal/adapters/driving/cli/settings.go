package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/claimlens/internal/adapters/driven/extraction/mlapi"
	"github.com/custodia-labs/claimlens/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers, the vector database, and pipeline options.

Use subcommands to configure specific settings or run the interactive wizard.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure all settings step by step.`,
	RunE:  runSettingsWizard,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider used to vectorise evidence and premises.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider used for reranking and relationship classification.`,
	RunE:  runSettingsLLM,
}

var settingsVectorDBCmd = &cobra.Command{
	Use:   "vectordb",
	Short: "Configure vector database",
	Long:  `Configure the vector database backend used to store evidence embeddings.`,
	RunE:  runSettingsVectorDB,
}

var settingsExtractionCmd = &cobra.Command{
	Use:   "extraction",
	Short: "Configure claim extraction service",
	Long:  `Configure the claim extraction service endpoint used during ingestion.`,
	RunE:  runSettingsExtraction,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsVectorDBCmd)
	settingsCmd.AddCommand(settingsExtractionCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	// Embedding settings
	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		if settings.Embedding.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Embedding.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !settings.Embedding.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	// LLM settings
	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		if settings.LLM.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.LLM.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status = "configured"
	if !settings.LLM.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	// Vector database settings
	cmd.Println("[Vector Database]")
	cmd.Printf("  Provider: %s\n", settings.VectorDB.Provider.Description())
	if settings.VectorDB.Provider.RequiresAPIKey() {
		if settings.VectorDB.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.VectorDB.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
		cmd.Printf("  Index host: %s\n", settings.VectorDB.IndexHost)
	}
	if settings.VectorDB.Path != "" {
		cmd.Printf("  Path: %s\n", settings.VectorDB.Path)
	}
	cmd.Printf("  Dimensions: %d\n", settings.VectorDB.Dimensions)
	status = "configured"
	if !settings.VectorDB.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	// Extraction settings
	cmd.Println("[Extraction]")
	if settings.Extraction.IsConfigured() {
		cmd.Printf("  Endpoint: %s\n", settings.Extraction.BaseURL)
		if settings.Extraction.TimeoutSeconds > 0 {
			cmd.Printf("  Timeout: %ds\n", settings.Extraction.TimeoutSeconds)
		}
	} else {
		cmd.Println("  Endpoint: (not set, chunks are ingested as single claims)")
	}
	cmd.Println()

	// Pipeline defaults
	cmd.Println("[Pipeline]")
	cmd.Printf("  Linking: top %d, rerank %d, min score %.2f\n",
		settings.Linking.TopK, settings.Linking.RerankK, settings.Linking.MinScore)
	cmd.Printf("  Ingestion: confidence %.2f, duplicate threshold %.2f\n",
		settings.Ingestion.ConfidenceThreshold, settings.Ingestion.DuplicateThreshold)
	cmd.Printf("  Dedup: threshold %.2f\n", settings.Dedup.Threshold)
	cmd.Println()

	// Validation
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'claimlens settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Println("ClaimLens Settings Wizard")
	cmd.Println("=========================")
	cmd.Println()

	reader := bufio.NewReader(os.Stdin)

	// Step 1: Embedding provider
	cmd.Println("Step 1: Configure Embedding Provider")
	cmd.Println("------------------------------------")
	cmd.Println("Embeddings drive linking, duplicate checks and dedup.")
	cmd.Println()

	if err := configureEmbeddingProvider(cmd, reader); err != nil {
		return err
	}

	// Step 2: LLM provider (optional)
	cmd.Println("Step 2: Configure LLM Provider")
	cmd.Println("------------------------------")
	cmd.Println("The LLM reranks candidates and classifies their relationship to a")
	cmd.Println("premise. Without one, linking ranks by vector score alone.")
	cmd.Print("\nConfigure an LLM provider? [Y/n]: ")
	if input := readLine(reader); strings.EqualFold(input, "n") {
		cmd.Println("Skipped. Linking will rank by vector score alone.")
		cmd.Println()
	} else {
		if err := configureLLMProvider(cmd, reader); err != nil {
			return err
		}
	}

	// Step 3: Vector database
	cmd.Println("Step 3: Configure Vector Database")
	cmd.Println("---------------------------------")
	cmd.Println()

	if err := configureVectorDBProvider(cmd, reader); err != nil {
		return err
	}

	// Step 4: Claim extraction service (optional)
	cmd.Println("Step 4: Claim Extraction Service")
	cmd.Println("--------------------------------")
	cmd.Println("The extraction service splits ingested chunks into individual claims.")
	cmd.Print("\nConfigure the claim extraction service? [y/N]: ")
	if input := readLine(reader); strings.EqualFold(input, "y") {
		if err := configureExtractionEndpoint(cmd, reader); err != nil {
			return err
		}
	} else {
		cmd.Println("Skipped. Each ingested chunk becomes a single claim.")
		cmd.Println()
	}

	// Final validation
	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}

	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(os.Stdin)
	return configureEmbeddingProvider(cmd, reader)
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(os.Stdin)
	return configureLLMProvider(cmd, reader)
}

func runSettingsVectorDB(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(os.Stdin)
	return configureVectorDBProvider(cmd, reader)
}

func runSettingsExtraction(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(os.Stdin)
	return configureExtractionEndpoint(cmd, reader)
}

//nolint:dupl // Similar to configureLLMProvider but for embeddings - intentional for CLI flow clarity
func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	// Get model
	defaults := domain.DefaultEmbeddingModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword()
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetEmbeddingProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

//nolint:dupl // Similar to configureEmbeddingProvider but for LLM - intentional for CLI flow clarity
func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	providers := domain.AllLLMProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	// Get model
	defaults := domain.DefaultLLMModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword()
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetLLMProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

func configureVectorDBProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Vector Database")
	providers := domain.AllVectorDBProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	// Memory is the out-of-the-box backend, so it is the default choice.
	defaultIdx := len(providers)
	cmd.Printf("\nEnter choice [%d]: ", defaultIdx)
	input := readLine(reader)
	idx := parseChoice(input, len(providers), defaultIdx)
	selectedProvider := providers[idx-1]

	// Get connection details if needed
	var apiKey, indexHost string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter index host URL: ")
		indexHost = readLine(reader)
		if indexHost == "" {
			return errors.New("index host is required for this provider")
		}
		cmd.Print("Enter API key: ")
		apiKey = readPassword()
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetVectorDBProvider(selectedProvider, apiKey, indexHost); err != nil {
		return fmt.Errorf("failed to configure vector database: %w", err)
	}

	// Validate the configuration by pinging the backend
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateVectorDBConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("vector database validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Vector database configured: %s\n\n", selectedProvider.Description())
	return nil
}

func configureExtractionEndpoint(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Printf("Enter extraction service URL [%s]: ", mlapi.DefaultBaseURL)
	baseURL := readLine(reader)
	if baseURL == "" {
		baseURL = mlapi.DefaultBaseURL
	}

	if err := settingsService.SetExtractionEndpoint(baseURL); err != nil {
		return fmt.Errorf("failed to configure extraction service: %w", err)
	}

	cmd.Printf("Extraction service configured: %s\n\n", baseURL)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
