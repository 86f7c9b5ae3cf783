package cli

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/claimlens/internal/core/domain"
	"github.com/custodia-labs/claimlens/internal/core/ports/driving"
)

// setupTestServices swaps happy-path mocks into the package service vars
// and returns a cleanup that restores the originals.
func setupTestServices() func() {
	oldSettings := settingsService
	oldIngestion := ingestionService
	oldLinker := evidenceLinker
	oldDedup := dedupService
	oldIndex := vectorIndexService
	oldStore := evidenceStore

	settingsService = newMockSettingsService()
	ingestionService = &mockIngestionService{}
	evidenceLinker = &mockLinkerService{}
	dedupService = &mockDedupService{}
	vectorIndexService = &mockVectorIndexService{}
	evidenceStore = &mockEvidenceStore{}

	return func() {
		settingsService = oldSettings
		ingestionService = oldIngestion
		evidenceLinker = oldLinker
		dedupService = oldDedup
		vectorIndexService = oldIndex
		evidenceStore = oldStore
	}
}

// mockLinkerService returns two fixed matches for any premise.
type mockLinkerService struct{}

func (m *mockLinkerService) Link(_ context.Context, premise, projectID string, _ domain.LinkOptions) (*domain.LinkingResult, error) {
	return &domain.LinkingResult{
		Premise:   premise,
		ProjectID: projectID,
		LinkedEvidence: []domain.LinkedEvidence{
			{
				EvidenceID:   "ev-1",
				EvidenceText: "Remote teams report higher output in three longitudinal studies.",
				Relationship: domain.RelationshipSupports,
				Confidence:   0.9,
				VectorScore:  0.82,
				RerankScore:  0.9,
				SourceTitle:  "Remote Work Study",
			},
			{
				EvidenceID:   "ev-2",
				EvidenceText: "Office presence correlates with faster onboarding.",
				Relationship: domain.RelationshipRefutes,
				Confidence:   0.7,
				VectorScore:  0.61,
				RerankScore:  0.65,
			},
		},
		Stats: domain.LinkStats{
			CandidatesFound:  5,
			AfterReranking:   2,
			AfterFiltering:   2,
			ProcessingTimeMs: 12,
		},
	}, nil
}

func (m *mockLinkerService) LinkBatch(ctx context.Context, premises []string, projectID string, opts domain.LinkOptions) ([]domain.LinkingResult, error) {
	results := make([]domain.LinkingResult, 0, len(premises))
	for _, premise := range premises {
		result, err := m.Link(ctx, premise, projectID, opts)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}
	return results, nil
}

type mockLinkerServiceError struct{}

func (m *mockLinkerServiceError) Link(context.Context, string, string, domain.LinkOptions) (*domain.LinkingResult, error) {
	return nil, errors.New("vector index unavailable")
}

func (m *mockLinkerServiceError) LinkBatch(context.Context, []string, string, domain.LinkOptions) ([]domain.LinkingResult, error) {
	return nil, errors.New("vector index unavailable")
}

// mockIngestionService reports a fixed successful run for any input.
type mockIngestionService struct{}

func (m *mockIngestionService) result() *domain.IngestionResult {
	return &domain.IngestionResult{
		ArtifactID:      "artifact-1",
		ChunksProcessed: 1,
		ClaimsExtracted: 2,
		EvidenceCreated: 2,
		EvidenceIDs:     []string{"ev-1", "ev-2"},
		ElapsedMs:       3,
	}
}

func (m *mockIngestionService) Ingest(context.Context, string, domain.IngestSource, string, string, domain.IngestOptions) (*domain.IngestionResult, error) {
	return m.result(), nil
}

func (m *mockIngestionService) IngestURL(context.Context, string, string, string, domain.IngestOptions) (*domain.IngestionResult, error) {
	return m.result(), nil
}

func (m *mockIngestionService) IngestFile(context.Context, string, string, string, domain.IngestOptions) (*domain.IngestionResult, error) {
	return m.result(), nil
}

func (m *mockIngestionService) IngestDirectory(context.Context, string, string, string, domain.DirectoryOptions) (*domain.DirectoryResult, error) {
	return &domain.DirectoryResult{
		FilesMatched:      2,
		FilesIngested:     2,
		EvidenceCreated:   4,
		DuplicatesSkipped: 1,
	}, nil
}

func (m *mockIngestionService) RemoveArtifact(context.Context, string, string) (int, error) {
	return 3, nil
}

type mockIngestionServiceError struct{}

func (m *mockIngestionServiceError) Ingest(context.Context, string, domain.IngestSource, string, string, domain.IngestOptions) (*domain.IngestionResult, error) {
	return nil, errors.New("extraction service unreachable")
}

func (m *mockIngestionServiceError) IngestURL(context.Context, string, string, string, domain.IngestOptions) (*domain.IngestionResult, error) {
	return nil, errors.New("extraction service unreachable")
}

func (m *mockIngestionServiceError) IngestFile(context.Context, string, string, string, domain.IngestOptions) (*domain.IngestionResult, error) {
	return nil, errors.New("extraction service unreachable")
}

func (m *mockIngestionServiceError) IngestDirectory(context.Context, string, string, string, domain.DirectoryOptions) (*domain.DirectoryResult, error) {
	return nil, errors.New("extraction service unreachable")
}

func (m *mockIngestionServiceError) RemoveArtifact(context.Context, string, string) (int, error) {
	return 0, errors.New("extraction service unreachable")
}

// mockDedupService reports one cluster with one member.
type mockDedupService struct{}

func (m *mockDedupService) report(projectID string, threshold float64) *domain.DedupReport {
	if threshold == 0 {
		threshold = domain.DefaultDedupThreshold
	}
	return &domain.DedupReport{
		ProjectID: projectID,
		Threshold: threshold,
		Clusters: []domain.DuplicateCluster{
			{
				ClusterID: "cluster-1",
				Representative: domain.ClusterRepresentative{
					ID:   "ev-1",
					Text: "Atmospheric CO2 reached a record high in 2023.",
				},
				Members: []domain.ClusterMember{
					{ID: "ev-2", Text: "2023 saw record atmospheric CO2 levels.", Similarity: 0.95},
				},
			},
		},
		TotalEvidence:     10,
		DuplicateCount:    1,
		SavingsPercentage: 10,
		GeneratedAt:       time.Now(),
	}
}

func (m *mockDedupService) FindClusters(_ context.Context, projectID string, threshold float64) ([]domain.DuplicateCluster, error) {
	return m.report(projectID, threshold).Clusters, nil
}

func (m *mockDedupService) GenerateReport(_ context.Context, projectID string, threshold float64) (*domain.DedupReport, error) {
	return m.report(projectID, threshold), nil
}

func (m *mockDedupService) ArchiveDuplicates(_ context.Context, report *domain.DedupReport) (int, error) {
	return report.DuplicateCount, nil
}

type mockDedupServiceEmpty struct{}

func (m *mockDedupServiceEmpty) FindClusters(context.Context, string, float64) ([]domain.DuplicateCluster, error) {
	return nil, nil
}

func (m *mockDedupServiceEmpty) GenerateReport(_ context.Context, projectID string, threshold float64) (*domain.DedupReport, error) {
	return &domain.DedupReport{
		ProjectID:     projectID,
		Threshold:     threshold,
		TotalEvidence: 5,
		GeneratedAt:   time.Now(),
	}, nil
}

func (m *mockDedupServiceEmpty) ArchiveDuplicates(context.Context, *domain.DedupReport) (int, error) {
	return 0, nil
}

type mockDedupServiceError struct{}

func (m *mockDedupServiceError) FindClusters(context.Context, string, float64) ([]domain.DuplicateCluster, error) {
	return nil, errors.New("vector index unavailable")
}

func (m *mockDedupServiceError) GenerateReport(context.Context, string, float64) (*domain.DedupReport, error) {
	return nil, errors.New("vector index unavailable")
}

func (m *mockDedupServiceError) ArchiveDuplicates(context.Context, *domain.DedupReport) (int, error) {
	return 0, errors.New("vector index unavailable")
}

// mockVectorIndexService reports a small two-project index.
type mockVectorIndexService struct{}

func (m *mockVectorIndexService) Enabled() bool { return true }

func (m *mockVectorIndexService) UpsertEvidence(context.Context, domain.Evidence) error {
	return nil
}

func (m *mockVectorIndexService) UpsertBatch(_ context.Context, evs []domain.Evidence) (*driving.BatchIndexResult, error) {
	return &driving.BatchIndexResult{Success: len(evs)}, nil
}

func (m *mockVectorIndexService) Search(context.Context, string, string, driving.IndexSearchOptions) ([]domain.SimilarityResult, error) {
	return nil, nil
}

func (m *mockVectorIndexService) CheckDuplicate(context.Context, string, string, float64) (*domain.SimilarityResult, bool, error) {
	return nil, false, nil
}

func (m *mockVectorIndexService) DeleteEvidence(context.Context, string, []string) error {
	return nil
}

func (m *mockVectorIndexService) DeleteProject(context.Context, string) error {
	return nil
}

func (m *mockVectorIndexService) Stats(context.Context) (*driving.IndexStatus, error) {
	return &driving.IndexStatus{
		Provider:       "memory",
		EmbeddingModel: "nomic-embed-text",
		Dimension:      768,
		TotalVectors:   12,
		Namespaces:     map[string]int{"proj-a": 8, "proj-b": 4},
	}, nil
}

type mockVectorIndexDisabled struct {
	mockVectorIndexService
}

func (m *mockVectorIndexDisabled) Enabled() bool { return false }

type mockVectorIndexStatsError struct {
	mockVectorIndexService
}

func (m *mockVectorIndexStatsError) Stats(context.Context) (*driving.IndexStatus, error) {
	return nil, errors.New("store unreachable")
}

// mockEvidenceStore serves two fixed records for proj-a and the
// per-project counts the stats command reads.
type mockEvidenceStore struct{}

func storedEvidence() []domain.Evidence {
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return []domain.Evidence{
		{
			ID:          "ev-1",
			ProjectID:   "proj-a",
			Text:        "Remote teams report higher output in three longitudinal studies.",
			Type:        domain.EvidenceTypeStudy,
			SourceType:  domain.SourceTypeURL,
			SourceURL:   "https://example.org/remote-work",
			SourceTitle: "Remote Work Study",
			Keywords:    []string{"remote", "productivity"},
			Status:      domain.EvidenceStatusActive,
			ArtifactID:  "artifact-1",
			ChunkIndex:  0,
			CreatedAt:   created,
			UpdatedAt:   created,
		},
		{
			ID:         "ev-2",
			ProjectID:  "proj-a",
			Text:       "Office presence correlates with faster onboarding.",
			Type:       domain.EvidenceTypeArticle,
			SourceType: domain.SourceTypeDocument,
			Status:     domain.EvidenceStatusActive,
			ArtifactID: "artifact-1",
			ChunkIndex: 1,
			CreatedAt:  created,
			UpdatedAt:  created,
		},
	}
}

func (m *mockEvidenceStore) Create(context.Context, *domain.Evidence) error { return nil }

func (m *mockEvidenceStore) Get(_ context.Context, id string) (*domain.Evidence, error) {
	for _, ev := range storedEvidence() {
		if ev.ID == id {
			found := ev
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockEvidenceStore) ListByProject(_ context.Context, projectID string) ([]domain.Evidence, error) {
	if projectID == "proj-a" {
		return storedEvidence(), nil
	}
	return nil, nil
}

func (m *mockEvidenceStore) ListByArtifact(_ context.Context, artifactID string) ([]domain.Evidence, error) {
	if artifactID == "artifact-1" {
		return storedEvidence(), nil
	}
	return nil, nil
}

func (m *mockEvidenceStore) UpdateStatus(context.Context, string, domain.EvidenceStatus) error {
	return nil
}

func (m *mockEvidenceStore) Delete(context.Context, string) error { return nil }

func (m *mockEvidenceStore) CountByProject(_ context.Context, projectID string) (int, error) {
	if projectID == "proj-a" {
		return 8, nil
	}
	return 4, nil
}

// mockEvidenceStoreError fails every operation.
type mockEvidenceStoreError struct{}

func (m *mockEvidenceStoreError) Create(context.Context, *domain.Evidence) error {
	return errors.New("store offline")
}

func (m *mockEvidenceStoreError) Get(context.Context, string) (*domain.Evidence, error) {
	return nil, errors.New("store offline")
}

func (m *mockEvidenceStoreError) ListByProject(context.Context, string) ([]domain.Evidence, error) {
	return nil, errors.New("store offline")
}

func (m *mockEvidenceStoreError) ListByArtifact(context.Context, string) ([]domain.Evidence, error) {
	return nil, errors.New("store offline")
}

func (m *mockEvidenceStoreError) UpdateStatus(context.Context, string, domain.EvidenceStatus) error {
	return errors.New("store offline")
}

func (m *mockEvidenceStoreError) Delete(context.Context, string) error {
	return errors.New("store offline")
}

func (m *mockEvidenceStoreError) CountByProject(context.Context, string) (int, error) {
	return 0, errors.New("store offline")
}

// mockSettingsService holds settings in memory with Ollama providers
// configured.
type mockSettingsService struct {
	settings domain.AppSettings
}

func newMockSettingsService() *mockSettingsService {
	settings := domain.DefaultAppSettings()
	settings.Embedding = domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		Model:    "nomic-embed-text",
		BaseURL:  "http://localhost:11434",
	}
	settings.LLM = domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		Model:    "llama3.2",
		BaseURL:  "http://localhost:11434",
	}
	return &mockSettingsService{settings: settings}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	settings := m.settings
	return &settings, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.Embedding.Provider = provider
	m.settings.Embedding.Model = model
	m.settings.Embedding.APIKey = apiKey
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.LLM.Provider = provider
	m.settings.LLM.Model = model
	m.settings.LLM.APIKey = apiKey
	return nil
}

func (m *mockSettingsService) SetVectorDBProvider(provider domain.VectorDBProvider, apiKey, indexHost string) error {
	m.settings.VectorDB.Provider = provider
	m.settings.VectorDB.APIKey = apiKey
	m.settings.VectorDB.IndexHost = indexHost
	return nil
}

func (m *mockSettingsService) SetExtractionEndpoint(baseURL string) error {
	m.settings.Extraction.BaseURL = baseURL
	return nil
}

func (m *mockSettingsService) Validate() error { return nil }

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error { return nil }

func (m *mockSettingsService) ValidateLLMConfig() error { return nil }

func (m *mockSettingsService) ValidateVectorDBConfig() error { return nil }
