package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsCmd_Use(t *testing.T) {
	assert.Equal(t, "stats", statsCmd.Use)
}

func TestStatsCmd_Short(t *testing.T) {
	assert.Equal(t, "Show vector index statistics", statsCmd.Short)
}

func TestStatsCmd_HasJSONFlag(t *testing.T) {
	flag := statsCmd.Flags().Lookup("json")
	require.NotNil(t, flag, "json flag should exist")
	assert.Equal(t, "false", flag.DefValue)
}

func TestStatsCmd_Executes(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"stats"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Provider:        memory")
	assert.Contains(t, out, "Embedding model: nomic-embed-text")
	assert.Contains(t, out, "Dimension:       768")
	assert.Contains(t, out, "Total vectors:   12")
	assert.Contains(t, out, "proj-a: 8 vectors, 8 evidence records")
	assert.Contains(t, out, "proj-b: 4 vectors, 4 evidence records")
}

func TestStatsCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"stats", "--json"})
	defer func() {
		rootCmd.SetArgs(nil)
		statsJSON = false // Reset flag
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "\"TotalVectors\"")
	assert.Contains(t, buf.String(), "\"Namespaces\"")
	assert.Contains(t, buf.String(), "\"Evidence\"")
}

func TestStatsCmd_IndexDisabled(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	oldService := vectorIndexService
	vectorIndexService = &mockVectorIndexDisabled{}
	defer func() {
		vectorIndexService = oldService
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"stats"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Vector index not configured.")
}

func TestStatsCmd_ServiceNotConfigured(t *testing.T) {
	oldService := vectorIndexService
	vectorIndexService = nil
	defer func() {
		vectorIndexService = oldService
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"stats"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "vector index service not configured")
}

func TestStatsCmd_StatsError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	oldService := vectorIndexService
	vectorIndexService = &mockVectorIndexStatsError{}
	defer func() {
		vectorIndexService = oldService
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"stats"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read index stats")
}

func TestStatsCmd_CountsSkippedWithoutStore(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	oldStore := evidenceStore
	evidenceStore = nil
	defer func() {
		evidenceStore = oldStore
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"stats"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "proj-a: 8 vectors")
	assert.NotContains(t, buf.String(), "evidence records")
}
