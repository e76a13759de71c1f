package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rssnews/orchestrator/internal/application/services"
	"github.com/rssnews/orchestrator/internal/infrastructure/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logging.StructuredLogger {
	return logging.NewStructuredLogger(io.Discard, logging.ErrorLevel)
}

func TestLoadExperiments_EmptyPathIsNotAnError(t *testing.T) {
	router := services.NewExperimentRouter()
	err := loadExperiments("", router, testLogger())
	require.NoError(t, err)
	assert.Empty(t, router.ListActive())
}

func TestLoadExperiments_MissingFileIsNotAnError(t *testing.T) {
	router := services.NewExperimentRouter()
	err := loadExperiments(filepath.Join(t.TempDir(), "does-not-exist.yaml"), router, testLogger())
	require.NoError(t, err)
	assert.Empty(t, router.ListActive())
}

func TestLoadExperiments_RegistersValidExperiments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "experiments.yaml")
	yamlContent := `
experiments:
  - id: exp-1
    status: active
    target_commands: ["/ask"]
    arms:
      - id: control
        display_name: Control
        weight: 0.5
        enabled: true
      - id: treatment
        display_name: Treatment
        weight: 0.5
        enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	router := services.NewExperimentRouter()
	err := loadExperiments(path, router, testLogger())
	require.NoError(t, err)
	assert.Contains(t, router.ListActive(), "exp-1")
}

func TestLoadExperiments_SkipsInvalidEntriesButKeepsValid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "experiments.yaml")
	yamlContent := `
experiments:
  - id: bad-weights
    status: active
    target_commands: ["/ask"]
    arms:
      - id: only
        display_name: Only
        weight: 0.2
        enabled: true
  - id: good
    status: active
    target_commands: ["/predict"]
    arms:
      - id: control
        display_name: Control
        weight: 1.0
        enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	router := services.NewExperimentRouter()
	err := loadExperiments(path, router, testLogger())
	require.NoError(t, err)
	active := router.ListActive()
	assert.NotContains(t, active, "bad-weights")
	assert.Contains(t, active, "good")
}

func TestLoadExperiments_MalformedYAMLReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "experiments.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid yaml"), 0o644))

	router := services.NewExperimentRouter()
	err := loadExperiments(path, router, testLogger())
	assert.Error(t, err)
}
