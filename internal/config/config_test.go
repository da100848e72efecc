package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockhunter/internal/domain"
)

func TestValidateRejectsEmptyDatabasePath(t *testing.T) {
	cfg := &Config{DatabasePath: "", Environment: domain.EnvPaper}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownEnvironment(t *testing.T) {
	cfg := &Config{DatabasePath: "x.db", Environment: domain.Environment("staging")}
	assert.Error(t, cfg.Validate())
}

func TestValidateAcceptsProdOrPaper(t *testing.T) {
	cfg := &Config{DatabasePath: "x.db", Environment: domain.EnvProduction}
	require.NoError(t, cfg.Validate())

	cfg.Environment = domain.EnvPaper
	require.NoError(t, cfg.Validate())
}

func TestBaseURLSelectsByEnvironment(t *testing.T) {
	cfg := &Config{
		Environment:  domain.EnvProduction,
		ProdBaseURL:  "https://prod",
		PaperBaseURL: "https://paper",
	}
	assert.Equal(t, "https://prod", cfg.BaseURL())

	cfg.Environment = domain.EnvPaper
	assert.Equal(t, "https://paper", cfg.BaseURL())
}

func TestGetEnvAsIntFallsBackOnInvalidValue(t *testing.T) {
	t.Setenv("STOCKHUNTER_TEST_INT", "not-a-number")
	assert.Equal(t, 42, getEnvAsInt("STOCKHUNTER_TEST_INT", 42))
}

func TestGetEnvAsBoolParsesTrue(t *testing.T) {
	t.Setenv("STOCKHUNTER_TEST_BOOL", "true")
	assert.True(t, getEnvAsBool("STOCKHUNTER_TEST_BOOL", false))
}
