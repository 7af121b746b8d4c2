package main

import (
	"testing"

	"github.com/finsup/finops/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineChecksOnlyRequestedCredentials(t *testing.T) {
	t.Setenv("TEMPO_TOKEN", "")
	t.Setenv("JIRA_SITE", "example.atlassian.net")
	t.Setenv("JIRA_EMAIL", "finops@example.com")
	t.Setenv("JIRA_API_TOKEN", "jira-token")
	t.Setenv("HTTPS_PROXY", "")
	t.Setenv("CA_BUNDLE", "")

	// Replay talks to Jira only; a missing Tempo token must not block it.
	p, err := newPipeline(config.Config.RequireJira)
	require.NoError(t, err)
	require.NotNil(t, p.svc)

	// Bulk mode needs both.
	_, err = newPipeline(config.Config.RequireTempo, config.Config.RequireJira)
	assert.ErrorContains(t, err, "TEMPO_TOKEN")
}
