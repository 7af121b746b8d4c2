package jira

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/finsup/finops/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const issueJSON = `{
	"id": "10001",
	"key": "FIN-1",
	"fields": {
		"project": {"id": "10000", "key": "FIN", "name": "Coupa"},
		"issuetype": {"name": "Task"},
		"labels": ["bau", "close"],
		"components": [{"name": "AP"}, {"name": "GL"}]
	}
}`

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.Config{
		JiraSite:     srv.URL,
		JiraEmail:    "svc@example.com",
		JiraAPIToken: "token",
		HTTPTimeout:  5 * time.Second,
	}
	return NewClient(cfg, nil, zerolog.Nop())
}

func TestProjectID(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "svc@example.com", user)
		assert.Equal(t, "token", pass)
		assert.Equal(t, "/rest/api/3/project/FIN", r.URL.Path)
		fmt.Fprint(w, `{"id": "10000", "key": "FIN", "name": "Coupa"}`)
	}))

	id, err := c.ProjectID(context.Background(), "FIN")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), id)
}

func TestProjectIDNotFoundIsError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errorMessages":["No project"]}`, http.StatusNotFound)
	}))

	_, err := c.ProjectID(context.Background(), "NOPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=404")
}

func TestIssueKeyByID(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/3/issue/10001", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("fields"))
		fmt.Fprint(w, `{"id": "10001", "key": "FIN-1"}`)
	}))

	key, err := c.IssueKeyByID(context.Background(), 10001)
	require.NoError(t, err)
	assert.Equal(t, "FIN-1", key)
}

func TestSearchIssues(t *testing.T) {
	var gotJQL, gotFields string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/3/search", r.URL.Path)
		gotJQL = r.URL.Query().Get("jql")
		gotFields = r.URL.Query().Get("fields")
		fmt.Fprintf(w, `{"issues": [%s]}`, issueJSON)
	}))

	issues, err := c.SearchIssues(context.Background(), []string{"FIN-1", "FIN-2"})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "issuekey in (FIN-1,FIN-2)", gotJQL)
	assert.Equal(t, MetadataFields, gotFields)

	meta := issues[0].Metadata()
	assert.Equal(t, "FIN-1", meta.IssueKey)
	assert.Equal(t, "FIN", meta.ProjectKey)
	assert.Equal(t, "Coupa", meta.ProjectName)
	assert.Equal(t, "Task", meta.IssueType)
	assert.Equal(t, []string{"bau", "close"}, meta.Labels)
	assert.Equal(t, []string{"AP", "GL"}, meta.Components)
}

func TestSearchIssuesRejectsOversizedBatch(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))

	keys := make([]string, 101)
	for i := range keys {
		keys[i] = fmt.Sprintf("FIN-%d", i)
	}
	_, err := c.SearchIssues(context.Background(), keys)
	assert.ErrorContains(t, err, "100-key ceiling")
}

func TestSearchIssuesEmptyKeys(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))
	issues, err := c.SearchIssues(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, issues)
}

func TestIssueBySelfMatchesSearchShape(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/rest/api/3/issue/") {
			assert.Equal(t, MetadataFields, r.URL.Query().Get("fields"))
			fmt.Fprint(w, issueJSON)
			return
		}
		http.NotFound(w, r)
	}))

	// The self link points back at the same site in production; the test
	// server stands in for it here.
	issue, err := c.IssueBySelf(context.Background(), c.baseURL+"/rest/api/3/issue/10001")
	require.NoError(t, err)
	assert.Equal(t, "FIN-1", issue.Key)
	assert.Equal(t, "Coupa", issue.Fields.Project.Name)
}

func TestIssueBySelfRejectsInvalidURL(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	_, err := c.IssueBySelf(context.Background(), "not-a-url")
	assert.Error(t, err)
}

func TestUserDisplayName(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/3/user", r.URL.Path)
		assert.Equal(t, "acc-1", r.URL.Query().Get("accountId"))
		fmt.Fprint(w, `{"accountId": "acc-1", "displayName": "Alice"}`)
	}))

	name, err := c.UserDisplayName(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)
}
