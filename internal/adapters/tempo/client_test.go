package tempo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/finsup/finops/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler, pageSize int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.Config{
		TempoBaseURL: srv.URL,
		TempoToken:   "test-token",
		PageSize:     pageSize,
		PageDelay:    0,
		HTTPTimeout:  5 * time.Second,
	}
	return NewClient(cfg, nil, zerolog.Nop())
}

// pagedHandler serves total numbered items in offset/limit pages.
func pagedHandler(t *testing.T, total int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		assert.Positive(t, limit)

		var results []map[string]any
		for i := offset; i < offset+limit && i < total; i++ {
			results = append(results, map[string]any{"tempoWorklogId": i})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results":  results,
			"metadata": map[string]any{"count": total},
		})
	})
}

func drain(t *testing.T, p *Pager) []json.RawMessage {
	t.Helper()
	var out []json.RawMessage
	for {
		raw, err := p.Next(context.Background())
		if errors.Is(err, Done) {
			return out
		}
		require.NoError(t, err)
		out = append(out, raw)
	}
}

func TestPagerWalksEveryPage(t *testing.T) {
	c := testClient(t, pagedHandler(t, 5), 2)
	items := drain(t, c.Pages("/worklogs", nil))
	assert.Len(t, items, 5)
}

func TestPagerSinglePage(t *testing.T) {
	c := testClient(t, pagedHandler(t, 2), 100)
	items := drain(t, c.Pages("/worklogs", nil))
	assert.Len(t, items, 2)
}

func TestPagerEmptyResult(t *testing.T) {
	c := testClient(t, pagedHandler(t, 0), 100)
	items := drain(t, c.Pages("/worklogs", nil))
	assert.Empty(t, items)
}

func TestPagerExhaustedStaysDone(t *testing.T) {
	c := testClient(t, pagedHandler(t, 1), 100)
	p := c.Pages("/worklogs", nil)
	drain(t, p)
	_, err := p.Next(context.Background())
	assert.ErrorIs(t, err, Done)
	_, err = p.Next(context.Background())
	assert.ErrorIs(t, err, Done)
}

func TestPagerAbortsOnHTTPError(t *testing.T) {
	calls := 0
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"errors":[{"message":"boom"}]}`, http.StatusInternalServerError)
	}), 100)

	_, err := c.Pages("/worklogs", nil).Next(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=500")
	assert.Equal(t, 1, calls) // no retry
}

func TestProjectWorklogsDecodesAndFilters(t *testing.T) {
	var gotPath, gotFrom, gotTo string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFrom = r.URL.Query().Get("from")
		gotTo = r.URL.Query().Get("to")
		fmt.Fprint(w, `{
			"results": [{"tempoWorklogId": 7, "timeSpentSeconds": 3600, "issue": {"id": 101}}],
			"metadata": {"count": 1}
		}`)
	}), 100)

	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	worklogs, err := c.ProjectWorklogs(context.Background(), 12345, from, to)
	require.NoError(t, err)
	require.Len(t, worklogs, 1)
	assert.Equal(t, int64(7), worklogs[0].TempoWorklogID)
	assert.Equal(t, int64(101), worklogs[0].Issue.ID)
	assert.Equal(t, "/worklogs/project/12345", gotPath)
	assert.Equal(t, "2024-06-01", gotFrom)
	assert.Equal(t, "2024-06-30", gotTo)
}

func TestAccounts(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts", r.URL.Path)
		fmt.Fprint(w, `{
			"results": [{"id": 1, "key": "FIN", "name": "Finance", "status": "OPEN"}],
			"metadata": {"count": 1}
		}`)
	}), 100)

	accounts, err := c.Accounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "FIN", accounts[0].Key)
	assert.Equal(t, "Finance", accounts[0].Name)
}
