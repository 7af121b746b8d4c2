package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/finsup/finops/internal/config"
	"github.com/rs/zerolog"
)

// MetadataFields is the field set every retrieval strategy requests so both
// produce the same IssueMetadata shape.
const MetadataFields = "project,issuetype,labels,components"

type Client struct {
	baseURL string
	email   string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(cfg config.Config, hc *http.Client, log zerolog.Logger) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	site := strings.TrimRight(cfg.JiraSite, "/")
	if site != "" && !strings.HasPrefix(site, "http") {
		site = "https://" + site
	}
	return &Client{
		baseURL: site,
		email:   cfg.JiraEmail,
		token:   cfg.JiraAPIToken,
		http:    hc,
		log:     log,
	}
}

func (c *Client) apiURL(path string, q url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(q) > 0 {
		u = u + "?" + q.Encode()
	}
	return u
}

func (c *Client) get(ctx context.Context, u string, out any) error {
	if c.baseURL == "" {
		return errors.New("jira: empty site URL")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.email, c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("jira api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type projectResponse struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// ProjectID resolves a project key to the numeric id the worklog API
// requires. A failed lookup is fatal to the run.
func (c *Client) ProjectID(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, errors.New("jira: empty project key")
	}
	var pr projectResponse
	u := c.apiURL("/rest/api/3/project/"+url.PathEscape(key), nil)
	if err := c.get(ctx, u, &pr); err != nil {
		return 0, fmt.Errorf("jira: resolve project %s: %w", key, err)
	}
	id, err := strconv.ParseInt(pr.ID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("jira: project %s has non-numeric id %q", key, pr.ID)
	}
	return id, nil
}

// IssueKeyByID resolves a numeric issue id to its key.
func (c *Client) IssueKeyByID(ctx context.Context, id int64) (string, error) {
	q := url.Values{}
	q.Set("fields", "key")
	var is Issue
	u := c.apiURL("/rest/api/3/issue/"+strconv.FormatInt(id, 10), q)
	if err := c.get(ctx, u, &is); err != nil {
		return "", err
	}
	if is.Key == "" {
		return "", fmt.Errorf("jira: issue %d has no key", id)
	}
	return is.Key, nil
}

type searchResponse struct {
	Issues []Issue `json:"issues"`
}

// SearchIssues fetches metadata for up to 100 issue keys in one structured
// query. Keys the API does not return are simply absent from the result.
func (c *Client) SearchIssues(ctx context.Context, keys []string) ([]Issue, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if len(keys) > 100 {
		return nil, fmt.Errorf("jira: batch of %d exceeds the 100-key ceiling", len(keys))
	}
	q := url.Values{}
	q.Set("jql", fmt.Sprintf("issuekey in (%s)", strings.Join(keys, ",")))
	q.Set("fields", MetadataFields)
	q.Set("maxResults", strconv.Itoa(len(keys)))
	q.Set("validateQuery", "none") // keys deleted since logging must not fail the batch

	var sr searchResponse
	if err := c.get(ctx, c.apiURL("/rest/api/3/search", q), &sr); err != nil {
		return nil, err
	}
	return sr.Issues, nil
}

// IssueBySelf fetches one issue through its resource link, for records that
// carry a self URL but no key. Yields the same shape as SearchIssues.
func (c *Client) IssueBySelf(ctx context.Context, selfURL string) (Issue, error) {
	u, err := url.Parse(selfURL)
	if err != nil || u.Host == "" {
		return Issue{}, fmt.Errorf("jira: invalid issue link %q", selfURL)
	}
	q := u.Query()
	q.Set("fields", MetadataFields)
	u.RawQuery = q.Encode()

	var is Issue
	if err := c.get(ctx, u.String(), &is); err != nil {
		return Issue{}, err
	}
	return is, nil
}

type userResponse struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
}

// UserDisplayName resolves an account id to a display name.
func (c *Client) UserDisplayName(ctx context.Context, accountID string) (string, error) {
	q := url.Values{}
	q.Set("accountId", accountID)
	var ur userResponse
	if err := c.get(ctx, c.apiURL("/rest/api/3/user", q), &ur); err != nil {
		return "", err
	}
	if ur.DisplayName == "" {
		return "", fmt.Errorf("jira: account %s has no display name", accountID)
	}
	return ur.DisplayName, nil
}
