package tempo

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
	"time"

	"github.com/finsup/finops/internal/config"
	"github.com/rs/zerolog"
)

// Done terminates a Pager once every result has been yielded.
var Done = errors.New("tempo: no more results")

type Client struct {
	baseURL   string
	token     string
	http      *http.Client
	log       zerolog.Logger
	pageSize  int
	pageDelay time.Duration
}

func NewClient(cfg config.Config, hc *http.Client, log zerolog.Logger) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.TempoBaseURL, "/"),
		token:     cfg.TempoToken,
		http:      hc,
		log:       log,
		pageSize:  cfg.PageSize,
		pageDelay: cfg.PageDelay,
	}
}

type page struct {
	Results  []json.RawMessage `json:"results"`
	Metadata struct {
		Count int `json:"count"`
	} `json:"metadata"`
}

// Pager walks an offset/limit endpoint lazily. It is finite and
// non-restartable: after Done it only returns Done again.
type Pager struct {
	c        *Client
	endpoint string
	params   url.Values
	buf      []json.RawMessage
	offset   int
	total    int
	fetched  bool
	done     bool
}

// Pages prepares a lazy walk over endpoint. No request is issued until the
// first Next call.
func (c *Client) Pages(endpoint string, params url.Values) *Pager {
	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	return &Pager{c: c, endpoint: endpoint, params: q}
}

// Next returns the next raw result object, fetching pages as needed.
// Any non-2xx response aborts the walk; there are no retries.
func (p *Pager) Next(ctx context.Context) (json.RawMessage, error) {
	for len(p.buf) == 0 {
		if p.done {
			return nil, Done
		}
		if p.fetched {
			if p.offset+p.c.pageSize >= p.total {
				p.done = true
				return nil, Done
			}
			p.offset += p.c.pageSize
			time.Sleep(p.c.pageDelay) // rate-limit courtesy between pages
		}
		pg, err := p.c.getPage(ctx, p.endpoint, p.params, p.offset)
		if err != nil {
			p.done = true
			return nil, err
		}
		p.fetched = true
		p.total = pg.Metadata.Count
		p.buf = pg.Results
		if len(p.buf) == 0 {
			p.done = true
			return nil, Done
		}
	}
	out := p.buf[0]
	p.buf = p.buf[1:]
	return out, nil
}

func (c *Client) getPage(ctx context.Context, endpoint string, params url.Values, offset int) (*page, error) {
	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(c.pageSize))

	u := c.baseURL + endpoint + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tempo: GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tempo api status=%d endpoint=%s body=%s",
			resp.StatusCode, endpoint, strings.TrimSpace(string(b)))
	}
	var pg page
	if err := json.NewDecoder(resp.Body).Decode(&pg); err != nil {
		return nil, fmt.Errorf("tempo: decode %s: %w", endpoint, err)
	}
	return &pg, nil
}

// ProjectWorklogs drains every worklog for one Jira project id in the
// [from, to] date window.
func (c *Client) ProjectWorklogs(ctx context.Context, projectID int64, from, to time.Time) ([]Worklog, error) {
	params := url.Values{}
	params.Set("from", from.Format("2006-01-02"))
	params.Set("to", to.Format("2006-01-02"))

	endpoint := "/worklogs/project/" + strconv.FormatInt(projectID, 10)
	pager := c.Pages(endpoint, params)
	var out []Worklog
	for {
		raw, err := pager.Next(ctx)
		if errors.Is(err, Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		var w Worklog
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("tempo: decode worklog: %w", err)
		}
		out = append(out, w)
	}
	c.log.Info().Int("worklogs", len(out)).Int64("project_id", projectID).
		Str("from", params.Get("from")).Str("to", params.Get("to")).Msg("tempo pull complete")
	return out, nil
}

// Accounts drains the Tempo accounts visible to the token.
func (c *Client) Accounts(ctx context.Context) ([]Account, error) {
	pager := c.Pages("/accounts", nil)
	var out []Account
	for {
		raw, err := pager.Next(ctx)
		if errors.Is(err, Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		var a Account
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("tempo: decode account: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}
