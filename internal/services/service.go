package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/finsup/finops/internal/adapters/jira"
	"github.com/finsup/finops/internal/adapters/tempo"
	"github.com/finsup/finops/internal/config"
	"github.com/finsup/finops/internal/domain"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type WorklogSource interface {
	ProjectWorklogs(ctx context.Context, projectID int64, from, to time.Time) ([]tempo.Worklog, error)
}

type IssueDirectory interface {
	ProjectID(ctx context.Context, key string) (int64, error)
	IssueKeyByID(ctx context.Context, id int64) (string, error)
	SearchIssues(ctx context.Context, keys []string) ([]jira.Issue, error)
	IssueBySelf(ctx context.Context, selfURL string) (jira.Issue, error)
	UserDisplayName(ctx context.Context, accountID string) (string, error)
}

// nameCacheSize bounds the account-id→display-name cache; the cache lives
// for one run and is discarded with the Service.
const nameCacheSize = 512

// nameEntry caches the outcome of a display-name lookup, failures
// included, so each distinct account id hits the network at most once.
type nameEntry struct {
	name string
	ok   bool
}

type Service struct {
	cfg   config.Config
	log   zerolog.Logger
	tempo WorklogSource
	jira  IssueDirectory
	names *lru.Cache[string, nameEntry]
}

func New(cfg config.Config, log zerolog.Logger, t WorklogSource, j IssueDirectory) *Service {
	names, _ := lru.New[string, nameEntry](nameCacheSize)
	return &Service{cfg: cfg, log: log, tempo: t, jira: j, names: names}
}

// Result carries everything a run produces, written out only after the
// whole pipeline has succeeded.
type Result struct {
	Enriched []domain.EnrichedRecord
	Rows     []domain.UtilisationRow
}

// Run executes bulk mode: pull every worklog for the project over the
// lookback window and push it through the pipeline.
func (s *Service) Run(ctx context.Context, projectKey string, daysBack int) (*Result, error) {
	if daysBack <= 0 {
		return nil, fmt.Errorf("lookback window must be set explicitly (got %d days)", daysBack)
	}
	projectID, err := s.jira.ProjectID(ctx, projectKey)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("project", projectKey).Int64("project_id", projectID).Msg("project resolved")

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -daysBack)
	worklogs, err := s.tempo.ProjectWorklogs(ctx, projectID, from, to)
	if err != nil {
		return nil, err
	}

	events := make([]RawWorklogEvent, 0, len(worklogs))
	for _, w := range worklogs {
		events = append(events, BulkEvent(w))
	}
	return s.process(ctx, events)
}

// Replay executes webhook mode over a captured events file.
func (s *Service) Replay(ctx context.Context, path string) (*Result, error) {
	events, err := LoadWebhookEvents(path)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int("events", len(events)).Str("file", path).Msg("webhook events loaded")
	return s.process(ctx, events)
}

func (s *Service) process(ctx context.Context, events []RawWorklogEvent) (*Result, error) {
	records := make([]domain.WorklogRecord, 0, len(events))
	selfByID := map[int64]string{}
	for _, ev := range events {
		w := ev.worklog()
		if w.Issue.Key == "" && w.Issue.ID != 0 && w.Issue.Self != "" {
			selfByID[w.Issue.ID] = w.Issue.Self
		}
		records = append(records, Flatten(ev, s.resolveName(ctx)))
	}

	prefetched := s.resolveIssueKeys(ctx, records, selfByID)

	meta := s.fetchMetadata(ctx, records, prefetched)
	enriched := Enrich(records, meta)
	rows := Aggregate(enriched)

	s.log.Info().
		Int("records", len(records)).
		Int("issues", len(meta)).
		Int("buckets", len(rows)).
		Msg("pipeline complete")
	return &Result{Enriched: enriched, Rows: rows}, nil
}

// resolveName memoizes display-name lookups for the run. Failures are
// swallowed so the fallback chain can move on, and they are cached like
// successes so an unresolvable id is not re-queried per record.
func (s *Service) resolveName(ctx context.Context) NameResolver {
	return func(accountID string) (string, bool) {
		if e, cached := s.names.Get(accountID); cached {
			return e.name, e.ok
		}
		name, err := s.jira.UserDisplayName(ctx, accountID)
		if err != nil {
			s.log.Warn().Err(err).Str("account_id", accountID).Msg("display name lookup failed")
			s.names.Add(accountID, nameEntry{})
			return "", false
		}
		s.names.Add(accountID, nameEntry{name: name, ok: true})
		return name, true
	}
}

// resolveIssueKeys fills in keys for records that arrived with only a
// numeric issue id. Each distinct id is looked up once; when the id
// lookup fails but the event carried a per-issue resource link, the
// issue is fetched directly by that link, which also yields its
// metadata. A record whose id resolves nowhere is left without a key
// rather than failing the run.
func (s *Service) resolveIssueKeys(ctx context.Context, records []domain.WorklogRecord, selfByID map[int64]string) map[string]domain.IssueMetadata {
	pending := map[int64]struct{}{}
	for _, r := range records {
		if r.IssueKey == "" && r.IssueID != 0 {
			pending[r.IssueID] = struct{}{}
		}
	}
	if len(pending) == 0 {
		return nil
	}

	var mu sync.Mutex
	keyByID := make(map[int64]string, len(pending))
	prefetched := map[string]domain.IssueMetadata{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency())
	for id := range pending {
		id := id
		g.Go(func() error {
			key, err := s.jira.IssueKeyByID(gctx, id)
			if err == nil {
				mu.Lock()
				keyByID[id] = key
				mu.Unlock()
				return nil
			}
			self, ok := selfByID[id]
			if !ok {
				s.log.Warn().Err(err).Int64("issue_id", id).Msg("issue key resolution failed")
				return nil
			}
			issue, selfErr := s.jira.IssueBySelf(gctx, self)
			if selfErr != nil {
				s.log.Warn().Err(selfErr).Int64("issue_id", id).Str("self", self).Msg("issue key resolution failed")
				return nil
			}
			mu.Lock()
			keyByID[id] = issue.Key
			prefetched[issue.Key] = issue.Metadata()
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for i := range records {
		if records[i].IssueKey == "" {
			records[i].IssueKey = keyByID[records[i].IssueID]
		}
	}
	return prefetched
}

// fetchMetadata batch-fetches issue metadata for every distinct key, at
// most 100 keys per request. Keys whose metadata was already obtained by
// a direct-by-link fetch are skipped. A failed batch drops its keys from
// the metadata set; the downstream left join keeps those records with
// Unknown fields.
func (s *Service) fetchMetadata(ctx context.Context, records []domain.WorklogRecord, prefetched map[string]domain.IssueMetadata) map[string]domain.IssueMetadata {
	seen := map[string]struct{}{}
	var keys []string
	for _, r := range records {
		if r.IssueKey == "" {
			continue
		}
		if _, done := prefetched[r.IssueKey]; done {
			continue
		}
		if _, ok := seen[r.IssueKey]; !ok {
			seen[r.IssueKey] = struct{}{}
			keys = append(keys, r.IssueKey)
		}
	}

	meta := make(map[string]domain.IssueMetadata, len(keys)+len(prefetched))
	for k, m := range prefetched {
		meta[k] = m
	}
	if len(keys) == 0 {
		return meta
	}

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency())
	for start := 0; start < len(keys); start += 100 {
		end := start + 100
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[start:end]
		g.Go(func() error {
			issues, err := s.jira.SearchIssues(gctx, batch)
			if err != nil {
				s.log.Warn().Err(err).Int("keys", len(batch)).Msg("metadata batch failed; keys dropped")
				return nil
			}
			mu.Lock()
			for _, is := range issues {
				meta[is.Key] = is.Metadata()
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return meta
}

func (s *Service) concurrency() int {
	if s.cfg.MaxConcurrency > 0 {
		return s.cfg.MaxConcurrency
	}
	return 1
}
