package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv string

	TempoBaseURL string
	TempoToken   string

	JiraSite     string
	JiraEmail    string
	JiraAPIToken string

	// DaysBack is the bulk-mode lookback window. There is no default: the
	// source revisions disagreed (7 vs 30), so a run must set it explicitly
	// via TEMPO_DAYS_BACK or the --days flag.
	DaysBack int

	PageSize       int
	PageDelay      time.Duration
	HTTPTimeout    time.Duration
	MaxConcurrency int

	// Corp-network knobs. ProxyURL overrides the standard proxy env vars,
	// CABundle points at a PEM file for TLS-intercepting proxies.
	ProxyURL string
	CABundle string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoi(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func dur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// Load reads configuration from the environment, after loading a .env file
// from the working directory when one exists.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppEnv: getenv("APP_ENV", "dev"),

		TempoBaseURL: getenv("TEMPO_BASE_URL", "https://api.tempo.io/4"),
		TempoToken:   getenv("TEMPO_TOKEN", ""),

		JiraSite:     getenv("JIRA_SITE", ""),
		JiraEmail:    getenv("JIRA_EMAIL", ""),
		JiraAPIToken: getenv("JIRA_API_TOKEN", ""),

		DaysBack: atoi("TEMPO_DAYS_BACK", 0),

		PageSize:       atoi("TEMPO_PAGE_SIZE", 100),
		PageDelay:      dur("TEMPO_PAGE_DELAY", 200*time.Millisecond),
		HTTPTimeout:    dur("HTTP_TIMEOUT", 30*time.Second),
		MaxConcurrency: atoi("MAX_CONCURRENCY", 4),

		ProxyURL: getenv("HTTPS_PROXY", ""),
		CABundle: getenv("CA_BUNDLE", ""),
	}
}

// RequireTempo reports every missing setting the Tempo API needs.
func (c Config) RequireTempo() error {
	return missing(map[string]string{
		"TEMPO_TOKEN": c.TempoToken,
	})
}

// RequireJira reports every missing setting the Jira API needs.
func (c Config) RequireJira() error {
	return missing(map[string]string{
		"JIRA_SITE":      c.JiraSite,
		"JIRA_EMAIL":     c.JiraEmail,
		"JIRA_API_TOKEN": c.JiraAPIToken,
	})
}

func missing(vars map[string]string) error {
	var names []string
	for name, v := range vars {
		if strings.TrimSpace(v) == "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)
	return fmt.Errorf("missing required configuration: %s", strings.Join(names, ", "))
}

// HTTPClient builds the shared client honoring the proxy and CA-bundle
// settings. Call sites own the returned client for the whole run.
func (c Config) HTTPClient() (*http.Client, error) {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if c.ProxyURL != "" {
		u, err := url.Parse(c.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url %q: %w", c.ProxyURL, err)
		}
		transport.Proxy = http.ProxyURL(u)
	}
	if c.CABundle != "" {
		pem, err := os.ReadFile(c.CABundle)
		if err != nil {
			return nil, fmt.Errorf("read CA bundle: %w", err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("CA bundle %s contains no usable certificates", c.CABundle)
		}
		transport.TLSClientConfig = &tls.Config{RootCAs: pool}
	}
	return &http.Client{Timeout: c.HTTPTimeout, Transport: transport}, nil
}
