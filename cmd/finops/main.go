package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/finsup/finops/internal/adapters/jira"
	"github.com/finsup/finops/internal/adapters/tempo"
	"github.com/finsup/finops/internal/config"
	"github.com/finsup/finops/internal/logger"
	"github.com/finsup/finops/internal/report"
	"github.com/finsup/finops/internal/services"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "finops",
	Short:        "Finance-support tooling: utilisation reporting and cloud admin tasks",
	SilenceUsage: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// pipeline wires config, logger and both API clients the way every
// utilisation command needs them.
type pipeline struct {
	cfg config.Config
	log zerolog.Logger
	svc *services.Service
	out *report.Writer
}

// newPipeline validates only the credentials the calling command needs;
// replay never talks to Tempo, so it passes the Jira check alone.
func newPipeline(require ...func(config.Config) error) (*pipeline, error) {
	cfg := config.Load()
	log := logger.New(cfg)
	for _, req := range require {
		if err := req(cfg); err != nil {
			return nil, err
		}
	}
	hc, err := cfg.HTTPClient()
	if err != nil {
		return nil, err
	}
	svc := services.New(cfg, log,
		tempo.NewClient(cfg, hc, log),
		jira.NewClient(cfg, hc, log))
	return &pipeline{cfg: cfg, log: log, svc: svc, out: report.NewWriter(log)}, nil
}

func (p *pipeline) write(res *services.Result, workbook, snapshot string) error {
	if err := p.out.WriteWorkbook(workbook, res.Rows); err != nil {
		return err
	}
	return p.out.WriteSnapshot(snapshot, res.Enriched)
}
