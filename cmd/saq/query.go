package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oxhq/saq/internal/config"
	"github.com/oxhq/saq/internal/engine"
	"github.com/oxhq/saq/internal/lang/parser"
	"github.com/oxhq/saq/internal/logging"
	"github.com/oxhq/saq/internal/optimizer"
	"github.com/oxhq/saq/internal/provider"
	"github.com/oxhq/saq/internal/render"
	"github.com/oxhq/saq/internal/store"
)

func newQueryCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "query <expr>",
		Short: "Fetch every configured provider once and evaluate a query against the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(*configPath, args[0])
		},
	}
}

func runQuery(configPath, expr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	urls, err := config.ProviderList(cfg.ProviderListPath)
	if err != nil {
		return err
	}

	s := store.New()
	sources := make([]provider.Source, len(urls))
	for i, u := range urls {
		sources[i] = provider.Source{BaseURL: u}
	}
	poller := provider.New(s, sources, cfg.PollInterval, cfg.FetchTimeout, log)
	poller.FetchAllOnce(context.Background())

	chain, err := parser.Parse(expr)
	if err != nil {
		return err
	}
	chain = optimizer.Rewrite(s, chain)

	e := engine.New(s)
	result, err := e.Eval(chain, s.All())
	if err != nil {
		return err
	}

	fmt.Println(render.Render(result))
	return nil
}
