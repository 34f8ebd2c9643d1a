package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"Skythread/internal/atproto/identity"
	"Skythread/internal/cli"
	"Skythread/internal/config"
	"Skythread/internal/core/blueskythread"
	"Skythread/internal/core/commentview"
	"Skythread/internal/core/display"
	"Skythread/internal/core/threadsession"
)

func main() {
	sortFlag := flag.String("sort", string(display.DefaultSortMode), "sort mode: oldest, newest, likes, reposts, quotes, replies")
	searchFlag := flag.String("q", "", "only show comments containing this text")
	allFlag := flag.Bool("all", false, "reveal every comment instead of the first page")
	interactive := flag.Bool("i", false, "start an interactive session")
	verbose := flag.Bool("v", false, "log debug output to stderr")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: skythread [flags] <bsky.app url | at-uri>\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	var logger *slog.Logger
	if *verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	} else {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		log.SetOutput(io.Discard)
	}

	mode, err := display.ParseSortMode(*sortFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	identityConfig := identity.DefaultConfig()
	identityConfig.PLCURL = cfg.PLCURL
	service := blueskythread.NewService(
		blueskythread.NewMemoryRepository(cfg.CacheSize, cfg.CacheTTL),
		identity.NewResolver(identityConfig),
		blueskythread.WithAPIBaseURL(cfg.APIBaseURL),
		blueskythread.WithTimeout(cfg.FetchTimeout),
		blueskythread.WithDepth(cfg.ThreadDepth),
		blueskythread.WithLabelFilter(cfg.FilterLabeledComments),
		blueskythread.WithLogger(logger),
	)

	session := threadsession.New(service,
		threadsession.WithPaging(display.Paging{InitialPageSize: cfg.InitialPageSize, PageIncrement: cfg.PageIncrement}),
		threadsession.WithLogger(logger),
	)
	builder := commentview.NewBuilder(
		commentview.WithAppBaseURL(cfg.AppBaseURL),
		commentview.WithLocation(cfg.Location),
		commentview.WithLogger(logger),
	)

	if *interactive {
		repl := cli.NewREPL(session, builder, os.Stdin, os.Stdout)
		if ref := flag.Arg(0); ref != "" {
			if _, err := repl.Exec(ctx, "load "+ref); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		}
		if err := repl.Run(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	renderer := cli.NewRenderer(os.Stdout)
	if _, err := session.Load(ctx, flag.Arg(0)); err != nil {
		_ = renderer.RenderError(err)
		os.Exit(1)
	}

	session.SetSortMode(mode)
	page := session.SetSearchTerm(*searchFlag)
	for *allFlag && page.HasMore {
		page = session.RevealMore()
	}

	if err := renderer.RenderPage(builder.BuildPage(session.Thread(), page)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
