package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"pagesentry/internal/aggregator"
	"pagesentry/internal/blocklist"
	"pagesentry/internal/cache"
	"pagesentry/internal/common"
	"pagesentry/internal/config"
	"pagesentry/internal/pagetext"
	"pagesentry/internal/reputation"
	"pagesentry/internal/storage"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to YAML config file")
	fetch := flag.Bool("fetch", false, "download the page and scan its text too")
	timeout := flag.Duration("timeout", 30*time.Second, "overall scan deadline")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: pagescan [flags] <url>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	pageURL := flag.Arg(0)

	figure.NewFigure("pagescan", "", true).Print()
	fmt.Println()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail("loading config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store := storage.NewMemoryStore()
	lists := blocklist.NewManager(store, nil)
	if err := lists.SeedDefaults(ctx); err != nil {
		fail("seeding keywords: %v", err)
	}

	clients := []reputation.Client{
		reputation.NewPhishTank(reputation.Options{APIKey: cfg.PhishTank.APIKey, Endpoint: cfg.PhishTank.Endpoint}),
		reputation.NewSafeBrowsing(reputation.Options{APIKey: cfg.SafeBrowsing.APIKey, Endpoint: cfg.SafeBrowsing.Endpoint}),
		reputation.NewVirusTotal(reputation.Options{APIKey: cfg.VirusTotal.APIKey, Endpoint: cfg.VirusTotal.Endpoint}),
	}
	agg := aggregator.New(lists, cache.NewMemoryCache(), clients, cfg.Weights, nil)

	query := aggregator.Query{URL: pageURL}
	if *fetch {
		text, err := pagetext.Fetch(ctx, nil, pageURL)
		if err != nil {
			color.Yellow("page fetch failed, scanning URL only: %v", err)
		} else {
			query.PageText = text
		}
	}

	a := agg.Assess(ctx, query)
	printAssessment(a)

	if a.Severity >= common.SeverityMedium {
		os.Exit(1)
	}
}

func printAssessment(a aggregator.Assessment) {
	fmt.Printf("url:      %s\n", a.URL)
	fmt.Printf("score:    %.3f\n", a.UnifiedScore)
	fmt.Printf("verdict:  ")
	switch a.Severity {
	case common.SeverityHigh:
		color.New(color.FgRed, color.Bold).Println("HIGH RISK")
	case common.SeverityMedium:
		color.New(color.FgYellow, color.Bold).Println("SUSPICIOUS")
	case common.SeverityLow:
		color.Yellow("LOW RISK")
	default:
		color.Green("CLEAN")
	}

	fmt.Println("\nsources:")
	ids := make([]common.SourceID, 0, len(a.Sources))
	for id := range a.Sources {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		res := a.Sources[id]
		if res.ErrorKind != common.ErrNone {
			color.New(color.Faint).Printf("  %-18s error: %s\n", id, res.ErrorKind)
			continue
		}
		fmt.Printf("  %-18s %.3f", id, res.Score)
		if len(res.Factors) > 0 {
			fmt.Printf("  %v", res.Factors)
		}
		fmt.Println()
	}
}

func fail(format string, args ...any) {
	color.Red(format, args...)
	os.Exit(1)
}
