package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/pevans/pagesift/diff"
	"github.com/pevans/pagesift/dom"
	"github.com/pevans/pagesift/pagecache"
)

func handleCompare(cachePath string, args []string) {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	threshold := fs.Float64("threshold", diff.DefaultThreshold, "child coverage ratio for parent promotion")
	outPath := fs.String("o", "", "write the full JSON report to this file")
	useCache := fs.Bool("cache", false, "reuse and populate the snapshot cache for URLs")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: pagesift compare [flags] <source> <source> [source...]")
		fmt.Fprintln(os.Stderr, "Sources may be URLs, HTML files, or saved page JSON files.")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintf(os.Stderr, "Error: at least two sources are required\n")
		fs.Usage()
		os.Exit(1)
	}

	var store *pagecache.Store
	if *useCache {
		var err error
		store, err = pagecache.NewStore(cachePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open snapshot cache: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	var pages []*dom.Page
	var failed []diff.PageFailure
	for _, source := range fs.Args() {
		page, err := loadPage(store, source)
		if err != nil {
			failed = append(failed, diff.PageFailure{Source: source, Err: err.Error()})
			fmt.Fprintf(os.Stderr, "Warning: skipping %s: %v\n", source, err)
			continue
		}
		pages = append(pages, page)
	}

	report, err := diff.Compare(pages, diff.Options{Threshold: threshold})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: comparison failed: %v\n", err)
		os.Exit(1)
	}
	report.Failed = failed

	printSummary(report)

	if *outPath != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to encode report: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*outPath, data, 0600); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to write report: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Report written to %s\n", *outPath)
	}
}

// loadPage resolves one compare source: saved page JSON, cached URL
// snapshot, or a fresh fetch-and-normalize.
func loadPage(store *pagecache.Store, source string) (*dom.Page, error) {
	isURL := strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")

	if !isURL && strings.HasSuffix(source, ".json") {
		return dom.LoadPage(source)
	}

	if isURL && store != nil {
		snapshot, err := store.Get(source)
		if err == nil {
			return snapshot.Page, nil
		}
		if !errors.Is(err, pagecache.ErrSnapshotNotFound) {
			return nil, err
		}
	}

	rawHTML, err := readSource(source)
	if err != nil {
		return nil, err
	}
	page, err := dom.Normalize(rawHTML, source)
	if err != nil {
		return nil, err
	}

	if isURL && store != nil {
		if _, err := store.Put(page); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to cache %s: %v\n", source, err)
		}
	}
	return page, nil
}

func printSummary(report *diff.Report) {
	s := report.Summary
	fmt.Printf("Pages compared:          %d\n", s.TotalPages)
	fmt.Printf("Selectors analyzed:      %d\n", s.TotalSelectorsAnalyzed)
	fmt.Printf("Unique leaf selectors:   %d\n", s.UniqueLeafSelectors)
	fmt.Printf("Single-page elements:    %d\n", s.SinglePageElements)
	fmt.Printf("After optimization:      %d\n", s.SelectorsAfterOptimization)
	fmt.Printf("After redundancy pass:   %d\n", s.SelectorsAfterRedundancyRemoval)
	fmt.Printf("Final selectors:         %d\n", s.FinalGeneralizedSelectors)
	fmt.Println()

	if len(report.OptimizedSelectors) == 0 {
		fmt.Println("No differing content found.")
		return
	}

	fmt.Println("Selectors:")
	for _, sr := range report.OptimizedSelectors {
		fmt.Printf("  %s\n", sr.CSSSelector)
	}

	if len(report.Failed) > 0 {
		fmt.Println()
		fmt.Printf("Failed pages: %d\n", len(report.Failed))
		for _, f := range report.Failed {
			fmt.Printf("  %s: %s\n", f.Source, f.Err)
		}
	}
}
