package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pevans/pagesift/dom"
	"github.com/pevans/pagesift/pagecache"
)

func handleNormalize(cachePath string, args []string) {
	fs := flag.NewFlagSet("normalize", flag.ExitOnError)
	outPath := fs.String("o", "", "write the normalized page JSON to this file")
	useCache := fs.Bool("cache", false, "store the normalized page in the snapshot cache")
	showSelectors := fs.Bool("show-selectors", false, "print every generated CSS selector")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: pagesift normalize [flags] <url-or-file>")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: a URL or HTML file is required\n")
		fs.Usage()
		os.Exit(1)
	}

	source := fs.Arg(0)
	rawHTML, err := readSource(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	page, err := dom.Normalize(rawHTML, source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: normalization failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Title: %s\n", page.Title)
	fmt.Printf("Elements: %d\n", page.TotalElements)

	if *showSelectors {
		page.DOMTree.Walk(func(el *dom.Element) {
			fmt.Println(el.CSSSelector)
		})
	}

	if *outPath != "" {
		if err := page.Save(*outPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to save page: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Saved to %s\n", *outPath)
	}

	if *useCache {
		store, err := pagecache.NewStore(cachePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open snapshot cache: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		snapshot, err := store.Put(page)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to cache page: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Cached as %s\n", snapshot.SnapshotID)
	}
}
