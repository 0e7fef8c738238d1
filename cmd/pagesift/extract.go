package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pevans/pagesift"
	"github.com/pevans/pagesift/fetch"
	"gopkg.in/yaml.v3"
)

func handleExtract(args []string) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	specPath := fs.String("spec", "", "path to the YAML selector spec (required)")
	asJSON := fs.Bool("json", false, "print the result as JSON instead of YAML")
	showSpec := fs.Bool("show-spec", false, "print the re-serialized spec and exit")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: pagesift extract -spec <spec.yaml> [flags] <url-or-file>")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if *specPath == "" {
		fmt.Fprintf(os.Stderr, "Error: -spec is required\n")
		fs.Usage()
		os.Exit(1)
	}

	runner, err := pagesift.LoadSpec(*specPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load spec: %v\n", err)
		os.Exit(1)
	}

	if *showSpec {
		out, err := runner.SpecYAML()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to serialize spec: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(out)
		return
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: a URL or HTML file is required\n")
		fs.Usage()
		os.Exit(1)
	}

	rawHTML, err := readSource(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	result, err := runner.RunHTML(rawHTML)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: extraction failed: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to encode result: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}

	data, err := yaml.Marshal(result)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to encode result: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(string(data))
}

// readSource fetches a URL or reads a local HTML file.
func readSource(source string) (string, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		client := &fetch.Client{UserAgent: os.Getenv("PAGESIFT_USER_AGENT")}
		if raw := os.Getenv("PAGESIFT_TIMEOUT"); raw != "" {
			timeout, err := time.ParseDuration(raw)
			if err != nil {
				return "", fmt.Errorf("invalid PAGESIFT_TIMEOUT %q: %w", raw, err)
			}
			client.Timeout = timeout
		}
		return client.Fetch(context.Background(), source)
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", source, err)
	}
	return string(data), nil
}
