package main

import (
	"fmt"
	"log/slog"
	"os"
)

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	if os.Getenv("PAGESIFT_DEBUG") != "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	cachePath := getEnv("PAGESIFT_CACHE_DSN", "pages.db")

	subcommand := os.Args[1]

	switch subcommand {
	case "extract":
		handleExtract(os.Args[2:])
	case "normalize":
		handleNormalize(cachePath, os.Args[2:])
	case "compare":
		handleCompare(cachePath, os.Args[2:])
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("pagesift - Declarative HTML extraction and structural page comparison")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pagesift <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  extract    Apply a YAML selector spec to a page")
	fmt.Println("  normalize  Fetch a page and save its normalized element tree")
	fmt.Println("  compare    Compare normalized pages and report differing selectors")
	fmt.Println("  help       Show this help message")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  PAGESIFT_CACHE_DSN   Path to the page snapshot cache (default: pages.db)")
	fmt.Println("  PAGESIFT_USER_AGENT  User-Agent header for fetches")
	fmt.Println("  PAGESIFT_TIMEOUT     Fetch timeout, e.g. 15s (default: 10s)")
	fmt.Println("  PAGESIFT_DEBUG       Enable debug logging when set")
}
