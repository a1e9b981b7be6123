package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/briangreenhill/recogateway/internal/config"
	"github.com/briangreenhill/recogateway/internal/gateway"
	"github.com/briangreenhill/recogateway/internal/logging"
	"github.com/briangreenhill/recogateway/internal/providers"
	"github.com/briangreenhill/recogateway/render"
)

const version = "v0.1.0"

var errUsage = errors.New("usage: recogateway recommend [--fallback|-f] [--format text|json] <subject> [count]")

func main() {
	if err := runCLI(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runCLI(args []string, out io.Writer) error {
	if len(args) == 0 {
		printHelp(out)
		return nil
	}

	switch args[0] {
	case "help", "--help", "-h":
		printHelp(out)
	case "version", "--version", "-v":
		fmt.Fprintln(out, "recogateway "+version)
	case "recommend":
		return runRecommend(args[1:], out)
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
	return nil
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Usage: recogateway <command> [options]")
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  recommend <subject> [count]  Fetch recommendations (count defaults to 12)")
	fmt.Fprintln(out, "  version                      Show version")
	fmt.Fprintln(out, "  help                         Show this help message")
	fmt.Fprintln(out, "Options:")
	fmt.Fprintln(out, "  --fallback, -f      Use the Gemini fallback provider")
	fmt.Fprintln(out, "  --format <name>     Output format: text (default) or json")
	fmt.Fprintln(out, "Environment:")
	fmt.Fprintln(out, "  RECOMBEE_API_KEY    Recombee API key (primary provider)")
	fmt.Fprintln(out, "  GEMINI_API_KEY      Gemini API key (fallback provider)")
	fmt.Fprintln(out, "  CACHE_BACKEND       memory, file or redis (default file for the CLI)")
}

type recommendOpts struct {
	subject string
	count   int
	kind    providers.Kind
	format  string
}

func parseRecommendArgs(args []string) (recommendOpts, error) {
	opts := recommendOpts{count: 12, format: "text"}
	var positional []string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--fallback", "-f":
			opts.kind = providers.Fallback
		case "--format":
			if i+1 >= len(args) {
				return opts, errUsage
			}
			i++
			opts.format = args[i]
		default:
			positional = append(positional, args[i])
		}
	}

	if len(positional) == 0 || len(positional) > 2 || positional[0] == "" {
		return opts, errUsage
	}
	opts.subject = positional[0]
	if len(positional) == 2 {
		n, err := strconv.Atoi(positional[1])
		if err != nil {
			return opts, fmt.Errorf("invalid count %q: %w", positional[1], err)
		}
		opts.count = n
	}
	return opts, nil
}

func runRecommend(args []string, out io.Writer) error {
	opts, err := parseRecommendArgs(args)
	if err != nil {
		return err
	}

	renderer, ok := render.NewRegistry().Get(opts.format)
	if !ok {
		return fmt.Errorf("unknown format %q. Available formats: %v", opts.format, render.NewRegistry().List())
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if os.Getenv("CACHE_BACKEND") == "" {
		cfg.Cache.Backend = "file"
	}

	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: "console", Output: os.Stderr}, "cli")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	gw, closeCache, err := gateway.Setup(ctx, cfg, &http.Client{}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeCache() }()

	kind := opts.kind
	if kind == "" {
		kind = gateway.Preferred(gw)
	}
	if !gw.Enabled(kind) {
		return fmt.Errorf("provider %s is not configured. Please set the required environment variables", kind)
	}

	output, err := renderer.Render(opts.subject, gw.Fetch(ctx, opts.subject, opts.count, kind))
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, output)
	return err
}
