// Command reviewctl reads and submits class reviews against a running
// reviews API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dagnyr/canvas-critic/internal/config"
	"github.com/dagnyr/canvas-critic/internal/logging"
	"github.com/dagnyr/canvas-critic/internal/reviewapi"
	"github.com/dagnyr/canvas-critic/internal/reviewclient"
)

const usage = `usage: reviewctl [-url URL] [-timeout SECS] <command> [flags]

commands:
  get   -class ID                      print the summary and reviews for a class
  post  -class ID -overall N ...       submit a review
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("reviewctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	var (
		apiURL  = global.String("url", "", "reviews API base URL (overrides REVIEWS_API_URL)")
		timeout = global.Int("timeout", 0, "request timeout in seconds (overrides REVIEWS_API_TIMEOUT_SECS)")
		verbose = global.Bool("v", false, "log client diagnostics to stderr")
	)
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}

	cfg, err := clientConfig(*apiURL, *timeout)
	if err != nil {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return 2
	}

	logger := zap.NewNop()
	if *verbose {
		if l, err := logging.New("reviewctl", "debug"); err == nil {
			logger = l
		}
	}
	client, err := reviewclient.NewHTTPClient(cfg.APIURL, time.Duration(cfg.TimeoutSecs)*time.Second, logger)
	if err != nil {
		fmt.Fprintf(stderr, "init client: %v\n", err)
		return 2
	}

	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "get":
		err = runGet(ctx, client, rest, stdout, stderr)
	case "post":
		err = runPost(ctx, client, rest, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		global.Usage()
		return 2
	}
	if err != nil {
		return report(stderr, err)
	}
	return 0
}

func clientConfig(apiURL string, timeoutSecs int) (config.ClientConfig, error) {
	if apiURL == "" {
		cfg, err := config.LoadClient()
		if err != nil {
			return config.ClientConfig{}, err
		}
		if timeoutSecs > 0 {
			cfg.TimeoutSecs = timeoutSecs
		}
		return cfg, nil
	}
	cfg := config.ClientConfig{APIURL: apiURL, TimeoutSecs: 5}
	if raw := os.Getenv("REVIEWS_API_TIMEOUT_SECS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			cfg.TimeoutSecs = n
		}
	}
	if timeoutSecs > 0 {
		cfg.TimeoutSecs = timeoutSecs
	}
	return cfg, cfg.Validate()
}

var errUsage = errors.New("invalid arguments")

func runGet(ctx context.Context, client reviewclient.Client, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(stderr)
	classID := fs.String("class", "", "class id")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if strings.TrimSpace(*classID) == "" {
		fmt.Fprintln(stderr, "get: -class is required")
		return errUsage
	}

	resp, err := client.Fetch(ctx, *classID)
	if err != nil {
		return err
	}
	renderReviews(stdout, *classID, resp)
	return nil
}

func runPost(ctx context.Context, client reviewclient.Client, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("post", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		classID     = fs.String("class", "", "class id")
		overall     = fs.Int("overall", 0, "overall score (1-5)")
		difficulty  = fs.Int("difficulty", 0, "difficulty score (1-5)")
		engaging    = fs.Int("engaging", 0, "engaging score (1-5)")
		instruction = fs.Int("instruction", 0, "instruction score (1-5)")
		final       = fs.Int("final", 0, "final intensity score (1-5)")
		hours       = fs.String("hours", "", "hours per week (blank for none)")
		recommend   = fs.String("recommend", "0", "recommend the class (1/0, yes/no)")
		comment     = fs.String("comment", "", "free-text comment")
	)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	req := reviewapi.SubmitRequest{
		ClassID:        *classID,
		Overall:        *overall,
		Difficulty:     *difficulty,
		Engaging:       *engaging,
		Instruction:    *instruction,
		FinalIntensity: *final,
		Comment:        *comment,
	}
	if h := strings.TrimSpace(*hours); h != "" {
		v, err := strconv.ParseFloat(h, 64)
		if err != nil {
			fmt.Fprintf(stderr, "post: -hours: %v\n", err)
			return errUsage
		}
		req.HoursPerWeek = &v
	}
	rec, err := reviewapi.ParseFlag(*recommend)
	if err != nil {
		fmt.Fprintf(stderr, "post: %v\n", err)
		return errUsage
	}
	req.Recommend = reviewapi.Flag(rec)

	stored, err := client.Submit(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "submitted review %s for %s at %s\n", stored.ID, stored.ClassID, stored.CreatedAt.Format(time.RFC3339))
	return nil
}

func report(stderr io.Writer, err error) int {
	var rejected *reviewclient.APIError
	switch {
	case errors.Is(err, errUsage):
		return 2
	case errors.As(err, &rejected):
		fmt.Fprintf(stderr, "rejected: %s\n", rejected.Message)
		for field, reason := range rejected.Fields {
			fmt.Fprintf(stderr, "  %s: %s\n", field, reason)
		}
		return 1
	case reviewclient.IsRetryable(err):
		fmt.Fprintf(stderr, "reviews are temporarily unavailable, try again: %v\n", err)
		return 3
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
}
