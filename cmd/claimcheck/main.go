package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/gabriel-vasile/mimetype"
	"github.com/samvad-hq/samvad-claim-checker/internal/app"
	"github.com/samvad-hq/samvad-claim-checker/internal/config"
	"github.com/samvad-hq/samvad-claim-checker/internal/history"
	"github.com/samvad-hq/samvad-claim-checker/internal/logger"
	"github.com/samvad-hq/samvad-claim-checker/internal/render"
	"github.com/samvad-hq/samvad-claim-checker/pkg/claimapi"
	"github.com/spf13/pflag"
)

const usage = `Usage: claimcheck [flags] [claim text...]

Submits a claim to the fact-checking API and prints the verdict.
Claim text is read from the arguments, or from stdin when "-" is given.

Flags:
`

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "claimcheck: %s\n", render.DescribeError(err))
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := pflag.NewFlagSet("claimcheck", pflag.ContinueOnError)
	filePath := fs.StringP("file", "f", "", "attach a file (image, video, audio) as evidence")
	multimodal := fs.BoolP("multimodal", "m", false, "use the multimodal endpoint even without a file")
	historyN := fs.Int("history", 0, "print the N most recent submissions and exit")
	fs.String("api-url", "", "API base URL (env REACT_APP_API_URL)")
	fs.String("api-origin", "", "origin used when the API base URL is empty")
	fs.StringP("output", "o", "", "output format: text, json or yaml")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.String("app-env", "", "set to development for diagnostic logging")
	fs.String("publishers-file", "", "YAML/JSON file describing verdict publishers")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checker, err := app.NewChecker(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize checker", "error", err)
		return err
	}
	defer func() {
		if err := checker.Close(); err != nil {
			logger.ErrorObj("checker close failed", "error", err)
		}
	}()

	if *historyN > 0 {
		entries, err := checker.History(*historyN)
		if err != nil {
			return fmt.Errorf("read history: %w", err)
		}
		return printHistory(stdout, entries)
	}

	req, err := buildRequest(fs.Args(), *filePath, *multimodal, stdin)
	if err != nil {
		return err
	}

	res, err := checker.Check(ctx, req)
	if err != nil {
		return err
	}
	return render.Result(stdout, cfg.Output, res)
}

func buildRequest(args []string, filePath string, multimodal bool, stdin io.Reader) (app.Request, error) {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return app.Request{}, fmt.Errorf("read claim from stdin: %w", err)
		}
		text = strings.TrimSpace(string(raw))
	}

	req := app.Request{ClaimText: text, Multimodal: multimodal}
	if filePath != "" {
		file, err := loadFile(filePath)
		if err != nil {
			return app.Request{}, err
		}
		req.File = file
	}
	if req.ClaimText == "" && req.File == nil {
		return app.Request{}, errors.New("provide claim text or --file")
	}
	return req, nil
}

func loadFile(path string) (*claimapi.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return &claimapi.File{
		Name:        filepath.Base(path),
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}, nil
}

func printHistory(w io.Writer, entries []history.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBMITTED\tENDPOINT\tCLAIM\tFILE\tRESULT")
	for _, e := range entries {
		result := e.Outcome
		if e.Error != "" {
			result = e.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.SubmittedAt.Local().Format("2006-01-02 15:04:05"),
			e.Endpoint,
			shorten(e.ClaimText, 48),
			e.FileName,
			shorten(result, 60),
		)
	}
	return tw.Flush()
}

func shorten(s string, n int) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
