// Package main is the gijiroku CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/gijiroku/internal/cli"
	"github.com/hyperjump/gijiroku/internal/config"
	"github.com/hyperjump/gijiroku/internal/extract"
	"github.com/hyperjump/gijiroku/internal/meetings"
	"github.com/hyperjump/gijiroku/internal/models"
	"github.com/hyperjump/gijiroku/internal/server"
	"github.com/hyperjump/gijiroku/internal/watcher"
	"github.com/hyperjump/gijiroku/pkg/utils"
)

var version = "dev"

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "summarize":
		runSummarize()
	case "search":
		runSearch()
	case "delete":
		runDelete()
	case "email":
		runEmail()
	case "backfill":
		runBackfill()
	case "watch":
		runWatch()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("gijiroku version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// commonFlags registers the flags every command accepts.
func commonFlags(fs *flag.FlagSet) (configPath *string, debug *bool) {
	configPath = fs.String("config", "", "config file path (default: ~/.gijiroku/config.yaml, then ./config.yaml)")
	debug = fs.Bool("debug", false, "enable debug logging")
	return configPath, debug
}

// setup loads config and builds the logger. CLI commands log to stderr only.
func setup(configPath string, debug bool, cliMode bool) (*config.Config, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debug
	var logger *zap.Logger
	if cliMode {
		logger, err = utils.NewCLILogger(debugMode)
	} else {
		logger, err = utils.NewLogger(debugMode)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))
	return cfg, logger
}

func mustComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) *components {
	c, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return c
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug, false)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := mustComponents(ctx, cfg, logger)
	defer func() {
		if err := c.Close(); err != nil {
			logger.Warn("shutdown: close failed", zap.Error(err))
		}
	}()

	var inbox *watcher.Inbox
	if len(cfg.Watch.Directories) > 0 {
		inbox = startInbox(ctx, cfg, c, logger)
		defer inbox.Stop()
	}

	srv := server.NewServer(c.Meetings, c.Engine, cfg.Server, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed", zap.Error(err))
		}
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

func startInbox(ctx context.Context, cfg *config.Config, c *components, logger *zap.Logger) *watcher.Inbox {
	handler := inboxHandler{
		meetings:     c.Meetings,
		instructions: cfg.Watch.Instructions,
		extensions:   cfg.Watch.Extensions,
	}
	inbox := watcher.NewInbox(cfg.Watch, handler, watcher.WithLogger(logger))
	if err := inbox.Start(ctx); err != nil {
		logger.Error("Failed to start inbox watcher", zap.Error(err))
		os.Exit(1)
	}
	go func() {
		n := inbox.SyncExistingFiles()
		logger.Info("inbox synced", zap.Int("files", n), zap.Strings("directories", inbox.Directories()))
	}()
	return inbox
}

func runSummarize() {
	fs := flag.NewFlagSet("summarize", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	title := fs.String("title", "", "meeting title (default: derived from the file name)")
	instructions := fs.String("instructions", "", "what the summary should contain (default: watch.instructions from config)")
	store := fs.Bool("store", true, "store the meeting and index it for search")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: gijiroku summarize [flags] [file]\n\nReads the transcript from file, or from stdin when no file is given.\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, logger := setup(*configPath, *debug, true)
	defer logger.Sync()

	text, derivedTitle, err := readTranscript(fs.Arg(0), os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read transcript: %v\n", err)
		os.Exit(1)
	}
	if *title == "" {
		*title = derivedTitle
	}
	if *instructions == "" {
		*instructions = cfg.Watch.Instructions
	}

	ctx := context.Background()
	c := mustComponents(ctx, cfg, logger)
	defer c.Close()

	if !*store {
		res, err := c.Summarizer.Summarize(ctx, text, *instructions)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Summarize failed: %v\n", err)
			os.Exit(1)
		}
		m := &models.Meeting{Title: *title, Summary: res.Text, SummarySource: string(res.Source)}
		_ = cli.WriteMeeting(os.Stdout, m, format)
		return
	}
	m, err := c.Meetings.Summarize(ctx, &models.MeetingInput{Title: *title, Instructions: *instructions, Text: text})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Summarize failed: %v\n", err)
		os.Exit(1)
	}
	_ = cli.WriteMeeting(os.Stdout, m, format)
}

// readTranscript extracts a transcript file, or reads plain text from stdin when
// path is empty or "-". The second result is a title derived from the file name.
func readTranscript(path string, stdin io.Reader) (string, string, error) {
	if path == "" || path == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", err
		}
		text, err := extract.NewExtractor().ExtractBytes(raw, ".txt")
		return text, "", err
	}
	text, err := extract.NewExtractor().Extract(path)
	if err != nil {
		return "", "", err
	}
	return text, utils.TitleFromFilename(path), nil
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: gijiroku search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Modes:
  semantic  rank by embedding similarity of titles and summaries (default)
  keyword   rank by word matches; retries with typo tolerance when nothing matches
  hybrid    weighted blend of both

Examples:
  gijiroku search quarterly budget
  gijiroku search --scope title --limit 5 roadmap
  gijiroku search --mode keyword --output json "hiring plan"
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	serverURL := fs.String("server", "", "server URL; empty searches the local store directly")
	scope := fs.String("scope", models.ScopeBoth, "title, summary or both")
	mode := fs.String("mode", models.ModeSemantic, "semantic, keyword or hybrid")
	limit := fs.Int("limit", 10, "number of results")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	query := &models.SearchQuery{Query: queryStr, Scope: *scope, Mode: *mode, Limit: *limit}

	var response *models.SearchResponse
	if *serverURL != "" {
		// The server holds the bleve lock, so go through its API.
		response, err = searchViaHTTP(http.DefaultClient, *serverURL, query)
	} else {
		cfg, logger := setup(*configPath, *debug, true)
		defer logger.Sync()
		ctx := context.Background()
		c := mustComponents(ctx, cfg, logger)
		defer c.Close()
		response, err = c.Engine.Search(ctx, query)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(client *http.Client, serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	params := url.Values{}
	params.Set("q", query.Query)
	if query.Scope != "" {
		params.Set("scope", query.Scope)
	}
	if query.Mode != "" {
		params.Set("mode", query.Mode)
	}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}
	var response models.SearchResponse
	if err := getJSON(client, strings.TrimRight(serverURL, "/")+"/api/meetings/search?"+params.Encode(), &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func getJSON(client *http.Client, target string, out any) error {
	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Println("Usage: gijiroku delete [flags] <meeting-id>")
		os.Exit(1)
	}
	id := fs.Arg(0)

	cfg, logger := setup(*configPath, *debug, true)
	defer logger.Sync()
	ctx := context.Background()
	c := mustComponents(ctx, cfg, logger)
	defer c.Close()

	if err := c.Meetings.Delete(ctx, id); err != nil {
		fmt.Fprintf(os.Stderr, "Deletion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Meeting deleted: %s\n", id)
}

// splitList splits a comma separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runEmail() {
	fs := flag.NewFlagSet("email", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	to := fs.String("to", "", "comma separated recipients")
	subject := fs.String("subject", "", "subject (default: meeting title)")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))
	recipients := splitList(*to)
	if fs.NArg() < 1 || len(recipients) == 0 {
		fmt.Println("Usage: gijiroku email --to a@example.com[,b@example.com] [--subject s] <meeting-id>")
		os.Exit(1)
	}

	cfg, logger := setup(*configPath, *debug, true)
	defer logger.Sync()
	ctx := context.Background()
	c := mustComponents(ctx, cfg, logger)
	defer c.Close()

	messageID, err := c.Meetings.Email(ctx, fs.Arg(0), &models.EmailRequest{To: recipients, Subject: *subject})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Email failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Sent to %s (%s)\n", strings.Join(recipients, ", "), messageID)
}

func runBackfill() {
	fs := flag.NewFlagSet("backfill", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug, true)
	defer logger.Sync()
	ctx := context.Background()
	c := mustComponents(ctx, cfg, logger)
	defer c.Close()

	report, err := c.Meetings.Backfill(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Backfill failed: %v\n", err)
		os.Exit(1)
	}
	cli.WriteBackfillReport(os.Stdout, report)
}

func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	once := fs.Bool("once", false, "summarize the files already present and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: gijiroku watch [flags] [directory...]\n\nDirectories default to watch.directories from config.\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug, false)
	defer logger.Sync()
	if fs.NArg() > 0 {
		cfg.Watch.Directories = nil
		for _, dir := range fs.Args() {
			abs, err := filepath.Abs(dir)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid directory %q: %v\n", dir, err)
				os.Exit(1)
			}
			cfg.Watch.Directories = append(cfg.Watch.Directories, abs)
		}
	}
	if len(cfg.Watch.Directories) == 0 {
		fmt.Fprintln(os.Stderr, "No directories to watch: pass them as arguments or set watch.directories")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	c := mustComponents(ctx, cfg, logger)
	defer c.Close()

	if *once {
		total := 0
		for _, dir := range cfg.Watch.Directories {
			n, err := c.Meetings.IngestDirectory(ctx, dir, cfg.Watch.Instructions, cfg.Watch.Extensions)
			total += n
			if err != nil {
				fmt.Fprintf(os.Stderr, "Ingest %s failed: %v\n", dir, err)
				os.Exit(1)
			}
		}
		fmt.Printf("Summarized %d file(s)\n", total)
		return
	}

	inbox := startInbox(ctx, cfg, c, logger)
	defer inbox.Stop()
	<-ctx.Done()
	logger.Info("Shutting down...")
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	serverURL := fs.String("server", "", "server URL; empty reads the local store directly")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	var status *meetings.Status
	if *serverURL != "" {
		status = &meetings.Status{}
		err = getJSON(http.DefaultClient, strings.TrimRight(*serverURL, "/")+"/api/status", status)
	} else {
		cfg, logger := setup(*configPath, *debug, true)
		defer logger.Sync()
		ctx := context.Background()
		c := mustComponents(ctx, cfg, logger)
		defer c.Close()
		status, err = c.Meetings.Status(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`gijiroku - meeting transcript summaries with semantic search

Usage:
  gijiroku server [flags]                 Start the HTTP API (and the inbox watcher when configured)
  gijiroku summarize [flags] [file]       Summarize a transcript file or stdin
  gijiroku search [flags] <query>         Search stored meetings
  gijiroku delete [flags] <id>            Delete a meeting and its vectors
  gijiroku email --to <addr,...> <id>     Email a meeting summary
  gijiroku backfill [flags]               Rebuild vector indices from stored embeddings
  gijiroku watch [flags] [directory...]   Summarize transcripts dropped into directories
  gijiroku status [flags]                 Show store and index counts
  gijiroku version                        Show version
  gijiroku help                           Show this help

Global Flags:
  --config string    Config file path (default: ~/.gijiroku/config.yaml, then ./config.yaml)
  --debug            Enable debug logging

Summarize Flags:
  --title string          Meeting title (default: derived from file name)
  --instructions string   What the summary should contain
  --store                 Store and index the meeting (default: true)
  --output string         text or json

Search Flags:
  --scope string     title, summary or both (default: both)
  --mode string      semantic, keyword or hybrid (default: semantic)
  --limit int        Number of results (default: 10)
  --output string    text or json
  --server string    Query a running server instead of the local store

Examples:
  gijiroku server
  gijiroku summarize --instructions "list action items" standup.vtt
  cat notes.txt | gijiroku summarize --store=false
  gijiroku search --scope title roadmap
  gijiroku email --to team@example.com 7b6c1d2e-3f40-4a51-8b62-7c83d94ea5f6
  gijiroku watch ~/Transcripts`)
}
