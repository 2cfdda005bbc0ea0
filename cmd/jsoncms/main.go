// Package main is the entry point for the jsoncms server.
//
// jsoncms stores typed records as flat-file JSON documents in a data
// directory and exposes schema-driven create, edit, delete and sort over a
// JSON HTTP API. Configuration is read from CLI flags and a .env file in the
// data directory. Entity types are the built-in ones unless a YAML
// definitions file is given.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/maruel/jsoncms/internal/admin"
	"github.com/maruel/jsoncms/internal/registry"
	"github.com/maruel/jsoncms/internal/server"
	"github.com/maruel/jsoncms/internal/server/ratelimit"
	"github.com/maruel/jsoncms/internal/storage"
	"github.com/maruel/jsoncms/internal/storage/git"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "jsoncms: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	httpAddr := flag.String("http", "localhost:8080", "Address to listen on (e.g., localhost:8080, :8080, 0.0.0.0:8080). Use 0.0.0.0:port to listen on all interfaces.")
	dataDir := flag.String("data-dir", "./data", "Data directory holding the backing documents")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	entitiesFile := flag.String("entities", "", "YAML entity definitions file; the built-in types are used when empty")
	history := flag.Bool("history", false, "Commit every document rewrite to a git repository in the data directory")
	initDocs := flag.Bool("init", false, "Create missing backing documents as empty arrays")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		printVersion()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	slog.SetDefault(newLogger(ll))

	if err := os.MkdirAll(*dataDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	env, err := loadDotEnv(*dataDir)
	if err != nil {
		return err
	}

	// Override with .env file values if not explicitly set via flags
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	if !set["http"] {
		if v := env["HTTP"]; v != "" {
			*httpAddr = v
		}
	}
	if !set["log-level"] {
		if v := env["LOG_LEVEL"]; v != "" {
			*logLevel = v
		}
	}
	if !set["entities"] {
		if v := env["ENTITIES"]; v != "" {
			*entitiesFile = v
		}
	}
	if !set["history"] {
		if v := env["HISTORY"]; v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid HISTORY in .env: %w", err)
			}
			*history = b
		}
	}

	level, err := parseLevel(*logLevel)
	if err != nil {
		return err
	}
	ll.Set(level)

	// Normalize addr: ":8080" becomes "localhost:8080"
	addr := *httpAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}

	defs := registry.Builtin()
	if *entitiesFile != "" {
		if defs, err = registry.LoadDefinitions(*entitiesFile); err != nil {
			return err
		}
	}

	// The interfaces stay nil when history is off.
	var committer storage.Committer
	var hist admin.History
	if *history {
		repo, err := git.Open(*dataDir, "jsoncms", "jsoncms@localhost")
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		committer, hist = repo, repo
	}

	reg, err := registry.Build(*dataDir, committer, defs)
	if err != nil {
		return err
	}
	if err := checkDocuments(ctx, reg, *initDocs); err != nil {
		return err
	}

	// Watch own executable and the definitions for modifications; the
	// registry is only built once.
	exe, err := executable()
	if err != nil {
		return fmt.Errorf("failed to watch executable: %w", err)
	}
	watched := []string{exe}
	if *entitiesFile != "" {
		watched = append(watched, *entitiesFile)
	}
	if err := watchFiles(ctx, stop, watched...); err != nil {
		return fmt.Errorf("failed to watch files: %w", err)
	}

	limits := ratelimit.DefaultConfig()
	defer limits.Close()

	buildVersion, _, _, _ := getBuildInfo()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(admin.NewService(reg, hist), limits, buildVersion),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", addr, "dataDir", *dataDir, "types", reg.Names(), "history", *history, "version", buildVersion)
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
	}
	return nil
}

// newLogger returns a tint logger on stderr that drops empty attributes, and
// the time when running under systemd.
func newLogger(ll *slog.LevelVar) *slog.Logger {
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	return slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			if a.Key == "ip" {
				if v := a.Value.String(); v == "127.0.0.1" || v == "::1" {
					return slog.Attr{}
				}
			}
			if isEmpty(a.Value) {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func isEmpty(v slog.Value) bool {
	switch t := v.Any().(type) {
	case string:
		return t == ""
	case bool:
		return !t
	case uint64:
		return t == 0
	case int64:
		return t == 0
	case float64:
		return t == 0
	case time.Time:
		return t.IsZero()
	case time.Duration:
		return t == 0
	case nil:
		return true
	}
	return false
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %q", s)
	}
}

// checkDocuments creates the missing backing documents when create is set,
// and otherwise warns about them. A missing document fails every operation
// of its type with a storage error.
func checkDocuments(ctx context.Context, reg *registry.Registry, create bool) error {
	for _, name := range reg.Names() {
		e, _ := reg.Resolve(name)
		if create {
			if _, err := e.Store.Init(ctx); err != nil {
				return err
			}
			continue
		}
		if _, err := os.Stat(e.Store.Path()); errors.Is(err, os.ErrNotExist) {
			slog.WarnContext(ctx, "Backing document is missing; run with -init to create it", "type", name, "path", e.Store.Path())
		}
	}
	return nil
}

// builtinNames lists the compiled-in entity types.
func builtinNames() []string {
	var names []string
	for _, cfg := range registry.Builtin() {
		names = append(names, cfg.Name)
	}
	return names
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("jsoncms %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
	fmt.Printf("  Built-in:   %s\n", strings.Join(builtinNames(), ", "))
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}

func loadDotEnv(dataDir string) (map[string]string, error) {
	env := make(map[string]string)
	path := filepath.Join(dataDir, ".env")
	envContent, err := os.ReadFile(path) //nolint:gosec // G304: path is constructed from dataDir flag, not user input
	if err != nil {
		if os.IsNotExist(err) {
			return env, nil
		}
		return nil, err
	}

	for line := range strings.SplitSeq(string(envContent), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)

		if strings.HasPrefix(val, "'") || strings.HasSuffix(val, "'") {
			if strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'") {
				return nil, fmt.Errorf("single quotes are not supported for wrapping in .env: %s", line)
			}
			return nil, fmt.Errorf("unbalanced single quotes in .env: %s", line)
		}
		if strings.HasPrefix(val, "\"") {
			unquoted, err := strconv.Unquote(val)
			if err != nil {
				return nil, fmt.Errorf("failed to unquote %s: %w", key, err)
			}
			val = unquoted
		}
		env[key] = val
	}
	return env, nil
}

func executable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(exe)
}

// watchFiles watches paths for modifications and calls stop to trigger
// graceful shutdown when one is detected. This lets a supervisor restart the
// server with a new binary or new entity definitions.
func watchFiles(ctx context.Context, stop context.CancelFunc, paths ...string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := w.Add(p); err != nil {
			_ = w.Close()
			return err
		}
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if changed(event) {
					slog.InfoContext(ctx, "File modified, initiating shutdown", "path", event.Name)
					stop()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching files", "err", err)
			}
		}
	}()
	return nil
}

// changed reports whether event modifies or replaces the watched file.
// Editors often save by renaming a new file over the old one.
func changed(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
