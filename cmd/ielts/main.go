package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/ielts-coach/internal/catalog"
	"github.com/pavelanni/ielts-coach/internal/handler"
	appI18n "github.com/pavelanni/ielts-coach/internal/i18n"
	"github.com/pavelanni/ielts-coach/internal/llm"
	"github.com/pavelanni/ielts-coach/internal/model"
	"github.com/pavelanni/ielts-coach/internal/practice"
	"github.com/pavelanni/ielts-coach/internal/store"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ielts",
		Short: "IELTS speaking and writing coach powered by LLMs",
	}

	serve := serveCmd()
	root.AddCommand(serve, topicsCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `ielts --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP practice server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "ielts.db", "SQLite database path")
	f.StringP("provider", "p", string(llm.ProviderGemini), "LLM provider (gemini, openai)")
	f.String("llm-url", "", "API base URL (empty = provider default)")
	f.String("llm-key", "", "API key for the LLM provider")
	f.String("llm-model", "", "Text model name (empty = provider default)")
	f.String("tts-model", "", "Speech model name (empty = provider default)")
	f.String("voice", "", "Speech voice (empty = provider default)")
	f.StringP("lang", "l", "en", "Default UI language (en, zh)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /ielts)")
	f.Bool("secure-cookies", true, "Set Secure flag on cookies")
	f.String("passcode", "", "Require this passcode to use the site (or set IELTS_PASSCODE)")
	f.Duration("session-ttl", handler.DefaultSessionTTL, "Idle lifetime of a practice session")
	f.StringSlice("cors-origins", []string{"*"}, "Allowed origins for the JSON API")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func topicsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "List the built-in speaking topics",
		RunE:  runTopics,
	}
	cmd.Flags().StringP("tab", "t", "", "Only list one category (part1, events, things, places, people)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export study history as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "ielts.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("IELTS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("ielts")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/ielts")
	v.AddConfigPath("/etc/ielts")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	exchanges, err := db.ExchangeCount()
	if err != nil {
		return fmt.Errorf("count exchanges: %w", err)
	}

	passcode := v.GetString("passcode")
	if err := seedPasscode(db, passcode); err != nil {
		return fmt.Errorf("seed passcode: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	topics, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("load topics: %w", err)
	}

	provider, err := llm.ParseProvider(v.GetString("provider"))
	if err != nil {
		return err
	}
	backend, err := llm.New(ctx, llm.Config{
		Provider: provider,
		BaseURL:  v.GetString("llm-url"),
		APIKey:   v.GetString("llm-key"),
		Model:    v.GetString("llm-model"),
		TTSModel: v.GetString("tts-model"),
	})
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}
	defer backend.Close()
	if err := backend.Ping(ctx); err != nil {
		// Feedback requests report their own errors; the server still starts.
		slog.Warn("LLM health check failed", "provider", provider, "error", err)
	} else {
		slog.Info("LLM endpoint OK", "provider", provider, "model", v.GetString("llm-model"))
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	voice := v.GetString("voice")
	if voice == "" {
		voice = llm.DefaultVoice(provider)
	}
	appCfg := model.AppConfig{
		BasePath:      basePath,
		SecureCookies: v.GetBool("secure-cookies"),
		Voice:         voice,
		SessionTTL:    v.GetDuration("session-ttl"),
		CORSOrigins:   v.GetStringSlice("cors-origins"),
		Passcode:      passcode != "",
	}

	h, err := handler.New(topics, db, backend, backend, appCfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang, appCfg.SecureCookies))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	slog.Info("starting server",
		"addr", addr,
		"provider", provider,
		"lang", lang,
		"topics", topics.Len(),
		"exchanges", exchanges,
		"voice", voice,
		"session_ttl", appCfg.SessionTTL,
		"passcode", appCfg.Passcode,
		"base_path", basePath,
	)

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server shutdown", "error", err)
		}
		<-done
		return nil
	case err := <-errCh:
		stop()
		<-done
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// seedPasscode stores the bcrypt hash of passcode unless the stored hash
// already matches it.
func seedPasscode(db *store.Store, passcode string) error {
	if passcode == "" {
		return nil
	}
	stored, err := db.PasscodeHash()
	if err != nil {
		return err
	}
	if stored != "" && bcrypt.CompareHashAndPassword([]byte(stored), []byte(passcode)) == nil {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash passcode: %w", err)
	}
	if err := db.SetPasscodeHash(string(hash)); err != nil {
		return err
	}
	slog.Info("site passcode updated")
	return nil
}

func runTopics(cmd *cobra.Command, _ []string) error {
	tab, _ := cmd.Flags().GetString("tab")

	topics, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("load topics: %w", err)
	}

	cats := topics.Categories()
	if tab != "" {
		cat := model.Category(strings.ToLower(tab))
		if !cat.IsValid() {
			return fmt.Errorf("unknown tab %q", tab)
		}
		cats = []model.Category{cat}
	}

	out := cmd.OutOrStdout()
	for _, cat := range cats {
		fmt.Fprintf(out, "[%s]\n", cat)
		for _, t := range topics.Topics(cat) {
			marker := ""
			if t.IsNew {
				marker = " (new)"
			}
			fmt.Fprintf(out, "  %-28s %2d slides  %s%s\n", t.ID, len(practice.Sequence(t)), t.Title, marker)
		}
	}
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportStudy()
	if err != nil {
		return fmt.Errorf("export study history: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)

	slog.Info("exported study history",
		"exchanges", len(export.Exchanges),
		"writing", len(export.Writing))
	return nil
}
