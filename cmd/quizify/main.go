package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quizify/quizify/internal/exam"
	"github.com/quizify/quizify/internal/handler"
	"github.com/quizify/quizify/internal/llm"
	"github.com/quizify/quizify/internal/model"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quizify",
		Short: "Exam paper generation and grading powered by a generative-language API",
	}

	serve := serveCmd()
	root.AddCommand(serve, generateCmd(), gradeCmd(), modelsCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `quizify --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addClientFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("api-key", "", "Generative API key (or set QUIZIFY_API_KEY)")
	f.String("api-url", llm.DefaultBaseURL, "Generative API base URL")
	f.StringP("model", "m", llm.DefaultModel, "Model identifier")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	addClientFlags(cmd)
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.StringSlice("cors-origins", []string{"*"}, "Allowed CORS origins")
	return cmd
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an exam paper from a topic or a source document",
		RunE:  runGenerate,
	}
	addClientFlags(cmd)
	f := cmd.Flags()
	f.StringP("topic", "t", "", "Topic to generate from")
	f.StringP("file", "f", "", "Path to source text to generate from (document mode)")
	f.StringP("config", "c", "", "Path to exam config JSON (defaults to a standard three-section paper)")
	f.StringP("difficulty", "d", string(model.DifficultyMedium), "Difficulty (easy, medium, hard)")
	f.String("focus", "", "Additional focus areas")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	return cmd
}

func gradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Grade collected answers against a generated paper",
		RunE:  runGrade,
	}
	addClientFlags(cmd)
	f := cmd.Flags()
	f.String("paper", "", "Path to the generated paper JSON (required)")
	f.String("answers", "", "Path to the answer set JSON (required)")
	f.Bool("vibe", false, "Use the informal/critical feedback tone")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")

	_ = cmd.MarkFlagRequired("paper")
	_ = cmd.MarkFlagRequired("answers")

	return cmd
}

func modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List models available to the configured API key",
		RunE:  runModels,
	}
	addClientFlags(cmd)
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

	v.SetEnvPrefix("QUIZIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("quizify")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/quizify")
	v.AddConfigPath("/etc/quizify")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// newClient builds an API client from resolved configuration. The key is
// threaded into the client at call time; it is never process-global.
func newClient(v *viper.Viper) (*llm.Client, error) {
	apiKey := v.GetString("api-key")
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required: set --api-key flag or QUIZIFY_API_KEY env var")
	}
	return llm.New(v.GetString("api-url"), apiKey, v.GetString("model")), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	client, err := newClient(v)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	if err := client.Ping(ctx); err != nil {
		slog.Warn("API credential check failed, continuing anyway", "error", err)
	} else {
		slog.Info("API endpoint OK", "url", v.GetString("api-url"), "model", v.GetString("model"))
	}

	h := handler.New(client)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: v.GetStringSlice("cors-origins"),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server", "addr", addr, "model", v.GetString("model"))

	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// defaultConfig mirrors the standard three-section paper used when the
// caller does not supply a config file.
func defaultConfig() model.ExamConfig {
	return model.ExamConfig{
		Sections: []model.SectionConfig{
			{ID: "sec_1", Type: model.SectionMCQ, Title: "Multiple Choice", Count: 5, Marks: 1},
			{ID: "sec_2", Type: model.SectionShort, Title: "Short Answer", Count: 3, Marks: 5},
			{ID: "sec_3", Type: model.SectionLong, Title: "Long Questions", Count: 1, Marks: 10},
		},
		Difficulty: model.DifficultyMedium,
		TimerMode:  model.TimerAuto,
	}
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	client, err := newClient(v)
	if err != nil {
		return err
	}

	cfg := defaultConfig()
	if path := v.GetString("config"); path != "" {
		if err := readJSONFile(path, &cfg); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}
	if d := v.GetString("difficulty"); d != "" {
		cfg.Difficulty = model.Difficulty(d)
	}
	if focus := v.GetString("focus"); focus != "" {
		cfg.FocusTopic = focus
	}

	var content string
	mode := model.ModeTopic
	switch {
	case v.GetString("file") != "":
		data, err := os.ReadFile(v.GetString("file"))
		if err != nil {
			return fmt.Errorf("read source file: %w", err)
		}
		content = string(data)
		mode = model.ModeDocument
	case v.GetString("topic") != "":
		content = v.GetString("topic")
	default:
		return fmt.Errorf("either --topic or --file is required")
	}

	ctx, stop := signalContext()
	defer stop()

	paper, err := client.Generate(ctx, content, cfg, mode)
	if err != nil {
		return fmt.Errorf("generate paper: %w", err)
	}
	slog.Info("paper generated",
		"sections", len(paper.Sections),
		"questions", paper.TotalQuestions,
		"marks", paper.TotalMarks,
	)

	return writeOutput(v.GetString("output"), paper)
}

func runGrade(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	client, err := newClient(v)
	if err != nil {
		return err
	}

	var paper model.GeneratedPaper
	if err := readJSONFile(v.GetString("paper"), &paper); err != nil {
		return fmt.Errorf("read paper: %w", err)
	}
	var answers model.AnswerSet
	if err := readJSONFile(v.GetString("answers"), &answers); err != nil {
		return fmt.Errorf("read answers: %w", err)
	}

	ctx, stop := signalContext()
	defer stop()

	report, err := client.Grade(ctx, &paper, answers, v.GetBool("vibe"))
	if err != nil {
		return fmt.Errorf("grade answers: %w", err)
	}
	if len(report.Defaulted) > 0 {
		slog.Warn("model skipped some questions, placeholders substituted", "ids", report.Defaulted)
	}

	score := exam.Aggregate(&paper, report, answers)
	slog.Info("graded", "score", score.TotalScore, "of", score.TotalMarks)

	return writeOutput(v.GetString("output"), map[string]any{
		"report": report,
		"score":  score,
	})
}

func runModels(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	client, err := newClient(v)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	models, err := client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return writeOutput("-", models)
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeOutput(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	var w io.Writer
	if path == "" || path == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}
