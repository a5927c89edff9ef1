package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/akosarev/mentorio/internal/analytics"
	"github.com/akosarev/mentorio/internal/assignment"
	"github.com/akosarev/mentorio/internal/handler"
	appI18n "github.com/akosarev/mentorio/internal/i18n"
	"github.com/akosarev/mentorio/internal/model"
	"github.com/akosarev/mentorio/internal/notify"
	"github.com/akosarev/mentorio/internal/store"
)

func main() {
	// Optional local overrides; viper picks the variables up afterwards.
	_ = godotenv.Load()
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mentorio",
		Short: "Educational testing platform backend",
	}

	serve := serveCmd()
	root.AddCommand(serve, seedCmd(), reportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `mentorio --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":4000", "HTTP listen address")
	f.String("db", "mentorio.db", "SQLite database path")
	f.StringP("lang", "l", "en", "Notification language (en, ru)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users, mentors, tests and achievements from a JSON fixture",
		RunE:  runSeed,
	}
	f := cmd.Flags()
	f.String("db", "mentorio.db", "SQLite database path")
	f.StringP("file", "f", "seed.json", "Path to seed fixture")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the system report as JSON",
		RunE:  runReport,
	}
	f := cmd.Flags()
	f.String("db", "mentorio.db", "SQLite database path")
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

	v.SetEnvPrefix("MENTORIO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("mentorio")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/mentorio")
	v.AddConfigPath("/etc/mentorio")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	notifier := notify.New(db, lang)
	h := handler.New(db, notifier, v.GetBool("secure-cookies"))

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server", "addr", addr, "db", v.GetString("db"), "lang", lang)
	return http.ListenAndServe(addr, r)
}

// seedFixture is the JSON shape consumed by the seed command.
type seedFixture struct {
	Users []struct {
		Login       string `json:"login"`
		DisplayName string `json:"display_name"`
		Password    string `json:"password"`
	} `json:"users"`
	Mentors []struct {
		Login       string `json:"login"`
		DisplayName string `json:"display_name"`
		Password    string `json:"password"`
	} `json:"mentors"`
	Tests        []model.Test        `json:"tests"`
	Achievements []model.Achievement `json:"achievements"`
}

func runSeed(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	path := v.GetString("file")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	hash := sha256sum(data)
	storedHash, err := db.GetSeedFileHash(path)
	if err != nil {
		return fmt.Errorf("check seed status for %s: %w", path, err)
	}
	if storedHash == hash {
		slog.Info("seed file unchanged, skipping", "path", path)
		return nil
	}
	if storedHash != "" {
		slog.Warn("seed file changed since last import, skipping to avoid duplicating records", "path", path)
		return nil
	}

	var fixture seedFixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for _, u := range fixture.Users {
		pwHash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", u.Login, err)
		}
		if _, err := db.CreateUser(model.User{
			Login:        u.Login,
			DisplayName:  u.DisplayName,
			PasswordHash: string(pwHash),
		}); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Login, err)
		}
	}
	for _, m := range fixture.Mentors {
		pwHash, err := bcrypt.GenerateFromPassword([]byte(m.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", m.Login, err)
		}
		if _, err := db.CreateMentor(model.Mentor{
			Login:        m.Login,
			DisplayName:  m.DisplayName,
			PasswordHash: string(pwHash),
		}); err != nil {
			return fmt.Errorf("seed mentor %s: %w", m.Login, err)
		}
	}
	for _, t := range fixture.Tests {
		if _, err := db.CreateTest(t); err != nil {
			return fmt.Errorf("seed test %s: %w", t.Name, err)
		}
	}
	for _, a := range fixture.Achievements {
		if _, err := db.CreateAchievement(a); err != nil {
			return fmt.Errorf("seed achievement %s: %w", a.Name, err)
		}
	}

	if err := db.SetSeedFileHash(path, hash); err != nil {
		return fmt.Errorf("record seed for %s: %w", path, err)
	}
	slog.Info("seeded database",
		"path", path,
		"users", len(fixture.Users),
		"mentors", len(fixture.Mentors),
		"tests", len(fixture.Tests),
		"achievements", len(fixture.Achievements),
	)
	return nil
}

func runReport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ag := analytics.New(db, assignment.New(db))
	report, err := ag.SystemReport()
	if err != nil {
		return fmt.Errorf("build system report: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
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
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
