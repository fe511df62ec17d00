// Command timefree records a past radio broadcast from the radiko
// timefree API. It:
//   - Loads configuration and initializes structured logging.
//   - Runs the authentication handshake and resolves the program guide
//     (disk-cached per station and date).
//   - Orchestrates ffmpeg to produce the final audio file, optionally
//     tagged with metadata and cover art.
//   - Optionally records the outcome in a Postgres ledger and exposes
//     /healthz, /readyz, /status, and /metrics while running.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sorabito/timefree/config"
	"github.com/sorabito/timefree/history"
	"github.com/sorabito/timefree/radikoapi"
	"github.com/sorabito/timefree/rec"
	"github.com/sorabito/timefree/server"
	"github.com/sorabito/timefree/telemetry"
)

func main() {
	// Load .env if present (local dev convenience; production relies on real env)
	_ = godotenv.Load(".env")

	initLogging()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateRecordReady(); err != nil {
		slog.Error("config incomplete", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()
	shutdownTracing, err := telemetry.InitTracing("timefree", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// History ledger is optional; a run never fails because of it.
	ledger := openLedger(ctx, cfg.DBDsn)
	if ledger != nil {
		defer func() {
			if err := ledger.Close(); err != nil {
				slog.Error("failed to close ledger", slog.Any("err", err))
			}
		}()
	}

	if cfg.HTTPAddr != "" {
		go func() {
			opts := server.Options{DB: ledger, CacheDir: cfg.CacheDir, FFmpegPath: cfg.FFmpegPath}
			if err := server.Start(ctx, opts, cfg.HTTPAddr); err != nil {
				slog.Error("http server exited with error", slog.Any("err", err))
			}
		}()
	}

	if err := run(ctx, cfg, ledger); err != nil {
		slog.Error("recording run failed", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, ledger *sql.DB) error {
	client := radikoapi.NewClient(radikoapi.NewCache(cfg.CacheDir))

	auth, err := client.Authenticate(ctx)
	if err != nil {
		return err
	}
	slog.Info("authenticated", slog.String("area", auth.AreaID))

	// Prefetch guides for any extra stations so later lookups hit the
	// cache; one independent fetch per station.
	if len(cfg.Stations) > 0 {
		if guides, err := client.ProgramsAll(ctx, cfg.Stations, cfg.Date); err != nil {
			slog.Warn("guide prefetch failed", slog.Any("err", err))
		} else {
			total := 0
			for _, progs := range guides {
				total += len(progs)
			}
			slog.Info("prefetched guides", slog.Int("stations", len(guides)), slog.Int("programs", total))
		}
	}

	progs, err := client.Programs(ctx, cfg.StationID, cfg.Date)
	if err != nil {
		return err
	}
	prog, ok := radikoapi.FindProgram(progs, cfg.ProgramStart, cfg.ProgramTitle)
	if !ok {
		return &radikoapi.ConfigError{Reason: "no program matches the configured selector"}
	}
	slog.Info("program selected",
		slog.String("station", prog.StationID),
		slog.String("title", prog.Title),
		slog.String("start", prog.Start))

	recorder := rec.NewRecorder()
	recorder.FFmpegPath = cfg.FFmpegPath
	recorder.Post = rec.NewPostProcessor(cfg.FFmpegPath)

	job := rec.NewJob(prog, cfg.OutputDir)
	path, recErr := recorder.Record(ctx, auth, job)

	recordOutcome(ctx, ledger, job, path, recErr)
	return recErr
}

// openLedger connects and migrates the optional history ledger. Any
// failure disables it with a warning instead of failing the run.
func openLedger(ctx context.Context, dsn string) *sql.DB {
	if dsn == "" {
		return nil
	}
	db, err := history.Connect(dsn)
	if err != nil {
		slog.Warn("history ledger unavailable", slog.Any("err", err))
		return nil
	}
	if err := history.Migrate(ctx, db); err != nil {
		slog.Warn("history migration failed, ledger disabled", slog.Any("err", err))
		_ = db.Close()
		return nil
	}
	return db
}

// recordOutcome appends the job result to the ledger, best effort.
func recordOutcome(ctx context.Context, ledger *sql.DB, job *rec.Job, path string, recErr error) {
	if ledger == nil {
		return
	}
	e := history.Entry{
		StationID: job.Program.StationID,
		Title:     job.Program.Title,
		Start:     job.Program.Start,
		Path:      path,
		Status:    string(job.Status),
	}
	if recErr != nil {
		e.Error = recErr.Error()
	}
	if err := history.Insert(ctx, ledger, e); err != nil {
		slog.Warn("history insert failed", slog.Any("err", err))
	}
}

func initLogging() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
}
