package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"TodoScanner/internal/classify"
	"TodoScanner/internal/config"
	"TodoScanner/internal/domain"
	"TodoScanner/internal/infrastructure/graphauth"
	"TodoScanner/internal/infrastructure/llm"
	"TodoScanner/internal/infrastructure/mail"
	"TodoScanner/internal/infrastructure/sink"
	"TodoScanner/internal/infrastructure/transcript"
	"TodoScanner/internal/logging"
	"TodoScanner/internal/ports"
	"TodoScanner/internal/usecase"
	"TodoScanner/internal/watermark"
)

// Application wires configuration into the polling loop and owns process-wide
// resources (database handle, token client).
type Application struct {
	cfg       config.Config
	scheduler *usecase.Scheduler
	db        *sql.DB
}

// New builds a runnable application instance. Optional collaborators (the
// transcript provider, each sink) are constructed only when configured.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	graphClient := graphauth.NewClient(ctx, cfg.Graph)

	email := mail.NewGraphFetcher(graphClient, cfg.Graph.Endpoint, cfg.Monitor.UserEmail)

	var transcripts ports.DocumentSource
	if cfg.Fireflies.APIKey != "" {
		transcripts = transcript.NewFirefliesFetcher(nil, cfg.Fireflies.Endpoint, cfg.Fireflies.APIKey)
	} else {
		baseLogger.Warn("fireflies api key not set, transcript monitoring disabled")
	}

	classifier := classify.New(
		llm.NewAnthropicClient(cfg.Model),
		classify.NewNoiseFilter(cfg.Monitor.UserEmail),
		identityName(cfg.Monitor),
		logging.Component(baseLogger, "classifier"),
	)

	app := &Application{cfg: cfg}

	sinks, err := app.buildSinks(ctx, cfg, graphClient, baseLogger)
	if err != nil {
		return nil, err
	}
	if len(sinks) == 0 {
		return nil, fmt.Errorf("no sinks configured")
	}

	tracker := watermark.NewTracker(map[domain.SourceKind]time.Duration{
		domain.SourceEmail:      cfg.Scheduler.EmailLookback(),
		domain.SourceTranscript: cfg.Scheduler.TranscriptLookback(),
	})

	writer := usecase.NewDedupWriter(sinks, logging.Component(baseLogger, "writer"))
	pipeline := usecase.NewPipeline(tracker, classifier, writer, logging.Component(baseLogger, "pipeline"))

	app.scheduler = usecase.NewScheduler(pipeline, email, transcripts,
		cfg.Scheduler.Tiers, cfg.Scheduler.Location(), logging.Component(baseLogger, "scheduler"))

	return app, nil
}

func (a *Application) buildSinks(ctx context.Context, cfg config.Config, graphClient *http.Client, logger *slog.Logger) ([]ports.Sink, error) {
	var sinks []ports.Sink

	if cfg.Sinks.File.Path != "" {
		sinks = append(sinks, sink.NewFileSink(cfg.Sinks.File.Path))
	}

	if cfg.Sinks.Database.DSN != "" {
		db, err := sql.Open("postgres", cfg.Sinks.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		pg := sink.NewPostgresSink(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		a.db = db
		sinks = append(sinks, pg)
	}

	if cfg.Sinks.Sheets.SpreadsheetID != "" && cfg.Sinks.Sheets.CredentialsPath != "" {
		sheetsSink, err := sink.NewSheetsSink(ctx, cfg.Sinks.Sheets.CredentialsPath, cfg.Sinks.Sheets.SpreadsheetID)
		if err != nil {
			return nil, fmt.Errorf("build sheets sink: %w", err)
		}
		sinks = append(sinks, sheetsSink)
	}

	if cfg.Sinks.Encrypted.Dir != "" && cfg.Sinks.Encrypted.Passphrase != "" {
		encSink, err := sink.NewEncryptedSink(cfg.Sinks.Encrypted.Dir, cfg.Sinks.Encrypted.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("build encrypted sink: %w", err)
		}
		sinks = append(sinks, encSink)
	}

	if cfg.Sinks.TaskList.Enabled {
		sinks = append(sinks, sink.NewTaskListSink(graphClient, cfg.Graph.Endpoint,
			cfg.Monitor.UserEmail, cfg.Sinks.TaskList.ListName))
	}

	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	logger.Info("sinks configured", "sinks", strings.Join(names, ","))

	return sinks, nil
}

// Run drives the polling loop until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if a.db != nil {
		defer a.db.Close()
	}
	return a.scheduler.Run(ctx)
}

func identityName(monitor config.MonitorConfig) string {
	if monitor.IdentityName != "" {
		return monitor.IdentityName
	}
	if at := strings.Index(monitor.UserEmail, "@"); at > 0 {
		return monitor.UserEmail[:at]
	}
	return monitor.UserEmail
}
