package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/taskscan/api/handler"
	"github.com/fastygo/taskscan/internal/config"
	"github.com/fastygo/taskscan/internal/extract"
	"github.com/fastygo/taskscan/internal/infrastructure/feed"
	"github.com/fastygo/taskscan/internal/infrastructure/monitor"
	"github.com/fastygo/taskscan/internal/infrastructure/queue"
	"github.com/fastygo/taskscan/internal/infrastructure/scanlog"
	"github.com/fastygo/taskscan/internal/router"
	"github.com/fastygo/taskscan/internal/scan"
	"github.com/fastygo/taskscan/internal/services"
	"github.com/fastygo/taskscan/internal/services/lifecycle"
	"github.com/fastygo/taskscan/pkg/httpcontext"
	"github.com/fastygo/taskscan/pkg/logger"
	fileRepo "github.com/fastygo/taskscan/repository/file"
	"github.com/fastygo/taskscan/usecase/autotask"
	"github.com/fastygo/taskscan/usecase/tasklist"
)

// heartbeatMaxAge is how stale the companion heartbeat may be before the
// health endpoint reports it unhealthy. The companion touches its file once
// a minute.
const heartbeatMaxAge = 3 * time.Minute

// scanlogRetention bounds the cycle history kept in the scan log; older
// entries are pruned at boot.
const scanlogRetention = 30 * 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	store, err := fileRepo.NewTaskStore(cfg.Data.TasksFile, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to open task store", zap.Error(err))
	}

	ledger, err := fileRepo.OpenLedger(cfg.Data.ProcessedFile, cfg.Scan.LedgerCap, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to open processed ledger", zap.Error(err))
	}

	ingestQueue, err := queue.New(cfg.Data.QueueDir, cfg.Data.TriggerFile, cfg.Data.AliveFile, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to open ingest queue", zap.Error(err))
	}
	if removed, err := ingestQueue.Sweep(); err != nil {
		zapLogger.Warn("queue sweep failed", zap.Error(err))
	} else if removed > 0 {
		zapLogger.Info("queue swept at boot", zap.Int("removed", removed))
	}

	cycleLog, err := scanlog.Open(cfg.Data.ScanLogFile, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to open scan log", zap.Error(err))
	}
	manager.Register("scanlog", func(ctx context.Context) error {
		return cycleLog.Close()
	})
	if removed, err := cycleLog.Prune(time.Now().Add(-scanlogRetention)); err != nil {
		zapLogger.Warn("scan log prune failed", zap.Error(err))
	} else if removed > 0 {
		zapLogger.Info("scan log pruned", zap.Int("removed", removed))
	}

	extractor := extract.New(cfg.User.Name, zapLogger)
	merger := autotask.New(store, zapLogger)
	scanners := buildScanners(appCtx, cfg, ledger, extractor, merger, ingestQueue, zapLogger)

	mon := monitor.New(store, ingestQueue, len(scanners), 10*time.Second, heartbeatMaxAge, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	orchestrator := scan.NewOrchestrator(scanners, cycleLog, ingestQueue,
		cfg.Scan.Interval, cfg.Scan.ScannerTimeout, cfg.Scan.StartDelay, zapLogger)
	if len(scanners) > 0 {
		orchestrator.Start()
	} else {
		zapLogger.Warn("no feeds configured, scanning disabled")
	}
	manager.Register("orchestrator", func(ctx context.Context) error {
		return orchestrator.Stop(ctx)
	})

	reminders := services.NewReminderService(store, services.NewLogNotifier(zapLogger),
		services.ReminderConfig{
			MorningSpec:   cfg.Reminders.MorningSpec,
			AfternoonSpec: cfg.Reminders.AfternoonSpec,
			DueThresholds: cfg.Reminders.DueThresholds,
		}, zapLogger)
	if err := reminders.Start(); err != nil {
		zapLogger.Fatal("failed to schedule reminders", zap.Error(err))
	}
	manager.Register("reminders", func(ctx context.Context) error {
		return reminders.Stop(ctx)
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)
	tasks := tasklist.New(store, zapLogger)

	handlers := router.Handlers{
		Task:   apiHandler.NewTaskHandler(tasks, ctxAdapter, zapLogger),
		Scan:   apiHandler.NewScanHandler(orchestrator, cycleLog, ctxAdapter, zapLogger),
		Ingest: apiHandler.NewIngestHandler(ingestQueue, ctxAdapter, zapLogger),
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}
	r := router.New(handlers)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}

// buildScanners wires a scanner for every feed with credentials present;
// missing credentials disable that channel only.
func buildScanners(ctx context.Context, cfg *config.Config, ledger *fileRepo.Ledger,
	extractor *extract.Extractor, merger *autotask.Merger, q *queue.Queue,
	zapLogger *zap.Logger) []scan.Scanner {

	var scanners []scan.Scanner

	if cfg.Feeds.GoogleCredentials != "" && cfg.Feeds.GoogleToken != "" {
		mail, err := feed.NewGmailFeed(ctx, cfg.Feeds.GoogleCredentials, cfg.Feeds.GoogleToken,
			logger.ForChannel(zapLogger, "gmail"))
		if err != nil {
			zapLogger.Error("gmail feed unavailable", zap.Error(err))
		} else {
			routing := scan.EmailRouting{
				SelfAddress:    cfg.User.SelfAddress,
				TrustedDomain:  cfg.User.TrustedDomain,
				NotesBotSender: cfg.User.NotesBotSender,
			}
			scanners = append(scanners, scan.NewEmailScanner(mail, ledger, extractor, merger, q,
				routing, logger.ForChannel(zapLogger, "email")))
		}
	}

	if cfg.Feeds.SlackToken != "" && cfg.Feeds.SlackUserID != "" {
		chat := feed.NewSlackFeed(cfg.Feeds.SlackToken, cfg.Feeds.SlackUserID,
			logger.ForChannel(zapLogger, "slack"))
		scanners = append(scanners, scan.NewSlackScanner(chat, ledger, extractor, merger,
			logger.ForChannel(zapLogger, "slack")))
	}

	if cfg.Feeds.GongKey != "" && cfg.Feeds.GongSecret != "" {
		calls := feed.NewGongFeed(cfg.Feeds.GongBaseURL, cfg.Feeds.GongKey, cfg.Feeds.GongSecret,
			logger.ForChannel(zapLogger, "gong"))
		scanners = append(scanners, scan.NewGongScanner(calls, ledger, extractor, merger,
			logger.ForChannel(zapLogger, "gong")))
	}

	return scanners
}
