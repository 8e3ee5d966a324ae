package main

import (
	"context"
	"examprep/app/api"
	"examprep/app/client/blob"
	"examprep/app/client/extract"
	"examprep/app/client/llm"
	"examprep/app/config"
	"examprep/app/service/classifier"
	"examprep/app/service/engine"
	"examprep/app/service/examgen"
	"examprep/app/service/ingest"
	"examprep/app/service/qa"
	"examprep/app/service/queue"
	"examprep/app/service/session"
	"examprep/app/util/mylog"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, llm.New)
	do.Provide(di, extract.New)
	do.Provide(di, blob.New)
	do.Provide(di, classifier.New)
	do.Provide(di, ingest.New)
	do.Provide(di, qa.New)
	do.Provide(di, examgen.New)
	do.Provide(di, queue.New)
	do.Provide(di, engine.New)
	do.Provide(di, session.New)
	do.Provide(di, api.New)

	slog.Info("Service started",
		"model", cfg.LLM.Model,
		"llm_configured", cfg.LLM.Configured(),
		"storage", cfg.Storage.Backend)

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	workersDone := make(chan struct{})
	go func() {
		do.MustInvoke[*engine.Service](di).Run(appCtx)
		close(workersDone)
	}()

	server := do.MustInvoke[*api.Server](di)
	go func() {
		if err := server.Run(); err != nil {
			slog.Error("HTTP server stopped", "error", err)
			cancel()
		}
	}()

	<-appCtx.Done()

	if err = server.Shutdown(); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}

	_ = do.MustInvoke[*queue.Service](di).Shutdown()
	<-workersDone
}
