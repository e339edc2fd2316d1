package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/tidewell/filegate/api"
	"github.com/tidewell/filegate/api/controllers"
	"github.com/tidewell/filegate/api/notifyhub"
	"github.com/tidewell/filegate/scanner"
	"github.com/tidewell/filegate/storage"
	"github.com/tidewell/filegate/tool"
	"github.com/tidewell/filegate/transfer"
	"github.com/tidewell/filegate/types"
	"github.com/tidewell/filegate/uploader"
)

func main() {
	flags := tool.SetFlags()
	tool.InitLogger()
	tool.SetLogMode(flags.Log)

	cfg, err := tool.LoadConfig(flags.UseConfigPath)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
	if flags.UsePort > 0 {
		cfg.Port = flags.UsePort
	}
	if flags.UseUploadFolder != "" {
		cfg.UploadFolder = flags.UseUploadFolder
	}
	if flags.UseTempFolder != "" {
		cfg.TempFolder = flags.UseTempFolder
	}
	if flags.UseScan {
		cfg.ScanEnabled = true
	}

	fs := afero.NewOsFs()

	if flags.UseSendFiles != "" {
		runClient(fs, &cfg, flags)
		return
	}
	runServer(fs, &cfg)
}

func runServer(fs afero.Fs, cfg *types.AppConfig) {
	hub := notifyhub.New()
	resolver := storage.NewTempResolver(fs, cfg.TempFolder, cfg.Namespace)
	index := storage.NewIndexStore(fs, cfg.IndexPath)
	finalizer := storage.NewFinalizer(fs, cfg.UploadFolder, index)
	invoker := scanner.NewExecInvoker(cfg.Scanner)
	coordinator := scanner.NewCoordinator(resolver, invoker, cfg.Scanner.Marker, nil, hub)

	server := api.NewServer(cfg.Port, api.Deps{
		Cfg:    cfg,
		Upload: controllers.NewUploadController(cfg, fs, resolver, finalizer, index, hub),
		Scan:   controllers.NewScanController(coordinator),
		Hub:    hub,
	})
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		tool.DefaultLogger.Fatalf("API server startup failed: %v", err)
	}
}

func runClient(fs afero.Fs, cfg *types.AppConfig, flags tool.Config) {
	target := flags.UseSendTarget
	if target == "" {
		target = "http://127.0.0.1:53419"
	}
	registry, err := transfer.DefaultRegistry(target)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}

	var tasks []*types.FileTransferTask
	for _, path := range strings.Split(flags.UseSendFiles, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			tool.DefaultLogger.Fatalf("Cannot read %s: %v", path, err)
		}
		tasks = append(tasks, &types.FileTransferTask{
			FileName:   info.Name(),
			SourcePath: path,
			Size:       info.Size(),
		})
	}
	if len(tasks) == 0 {
		tool.DefaultLogger.Fatalf("No files to send")
	}

	executor := transfer.NewExecutor(fs, tool.GetHttpClient(), cfg.MaxRetries)
	scans := transfer.NewScanClient(fs, tool.GetHttpClient())
	resolver := storage.NewTempResolver(fs, cfg.TempFolder, cfg.Namespace)
	orchestrator := uploader.New(cfg, registry, executor, scans, resolver, types.NopPublisher{})

	batch := types.NewUploadBatch(uuid.NewString(), flags.UseUploadContext, tasks)
	defer orchestrator.Cleanup(batch)

	outcome, err := orchestrator.Run(context.Background(), batch)
	if err != nil {
		tool.DefaultLogger.Errorf("Batch aborted: %v", err)
	}
	tool.DefaultLogger.Infof("Batch %s finished: outcome=%s failed=%d infected=%d",
		batch.ID, outcome, batch.IterFailed, batch.SomeInfectedFiles)
	if outcome != types.AllSucceeded {
		os.Exit(1)
	}
}
