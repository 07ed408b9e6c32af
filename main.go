package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moyoez/speeder2raw-web/api"
	"github.com/moyoez/speeder2raw-web/api/notifyhub"
	"github.com/moyoez/speeder2raw-web/hooks"
	"github.com/moyoez/speeder2raw-web/notify"
	"github.com/moyoez/speeder2raw-web/registry"
	"github.com/moyoez/speeder2raw-web/store"
	"github.com/moyoez/speeder2raw-web/tool"
)

const shutdownTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	flags := tool.SetFlags()

	// initialize logger
	tool.InitLogger()
	tool.SetLogMode(flags.Log)

	appCfg, err := tool.LoadConfig(flags.UseConsoleConfig)
	if err != nil {
		tool.DefaultLogger.Errorf("%v", err)
		return 1
	}
	tool.ApplyOverrides(&appCfg, flags, os.Getenv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := notifyhub.New()
	notify.SetHub(hub)

	gateway := hooks.New(appCfg.ScriptDir, appCfg.ClientOutDir)
	groups := registry.New(store.New(appCfg.ConfigPath), gateway)
	apiServer := api.NewServer(appCfg, groups, hub)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- apiServer.Start()
	}()
	tool.DefaultLogger.Infof("UDPspeeder2raw web console starting, config: %s", appCfg.ConfigPath)
	gateway.StartMappingServer()

	exitCode := 0
	select {
	case err := <-serverErr:
		if err != nil {
			tool.DefaultLogger.Errorf("API server startup failed: %v", err)
			exitCode = 1
		}
	case <-ctx.Done():
		tool.DefaultLogger.Info("Shutting down console...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		tool.DefaultLogger.Warnf("API server shutdown: %v", err)
	}
	if err := gateway.Wait(shutdownCtx); err != nil {
		tool.DefaultLogger.Warnf("Restart scripts still running at exit: %v", err)
	}

	// the stop script runs to completion before the process exits
	_ = gateway.StopMappingServer(context.Background())
	return exitCode
}
