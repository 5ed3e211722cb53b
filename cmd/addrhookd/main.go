package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/dmdmdm-nz/addrhookd/internal/api"
	"github.com/dmdmdm-nz/addrhookd/internal/hooks"
	"github.com/dmdmdm-nz/addrhookd/internal/netmon"
	"github.com/dmdmdm-nz/addrhookd/internal/runtime"
	"github.com/dmdmdm-nz/addrhookd/pkg/cli"
)

const exitInterfaceNotFound = 2

func main() {
	// Parse command line flags
	cfg := cli.ParseFlags()

	// Configure logging
	setLogLevel(cfg.LogLevel, cfg.Verbose)
	log.SetFormatter(&log.TextFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FullTimestamp:   true,
	})

	log.Infof("Config: Interface=%s", cfg.Interface)
	log.Infof("Config: HookDir=%s", cfg.HookDir)
	log.Infof("Config: HookTimeout=%s", cfg.HookTimeout)
	log.Infof("Config: LogLevel=%s", log.GetLevel())
	log.Infof("Config: InitialDump=%v", cfg.InitialDump)
	if cfg.APIAddress != "" {
		log.Infof("Config: API=%s", cfg.APIAddress)
	}

	link, err := netmon.ResolveInterface(cfg.Interface)
	if err != nil {
		if errors.Is(err, netmon.ErrInterfaceNotFound) {
			log.WithField("interface", cfg.Interface).Error("No interface with that name found")
			os.Exit(exitInterfaceNotFound)
		}
		log.WithError(err).Error("Failed to resolve interface")
		os.Exit(1)
	}

	if _, err := os.Stat(cfg.HookDir); err != nil {
		log.WithField("dir", cfg.HookDir).WithError(err).Warn("Hook directory is not accessible yet")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dispatcher := hooks.NewDispatcher(cfg.HookDir, hooks.NewRunner(cfg.HookTimeout))
	netmonSvc := netmon.NewService(netmon.NewWatcher(cfg.InitialDump), link, dispatcher)

	super := runtime.NewSupervisor()
	super.Add("netmon", netmonSvc.Start, netmonSvc.Close)
	if cfg.APIAddress != "" {
		apiSvc := api.NewService(cfg.APIAddress, link.Name, netmonSvc)
		super.Add("api", apiSvc.Start, apiSvc.Close)
	}

	if err := super.Run(ctx); err != nil {
		log.WithError(err).Error("Exiting after worker failure")
		os.Exit(1)
	}
}

func setLogLevel(level string, verbose bool) {
	switch level {
	case "trace":
		log.SetLevel(log.TraceLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}

	if verbose && !log.IsLevelEnabled(log.DebugLevel) {
		log.SetLevel(log.DebugLevel)
	}
}
