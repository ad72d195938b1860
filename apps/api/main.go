package main

import (
	"context"
	"fmt"
	"os"

	echoapi "github.com/trezcool/coffeeduty/apps/api/echo"
	"github.com/trezcool/coffeeduty/apps/container"
	"github.com/trezcool/coffeeduty/core"
	logsvc "github.com/trezcool/coffeeduty/services/logger"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	// set up loggers; one writer per log file
	logOut := logsvc.Output(conf.Log)
	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger(logOut, "API : "), conf)
	dbLogger := logsvc.NewRollbarLogger(logsvc.NewStdLogger(logOut, "DB : "), conf)

	c, err := container.New(context.Background(), conf, logger, nil)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up dependencies: %v", err), err)
	}
	defer func() {
		if err = c.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build), map[string]interface{}{
		"env":      conf.Env,
		"database": conf.Database.Engine,
		"email":    c.Mailer.Backend(),
	})
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Roster:     c.Roster,
			Duty:       c.Duty,
			Settings:   c.Settings,
			Mailer:     c.Mailer,
			Gmail:      c.Gmail,
			Validate:   c.Validate,
			Translator: c.Translator,
			Gatherer:   c.Registry,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
