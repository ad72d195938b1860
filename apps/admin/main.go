package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/coffeeduty/apps/container"
	"github.com/trezcool/coffeeduty/core"
	logsvc "github.com/trezcool/coffeeduty/services/logger"
	"github.com/trezcool/coffeeduty/storage/database"
)

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger(logsvc.Output(conf.Log), "ADMIN : "), conf)

	e := &env{
		ctx: context.Background(),
		out: os.Stdout,
		openDB: func(ctx context.Context) (*sqlx.DB, error) {
			if err := database.CreateIfNotExist(ctx, conf); err != nil {
				return nil, err
			}
			return database.Open(ctx, conf)
		},
		newContainer: func(ctx context.Context) (*container.Container, error) {
			return container.New(ctx, conf, logger, os.Stdout)
		},
	}

	cli := new(commandLine)
	if err = cli.run(os.Args[1:], e); err != nil {
		fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		os.Exit(1)
	}
}
