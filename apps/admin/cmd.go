package main

import (
	"context"
	"fmt"
	"io"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/trezcool/coffeeduty/apps/container"
	"github.com/trezcool/coffeeduty/core/duty"
	"github.com/trezcool/coffeeduty/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	gooseRunFunc     = database.Run      // mockable

	errPasswordMismatch = errors.New("passwords do not match")
	errEmptyPassword    = errors.New("password cannot be empty")
)

// env is handed to every command. Dependencies are opened lazily so that commands
// which do not need the database never touch it.
type env struct {
	ctx          context.Context
	out          io.Writer
	openDB       func(ctx context.Context) (*sqlx.DB, error)
	newContainer func(ctx context.Context) (*container.Container, error)
}

type commandLine struct {
	Migrate      migrateCmd      `cmd:"" help:"Run a goose migration command (up, down, status, version, redo, reset...)."`
	HashPassword hashPasswordCmd `cmd:"" name:"hashpassword" help:"Hash the admin password for COFFEEDUTY_AUTH_ADMINPASSWORDHASH."`
	Draw         drawCmd         `cmd:"" help:"Draw the person on coffee duty."`
	ResetStats   resetStatsCmd   `cmd:"" name:"resetstats" help:"Delete every automatic selection. Manual ones are kept."`
}

func (cli *commandLine) run(args []string, e *env) error {
	parser, err := kong.New(cli,
		kong.Name("admin"),
		kong.Description("Coffee Duty administration"),
		kong.Writers(e.out, e.out),
		kong.Exit(func(int) {}),
		kong.UsageOnError(),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return kctx.Run(e)
}

type migrateCmd struct {
	Command string   `arg:"" help:"goose command."`
	Args    []string `arg:"" optional:"" help:"goose command arguments."`
}

func (cmd *migrateCmd) Run(e *env) error {
	db, err := e.openDB(e.ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	return gooseRunFunc(e.ctx, db, cmd.Command, cmd.Args...)
}

type hashPasswordCmd struct {
	Cost int `help:"bcrypt cost." default:"10"`
}

func (cmd *hashPasswordCmd) Run(e *env) error {
	fmt.Fprint(e.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(e.out)
	if err != nil {
		return err
	}
	if len(pwd) == 0 {
		return errEmptyPassword
	}
	fmt.Fprint(e.out, "Confirm password:")
	confirm, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(e.out)
	if err != nil {
		return err
	}
	if string(pwd) != string(confirm) {
		return errPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword(pwd, cmd.Cost)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}
	fmt.Fprintln(e.out, string(hash))
	return nil
}

type drawCmd struct {
	Mode   string `arg:"" enum:"auto,manual" help:"auto honours the schedule and the automation flag, manual always draws."`
	Notify bool   `negatable:"" default:"true" help:"Email the person on duty (manual draws only)."`
}

func (cmd *drawCmd) Run(e *env) error {
	c, err := e.newContainer(e.ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	var res duty.DrawResult
	if cmd.Mode == "auto" {
		res, err = c.Duty.DrawAuto(e.ctx)
	} else {
		res, err = c.Duty.DrawManual(e.ctx, cmd.Notify)
	}
	if err != nil {
		return err
	}

	if !res.Drawn() {
		fmt.Fprintf(e.out, "%s: %s\n", res.Status, res.Reason)
		return nil
	}
	fmt.Fprintf(e.out, "%s: %s\n", res.Status, res.Person.FullName())
	if res.NotifyWarning != "" {
		fmt.Fprintf(e.out, "warning: %s\n", res.NotifyWarning)
	}
	return nil
}

type resetStatsCmd struct{}

func (cmd *resetStatsCmd) Run(e *env) error {
	c, err := e.newContainer(e.ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	n, err := c.Duty.ResetStats(e.ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "%d automatic selections deleted\n", n)
	return nil
}
