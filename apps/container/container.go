// Package container builds the dependencies shared by the API server and the admin CLI.
package container

import (
	"context"
	"io"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/trezcool/coffeeduty/core"
	"github.com/trezcool/coffeeduty/core/duty"
	"github.com/trezcool/coffeeduty/core/roster"
	"github.com/trezcool/coffeeduty/core/settings"
	emailsvc "github.com/trezcool/coffeeduty/services/email"
	"github.com/trezcool/coffeeduty/storage/database"
	sqlxrepos "github.com/trezcool/coffeeduty/storage/database/sqlx"
)

type Container struct {
	Conf       *core.Config
	Logger     core.Logger
	DB         *sqlx.DB
	Registry   *prometheus.Registry
	Validate   *validator.Validate
	Translator ut.Translator

	Roster   *roster.Service
	Settings *settings.Service
	Gmail    *emailsvc.GmailService
	Mailer   core.EmailService
	Duty     *duty.Service

	ownsDB bool
}

// New sets up the database (creating and migrating it when needed) and every service.
// consoleOut receives the emails of the console backend.
func New(ctx context.Context, conf *core.Config, logger core.Logger, consoleOut io.Writer) (*Container, error) {
	db, err := newDB(ctx, conf)
	if err != nil {
		return nil, errors.Wrap(err, "setting up database")
	}
	c, err := FromDB(conf, logger, db, consoleOut)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	c.ownsDB = true
	return c, nil
}

func newDB(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// FromDB builds the services on top of an already migrated database.
func FromDB(conf *core.Config, logger core.Logger, db *sqlx.DB, consoleOut io.Writer) (*Container, error) {
	loc, err := conf.Schedule.Location()
	if err != nil {
		return nil, errors.Wrap(err, "loading schedule time zone")
	}
	from, err := emailsvc.ParseAddress(conf.Email.DefaultFromEmail)
	if err != nil {
		return nil, errors.Wrap(err, "parsing default from email")
	}
	site := core.SiteInfo{AppName: conf.AppName, FrontendBaseURL: conf.FrontendBaseURL}

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	roster.InitValidators(validate, translator)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	settingsStore := sqlxrepos.NewSettingsStore(db)
	settingsSvc := settings.NewService(settingsStore)
	rosterSvc := roster.NewService(sqlxrepos.NewRosterRepository(db))
	gmail := emailsvc.NewGmailService(conf.Email, from, site, settingsStore)

	var mailer core.EmailService
	switch conf.Email.Backend {
	case core.EmailSendgrid:
		mailer = emailsvc.WithRetry(emailsvc.NewSendgridService(conf.Email.SendgridAPIKey, from, site))
	case core.EmailGmail:
		mailer = emailsvc.WithRetry(gmail)
	default:
		if consoleOut == nil {
			consoleOut = os.Stdout
		}
		mailer = emailsvc.NewConsoleService(from, site, consoleOut)
	}

	dutySvc := duty.NewService(duty.Deps{
		Roster:      rosterSvc,
		Repo:        sqlxrepos.NewDutyRepository(db),
		Flags:       settingsSvc,
		Mailer:      mailer,
		Schedule:    duty.NewSchedule(loc),
		Logger:      logger,
		Metrics:     duty.NewMetrics(registry),
		Site:        site,
		SendTimeout: conf.Email.SendTimeout,
	})

	return &Container{
		Conf:       conf,
		Logger:     logger,
		DB:         db,
		Registry:   registry,
		Validate:   validate,
		Translator: translator,
		Roster:     rosterSvc,
		Settings:   settingsSvc,
		Gmail:      gmail,
		Mailer:     mailer,
		Duty:       dutySvc,
	}, nil
}

// Close releases the database opened by New. Databases handed to FromDB are left open.
func (c *Container) Close() error {
	if !c.ownsDB {
		return nil
	}
	return c.DB.Close()
}
