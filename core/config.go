package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // schedule time zone on hosts without zoneinfo

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// supported values
const (
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"

	// development only; rejected outside debug and test mode
	devSecretKey = "k8#z0q!m3v@x-coffee-duty-dev-only-secret"

	EmailConsole  = "console"
	EmailSendgrid = "sendgrid"
	EmailGmail    = "gmail"
)

type (
	Config struct {
		Env             string
		Debug           bool
		TestMode        bool
		Build           string
		AppName         string
		FrontendBaseURL string
		RollbarToken    string

		Server   ServerConfig
		Database DatabaseConfig
		Auth     AuthConfig
		Email    EmailConfig
		Schedule ScheduleConfig
		Log      LogConfig
	}

	ServerConfig struct {
		Host            string
		Address         string
		DisableReqLogs  bool
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite
		Host          string
		Port          int
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Name          string
		DisableTLS    bool
		Path          string // sqlite only
	}

	AuthConfig struct {
		SecretKey          string
		SchedulerToken     string
		AdminPasswordHash  string // bcrypt
		JWTExpirationDelta time.Duration
	}

	EmailConfig struct {
		Backend          string // console | sendgrid | gmail
		DefaultFromEmail string
		SendgridAPIKey   string
		SendTimeout      time.Duration

		GmailClientID     string
		GmailClientSecret string
		GmailRedirectURL  string
	}

	ScheduleConfig struct {
		Timezone string
	}

	LogConfig struct {
		File       string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
	}
)

// Address returns the "host:port" the database listens on.
func (dc DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", dc.Host, dc.Port)
}

// Location loads the time zone the duty schedule runs in.
func (sc ScheduleConfig) Location() (*time.Location, error) {
	return time.LoadLocation(sc.Timezone)
}

// NewConfig reads the configuration from defaults, the optional `config/.env.<env>` file
// and the environment (prefix COFFEEDUTY_, e.g. COFFEEDUTY_DATABASE_ENGINE).
func NewConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetDefault("env", env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "stat %s", dotEnvPath)
	}

	v.SetEnvPrefix("coffeeduty")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Coffee Duty")
	v.SetDefault("frontendBaseURL", "http://localhost:8000")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("server.readTimeout", 10*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("database.engine", EngineSQLite)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.name", "coffeeduty")
	v.SetDefault("database.disableTLS", false)
	v.SetDefault("database.path", "coffee_duty.db")

	v.SetDefault("auth.secretKey", devSecretKey)
	v.SetDefault("auth.schedulerToken", "")
	v.SetDefault("auth.adminPasswordHash", "")
	v.SetDefault("auth.jwtExpirationDelta", 12*time.Hour)

	v.SetDefault("email.backend", EmailConsole)
	v.SetDefault("email.defaultFromEmail", "Coffee Duty <noreply@localhost>")
	v.SetDefault("email.sendgridAPIKey", "")
	v.SetDefault("email.sendTimeout", 15*time.Second)
	v.SetDefault("email.gmailClientID", "")
	v.SetDefault("email.gmailClientSecret", "")
	v.SetDefault("email.gmailRedirectURL", "http://localhost:8000/v1/gmail/oauth2callback")

	v.SetDefault("schedule.timezone", "Europe/Ljubljana")

	v.SetDefault("log.file", "")
	v.SetDefault("log.maxSizeMB", 50)
	v.SetDefault("log.maxBackups", 3)
	v.SetDefault("log.maxAgeDays", 28)
}

// Validate checks the values that cannot be defaulted sensibly.
func (c *Config) Validate() error {
	switch c.Database.Engine {
	case EnginePostgres, EngineSQLite:
	default:
		return errors.Errorf("config: unsupported database engine %q", c.Database.Engine)
	}
	switch c.Email.Backend {
	case EmailConsole, EmailSendgrid, EmailGmail:
	default:
		return errors.Errorf("config: unsupported email backend %q", c.Email.Backend)
	}
	if _, err := c.Schedule.Location(); err != nil {
		return errors.Wrapf(err, "config: schedule timezone %q", c.Schedule.Timezone)
	}
	if c.Email.SendTimeout <= 0 {
		return errors.New("config: email send timeout must be positive")
	}
	if !c.Debug && !c.TestMode && (c.Auth.SecretKey == "" || c.Auth.SecretKey == devSecretKey) {
		return errors.New("config: auth.secretKey must be set outside debug mode")
	}
	return nil
}
