package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/comictracker/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultResetLink    = "http://localhost:5173/reset-password"
	defaultMailDir      = "mail"
	defaultMarketEvery  = "1h"
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the comictracker service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Secrets to sign access and refresh tokens with. Have to differ
	AccessSecret  string
	RefreshSecret string

	// Environment
	Environment string

	// Reset page url, reset token is appended to it
	ResetLinkBaseURL string

	// Postmark credentials. If empty, emails are written to MailDir
	PostmarkServerToken  string
	PostmarkAccountToken string
	MailSender           string
	MailSupport          string
	MailDir              string

	// How often stale market values are refreshed in background, "0" disables
	MarketRefreshInterval string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:         defaultLoggingLevel,
		ListenAddr:       defaultListenAddr,
		Environment:      defaultEnvironment,
		ResetLinkBaseURL: defaultResetLink,
		MailDir:          defaultMailDir,

		MarketRefreshInterval: defaultMarketEvery,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":             setString(&c.ListenAddr),
		"DATABASE_URI":            setString(&c.DatabaseDSN),
		"ACCESS_TOKEN_SECRET":     setString(&c.AccessSecret),
		"REFRESH_TOKEN_SECRET":    setString(&c.RefreshSecret),
		"LOG_LEVEL":               setString(&c.LogLevel),
		"ENVIRONMENT":             setString(&c.Environment),
		"RESET_LINK_BASE_URL":     setString(&c.ResetLinkBaseURL),
		"POSTMARK_SERVER_TOKEN":   setString(&c.PostmarkServerToken),
		"POSTMARK_ACCOUNT_TOKEN":  setString(&c.PostmarkAccountToken),
		"MAIL_SENDER":             setString(&c.MailSender),
		"MAIL_SUPPORT":            setString(&c.MailSupport),
		"MAIL_DIR":                setString(&c.MailDir),
		"MARKET_REFRESH_INTERVAL": setString(&c.MarketRefreshInterval),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

// Secrets and mail tokens are not flags: they would be seen in process list
func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("comictracker", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (development, production)")
	fs.StringVar(&c.ResetLinkBaseURL, "reset-link", c.ResetLinkBaseURL, "Password reset page url")
	fs.StringVar(&c.MailDir, "mail-dir", c.MailDir, "Directory for emails when postmark is not configured")
	fs.StringVar(&c.MarketRefreshInterval, "market-refresh", c.MarketRefreshInterval, "Background market refresh interval, 0 to disable")

	return fs.Parse(args)
}

func (c *Config) usePostmark() bool {
	return c.PostmarkServerToken != "" || c.PostmarkAccountToken != ""
}
