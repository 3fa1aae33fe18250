// Command comicctl is a terminal client of the comic tracker server.
//
// Access token and refresh cookie are kept in the session directory between
// runs. Expired access token is refreshed on start; if that fails the session
// is dropped and you have to login again.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/nkiryanov/comictracker/internal/client/api"
	"github.com/nkiryanov/comictracker/internal/client/session"
	"github.com/nkiryanov/comictracker/internal/logger"
)

const (
	defaultServer   = "http://localhost:8000"
	defaultLogLevel = logger.LevelError
)

const usage = `Usage: comicctl [flags] <command> [args]

Commands:
  register <email>          create account, password is asked
  login <email>             start session, password is asked
  logout                    end session
  me                        show current user
  forgot <email>            request password reset link
  reset <token>             set new password with token from the link
  list [--want=true|false]  list comics
  add --title ... [flags]   add comic
  show <id>                 show comic
  edit <id> [flags]         change comic fields
  delete <id>               delete comic
  market <id> [--refresh]   show market value

Flags:
`

var (
	errUsage          = errors.New("wrong usage")
	errNotLoggedIn    = errors.New("not logged in, run 'comicctl login <email>'")
	errSessionExpired = errors.New("session expired, run 'comicctl login <email>'")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Getenv, os.Stdin, os.Stdout)
	if err != nil {
		// Bare usage error has printed usage already
		if err != errUsage { // nolint:errorlint
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

type app struct {
	client *api.Client
	state  state
	prompt *prompter
	out    io.Writer
	logger logger.Logger

	// Session manager clock and timers
	now       func() time.Time
	scheduler session.Scheduler
}

func run(ctx context.Context, args []string, getenv func(string) string, stdin io.Reader, stdout io.Writer) error {
	server := defaultServer
	if v := getenv("COMICCTL_SERVER"); v != "" {
		server = v
	}
	dir := getenv("COMICCTL_DIR")
	if dir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("can't find config dir, set COMICCTL_DIR. Err: %w", err)
		}
		dir = filepath.Join(configDir, "comicctl")
	}
	logLevel := defaultLogLevel

	fs := pflag.NewFlagSet("comicctl", pflag.ContinueOnError)
	fs.SetOutput(stdout)
	fs.SetInterspersed(false)
	fs.StringVarP(&server, "server", "s", server, "Server address")
	fs.StringVar(&dir, "session-dir", dir, "Where session is kept between runs")
	fs.StringVarP(&logLevel, "log-level", "l", logLevel, "Logging level (debug, info, warn, error)")
	fs.Usage = func() {
		fmt.Fprint(stdout, usage)           // nolint:errcheck
		fmt.Fprint(stdout, fs.FlagUsages()) // nolint:errcheck
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return errUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	log, err := logger.NewTextLogger(logLevel)
	if err != nil {
		return err
	}
	client, err := api.NewClient(server, log)
	if err != nil {
		return err
	}

	a := &app{
		client:    client,
		state:     state{dir: dir},
		prompt:    newPrompter(stdin, stdout),
		out:       stdout,
		logger:    log,
		now:       time.Now,
		scheduler: session.TimerScheduler{},
	}

	return a.dispatch(ctx, fs.Arg(0), fs.Args()[1:])
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	commands := map[string]func(context.Context, []string) error{
		"register": a.register,
		"login":    a.login,
		"logout":   a.logout,
		"me":       a.me,
		"forgot":   a.forgot,
		"reset":    a.reset,
		"list":     a.list,
		"add":      a.add,
		"show":     a.show,
		"edit":     a.edit,
		"delete":   a.delete,
		"market":   a.market,
	}

	cmd, ok := commands[command]
	if !ok {
		fmt.Fprintf(a.out, "Unknown command %q\n\n%s", command, usage) // nolint:errcheck
		return errUsage
	}

	return cmd(ctx, args)
}
