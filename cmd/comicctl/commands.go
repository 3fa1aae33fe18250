package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/comictracker/internal/client/api"
	"github.com/nkiryanov/comictracker/internal/client/session"
)

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...) // nolint:errcheck
}

// One positional argument or a usage error
func oneArg(args []string, name string) (string, error) {
	if len(args) != 1 || args[0] == "" {
		return "", fmt.Errorf("%w: %s expected", errUsage, name)
	}
	return args[0], nil
}

func comicID(args []string) (uuid.UUID, []string, error) {
	if len(args) == 0 {
		return uuid.Nil, nil, fmt.Errorf("%w: comic id expected", errUsage)
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("%q is not a comic id", args[0])
	}
	return id, args[1:], nil
}

func (a *app) newManager(expired *atomic.Bool) (*session.Manager, error) {
	return session.New(session.Config{
		Store:     a.state.tokens(),
		Refresher: a.client,
		Scheduler: a.scheduler,
		Now:       a.now,
		OnExpired: func() { expired.Store(true) },
		Logger:    a.logger,
	})
}

// Run fn with live session: stored token is refreshed first if it is about to expire
func (a *app) withSession(ctx context.Context, fn func(ctx context.Context) error) error {
	cookie, err := a.state.refreshCookie()
	if err != nil {
		return err
	}
	a.client.RestoreRefreshCookie(cookie)

	var expired atomic.Bool
	manager, err := a.newManager(&expired)
	if err != nil {
		return err
	}
	if err := manager.Start(ctx); err != nil {
		return err
	}
	defer manager.Stop()

	if expired.Load() {
		_ = a.state.saveRefreshCookie("")
		return errSessionExpired
	}
	token, err := manager.Token()
	if err != nil {
		return err
	}
	if token == "" {
		return errNotLoggedIn
	}

	a.client.UseTokens(manager)
	err = fn(ctx)
	if api.IsStatus(err, http.StatusForbidden) {
		return fmt.Errorf("%w (%w)", errSessionExpired, err)
	}
	return err
}

func (a *app) register(ctx context.Context, args []string) error {
	email, err := oneArg(args, "email")
	if err != nil {
		return err
	}
	password, err := a.prompt.password("Password")
	if err != nil {
		return err
	}

	if err := a.client.Register(ctx, email, password); err != nil {
		return err
	}

	a.printf("Registered %s, now run 'comicctl login %s'\n", email, email)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	email, err := oneArg(args, "email")
	if err != nil {
		return err
	}
	password, err := a.prompt.password("Password")
	if err != nil {
		return err
	}

	token, err := a.client.Login(ctx, email, password)
	if err != nil {
		if api.IsStatus(err, http.StatusUnauthorized) {
			return errors.New("invalid credentials")
		}
		return err
	}

	var expired atomic.Bool
	manager, err := a.newManager(&expired)
	if err != nil {
		return err
	}
	if err := manager.SetToken(token); err != nil {
		return err
	}
	manager.Stop()

	if err := a.state.saveRefreshCookie(a.client.RefreshCookie()); err != nil {
		return fmt.Errorf("can't save refresh cookie. Err: %w", err)
	}

	a.printf("Logged in as %s\n", email)
	return nil
}

func (a *app) logout(ctx context.Context, args []string) error {
	cookie, err := a.state.refreshCookie()
	if err != nil {
		return err
	}
	a.client.RestoreRefreshCookie(cookie)

	// Local session is dropped even if server can't be reached
	if err := a.client.Logout(ctx); err != nil {
		a.logger.Warn("logout request failed", "error", err)
	}

	if err := a.state.tokens().Clear(); err != nil {
		return err
	}
	if err := a.state.saveRefreshCookie(""); err != nil {
		return err
	}

	a.printf("Logged out\n")
	return nil
}

func (a *app) me(ctx context.Context, args []string) error {
	return a.withSession(ctx, func(ctx context.Context) error {
		user, err := a.client.Me(ctx)
		if err != nil {
			return err
		}
		a.printf("%s (id %s, since %s)\n", user.Email, user.ID, user.CreatedAt.Format("2006-01-02"))
		return nil
	})
}

func (a *app) forgot(ctx context.Context, args []string) error {
	email, err := oneArg(args, "email")
	if err != nil {
		return err
	}

	msg, err := a.client.ForgotPassword(ctx, email)
	if err != nil {
		return err
	}

	a.printf("%s\n", msg)
	return nil
}

func (a *app) reset(ctx context.Context, args []string) error {
	token, err := oneArg(args, "reset token")
	if err != nil {
		return err
	}
	password, err := a.prompt.password("New password")
	if err != nil {
		return err
	}

	msg, err := a.client.ResetPassword(ctx, token, password)
	if err != nil {
		return err
	}

	a.printf("%s\n", msg)
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
	fs.SetOutput(a.out)
	want := fs.String("want", "", "Only want list (true) or only collection (false)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	var wantList *bool
	if *want != "" {
		v, err := strconv.ParseBool(*want)
		if err != nil {
			return fmt.Errorf("%w: --want has to be true or false", errUsage)
		}
		wantList = &v
	}

	return a.withSession(ctx, func(ctx context.Context) error {
		comics, err := a.client.ListComics(ctx, wantList)
		if err != nil {
			return err
		}
		if len(comics) == 0 {
			a.printf("No comics\n")
			return nil
		}

		w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tISSUE\tYEAR\tGRADE\tWANT") // nolint:errcheck
		for _, c := range comics {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\n", c.ID, c.Title, c.Issue, c.Year, c.Grade, c.WantList) // nolint:errcheck
		}
		return w.Flush()
	})
}

// Flags of comic fields. Only flags set by user change the input
func comicFlags(name string, in *api.ComicInput) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringVar(&in.Title, "title", in.Title, "Title")
	fs.StringVar(&in.SeriesTitle, "series", in.SeriesTitle, "Series title")
	fs.StringVar(&in.Issue, "issue", in.Issue, "Issue number")
	fs.StringVar(&in.Year, "year", in.Year, "Year")
	fs.StringVar(&in.Publisher, "publisher", in.Publisher, "Publisher")
	fs.StringVar(&in.Grade, "grade", in.Grade, "Grade")
	fs.StringVar(&in.Notes, "notes", in.Notes, "Notes")
	fs.StringVar(&in.Image, "image", in.Image, "Image url")
	fs.BoolVar(&in.WantList, "want", in.WantList, "Put on want list")
	return fs
}

func (a *app) add(ctx context.Context, args []string) error {
	var in api.ComicInput
	fs := comicFlags("add", &in)
	fs.SetOutput(a.out)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if in.Title == "" {
		return fmt.Errorf("%w: --title is required", errUsage)
	}

	return a.withSession(ctx, func(ctx context.Context) error {
		comic, err := a.client.CreateComic(ctx, in)
		if err != nil {
			return err
		}
		a.printf("Added %s\n", comic.ID)
		return nil
	})
}

func (a *app) show(ctx context.Context, args []string) error {
	id, rest, err := comicID(args)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return errUsage
	}

	return a.withSession(ctx, func(ctx context.Context) error {
		comic, err := a.client.GetComic(ctx, id)
		if err != nil {
			return err
		}
		a.printComic(comic)
		return nil
	})
}

func (a *app) printComic(c api.Comic) {
	a.printf("%s #%s (%s)\n", c.Title, c.Issue, c.Year)
	a.printf("  id:        %s\n", c.ID)
	a.printf("  series:    %s\n", c.SeriesTitle)
	a.printf("  publisher: %s\n", c.Publisher)
	a.printf("  grade:     %s\n", c.Grade)
	a.printf("  want list: %t\n", c.WantList)
	if c.Notes != "" {
		a.printf("  notes:     %s\n", c.Notes)
	}
	if c.MarketAverage != nil {
		a.printf("  market:    %s\n", c.MarketAverage.StringFixed(2))
	}
}

func (a *app) edit(ctx context.Context, args []string) error {
	id, rest, err := comicID(args)
	if err != nil {
		return err
	}

	return a.withSession(ctx, func(ctx context.Context) error {
		comic, err := a.client.GetComic(ctx, id)
		if err != nil {
			return err
		}

		in := comic.ComicInput
		fs := comicFlags("edit", &in)
		fs.SetOutput(a.out)
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}

		comic, err = a.client.UpdateComic(ctx, id, in)
		if err != nil {
			return err
		}
		a.printComic(comic)
		return nil
	})
}

func (a *app) delete(ctx context.Context, args []string) error {
	id, rest, err := comicID(args)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return errUsage
	}

	return a.withSession(ctx, func(ctx context.Context) error {
		if err := a.client.DeleteComic(ctx, id); err != nil {
			return err
		}
		a.printf("Deleted %s\n", id)
		return nil
	})
}

func (a *app) market(ctx context.Context, args []string) error {
	id, rest, err := comicID(args)
	if err != nil {
		return err
	}
	fs := pflag.NewFlagSet("market", pflag.ContinueOnError)
	fs.SetOutput(a.out)
	refresh := fs.Bool("refresh", false, "Get new sales before showing")
	if err := fs.Parse(rest); err != nil {
		return errUsage
	}

	return a.withSession(ctx, func(ctx context.Context) error {
		if *refresh {
			if _, err := a.client.RefreshMarket(ctx, id); err != nil {
				return err
			}
		}

		market, err := a.client.Market(ctx, id)
		if err != nil {
			return err
		}

		a.printf("Average: %s\n", market.Average.StringFixed(2))
		for _, s := range market.Sales {
			a.printf("  %s  %s\n", s.Date.Format("2006-01-02"), s.Price.StringFixed(2))
		}
		return nil
	})
}
