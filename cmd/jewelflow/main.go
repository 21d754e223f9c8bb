package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"jewelflow/internal/apiclient"
	"jewelflow/internal/config"
	"jewelflow/internal/logger"
	"jewelflow/internal/session"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const usage = `usage: jewelflow [-url URL] <command> [flags] [args]

commands:
  login -email E [-password P] [-remember]
  logout
  whoami
  register -first F -last L -email E [-password P]
  categories list [-q TEXT] [-sort id|name|description|status] [-desc]
  categories create -name N [-description D] [-inactive]
  categories update -name N [-description D] <id>
  categories toggle <id>
  categories delete <id>
  categories bulk-delete <id> [<id>...]
  shell      interactive prompt; sessions without -remember live until exit
`

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		// The session-invalid handler has already told the user.
		if apiclient.IsSessionInvalid(err) {
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "error:", describeError(err))
		os.Exit(1)
	}
}

func run(args []string, in io.Reader, out io.Writer) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("jewelflow", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { fmt.Fprint(out, usage) }
	apiURL := fs.String("url", cfg.APIURL, "API base URL")
	showVersion := fs.Bool("version", false, "show build version and date")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Fprintf(out, "jewelflow %s (built %s)\n", version, buildDate)
		return nil
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return flag.ErrHelp
	}

	slog.SetDefault(logger.New(os.Stderr, cfg.LogLevel))

	sess, err := session.NewManager(session.NewFileStore(cfg.SessionFile), session.NewMemoryStore())
	if err != nil {
		return err
	}

	client, err := apiclient.New(*apiURL, sess,
		apiclient.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		apiclient.WithLogger(slog.Default()),
		apiclient.WithSessionInvalidHandler(func(error) {
			fmt.Fprintln(out, "session expired, log in again")
		}),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := newCLI(client, in, out)
	if fs.Arg(0) == "shell" {
		return c.shell(ctx)
	}
	return c.dispatch(ctx, fs.Args())
}

// shell keeps one process alive so sessions that were not remembered stay
// usable across commands.
func (c *cli) shell(ctx context.Context) error {
	events, unsubscribe := c.client.Session().Subscribe()
	defer unsubscribe()
	go func() {
		for e := range events {
			slog.Debug("session changed", "type", e.Type, "scope", e.Scope)
		}
	}()

	for {
		fmt.Fprint(c.out, "jewelflow> ")
		if !c.lines.Scan() {
			fmt.Fprintln(c.out)
			return c.lines.Err()
		}

		args := strings.Fields(c.lines.Text())
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "exit", "quit":
			return nil
		case "help":
			fmt.Fprint(c.out, usage)
			continue
		}

		if err := c.dispatch(ctx, args); err != nil && !errors.Is(err, flag.ErrHelp) && !apiclient.IsSessionInvalid(err) {
			fmt.Fprintln(c.out, "error:", describeError(err))
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
