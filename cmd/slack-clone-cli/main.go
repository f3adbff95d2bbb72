package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/cristhian-fs/slack-clone/internal/client"
)

// Set via -ldflags at build time.
var version = "dev"

type command struct {
	name    string
	args    string
	summary string
	help    string
	minArgs int
	run     func(args []string) int
}

var commands = []command{
	{
		name:    "migrate",
		args:    "[--down]",
		summary: "Run database migrations",
		help: `Apply the migrations in ./migrations, or roll every one back with --down.

Environment:
  DATABASE_URL  PostgreSQL connection string (required)`,
		run: func(args []string) int { return runMigrate(hasFlag("--down", args)) },
	},
	{
		name:    "seed",
		summary: "Seed demo data (users, workspace, channel, thread, dm)",
		help: `Create two users, a workspace with a #general channel, a thread whose
replies span two days and a direct conversation between the two users.

Environment:
  DATABASE_URL  PostgreSQL connection string (required)
  JWT_SECRET    When set, print access tokens for the seeded users
  JWT_ISSUER    Issuer stamped on printed tokens`,
		run: func([]string) int { return runSeed() },
	},
	{
		name:    "health",
		summary: "Check the server and its dependencies",
		help: `Environment:
  SERVER_URL  Server base URL (default: http://localhost:8080)`,
		run: func([]string) int { return runHealth() },
	},
	{
		name:    "thread",
		args:    "<channel_id> <message_id> [--follow]",
		summary: "Print a thread grouped by day",
		help: `Print a message and its replies grouped by day, loading every page.
With --follow the thread stays open and is reprinted on every change.

Environment:
  SERVER_URL  Server base URL (default: http://localhost:8080)
  API_TOKEN   Bearer token for the API (required)
  THREAD_TZ   IANA time zone for day grouping (default: local)`,
		minArgs: 2,
		run: func(args []string) int {
			return runThread(args[0], args[1], hasFlag("--follow", args[2:]))
		},
	},
	{
		name:    "channel",
		args:    "<channel_id> [--follow]",
		summary: "Print a channel's messages grouped by day",
		help: `Print the top-level messages of a channel grouped by day, loading every
page. With --follow the channel stays open and is reprinted on every change.

Environment:
  SERVER_URL  Server base URL (default: http://localhost:8080)
  API_TOKEN   Bearer token for the API (required)
  THREAD_TZ   IANA time zone for day grouping (default: local)`,
		minArgs: 1,
		run: func(args []string) int {
			return runChannel(args[0], hasFlag("--follow", args[1:]))
		},
	},
	{
		name:    "dm",
		args:    "<workspace_id> <member_id> [--follow]",
		summary: "Open a direct conversation and print it",
		help: `Open (or create) the direct conversation with a workspace member and print
its messages grouped by day. Pass your own member id for a note-to-self.
With --follow the conversation stays open and is reprinted on every change.

Environment:
  SERVER_URL  Server base URL (default: http://localhost:8080)
  API_TOKEN   Bearer token for the API (required)
  THREAD_TZ   IANA time zone for day grouping (default: local)`,
		minArgs: 2,
		run: func(args []string) int {
			return runConversation(args[0], args[1], hasFlag("--follow", args[2:]))
		},
	},
	{
		name:    "version",
		summary: "Print version info",
		run: func([]string) int {
			fmt.Printf("slack-clone-cli %s\n", version)
			return 0
		},
	},
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	name, args := os.Args[1], os.Args[2:]
	if name == "help" || name == "--help" || name == "-h" {
		printUsage(os.Stdout)
		return
	}

	i := slices.IndexFunc(commands, func(c command) bool { return c.name == name })
	if i < 0 {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", name)
		printUsage(os.Stderr)
		os.Exit(1)
	}
	cmd := commands[i]

	if hasFlag("--help", args) {
		printHelp(os.Stdout, cmd)
		return
	}
	if len(args) < cmd.minArgs {
		printHelp(os.Stderr, cmd)
		os.Exit(1)
	}
	os.Exit(cmd.run(args))
}

func printUsage(w *os.File) {
	fmt.Fprintln(w, "Usage: slack-clone-cli <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'slack-clone-cli <command> --help' for details on a command.")
}

func printHelp(w *os.File, c command) {
	fmt.Fprintln(w, strings.TrimSpace("Usage: slack-clone-cli "+c.name+" "+c.args))
	fmt.Fprintln(w)
	fmt.Fprintln(w, c.summary+".")
	if c.help != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, c.help)
	}
}

func hasFlag(flag string, args []string) bool {
	return slices.Contains(args, flag)
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		fmt.Fprintf(os.Stderr, "error: %s environment variable is required\n", key)
		os.Exit(1)
	}
	return v
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runMigrate(down bool) int {
	m, err := migrate.New("file://migrations", requireEnv("DATABASE_URL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: opening migrations: %v\n", err)
		return 1
	}
	defer m.Close()

	step, apply := "up", m.Up
	if down {
		step, apply = "down", m.Down
	}
	fmt.Printf("migrating %s...\n", step)

	err = apply()
	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("already up to date")
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "error: migrate %s: %v\n", step, err)
		return 1
	}

	v, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		fmt.Println("schema version: none")
	case err != nil:
		fmt.Fprintf(os.Stderr, "error: reading schema version: %v\n", err)
		return 1
	case dirty:
		fmt.Printf("schema version: %d (dirty)\n", v)
	default:
		fmt.Printf("schema version: %d\n", v)
	}
	return 0
}

func runHealth() int {
	serverURL := envOr("SERVER_URL", "http://localhost:8080")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.New(serverURL, "").Health(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s unhealthy: %v\n", serverURL, err)
		return 1
	}
	fmt.Printf("%s healthy\n", serverURL)
	return 0
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
