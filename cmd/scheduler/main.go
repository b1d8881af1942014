package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/example/session-scheduler/internal/config"
	"github.com/example/session-scheduler/internal/logging"
)

// CLI is the scheduler command line.
type CLI struct {
	EnvFile string `help:"Dotenv file read before the environment." default:".env" type:"path"`

	Serve   ServeCmd   `cmd:"" help:"Run the scheduling HTTP API." default:"1"`
	Migrate MigrateCmd `cmd:"" help:"Apply pending SQLite schema migrations."`
	Slots   SlotsCmd   `cmd:"" help:"Print the open slots of a member on a date."`
	HashKey HashKeyCmd `cmd:"hash-key" help:"Print the argon2id hash of an admin API key."`
}

// appContext is handed to every command's Run method.
type appContext struct {
	Context context.Context
	Config  config.Config
	Logger  *slog.Logger
	Out     io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// run parses args, loads configuration and executes the selected command.
// Logs go to stderr so command output on stdout stays machine readable.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("scheduler"),
		kong.Description("Session booking and scheduling engine"),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		return err
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := config.LoadFile(cli.EnvFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, stderr)
	if err != nil {
		return err
	}

	return kctx.Run(&appContext{
		Context: ctx,
		Config:  cfg,
		Logger:  logger,
		Out:     stdout,
	})
}
