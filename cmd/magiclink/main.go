// Command magiclink sends sign-in link emails through an HTTP email API,
// either once from the command line or as a webhook service.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/magiclink/internal/config"
	"github.com/dmitrymomot/magiclink/pkg/logger"
	"github.com/dmitrymomot/magiclink/pkg/redis"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		cancel()
		os.Exit(1)
	}
}

// app is the state shared by subcommands after PersistentPreRunE.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	flush  func()
	stdout io.Writer
	stderr io.Writer

	openRedis func(context.Context, redis.Config) (*goredis.Client, error)
}

// run wraps a RunE so buffered log events are flushed whether or not it fails.
func (a *app) run(fn func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer a.flush()
		return fn(cmd, args)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, flush: func() {}}
	a.openRedis = func(ctx context.Context, cfg redis.Config) (*goredis.Client, error) {
		return redis.Open(ctx, cfg, redis.WithLogger(a.log))
	}
	var envFile string

	root := &cobra.Command{
		Use:           "magiclink",
		Short:         "Deliver magic sign-in links through SendGrid, Resend or Postmark",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			log, flush, err := logger.New(cfg.Log, a.stderr, logger.RequestIDExtractor)
			if err != nil {
				return err
			}
			a.cfg, a.log, a.flush = cfg, log, flush
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load if present")

	root.AddCommand(newSendCmd(a), newServeCmd(a))
	return root
}
