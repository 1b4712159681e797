package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/findtheai/find-the-ai-backend/internal/config"
	"github.com/findtheai/find-the-ai-backend/internal/game"
	"github.com/findtheai/find-the-ai-backend/internal/httpapi"
	"github.com/findtheai/find-the-ai-backend/internal/session"
)

func main() {
	_ = godotenv.Load()
	cfg := &config.Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func newCmd(cfg *config.Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("FINDTHEAI")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "find-the-ai-server",
		Short: "Authoritative session server for the find-the-AI party game.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: FINDTHEAI_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8765, "port to listen on (env: FINDTHEAI_PORT)")
	fs.Int64Var(&cfg.Seed, "seed", 0, "random seed for AI selection, 0 means time-based (env: FINDTHEAI_SEED)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "display additional output (env: FINDTHEAI_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func run(parent context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state := game.NewState(rng, time.Now())
	sess := session.New(ctx, state, logger)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           httpapi.SetupRoutes(sess, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.Int64("seed", seed))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
