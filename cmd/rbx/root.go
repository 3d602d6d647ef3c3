package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Sternrassler/rbx-client/pkg/client"
	"github.com/Sternrassler/rbx-client/pkg/logging"
	"github.com/Sternrassler/rbx-client/pkg/metrics"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const defaultUserAgent = "rbx-client/0.1.0"

// options holds the global flags shared by all subcommands.
type options struct {
	baseURL     string
	userAgent   string
	redisURL    string
	logLevel    string
	pretty      bool
	metricsAddr string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "rbx",
		Short: "Roblox users API client",
		Long: `rbx walks cursor-paginated Roblox users API collections.

Examples:
  rbx search builderman                     # All users matching a keyword
  rbx search builder roblox --max 50        # Several keywords in parallel, 50 each
  rbx search test --prefetch 250            # Buffer 250 results before printing
  rbx user 156                              # Details of a single user
  rbx pages test --count 3 --back           # Walk three pages forward and back again`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.setupLogging(cmd.ErrOrStderr())
			if opts.metricsAddr != "" {
				go func() {
					if err := metrics.Serve(cmd.Context(), opts.metricsAddr); err != nil {
						log.Error().Err(err).Str("addr", opts.metricsAddr).Msg("Metrics listener failed")
					}
				}()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.baseURL, "base-url", envOr("RBX_BASE_URL", client.DefaultBaseURL),
		"API base URL (env RBX_BASE_URL)")
	flags.StringVar(&opts.userAgent, "user-agent", envOr("USER_AGENT", defaultUserAgent),
		"User-Agent header sent with every request (env USER_AGENT)")
	flags.StringVar(&opts.redisURL, "redis", os.Getenv("REDIS_URL"),
		"Redis address or URL for the page cache, empty disables caching (env REDIS_URL)")
	flags.StringVar(&opts.logLevel, "log-level", "warn",
		"Log level (debug, info, warn, error, off)")
	flags.BoolVar(&opts.pretty, "pretty", false,
		"Human-readable log output")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "",
		"Serve Prometheus metrics on this address while running (e.g. :9090)")

	rootCmd.AddCommand(
		newSearchCmd(opts),
		newUserCmd(opts),
		newPagesCmd(opts),
	)

	return rootCmd
}

func (o *options) setupLogging(w io.Writer) {
	logging.Setup(logging.Config{
		Level:  logging.LogLevel(o.logLevel),
		Pretty: o.pretty,
		Output: w,
	})
}

// newClient builds an API client from the global flags. The returned close
// function releases the client and its Redis connection.
func (o *options) newClient(ctx context.Context) (*client.Client, func(), error) {
	cfg := client.DefaultConfig(o.userAgent)
	cfg.BaseURL = o.baseURL

	var rdb *redis.Client
	if o.redisURL != "" {
		var err error
		rdb, err = newRedis(ctx, o.redisURL)
		if err != nil {
			return nil, nil, err
		}
		cfg.Redis = rdb
	}

	c, err := client.New(cfg)
	if err != nil {
		if rdb != nil {
			rdb.Close()
		}
		return nil, nil, err
	}

	closeFn := func() {
		c.Close()
		if rdb != nil {
			rdb.Close()
		}
	}
	return c, closeFn, nil
}

// newRedis connects to addr, which is either host:port or a redis:// URL.
func newRedis(ctx context.Context, addr string) (*redis.Client, error) {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}

	log.Debug().Str("addr", opts.Addr).Msg("Connected to Redis")
	return rdb, nil
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	out, err := sonic.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func envOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
