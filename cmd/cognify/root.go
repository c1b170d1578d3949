package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cognify-learn/cognify/pkg/apiclient"
	"github.com/cognify-learn/cognify/pkg/authsdk"
	"github.com/cognify-learn/cognify/pkg/credstore"
	"github.com/cognify-learn/cognify/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// Version is overridden at build time via -ldflags "-X main.Version=".
var Version = "0.1.0"

// cli holds the flags and, once setup has run, the wired session stack.
type cli struct {
	configPath string
	baseURL    string
	logLevel   string

	cfg      *Config
	logger   *slog.Logger
	store    credstore.Store
	file     *credstore.FileStore // nil unless the file store is in use
	sdk      *authsdk.SDKClient
	session  *authsdk.SessionManager
	api      *apiclient.Client
	registry *prometheus.Registry

	closers []func() error
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:   "cognify",
		Short: "Command line client for the Cognify API",
		Long: `cognify signs in to a Cognify server and calls its API.

The session is kept between runs: the access token and refresh cookie are
stored locally (or in redis) and renewed automatically when they expire.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations["setup"] == "none" {
				return nil
			}
			return c.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return c.close()
		},
	}

	cmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", DefaultConfigPath(), "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&c.baseURL, "base-url", "", "Override the server base URL")
	cmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		c.loginCmd(),
		c.signupCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.requestCmd(),
		c.watchCmd(),
		&cobra.Command{
			Use:         "version",
			Short:       "Print version information",
			Annotations: map[string]string{"setup": "none"},
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "cognify version %s\n", Version)
			},
		},
	)
	return cmd
}

// setup loads the configuration and wires store, jar, SDK client, session
// manager and request client, in that order.
func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := LoadConfig(c.configPath)
	if err != nil {
		return err
	}
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	c.cfg = cfg

	c.logger = slogx.New(slogx.Config{
		Level:  cfg.LogLevel,
		Format: "text",
		Output: cmd.ErrOrStderr(),
	})

	ctx := cmd.Context()
	if err := c.openStore(ctx); err != nil {
		return err
	}

	jar, err := authsdk.NewPersistentJar(ctx, c.store, cfg.BaseURL, c.logger)
	if err != nil {
		return err
	}
	c.sdk = authsdk.NewSDKClientWithJar(cfg.BaseURL, jar)
	c.sdk.HTTPClient.Timeout = cfg.Timeout

	c.session = authsdk.New(c.sdk,
		authsdk.WithStore(c.store),
		authsdk.WithLogger(c.logger),
	)

	c.registry = prometheus.NewRegistry()
	retry := apiclient.DefaultRetryConfig()
	retry.MaxRetries = cfg.Retries
	errOut := cmd.ErrOrStderr()
	c.api = apiclient.New(cfg.BaseURL, c.session.Credential, c.session.EnsureCredential,
		apiclient.WithTimeout(cfg.Timeout),
		apiclient.WithRetryConfig(retry),
		apiclient.WithLogger(c.logger),
		apiclient.WithMetrics(apiclient.NewMetrics(c.registry)),
		apiclient.WithOnAuthFailure(func() {
			fmt.Fprintln(errOut, "session expired, run cognify login")
		}),
	)
	return nil
}

func (c *cli) openStore(ctx context.Context) error {
	switch c.cfg.Store {
	case storeRedis:
		rdb := redis.NewClient(&redis.Options{Addr: c.cfg.RedisAddr})
		c.closers = append(c.closers, rdb.Close)

		rs := credstore.NewRedisStore(rdb, c.cfg.RedisPrefix, c.cfg.RedisTTL)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rs.Ping(pingCtx); err != nil {
			return fmt.Errorf("redis %s unreachable: %w", c.cfg.RedisAddr, err)
		}
		c.store = rs
	default:
		c.file = credstore.NewFileStore(c.cfg.StoreFile, c.logger)
		c.store = c.file
	}
	return nil
}

func (c *cli) close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}

// requireSession resolves the stored session and fails when there is none.
func (c *cli) requireSession(ctx context.Context) (*authsdk.Identity, error) {
	c.session.Init(ctx)
	id := c.session.Identity()
	if id == nil {
		return nil, errNotLoggedIn
	}
	return id, nil
}

var errNotLoggedIn = errors.New("not logged in, run cognify login")

func writeLine(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}
