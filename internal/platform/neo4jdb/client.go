package neo4jdb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/casefile-backend/internal/platform/envutil"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

var errNotConnected = errors.New("neo4jdb: not connected")

// Config selects the graph database that mirrors relationship edges.
type Config struct {
	URI          string
	User         string
	Password     string
	Database     string
	ConnTimeout  time.Duration
	WriteTimeout time.Duration
	MaxPool      int
}

// Enabled reports whether a URI is configured.
func (c Config) Enabled() bool { return c.URI != "" }

// ConfigFromEnv reads NEO4J_*. Non-positive limits fall back to defaults.
func ConfigFromEnv() Config {
	cfg := Config{
		URI:          strings.TrimSpace(envutil.String("NEO4J_URI", "", nil)),
		User:         strings.TrimSpace(envutil.String("NEO4J_USER", "neo4j", nil)),
		Password:     envutil.String("NEO4J_PASSWORD", "", nil),
		Database:     strings.TrimSpace(envutil.String("NEO4J_DATABASE", "", nil)),
		ConnTimeout:  envutil.Duration("NEO4J_TIMEOUT", 10*time.Second),
		WriteTimeout: envutil.Duration("NEO4J_WRITE_TIMEOUT", 5*time.Second),
		MaxPool:      envutil.Int("NEO4J_MAX_POOL_SIZE", 20),
	}
	if cfg.ConnTimeout <= 0 {
		cfg.ConnTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.MaxPool <= 0 {
		cfg.MaxPool = 20
	}
	return cfg
}

type Client struct {
	Driver   neo4j.DriverWithContext
	Database string
	timeout  time.Duration
	log      *logger.Logger
}

// NewFromEnv returns (nil, nil) when NEO4J_URI is unset.
func NewFromEnv(ctx context.Context, log *logger.Logger) (*Client, error) {
	cfg := ConfigFromEnv()
	if !cfg.Enabled() {
		return nil, nil
	}
	return New(ctx, cfg, log)
}

// New connects and verifies connectivity within cfg.ConnTimeout.
func New(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""), func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = cfg.MaxPool
		c.SocketConnectTimeout = cfg.ConnTimeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4jdb: driver: %w", err)
	}
	vctx, cancel := context.WithTimeout(ctx, cfg.ConnTimeout)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		_ = driver.Close(context.Background())
		return nil, fmt.Errorf("neo4jdb: connect %s: %w", cfg.URI, err)
	}
	log.Info("neo4j connected", "uri", cfg.URI, "database", cfg.Database)
	return &Client{
		Driver:   driver,
		Database: cfg.Database,
		timeout:  cfg.WriteTimeout,
		log:      log.With("client", "Neo4jDB"),
	}, nil
}

// Write runs fn in a managed write transaction bounded by the write timeout.
// A nil client writes nothing.
func (c *Client) Write(ctx context.Context, fn neo4j.ManagedTransactionWork) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.Database,
	})
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, fn)
	return err
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return errNotConnected
	}
	return c.Driver.VerifyConnectivity(ctx)
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	err := c.Driver.Close(ctx)
	c.Driver = nil
	return err
}
