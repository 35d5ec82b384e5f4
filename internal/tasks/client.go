// Package tasks runs background work on backlite queues stored in a SQLite
// database next to the main one.
package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
	"github.com/rs/zerolog"
)

const tasksDSNParams = "?_journal=WAL&_timeout=5000&_busy_timeout=5000"

// Client owns the task database and the backlite dispatcher.
type Client struct {
	client  *backlite.Client
	db      *sql.DB
	workers int
	logger  zerolog.Logger
	running atomic.Bool
}

// TasksDBPath derives the task database path: lumina.db becomes
// lumina-tasks.db in the same directory.
func TasksDBPath(mainDBPath string) string {
	ext := filepath.Ext(mainDBPath)
	return strings.TrimSuffix(mainDBPath, ext) + "-tasks" + ext
}

// NewClient opens the task database and installs the backlite schema.
// Queues must be registered before Start.
func NewClient(mainDBPath string, cfg Config, logger zerolog.Logger) (*Client, error) {
	cfg = cfg.withDefaults()
	logger = logger.With().Str("component", "tasks").Logger()

	db, err := openTasksDB(TasksDBPath(mainDBPath), cfg.Workers)
	if err != nil {
		return nil, err
	}

	client, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          zerologAdapter{logger: logger},
	})
	if err == nil {
		err = client.Install()
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up task queue: %w", err)
	}

	return &Client{client: client, db: db, workers: cfg.Workers, logger: logger}, nil
}

// openTasksDB sizes the pool so every worker plus the enqueueing request
// handlers get a connection.
func openTasksDB(path string, workers int) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+tasksDSNParams)
	if err != nil {
		return nil, fmt.Errorf("failed to open tasks database: %w", err)
	}
	db.SetMaxOpenConns(workers + 5)
	db.SetMaxIdleConns(workers + 2)
	db.SetConnMaxLifetime(time.Hour)
	return db, nil
}

func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.client.Register(q)
	}
}

// Start dispatches tasks until ctx ends. Only the first call has an effect.
func (c *Client) Start(ctx context.Context) {
	if !c.running.CompareAndSwap(false, true) {
		return
	}
	c.logger.Info().Int("workers", c.workers).Msg("task queue started")
	c.client.Start(ctx)
}

// Stop waits for running tasks until ctx ends and reports whether all of
// them finished.
func (c *Client) Stop(ctx context.Context) bool {
	if !c.running.Load() {
		return true
	}
	done := c.client.Stop(ctx)
	if done {
		c.logger.Info().Msg("task queue stopped")
	} else {
		c.logger.Warn().Msg("task queue stop timed out with tasks still running")
	}
	return done
}

// Close releases the task database. Call it after Stop.
func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Add(tasks ...backlite.Task) *backlite.TaskAddOp {
	return c.client.Add(tasks...)
}

// EnqueueDownload schedules a background download and returns the task id.
func (c *Client) EnqueueDownload(bookID string) (string, error) {
	ids, err := c.client.Add(DownloadBookTask{BookID: bookID}).Save()
	if err != nil {
		return "", fmt.Errorf("failed to enqueue download of %s: %w", bookID, err)
	}
	return ids[0], nil
}

func (c *Client) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return c.client.Status(ctx, taskID)
}

// zerologAdapter implements backlite.Logger. backlite passes key/value pairs
// after the message.
type zerologAdapter struct {
	logger zerolog.Logger
}

func (l zerologAdapter) Info(message string, params ...any) {
	l.logger.Info().Fields(params).Msg(message)
}

func (l zerologAdapter) Error(message string, params ...any) {
	l.logger.Error().Fields(params).Msg(message)
}
