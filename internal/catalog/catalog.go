// Package catalog archives pipeline artifacts to S3 and records each run in
// DynamoDB. Archiving is best effort: failures are logged and never stop a
// run.
package catalog

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/apresai/paperpod/internal/awsutil"
)

// Settings select where artifacts go. An empty Bucket disables archiving.
type Settings struct {
	Region string
	Bucket string
	Table  string
}

// Catalog archives the artifacts of one run. A nil *Catalog is valid and
// does nothing.
type Catalog struct {
	runID   string
	begun   bool
	storage *Storage
	store   *Store // nil without a table
	base    *slog.Logger
	logger  *slog.Logger
}

// Open connects to AWS when s.Bucket is set. It returns nil, nil when
// archiving is disabled.
func Open(ctx context.Context, s Settings, logger *slog.Logger) (*Catalog, error) {
	if s.Bucket == "" {
		return nil, nil
	}
	awsCfg, err := awsutil.LoadConfig(ctx, s.Region)
	if err != nil {
		return nil, err
	}

	var store *Store
	if s.Table != "" {
		store = NewStore(dynamodb.NewFromConfig(awsCfg), s.Table)
	}
	return New(NewStorage(s3.NewFromConfig(awsCfg), s.Bucket), store, logger)
}

// New builds a Catalog with a fresh run ID.
func New(storage *Storage, store *Store, logger *slog.Logger) (*Catalog, error) {
	id, err := NewRunID()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{storage: storage, store: store, base: logger}
	c.setRun(id)
	return c, nil
}

func (c *Catalog) setRun(id string) {
	c.runID = id
	c.logger = c.base.With("run_id", id)
}

// RunID returns the ULID grouping this run's artifacts.
func (c *Catalog) RunID() string {
	if c == nil {
		return ""
	}
	return c.runID
}

// Begin records the start of a run. Every call after the first starts a
// new run under a fresh ID, so one Catalog can serve a watch loop.
func (c *Catalog) Begin(ctx context.Context, source, llmProvider, ttsProvider string) {
	if c == nil {
		return
	}
	if c.begun {
		id, err := NewRunID()
		if err != nil {
			c.logger.WarnContext(ctx, "catalog: new run id failed", "error", err)
		} else {
			c.setRun(id)
		}
	}
	c.begun = true
	if c.store == nil {
		return
	}
	if err := c.store.CreateRun(ctx, c.runID, source, llmProvider, ttsProvider); err != nil {
		c.logger.WarnContext(ctx, "catalog: record run failed", "error", err)
	}
}

// Record uploads the artifact written by stage.
func (c *Catalog) Record(ctx context.Context, stage, path string) {
	if c == nil {
		return
	}
	key, size, err := c.storage.Upload(ctx, c.runID, stage, path)
	if err != nil {
		c.logger.WarnContext(ctx, "catalog: upload failed", "stage", stage, "path", path, "error", err)
		return
	}
	c.logger.InfoContext(ctx, "catalog: artifact archived", "stage", stage, "key", key, "bytes", size)

	if c.store == nil {
		return
	}
	if err := c.store.PutArtifact(ctx, c.runID, stage, path, key, size); err != nil {
		c.logger.WarnContext(ctx, "catalog: record artifact failed", "stage", stage, "error", err)
	}
}

// Finish marks the run complete or failed.
func (c *Catalog) Finish(ctx context.Context, runErr error) {
	if c == nil || c.store == nil {
		return
	}
	if err := c.store.FinishRun(ctx, c.runID, runErr); err != nil {
		c.logger.WarnContext(ctx, "catalog: finish run failed", "error", err)
	}
}
