package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/ethoparts/marketplace-backend/pkg/config"
	"github.com/ethoparts/marketplace-backend/pkg/logger"
)

const verifyTimeout = 10 * time.Second

var (
	errProjectIDRequired    = errors.New("gcp project id is required")
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTableNameRequired    = errors.New("bigquery table name is required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

// target names the dataset and marketplace events table rows are streamed to.
type target struct {
	project string
	dataset string
	events  string
}

func resolveTarget(gcp config.GCPConfig, cfg config.BigQueryConfig) (target, error) {
	t := target{
		project: strings.TrimSpace(gcp.ProjectID),
		dataset: strings.TrimSpace(cfg.Dataset),
		events:  strings.TrimSpace(cfg.MarketplaceEventsTable),
	}
	switch {
	case t.project == "":
		return target{}, errProjectIDRequired
	case t.dataset == "":
		return target{}, errDatasetRequired
	case t.events == "":
		return target{}, errTableNameRequired
	}
	return t, nil
}

// Client streams analytics rows into BigQuery.
type Client struct {
	bq     *bigquery.Client
	target target
}

// NewClient dials BigQuery and fails fast when the dataset or events table
// is missing.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	t, err := resolveTarget(gcp, cfg)
	if err != nil {
		return nil, err
	}

	bq, err := bigquery.NewClient(ctx, t.project, credentialOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}

	c := &Client{bq: bq, target: t}
	if err := c.Ping(ctx); err != nil {
		_ = bq.Close()
		return nil, err
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"dataset": t.dataset,
		"table":   t.events,
	}), "bigquery client initialized")
	return c, nil
}

func credentialOptions(gcp config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(gcp.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// Ping checks that the dataset and events table metadata are readable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.bq == nil {
		return errClientNotInitialized
	}

	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	dataset := c.bq.Dataset(c.target.dataset)
	if _, err := dataset.Metadata(ctx); err != nil {
		return describeMetadataErr("dataset", c.target.dataset, err)
	}
	if _, err := dataset.Table(c.target.events).Metadata(ctx); err != nil {
		return describeMetadataErr("table", c.target.events, err)
	}
	return nil
}

// InsertMarketplaceEvents streams rows into the marketplace events table.
func (c *Client) InsertMarketplaceEvents(ctx context.Context, rows []any) error {
	if c == nil || c.bq == nil {
		return errClientNotInitialized
	}
	if len(rows) == 0 {
		return nil
	}
	inserter := c.bq.Dataset(c.target.dataset).Table(c.target.events).Inserter()
	return inserter.Put(ctx, rows)
}

func (c *Client) Close() error {
	if c == nil || c.bq == nil {
		return nil
	}
	return c.bq.Close()
}

func describeMetadataErr(kind, name string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%s %q does not exist", kind, name)
	}
	return fmt.Errorf("checking %s %q: %w", kind, name, err)
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
