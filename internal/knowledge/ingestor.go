package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/reytechinc/scprs-backend/pkg/config"
	pkgerrors "github.com/reytechinc/scprs-backend/pkg/errors"
	"github.com/reytechinc/scprs-backend/pkg/logger"
)

// Record is one confirmed award observation pushed to the quote knowledge
// base. Only high-confidence line-item prices are recorded; summary-derived
// prices stay in the local cache.
type Record struct {
	PONumber    string              `json:"po_number"`
	ItemNumber  string              `json:"item_number,omitempty"`
	Description string              `json:"description"`
	UnitPrice   decimal.Decimal     `json:"unit_price"`
	Quantity    decimal.NullDecimal `json:"quantity,omitempty"`
	Supplier    string              `json:"supplier,omitempty"`
	Department  string              `json:"department,omitempty"`
	AwardDate   string              `json:"award_date,omitempty"`
	Source      string              `json:"source"`
}

// Ingestor receives confirmed price observations. Implementations must treat
// ingestion as best effort; lookup results never depend on it succeeding.
type Ingestor interface {
	Ingest(ctx context.Context, record Record) error
}

// Nop discards every record. Used when no knowledge endpoint is configured.
type Nop struct{}

func (Nop) Ingest(context.Context, Record) error { return nil }

// Client posts records to the quote knowledge service over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logg       *logger.Logger
}

// ClientOption configures optional client behavior.
type ClientOption func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient builds a knowledge client from configuration.
func NewClient(cfg config.KnowledgeConfig, logg *logger.Logger, opts ...ClientOption) (*Client, error) {
	if !cfg.Enabled() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "knowledge base URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		logg:       logg,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Ingest posts one record to the ingest endpoint.
func (c *Client) Ingest(ctx context.Context, record Record) error {
	if record.PONumber == "" || record.Description == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "record needs a po number and description")
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ingest", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "knowledge ingest failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("knowledge ingest returned status %d", resp.StatusCode))
	}

	if c.logg != nil {
		c.logg.Info(c.logg.WithPONumber(ctx, record.PONumber), "price observation ingested")
	}
	return nil
}
