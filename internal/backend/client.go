// Package backend implements the client for the hosted data platform that
// holds raw transactions and attribution mappings. The matching algorithm
// itself runs remotely as an edge function; this package only triggers it
// and reads back the results.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/common"
	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/model"
)

// Client talks to the hosted backend's REST and function endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a backend client for the given base URL and API key.
func NewClient(baseURL, apiKey string) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: backend URL", common.ErrMissingConfig)
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: backend API key", common.ErrMissingConfig)
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Wire types. The remote store is loosely typed; these are converted to
// strict models at this boundary and never escape.

type wireTransaction struct {
	ID      string    `json:"id"`
	OrgID   string    `json:"organization_id"`
	Date    time.Time `json:"created_at"`
	Amount  float64   `json:"amount"`
	Refcode *string   `json:"refcode"`
	Donor   string    `json:"donor_name"`
}

type wireMapping struct {
	ID                     string    `json:"id"`
	OrgID                  string    `json:"organization_id"`
	Refcode                string    `json:"refcode"`
	Source                 string    `json:"source"`
	AttributionType        string    `json:"attribution_type"`
	IsDeterministic        bool      `json:"is_deterministic"`
	Confidence             float64   `json:"confidence"`
	AttributedRevenue      float64   `json:"attributed_revenue"`
	AttributedTransactions int       `json:"attributed_transactions"`
	SupersededBy           string    `json:"superseded_by"`
	CreatedAt              time.Time `json:"created_at"`
}

type wireMatcherResult struct {
	TotalMatched   int            `json:"totalMatched"`
	MatchBreakdown map[string]int `json:"matchBreakdown"`
}

// FetchTransactions returns the organization's raw revenue transactions and
// the count of rows skipped for a malformed amount or missing ID. Skips never
// fail the whole fetch.
func (c *Client) FetchTransactions(ctx context.Context, orgID string) ([]model.Transaction, int, error) {
	var wire []wireTransaction
	if err := c.get(ctx, "fetch transactions", "/rest/v1/transactions", orgID, &wire); err != nil {
		return nil, 0, err
	}

	transactions := make([]model.Transaction, 0, len(wire))
	skipped := 0
	for _, w := range wire {
		if w.ID == "" || w.Amount < 0 {
			skipped++
			continue
		}
		txn := model.Transaction{
			ID:             w.ID,
			OrganizationID: orgID,
			Date:           w.Date,
			Amount:         w.Amount,
			Donor:          w.Donor,
		}
		if w.Refcode != nil {
			txn.Refcode = *w.Refcode
		}
		transactions = append(transactions, txn)
	}
	if skipped > 0 {
		slog.Warn("Skipped malformed transaction rows", "org_id", orgID, "skipped", skipped)
	}
	return transactions, skipped, nil
}

// FetchMappings returns the organization's attribution mappings, normalized
// through the classifier so legacy rows without an explicit type arrive with
// a resolved one.
func (c *Client) FetchMappings(ctx context.Context, orgID string) ([]model.AttributionMapping, error) {
	var wire []wireMapping
	if err := c.get(ctx, "fetch mappings", "/rest/v1/attribution_mappings", orgID, &wire); err != nil {
		return nil, err
	}

	mappings := make([]model.AttributionMapping, 0, len(wire))
	for _, w := range wire {
		raw := model.RawMapping{
			ID:                     w.ID,
			OrganizationID:         orgID,
			Refcode:                w.Refcode,
			Source:                 w.Source,
			AttributionType:        w.AttributionType,
			IsDeterministic:        w.IsDeterministic,
			Confidence:             w.Confidence,
			AttributedRevenue:      w.AttributedRevenue,
			AttributedTransactions: w.AttributedTransactions,
			SupersededBy:           w.SupersededBy,
			CreatedAt:              w.CreatedAt,
		}
		mappings = append(mappings, raw.Normalize())
	}
	return mappings, nil
}

// ConfirmMapping writes a new manual_confirmed mapping to the backend. A
// conflicting active mapping surfaces as a validation error, never silently.
func (c *Client) ConfirmMapping(ctx context.Context, mapping *model.AttributionMapping) error {
	if mapping == nil {
		return fmt.Errorf("%w: mapping", common.ErrInvalidConfig)
	}
	payload := wireMapping{
		ID:              mapping.ID,
		OrgID:           mapping.OrganizationID,
		Refcode:         mapping.Refcode,
		Source:          mapping.Source,
		AttributionType: string(mapping.Type),
		Confidence:      mapping.Confidence,
	}
	return c.post(ctx, "confirm mapping", "/rest/v1/attribution_mappings", payload, nil)
}

// RunMatcher triggers the remote matcher edge function and waits for its
// aggregate result. The run is at-least-once from this side; callers must
// re-read mappings afterwards rather than assume local state.
func (c *Client) RunMatcher(ctx context.Context, orgID string) (*model.MatcherResult, error) {
	var wire wireMatcherResult
	body := map[string]string{"organization_id": orgID}
	if err := c.post(ctx, "run matcher", "/functions/v1/attribution-matcher", body, &wire); err != nil {
		return nil, err
	}

	result := &model.MatcherResult{
		TotalMatched:   wire.TotalMatched,
		MatchBreakdown: make(map[model.AttributionType]int, len(wire.MatchBreakdown)),
	}
	for tag, count := range wire.MatchBreakdown {
		result.MatchBreakdown[model.AttributionType(tag)] = count
	}
	return result, nil
}

func (c *Client) get(ctx context.Context, operation, path, orgID string, out any) error {
	if strings.TrimSpace(orgID) == "" {
		return &RequestError{
			Kind:      KindValidation,
			Operation: operation,
			Err:       fmt.Errorf("organization id is required"),
		}
	}

	endpoint := fmt.Sprintf("%s%s?organization_id=%s", c.baseURL, path, url.QueryEscape(orgID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &RequestError{Kind: KindValidation, Operation: operation, Err: err}
	}
	return c.do(req, operation, out)
}

func (c *Client) post(ctx context.Context, operation, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &RequestError{Kind: KindValidation, Operation: operation, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &RequestError{Kind: KindValidation, Operation: operation, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, operation, out)
}

func (c *Client) do(req *http.Request, operation string, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RequestError{
			Kind:      KindNetwork,
			Operation: operation,
			Err:       fmt.Errorf("%w: %v", common.ErrBackendConnection, err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RequestError{
			Kind:       KindRateLimit,
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Err:        common.ErrRateLimit,
		}
	case resp.StatusCode >= 500:
		return &RequestError{
			Kind:       KindServer,
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("backend returned %s", resp.Status),
		}
	case resp.StatusCode == http.StatusConflict:
		return &RequestError{
			Kind:       KindValidation,
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Err:        common.ErrDuplicateMapping,
		}
	case resp.StatusCode >= 400:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &RequestError{
			Kind:       KindValidation,
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %s", common.ErrBackendRejected, strings.TrimSpace(string(detail))),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RequestError{
			Kind:      KindServer,
			Operation: operation,
			Err:       fmt.Errorf("failed to decode response: %w", err),
		}
	}
	return nil
}
