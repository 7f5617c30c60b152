// Package clinicalsync talks to the clinical REST backend: it downloads the
// allergy and drug catalogue and loads patient snapshots on demand.
package clinicalsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/giygas/allergycheck-api/clinicalsync/entities"
	"github.com/giygas/allergycheck-api/interfaces"
	"github.com/giygas/allergycheck-api/logging"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Compile-time checks
var (
	_ interfaces.CatalogueFetcher = (*Client)(nil)
	_ interfaces.PatientSource    = (*Client)(nil)
)

var (
	// ErrNotFound is returned when the backend answers 404
	ErrNotFound = errors.New("resource not found on backend")
	// ErrUnexpectedStatus wraps any other non-2xx backend answer
	ErrUnexpectedStatus = errors.New("unexpected backend status")
)

const (
	maxPages        = 500
	maxResponseSize = 32 * 1024 * 1024
)

// Client is an HTTP client for the clinical backend API
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
}

// NewClient creates a backend client rooted at baseURL (e.g. http://host/api)
func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	if u.Path != "" && u.Path[len(u.Path)-1] != '/' {
		u.Path += "/"
	}

	return &Client{
		baseURL: u,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// FetchCatalogue downloads allergies and drugs concurrently
func (c *Client) FetchCatalogue(ctx context.Context) ([]entities.Allergy, []entities.Drug, error) {
	var allergies []entities.Allergy
	var drugs []entities.Drug

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		allergies, err = c.FetchAllergies(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		drugs, err = c.FetchDrugs(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	for i := range drugs {
		drugs[i].SearchNormalized = NormalizeSearch(drugs[i].Name + " " + drugs[i].GenericName + " " + drugs[i].Category)
	}

	return allergies, drugs, nil
}

// FetchAllergies downloads the allergy reference list
func (c *Client) FetchAllergies(ctx context.Context) ([]entities.Allergy, error) {
	allergies, err := fetchList[entities.Allergy](ctx, c, "allergies/")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch allergies: %w", err)
	}
	return allergies, nil
}

// FetchDrugs downloads every drug with its allergy conflicts
func (c *Client) FetchDrugs(ctx context.Context) ([]entities.Drug, error) {
	drugs, err := fetchList[entities.Drug](ctx, c, "drugs/")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch drugs: %w", err)
	}
	return drugs, nil
}

// FetchPatient loads one patient with its detailed allergies
func (c *Client) FetchPatient(ctx context.Context, id int) (*entities.Patient, error) {
	var patient entities.Patient
	if err := c.getJSON(ctx, c.resolve("patients/"+strconv.Itoa(id)+"/"), &patient); err != nil {
		return nil, fmt.Errorf("failed to fetch patient %d: %w", id, err)
	}
	return &patient, nil
}

func (c *Client) resolve(path string) string {
	return c.baseURL.ResolveReference(&url.URL{Path: path}).String()
}

// page is the DRF pagination envelope
type page[T any] struct {
	Count   int     `json:"count"`
	Next    *string `json:"next"`
	Results []T     `json:"results"`
}

// fetchList reads a list endpoint that answers either a bare JSON array or a
// paginated envelope, following "next" links until exhausted.
func fetchList[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	next := c.resolve(path)
	var out []T

	for pages := 0; next != ""; pages++ {
		if pages >= maxPages {
			return nil, fmt.Errorf("pagination of %s exceeded %d pages", path, maxPages)
		}

		var raw json.RawMessage
		if err := c.getJSON(ctx, next, &raw); err != nil {
			return nil, err
		}

		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var items []T
			if err := json.Unmarshal(trimmed, &items); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", path, err)
			}
			return append(out, items...), nil
		}

		var p page[T]
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		out = append(out, p.Results...)

		next = ""
		if p.Next != nil && *p.Next != "" {
			ref, err := url.Parse(*p.Next)
			if err != nil {
				return nil, fmt.Errorf("invalid next link %q: %w", *p.Next, err)
			}
			next = c.baseURL.ResolveReference(ref).String()
		}
	}

	if out == nil {
		out = []T{}
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID(ctx))
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", target, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	logging.Debug("Backend request", "url", target, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %d from %s", ErrUnexpectedStatus, resp.StatusCode, target)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", target, err)
	}
	return nil
}

// requestID reuses the inbound chi request id so backend logs can be correlated
func requestID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}
