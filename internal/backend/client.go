// Package backend implements the REST client for the project/contract API.
// The server-side schema is authoritative; this client only mirrors the
// payload shapes the wizard needs.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"contract-wizard/internal/common/config"
	"contract-wizard/internal/common/httpclient"
	"contract-wizard/internal/common/logger"

	"github.com/google/uuid"
)

// API is the wizard-facing surface of the backend.
type API interface {
	NextProjectNumber(ctx context.Context) (string, error)
	CheckNumberUnique(ctx context.Context, number, excludeID string) (bool, error)

	GetProject(ctx context.Context, id string) (*Project, error)
	GetProjectClient(ctx context.Context, id string) (*ClientInfo, error)
	GetProjectFinancials(ctx context.Context, id string) (*Financials, error)
	GetProjectDetails(ctx context.Context, id string) (*Details, error)

	CreateProject(ctx context.Context, req ProjectRequest) (*Project, error)
	UpdateProject(ctx context.Context, id string, req ProjectRequest) error
	SaveClient(ctx context.Context, projectID string, info ClientInfo) error
	SaveFinancials(ctx context.Context, projectID string, fin Financials) error
	SaveDetails(ctx context.Context, projectID string, det Details) error

	CreateLLC(ctx context.Context, req LLCRequest) (*LLC, error)
	GetLLC(ctx context.Context, id string) (*LLC, error)
	LinkLLC(ctx context.Context, projectID, llcID string) error

	SaveContractors(ctx context.Context, projectID string, contractors []Contractor) error
	CreateContract(ctx context.Context, req ContractRequest) (*ContractDocument, error)
}

// Client talks to the backend over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	http    *httpclient.Client
	logger  logger.Logger
}

func NewClient(cfg config.BackendConfig, log logger.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    httpclient.NewClient(cfg.GetTimeout()),
		logger:  log,
	}
}

func (c *Client) NextProjectNumber(ctx context.Context) (string, error) {
	var resp nextNumberResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/projects/next-number", nil, &resp); err != nil {
		return "", err
	}
	return resp.ProjectNumber, nil
}

func (c *Client) CheckNumberUnique(ctx context.Context, number, excludeID string) (bool, error) {
	path := "/api/projects/check-number/" + url.PathEscape(number)
	if excludeID != "" {
		path += "?excludeId=" + url.QueryEscape(excludeID)
	}
	var resp uniquenessResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return false, err
	}
	return resp.IsUnique, nil
}

func (c *Client) GetProject(ctx context.Context, id string) (*Project, error) {
	var p Project
	if err := c.doJSON(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) GetProjectClient(ctx context.Context, id string) (*ClientInfo, error) {
	var info ClientInfo
	if err := c.doJSON(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(id)+"/client", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) GetProjectFinancials(ctx context.Context, id string) (*Financials, error) {
	var fin Financials
	if err := c.doJSON(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(id)+"/financials", nil, &fin); err != nil {
		return nil, err
	}
	return &fin, nil
}

func (c *Client) GetProjectDetails(ctx context.Context, id string) (*Details, error) {
	var det Details
	if err := c.doJSON(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(id)+"/details", nil, &det); err != nil {
		return nil, err
	}
	return &det, nil
}

func (c *Client) CreateProject(ctx context.Context, req ProjectRequest) (*Project, error) {
	var p Project
	if err := c.doJSON(ctx, http.MethodPost, "/api/projects", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProject(ctx context.Context, id string, req ProjectRequest) error {
	return c.doJSON(ctx, http.MethodPatch, "/api/projects/"+url.PathEscape(id), req, nil)
}

func (c *Client) SaveClient(ctx context.Context, projectID string, info ClientInfo) error {
	return c.doJSON(ctx, http.MethodPatch, "/api/projects/"+url.PathEscape(projectID)+"/client", info, nil)
}

func (c *Client) SaveFinancials(ctx context.Context, projectID string, fin Financials) error {
	return c.doJSON(ctx, http.MethodPatch, "/api/projects/"+url.PathEscape(projectID)+"/financials", fin, nil)
}

func (c *Client) SaveDetails(ctx context.Context, projectID string, det Details) error {
	return c.doJSON(ctx, http.MethodPatch, "/api/projects/"+url.PathEscape(projectID)+"/details", det, nil)
}

func (c *Client) CreateLLC(ctx context.Context, req LLCRequest) (*LLC, error) {
	var llc LLC
	if err := c.doJSON(ctx, http.MethodPost, "/api/llcs", req, &llc); err != nil {
		return nil, err
	}
	return &llc, nil
}

func (c *Client) GetLLC(ctx context.Context, id string) (*LLC, error) {
	var llc LLC
	if err := c.doJSON(ctx, http.MethodGet, "/api/llcs/"+url.PathEscape(id), nil, &llc); err != nil {
		return nil, err
	}
	return &llc, nil
}

func (c *Client) LinkLLC(ctx context.Context, projectID, llcID string) error {
	body := map[string]string{"llcId": llcID}
	return c.doJSON(ctx, http.MethodPatch, "/api/projects/"+url.PathEscape(projectID), body, nil)
}

func (c *Client) SaveContractors(ctx context.Context, projectID string, contractors []Contractor) error {
	return c.doJSON(ctx, http.MethodPost, "/api/projects/"+url.PathEscape(projectID)+"/contractors", contractors, nil)
}

func (c *Client) CreateContract(ctx context.Context, req ContractRequest) (*ContractDocument, error) {
	var doc ContractDocument
	if err := c.doJSON(ctx, http.MethodPost, "/api/contracts", req, &doc); err != nil {
		return nil, err
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	return &doc, nil
}

// doJSON issues a request with a JSON body and decodes a JSON response into
// out (when out is non-nil). Non-2xx responses are returned as errors with
// the response body attached.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s request: %w", method, path, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Debug("Backend returned non-2xx", map[string]interface{}{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
		})
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(snippet))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
