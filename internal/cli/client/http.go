package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	envAPIToken = "BRAIN_API_TOKEN"
	envAPIURL   = "BRAIN_API_URL"

	defaultAPIURL = "http://localhost:5555"

	// Queries can wait on a local model for a long time.
	defaultHTTPTimeout = 3 * time.Minute
)

type APIClient struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

// NewAPIClientWithCmd creates an APIClient with config cascade: flag → env → global config → default.
// If cmd is nil, skips flag checking and goes directly to env → global config.
func NewAPIClientWithCmd(cmd *cobra.Command) (*APIClient, error) {
	var apiToken, baseURL string

	if cmd != nil {
		if flagToken, err := cmd.Flags().GetString("api-token"); err == nil && flagToken != "" {
			apiToken = flagToken
		}
		if flagURL, err := cmd.Flags().GetString("api-url"); err == nil && flagURL != "" {
			baseURL = flagURL
		}
	}

	if apiToken == "" {
		apiToken = os.Getenv(envAPIToken)
	}
	if baseURL == "" {
		baseURL = os.Getenv(envAPIURL)
	}

	if apiToken == "" || baseURL == "" {
		globalConfig, err := LoadGlobalConfig()
		if err != nil {
			return nil, err
		}
		if globalConfig != nil {
			if apiToken == "" {
				apiToken = globalConfig.APIToken
			}
			if baseURL == "" {
				baseURL = globalConfig.APIURL
			}
		}
	}

	if baseURL == "" {
		baseURL = defaultAPIURL
	}

	return NewAPIClientWithConfig(apiToken, baseURL), nil
}

// NewAPIClient loads .env and resolves settings from cmd's flags onwards.
func NewAPIClient(cmd *cobra.Command) (*APIClient, error) {
	_ = godotenv.Load()
	return NewAPIClientWithCmd(cmd)
}

// NewAPIClientWithConfig creates an APIClient with explicit settings. An empty
// token sends no Authorization header.
func NewAPIClientWithConfig(apiToken, baseURL string) *APIClient {
	return &APIClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
	}
}

func (c *APIClient) BaseURL() string {
	return c.baseURL
}

// APIResponse represents the standard API response format.
type APIResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
	Code  string          `json:"code,omitempty"`
}

// APIError represents an error from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Get performs a GET request.
func (c *APIClient) Get(path string) (*APIResponse, error) {
	return c.do(http.MethodGet, path, nil)
}

// Post performs a POST request with JSON body.
func (c *APIClient) Post(path string, body interface{}) (*APIResponse, error) {
	return c.do(http.MethodPost, path, body)
}

// Delete performs a DELETE request.
func (c *APIClient) Delete(path string) (*APIResponse, error) {
	return c.do(http.MethodDelete, path, nil)
}

// GetInto performs a GET request and decodes the data envelope into out.
func (c *APIClient) GetInto(path string, out interface{}) error {
	resp, err := c.Get(path)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// PostInto performs a POST request and decodes the data envelope into out.
func (c *APIClient) PostInto(path string, body, out interface{}) error {
	resp, err := c.Post(path, body)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// Decode unmarshals the data envelope into out.
func (r *APIResponse) Decode(out interface{}) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(r.Data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *APIClient) do(method, path string, body interface{}) (*APIResponse, error) {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Message:    strings.TrimSpace(string(respBody)),
			}
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Code:       apiResp.Code,
			Message:    apiResp.Error,
		}
	}

	return &apiResp, nil
}
