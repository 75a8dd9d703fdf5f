// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	wire "github.com/shelterops/bedhold/api"
)

// apiClient is a minimal REST client for the running sheltersrv
// process. The beds, reservations and expire commands go through it
// rather than the engine in-process, so they observe the same state a
// dashboard or phone call would; simulate-call does not use it.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) do(method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", c.baseURL+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var errResp wire.ErrorResponse
		if decErr := json.NewDecoder(resp.Body).Decode(&errResp); decErr == nil && errResp.Message != "" {
			return fmt.Errorf("%s: %s", errResp.Kind, errResp.Message)
		}
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) BedSummary() (wire.BedSummary, error) {
	var summary wire.BedSummary
	err := c.do(http.MethodGet, "/api/beds/", nil, &summary)
	return summary, err
}

func (c *apiClient) BedList() ([]wire.Bed, error) {
	var beds []wire.Bed
	err := c.do(http.MethodGet, "/api/beds/list", nil, &beds)
	return beds, err
}

func (c *apiClient) ActiveReservations() (wire.ActiveReservationsResponse, error) {
	var out wire.ActiveReservationsResponse
	err := c.do(http.MethodGet, "/api/reservations/", nil, &out)
	return out, err
}

func (c *apiClient) CancelReservation(code string) error {
	return c.do(http.MethodPost, "/api/reservations/"+code+"/cancel", nil, nil)
}

func (c *apiClient) ExpireSweep() (int, error) {
	var out map[string]int
	if err := c.do(http.MethodPost, "/api/expire/sweep", nil, &out); err != nil {
		return 0, err
	}
	return out["expired"], nil
}
