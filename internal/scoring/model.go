package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// ModelClient calls the external model service over HTTP. It implements
// both domain.Scorer and domain.Explainer.
type ModelClient struct {
	baseURL   string
	modelName string
	http      *http.Client
}

// NewModelClient creates a client for one named model.
func NewModelClient(baseURL, modelName string, timeout time.Duration) *ModelClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ModelClient{
		baseURL:   baseURL,
		modelName: modelName,
		http:      &http.Client{Timeout: timeout},
	}
}

type modelRow struct {
	CustomerID string `json:"customerId"`
	Values     []any  `json:"values"`
}

type modelRequest struct {
	Model   string     `json:"model"`
	Columns []string   `json:"columns"`
	Rows    []modelRow `json:"rows"`
}

func requestFor(model string, m *domain.FeatureMatrix) modelRequest {
	req := modelRequest{
		Model:   model,
		Columns: m.Schema.Names(),
		Rows:    make([]modelRow, len(m.Rows)),
	}
	for i, row := range m.Rows {
		req.Rows[i] = modelRow{CustomerID: row.CustomerID, Values: row.Values}
	}
	return req
}

// PredictProbability returns one probability per matrix row, in order.
func (c *ModelClient) PredictProbability(ctx context.Context, m *domain.FeatureMatrix) ([]float64, error) {
	var out struct {
		Probabilities []float64 `json:"probabilities"`
	}
	if err := c.post(ctx, "/predict", requestFor(c.modelName, m), &out); err != nil {
		return nil, err
	}
	if len(out.Probabilities) != len(m.Rows) {
		return nil, fmt.Errorf("model returned %d probabilities for %d rows", len(out.Probabilities), len(m.Rows))
	}
	return out.Probabilities, nil
}

// Explain returns per-row feature contributions.
func (c *ModelClient) Explain(ctx context.Context, m *domain.FeatureMatrix) ([]map[string]float64, error) {
	var out struct {
		Contributions []map[string]float64 `json:"contributions"`
	}
	if err := c.post(ctx, "/explain", requestFor(c.modelName, m), &out); err != nil {
		return nil, err
	}
	if len(out.Contributions) != len(m.Rows) {
		return nil, fmt.Errorf("model returned %d explanations for %d rows", len(out.Contributions), len(m.Rows))
	}
	return out.Contributions, nil
}

func (c *ModelClient) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("model service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("model service returned %d: %s", resp.StatusCode, string(msg))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
