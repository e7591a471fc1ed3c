// Package params fetches per-control runtime parameters from the central
// parameter service. Every value arrives as text with a declared type tag
// and is parsed by the dedicated parser for that tag; values are never
// evaluated as expressions.
package params

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Parameter type tags.
const (
	TypeString     = "string"
	TypeNumeric    = "numeric"
	TypeStringList = "string_list"
)

// Parameter is one raw parameter as served: a name, a type tag, and the
// textual value.
type Parameter struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Set is a fetched parameter collection with typed accessors.
type Set struct {
	params map[string]Parameter
}

// NewSet builds a set from raw parameters, for tests and defaults.
func NewSet(params []Parameter) *Set {
	m := make(map[string]Parameter, len(params))
	for _, p := range params {
		m[p.Name] = p
	}
	return &Set{params: m}
}

// Has reports whether the set contains a parameter.
func (s *Set) Has(name string) bool {
	_, ok := s.params[name]
	return ok
}

// String returns a string-tagged parameter value.
func (s *Set) String(name string) (string, error) {
	p, err := s.get(name, TypeString)
	if err != nil {
		return "", err
	}
	return p.Value, nil
}

// Int returns a numeric-tagged parameter as an integer.
func (s *Set) Int(name string) (int, error) {
	p, err := s.get(name, TypeNumeric)
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.Atoi(p.Value)
	if convErr != nil {
		return 0, &domain.ValidationError{Field: name, Value: p.Value, Expected: "integer"}
	}
	return n, nil
}

// Float returns a numeric-tagged parameter as a float.
func (s *Set) Float(name string) (float64, error) {
	p, err := s.get(name, TypeNumeric)
	if err != nil {
		return 0, err
	}
	f, convErr := strconv.ParseFloat(p.Value, 64)
	if convErr != nil {
		return 0, &domain.ValidationError{Field: name, Value: p.Value, Expected: "number"}
	}
	return f, nil
}

// StringList returns a string_list-tagged parameter. The value must be a
// JSON array of strings.
func (s *Set) StringList(name string) ([]string, error) {
	p, err := s.get(name, TypeStringList)
	if err != nil {
		return nil, err
	}
	var out []string
	if convErr := json.Unmarshal([]byte(p.Value), &out); convErr != nil {
		return nil, &domain.ValidationError{Field: name, Value: p.Value, Expected: "JSON array of strings"}
	}
	return out, nil
}

func (s *Set) get(name, wantType string) (Parameter, error) {
	p, ok := s.params[name]
	if !ok {
		return Parameter{}, &domain.ValidationError{Field: name, Value: "", Expected: "parameter to be present"}
	}
	if p.Type != wantType {
		return Parameter{}, &domain.ValidationError{Field: name, Value: p.Type, Expected: "type " + wantType}
	}
	return p, nil
}

// Client fetches parameter sets over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a parameter-service client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves the parameters for one (system, control) pair.
func (c *Client) Fetch(ctx context.Context, systemID, controlCode string) (*Set, error) {
	url := fmt.Sprintf("%s/v1/systems/%s/controls/%s/parameters", c.baseURL, systemID, controlCode)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("parameter service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("parameter service returned %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Parameters []Parameter `json:"parameters"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode parameter response: %w", err)
	}

	return NewSet(payload.Parameters), nil
}

// ApplyScoring overlays recognized parameters onto a scoring configuration.
// Unknown parameters are ignored; a recognized parameter with the wrong tag
// or an unparseable value is an error.
func ApplyScoring(s *Set, cfg *domain.ScoringConfig) error {
	if s.Has("threshold") {
		v, err := s.Float("threshold")
		if err != nil {
			return err
		}
		cfg.Threshold = v
	}
	if s.Has("window_months") {
		v, err := s.Int("window_months")
		if err != nil {
			return err
		}
		cfg.WindowMonths = v
	}
	if s.Has("skip_months") {
		v, err := s.Int("skip_months")
		if err != nil {
			return err
		}
		cfg.SkipMonths = v
	}
	if s.Has("batch_size") {
		v, err := s.Int("batch_size")
		if err != nil {
			return err
		}
		cfg.BatchSize = v
	}
	if s.Has("model_name") {
		v, err := s.String("model_name")
		if err != nil {
			return err
		}
		cfg.ModelName = v
	}
	if s.Has("excluded_systems") {
		v, err := s.StringList("excluded_systems")
		if err != nil {
			return err
		}
		cfg.ExcludedSystems = v
	}
	if s.Has("gate_expression") {
		v, err := s.String("gate_expression")
		if err != nil {
			return err
		}
		cfg.GateExpression = v
	}
	return nil
}
