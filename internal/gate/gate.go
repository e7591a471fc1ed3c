// Package gate decides which scored customers become alerts. The acceptance
// rule is a CEL expression over the score, the configured threshold, and the
// customer's feature values, compiled once at startup.
package gate

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

// DefaultExpression is the acceptance rule used when none is configured.
const DefaultExpression = "score >= threshold"

// Gate evaluates the compiled acceptance rule per scored customer.
type Gate struct {
	program   cel.Program
	threshold float64
}

// New compiles the acceptance expression. An empty expression means the
// plain threshold cut.
func New(expression string, threshold float64) (*Gate, error) {
	if expression == "" {
		expression = DefaultExpression
	}

	env, err := cel.NewEnv(
		cel.Variable("score", cel.DoubleType),
		cel.Variable("threshold", cel.DoubleType),
		cel.Variable("features", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile gate expression: %w", issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("gate expression must return bool, got %s", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create gate program: %w", err)
	}

	return &Gate{program: program, threshold: threshold}, nil
}

// Threshold returns the configured score threshold.
func (g *Gate) Threshold() float64 {
	return g.threshold
}

// Accept reports whether a customer with the given score and features
// should be alerted.
func (g *Gate) Accept(score float64, features map[string]any) (bool, error) {
	if features == nil {
		features = map[string]any{}
	}

	out, _, err := g.program.Eval(map[string]any{
		"score":     score,
		"threshold": g.threshold,
		"features":  features,
	})
	if err != nil {
		return false, fmt.Errorf("gate evaluation failed: %w", err)
	}

	accepted, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("gate expression returned %T, want bool", out)
	}
	return bool(accepted), nil
}
