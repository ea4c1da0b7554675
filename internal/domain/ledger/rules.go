package ledger

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
)

// RuleStockPolicy evaluates configured CEL expressions to decide
// negative-stock tolerance per call. An OUT may go negative when any
// rule evaluates to true for it.
//
// Rules see these variables:
//
//	transaction_type  string  e.g. "Sale"
//	product_id        string
//	location_id       string
//	tracking_mode     string  "none", "batch" or "serial"
//
// Example: `transaction_type == "Sale" && tracking_mode == "none"`.
type RuleStockPolicy struct {
	programs []cel.Program
}

// NewRuleStockPolicy compiles the rule expressions. Every rule must
// evaluate to bool; compilation failures surface at startup, not per call.
func NewRuleStockPolicy(rules []string) (*RuleStockPolicy, error) {
	env, err := cel.NewEnv(
		cel.Variable("transaction_type", cel.StringType),
		cel.Variable("product_id", cel.StringType),
		cel.Variable("location_id", cel.StringType),
		cel.Variable("tracking_mode", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("create rule env: %w", err)
	}

	programs := make([]cel.Program, 0, len(rules))
	for _, rule := range rules {
		ast, iss := env.Compile(rule)
		if iss.Err() != nil {
			return nil, fmt.Errorf("compile rule %q: %w", rule, iss.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return nil, fmt.Errorf("rule %q: output must be bool, got %s", rule, ast.OutputType())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("program rule %q: %w", rule, err)
		}
		programs = append(programs, prg)
	}

	return &RuleStockPolicy{programs: programs}, nil
}

// AllowNegative implements StockPolicy.
func (p *RuleStockPolicy) AllowNegative(ctx context.Context, in PolicyInput) (bool, error) {
	vars := map[string]any{
		"transaction_type": string(in.TransactionType),
		"product_id":       in.ProductID,
		"location_id":      in.LocationID,
		"tracking_mode":    string(in.TrackingMode),
	}

	for _, prg := range p.programs {
		out, _, err := prg.ContextEval(ctx, vars)
		if err != nil {
			return false, fmt.Errorf("evaluate rule: %w", err)
		}
		if allowed, ok := out.Value().(bool); ok && allowed {
			return true, nil
		}
	}

	return false, nil
}
