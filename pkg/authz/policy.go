package authz

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/Mindburn-Labs/screenpilot/pkg/identity"
)

// PolicyChecker grants access when a CEL expression over `user` and
// `resource` evaluates to true, e.g.
//
//	user.emailVerified && resource.startsWith("browser-automation")
type PolicyChecker struct {
	expr string
	prg  cel.Program
}

func NewPolicyChecker(expr string) (*PolicyChecker, error) {
	env, err := cel.NewEnv(
		cel.Variable("user", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("resource", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("policy compilation failed: %w", iss.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("policy must evaluate to bool, got %s", ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("policy program creation failed: %w", err)
	}
	return &PolicyChecker{expr: expr, prg: prg}, nil
}

func (p *PolicyChecker) HasPermission(ctx context.Context, user identity.User, resource string) (bool, error) {
	if user.ID == "" {
		return false, nil
	}
	metadata := user.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	out, _, err := p.prg.ContextEval(ctx, map[string]any{
		"user": map[string]any{
			"id":            user.ID,
			"email":         user.Email,
			"emailVerified": user.EmailVerified,
			"role":          user.Role,
			"metadata":      metadata,
		},
		"resource": resource,
	})
	if err != nil {
		return false, fmt.Errorf("policy evaluation failed: %w", err)
	}
	granted, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("policy returned %T, want bool", out.Value())
	}
	return granted, nil
}
