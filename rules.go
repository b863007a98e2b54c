package settings

import (
	"errors"
	"fmt"
	"time"
)

var ErrNoEvaluator = errors.New("settings: evaluator not configured")

// RuleContext carries inputs needed when evaluating an expression against a
// settings tree.
type RuleContext struct {
	Snapshot any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	Section  string
	ObjectID string
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) objectLabel() string {
	switch {
	case ctx.Section != "" && ctx.ObjectID != "":
		return ctx.Section + "/" + ctx.ObjectID
	case ctx.ObjectID != "":
		return ctx.ObjectID
	default:
		return "unknown"
	}
}

func (ctx RuleContext) objectBinding() map[string]any {
	if ctx.Section == "" && ctx.ObjectID == "" {
		return nil
	}
	return map[string]any{
		"section": ctx.Section,
		"id":      ctx.ObjectID,
	}
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

type rule struct {
	name string
	expr string
}

type rulesConfig struct {
	evaluator Evaluator
	cache     ProgramCache
	functions *FunctionRegistry
	logger    RuleLogger
	rules     []rule
}

// WithRule declares a validation rule on the type. Every rule expression is
// evaluated against the object's effective values before Save persists
// anything; a rule that fails or does not evaluate to true aborts the save.
func WithRule(name, expr string) ObjectTypeOption {
	return func(t *ObjectType) {
		t.rules.rules = append(t.rules.rules, rule{name: name, expr: expr})
	}
}

// WithEvaluator configures the rule engine used by this type. The expr
// engine is the default.
func WithEvaluator(e Evaluator) ObjectTypeOption {
	return func(t *ObjectType) {
		t.rules.evaluator = e
	}
}

// Evaluate executes expr against this object's effective values using the
// type's configured engine.
func (o *Object) Evaluate(expr string) (any, error) {
	if expr == "" {
		return nil, fmt.Errorf("settings: expression must not be empty")
	}
	evaluator, err := o.typ.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	ctx := RuleContext{
		Snapshot: o.node.Effective(),
		Section:  o.typ.section,
		ObjectID: o.id,
	}
	ctx = ctx.withDefaultNow().withDefaultMaps()
	engine := engineName(evaluator)
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	evalErr = wrapEvaluationError(engine, expr, ctx.objectLabel(), evalErr)
	o.typ.ruleLogger().LogEvaluation(RuleLogEvent{
		Engine:   engine,
		Expr:     expr,
		Object:   ctx.objectLabel(),
		Duration: duration,
		Err:      evalErr,
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

func (t *ObjectType) checkRules(o *Object) error {
	for _, r := range t.rules.rules {
		value, err := o.Evaluate(r.expr)
		if err != nil {
			return &RuleViolationError{Object: o.id, Rule: r.name, Expr: r.expr, Err: err}
		}
		passed, isBool := value.(bool)
		if !isBool {
			return &RuleViolationError{Object: o.id, Rule: r.name, Expr: r.expr,
				Err: fmt.Errorf("expected a boolean result, got %T", value)}
		}
		if !passed {
			return &RuleViolationError{Object: o.id, Rule: r.name, Expr: r.expr}
		}
	}
	return nil
}

func (t *ObjectType) resolveEvaluator() (Evaluator, error) {
	if t.rules.evaluator != nil {
		return t.rules.evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if t.rules.cache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(t.rules.cache))
	}
	if t.rules.functions != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(t.rules.functions))
	}
	defaultEvaluator := NewExprEvaluator(exprOpts...)
	if defaultEvaluator == nil {
		return nil, ErrNoEvaluator
	}
	t.rules.evaluator = defaultEvaluator
	return defaultEvaluator, nil
}

func (t *ObjectType) ruleLogger() RuleLogger {
	if t.rules.logger != nil {
		return t.rules.logger
	}
	return noopRuleLogger{}
}

func engineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*settings.exprEvaluator":
		return "expr"
	case "*settings.celEvaluator":
		return "cel"
	case "*settings.jsEvaluator":
		return "js"
	default:
		return "custom"
	}
}
