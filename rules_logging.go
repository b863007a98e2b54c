package settings

import "time"

// RuleLogEvent describes a rule evaluation attempt for logging.
type RuleLogEvent struct {
	Engine   string
	Expr     string
	Object   string
	Duration time.Duration
	Err      error
}

// RuleLogger records rule evaluation events.
type RuleLogger interface {
	LogEvaluation(RuleLogEvent)
}

// RuleLoggerFunc adapts a function to RuleLogger.
type RuleLoggerFunc func(RuleLogEvent)

// LogEvaluation implements RuleLogger.
func (f RuleLoggerFunc) LogEvaluation(event RuleLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopRuleLogger struct{}

func (noopRuleLogger) LogEvaluation(RuleLogEvent) {}

// WithRuleLogger attaches a rule evaluation logger to the type.
func WithRuleLogger(logger RuleLogger) ObjectTypeOption {
	return func(t *ObjectType) {
		if logger == nil {
			t.rules.logger = noopRuleLogger{}
			return
		}
		t.rules.logger = logger
	}
}
