package schedule

import (
	"alchemist/internal/domain"
)

// Placement is a worker/phase pair that passed the built-in constraints and is about to be
// committed for a client's task request.
type Placement struct {
	Phase    int
	ClientID string
	TaskID   string
	WorkerID string
	Client   domain.Record
	Task     domain.Record
	Worker   domain.Record
	Weights  domain.Weights
}

// Hook is consulted before every commit. Returning false rejects the placement and the search
// continues with the next phase.
type Hook interface {
	Admit(p Placement) bool
}

// HookFunc adapts a function to Hook.
type HookFunc func(Placement) bool

func (f HookFunc) Admit(p Placement) bool { return f(p) }

// RuleHook evaluates business rules at commit time. No rule kind constrains placement yet:
// each kind compiles to an advisory check that admits everything and is listed by Advisory.
type RuleHook struct {
	checks   []func(Placement) bool
	advisory []domain.RuleKind
}

// NewRuleHook compiles rules into commit-time checks.
func NewRuleHook(rules domain.Rules) *RuleHook {
	h := &RuleHook{}
	c := ruleCompiler{hook: h}
	for _, r := range rules {
		r.Accept(&c)
	}
	return h
}

func (h *RuleHook) Admit(p Placement) bool {
	for _, check := range h.checks {
		if !check(p) {
			return false
		}
	}
	return true
}

// Advisory lists, in rule order, the kinds that were accepted but do not yet affect placement.
func (h *RuleHook) Advisory() []domain.RuleKind {
	return append([]domain.RuleKind(nil), h.advisory...)
}

type ruleCompiler struct {
	hook *RuleHook
}

func (c *ruleCompiler) advise(kind domain.RuleKind) {
	c.hook.advisory = append(c.hook.advisory, kind)
}

// TODO(rules): enforce co-run coupling once tasks can be committed as a group; greedy first-fit
// commits one request at a time.
func (c *ruleCompiler) VisitCoRun(domain.CoRunRule) { c.advise(domain.KindCoRun) }

func (c *ruleCompiler) VisitSlotRestriction(domain.SlotRestrictionRule) {
	c.advise(domain.KindSlotRestriction)
}

func (c *ruleCompiler) VisitLoadLimit(domain.LoadLimitRule) { c.advise(domain.KindLoadLimit) }

func (c *ruleCompiler) VisitPhaseWindow(domain.PhaseWindowRule) { c.advise(domain.KindPhaseWindow) }

func (c *ruleCompiler) VisitPatternMatch(domain.PatternMatchRule) {
	c.advise(domain.KindPatternMatch)
}

func (c *ruleCompiler) VisitPrecedenceOverride(domain.PrecedenceOverrideRule) {
	c.advise(domain.KindPrecedenceOverride)
}
