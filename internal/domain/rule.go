package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
)

type RuleKind string

const (
	KindCoRun              RuleKind = "coRun"
	KindSlotRestriction    RuleKind = "slotRestriction"
	KindLoadLimit          RuleKind = "loadLimit"
	KindPhaseWindow        RuleKind = "phaseWindow"
	KindPatternMatch       RuleKind = "patternMatch"
	KindPrecedenceOverride RuleKind = "precedenceOverride"
)

// Rule is a business rule. The set of kinds is closed: every implementation lives in this
// package and is dispatched through RuleVisitor, so a new kind fails to compile until each
// visitor handles it.
type Rule interface {
	Kind() RuleKind
	Accept(v RuleVisitor)
	rule()
}

type RuleVisitor interface {
	VisitCoRun(CoRunRule)
	VisitSlotRestriction(SlotRestrictionRule)
	VisitLoadLimit(LoadLimitRule)
	VisitPhaseWindow(PhaseWindowRule)
	VisitPatternMatch(PatternMatchRule)
	VisitPrecedenceOverride(PrecedenceOverrideRule)
}

// CoRunRule asks for the listed tasks to be scheduled together.
type CoRunRule struct {
	Tasks []string
}

// SlotRestrictionRule requires a client group and worker group to share MinCommonSlots phases.
type SlotRestrictionRule struct {
	ClientGroup    string
	WorkerGroup    string
	MinCommonSlots int
}

// LoadLimitRule caps the number of slots a worker group may fill per phase.
type LoadLimitRule struct {
	WorkerGroup      string
	MaxSlotsPerPhase int
}

// PhaseWindowRule restricts tasks to AllowedPhases.
type PhaseWindowRule struct {
	Tasks         []string
	AllowedPhases []int
}

// PatternMatchRule selects rows whose Column matches Regex.
type PatternMatchRule struct {
	Regex  string
	Column string
}

// PrecedenceOverrideRule ranks tasks above the client priority order.
type PrecedenceOverrideRule struct {
	Tasks    []string
	Priority int
}

func (CoRunRule) Kind() RuleKind              { return KindCoRun }
func (SlotRestrictionRule) Kind() RuleKind    { return KindSlotRestriction }
func (LoadLimitRule) Kind() RuleKind          { return KindLoadLimit }
func (PhaseWindowRule) Kind() RuleKind        { return KindPhaseWindow }
func (PatternMatchRule) Kind() RuleKind       { return KindPatternMatch }
func (PrecedenceOverrideRule) Kind() RuleKind { return KindPrecedenceOverride }

func (r CoRunRule) Accept(v RuleVisitor)              { v.VisitCoRun(r) }
func (r SlotRestrictionRule) Accept(v RuleVisitor)    { v.VisitSlotRestriction(r) }
func (r LoadLimitRule) Accept(v RuleVisitor)          { v.VisitLoadLimit(r) }
func (r PhaseWindowRule) Accept(v RuleVisitor)        { v.VisitPhaseWindow(r) }
func (r PatternMatchRule) Accept(v RuleVisitor)       { v.VisitPatternMatch(r) }
func (r PrecedenceOverrideRule) Accept(v RuleVisitor) { v.VisitPrecedenceOverride(r) }

func (CoRunRule) rule()              {}
func (SlotRestrictionRule) rule()    {}
func (LoadLimitRule) rule()          {}
func (PhaseWindowRule) rule()        {}
func (PatternMatchRule) rule()       {}
func (PrecedenceOverrideRule) rule() {}

// RuleSpec is the wire form of a rule: a "type" tag plus the union of all kind-specific fields.
type RuleSpec struct {
	Type             RuleKind `json:"type" yaml:"type"`
	Tasks            []string `json:"tasks,omitempty" yaml:"tasks,omitempty"`
	ClientGroup      string   `json:"clientGroup,omitempty" yaml:"clientGroup,omitempty"`
	WorkerGroup      string   `json:"workerGroup,omitempty" yaml:"workerGroup,omitempty"`
	MinCommonSlots   int      `json:"minCommonSlots,omitempty" yaml:"minCommonSlots,omitempty"`
	MaxSlotsPerPhase int      `json:"maxSlotsPerPhase,omitempty" yaml:"maxSlotsPerPhase,omitempty"`
	AllowedPhases    []int    `json:"allowedPhases,omitempty" yaml:"allowedPhases,omitempty"`
	Regex            string   `json:"regex,omitempty" yaml:"regex,omitempty"`
	Column           string   `json:"column,omitempty" yaml:"column,omitempty"`
	Priority         int      `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// Rule converts the wire form into its variant.
func (s RuleSpec) Rule() (Rule, error) {
	switch s.Type {
	case KindCoRun:
		if len(s.Tasks) < 2 {
			return nil, InvalidArgument("rules", "coRun needs at least 2 tasks")
		}
		return CoRunRule{Tasks: s.Tasks}, nil
	case KindSlotRestriction:
		if s.MinCommonSlots < 0 {
			return nil, InvalidArgument("rules", "slotRestriction minCommonSlots must not be negative")
		}
		return SlotRestrictionRule{ClientGroup: s.ClientGroup, WorkerGroup: s.WorkerGroup, MinCommonSlots: s.MinCommonSlots}, nil
	case KindLoadLimit:
		if s.MaxSlotsPerPhase < 0 {
			return nil, InvalidArgument("rules", "loadLimit maxSlotsPerPhase must not be negative")
		}
		return LoadLimitRule{WorkerGroup: s.WorkerGroup, MaxSlotsPerPhase: s.MaxSlotsPerPhase}, nil
	case KindPhaseWindow:
		for _, p := range s.AllowedPhases {
			if p < 1 {
				return nil, InvalidArgument("rules", fmt.Sprintf("phaseWindow phase %d is not positive", p))
			}
		}
		return PhaseWindowRule{Tasks: s.Tasks, AllowedPhases: s.AllowedPhases}, nil
	case KindPatternMatch:
		if _, err := regexp.Compile(s.Regex); err != nil {
			return nil, InvalidArgument("rules", fmt.Sprintf("patternMatch regex: %v", err))
		}
		return PatternMatchRule{Regex: s.Regex, Column: s.Column}, nil
	case KindPrecedenceOverride:
		return PrecedenceOverrideRule{Tasks: s.Tasks, Priority: s.Priority}, nil
	default:
		return nil, InvalidArgument("rules", fmt.Sprintf("unknown rule type %q", s.Type))
	}
}

// SpecOf returns the wire form of r.
func SpecOf(r Rule) RuleSpec {
	b := specBuilder{}
	r.Accept(&b)
	return b.spec
}

type specBuilder struct{ spec RuleSpec }

func (b *specBuilder) VisitCoRun(r CoRunRule) {
	b.spec = RuleSpec{Type: KindCoRun, Tasks: r.Tasks}
}

func (b *specBuilder) VisitSlotRestriction(r SlotRestrictionRule) {
	b.spec = RuleSpec{Type: KindSlotRestriction, ClientGroup: r.ClientGroup, WorkerGroup: r.WorkerGroup, MinCommonSlots: r.MinCommonSlots}
}

func (b *specBuilder) VisitLoadLimit(r LoadLimitRule) {
	b.spec = RuleSpec{Type: KindLoadLimit, WorkerGroup: r.WorkerGroup, MaxSlotsPerPhase: r.MaxSlotsPerPhase}
}

func (b *specBuilder) VisitPhaseWindow(r PhaseWindowRule) {
	b.spec = RuleSpec{Type: KindPhaseWindow, Tasks: r.Tasks, AllowedPhases: r.AllowedPhases}
}

func (b *specBuilder) VisitPatternMatch(r PatternMatchRule) {
	b.spec = RuleSpec{Type: KindPatternMatch, Regex: r.Regex, Column: r.Column}
}

func (b *specBuilder) VisitPrecedenceOverride(r PrecedenceOverrideRule) {
	b.spec = RuleSpec{Type: KindPrecedenceOverride, Tasks: r.Tasks, Priority: r.Priority}
}

// Rules is an ordered rule list that serializes through RuleSpec.
type Rules []Rule

// DecodeRules converts wire specs, stopping at the first invalid one.
func DecodeRules(specs []RuleSpec) (Rules, error) {
	out := make(Rules, 0, len(specs))
	for i, s := range specs {
		r, err := s.Rule()
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// Specs returns the wire form of every rule.
func (rs Rules) Specs() []RuleSpec {
	out := make([]RuleSpec, 0, len(rs))
	for _, r := range rs {
		out = append(out, SpecOf(r))
	}
	return out
}

func (rs Rules) MarshalJSON() ([]byte, error) {
	return json.Marshal(rs.Specs())
}

func (rs *Rules) UnmarshalJSON(data []byte) error {
	var specs []RuleSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return err
	}
	decoded, err := DecodeRules(specs)
	if err != nil {
		return err
	}
	*rs = decoded
	return nil
}
