package catalog

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

// CounterKind names a countable user activity. It is the join key between raw
// progress counters and achievement requirements.
type CounterKind string

const (
	// KindPoints is evaluated against the accumulated points total.
	KindPoints CounterKind = "points"
	// KindChallenges is evaluated against the number of completed challenges.
	KindChallenges CounterKind = "challenges"

	KindCryptoPuzzles CounterKind = "crypto_puzzles"
	KindSQLLevels     CounterKind = "sql_levels"
	KindTerminalFlags CounterKind = "terminal_flags"
	KindChatMessages  CounterKind = "chat_messages"
	KindMissions      CounterKind = "missions"

	// Synthetic requirement types, only reachable through mastery rules.
	KindCryptoMaster   CounterKind = "crypto_master"
	KindSQLMaster      CounterKind = "sql_master"
	KindTerminalMaster CounterKind = "terminal_master"
)

// incrementable lists the kinds that IncrementCounter accepts.
// Points and challenges have their own mutation operations.
var incrementable = map[CounterKind]bool{
	KindCryptoPuzzles: true,
	KindSQLLevels:     true,
	KindTerminalFlags: true,
	KindChatMessages:  true,
	KindMissions:      true,
}

// IsIncrementable reports whether kind is a plain activity counter.
func IsIncrementable(kind CounterKind) bool {
	return incrementable[kind]
}

// Counters returns the incrementable counter kinds in a stable order.
func Counters() []CounterKind {
	kinds := make([]CounterKind, 0, len(incrementable))
	for k := range incrementable {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Achievement is an immutable achievement definition.
type Achievement struct {
	ID               string      `json:"id" yaml:"id" validate:"required"`
	Name             string      `json:"name" yaml:"name" validate:"required"`
	Description      string      `json:"description" yaml:"description"`
	Icon             string      `json:"icon,omitempty" yaml:"icon,omitempty"`
	Points           int         `json:"points" yaml:"points" validate:"gte=0"`
	RequirementType  CounterKind `json:"requirement_type" yaml:"requirement_type" validate:"required"`
	RequirementValue int         `json:"requirement_value" yaml:"requirement_value" validate:"gte=0"`
}

// MasteryRule grants a synthetic evaluation of Grants once the Counter
// reaches Total, on top of the ordinary threshold check for Counter.
type MasteryRule struct {
	Counter CounterKind `json:"counter" yaml:"counter" validate:"required"`
	Total   int         `json:"total" yaml:"total" validate:"gt=0"`
	Grants  CounterKind `json:"grants" yaml:"grants" validate:"required"`
}

// Catalog is the append-only set of achievement definitions plus the mastery
// rule table. A Catalog is immutable once built and safe for concurrent use.
type Catalog struct {
	achievements []Achievement
	byID         map[string]int
	mastery      []MasteryRule
}

var validate = validator.New()

// New builds a catalog, preserving declaration order.
//
// Rules enforced:
//   - achievement ids are unique
//   - mastery counters are incrementable and grant a non-incrementable type
//   - every requirement type is a known kind or granted by a mastery rule
func New(achievements []Achievement, mastery []MasteryRule) (*Catalog, error) {
	synthetic := make(map[CounterKind]bool, len(mastery))
	for i, rule := range mastery {
		if err := validate.Struct(rule); err != nil {
			return nil, fmt.Errorf("mastery[%d]: %w", i, err)
		}
		if !IsIncrementable(rule.Counter) {
			return nil, fmt.Errorf("mastery[%d]: counter %q is not an activity counter", i, rule.Counter)
		}
		if IsIncrementable(rule.Grants) || rule.Grants == KindPoints || rule.Grants == KindChallenges {
			return nil, fmt.Errorf("mastery[%d]: grants %q collides with a counted kind", i, rule.Grants)
		}
		synthetic[rule.Grants] = true
	}

	c := &Catalog{
		achievements: make([]Achievement, 0, len(achievements)),
		byID:         make(map[string]int, len(achievements)),
		mastery:      append([]MasteryRule(nil), mastery...),
	}
	for _, a := range achievements {
		if err := validate.Struct(a); err != nil {
			return nil, fmt.Errorf("achievement %q: %w", a.ID, err)
		}
		if _, dup := c.byID[a.ID]; dup {
			return nil, fmt.Errorf("duplicate achievement id: %s", a.ID)
		}
		k := a.RequirementType
		if k != KindPoints && k != KindChallenges && !IsIncrementable(k) && !synthetic[k] {
			return nil, fmt.Errorf("achievement %q: unknown requirement type %q", a.ID, k)
		}
		c.byID[a.ID] = len(c.achievements)
		c.achievements = append(c.achievements, a)
	}
	return c, nil
}

// Achievements returns a copy of all definitions in declaration order.
func (c *Catalog) Achievements() []Achievement {
	out := make([]Achievement, len(c.achievements))
	copy(out, c.achievements)
	return out
}

// Lookup returns the definition with the given id.
func (c *Catalog) Lookup(id string) (Achievement, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Achievement{}, false
	}
	return c.achievements[i], true
}

// Eligible returns the definitions of the given requirement type whose
// threshold is met by value, in declaration order.
func (c *Catalog) Eligible(kind CounterKind, value int) []Achievement {
	var out []Achievement
	for _, a := range c.achievements {
		if a.RequirementType == kind && a.RequirementValue <= value {
			out = append(out, a)
		}
	}
	return out
}

// MasteryFor returns the mastery rules layered on counter.
func (c *Catalog) MasteryFor(counter CounterKind) []MasteryRule {
	var out []MasteryRule
	for _, r := range c.mastery {
		if r.Counter == counter {
			out = append(out, r)
		}
	}
	return out
}

// Mastery returns a copy of the mastery rule table.
func (c *Catalog) Mastery() []MasteryRule {
	return append([]MasteryRule(nil), c.mastery...)
}

// Len returns the number of achievement definitions.
func (c *Catalog) Len() int {
	return len(c.achievements)
}
