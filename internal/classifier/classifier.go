package classifier

import (
	"strings"

	"github.com/xaenox/emo/internal/models"
)

type Classifier interface {
	Classify(message string) models.Classification
}

// MatchMode says how a keyword set is tested against the lower-cased message.
type MatchMode int

const (
	// Contains matches when any keyword occurs anywhere in the message.
	Contains MatchMode = iota
	// Prefix matches when the trimmed message starts with or equals a keyword.
	Prefix
)

// KeywordSet matches when any of its words is present.
type KeywordSet struct {
	Name  string
	Words []string
	Mode  MatchMode
}

func (k KeywordSet) Match(lower string) bool {
	if k.Mode == Prefix {
		lower = strings.TrimSpace(lower)
	}
	for _, w := range k.Words {
		switch k.Mode {
		case Prefix:
			if lower == w || strings.HasPrefix(lower, w) {
				return true
			}
		default:
			if strings.Contains(lower, w) {
				return true
			}
		}
	}
	return false
}

// Rule fires when every one of its keyword sets matches. A rule with no tool
// still claims its group, so later rules in the same group are skipped.
type Rule struct {
	Name      string
	Requires  []KeywordSet
	Tool      models.ToolName
	QueryType models.QueryType
}

func (r Rule) Match(lower string) bool {
	for _, set := range r.Requires {
		if !set.Match(lower) {
			return false
		}
	}
	return true
}

// Group is an ordered list of alternatives: the first matching rule wins.
// A terminal group ends classification as soon as one of its rules matches.
type Group struct {
	Name     string
	Rules    []Rule
	Terminal bool
}

// RuleClassifier evaluates groups top to bottom. Each non-terminal group can
// contribute at most one tool, so a message may need tools from several groups.
type RuleClassifier struct {
	groups []Group
}

func NewRuleClassifier(groups []Group) *RuleClassifier {
	return &RuleClassifier{groups: groups}
}

// NewDefault builds the classifier with the assistant's standard rule table.
func NewDefault() *RuleClassifier {
	return NewRuleClassifier(DefaultRules())
}

func (c *RuleClassifier) Classify(message string) models.Classification {
	lower := strings.ToLower(message)
	result := models.Classification{QueryType: models.QueryChat, ToolsNeeded: []models.ToolName{}}

	for _, g := range c.groups {
		rule, ok := g.match(lower)
		if !ok {
			continue
		}
		if g.Terminal {
			return models.Classification{QueryType: rule.QueryType, ToolsNeeded: []models.ToolName{}}
		}
		if rule.Tool != models.ToolUnknown {
			result.ToolsNeeded = append(result.ToolsNeeded, rule.Tool)
		}
		if rule.QueryType != "" {
			result.QueryType = rule.QueryType
		}
	}

	if len(result.ToolsNeeded) == 0 && strings.Contains(message, "?") {
		result.QueryType = models.QueryQuestion
	}
	return result
}

// Explain lists the name of the rule that fired in each group, in order.
func (c *RuleClassifier) Explain(message string) []string {
	lower := strings.ToLower(message)
	var fired []string
	for _, g := range c.groups {
		if rule, ok := g.match(lower); ok {
			fired = append(fired, g.Name+"/"+rule.Name)
			if g.Terminal {
				break
			}
		}
	}
	return fired
}

func (g Group) match(lower string) (Rule, bool) {
	for _, r := range g.Rules {
		if r.Match(lower) {
			return r, true
		}
	}
	return Rule{}, false
}
