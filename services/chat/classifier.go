package chat

import (
	"regexp"
	"strings"
)

// Category labels a user message after classification.
type Category string

const (
	// CategoryNone means no policy matched; the turn proceeds to retrieval.
	CategoryNone      Category = "none"
	CategoryGratitude Category = "gratitude"
	CategoryHostile   Category = "hostile"
	CategorySensitive Category = "sensitive"
)

// Rule maps a set of trigger phrases to a canned response. Matching is
// case-insensitive substring containment.
type Rule struct {
	Category Category
	Phrases  []string
	Response string
}

// Canned responses. SensitiveRefusal doubles as the post-filter substitute
// when a generated answer trips a leak pattern.
const (
	GratitudeAck = "You're welcome! Let me know if you have any other questions about your documents."

	HostileDeescalation = "I understand this can be frustrating. I'm here to help, and I'll do my best to answer your questions about the documents."

	SensitiveRefusal = "Sorry, I cannot provide you the details you asked as it contains sensitive information."
)

// DefaultRules returns the classification policy in evaluation order.
// Categories overlap in phrasing, so order matters: gratitude beats
// hostility beats sensitive-keyword, first match wins.
func DefaultRules() []Rule {
	return []Rule{
		{
			Category: CategoryGratitude,
			Phrases: []string{
				"thank", "thx", "appreciate it", "much appreciated", "grateful",
			},
			Response: GratitudeAck,
		},
		{
			Category: CategoryHostile,
			Phrases: []string{
				"you are dumb", "you're dumb", "you are stupid", "you're stupid",
				"you are useless", "you're useless", "idiot", "shut up",
				"you suck", "worthless",
			},
			Response: HostileDeescalation,
		},
		{
			Category: CategorySensitive,
			Phrases: []string{
				"password", "phone number", "email address", "api key",
				"credit card", "ssn", "secret", "contact information", "contact",
			},
			Response: SensitiveRefusal,
		},
	}
}

// Classify runs the rules in order against the message and returns the first
// match. ok is false when no rule matched and the turn should proceed to
// retrieval and generation.
func Classify(rules []Rule, text string) (category Category, response string, ok bool) {
	lowered := strings.ToLower(text)
	for _, rule := range rules {
		for _, phrase := range rule.Phrases {
			if strings.Contains(lowered, phrase) {
				return rule.Category, rule.Response, true
			}
		}
	}
	return CategoryNone, "", false
}

// ============================================================================
// Context-change detection
// ============================================================================

// personalFactPatterns extract remembered user facts from message text. The
// first capture group is the fact value.
var personalFactPatterns = []struct {
	key     string
	pattern *regexp.Regexp
}{
	{"name", regexp.MustCompile(`(?i)\bmy name is ([A-Za-z][A-Za-z'-]*)`)},
	{"name", regexp.MustCompile(`(?i)\bcall me ([A-Za-z][A-Za-z'-]*)`)},
	{"location", regexp.MustCompile(`(?i)\bi(?: am|'m) from ([A-Za-z][A-Za-z .'-]*)`)},
	{"employer", regexp.MustCompile(`(?i)\bi work (?:at|for) ([A-Za-z][A-Za-z .'-]*)`)},
}

// ExtractPersonalFacts scans the message for personal facts and merges any
// it finds into the session's personal context. It reports whether a new
// fact was recorded or an existing one changed.
func ExtractPersonalFacts(session *Session, text string) bool {
	changed := false
	for _, entry := range personalFactPatterns {
		match := entry.pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		value := strings.TrimSpace(match[1])
		if value == "" {
			continue
		}
		if session.PersonalContext == nil {
			session.PersonalContext = make(map[string]string)
		}
		if session.PersonalContext[entry.key] != value {
			session.PersonalContext[entry.key] = value
			changed = true
		}
	}
	return changed
}

// MentionsDocumentContext reports whether the message references the
// document or context framing, which forces a chain rebuild so the next
// answer picks up the current summary and facts.
func MentionsDocumentContext(text string) bool {
	lowered := strings.ToLower(text)
	return strings.Contains(lowered, "document") || strings.Contains(lowered, "context")
}
