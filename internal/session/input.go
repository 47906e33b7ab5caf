package session

import (
	"strings"
)

// ParsedInput is the structured form of one REPL line. The format is:
//
//	<command> [by: <actor>] [target: <entity>] [underwear: yes|no] [<text>]
//
// Keyed options come before the free text, which is kept verbatim so scope
// expressions keep their filter spacing.
type ParsedInput struct {
	Command   string
	ActorID   string
	Target    string
	Underwear bool
	Text      string
}

// ParseInput parses a raw REPL line.
//
// Examples:
//
//	"resolve actor.all_clothing[]" → Command="resolve", Text="actor.all_clothing[]"
//	"resolve by: guard location" → Command="resolve", ActorID="guard", Text="location"
//	"actions by: hero" → Command="actions", ActorID="hero"
//	"resolve target: chest underwear: yes actor.underwear[]" → Target="chest", Underwear=true
func ParseInput(input string) ParsedInput {
	var result ParsedInput
	rest := strings.TrimSpace(input)
	if rest == "" {
		return result
	}

	word, rest := next(rest)
	result.Command = strings.ToLower(word)

	for rest != "" {
		key, after := next(rest)
		if !strings.HasSuffix(key, ":") {
			break
		}
		value, remaining := next(after)
		switch strings.ToLower(strings.TrimSuffix(key, ":")) {
		case "by":
			result.ActorID = value
		case "target", "to":
			result.Target = value
		case "underwear":
			v := strings.ToLower(value)
			result.Underwear = v == "yes" || v == "true"
		default:
			// Not an option: the text itself starts here.
			result.Text = rest
			return result
		}
		rest = remaining
	}
	result.Text = rest
	return result
}

// next splits off the first whitespace separated word of s.
func next(s string) (word, rest string) {
	s = strings.TrimLeft(s, " \t")
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimLeft(s[i:], " \t")
	}
	return s, ""
}
