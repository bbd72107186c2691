package schema

import (
	"regexp"
	"strconv"
	"strings"
)

// TypeDescriptor is a parsed native column type such as "decimal(10,2) unsigned".
type TypeDescriptor struct {
	Type      string
	Size      int
	Precision int
	Scale     int
	// Values holds the quoted list of enum('a','b') or set('a','b') types.
	Values []string
	// Options holds trailing modifiers such as "unsigned" or "zerofill".
	Options []string
}

var (
	typePattern    = regexp.MustCompile(`(?is)^\s*([a-z][a-z0-9_ ]*)\s*(?:\((.*)\))?((?:\s+[a-z_]+)*)\s*$`)
	numericPattern = regexp.MustCompile(`^\s*(\d+)\s*(?:,\s*(\d+)\s*)?$`)
	quotedPattern  = regexp.MustCompile(`'((?:[^']|'')*)'`)
	modifiers      = []string{"unsigned", "zerofill", "signed"}
)

// precisionTypes take "(p)" as a precision rather than a size.
var precisionTypes = map[string]bool{"decimal": true, "numeric": true, "dec": true, "fixed": true}

// ParseType parses a native type declaration. Unparseable input is returned as the type
// name with no size.
func ParseType(declaration string) TypeDescriptor {
	m := typePattern.FindStringSubmatch(declaration)
	if m == nil {
		return TypeDescriptor{Type: strings.ToLower(strings.TrimSpace(declaration))}
	}

	desc := TypeDescriptor{Type: strings.ToLower(strings.Join(strings.Fields(m[1]), " "))}
	desc.Options = strings.Fields(strings.ToLower(m[3]))

	// "int unsigned" without parentheses ends up in the type name.
	for {
		idx := strings.LastIndexByte(desc.Type, ' ')
		if idx < 0 || !isModifier(desc.Type[idx+1:]) {
			break
		}
		desc.Options = append([]string{desc.Type[idx+1:]}, desc.Options...)
		desc.Type = desc.Type[:idx]
	}

	args := m[2]
	switch {
	case args == "":
	case strings.Contains(args, "'"):
		for _, q := range quotedPattern.FindAllStringSubmatch(args, -1) {
			desc.Values = append(desc.Values, strings.ReplaceAll(q[1], "''", "'"))
		}
	default:
		if n := numericPattern.FindStringSubmatch(args); n != nil {
			first, _ := strconv.Atoi(n[1])
			switch {
			case n[2] != "":
				desc.Precision = first
				desc.Scale, _ = strconv.Atoi(n[2])
			case precisionTypes[desc.Type]:
				desc.Precision = first
			default:
				desc.Size = first
			}
		}
	}
	return desc
}

func isModifier(word string) bool {
	for _, m := range modifiers {
		if word == m {
			return true
		}
	}
	return false
}

// QuotedValues extracts every single-quoted literal from text, undoing '' escapes. It is
// used to recover enum values from CHECK constraint definitions.
func QuotedValues(text string) []string {
	var out []string
	for _, q := range quotedPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, strings.ReplaceAll(q[1], "''", "'"))
	}
	return out
}
