// Package sqllex locates bind placeholders in SQL text.
//
// The scanner understands just enough SQL to avoid false positives: single quoted string
// literals (with doubled quotes and backslash escapes), double quoted and backtick quoted
// identifiers, line comments (--) and block comments (/* */). Everything inside those
// regions is ignored.
package sqllex

// Kind distinguishes positional from named placeholders.
type Kind int

const (
	// Positional is a "?" placeholder.
	Positional Kind = iota
	// Named is a ":name" or "@name" placeholder.
	Named
)

// Placeholder is one bind marker found in a statement.
type Placeholder struct {
	Kind   Kind
	Offset int    // byte offset of the marker in the statement
	Length int    // byte length of the marker, including the prefix
	Name   string // name without prefix for Named placeholders
}

// Scan returns the placeholders of sql in order of appearance.
//
// Examples:
//
//	Scan("SELECT * FROM t WHERE id = ?")          // one Positional at offset 27
//	Scan("SELECT '?' FROM t WHERE a = :a")       // one Named "a"; the quoted ? is skipped
//	Scan("SELECT x::int, @@IDENTITY")            // none: casts and system variables are not markers
func Scan(sql string) []Placeholder {
	var out []Placeholder

	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case c == '\'':
			i = skipQuoted(sql, i, '\'', true)
		case c == '"' || c == '`':
			i = skipQuoted(sql, i, c, false)
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			i = skipLine(sql, i)
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			i = skipBlock(sql, i)
		case c == '?':
			out = append(out, Placeholder{Kind: Positional, Offset: i, Length: 1})
		case (c == ':' || c == '@') && isNamedStart(sql, i):
			end := i + 1
			for end < len(sql) && isNameChar(sql[end]) {
				end++
			}
			out = append(out, Placeholder{Kind: Named, Offset: i, Length: end - i, Name: sql[i+1 : end]})
			i = end - 1
		}
	}
	return out
}

// CountPositional returns the number of "?" markers in sql.
func CountPositional(sql string) int {
	n := 0
	for _, p := range Scan(sql) {
		if p.Kind == Positional {
			n++
		}
	}
	return n
}

func isNamedStart(sql string, i int) bool {
	if i+1 >= len(sql) || !isNameStart(sql[i+1]) {
		return false
	}
	if i > 0 && (sql[i-1] == sql[i] || isNameChar(sql[i-1])) {
		return false
	}
	return true
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

// skipQuoted returns the index of the closing quote of the region starting at start.
func skipQuoted(sql string, start int, quote byte, backslash bool) int {
	for i := start + 1; i < len(sql); i++ {
		switch sql[i] {
		case '\\':
			if backslash {
				i++
			}
		case quote:
			if i+1 < len(sql) && sql[i+1] == quote {
				i++
				continue
			}
			return i
		}
	}
	return len(sql)
}

func skipLine(sql string, start int) int {
	for i := start; i < len(sql); i++ {
		if sql[i] == '\n' {
			return i
		}
	}
	return len(sql)
}

func skipBlock(sql string, start int) int {
	for i := start + 2; i+1 < len(sql); i++ {
		if sql[i] == '*' && sql[i+1] == '/' {
			return i + 1
		}
	}
	return len(sql)
}
