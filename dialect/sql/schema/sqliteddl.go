package schema

import (
	"regexp"
	"strings"
)

// columnDefs splits the body of a SQLite CREATE TABLE statement into column
// definitions, keyed by the lower-cased column name. The value is the text
// following the name. Table constraints are skipped.
func columnDefs(ddl string) map[string]string {
	defs := make(map[string]string)
	for _, part := range splitDefs(ddl) {
		name, quoted, rest := leadingIdent(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		if !quoted {
			switch strings.ToUpper(name) {
			case "CONSTRAINT", "PRIMARY", "UNIQUE", "CHECK", "FOREIGN":
				continue
			}
		}
		defs[strings.ToLower(name)] = rest
	}
	return defs
}

// splitDefs returns the comma separated items between the outer parentheses
// of ddl.
func splitDefs(ddl string) []string {
	var (
		parts []string
		depth = -1
		start int
		quote byte
	)
	for i := 0; i < len(ddl); i++ {
		c := ddl[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '[':
			quote = ']'
		case c == '(':
			depth++
			if depth == 0 {
				start = i + 1
			}
		case c == ')':
			if depth == 0 {
				return append(parts, ddl[start:i])
			}
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, ddl[start:i])
			start = i + 1
		}
	}
	return parts
}

// leadingIdent splits the identifier at the start of s from the rest.
func leadingIdent(s string) (name string, quoted bool, rest string) {
	if s == "" {
		return "", false, ""
	}
	end := byte(0)
	switch s[0] {
	case '"', '`', '\'':
		end = s[0]
	case '[':
		end = ']'
	}
	if end == 0 {
		i := strings.IndexAny(s, " \t\r\n")
		if i < 0 {
			return s, false, ""
		}
		return s[:i], false, strings.TrimSpace(s[i:])
	}
	var sb strings.Builder
	for i := 1; i < len(s); i++ {
		if s[i] != end {
			sb.WriteByte(s[i])
			continue
		}
		if end != ']' && i+1 < len(s) && s[i+1] == end {
			sb.WriteByte(end)
			i++
			continue
		}
		return sb.String(), true, strings.TrimSpace(s[i+1:])
	}
	return "", false, ""
}

// blank returns def with string literals and the content of parentheses
// replaced by spaces, so keyword matches never land inside them. Offsets
// are kept.
func blank(def string) string {
	out := []byte(def)
	var (
		depth int
		quote byte
	)
	for i := 0; i < len(out); i++ {
		c := out[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				out[i] = ' '
			}
		case c == '\'':
			quote = c
		case c == '(':
			if depth > 0 {
				out[i] = ' '
			}
			depth++
		case c == ')':
			depth--
			if depth > 0 {
				out[i] = ' '
			}
		case depth > 0:
			out[i] = ' '
		}
	}
	return string(out)
}

var (
	collateRe   = regexp.MustCompile("(?i)\\bcollate\\s+(\"[^\"]*\"|`[^`]*`|\\[[^\\]]*\\]|\\w+)")
	generatedRe = regexp.MustCompile(`(?i)\b(?:generated\s+always\s+)?as\s*\(`)
)

// collation returns the COLLATE clause of a column definition.
func collation(def string) string {
	m := collateRe.FindStringSubmatchIndex(blank(def))
	if m == nil {
		return ""
	}
	return def[m[2]:m[3]]
}

// generatedExpr returns the generation expression of a column definition.
func generatedExpr(def string) string {
	b := blank(def)
	m := generatedRe.FindStringIndex(b)
	if m == nil {
		return ""
	}
	open := m[1] - 1
	end := strings.IndexByte(b[open+1:], ')')
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(def[open+1 : open+1+end])
}

// references reports whether the expression mentions the column name.
// Matches inside string literals count too.
func references(expr, column string) bool {
	re, err := regexp.Compile(`(?i)(^|\W)` + regexp.QuoteMeta(column) + `(\W|$)`)
	return err == nil && re.MatchString(expr)
}
