package variable

import "strings"

// reference is the parsed body of a ${...} placeholder:
//
//	${name}  ${provider::name}  ${name:default}  ${provider::name:default}
type reference struct {
	Provider   string
	Name       string
	Default    string
	HasDefault bool
}

type token struct {
	text string
	ref  *reference
}

// parse splits s into literal text and placeholder references. Escaped
// placeholders ($${...}) and unterminated ones are kept as literal text.
func parse(s string) []token {
	var (
		toks []token
		lit  strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			toks = append(toks, token{text: lit.String()})
			lit.Reset()
		}
	}
	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], "$${"):
			end := strings.IndexByte(s[i+3:], '}')
			if end < 0 {
				lit.WriteString(s[i:])
				i = len(s)
				continue
			}
			lit.WriteString(s[i : i+3+end+1])
			i += 3 + end + 1
		case strings.HasPrefix(s[i:], "${"):
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				lit.WriteString(s[i:])
				i = len(s)
				continue
			}
			flush()
			body := s[i+2 : i+2+end]
			toks = append(toks, token{text: s[i : i+2+end+1], ref: parseReference(body)})
			i += 2 + end + 1
		default:
			lit.WriteByte(s[i])
			i++
		}
	}
	flush()
	return toks
}

func parseReference(body string) *reference {
	ref := &reference{}
	if provider, rest, ok := strings.Cut(body, "::"); ok {
		ref.Provider = strings.TrimSpace(provider)
		body = rest
	}
	if name, def, ok := strings.Cut(body, ":"); ok {
		ref.Name = strings.TrimSpace(name)
		ref.Default = def
		ref.HasDefault = true
	} else {
		ref.Name = strings.TrimSpace(body)
	}
	return ref
}

// HasPlaceholders reports whether s contains an unescaped placeholder.
func HasPlaceholders(s string) bool {
	for _, t := range parse(s) {
		if t.ref != nil {
			return true
		}
	}
	return false
}

// Deescape turns escaped placeholders ($${name}) into their literal form
// (${name}). Maps and lists are processed recursively into new values.
func Deescape(v any) any {
	switch t := v.(type) {
	case string:
		return strings.ReplaceAll(t, "$${", "${")
	case map[string]any:
		return DeescapeMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Deescape(e)
		}
		return out
	default:
		return v
	}
}

// DeescapeMap applies Deescape to every value of m.
func DeescapeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = Deescape(v)
	}
	return out
}
