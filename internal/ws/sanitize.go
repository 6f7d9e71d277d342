package ws

// SanitizeFrame tolerates the noise some clients wrap around their JSON
// frames: /* block */ and // line comments outside quoted strings, and
// trailing commas before a closing } or ]. The result is standard JSON as
// far as those defects go; anything else still fails structural parsing.
func SanitizeFrame(raw []byte) []byte {
	// First pass: drop comments.
	stripped := make([]byte, 0, len(raw))
	inString := false
	escaped := false
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			stripped = append(stripped, ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch {
		case ch == '"':
			inString = true
			stripped = append(stripped, ch)
		case ch == '/' && i+1 < len(raw) && raw[i+1] == '/':
			for i < len(raw) && raw[i] != '\n' {
				i++
			}
			if i < len(raw) {
				stripped = append(stripped, '\n')
			}
		case ch == '/' && i+1 < len(raw) && raw[i+1] == '*':
			i += 2
			for i+1 < len(raw) && !(raw[i] == '*' && raw[i+1] == '/') {
				i++
			}
			i++ // past the closing slash
		default:
			stripped = append(stripped, ch)
		}
	}

	// Second pass: drop commas whose next significant byte closes a scope.
	out := make([]byte, 0, len(stripped))
	inString = false
	escaped = false
	for i := 0; i < len(stripped); i++ {
		ch := stripped[i]
		if inString {
			out = append(out, ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
			out = append(out, ch)
			continue
		}
		if ch == ',' {
			j := i + 1
			for j < len(stripped) && isJSONSpace(stripped[j]) {
				j++
			}
			if j < len(stripped) && (stripped[j] == '}' || stripped[j] == ']') {
				continue // trailing comma, skip it
			}
		}
		out = append(out, ch)
	}

	return out
}

func isJSONSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}
