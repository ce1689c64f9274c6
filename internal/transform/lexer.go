package transform

import "strings"

type lexState int

const (
	stateCode lexState = iota
	stateBlockComment
	stateTextBlock
)

// lexer tracks just enough of Java/Kotlin lexical structure to tell whether
// a line starts in top-level code: block comments, triple-quoted text
// blocks, string and char literals, line comments and brace depth. String
// and char literals cannot span lines in either language, so they are only
// tracked within one line.
type lexer struct {
	state lexState
	depth int
}

// atTopLevel reports whether the next line starts in code at brace depth 0.
func (l *lexer) atTopLevel() bool {
	return l.state == stateCode && l.depth == 0
}

// feed advances the lexer over one line.
func (l *lexer) feed(line string) {
	i := 0
	for i < len(line) {
		switch l.state {
		case stateBlockComment:
			end := strings.Index(line[i:], "*/")
			if end < 0 {
				return
			}
			i += end + 2
			l.state = stateCode

		case stateTextBlock:
			end := indexUnescaped(line, i, `"""`)
			if end < 0 {
				return
			}
			i = end + 3
			l.state = stateCode

		default:
			c := line[i]
			switch {
			case c == '/' && i+1 < len(line) && line[i+1] == '/':
				return
			case c == '/' && i+1 < len(line) && line[i+1] == '*':
				l.state = stateBlockComment
				i += 2
			case strings.HasPrefix(line[i:], `"""`):
				l.state = stateTextBlock
				i += 3
			case c == '"' || c == '\'':
				end := indexUnescaped(line, i+1, string(c))
				if end < 0 {
					// Unterminated literal: nothing else on this line is code.
					return
				}
				i = end + 1
			case c == '{':
				l.depth++
				i++
			case c == '}':
				if l.depth > 0 {
					l.depth--
				}
				i++
			default:
				i++
			}
		}
	}
}

// indexUnescaped finds the first occurrence of delim at or after from that
// is not preceded by a backslash escape.
func indexUnescaped(line string, from int, delim string) int {
	for i := from; i < len(line); i++ {
		if line[i] == '\\' {
			i++
			continue
		}
		if strings.HasPrefix(line[i:], delim) {
			return i
		}
	}
	return -1
}
