package sql

// lexState is the lexical context of a byte offset within SQL text.
type lexState int

const (
	lexCode lexState = iota
	lexSingleQuote
	lexDoubleQuote
	lexBacktick
	lexBracket
	lexLineComment
	lexBlockComment
)

// lexer tracks string literals, quoted identifiers and comments while walking
// SQL text byte by byte. Backslash is not an escape character; a doubled quote
// ('') closes and immediately reopens the literal, which keeps it inside.
// All delimiters are ASCII, so walking bytes is safe for UTF-8 input.
type lexer struct {
	state lexState
}

// advance consumes the token at s[i] and returns the offset just past it.
func (l *lexer) advance(s string, i int) int {
	c := s[i]
	next := byte(0)
	if i+1 < len(s) {
		next = s[i+1]
	}

	switch l.state {
	case lexCode:
		switch {
		case c == '\'':
			l.state = lexSingleQuote
		case c == '"':
			l.state = lexDoubleQuote
		case c == '`':
			l.state = lexBacktick
		case c == '[':
			l.state = lexBracket
		case c == '-' && next == '-':
			l.state = lexLineComment
			return i + 2
		case c == '/' && next == '*':
			l.state = lexBlockComment
			return i + 2
		}
	case lexSingleQuote:
		if c == '\'' {
			l.state = lexCode
		}
	case lexDoubleQuote:
		if c == '"' {
			l.state = lexCode
		}
	case lexBacktick:
		if c == '`' {
			l.state = lexCode
		}
	case lexBracket:
		if c == ']' {
			l.state = lexCode
		}
	case lexLineComment:
		if c == '\n' {
			l.state = lexCode
		}
	case lexBlockComment:
		if c == '*' && next == '/' {
			l.state = lexCode
			return i + 2
		}
	}
	return i + 1
}

func (l *lexer) inCode() bool {
	return l.state == lexCode
}

// unterminated reports whether input ended inside a literal, quoted
// identifier or block comment. A line comment may end at end of input.
func (l *lexer) unterminated() bool {
	return l.state != lexCode && l.state != lexLineComment
}

// maskNonCode returns s with every literal, quoted identifier and comment
// blanked to spaces (newlines kept), so keyword and delimiter searches only
// see executable SQL. ok is false if s ends inside a quote or block comment.
func maskNonCode(s string) (masked string, ok bool) {
	out := []byte(s)
	var l lexer
	for i := 0; i < len(s); {
		before := l.state
		j := l.advance(s, i)
		if before != lexCode || l.state != lexCode {
			for k := i; k < j; k++ {
				if out[k] != '\n' {
					out[k] = ' '
				}
			}
		}
		i = j
	}
	return string(out), !l.unterminated()
}
