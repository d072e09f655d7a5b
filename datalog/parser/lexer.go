package parser

import (
	"strings"
	"unicode"
)

// Lexer tokenizes Datalog source
type Lexer struct {
	input  string
	pos    int
	line   int
	col    int
	tokens []Token
}

// NewLexer creates a new lexer for the given input
func NewLexer(input string) *Lexer {
	return &Lexer{
		input: input,
		line:  1,
		col:   1,
	}
}

// Lex tokenizes the entire input. The returned slice always ends with an
// EOF token.
func (l *Lexer) Lex() ([]Token, error) {
	for {
		l.skipWhitespaceAndComments()
		if l.pos >= len(l.input) {
			break
		}

		startLine, startCol := l.line, l.col
		emit := func(typ TokenType, value string) {
			l.tokens = append(l.tokens, Token{Type: typ, Value: value, Line: startLine, Col: startCol})
		}

		ch := l.peek()
		switch {
		case ch == '"':
			str, err := l.readString()
			if err != nil {
				return nil, err
			}
			emit(TokenString, str)
		case ch == '(':
			l.advance()
			emit(TokenLeftParen, "")
		case ch == ')':
			l.advance()
			emit(TokenRightParen, "")
		case ch == ',':
			l.advance()
			emit(TokenComma, "")
		case ch == '.':
			l.advance()
			emit(TokenPeriod, "")
		case ch == '=':
			l.advance()
			emit(TokenEquals, "")
		case ch == ':':
			l.advance()
			if l.peek() != '-' {
				return nil, l.errorf(startLine, startCol, `expected ":-"`)
			}
			l.advance()
			emit(TokenImplies, "")
		case ch == '!':
			l.advance()
			if l.peek() != '=' {
				return nil, l.errorf(startLine, startCol, `expected "!="`)
			}
			l.advance()
			emit(TokenNotEquals, "")
		case isVariableStart(ch):
			emit(TokenVariable, l.readWord())
		case isIdentStart(ch):
			word := l.readWord()
			if word == "not" {
				emit(TokenNot, word)
			} else {
				emit(TokenIdent, word)
			}
		default:
			return nil, l.errorf(startLine, startCol, "unexpected character %q", ch)
		}
	}

	l.tokens = append(l.tokens, Token{Type: TokenEOF, Line: l.line, Col: l.col})
	return l.tokens, nil
}

func (l *Lexer) errorf(line, col int, format string, args ...interface{}) *Error {
	return newError(line, col, format, args...)
}

// peek returns the current character without advancing
func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

// advance moves to the next character
func (l *Lexer) advance() {
	if l.pos < len(l.input) {
		if l.input[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.pos++
	}
}

// skipWhitespaceAndComments skips whitespace and % line comments
func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.input) {
		ch := l.peek()
		if unicode.IsSpace(rune(ch)) {
			l.advance()
		} else if ch == '%' {
			for l.pos < len(l.input) && l.peek() != '\n' {
				l.advance()
			}
		} else {
			break
		}
	}
}

// readString reads a double-quoted constant
func (l *Lexer) readString() (string, error) {
	line, col := l.line, l.col
	var result strings.Builder
	l.advance() // skip opening quote

	for l.pos < len(l.input) {
		ch := l.peek()
		if ch == '"' {
			l.advance()
			return result.String(), nil
		} else if ch == '\\' {
			l.advance()
			if l.pos >= len(l.input) {
				break
			}
			escaped := l.peek()
			switch escaped {
			case 't':
				result.WriteByte('\t')
			case 'n':
				result.WriteByte('\n')
			case '\\':
				result.WriteByte('\\')
			case '"':
				result.WriteByte('"')
			default:
				return "", l.errorf(l.line, l.col, "invalid escape sequence '\\%c'", escaped)
			}
			l.advance()
		} else {
			result.WriteByte(ch)
			l.advance()
		}
	}

	return "", l.errorf(line, col, "unterminated string")
}

// readWord reads an identifier or variable name
func (l *Lexer) readWord() string {
	start := l.pos
	l.advance()
	for l.pos < len(l.input) && isWordChar(l.peek()) {
		l.advance()
	}
	return l.input[start:l.pos]
}

func isVariableStart(ch byte) bool {
	return (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') || ch == '$'
}

func isWordChar(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_'
}
