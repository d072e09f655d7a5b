package parser

import "fmt"

// TokenType represents the type of a Datalog token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenVariable
	TokenString
	TokenLeftParen
	TokenRightParen
	TokenComma
	TokenPeriod
	TokenImplies
	TokenEquals
	TokenNotEquals
	TokenNot
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenIdent:      "Ident",
	TokenVariable:   "Variable",
	TokenString:     "String",
	TokenLeftParen:  "LeftParen",
	TokenRightParen: "RightParen",
	TokenComma:      "Comma",
	TokenPeriod:     "Period",
	TokenImplies:    "Implies",
	TokenEquals:     "Equals",
	TokenNotEquals:  "NotEquals",
	TokenNot:        "Not",
}

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value string
	Line  int
	Col   int
}

// String returns a string representation of the token
func (t Token) String() string {
	name, ok := tokenNames[t.Type]
	if !ok {
		name = "Unknown"
	}
	switch t.Type {
	case TokenString:
		return fmt.Sprintf("%s[%d:%d]:%q", name, t.Line, t.Col, t.Value)
	case TokenIdent, TokenVariable:
		return fmt.Sprintf("%s[%d:%d]:%s", name, t.Line, t.Col, t.Value)
	default:
		return fmt.Sprintf("%s[%d:%d]", name, t.Line, t.Col)
	}
}

// describe renders the token the way it appears in source, for errors
func (t Token) describe() string {
	switch t.Type {
	case TokenEOF:
		return "end of input"
	case TokenIdent, TokenVariable:
		return fmt.Sprintf("%q", t.Value)
	case TokenString:
		return fmt.Sprintf("string %q", t.Value)
	case TokenLeftParen:
		return `"("`
	case TokenRightParen:
		return `")"`
	case TokenComma:
		return `","`
	case TokenPeriod:
		return `"."`
	case TokenImplies:
		return `":-"`
	case TokenEquals:
		return `"="`
	case TokenNotEquals:
		return `"!="`
	case TokenNot:
		return `"not"`
	}
	return t.String()
}
