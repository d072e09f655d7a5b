// Package parser reads Datalog source text into clauses.
//
// A program is a sequence of clauses, each terminated by a period:
//
//	edge(a, b).
//	path(X, Y) :- edge(X, Y).
//	path(X, Z) :- edge(X, Y), path(Y, Z).
//	lonely(X) :- node(X), not edge(X, _), X != root.
//
// Lowercase words, numbers and double-quoted strings are constants. Words
// starting with an uppercase letter or underscore are variables, and each
// bare _ is a distinct anonymous variable. % starts a line comment.
package parser

import (
	"fmt"

	"github.com/wbrown/saturn/datalog"
)

// Error is a syntax error with its source position
type Error struct {
	Line int
	Col  int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
}

func newError(line, col int, format string, args ...interface{}) *Error {
	return &Error{Line: line, Col: col, Msg: fmt.Sprintf(format, args...)}
}

// Parser turns a token stream into clauses, interning every term in table
type Parser struct {
	table   *datalog.TermTable
	tokens  []Token
	current int
}

// Parse parses a whole program
func Parse(table *datalog.TermTable, src string) ([]*datalog.Clause, error) {
	p, err := newParser(table, src)
	if err != nil {
		return nil, err
	}
	var clauses []*datalog.Clause
	for p.peek().Type != TokenEOF {
		c, err := p.parseClause()
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
	}
	return clauses, nil
}

// ParseAtom parses a single atom, such as a query. A trailing period is
// optional.
func ParseAtom(table *datalog.TermTable, src string) (*datalog.Atom, error) {
	p, err := newParser(table, src)
	if err != nil {
		return nil, err
	}
	atom, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	if p.peek().Type == TokenPeriod {
		p.next()
	}
	if tok := p.peek(); tok.Type != TokenEOF {
		return nil, p.unexpected(tok, "end of input")
	}
	return atom, nil
}

func newParser(table *datalog.TermTable, src string) (*Parser, error) {
	tokens, err := NewLexer(src).Lex()
	if err != nil {
		return nil, err
	}
	return &Parser{table: table, tokens: tokens}, nil
}

func (p *Parser) peek() Token {
	return p.tokens[p.current]
}

func (p *Parser) next() Token {
	tok := p.tokens[p.current]
	if tok.Type != TokenEOF {
		p.current++
	}
	return tok
}

func (p *Parser) expect(typ TokenType, what string) (Token, error) {
	tok := p.next()
	if tok.Type != typ {
		return tok, p.unexpected(tok, what)
	}
	return tok, nil
}

func (p *Parser) unexpected(tok Token, want string) *Error {
	return newError(tok.Line, tok.Col, "expected %s, found %s", want, tok.describe())
}

// parseClause parses "head." or "head :- premise, ..., premise."
func (p *Parser) parseClause() (*datalog.Clause, error) {
	head, err := p.parseAtom()
	if err != nil {
		return nil, err
	}

	tok := p.next()
	switch tok.Type {
	case TokenPeriod:
		return datalog.NewClause(head), nil
	case TokenImplies:
	default:
		return nil, p.unexpected(tok, `"." or ":-"`)
	}

	var body []datalog.Premise
	for {
		prem, err := p.parsePremise()
		if err != nil {
			return nil, err
		}
		body = append(body, prem)

		tok := p.next()
		if tok.Type == TokenPeriod {
			break
		}
		if tok.Type != TokenComma {
			return nil, p.unexpected(tok, `"," or "."`)
		}
	}
	return datalog.NewClause(head, body...), nil
}

// parsePremise parses an atom, a negated atom, T = T or T != T
func (p *Parser) parsePremise() (datalog.Premise, error) {
	tok := p.peek()
	switch tok.Type {
	case TokenNot:
		p.next()
		atom, err := p.parseAtom()
		if err != nil {
			return datalog.Premise{}, err
		}
		return datalog.Negated(atom), nil

	case TokenIdent:
		// An identifier is an atom unless it is a constant on the left of
		// a comparison
		if after := p.tokens[p.current+1].Type; after != TokenEquals && after != TokenNotEquals {
			atom, err := p.parseAtom()
			if err != nil {
				return datalog.Premise{}, err
			}
			return datalog.Positive(atom), nil
		}
	}

	left, err := p.parseTerm()
	if err != nil {
		return datalog.Premise{}, err
	}
	op := p.next()
	if op.Type != TokenEquals && op.Type != TokenNotEquals {
		return datalog.Premise{}, p.unexpected(op, `"=" or "!="`)
	}
	right, err := p.parseTerm()
	if err != nil {
		return datalog.Premise{}, err
	}
	if op.Type == TokenEquals {
		return datalog.Unifier(left, right), nil
	}
	return datalog.Disunifier(left, right), nil
}

// parseAtom parses "name" or "name(term, ..., term)"
func (p *Parser) parseAtom() (*datalog.Atom, error) {
	name, err := p.expect(TokenIdent, "predicate name")
	if err != nil {
		return nil, err
	}

	var args []datalog.Term
	if p.peek().Type == TokenLeftParen {
		p.next()
		for {
			t, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			args = append(args, t)

			tok := p.next()
			if tok.Type == TokenRightParen {
				break
			}
			if tok.Type != TokenComma {
				return nil, p.unexpected(tok, `"," or ")"`)
			}
		}
	}
	return datalog.NewAtom(p.table.Predicate(name.Value, len(args)), args...), nil
}

func (p *Parser) parseTerm() (datalog.Term, error) {
	tok := p.next()
	switch tok.Type {
	case TokenVariable:
		if tok.Value == "_" {
			return p.table.FreshVariable(), nil
		}
		return p.table.Variable(tok.Value), nil
	case TokenIdent, TokenString:
		return p.table.Constant(tok.Value), nil
	}
	return nil, p.unexpected(tok, "term")
}
