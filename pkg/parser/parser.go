// Package parser implements a recursive-descent parser turning a
// Cypher token stream into a typed ast.Query.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ivgraph/ivgraph/pkg/ast"
	"github.com/ivgraph/ivgraph/pkg/ivgerr"
	"github.com/ivgraph/ivgraph/pkg/lexer"
)

// Parser holds the token stream and a cursor. It is re-entrant: build
// a fresh Parser per query, never shared across goroutines.
type Parser struct {
	toks []lexer.Token
	pos  int
}

// Parse lexes and parses src into an ast.Query.
func Parse(src string) (*ast.Query, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, ivgerr.Wrap(ivgerr.Parse, err, "tokenizing query")
	}
	p := &Parser{toks: toks}
	q, err := p.parseQuery()
	if err != nil {
		return nil, ivgerr.Wrap(ivgerr.Parse, err, "parsing query")
	}
	if !p.atEOF() {
		return nil, ivgerr.Wrap(ivgerr.Parse, p.errorf("unexpected trailing input %q", p.cur().Text), "parsing query")
	}
	return q, nil
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) atEOF() bool       { return p.cur().Kind == lexer.EOF }
func (p *Parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) errorf(format string, args ...any) error {
	return fmt.Errorf("at position %d: %s", p.cur().Pos, fmt.Sprintf(format, args...))
}

func (p *Parser) isKeyword(word string) bool {
	return p.cur().Kind == lexer.Keyword && p.cur().Text == word
}

func (p *Parser) expectKind(k lexer.Kind) (lexer.Token, error) {
	if p.cur().Kind != k {
		return lexer.Token{}, p.errorf("expected %s, got %s %q", k, p.cur().Kind, p.cur().Text)
	}
	return p.advance(), nil
}

func (p *Parser) expectKeyword(word string) error {
	if !p.isKeyword(word) {
		return p.errorf("expected keyword %s, got %q", word, p.cur().Text)
	}
	p.advance()
	return nil
}

func (p *Parser) parseQuery() (*ast.Query, error) {
	q := &ast.Query{}

	if p.isKeyword("CALL") {
		call, err := p.parseCall()
		if err != nil {
			return nil, err
		}
		q.Call = call
	}

	if p.isKeyword("MATCH") {
		match, err := p.parseMatch()
		if err != nil {
			return nil, err
		}
		q.Match = match
	} else if q.Call == nil {
		return nil, p.errorf("expected MATCH, got %q", p.cur().Text)
	}

	if p.isKeyword("WHERE") {
		where, err := p.parseWhere()
		if err != nil {
			return nil, err
		}
		q.Where = where
	}

	if !p.isKeyword("RETURN") {
		return nil, p.errorf("expected RETURN, got %q", p.cur().Text)
	}
	ret, err := p.parseReturn()
	if err != nil {
		return nil, err
	}
	q.Return = ret

	if p.isKeyword("ORDER") {
		ob, err := p.parseOrderBy()
		if err != nil {
			return nil, err
		}
		q.OrderBy = ob
	}

	if p.isKeyword("SKIP") {
		p.advance()
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		q.Skip = &n
	}

	if p.isKeyword("LIMIT") {
		p.advance()
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		q.Limit = &n
	}

	return q, nil
}

func (p *Parser) parseIntLiteral() (int64, error) {
	tok, err := p.expectKind(lexer.Int)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(tok.Text, 10, 64)
	if err != nil {
		return 0, p.errorf("invalid integer %q", tok.Text)
	}
	return n, nil
}

// --- CALL ... YIELD ---

func (p *Parser) parseCall() (*ast.Call, error) {
	p.advance() // CALL

	var nameParts []string
	tok, err := p.expectKind(lexer.Ident)
	if err != nil {
		return nil, err
	}
	nameParts = append(nameParts, tok.Text)
	for p.cur().Kind == lexer.Dot {
		p.advance()
		tok, err := p.expectKind(lexer.Ident)
		if err != nil {
			return nil, err
		}
		nameParts = append(nameParts, tok.Text)
	}

	if _, err := p.expectKind(lexer.LParen); err != nil {
		return nil, err
	}
	var args []ast.Expr
	options := map[string]ast.Expr{}
	for p.cur().Kind != lexer.RParen {
		if len(args) > 0 {
			if _, err := p.expectKind(lexer.Comma); err != nil {
				return nil, err
			}
		}
		if p.cur().Kind == lexer.LBrace {
			m, err := p.parseMapLiteral()
			if err != nil {
				return nil, err
			}
			options = m.MapLiteral
			args = append(args, m)
			continue
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
	}
	if _, err := p.expectKind(lexer.RParen); err != nil {
		return nil, err
	}

	if err := p.expectKeyword("YIELD"); err != nil {
		return nil, err
	}
	var yield []string
	for {
		tok, err := p.expectKind(lexer.Ident)
		if err != nil {
			return nil, err
		}
		yield = append(yield, tok.Text)
		if p.cur().Kind != lexer.Comma {
			break
		}
		p.advance()
	}

	return &ast.Call{
		Procedure: strings.Join(nameParts, "."),
		Args:      args,
		Yield:     yield,
		Options:   options,
	}, nil
}

func (p *Parser) parseMapLiteral() (ast.Expr, error) {
	if _, err := p.expectKind(lexer.LBrace); err != nil {
		return ast.Expr{}, err
	}
	m := map[string]ast.Expr{}
	for p.cur().Kind != lexer.RBrace {
		if len(m) > 0 {
			if _, err := p.expectKind(lexer.Comma); err != nil {
				return ast.Expr{}, err
			}
		}
		keyTok, err := p.expectKind(lexer.Ident)
		if err != nil {
			return ast.Expr{}, err
		}
		if _, err := p.expectKind(lexer.Colon); err != nil {
			return ast.Expr{}, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return ast.Expr{}, err
		}
		m[keyTok.Text] = val
	}
	if _, err := p.expectKind(lexer.RBrace); err != nil {
		return ast.Expr{}, err
	}
	return ast.Expr{Kind: ast.ExprMap, MapLiteral: m}, nil
}

// --- MATCH ---

func (p *Parser) parseMatch() (*ast.Match, error) {
	p.advance() // MATCH
	var patterns []ast.Pattern
	for {
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, pat)
		if p.cur().Kind != lexer.Comma {
			break
		}
		p.advance()
	}
	return &ast.Match{Patterns: patterns}, nil
}

func (p *Parser) parsePattern() (ast.Pattern, error) {
	var pat ast.Pattern
	node, err := p.parseNodePattern()
	if err != nil {
		return pat, err
	}
	pat.Nodes = append(pat.Nodes, node)

	for p.cur().Kind == lexer.Dash || p.cur().Kind == lexer.ArrowL {
		rel, err := p.parseRelPattern()
		if err != nil {
			return pat, err
		}
		pat.Rels = append(pat.Rels, rel)
		node, err := p.parseNodePattern()
		if err != nil {
			return pat, err
		}
		pat.Nodes = append(pat.Nodes, node)
	}
	return pat, nil
}

func (p *Parser) parseNodePattern() (ast.NodePattern, error) {
	var n ast.NodePattern
	if _, err := p.expectKind(lexer.LParen); err != nil {
		return n, err
	}
	if p.cur().Kind == lexer.Ident {
		n.Variable = p.advance().Text
	}
	for p.cur().Kind == lexer.Colon {
		p.advance()
		tok, err := p.expectKind(lexer.Ident)
		if err != nil {
			return n, err
		}
		n.Labels = append(n.Labels, tok.Text)
	}
	if p.cur().Kind == lexer.LBrace {
		m, err := p.parseMapLiteral()
		if err != nil {
			return n, err
		}
		n.Properties = m.MapLiteral
	}
	if _, err := p.expectKind(lexer.RParen); err != nil {
		return n, err
	}
	return n, nil
}

func (p *Parser) parseRelPattern() (ast.RelPattern, error) {
	var r ast.RelPattern
	r.Direction = ast.Either

	if p.cur().Kind == lexer.ArrowL {
		p.advance()
		r.Direction = ast.Incoming
	} else if _, err := p.expectKind(lexer.Dash); err != nil {
		return r, err
	}

	if p.cur().Kind == lexer.LBracket {
		p.advance()
		if p.cur().Kind == lexer.Ident {
			r.Variable = p.advance().Text
		}
		if p.cur().Kind == lexer.Colon {
			p.advance()
			tok, err := p.expectKind(lexer.Ident)
			if err != nil {
				return r, err
			}
			r.Types = append(r.Types, tok.Text)
			for p.cur().Kind == lexer.Pipe {
				p.advance()
				tok, err := p.expectKind(lexer.Ident)
				if err != nil {
					return r, err
				}
				r.Types = append(r.Types, tok.Text)
			}
		}
		if p.cur().Kind == lexer.Star {
			p.advance()
			r.Variable_ = true
			if p.cur().Kind == lexer.Int {
				n, err := p.parseIntLiteral()
				if err != nil {
					return r, err
				}
				r.MinHops = &n
				if p.cur().Kind == lexer.DotDot {
					p.advance()
					if p.cur().Kind == lexer.Int {
						m, err := p.parseIntLiteral()
						if err != nil {
							return r, err
						}
						r.MaxHops = &m
					}
				} else {
					r.MaxHops = &n
				}
			} else if p.cur().Kind == lexer.DotDot {
				p.advance()
				if p.cur().Kind == lexer.Int {
					m, err := p.parseIntLiteral()
					if err != nil {
						return r, err
					}
					r.MaxHops = &m
				}
			}
		}
		if p.cur().Kind == lexer.LBrace {
			m, err := p.parseMapLiteral()
			if err != nil {
				return r, err
			}
			r.Properties = m.MapLiteral
		}
		if _, err := p.expectKind(lexer.RBracket); err != nil {
			return r, err
		}
	}

	if _, err := p.expectKind(lexer.Dash); err != nil {
		return r, err
	}
	if p.cur().Kind == lexer.ArrowR {
		p.advance()
		if r.Direction == ast.Incoming {
			return r, p.errorf("relationship pattern cannot point both directions")
		}
		r.Direction = ast.Outgoing
	}
	return r, nil
}

// --- WHERE ---

func (p *Parser) parseWhere() (*ast.Where, error) {
	p.advance() // WHERE
	e, err := p.parseOrExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Where{Expr: e}, nil
}

func (p *Parser) parseOrExpr() (ast.Expr, error) {
	left, err := p.parseAndExpr()
	if err != nil {
		return left, err
	}
	for p.isKeyword("OR") {
		p.advance()
		right, err := p.parseAndExpr()
		if err != nil {
			return left, err
		}
		left = ast.Binary(left, "OR", right)
	}
	return left, nil
}

func (p *Parser) parseAndExpr() (ast.Expr, error) {
	left, err := p.parseNotExpr()
	if err != nil {
		return left, err
	}
	for p.isKeyword("AND") {
		p.advance()
		right, err := p.parseNotExpr()
		if err != nil {
			return left, err
		}
		left = ast.Binary(left, "AND", right)
	}
	return left, nil
}

func (p *Parser) parseNotExpr() (ast.Expr, error) {
	if p.isKeyword("NOT") {
		p.advance()
		inner, err := p.parseCmpExpr()
		if err != nil {
			return inner, err
		}
		return ast.Not(inner), nil
	}
	return p.parseCmpExpr()
}

var cmpOps = map[lexer.Kind]string{
	lexer.Eq: "=", lexer.Neq: "<>", lexer.Lt: "<",
	lexer.Lte: "<=", lexer.Gt: ">", lexer.Gte: ">=",
}

func (p *Parser) parseCmpExpr() (ast.Expr, error) {
	left, err := p.parseValue()
	if err != nil {
		return left, err
	}
	if op, ok := cmpOps[p.cur().Kind]; ok {
		p.advance()
		right, err := p.parseValue()
		if err != nil {
			return left, err
		}
		return ast.Binary(left, op, right), nil
	}
	if p.isKeyword("CONTAINS") {
		p.advance()
		right, err := p.parseValue()
		if err != nil {
			return left, err
		}
		return ast.Binary(left, "CONTAINS", right), nil
	}
	if p.isKeyword("STARTS") {
		p.advance()
		if err := p.expectKeyword("WITH"); err != nil {
			return left, err
		}
		right, err := p.parseValue()
		if err != nil {
			return left, err
		}
		return ast.Binary(left, "STARTS WITH", right), nil
	}
	if p.isKeyword("ENDS") {
		p.advance()
		if err := p.expectKeyword("WITH"); err != nil {
			return left, err
		}
		right, err := p.parseValue()
		if err != nil {
			return left, err
		}
		return ast.Binary(left, "ENDS WITH", right), nil
	}
	return left, nil
}

// parseValue parses a non-boolean leaf term: literal, parameter,
// variable, property access, or function call.
func (p *Parser) parseValue() (ast.Expr, error) {
	if p.cur().Kind == lexer.LParen {
		p.advance()
		e, err := p.parseOrExpr()
		if err != nil {
			return e, err
		}
		if _, err := p.expectKind(lexer.RParen); err != nil {
			return e, err
		}
		return e, nil
	}
	return p.parseExpr()
}

// parseExpr parses a literal/param/variable/property/function-call term.
func (p *Parser) parseExpr() (ast.Expr, error) {
	tok := p.cur()
	switch tok.Kind {
	case lexer.Param:
		p.advance()
		return ast.Param(tok.Text), nil
	case lexer.Int:
		p.advance()
		n, err := strconv.ParseInt(tok.Text, 10, 64)
		if err != nil {
			return ast.Expr{}, p.errorf("invalid integer %q", tok.Text)
		}
		return ast.Lit(n), nil
	case lexer.Float:
		p.advance()
		f, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return ast.Expr{}, p.errorf("invalid float %q", tok.Text)
		}
		return ast.Lit(f), nil
	case lexer.String:
		p.advance()
		return ast.Lit(tok.Text), nil
	case lexer.LBrace:
		return p.parseMapLiteral()
	case lexer.Keyword:
		switch tok.Text {
		case "TRUE":
			p.advance()
			return ast.Lit(true), nil
		case "FALSE":
			p.advance()
			return ast.Lit(false), nil
		case "NULL":
			p.advance()
			return ast.Lit(nil), nil
		}
		return ast.Expr{}, p.errorf("unexpected keyword %q in expression", tok.Text)
	case lexer.Ident:
		name := p.advance().Text
		if p.cur().Kind == lexer.LParen {
			p.advance()
			var args []ast.Expr
			for p.cur().Kind != lexer.RParen {
				if len(args) > 0 {
					if _, err := p.expectKind(lexer.Comma); err != nil {
						return ast.Expr{}, err
					}
				}
				arg, err := p.parseExpr()
				if err != nil {
					return ast.Expr{}, err
				}
				args = append(args, arg)
			}
			p.advance() // RParen
			return ast.FuncCall(name, args...), nil
		}
		if p.cur().Kind == lexer.Dot {
			p.advance()
			propTok, err := p.expectKind(lexer.Ident)
			if err != nil {
				return ast.Expr{}, err
			}
			return ast.Prop(name, propTok.Text), nil
		}
		return ast.Var(name), nil
	default:
		return ast.Expr{}, p.errorf("unexpected token %q in expression", tok.Text)
	}
}

// --- RETURN / ORDER BY ---

func (p *Parser) parseReturn() (*ast.Return, error) {
	p.advance() // RETURN
	var items []ast.ReturnItem
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		item := ast.ReturnItem{Expr: e}
		if p.isKeyword("AS") {
			p.advance()
			tok, err := p.expectKind(lexer.Ident)
			if err != nil {
				return nil, err
			}
			item.Alias = tok.Text
		}
		items = append(items, item)
		if p.cur().Kind != lexer.Comma {
			break
		}
		p.advance()
	}
	return &ast.Return{Items: items}, nil
}

func (p *Parser) parseOrderBy() (*ast.OrderBy, error) {
	p.advance() // ORDER
	if err := p.expectKeyword("BY"); err != nil {
		return nil, err
	}
	var items []ast.OrderItem
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		item := ast.OrderItem{Expr: e}
		if p.isKeyword("DESC") {
			p.advance()
			item.Descending = true
		} else if p.isKeyword("ASC") {
			p.advance()
		}
		items = append(items, item)
		if p.cur().Kind != lexer.Comma {
			break
		}
		p.advance()
	}
	return &ast.OrderBy{Items: items}, nil
}
