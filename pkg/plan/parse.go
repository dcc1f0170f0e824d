package plan

import (
	"strings"
	"unicode"

	"arrow-spatial/pkg/errkind"
)

// ParseExpr parses the select-list syntax used by the command line and
// the REST API:
//
//	expr    = primary [ "IS" "NOT" "NULL" ] [ "AS" ident ]
//	primary = ident [ "(" [ expr { "," expr } ] ")" ] | 'text'
//
// Identifiers may be qualified ("t.geometry"). Calls are returned as
// scalar functions; the session decides which of them are aggregates.
func ParseExpr(s string) (Expr, error) {
	p := &parser{src: s}
	p.next()
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf("unexpected %q", p.tok.text)
	}
	return e, nil
}

// ParseExprs parses each element of list.
func ParseExprs(list []string) ([]Expr, error) {
	out := make([]Expr, 0, len(list))
	for _, s := range list {
		e, err := ParseExpr(s)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokString
	tokLParen
	tokRParen
	tokComma
	tokInvalid
)

type token struct {
	kind tokKind
	text string
	pos  int
}

type parser struct {
	src string
	pos int
	tok token
}

func (p *parser) errorf(format string, args ...any) error {
	args = append([]any{p.src, p.tok.pos}, args...)
	return errkind.New(errkind.Plan, "failed to parse %q at %d: "+format, args...)
}

func isIdentRune(r rune, first bool) bool {
	if r == '_' || unicode.IsLetter(r) {
		return true
	}
	return !first && (unicode.IsDigit(r) || r == '.')
}

func (p *parser) next() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
	start := p.pos
	if p.pos >= len(p.src) {
		p.tok = token{kind: tokEOF, pos: start}
		return
	}

	switch c := p.src[p.pos]; {
	case c == '(':
		p.pos++
		p.tok = token{kind: tokLParen, text: "(", pos: start}
	case c == ')':
		p.pos++
		p.tok = token{kind: tokRParen, text: ")", pos: start}
	case c == ',':
		p.pos++
		p.tok = token{kind: tokComma, text: ",", pos: start}
	case c == '\'':
		var sb strings.Builder
		p.pos++
		for {
			if p.pos >= len(p.src) {
				p.tok = token{kind: tokInvalid, text: p.src[start:], pos: start}
				return
			}
			if p.src[p.pos] == '\'' {
				if p.pos+1 < len(p.src) && p.src[p.pos+1] == '\'' {
					sb.WriteByte('\'')
					p.pos += 2
					continue
				}
				p.pos++
				break
			}
			sb.WriteByte(p.src[p.pos])
			p.pos++
		}
		p.tok = token{kind: tokString, text: sb.String(), pos: start}
	case isIdentRune(rune(c), true):
		for p.pos < len(p.src) && isIdentRune(rune(p.src[p.pos]), false) {
			p.pos++
		}
		p.tok = token{kind: tokIdent, text: p.src[start:p.pos], pos: start}
	default:
		p.pos++
		p.tok = token{kind: tokInvalid, text: string(c), pos: start}
	}
}

func (p *parser) keyword(kw string) bool {
	return p.tok.kind == tokIdent && strings.EqualFold(p.tok.text, kw)
}

func (p *parser) expect(kw string) error {
	if !p.keyword(kw) {
		return p.errorf("expected %s", kw)
	}
	p.next()
	return nil
}

func (p *parser) expr() (Expr, error) {
	e, err := p.primary()
	if err != nil {
		return nil, err
	}

	if p.keyword("IS") {
		p.next()
		if err := p.expect("NOT"); err != nil {
			return nil, err
		}
		if err := p.expect("NULL"); err != nil {
			return nil, err
		}
		e = &IsNotNull{Expr: e}
	}

	if p.keyword("AS") {
		p.next()
		if p.tok.kind != tokIdent {
			return nil, p.errorf("expected alias")
		}
		e = &Alias{Expr: e, Name: p.tok.text}
		p.next()
	}
	return e, nil
}

func (p *parser) primary() (Expr, error) {
	switch p.tok.kind {
	case tokString:
		v := p.tok.text
		p.next()
		return Lit(v), nil

	case tokIdent:
		name := p.tok.text
		p.next()
		if p.tok.kind != tokLParen {
			return Col(name), nil
		}
		p.next()

		var args []Expr
		for p.tok.kind != tokRParen {
			if len(args) > 0 {
				if p.tok.kind != tokComma {
					return nil, p.errorf("expected , or )")
				}
				p.next()
			}
			arg, err := p.expr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		p.next()
		return Call(name, args...), nil
	}

	if p.tok.kind == tokEOF {
		return nil, p.errorf("unexpected end of expression")
	}
	return nil, p.errorf("unexpected %q", p.tok.text)
}
