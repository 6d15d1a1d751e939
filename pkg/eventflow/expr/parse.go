package expr

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmpty indicates an expression with no content.
var ErrEmpty = errors.New("empty expression")

// BinaryOp compares two operand values.
type BinaryOp func(left, right any) bool

// Option configures compilation.
type Option func(*parser)

// WithOperator registers a custom infix operator word.
func WithOperator(name string, fn BinaryOp) Option {
	return func(p *parser) {
		p.custom[name] = fn
	}
}

// Expression is a compiled filter expression. It is immutable and safe for
// concurrent use.
type Expression struct {
	src  string
	root node
}

// Compile parses src.
func Compile(src string, opts ...Option) (*Expression, error) {
	if strings.TrimSpace(src) == "" {
		return nil, ErrEmpty
	}
	toks, err := lex(src)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}

	p := &parser{toks: toks, custom: make(map[string]BinaryOp)}
	for _, opt := range opts {
		opt(p)
	}

	root, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("compile %q: unexpected %q at %d", src, t.text, t.pos)
	}
	return &Expression{src: src, root: root}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string, opts ...Option) *Expression {
	e, err := Compile(src, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the source text.
func (e *Expression) String() string {
	return e.src
}

// Match evaluates the expression against vars.
func (e *Expression) Match(vars map[string]any) bool {
	return IsTruthy(e.root.eval(vars))
}

type parser struct {
	toks   []token
	pos    int
	custom map[string]BinaryOp
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isWord(word string) bool {
	t := p.peek()
	return t.kind == tokIdent && t.text == word
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isWord("or") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isWord("and") {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.peek().kind == tokNot {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{inner}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	t := p.peek()
	var op BinaryOp
	switch {
	case t.kind == tokOp:
		op = builtinOps[t.text]
	case t.kind == tokIdent && t.text == "contains":
		op = builtinOps["contains"]
	case t.kind == tokIdent:
		op = p.custom[t.text]
	}
	if op == nil {
		return left, nil
	}
	p.next()

	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return compareNode{op: op, left: left, right: right}, nil
}

func (p *parser) parseOperand() (node, error) {
	t := p.next()
	switch t.kind {
	case tokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, fmt.Errorf("expected ')' at %d", closing.pos)
		}
		return inner, nil
	case tokString:
		return literalNode{t.text}, nil
	case tokNumber:
		v, err := parseNumber(t.text)
		if err != nil {
			return nil, fmt.Errorf("bad number %q at %d", t.text, t.pos)
		}
		return literalNode{v}, nil
	case tokIdent:
		switch strings.ToLower(t.text) {
		case "true":
			return literalNode{true}, nil
		case "false":
			return literalNode{false}, nil
		case "null", "nil":
			return literalNode{nil}, nil
		case "and", "or", "contains":
			return nil, fmt.Errorf("unexpected %q at %d", t.text, t.pos)
		}
		return identNode{path: strings.Split(t.text, ".")}, nil
	case tokEOF:
		return nil, errors.New("unexpected end of expression")
	default:
		return nil, fmt.Errorf("unexpected %q at %d", t.text, t.pos)
	}
}

func parseNumber(s string) (any, error) {
	var num json.Number
	if err := json.Unmarshal([]byte(s), &num); err != nil {
		return nil, err
	}
	if i, err := num.Int64(); err == nil {
		return i, nil
	}
	return num.Float64()
}
