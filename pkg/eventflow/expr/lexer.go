package expr

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokOp
	tokLParen
	tokRParen
	tokNot
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := rune(src[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == '\'' || c == '"':
			end := strings.IndexRune(src[i+1:], c)
			if end < 0 {
				return nil, fmt.Errorf("unterminated string at %d", i)
			}
			toks = append(toks, token{kind: tokString, text: src[i+1 : i+1+end], pos: i})
			i += end + 2
		case strings.ContainsRune("=!<>", c):
			if i+1 < len(src) && src[i+1] == '=' {
				toks = append(toks, token{kind: tokOp, text: src[i : i+2], pos: i})
				i += 2
				continue
			}
			switch c {
			case '<', '>':
				toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
			case '!':
				toks = append(toks, token{kind: tokNot, text: "!", pos: i})
			default:
				return nil, fmt.Errorf("unexpected %q at %d", c, i)
			}
			i++
		case c == '-' || unicode.IsDigit(c):
			start := i
			i++
			for i < len(src) && (unicode.IsDigit(rune(src[i])) || src[i] == '.') {
				i++
			}
			if src[start:i] == "-" {
				return nil, fmt.Errorf("unexpected '-' at %d", start)
			}
			toks = append(toks, token{kind: tokNumber, text: src[start:i], pos: start})
		case isIdentRune(c):
			start := i
			for i < len(src) && (isIdentRune(rune(src[i])) || unicode.IsDigit(rune(src[i])) || src[i] == '.') {
				i++
			}
			word := src[start:i]
			if word == "not" {
				toks = append(toks, token{kind: tokNot, text: word, pos: start})
			} else {
				toks = append(toks, token{kind: tokIdent, text: word, pos: start})
			}
		default:
			return nil, fmt.Errorf("unexpected %q at %d", c, i)
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(src)}), nil
}

func isIdentRune(c rune) bool {
	return c == '_' || unicode.IsLetter(c)
}
