package torchir

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// ErrParse is the cause of all errors returned by Parse.
var ErrParse = errors.New("parse error")

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokValue  // %name, %3, %3#1
	tokSymbol // @name or @"quoted name"
	tokLabel  // ^bb0
	tokString
	tokInt
	tokFloat
	tokArrow // ->
	tokPunct // single character: ( ) { } [ ] < > , : = * ? !
)

type token struct {
	kind tokenKind
	text string

	line, col int
}

// lexer splits the textual IR into tokens. Comments start with "//" and run to the end of the line.
type lexer struct {
	src       string
	pos       int
	line, col int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '.' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (l *lexer) peekRune() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return r
}

func (l *lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *lexer) errorf(line, col int, format string, args ...any) error {
	return errors.Wrapf(ErrParse, "%d:%d: %s", line, col, fmt.Sprintf(format, args...))
}

func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		r := l.peekRune()
		switch {
		case unicode.IsSpace(r):
			l.advance()
		case strings.HasPrefix(l.src[l.pos:], "//"):
			for l.pos < len(l.src) && l.peekRune() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *lexer) takeWhile(pred func(rune) bool) string {
	start := l.pos
	for l.pos < len(l.src) && pred(l.peekRune()) {
		l.advance()
	}
	return l.src[start:l.pos]
}

// next returns the next token.
func (l *lexer) next() (token, error) {
	l.skipSpaceAndComments()
	tok := token{line: l.line, col: l.col}
	if l.pos >= len(l.src) {
		tok.kind = tokEOF
		return tok, nil
	}
	r := l.peekRune()
	switch {
	case r == '%':
		l.advance()
		tok.kind = tokValue
		tok.text = l.takeWhile(func(r rune) bool { return isIdentRune(r) && r != '.' })
		if l.peekRune() == '#' {
			l.advance()
			tok.text += "#" + l.takeWhile(unicode.IsDigit)
		}
		if tok.text == "" {
			return tok, l.errorf(tok.line, tok.col, "empty value name")
		}
	case r == '@':
		l.advance()
		tok.kind = tokSymbol
		if l.peekRune() == '"' {
			s, err := l.quoted(tok)
			if err != nil {
				return tok, err
			}
			tok.text = s
		} else {
			tok.text = l.takeWhile(isIdentRune)
		}
		if tok.text == "" {
			return tok, l.errorf(tok.line, tok.col, "empty symbol name")
		}
	case r == '^':
		l.advance()
		tok.kind = tokLabel
		tok.text = l.takeWhile(isIdentRune)
	case r == '"':
		s, err := l.quoted(tok)
		if err != nil {
			return tok, err
		}
		tok.kind = tokString
		tok.text = s
	case r == '-' && strings.HasPrefix(l.src[l.pos:], "->"):
		l.advance()
		l.advance()
		tok.kind = tokArrow
		tok.text = "->"
	case r == '-' || unicode.IsDigit(r):
		return l.number(tok)
	case isIdentRune(r):
		tok.kind = tokIdent
		tok.text = l.takeWhile(isIdentRune)
	case strings.ContainsRune("(){}[]<>,:=*?!", r):
		l.advance()
		tok.kind = tokPunct
		tok.text = string(r)
	default:
		return tok, l.errorf(tok.line, tok.col, "unexpected character %q", r)
	}
	return tok, nil
}

func (l *lexer) quoted(tok token) (string, error) {
	start := l.pos
	l.advance() // Opening quote.
	for {
		if l.pos >= len(l.src) {
			return "", l.errorf(tok.line, tok.col, "unterminated string")
		}
		r := l.advance()
		if r == '\\' && l.pos < len(l.src) {
			l.advance()
			continue
		}
		if r == '"' {
			break
		}
	}
	s, err := strconv.Unquote(l.src[start:l.pos])
	if err != nil {
		return "", l.errorf(tok.line, tok.col, "invalid string literal %s", l.src[start:l.pos])
	}
	return s, nil
}

func (l *lexer) number(tok token) (token, error) {
	start := l.pos
	if l.peekRune() == '-' {
		l.advance()
	}
	if strings.HasPrefix(l.src[l.pos:], "inf") {
		for range 3 {
			l.advance()
		}
		tok.kind = tokFloat
		tok.text = l.src[start:l.pos]
		return tok, nil
	}
	tok.kind = tokInt
	l.takeWhile(unicode.IsDigit)
	if l.peekRune() == '.' {
		tok.kind = tokFloat
		l.advance()
		l.takeWhile(unicode.IsDigit)
	}
	if r := l.peekRune(); r == 'e' || r == 'E' {
		tok.kind = tokFloat
		l.advance()
		if r := l.peekRune(); r == '+' || r == '-' {
			l.advance()
		}
		l.takeWhile(unicode.IsDigit)
	}
	tok.text = l.src[start:l.pos]
	if tok.text == "-" {
		return tok, l.errorf(tok.line, tok.col, "invalid number")
	}
	return tok, nil
}
