// Copyright 2025 Philipp Hossner
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package script

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

type tokenType int

const (
	tokenEOF    tokenType = iota
	tokenIdent            // foo, $out, var, function
	tokenNumber           // 12, 1.5e3, 0xff
	tokenString           // 'a', "b" (already unescaped)
	tokenPunct            // operators and punctuation
)

func (t tokenType) String() string {
	switch t {
	case tokenEOF:
		return "end of input"
	case tokenIdent:
		return "identifier"
	case tokenNumber:
		return "number"
	case tokenString:
		return "string"
	case tokenPunct:
		return "punctuator"
	default:
		return "unknown"
	}
}

type token struct {
	typ tokenType
	val string
	num float64
	pos int

	// newlineBefore is set when at least one line terminator separates this
	// token from the previous one. The parser needs it for semicolon insertion.
	newlineBefore bool
}

func (t token) String() string {
	switch t.typ {
	case tokenEOF:
		return "end of input"
	case tokenString:
		return strconv.Quote(t.val)
	default:
		return fmt.Sprintf("%q", t.val)
	}
}

// Punctuators ordered longest first so the scanner is greedy.
var punctuators = []string{
	"===", "!==",
	"==", "!=", "<=", ">=", "&&", "||", "++", "--", "+=", "-=", "*=", "/=", "%=",
	"{", "}", "(", ")", "[", "]", ";", ",", "<", ">", "+", "-", "*", "/", "%",
	"!", "=", "?", ":", ".",
}

type lexer struct {
	src    string
	pos    int
	tokens []token
	nl     bool
}

// lex scans the whole source up front. The grammar is small enough that a
// token slice is simpler to backtrack over than a channel.
func lex(src string) ([]token, error) {
	l := &lexer{src: src}
	for {
		if err := l.skipSpace(); err != nil {
			return nil, err
		}
		if l.pos >= len(l.src) {
			l.emit(token{typ: tokenEOF, pos: l.pos})
			return l.tokens, nil
		}
		if err := l.scan(); err != nil {
			return nil, err
		}
	}
}

func (l *lexer) emit(t token) {
	t.newlineBefore = l.nl
	l.nl = false
	l.tokens = append(l.tokens, t)
}

func (l *lexer) errorf(pos int, format string, args ...interface{}) error {
	return &ParseError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}

func (l *lexer) skipSpace() error {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n' || c == '\r':
			l.nl = true
			l.pos++
		case c == ' ' || c == '\t' || c == '\f' || c == '\v':
			l.pos++
		case strings.HasPrefix(l.src[l.pos:], "//"):
			end := strings.IndexAny(l.src[l.pos:], "\r\n")
			if end < 0 {
				l.pos = len(l.src)
			} else {
				l.pos += end
			}
		case strings.HasPrefix(l.src[l.pos:], "/*"):
			end := strings.Index(l.src[l.pos+2:], "*/")
			if end < 0 {
				return l.errorf(l.pos, "unterminated comment")
			}
			if strings.ContainsAny(l.src[l.pos:l.pos+2+end], "\r\n") {
				l.nl = true
			}
			l.pos += end + 4
		default:
			r, size := utf8.DecodeRuneInString(l.src[l.pos:])
			// U+00A0 and the BOM show up in templates copied from web pages.
			if r == '\u00a0' || r == '\ufeff' {
				l.pos += size
				continue
			}
			return nil
		}
	}
	return nil
}

func (l *lexer) scan() error {
	c := l.src[l.pos]
	switch {
	case isIdentStart(c):
		start := l.pos
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		l.emit(token{typ: tokenIdent, val: l.src[start:l.pos], pos: start})
		return nil
	case isDigit(c) || (c == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1])):
		return l.scanNumber()
	case c == '\'' || c == '"':
		return l.scanString(c)
	}
	for _, p := range punctuators {
		if strings.HasPrefix(l.src[l.pos:], p) {
			l.emit(token{typ: tokenPunct, val: p, pos: l.pos})
			l.pos += len(p)
			return nil
		}
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return l.errorf(l.pos, "unexpected character %q", r)
}

func (l *lexer) scanNumber() error {
	start := l.pos
	if strings.HasPrefix(l.src[l.pos:], "0x") || strings.HasPrefix(l.src[l.pos:], "0X") {
		l.pos += 2
		for l.pos < len(l.src) && isHexDigit(l.src[l.pos]) {
			l.pos++
		}
		n, err := strconv.ParseUint(l.src[start+2:l.pos], 16, 64)
		if err != nil {
			return l.errorf(start, "invalid hex literal %q", l.src[start:l.pos])
		}
		l.emit(token{typ: tokenNumber, val: l.src[start:l.pos], num: float64(n), pos: start})
		return nil
	}
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		l.pos++
		if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
			l.pos++
		}
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(l.src) && isIdentStart(l.src[l.pos]) {
		return l.errorf(start, "identifier starts immediately after numeric literal")
	}
	text := l.src[start:l.pos]
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return l.errorf(start, "invalid number %q", text)
	}
	l.emit(token{typ: tokenNumber, val: text, num: n, pos: start})
	return nil
}

func (l *lexer) scanString(quote byte) error {
	start := l.pos
	l.pos++
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return l.errorf(start, "unterminated string literal")
		}
		c := l.src[l.pos]
		switch {
		case c == quote:
			l.pos++
			l.emit(token{typ: tokenString, val: b.String(), pos: start})
			return nil
		case c == '\n' || c == '\r':
			return l.errorf(start, "unterminated string literal")
		case c == '\\':
			if err := l.scanEscape(&b); err != nil {
				return err
			}
		default:
			b.WriteByte(c)
			l.pos++
		}
	}
}

func (l *lexer) scanEscape(b *strings.Builder) error {
	l.pos++ // backslash
	if l.pos >= len(l.src) {
		return l.errorf(l.pos, "unterminated escape sequence")
	}
	c := l.src[l.pos]
	l.pos++
	switch c {
	case 'n':
		b.WriteByte('\n')
	case 'r':
		b.WriteByte('\r')
	case 't':
		b.WriteByte('\t')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'v':
		b.WriteByte('\v')
	case '0':
		b.WriteByte(0)
	case '\r':
		// line continuation, swallow an optional LF too
		if l.pos < len(l.src) && l.src[l.pos] == '\n' {
			l.pos++
		}
	case '\n':
	case 'x', 'u':
		width := 2
		if c == 'u' {
			width = 4
		}
		if l.pos+width > len(l.src) {
			return l.errorf(l.pos, "invalid escape sequence")
		}
		n, err := strconv.ParseUint(l.src[l.pos:l.pos+width], 16, 32)
		if err != nil {
			return l.errorf(l.pos, "invalid escape sequence")
		}
		b.WriteRune(rune(n))
		l.pos += width
	default:
		b.WriteByte(c)
	}
	return nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c byte) bool {
	return c == '$' || c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= utf8.RuneSelf
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
