package descriptor

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrSyntax is wrapped by every parse failure.
var ErrSyntax = errors.New("descriptor syntax error")

// SyntaxError reports where parsing failed.
type SyntaxError struct {
	Pos Pos
	Msg string
}

func (e *SyntaxError) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Msg) }
func (e *SyntaxError) Unwrap() error { return ErrSyntax }

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNewline
	tokIdent
	tokString
	tokInt
	tokLBrace
	tokRBrace
	tokLParen
	tokRParen
	tokComma
	tokDot
	tokAssign
	tokSemi
	tokLBracket
	tokRBracket
	tokQuestion
	tokSafeDot     // ?.
	tokColon       // :
	tokDoubleColon // ::
	tokArrow       // ->
	tokNot         // !
	tokNotNull     // !!
	tokOp          // binary operator, text holds the operator
)

var tokenNames = map[tokenKind]string{
	tokEOF:         "end of file",
	tokNewline:     "newline",
	tokIdent:       "identifier",
	tokString:      "string",
	tokInt:         "integer",
	tokLBrace:      "'{'",
	tokRBrace:      "'}'",
	tokLParen:      "'('",
	tokRParen:      "')'",
	tokComma:       "','",
	tokDot:         "'.'",
	tokAssign:      "'='",
	tokSemi:        "';'",
	tokLBracket:    "'['",
	tokRBracket:    "']'",
	tokQuestion:    "'?'",
	tokSafeDot:     "'?.'",
	tokColon:       "':'",
	tokDoubleColon: "'::'",
	tokArrow:       "'->'",
	tokNot:         "'!'",
	tokNotNull:     "'!!'",
	tokOp:          "operator",
}

func (k tokenKind) String() string { return tokenNames[k] }

type token struct {
	kind tokenKind
	text string
	pos  Pos
}

// lexer is a plain value so the parser can snapshot and restore it.
type lexer struct {
	file string
	src  string
	off  int
	line int
	col  int

	// prev is the kind of the last token returned. It decides whether '-'
	// starts a negative number or is a binary operator.
	prev tokenKind
}

func newLexer(file string, src []byte) *lexer {
	return &lexer{file: file, src: string(src), line: 1, col: 1}
}

func (l *lexer) pos() Pos { return Pos{File: l.file, Line: l.line, Column: l.col} }

func (l *lexer) errorf(p Pos, format string, args ...any) error {
	return &SyntaxError{Pos: p, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) peekRune() rune {
	if l.off >= len(l.src) {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.off:])
	return r
}

// peekAt returns the byte n positions ahead as a rune, or -1 at the end.
// Only used for ASCII punctuation.
func (l *lexer) peekAt(n int) rune {
	if l.off+n >= len(l.src) {
		return -1
	}
	return rune(l.src[l.off+n])
}

func (l *lexer) advance() rune {
	r, w := utf8.DecodeRuneInString(l.src[l.off:])
	l.off += w
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

// skipSpace consumes blanks and comments but stops at newlines, which are
// statement separators.
func (l *lexer) skipSpace() error {
	for l.off < len(l.src) {
		switch {
		case l.src[l.off] == ' ' || l.src[l.off] == '\t' || l.src[l.off] == '\r':
			l.advance()
		case strings.HasPrefix(l.src[l.off:], "//"):
			for l.off < len(l.src) && l.src[l.off] != '\n' {
				l.advance()
			}
		case strings.HasPrefix(l.src[l.off:], "/*"):
			start := l.pos()
			end := strings.Index(l.src[l.off+2:], "*/")
			if end < 0 {
				return l.errorf(start, "unterminated block comment")
			}
			stop := l.off + 2 + end + 2
			for l.off < stop {
				l.advance()
			}
		default:
			return nil
		}
	}
	return nil
}

func (l *lexer) next() (token, error) {
	t, err := l.scan()
	if err != nil {
		return t, err
	}
	l.prev = t.kind
	return t, nil
}

// operand reports whether the previous token can end an operand.
func (l *lexer) operand() bool {
	switch l.prev {
	case tokIdent, tokString, tokInt, tokRParen, tokRBracket, tokNotNull:
		return true
	}
	return false
}

// punct consumes a fixed-width token.
func (l *lexer) punct(k tokenKind, text string, p Pos) (token, error) {
	for range text {
		l.advance()
	}
	return token{kind: k, text: text, pos: p}, nil
}

func (l *lexer) scan() (token, error) {
	if err := l.skipSpace(); err != nil {
		return token{}, err
	}
	p := l.pos()
	if l.off >= len(l.src) {
		return token{kind: tokEOF, pos: p}, nil
	}

	r := l.peekRune()
	switch r {
	case '\n':
		l.advance()
		return token{kind: tokNewline, pos: p}, nil
	case '{':
		l.advance()
		return token{kind: tokLBrace, text: "{", pos: p}, nil
	case '}':
		l.advance()
		return token{kind: tokRBrace, text: "}", pos: p}, nil
	case '(':
		l.advance()
		return token{kind: tokLParen, text: "(", pos: p}, nil
	case ')':
		l.advance()
		return token{kind: tokRParen, text: ")", pos: p}, nil
	case ',':
		l.advance()
		return token{kind: tokComma, text: ",", pos: p}, nil
	case '.':
		l.advance()
		return token{kind: tokDot, text: ".", pos: p}, nil
	case ';':
		l.advance()
		return token{kind: tokSemi, text: ";", pos: p}, nil
	case '[':
		l.advance()
		return token{kind: tokLBracket, text: "[", pos: p}, nil
	case ']':
		l.advance()
		return token{kind: tokRBracket, text: "]", pos: p}, nil
	case '?':
		switch l.peekAt(1) {
		case '.':
			return l.punct(tokSafeDot, "?.", p)
		case ':':
			return l.punct(tokOp, "?:", p)
		}
		return l.punct(tokQuestion, "?", p)
	case ':':
		if l.peekAt(1) == ':' {
			return l.punct(tokDoubleColon, "::", p)
		}
		return l.punct(tokColon, ":", p)
	case '=':
		if l.peekAt(1) == '=' {
			if l.peekAt(2) == '=' {
				return l.punct(tokOp, "===", p)
			}
			return l.punct(tokOp, "==", p)
		}
		return l.punct(tokAssign, "=", p)
	case '!':
		switch l.peekAt(1) {
		case '=':
			return l.punct(tokOp, "!=", p)
		case '!':
			return l.punct(tokNotNull, "!!", p)
		}
		return l.punct(tokNot, "!", p)
	case '<', '>':
		if l.peekAt(1) == '=' {
			return l.punct(tokOp, string(r)+"=", p)
		}
		return l.punct(tokOp, string(r), p)
	case '&', '|':
		if l.peekAt(1) == r {
			return l.punct(tokOp, string(r)+string(r), p)
		}
	case '+', '*', '/', '%':
		if l.peekAt(1) == '=' {
			return l.punct(tokAssign, string(r)+"=", p)
		}
		return l.punct(tokOp, string(r), p)
	case '-':
		switch {
		case l.peekAt(1) == '>':
			return l.punct(tokArrow, "->", p)
		case l.peekAt(1) == '=':
			return l.punct(tokAssign, "-=", p)
		case l.operand() || !unicode.IsDigit(l.peekAt(1)):
			return l.punct(tokOp, "-", p)
		}
		return l.lexInt(p)
	case '"', '\'':
		return l.lexString(p)
	}

	if unicode.IsDigit(r) {
		return l.lexInt(p)
	}
	if r == '_' || unicode.IsLetter(r) {
		start := l.off
		for {
			c := l.peekRune()
			if c != '_' && !unicode.IsLetter(c) && !unicode.IsDigit(c) {
				break
			}
			l.advance()
		}
		return token{kind: tokIdent, text: l.src[start:l.off], pos: p}, nil
	}

	return token{}, l.errorf(p, "unexpected character %q", r)
}

func (l *lexer) lexInt(p Pos) (token, error) {
	start := l.off
	if l.peekRune() == '-' {
		l.advance()
	}
	for unicode.IsDigit(l.peekRune()) || l.peekRune() == '_' {
		l.advance()
	}
	// Kotlin long suffix.
	if l.peekRune() == 'L' {
		l.advance()
	}
	text := strings.TrimSuffix(strings.ReplaceAll(l.src[start:l.off], "_", ""), "L")
	return token{kind: tokInt, text: text, pos: p}, nil
}

func (l *lexer) lexString(p Pos) (token, error) {
	quote := l.advance()
	var sb strings.Builder
	for {
		if l.off >= len(l.src) {
			return token{}, l.errorf(p, "unterminated string")
		}
		r := l.advance()
		switch r {
		case quote:
			return token{kind: tokString, text: sb.String(), pos: p}, nil
		case '\n':
			return token{}, l.errorf(p, "newline in string")
		case '\\':
			if l.off >= len(l.src) {
				return token{}, l.errorf(p, "unterminated string")
			}
			esc := l.advance()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '\\', '"', '\'', '$':
				sb.WriteRune(esc)
			default:
				return token{}, l.errorf(l.pos(), "unknown escape sequence \\%c", esc)
			}
		default:
			sb.WriteRune(r)
		}
	}
}
