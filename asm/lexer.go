package asm

import (
	"unicode"
	"unicode/utf8"
)

// Lexer tokenizes buffer operation assembly.
type Lexer struct {
	source string
	pos    int
	line   int
	column int
	start  int
	tokens []Token
}

// NewLexer creates a new lexer for the given source.
func NewLexer(source string) *Lexer {
	// Estimate ~1 token per 4 characters of source.
	estTokens := len(source) / 4
	if estTokens < 16 {
		estTokens = 16
	}
	return &Lexer{
		source: source,
		pos:    0,
		line:   1,
		column: 1,
		tokens: make([]Token, 0, estTokens),
	}
}

// Tokenize returns all tokens from the source. Unrecognized characters
// become TokenError tokens so the parser can report their position.
func (l *Lexer) Tokenize() ([]Token, error) {
	for !l.isAtEnd() {
		l.start = l.pos
		l.scanToken()
	}

	l.tokens = append(l.tokens, Token{
		Kind:   TokenEOF,
		Line:   l.line,
		Column: l.column,
	})

	return l.tokens, nil
}

func (l *Lexer) scanToken() {
	r := l.advance()

	switch r {
	// Single-character tokens
	case '{':
		l.addToken(TokenLeftBrace)
	case '}':
		l.addToken(TokenRightBrace)
	case '[':
		l.addToken(TokenLeftBracket)
	case ']':
		l.addToken(TokenRightBracket)
	case '<':
		l.addToken(TokenLess)
	case '>':
		l.addToken(TokenGreater)
	case ',':
		l.addToken(TokenComma)
	case ':':
		l.addToken(TokenColon)
	case '=':
		l.addToken(TokenEqual)
	case '?':
		l.addToken(TokenQuestion)
		l.dimSeparator()

	case '-':
		if l.match('>') {
			l.addToken(TokenArrow)
		} else if isDigit(l.peek()) {
			l.number()
		} else {
			l.addToken(TokenError)
		}
	case '%':
		l.ssaName()
	case '/':
		if l.match('/') {
			// Line comment
			for l.peek() != '\n' && !l.isAtEnd() {
				l.advance()
			}
		} else {
			l.addToken(TokenError)
		}

	// Whitespace
	case ' ', '\r', '\t':
		// Ignore whitespace
	case '\n':
		l.line++
		l.column = 1

	default:
		if isDigit(r) {
			l.number()
		} else if isAlpha(r) || r == '_' {
			l.identifier()
		} else {
			l.addToken(TokenError)
		}
	}
}

func (l *Lexer) number() {
	for isDigit(l.peek()) {
		l.advance()
	}
	l.addToken(TokenIntLiteral)
	l.dimSeparator()
}

// dimSeparator splits an 'x' glued to a dimension, as in 8x16xf32 or
// ?xf32, into its own token so the type parser sees each part.
func (l *Lexer) dimSeparator() {
	if l.peek() != 'x' {
		return
	}
	next := l.peekNext()
	if !isDigit(next) && !isAlpha(next) && next != '?' {
		return
	}
	l.start = l.pos
	l.advance()
	l.addToken(TokenX)
}

func (l *Lexer) ssaName() {
	for isAlphaNumeric(l.peek()) || l.peek() == '_' {
		l.advance()
	}

	// A bare % with no name following it
	if l.pos-l.start == 1 {
		l.addToken(TokenError)
		return
	}
	l.addToken(TokenSSAName)
}

func (l *Lexer) identifier() {
	for isAlphaNumeric(l.peek()) || l.peek() == '_' {
		l.advance()
	}

	text := l.source[l.start:l.pos]
	if kind, ok := keywords[text]; ok {
		l.addToken(kind)
		return
	}
	l.addToken(TokenIdent)
}

var keywords = map[string]TokenKind{
	"raw_buffer_load":        TokenLoad,
	"raw_buffer_store":       TokenStore,
	"raw_buffer_atomic_fadd": TokenAtomicFAdd,
	"sgprOffset":             TokenSGPROffset,
	"boundsCheck":            TokenBoundsCheck,
	"indexOffset":            TokenIndexOffset,
	"memref":                 TokenMemRef,
	"strided":                TokenStrided,
	"offset":                 TokenOffset,
	"vector":                 TokenVector,
	"true":                   TokenTrue,
	"false":                  TokenFalse,

	// Element types
	"f16":  TokenF16,
	"bf16": TokenBF16,
	"f32":  TokenF32,
	"i8":   TokenI8,
	"i32":  TokenI32,
}

func (l *Lexer) addToken(kind TokenKind) {
	l.tokens = append(l.tokens, Token{
		Kind:   kind,
		Lexeme: l.source[l.start:l.pos],
		Line:   l.line,
		Column: l.column - (l.pos - l.start),
	})
}

func (l *Lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.source[l.pos:])
	l.pos += size
	l.column++
	return r
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.source[l.pos:])
	return r
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	_, size := utf8.DecodeRuneInString(l.source[l.pos:])
	r, _ := utf8.DecodeRuneInString(l.source[l.pos+size:])
	return r
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() {
		return false
	}
	r, size := utf8.DecodeRuneInString(l.source[l.pos:])
	if r != expected {
		return false
	}
	l.pos += size
	l.column++
	return true
}

func (l *Lexer) isAtEnd() bool {
	return l.pos >= len(l.source)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isAlpha(r rune) bool {
	return unicode.IsLetter(r)
}

func isAlphaNumeric(r rune) bool {
	return isAlpha(r) || isDigit(r)
}
