package asm

// TokenKind represents the type of token.
type TokenKind uint8

const (
	TokenEOF TokenKind = iota
	TokenError

	// Literals
	TokenIdent
	TokenIntLiteral
	TokenSSAName // %-prefixed value name

	// Delimiters
	TokenLeftBrace    // {
	TokenRightBrace   // }
	TokenLeftBracket  // [
	TokenRightBracket // ]
	TokenLess         // <
	TokenGreater      // >
	TokenComma        // ,
	TokenColon        // :
	TokenEqual        // =
	TokenQuestion     // ?
	TokenArrow        // ->
	TokenX            // dimension separator in shaped types

	// Keywords
	TokenLoad       // raw_buffer_load
	TokenStore      // raw_buffer_store
	TokenAtomicFAdd // raw_buffer_atomic_fadd
	TokenSGPROffset
	TokenBoundsCheck
	TokenIndexOffset
	TokenMemRef
	TokenStrided
	TokenOffset
	TokenVector
	TokenTrue
	TokenFalse

	// Element types
	TokenF16
	TokenBF16
	TokenF32
	TokenI8
	TokenI32
)

// String returns a human-readable name for the token kind.
func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "EOF"
	case TokenError:
		return "Error"
	case TokenIdent:
		return "Ident"
	case TokenIntLiteral:
		return "IntLiteral"
	case TokenSSAName:
		return "SSAName"
	case TokenLeftBrace:
		return "{"
	case TokenRightBrace:
		return "}"
	case TokenLeftBracket:
		return "["
	case TokenRightBracket:
		return "]"
	case TokenLess:
		return "<"
	case TokenGreater:
		return ">"
	case TokenComma:
		return ","
	case TokenColon:
		return ":"
	case TokenEqual:
		return "="
	case TokenQuestion:
		return "?"
	case TokenArrow:
		return "->"
	case TokenX:
		return "x"
	case TokenLoad:
		return "raw_buffer_load"
	case TokenStore:
		return "raw_buffer_store"
	case TokenAtomicFAdd:
		return "raw_buffer_atomic_fadd"
	case TokenSGPROffset:
		return "sgprOffset"
	case TokenBoundsCheck:
		return "boundsCheck"
	case TokenIndexOffset:
		return "indexOffset"
	case TokenMemRef:
		return "memref"
	case TokenStrided:
		return "strided"
	case TokenOffset:
		return "offset"
	case TokenVector:
		return "vector"
	case TokenTrue:
		return "true"
	case TokenFalse:
		return "false"
	case TokenF16:
		return "f16"
	case TokenBF16:
		return "bf16"
	case TokenF32:
		return "f32"
	case TokenI8:
		return "i8"
	case TokenI32:
		return "i32"
	default:
		return "Unknown"
	}
}

// Token represents a lexical token.
type Token struct {
	Kind   TokenKind
	Lexeme string
	Line   int
	Column int
}
