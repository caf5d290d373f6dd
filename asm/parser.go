package asm

import (
	"fmt"
	"strconv"

	"github.com/gogpu/amdgpu/ir"
	"github.com/pkg/errors"
)

// Parser parses assembly tokens into buffer operations.
type Parser struct {
	tokens  []Token
	current int
	errors  []ParseError
}

// ParseError represents a parsing error.
type ParseError struct {
	Message string
	Token   Token
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Token.Line, e.Token.Column, e.Message)
}

// NewParser creates a new parser for the given tokens.
func NewParser(tokens []Token) *Parser {
	return &Parser{
		tokens:  tokens,
		current: 0,
	}
}

// Parse parses the token stream and returns the operations it holds.
// On failure it returns the operations recovered so far together with
// an error wrapping the first failure; Errors lists all of them.
func (p *Parser) Parse() ([]ir.Operation, error) {
	var ops []ir.Operation

	for !p.isAtEnd() {
		op, perr := p.instruction()
		if perr != nil {
			p.errors = append(p.errors, *perr)
			p.synchronize()
			continue
		}
		ops = append(ops, op)
	}

	if len(p.errors) > 0 {
		return ops, errors.Wrapf(p.errors[0], "parsing failed with %d error(s)", len(p.errors))
	}

	return ops, nil
}

// Errors returns every parse error encountered, in source order.
func (p *Parser) Errors() []ParseError {
	return p.errors
}

// Parse tokenizes and parses source into operations.
func Parse(source string) ([]ir.Operation, error) {
	lexer := NewLexer(source)
	tokens, err := lexer.Tokenize()
	if err != nil {
		return nil, errors.Wrap(err, "tokenizing")
	}
	return NewParser(tokens).Parse()
}

// ParseOperation parses source holding exactly one operation.
func ParseOperation(source string) (ir.Operation, error) {
	ops, err := Parse(source)
	if err != nil {
		return nil, err
	}
	if len(ops) != 1 {
		return nil, errors.Errorf("expected exactly one operation, got %d", len(ops))
	}
	return ops[0], nil
}

// instruction parses one operation starting at its mnemonic.
func (p *Parser) instruction() (ir.Operation, *ParseError) {
	tok := p.peek()
	switch tok.Kind {
	case TokenLoad:
		p.advance()
		return p.load()
	case TokenStore:
		p.advance()
		value, access, perr := p.valueOperands()
		if perr != nil {
			return nil, perr
		}
		return ir.StoreOp{Value: value, Access: access}, nil
	case TokenAtomicFAdd:
		p.advance()
		value, access, perr := p.valueOperands()
		if perr != nil {
			return nil, perr
		}
		return ir.AtomicFAddOp{Value: value, Access: access}, nil
	case TokenError:
		return nil, &ParseError{
			Message: fmt.Sprintf("unexpected character %q", tok.Lexeme),
			Token:   tok,
		}
	default:
		return nil, &ParseError{
			Message: fmt.Sprintf("expected operation mnemonic, got %s", tok.Kind),
			Token:   tok,
		}
	}
}

// load parses the remainder of a load:
//
//	attr-dict? %ref[indices] sgprOffset? : memref-type, index-types -> elem-type
func (p *Parser) load() (ir.Operation, *ParseError) {
	var access ir.Access
	if perr := p.attrDict(&access); perr != nil {
		return nil, perr
	}
	if perr := p.refOperand(&access); perr != nil {
		return nil, perr
	}

	if err := p.expectErr(TokenColon); err != nil {
		return nil, err
	}
	mt, perr := p.memrefType()
	if perr != nil {
		return nil, perr
	}
	access.MemRef.Type = mt
	if perr := p.indexTypes(len(access.Indices)); perr != nil {
		return nil, perr
	}
	if err := p.expectErr(TokenArrow); err != nil {
		return nil, err
	}
	result, perr := p.elemType()
	if perr != nil {
		return nil, perr
	}

	return ir.LoadOp{Access: access, ResultType: result}, nil
}

// valueOperands parses the shared store and atomic-add form:
//
//	attr-dict? %value -> %ref[indices] sgprOffset? : elem-type -> memref-type, index-types
func (p *Parser) valueOperands() (ir.TypedValue, ir.Access, *ParseError) {
	var value ir.TypedValue
	var access ir.Access
	if perr := p.attrDict(&access); perr != nil {
		return value, access, perr
	}

	name, perr := p.ssaName("value")
	if perr != nil {
		return value, access, perr
	}
	value.Name = name
	if err := p.expectErr(TokenArrow); err != nil {
		return value, access, err
	}
	if perr := p.refOperand(&access); perr != nil {
		return value, access, perr
	}

	if err := p.expectErr(TokenColon); err != nil {
		return value, access, err
	}
	vt, perr := p.elemType()
	if perr != nil {
		return value, access, perr
	}
	value.Type = vt
	if err := p.expectErr(TokenArrow); err != nil {
		return value, access, err
	}
	mt, perr := p.memrefType()
	if perr != nil {
		return value, access, perr
	}
	access.MemRef.Type = mt
	if perr := p.indexTypes(len(access.Indices)); perr != nil {
		return value, access, perr
	}

	return value, access, nil
}

// refOperand parses %ref[indices] with the optional trailing sgprOffset.
// The memref type is filled in later from the signature.
func (p *Parser) refOperand(access *ir.Access) *ParseError {
	name, perr := p.ssaName("memref")
	if perr != nil {
		return perr
	}
	access.MemRef.Name = name

	indices, perr := p.indexList()
	if perr != nil {
		return perr
	}
	access.Indices = indices

	sgpr, perr := p.sgprOffset()
	if perr != nil {
		return perr
	}
	access.SGPROffset = sgpr
	return nil
}

// attrDict parses the optional attribute dictionary. boundsCheck
// defaults to true and indexOffset to absent.
func (p *Parser) attrDict(access *ir.Access) *ParseError {
	access.BoundsCheck = true
	if !p.match(TokenLeftBrace) {
		return nil
	}

	seenBounds := false
	seenIndex := false
	for !p.check(TokenRightBrace) && !p.isAtEnd() {
		switch {
		case p.check(TokenBoundsCheck):
			key := p.advance()
			if seenBounds {
				return &ParseError{Message: "duplicate boundsCheck attribute", Token: key}
			}
			seenBounds = true
			if err := p.expectErr(TokenEqual); err != nil {
				return err
			}
			switch {
			case p.match(TokenTrue):
				access.BoundsCheck = true
			case p.match(TokenFalse):
				access.BoundsCheck = false
			default:
				return &ParseError{
					Message: fmt.Sprintf("boundsCheck must be true or false, got %s", p.peek().Kind),
					Token:   p.peek(),
				}
			}
		case p.check(TokenIndexOffset):
			key := p.advance()
			if seenIndex {
				return &ParseError{Message: "duplicate indexOffset attribute", Token: key}
			}
			seenIndex = true
			if err := p.expectErr(TokenEqual); err != nil {
				return err
			}
			v, perr := p.int32Literal("indexOffset")
			if perr != nil {
				return perr
			}
			access.IndexOffset = &v
		default:
			return &ParseError{
				Message: fmt.Sprintf("unexpected %s in attribute dictionary", p.peek().Kind),
				Token:   p.peek(),
			}
		}

		if !p.match(TokenComma) {
			break
		}
	}

	return p.expectErr(TokenRightBrace)
}

// ssaName parses a %-prefixed value name and returns it without the
// sigil.
func (p *Parser) ssaName(what string) (string, *ParseError) {
	if !p.check(TokenSSAName) {
		return "", &ParseError{
			Message: fmt.Sprintf("expected %s name, got %s", what, p.peek().Kind),
			Token:   p.peek(),
		}
	}
	return p.advance().Lexeme[1:], nil
}

// indexList parses the bracketed index operands.
func (p *Parser) indexList() ([]int32, *ParseError) {
	if err := p.expectErr(TokenLeftBracket); err != nil {
		return nil, err
	}

	var indices []int32
	for !p.check(TokenRightBracket) && !p.isAtEnd() {
		v, perr := p.int32Literal("index")
		if perr != nil {
			return nil, perr
		}
		indices = append(indices, v)

		if !p.match(TokenComma) {
			break
		}
	}

	if err := p.expectErr(TokenRightBracket); err != nil {
		return nil, err
	}
	return indices, nil
}

// sgprOffset parses the optional trailing scalar offset operand.
func (p *Parser) sgprOffset() (*int32, *ParseError) {
	if !p.match(TokenSGPROffset) {
		return nil, nil
	}
	v, perr := p.int32Literal("sgprOffset")
	if perr != nil {
		return nil, perr
	}
	return &v, nil
}

// indexTypes parses the i32 list mirroring the index operands.
func (p *Parser) indexTypes(n int) *ParseError {
	count := 0
	for p.match(TokenComma) {
		if err := p.expectErr(TokenI32); err != nil {
			return err
		}
		count++
	}
	if count != n {
		return &ParseError{
			Message: fmt.Sprintf("operation has %d indices but %d index types", n, count),
			Token:   p.previous(),
		}
	}
	return nil
}

// memrefType parses memref<dims x elem> with an optional strided layout.
// Without one the layout is contiguous row-major with zero offset.
func (p *Parser) memrefType() (ir.MemRefType, *ParseError) {
	start := p.peek()
	if err := p.expectErr(TokenMemRef); err != nil {
		return ir.MemRefType{}, err
	}
	if err := p.expectErr(TokenLess); err != nil {
		return ir.MemRefType{}, err
	}

	var shape []int64
	for p.check(TokenIntLiteral) || p.check(TokenQuestion) {
		dim, perr := p.dimension("size")
		if perr != nil {
			return ir.MemRefType{}, perr
		}
		shape = append(shape, dim)
		if err := p.expectErr(TokenX); err != nil {
			return ir.MemRefType{}, err
		}
	}

	elem, perr := p.elemType()
	if perr != nil {
		return ir.MemRefType{}, perr
	}

	if !p.match(TokenComma) {
		if err := p.expectErr(TokenGreater); err != nil {
			return ir.MemRefType{}, err
		}
		return ir.ContiguousMemRef(elem, shape...), nil
	}

	strides, offset, perr := p.stridedLayout()
	if perr != nil {
		return ir.MemRefType{}, perr
	}
	if err := p.expectErr(TokenGreater); err != nil {
		return ir.MemRefType{}, err
	}

	mt, err := ir.NewMemRefType(elem, shape, strides, offset)
	if err != nil {
		return ir.MemRefType{}, &ParseError{Message: err.Error(), Token: start}
	}
	return mt, nil
}

// stridedLayout parses strided<[s0, s1, ...], offset: o> after the
// element type. The offset part is optional and defaults to zero.
func (p *Parser) stridedLayout() ([]int64, int64, *ParseError) {
	if err := p.expectErr(TokenStrided); err != nil {
		return nil, 0, err
	}
	if err := p.expectErr(TokenLess); err != nil {
		return nil, 0, err
	}
	if err := p.expectErr(TokenLeftBracket); err != nil {
		return nil, 0, err
	}

	var strides []int64
	for !p.check(TokenRightBracket) && !p.isAtEnd() {
		s, perr := p.dimension("stride")
		if perr != nil {
			return nil, 0, perr
		}
		strides = append(strides, s)

		if !p.match(TokenComma) {
			break
		}
	}
	if err := p.expectErr(TokenRightBracket); err != nil {
		return nil, 0, err
	}

	offset := int64(0)
	if p.match(TokenComma) {
		if err := p.expectErr(TokenOffset); err != nil {
			return nil, 0, err
		}
		if err := p.expectErr(TokenColon); err != nil {
			return nil, 0, err
		}
		var perr *ParseError
		offset, perr = p.dimension("offset")
		if perr != nil {
			return nil, 0, perr
		}
	}

	if err := p.expectErr(TokenGreater); err != nil {
		return nil, 0, err
	}
	return strides, offset, nil
}

// dimension parses a size, stride, or offset entry: an integer or "?"
// for a run-time value.
func (p *Parser) dimension(what string) (int64, *ParseError) {
	if p.match(TokenQuestion) {
		return ir.DynamicSize, nil
	}
	if !p.check(TokenIntLiteral) {
		return 0, &ParseError{
			Message: fmt.Sprintf("expected %s, got %s", what, p.peek().Kind),
			Token:   p.peek(),
		}
	}
	tok := p.advance()
	v, err := strconv.ParseInt(tok.Lexeme, 10, 64)
	if err != nil {
		return 0, &ParseError{
			Message: fmt.Sprintf("%s %s does not fit in 64 bits", what, tok.Lexeme),
			Token:   tok,
		}
	}
	return v, nil
}

// elemType parses a scalar element type or vector<NxT>.
func (p *Parser) elemType() (ir.ElemType, *ParseError) {
	if !p.check(TokenVector) {
		return p.scalarType()
	}
	p.advance()

	if err := p.expectErr(TokenLess); err != nil {
		return ir.ElemType{}, err
	}
	if !p.check(TokenIntLiteral) {
		return ir.ElemType{}, &ParseError{
			Message: fmt.Sprintf("expected vector lane count, got %s", p.peek().Kind),
			Token:   p.peek(),
		}
	}
	tok := p.advance()
	lanes, err := strconv.ParseUint(tok.Lexeme, 10, 8)
	if err != nil || lanes < 1 {
		return ir.ElemType{}, &ParseError{
			Message: fmt.Sprintf("vector lane count %s out of range", tok.Lexeme),
			Token:   tok,
		}
	}
	if err := p.expectErr(TokenX); err != nil {
		return ir.ElemType{}, err
	}
	scalar, perr := p.scalarType()
	if perr != nil {
		return ir.ElemType{}, perr
	}
	if err := p.expectErr(TokenGreater); err != nil {
		return ir.ElemType{}, err
	}

	return ir.Vector(uint8(lanes), scalar), nil
}

// scalarType parses one of the five scalar element types.
func (p *Parser) scalarType() (ir.ElemType, *ParseError) {
	tok := p.peek()
	switch tok.Kind {
	case TokenF16:
		p.advance()
		return ir.F16, nil
	case TokenBF16:
		p.advance()
		return ir.BF16, nil
	case TokenF32:
		p.advance()
		return ir.F32, nil
	case TokenI8:
		p.advance()
		return ir.I8, nil
	case TokenI32:
		p.advance()
		return ir.I32, nil
	default:
		return ir.ElemType{}, &ParseError{
			Message: fmt.Sprintf("expected element type, got %s", tok.Kind),
			Token:   tok,
		}
	}
}

// int32Literal parses an integer that must fit in 32 bits.
func (p *Parser) int32Literal(what string) (int32, *ParseError) {
	if !p.check(TokenIntLiteral) {
		return 0, &ParseError{
			Message: fmt.Sprintf("expected %s, got %s", what, p.peek().Kind),
			Token:   p.peek(),
		}
	}
	tok := p.advance()
	v, err := strconv.ParseInt(tok.Lexeme, 10, 32)
	if err != nil {
		return 0, &ParseError{
			Message: fmt.Sprintf("%s %s does not fit in 32 bits", what, tok.Lexeme),
			Token:   tok,
		}
	}
	return int32(v), nil
}

func (p *Parser) advance() Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) peek() Token {
	return p.tokens[p.current]
}

func (p *Parser) previous() Token {
	return p.tokens[p.current-1]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Kind == TokenEOF
}

func (p *Parser) check(kind TokenKind) bool {
	if p.isAtEnd() {
		return false
	}
	return p.peek().Kind == kind
}

func (p *Parser) match(kind TokenKind) bool {
	if p.check(kind) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expectErr(kind TokenKind) *ParseError {
	if p.check(kind) {
		p.advance()
		return nil
	}
	return &ParseError{
		Message: fmt.Sprintf("expected %s, got %s", kind, p.peek().Kind),
		Token:   p.peek(),
	}
}

func (p *Parser) synchronize() {
	p.advance()
	for !p.isAtEnd() {
		switch p.peek().Kind {
		case TokenLoad, TokenStore, TokenAtomicFAdd:
			return
		}
		p.advance()
	}
}
