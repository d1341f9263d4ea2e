package torchir

import (
	"strconv"
	"strings"

	"github.com/gomlx/go-torchir/pkg/types/dtypes"
	"github.com/gomlx/go-torchir/pkg/types/shapes"
	"github.com/pkg/errors"
)

// Parse parses a module in the textual form written by Module.Write.
//
// The source is a sequence of `func.func` definitions, optionally enclosed in `module { ... }`.
// Errors wrap ErrParse and report the line and column where parsing failed.
func Parse(source string) (*Module, error) {
	p := &parser{lex: newLexer(source)}
	if err := p.next(); err != nil {
		return nil, err
	}
	m := NewModule()
	wrapped := false
	if p.tok.kind == tokIdent && p.tok.text == "module" {
		wrapped = true
		if err := p.next(); err != nil {
			return nil, err
		}
		if err := p.expectPunct("{"); err != nil {
			return nil, err
		}
	}
	for {
		if wrapped && p.isPunct("}") {
			if err := p.next(); err != nil {
				return nil, err
			}
			wrapped = false
			continue
		}
		if p.tok.kind == tokEOF {
			break
		}
		fn, err := p.parseFunction()
		if err != nil {
			return nil, err
		}
		if err := m.AddFunction(fn); err != nil {
			return nil, errors.Wrapf(ErrParse, "%s", err.Error())
		}
	}
	if wrapped {
		return nil, p.errorf("missing closing '}' for module")
	}
	return m, nil
}

// ParseType parses a single type, e.g. "!torch.optional<vtensor<[2],f32>>".
func ParseType(source string) (Type, error) {
	p := &parser{lex: newLexer(source)}
	if err := p.next(); err != nil {
		return nil, err
	}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf("unexpected %q after type", p.tok.text)
	}
	return t, nil
}

type parser struct {
	lex *lexer
	tok token

	// scope maps value names (without the '%') to values, for the function being parsed.
	scope map[string]*Value
}

func (p *parser) next() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) errorf(format string, args ...any) error {
	return p.lex.errorf(p.tok.line, p.tok.col, format, args...)
}

func (p *parser) isPunct(s string) bool {
	return p.tok.kind == tokPunct && p.tok.text == s
}

func (p *parser) expectPunct(s string) error {
	if !p.isPunct(s) {
		return p.errorf("expected %q, got %q", s, p.tok.text)
	}
	return p.next()
}

// consumePunct consumes the punctuation s if it is the current token.
func (p *parser) consumePunct(s string) (bool, error) {
	if !p.isPunct(s) {
		return false, nil
	}
	return true, p.next()
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	tok := p.tok
	if tok.kind != kind {
		return tok, p.errorf("expected %s, got %q", what, tok.text)
	}
	return tok, p.next()
}

func (p *parser) define(name string, v *Value) error {
	if _, found := p.scope[name]; found {
		return p.errorf("value %%%s defined more than once", name)
	}
	p.scope[name] = v
	return nil
}

func (p *parser) parseFunction() (*Function, error) {
	if p.tok.kind != tokIdent || p.tok.text != "func.func" {
		return nil, p.errorf("expected func.func, got %q", p.tok.text)
	}
	if err := p.next(); err != nil {
		return nil, err
	}
	private := false
	if p.tok.kind == tokIdent && p.tok.text == "private" {
		private = true
		if err := p.next(); err != nil {
			return nil, err
		}
	}
	nameTok, err := p.expect(tokSymbol, "function name")
	if err != nil {
		return nil, err
	}
	p.scope = make(map[string]*Value)
	argNames, argTypes, err := p.parseArgumentList()
	if err != nil {
		return nil, err
	}
	var resultTypes []Type
	if p.tok.kind == tokArrow {
		if err := p.next(); err != nil {
			return nil, err
		}
		if resultTypes, err = p.parseResultTypes(); err != nil {
			return nil, err
		}
	}
	fn := NewFunction(nameTok.text, argTypes, resultTypes)
	fn.Private = private
	for i, name := range argNames {
		if err := p.define(name, fn.EntryBlock().args[i]); err != nil {
			return nil, err
		}
	}
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	if err := p.parseRegionBody(fn.body, fn.EntryBlock()); err != nil {
		return nil, err
	}
	return fn, nil
}

// parseArgumentList parses `(%a: type, %b: type)`.
func (p *parser) parseArgumentList() (names []string, types []Type, err error) {
	if err = p.expectPunct("("); err != nil {
		return
	}
	for !p.isPunct(")") {
		if len(names) > 0 {
			if err = p.expectPunct(","); err != nil {
				return
			}
		}
		var nameTok token
		if nameTok, err = p.expect(tokValue, "argument name"); err != nil {
			return
		}
		if err = p.expectPunct(":"); err != nil {
			return
		}
		var t Type
		if t, err = p.parseType(); err != nil {
			return
		}
		names = append(names, nameTok.text)
		types = append(types, t)
	}
	err = p.next()
	return
}

// parseRegionBody parses the blocks of a region, after its opening '{' and up to and including
// its closing '}'. If entry is not nil, operations before the first label go into it.
func (p *parser) parseRegionBody(region *Region, entry *Block) error {
	block := entry
	for {
		switch {
		case p.isPunct("}"):
			return p.next()
		case p.tok.kind == tokEOF:
			return p.errorf("unexpected end of input inside region")
		case p.tok.kind == tokLabel:
			if err := p.next(); err != nil {
				return err
			}
			var names []string
			var types []Type
			if p.isPunct("(") {
				var err error
				if names, types, err = p.parseArgumentList(); err != nil {
					return err
				}
			}
			if err := p.expectPunct(":"); err != nil {
				return err
			}
			block = region.AddBlock(types...)
			for i, name := range names {
				if err := p.define(name, block.args[i]); err != nil {
					return err
				}
			}
		default:
			if block == nil {
				block = region.AddBlock()
			}
			if err := p.parseOperation(block); err != nil {
				return err
			}
		}
	}
}

type resultGroup struct {
	name  string
	count int
}

func (p *parser) parseOperation(block *Block) error {
	var groups []resultGroup
	for p.tok.kind == tokValue {
		group := resultGroup{name: p.tok.text, count: 1}
		if err := p.next(); err != nil {
			return err
		}
		if ok, err := p.consumePunct(":"); err != nil {
			return err
		} else if ok {
			countTok, err := p.expect(tokInt, "number of results")
			if err != nil {
				return err
			}
			group.count, _ = strconv.Atoi(countTok.text)
		}
		groups = append(groups, group)
		if ok, err := p.consumePunct(","); err != nil {
			return err
		} else if !ok {
			if err := p.expectPunct("="); err != nil {
				return err
			}
			break
		}
	}

	nameTok, err := p.expect(tokString, "quoted operation name")
	if err != nil {
		return err
	}
	if err := p.expectPunct("("); err != nil {
		return err
	}
	var operands []*Value
	for !p.isPunct(")") {
		if len(operands) > 0 {
			if err := p.expectPunct(","); err != nil {
				return err
			}
		}
		if p.tok.kind != tokValue {
			return p.errorf("expected operand, got %q", p.tok.text)
		}
		v, found := p.scope[p.tok.text]
		if !found {
			return p.errorf("use of undefined value %%%s", p.tok.text)
		}
		operands = append(operands, v)
		if err := p.next(); err != nil {
			return err
		}
	}
	if err := p.next(); err != nil {
		return err
	}

	var regions []*Region
	if ok, err := p.consumePunct("("); err != nil {
		return err
	} else if ok {
		for !p.isPunct(")") {
			if len(regions) > 0 {
				if err := p.expectPunct(","); err != nil {
					return err
				}
			}
			if err := p.expectPunct("{"); err != nil {
				return err
			}
			region := &Region{}
			if err := p.parseRegionBody(region, nil); err != nil {
				return err
			}
			regions = append(regions, region)
		}
		if err := p.next(); err != nil {
			return err
		}
	}

	var attrs map[string]Attribute
	if p.isPunct("{") {
		if attrs, err = p.parseAttributeDict(); err != nil {
			return err
		}
	}

	if err := p.expectPunct(":"); err != nil {
		return err
	}
	if err := p.expectPunct("("); err != nil {
		return err
	}
	var operandTypes []Type
	for !p.isPunct(")") {
		if len(operandTypes) > 0 {
			if err := p.expectPunct(","); err != nil {
				return err
			}
		}
		t, err := p.parseType()
		if err != nil {
			return err
		}
		operandTypes = append(operandTypes, t)
	}
	if err := p.next(); err != nil {
		return err
	}
	if p.tok.kind != tokArrow {
		return p.errorf("expected '->', got %q", p.tok.text)
	}
	if err := p.next(); err != nil {
		return err
	}
	resultTypes, err := p.parseResultTypes()
	if err != nil {
		return err
	}

	if len(operandTypes) != len(operands) {
		return p.errorf("%q has %d operands but %d operand types", nameTok.text, len(operands), len(operandTypes))
	}
	for i, t := range operandTypes {
		if !TypesEqual(t, operands[i].typ) {
			return p.errorf("%q operand #%d has type %s, but it was declared %s", nameTok.text, i, operands[i].typ, t)
		}
	}
	numResults := 0
	for _, g := range groups {
		numResults += g.count
	}
	if numResults != len(resultTypes) {
		return p.errorf("%q defines %d result names but has %d result types", nameTok.text, numResults, len(resultTypes))
	}

	op := newOperation(nameTok.text, resultTypes, operands, attrs, 0)
	for _, region := range regions {
		region.parentOp = op
	}
	op.regions = regions
	block.insert(len(block.ops), op)

	idx := 0
	for _, g := range groups {
		if g.count == 1 {
			if err := p.define(g.name, op.results[idx]); err != nil {
				return err
			}
			idx++
			continue
		}
		for i := range g.count {
			if err := p.define(g.name+"#"+strconv.Itoa(i), op.results[idx]); err != nil {
				return err
			}
			idx++
		}
	}
	return nil
}

func (p *parser) parseResultTypes() ([]Type, error) {
	if !p.isPunct("(") {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return []Type{t}, nil
	}
	if err := p.next(); err != nil {
		return nil, err
	}
	types := []Type{}
	for !p.isPunct(")") {
		if len(types) > 0 {
			if err := p.expectPunct(","); err != nil {
				return nil, err
			}
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, p.next()
}

func (p *parser) parseType() (Type, error) {
	if _, err := p.consumePunct("!"); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(tokIdent, "type")
	if err != nil {
		return nil, err
	}
	name := strings.TrimPrefix(nameTok.text, "torch.")
	switch name {
	case "int":
		return IntType{}, nil
	case "float":
		return FloatType{}, nil
	case "bool":
		return BoolType{}, nil
	case "number":
		return NumberType{}, nil
	case "none":
		return NoneType{}, nil
	case "str":
		return StringType{}, nil
	case "Device":
		return DeviceType{}, nil
	case "any":
		return AnyType{}, nil
	case "vtensor", "tensor":
		t := TensorType{ValueSemantics: name == "vtensor"}
		if p.isPunct("<") {
			if err := p.next(); err != nil {
				return nil, err
			}
			if t.Shape, err = p.parseShape(); err != nil {
				return nil, err
			}
			if err := p.expectPunct(">"); err != nil {
				return nil, err
			}
		}
		return t, nil
	case "optional", "list":
		if err := p.expectPunct("<"); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(">"); err != nil {
			return nil, err
		}
		if name == "optional" {
			return Optional(elem), nil
		}
		return List(elem), nil
	case "tuple", "union":
		if err := p.expectPunct("<"); err != nil {
			return nil, err
		}
		var elems []Type
		for !p.isPunct(">") {
			if len(elems) > 0 {
				if err := p.expectPunct(","); err != nil {
					return nil, err
				}
			}
			elem, err := p.parseType()
			if err != nil {
				return nil, err
			}
			elems = append(elems, elem)
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		if name == "tuple" {
			return Tuple(elems...), nil
		}
		return Union(elems...), nil
	default:
		return nil, p.lex.errorf(nameTok.line, nameTok.col, "unknown type %q", nameTok.text)
	}
}

// parseShape parses the parameters of a tensor type: `[2,?],f32` or `*,f32`.
func (p *parser) parseShape() (shapes.Shape, error) {
	var shape shapes.Shape
	if ok, err := p.consumePunct("*"); err != nil {
		return shape, err
	} else if !ok {
		if err := p.expectPunct("["); err != nil {
			return shape, err
		}
		shape.Ranked = true
		shape.Dimensions = []int{}
		for !p.isPunct("]") {
			if len(shape.Dimensions) > 0 {
				if err := p.expectPunct(","); err != nil {
					return shape, err
				}
			}
			if ok, err := p.consumePunct("?"); err != nil {
				return shape, err
			} else if ok {
				shape.Dimensions = append(shape.Dimensions, shapes.DimUnknown)
				continue
			}
			dimTok, err := p.expect(tokInt, "dimension")
			if err != nil {
				return shape, err
			}
			dim, _ := strconv.Atoi(dimTok.text)
			shape.Dimensions = append(shape.Dimensions, dim)
		}
		if err := p.next(); err != nil {
			return shape, err
		}
	}
	if err := p.expectPunct(","); err != nil {
		return shape, err
	}
	dtype, err := p.parseDType()
	if err != nil {
		return shape, err
	}
	shape.DType = dtype
	return shape, nil
}

func (p *parser) parseDType() (dtypes.DType, error) {
	tok, err := p.expect(tokIdent, "element type")
	if err != nil {
		return dtypes.InvalidDType, err
	}
	name := tok.text
	if name == "complex" {
		if err := p.expectPunct("<"); err != nil {
			return dtypes.InvalidDType, err
		}
		inner, err := p.expect(tokIdent, "complex element type")
		if err != nil {
			return dtypes.InvalidDType, err
		}
		if err := p.expectPunct(">"); err != nil {
			return dtypes.InvalidDType, err
		}
		name = "complex<" + inner.text + ">"
	}
	dtype, err := dtypes.FromTorch(name)
	if err != nil {
		return dtypes.InvalidDType, p.lex.errorf(tok.line, tok.col, "%v", err)
	}
	return dtype, nil
}

func (p *parser) parseAttributeDict() (map[string]Attribute, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	attrs := make(map[string]Attribute)
	for !p.isPunct("}") {
		if len(attrs) > 0 {
			if err := p.expectPunct(","); err != nil {
				return nil, err
			}
		}
		keyTok, err := p.expect(tokIdent, "attribute name")
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct("="); err != nil {
			return nil, err
		}
		attr, err := p.parseAttribute()
		if err != nil {
			return nil, err
		}
		attrs[keyTok.text] = attr
	}
	return attrs, p.next()
}

func (p *parser) parseAttribute() (Attribute, error) {
	tok := p.tok
	switch {
	case tok.kind == tokInt:
		v, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			return nil, p.errorf("invalid integer %q", tok.text)
		}
		return v, p.next()
	case tok.kind == tokFloat, tok.kind == tokIdent && (tok.text == "inf" || tok.text == "nan"):
		v, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, p.errorf("invalid float %q", tok.text)
		}
		return v, p.next()
	case tok.kind == tokIdent && (tok.text == "true" || tok.text == "false"):
		return tok.text == "true", p.next()
	case tok.kind == tokIdent && tok.text == "dense":
		return p.parseDenseElements()
	case tok.kind == tokString:
		return tok.text, p.next()
	case tok.kind == tokSymbol:
		return SymbolRef(tok.text), p.next()
	case p.isPunct("["):
		return p.parseIntArray()
	default:
		return nil, p.errorf("unexpected %q in attribute value", tok.text)
	}
}

func (p *parser) parseIntArray() ([]int64, error) {
	if err := p.expectPunct("["); err != nil {
		return nil, err
	}
	values := []int64{}
	for !p.isPunct("]") {
		if len(values) > 0 {
			if err := p.expectPunct(","); err != nil {
				return nil, err
			}
		}
		tok, err := p.expect(tokInt, "integer")
		if err != nil {
			return nil, err
		}
		v, _ := strconv.ParseInt(tok.text, 10, 64)
		values = append(values, v)
	}
	return values, p.next()
}

// parseDenseElements parses `dense<f16, [2], [1.0, 2.5]>`.
func (p *parser) parseDenseElements() (DenseElements, error) {
	var dense DenseElements
	if err := p.next(); err != nil {
		return dense, err
	}
	if err := p.expectPunct("<"); err != nil {
		return dense, err
	}
	var err error
	if dense.DType, err = p.parseDType(); err != nil {
		return dense, err
	}
	if err := p.expectPunct(","); err != nil {
		return dense, err
	}
	dims, err := p.parseIntArray()
	if err != nil {
		return dense, err
	}
	dense.Dimensions = make([]int, len(dims))
	size := 1
	for i, d := range dims {
		dense.Dimensions[i] = int(d)
		size *= int(d)
	}
	if err := p.expectPunct(","); err != nil {
		return dense, err
	}
	if err := p.expectPunct("["); err != nil {
		return dense, err
	}
	dense.Values = []float64{}
	for !p.isPunct("]") {
		if len(dense.Values) > 0 {
			if err := p.expectPunct(","); err != nil {
				return dense, err
			}
		}
		if p.tok.kind != tokInt && p.tok.kind != tokFloat && p.tok.kind != tokIdent {
			return dense, p.errorf("expected number, got %q", p.tok.text)
		}
		v, err := strconv.ParseFloat(p.tok.text, 64)
		if err != nil {
			return dense, p.errorf("invalid number %q", p.tok.text)
		}
		dense.Values = append(dense.Values, v)
		if err := p.next(); err != nil {
			return dense, err
		}
	}
	if err := p.next(); err != nil {
		return dense, err
	}
	if len(dense.Values) != size {
		return dense, p.errorf("dense elements with dimensions %v require %d values, got %d", dense.Dimensions, size, len(dense.Values))
	}
	return dense, p.expectPunct(">")
}
