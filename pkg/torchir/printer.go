package torchir

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
)

// String returns the textual form of the module. See Write.
func (m *Module) String() string {
	var sb strings.Builder
	_ = m.Write(&sb)
	return sb.String()
}

// Write writes the module in its textual form, which can be parsed back with Parse.
//
// Values are named when printed: function and block arguments are named %arg0, %arg1, ...
// and operation results %0, %1, ... in program order. Operations with multiple results
// are written as `%3:2 = ...` and their results referenced as %3#0 and %3#1.
func (m *Module) Write(w io.Writer) error {
	for i, fn := range m.functions {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := fn.Write(w, ""); err != nil {
			return err
		}
	}
	return nil
}

// String returns the textual form of the function.
func (fn *Function) String() string {
	var sb strings.Builder
	_ = fn.Write(&sb, "")
	return sb.String()
}

// Write writes the function definition with the given indentation.
func (fn *Function) Write(w io.Writer, indentation string) error {
	p := &printer{w: w, names: make(map[*Value]string)}
	p.write("%sfunc.func ", indentation)
	if fn.Private {
		p.write("private ")
	}
	p.write("%s(", formatSymbol(fn.Name))
	for i, arg := range fn.EntryBlock().args {
		if i > 0 {
			p.write(", ")
		}
		p.write("%s: %s", p.nameArg(arg), arg.typ)
	}
	p.write(")")
	if len(fn.ResultTypes) > 0 {
		p.write(" -> %s", formatResultTypes(fn.ResultTypes))
	}
	p.write(" {\n")
	for i, block := range fn.body.blocks {
		if i > 0 {
			p.writeBlockHeader(block, i, indentation+"  ")
		}
		p.writeOps(block, indentation+"  ")
	}
	p.write("%s}\n", indentation)
	return p.err
}

type printer struct {
	w                 io.Writer
	err               error
	names             map[*Value]string
	nextArg, nextTemp int
}

func (p *printer) write(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) nameArg(v *Value) string {
	name := fmt.Sprintf("%%arg%d", p.nextArg)
	p.nextArg++
	p.names[v] = name
	return name
}

func (p *printer) nameResults(op *Operation) string {
	if len(op.results) == 0 {
		return ""
	}
	base := fmt.Sprintf("%%%d", p.nextTemp)
	p.nextTemp++
	if len(op.results) == 1 {
		p.names[op.results[0]] = base
		return base
	}
	for i, result := range op.results {
		p.names[result] = fmt.Sprintf("%s#%d", base, i)
	}
	return fmt.Sprintf("%s:%d", base, len(op.results))
}

func (p *printer) valueName(v *Value) string {
	if name, found := p.names[v]; found {
		return name
	}
	// Not defined in this function: the IR is broken, print something recognizable.
	return "%<undefined>"
}

func (p *printer) writeBlockHeader(block *Block, index int, indentation string) {
	p.write("%s^bb%d", indentation[:max(0, len(indentation)-2)], index)
	if len(block.args) > 0 {
		p.write("(")
		for i, arg := range block.args {
			if i > 0 {
				p.write(", ")
			}
			p.write("%s: %s", p.nameArg(arg), arg.typ)
		}
		p.write(")")
	}
	p.write(":\n")
}

func (p *printer) writeOps(block *Block, indentation string) {
	for _, op := range block.ops {
		p.writeOp(op, indentation)
	}
}

func (p *printer) writeOp(op *Operation, indentation string) {
	p.write("%s", indentation)
	if results := p.nameResults(op); results != "" {
		p.write("%s = ", results)
	}
	p.write("%q(", op.Name)
	for i, operand := range op.operands {
		if i > 0 {
			p.write(", ")
		}
		p.write("%s", p.valueName(operand))
	}
	p.write(")")
	if len(op.regions) > 0 {
		p.write(" (")
		for i, region := range op.regions {
			if i > 0 {
				p.write(", ")
			}
			p.write("{\n")
			for j, block := range region.blocks {
				if j > 0 || len(block.args) > 0 {
					p.writeBlockHeader(block, j, indentation+"  ")
				}
				p.writeOps(block, indentation+"  ")
			}
			p.write("%s}", indentation)
		}
		p.write(")")
	}
	if len(op.Attributes) > 0 {
		keys := slices.Sorted(maps.Keys(op.Attributes))
		p.write(" {")
		for i, key := range keys {
			if i > 0 {
				p.write(", ")
			}
			p.write("%s = %s", key, formatAttribute(op.Attributes[key]))
		}
		p.write("}")
	}
	p.write(" : (")
	for i, operand := range op.operands {
		if i > 0 {
			p.write(", ")
		}
		p.write("%s", operand.typ)
	}
	p.write(") -> %s\n", formatResultTypes(op.ResultTypes()))
}

func formatResultTypes(types []Type) string {
	if len(types) == 1 {
		return types[0].String()
	}
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
