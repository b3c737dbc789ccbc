package pratt

import (
	"strconv"

	"github.com/sambeau/nusa/pkg/nusa/ast"
	perrors "github.com/sambeau/nusa/pkg/nusa/errors"
	"github.com/sambeau/nusa/pkg/nusa/lexer"
)

// Fold combines already-built operands with the binary and pipeline
// operators between them, using the same precedence table and node
// constructor as the parser. operators[i] sits between operands[i] and
// operands[i+1]; both slices must be in source order.
func Fold(operands []ast.Expression, operators []lexer.Token) (ast.Expression, error) {
	if len(operands) == 0 || len(operands) != len(operators)+1 {
		return nil, perrors.New("EXPR-0006", map[string]any{
			"Operands":  len(operands),
			"Operators": len(operators),
		})
	}
	for _, op := range operators {
		if !isBinary(op.Type) {
			return nil, perrors.NewWithPosition("EXPR-0001", op.Line, op.Column, op.Offset,
				map[string]any{"Kind": op.Type.String(), "Literal": op.Literal})
		}
	}

	f := &folder{operands: operands, operators: operators}
	return f.climb(LOWEST)
}

type folder struct {
	operands  []ast.Expression
	operators []lexer.Token
	next      int // index of the next unconsumed operator; operand next is its left side
}

func (f *folder) climb(min Precedence) (ast.Expression, error) {
	left := f.operands[f.next]
	for f.next < len(f.operators) {
		op := f.operators[f.next]
		prec := Of(op.Type)
		if prec <= min {
			break
		}
		f.next++

		right, err := f.climb(prec)
		if err != nil {
			return nil, err
		}
		left, err = Infix(op, left, right)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func parseNumber(raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}
