// Package bridge recovers the source-ordered token sequence of a concrete
// tree node so it can be handed to the expression parser.
package bridge

import (
	"sort"

	"github.com/sambeau/nusa/pkg/nusa/cst"
	perrors "github.com/sambeau/nusa/pkg/nusa/errors"
	"github.com/sambeau/nusa/pkg/nusa/lexer"
)

// ExtractOrderedTokens collects every token under node and returns them
// sorted by source offset. Child roles are walked in whatever order the map
// yields; the offset sort is the only thing that restores source order.
func ExtractOrderedTokens(node *cst.Node) ([]lexer.Token, error) {
	var tokens []lexer.Token
	if err := collect(node, &tokens); err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, perrors.New("BRIDGE-0001", map[string]any{"Rule": ruleName(node)})
	}

	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].Offset < tokens[j].Offset
	})
	return tokens, nil
}

func collect(node *cst.Node, out *[]lexer.Token) error {
	if node == nil || node.Children == nil {
		return perrors.New("BRIDGE-0002", map[string]any{"Rule": ruleName(node), "Role": "<none>"})
	}

	for role, elements := range node.Children {
		for _, el := range elements {
			switch el := el.(type) {
			case *cst.Leaf:
				*out = append(*out, el.Token)
			case *cst.Node:
				if err := collect(el, out); err != nil {
					return err
				}
			default:
				return perrors.New("BRIDGE-0002", map[string]any{"Rule": ruleName(node), "Role": role})
			}
		}
	}
	return nil
}

func ruleName(node *cst.Node) string {
	if node == nil {
		return "<nil>"
	}
	return node.Rule.String()
}

// Images returns the source text of each token, for diagnostics.
func Images(tokens []lexer.Token) []string {
	images := make([]string, len(tokens))
	for i, tok := range tokens {
		images[i] = tok.Literal
	}
	return images
}
