package main

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/recera/rapier/internal/datafile"
	"github.com/recera/rapier/pkg/exprparse"
	"github.com/recera/rapier/pkg/exprtree"
)

func newExprCommand() *cobra.Command {
	var dataPath string
	var showAST bool

	cmd := &cobra.Command{
		Use:   "expr <expression>",
		Short: "Evaluate a boolean expression against data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ast, err := exprparse.Parse(args[0])
			if err != nil {
				return err
			}
			if showAST {
				out, err := json.MarshalIndent(astJSON(ast), "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}

			tree, err := exprtree.CreateFromParsed(ast)
			if err != nil {
				return err
			}
			data, err := datafile.Load(dataPath)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tree.IsTrue(exprtree.Root(data)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "JSON or YAML data file (- for stdin)")
	cmd.Flags().BoolVar(&showAST, "ast", false, "Print the parsed syntax tree as JSON instead of evaluating")

	return cmd
}

// astJSON converts a syntax tree into maps tagged with their node type
func astJSON(node exprparse.Node) any {
	if node == nil {
		return nil
	}
	list := func(nodes []exprparse.Node) []any {
		out := make([]any, len(nodes))
		for i, n := range nodes {
			out[i] = astJSON(n)
		}
		return out
	}

	m := map[string]any{"type": node.Type().String()}
	switch n := node.(type) {
	case *exprparse.Compound:
		m["body"] = list(n.Body)
	case *exprparse.Identifier:
		m["name"] = n.Name
	case *exprparse.MemberExpression:
		m["object"] = astJSON(n.Object)
		m["property"] = astJSON(n.Property)
		m["computed"] = n.Computed
	case *exprparse.Literal:
		m["value"] = n.Value
		m["raw"] = n.Raw
	case *exprparse.CallExpression:
		m["callee"] = astJSON(n.Callee)
		m["arguments"] = list(n.Arguments)
	case *exprparse.UnaryExpression:
		m["operator"] = n.Operator
		m["argument"] = astJSON(n.Argument)
		m["prefix"] = n.Prefix
	case *exprparse.BinaryExpression:
		m["operator"] = n.Operator
		m["left"] = astJSON(n.Left)
		m["right"] = astJSON(n.Right)
	case *exprparse.LogicalExpression:
		m["operator"] = n.Operator
		m["left"] = astJSON(n.Left)
		m["right"] = astJSON(n.Right)
	case *exprparse.ConditionalExpression:
		m["test"] = astJSON(n.Test)
		m["consequent"] = astJSON(n.Consequent)
		m["alternate"] = astJSON(n.Alternate)
	case *exprparse.ArrayExpression:
		m["elements"] = list(n.Elements)
	}
	return m
}
