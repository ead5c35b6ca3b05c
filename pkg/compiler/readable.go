package compiler

import "fmt"

// Readable renders the subtree rooted at n as nested maps and slices of named
// fields. The result only holds strings, maps and slices, so it encodes to JSON
// directly and compares with reflect.DeepEqual.
func Readable(n Node) map[string]any {
	switch n := n.(type) {
	case *Program:
		return map[string]any{
			"Program":  readableList(n.Functions),
			"Includes": append([]string{}, n.Includes...),
		}
	case *Function:
		return map[string]any{
			"Function":   n.Name,
			"ReturnType": n.ReturnType,
			"Parameters": readableList(n.Params),
			"Body":       readableList(n.Body),
		}
	case *Parameter:
		return map[string]any{"Parameter": n.Name, "Type": n.Type}
	case *Declaration:
		m := map[string]any{"Declaration": n.Name, "Type": n.Type}
		if n.Init != nil {
			m["Init"] = Readable(n.Init)
		}
		return m
	case *Assignment:
		return map[string]any{"Assignment": n.Name, "Expression": Readable(n.Value)}
	case *Constant:
		return map[string]any{"Constant": map[string]any{
			"Name":  n.Name,
			"Type":  n.Type,
			"Value": n.Value.String(),
		}}
	case *BinaryOperation:
		return map[string]any{"Operation": n.Op, "Left": Readable(n.Left), "Right": Readable(n.Right)}
	case *Comparison:
		return map[string]any{"Comparison": map[string]any{
			"Left":     Readable(n.Left),
			"Operator": n.Op,
			"Right":    Readable(n.Right),
		}}
	case *Return:
		if n.Value == nil {
			return map[string]any{"Return": nil}
		}
		return map[string]any{"Return": Readable(n.Value)}
	case *Identifier:
		return map[string]any{"Identifier": n.Name}
	case *NumberLiteral:
		return map[string]any{"Number": n.Value}
	case *StringLiteral:
		return map[string]any{"String": n.Value}
	case *FunctionCall:
		return map[string]any{"FunctionCall": n.Name, "Arguments": readableList(n.Args)}
	case *While:
		return map[string]any{"While": map[string]any{
			"Condition": Readable(n.Cond),
			"Body":      readableList(n.Body),
		}}
	case *For:
		return map[string]any{"For": map[string]any{
			"Init":      Readable(n.Init),
			"Condition": Readable(n.Cond),
			"Increment": Readable(n.Post),
			"Body":      readableList(n.Body),
		}}
	case *If:
		m := map[string]any{
			"Condition": Readable(n.Cond),
			"Body":      readableList(n.Body),
		}
		if len(n.ElseIfs) != 0 {
			eis := make([]any, len(n.ElseIfs))
			for i, ei := range n.ElseIfs {
				eis[i] = map[string]any{
					"Condition": Readable(ei.Cond),
					"Body":      readableList(ei.Body),
				}
			}
			m["ElseIfs"] = eis
		}
		if n.Else != nil {
			m["Else"] = readableList(n.Else)
		}
		return map[string]any{"If": m}
	case *Increment:
		return map[string]any{"Increment": map[string]any{"Variable": n.Name, "Op": n.Op}}
	default:
		return map[string]any{"Unknown": fmt.Sprintf("%T", n)}
	}
}

func readableList[T Node](nodes []T) []any {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		out[i] = Readable(n)
	}
	return out
}
