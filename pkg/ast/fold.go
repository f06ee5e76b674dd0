package ast

import "github.com/xplshn/nlc/pkg/token"

// FoldConstants collapses literal-only subexpressions in place. Folding is
// conservative: anything whose result type or runtime behavior is not fully
// determined by the operands (division by zero, mixed null comparisons) is
// left for later phases.
func FoldConstants(n *Node) {
	if n == nil {
		return
	}
	switch n.Type {
	case Program:
		for _, s := range n.Data.(*ProgramData).Stmts {
			FoldConstants(s)
		}
	case Block:
		for _, s := range n.Data.(*BlockData).Stmts {
			FoldConstants(s)
		}
	case ExprStmt:
		FoldConstants(n.Data.(*ExprStmtData).Expr)
	case Store:
		FoldConstants(n.Data.(*StoreData).Init)
	case FuncDecl:
		FoldConstants(n.Data.(*FuncDeclData).Body)
	case If:
		d := n.Data.(*IfData)
		FoldConstants(d.Cond)
		FoldConstants(d.Then)
		FoldConstants(d.Else)
	case While:
		d := n.Data.(*WhileData)
		FoldConstants(d.Cond)
		FoldConstants(d.Body)
	case Return:
		FoldConstants(n.Data.(*ReturnData).Value)
	case Export:
		FoldConstants(n.Data.(*ExportData).Decl)
	case Assign:
		FoldConstants(n.Data.(*AssignData).Value)
	case Call:
		d := n.Data.(*CallData)
		for _, a := range d.Args {
			FoldConstants(a)
		}
	case Unary:
		d := n.Data.(*UnaryData)
		FoldConstants(d.Operand)
		foldUnary(n, d)
	case Binary:
		d := n.Data.(*BinaryData)
		FoldConstants(d.Left)
		FoldConstants(d.Right)
		foldBinary(n, d)
	}
}

func (n *Node) become(nodeType NodeType, data interface{}) {
	n.Type = nodeType
	n.Data = data
	n.Typ = nil
}

func asNumeric(n *Node) (f float64, isFloat, ok bool) {
	switch n.Type {
	case Number:
		return float64(n.Data.(*NumberData).Value), false, true
	case Float:
		return n.Data.(*FloatData).Value, true, true
	}
	return 0, false, false
}

func foldUnary(n *Node, d *UnaryData) {
	switch d.Op {
	case token.Minus:
		switch d.Operand.Type {
		case Number:
			n.become(Number, &NumberData{Value: -d.Operand.Data.(*NumberData).Value})
		case Float:
			n.become(Float, &FloatData{Value: -d.Operand.Data.(*FloatData).Value})
		}
	case token.Not:
		if d.Operand.Type == Boolean {
			n.become(Boolean, &BoolData{Value: !d.Operand.Data.(*BoolData).Value})
		}
	}
}

func foldBinary(n *Node, d *BinaryData) {
	l, r := d.Left, d.Right

	if l.Type == String && r.Type == String && d.Op == token.Plus {
		n.become(String, &StringData{Value: l.Data.(*StringData).Value + r.Data.(*StringData).Value})
		return
	}

	if l.Type == Boolean && r.Type == Boolean {
		lv := l.Data.(*BoolData).Value
		rv := r.Data.(*BoolData).Value
		switch d.Op {
		case token.AndAnd:
			n.become(Boolean, &BoolData{Value: lv && rv})
		case token.OrOr:
			n.become(Boolean, &BoolData{Value: lv || rv})
		case token.EqEq:
			n.become(Boolean, &BoolData{Value: lv == rv})
		case token.Neq:
			n.become(Boolean, &BoolData{Value: lv != rv})
		}
		return
	}

	lf, lIsFloat, lok := asNumeric(l)
	rf, rIsFloat, rok := asNumeric(r)
	if !lok || !rok {
		return
	}
	anyFloat := lIsFloat || rIsFloat

	switch d.Op {
	case token.Plus, token.Minus, token.Star:
		if anyFloat {
			var v float64
			switch d.Op {
			case token.Plus:
				v = lf + rf
			case token.Minus:
				v = lf - rf
			case token.Star:
				v = lf * rf
			}
			n.become(Float, &FloatData{Value: v})
		} else {
			li := l.Data.(*NumberData).Value
			ri := r.Data.(*NumberData).Value
			var v int64
			switch d.Op {
			case token.Plus:
				v = li + ri
			case token.Minus:
				v = li - ri
			case token.Star:
				v = li * ri
			}
			n.become(Number, &NumberData{Value: v})
		}
	case token.Slash:
		// Division always yields a float; a zero divisor stays for runtime.
		if rf != 0 {
			n.become(Float, &FloatData{Value: lf / rf})
		}
	case token.Percent:
		if !anyFloat {
			ri := r.Data.(*NumberData).Value
			if ri != 0 {
				n.become(Number, &NumberData{Value: l.Data.(*NumberData).Value % ri})
			}
		}
	case token.EqEq:
		n.become(Boolean, &BoolData{Value: lf == rf})
	case token.Neq:
		n.become(Boolean, &BoolData{Value: lf != rf})
	case token.Lt:
		n.become(Boolean, &BoolData{Value: lf < rf})
	case token.Lte:
		n.become(Boolean, &BoolData{Value: lf <= rf})
	case token.Gt:
		n.become(Boolean, &BoolData{Value: lf > rf})
	case token.Gte:
		n.become(Boolean, &BoolData{Value: lf >= rf})
	}
}
