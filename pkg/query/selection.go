package query

import (
	"github.com/leapstack-labs/sqlharvest/pkg/schema"
	"github.com/leapstack-labs/sqlharvest/pkg/token"
)

// extractSelection builds a predicate tree from the WHERE clause.
// Precedence is OR below AND below NOT below comparison. Inequality
// comparisons are walked over without producing leaves. Unqualified
// column references bind to the scope's single FROM table when there
// is exactly one; otherwise the reference is recorded as ambiguous.
func extractSelection(c clauses, instances []TableInstance, catalog *schema.Catalog) (*Predicate, []string, bool) {
	if len(c.where) == 0 {
		return nil, nil, false
	}

	p := &predParser{
		toks:      c.where,
		instances: instances,
		catalog:   catalog,
	}
	pred := p.parseOr()
	if pred == nil {
		return nil, p.ambiguous, false
	}
	return pred, p.ambiguous, true
}

type predParser struct {
	toks      []token.Token
	pos       int
	instances []TableInstance
	catalog   *schema.Catalog
	ambiguous []string
}

func (p *predParser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Type: token.TOKEN_EOF}
	}
	return p.toks[p.pos]
}

func (p *predParser) peek() token.Token {
	if p.pos+1 >= len(p.toks) {
		return token.Token{Type: token.TOKEN_EOF}
	}
	return p.toks[p.pos+1]
}

func (p *predParser) advance() { p.pos++ }

func (p *predParser) parseOr() *Predicate {
	left := p.parseAnd()
	for p.cur().Type == token.TOKEN_OR {
		p.advance()
		right := p.parseAnd()
		left = combine("or", left, right)
	}
	return left
}

func (p *predParser) parseAnd() *Predicate {
	left := p.parseNot()
	for p.cur().Type == token.TOKEN_AND {
		p.advance()
		right := p.parseNot()
		left = combine("and", left, right)
	}
	return left
}

func (p *predParser) parseNot() *Predicate {
	if p.cur().Type == token.TOKEN_NOT {
		p.advance()
		inner := p.parseNot()
		if inner == nil {
			return nil
		}
		return &Predicate{Logic: "not", Children: []*Predicate{inner}}
	}
	return p.parseComparison()
}

// combine joins two subtrees under a logic operator, tolerating nil
// sides from skipped or unparseable comparisons.
func combine(logic string, left, right *Predicate) *Predicate {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	return &Predicate{Logic: logic, Children: []*Predicate{left, right}}
}

func (p *predParser) parseComparison() *Predicate {
	switch p.cur().Type {
	case token.TOKEN_EOF:
		return nil
	case token.TOKEN_LPAREN:
		p.advance()
		inner := p.parseOr()
		if p.cur().Type == token.TOKEN_RPAREN {
			p.advance()
		}
		return inner
	}

	left, ok := p.parseOperand()
	if !ok {
		p.skipOperand()
		return nil
	}

	switch p.cur().Type {
	case token.TOKEN_EQ, token.TOKEN_LT, token.TOKEN_GT, token.TOKEN_LE, token.TOKEN_GE:
		op, _ := compareOpAt(p.toks, p.pos)
		p.advance()
		return p.finishBinary(left, op)

	case token.TOKEN_NE:
		// Inequality is deliberately not captured.
		p.advance()
		p.skipOperand()
		return nil

	case token.TOKEN_LIKE:
		p.advance()
		return p.finishBinary(left, OpLike)

	case token.TOKEN_IS:
		p.advance()
		if p.cur().Type == token.TOKEN_NOT {
			p.advance()
		}
		if p.cur().Type == token.TOKEN_NULL {
			p.advance()
		}
		return &Predicate{Cond: &Condition{Left: left, Op: OpIsNull}}

	case token.TOKEN_NOT:
		// NOT LIKE / NOT IN / NOT BETWEEN: record the base operator.
		p.advance()
		return p.parseNegatedTail(left)

	case token.TOKEN_IN:
		p.advance()
		return &Predicate{Cond: &Condition{Left: left, Op: OpIn, Value: p.takeParenText()}}

	case token.TOKEN_BETWEEN:
		p.advance()
		lo := p.takeValueText()
		if p.cur().Type == token.TOKEN_AND {
			p.advance()
		}
		hi := p.takeValueText()
		return &Predicate{Cond: &Condition{Left: left, Op: OpBetween, Value: lo + " and " + hi}}

	default:
		return nil
	}
}

func (p *predParser) parseNegatedTail(left ColumnRef) *Predicate {
	switch p.cur().Type {
	case token.TOKEN_LIKE:
		p.advance()
		return p.finishBinary(left, OpLike)
	case token.TOKEN_IN:
		p.advance()
		return &Predicate{Cond: &Condition{Left: left, Op: OpIn, Value: p.takeParenText()}}
	case token.TOKEN_BETWEEN:
		p.advance()
		lo := p.takeValueText()
		if p.cur().Type == token.TOKEN_AND {
			p.advance()
		}
		hi := p.takeValueText()
		return &Predicate{Cond: &Condition{Left: left, Op: OpBetween, Value: lo + " and " + hi}}
	default:
		return nil
	}
}

func (p *predParser) finishBinary(left ColumnRef, op CompareOp) *Predicate {
	cond := &Condition{Left: left, Op: op}
	ref, next, ok := parseColumnRef(p.toks, p.pos)
	// A name followed by '(' is a function call, kept as value text.
	if ok && (next >= len(p.toks) || p.toks[next].Type != token.TOKEN_LPAREN) {
		cond.Right = p.bind(ref)
		p.pos = next
	} else {
		cond.Value = p.takeValueText()
	}
	return &Predicate{Cond: cond}
}

// parseOperand reads the left side of a comparison: a column
// reference, possibly bound against the scope's instances.
func (p *predParser) parseOperand() (ColumnRef, bool) {
	ref, next, ok := parseColumnRef(p.toks, p.pos)
	if !ok {
		return ColumnRef{}, false
	}
	// Function call, not a column.
	if next < len(p.toks) && p.toks[next].Type == token.TOKEN_LPAREN {
		return ColumnRef{}, false
	}
	p.pos = next
	return p.bind(ref), true
}

// bind attaches a qualifier to an unqualified reference when the scope
// has exactly one FROM table, or when the column resolves in exactly
// one instance. Anything else stays unqualified and is recorded.
func (p *predParser) bind(ref ColumnRef) ColumnRef {
	if ref.Qualifier != "" {
		return ref
	}
	named := make([]TableInstance, 0, len(p.instances))
	for _, inst := range p.instances {
		if inst.EffectiveName() != "" {
			named = append(named, inst)
		}
	}
	if len(named) == 1 {
		ref.Qualifier = named[0].EffectiveName()
		return ref
	}
	if p.catalog != nil {
		var owners []string
		for _, inst := range named {
			tbl, ok := p.catalog.Table(inst.Name)
			if !ok {
				continue
			}
			if _, ok := tbl.Column(ref.Name); ok {
				owners = append(owners, inst.EffectiveName())
			}
		}
		if len(owners) == 1 {
			ref.Qualifier = owners[0]
			return ref
		}
	}
	if len(named) > 1 {
		ref.Ambiguous = true
		p.ambiguous = append(p.ambiguous, ref.Name)
	}
	return ref
}

// skipOperand walks past one operand-shaped token run so parsing can
// resume at the next connective.
func (p *predParser) skipOperand() {
	depth := 0
	for p.pos < len(p.toks) {
		switch p.cur().Type {
		case token.TOKEN_LPAREN:
			depth++
		case token.TOKEN_RPAREN:
			if depth == 0 {
				return
			}
			depth--
		case token.TOKEN_AND, token.TOKEN_OR:
			if depth == 0 {
				return
			}
		}
		p.advance()
	}
}

// takeValueText renders the next literal or simple expression.
func (p *predParser) takeValueText() string {
	start := p.pos
	depth := 0
	for p.pos < len(p.toks) {
		t := p.cur()
		switch t.Type {
		case token.TOKEN_LPAREN:
			depth++
		case token.TOKEN_RPAREN:
			if depth == 0 {
				return exprText(p.toks[start:p.pos])
			}
			depth--
		case token.TOKEN_AND, token.TOKEN_OR, token.TOKEN_COMMA:
			if depth == 0 {
				return exprText(p.toks[start:p.pos])
			}
		}
		p.advance()
		// A bare literal or qualified name ends the value unless a
		// continuation operator follows.
		if depth == 0 && p.pos < len(p.toks) && valueComplete(p.toks[start:p.pos], p.cur()) {
			return exprText(p.toks[start:p.pos])
		}
	}
	return exprText(p.toks[start:p.pos])
}

func valueComplete(taken []token.Token, next token.Token) bool {
	if len(taken) == 0 {
		return false
	}
	switch next.Type {
	case token.TOKEN_DOT, token.TOKEN_PLUS, token.TOKEN_MINUS,
		token.TOKEN_STAR, token.TOKEN_SLASH, token.TOKEN_LPAREN:
		return false
	}
	switch taken[len(taken)-1].Type {
	case token.TOKEN_NUMBER, token.TOKEN_STRING, token.TOKEN_IDENT,
		token.TOKEN_NULL, token.TOKEN_TRUE, token.TOKEN_FALSE, token.TOKEN_RPAREN:
		return true
	}
	return false
}

// takeParenText renders a balanced paren group, e.g. an IN list.
func (p *predParser) takeParenText() string {
	if p.cur().Type != token.TOKEN_LPAREN {
		return p.takeValueText()
	}
	start := p.pos
	depth := 0
	for p.pos < len(p.toks) {
		switch p.cur().Type {
		case token.TOKEN_LPAREN:
			depth++
		case token.TOKEN_RPAREN:
			depth--
			if depth == 0 {
				p.advance()
				return exprText(p.toks[start:p.pos])
			}
		}
		p.advance()
	}
	return exprText(p.toks[start:p.pos])
}
