package expr

import (
	"errors"
	"strings"
)

// astNode is an evaluated expression fragment.
type astNode interface {
	eval() (any, error)
}

type literalNode struct{ value any }

func (n literalNode) eval() (any, error) { return n.value, nil }

type notNode struct{ operand astNode }

func (n notNode) eval() (any, error) {
	value, err := n.operand.eval()
	if err != nil {
		return nil, err
	}

	return !truthy(value), nil
}

type boolNode struct {
	op          tokenKind // tokenAnd or tokenOr
	left, right astNode
}

func (n boolNode) eval() (any, error) {
	left, err := n.left.eval()
	if err != nil {
		return nil, err
	}

	// Short-circuit like the source languages do.
	if n.op == tokenAnd && !truthy(left) {
		return left, nil
	}

	if n.op == tokenOr && truthy(left) {
		return left, nil
	}

	return n.right.eval()
}

type compareNode struct {
	op          tokenKind
	negated     bool // "not in"
	left, right astNode
}

func (n compareNode) eval() (any, error) {
	left, err := n.left.eval()
	if err != nil {
		return nil, err
	}

	right, err := n.right.eval()
	if err != nil {
		return nil, err
	}

	switch n.op {
	case tokenEq:
		return looseEqual(left, right), nil
	case tokenNe:
		return !looseEqual(left, right), nil
	case tokenIn:
		result, err := contains(right, left)
		if err != nil {
			return nil, err
		}

		return result != n.negated, nil
	case tokenContains:
		// "A contains B" is "B in A" with the operands swapped.
		result, err := contains(left, right)
		if err != nil {
			return nil, err
		}

		return result, nil
	default:
		return order(n.op, left, right)
	}
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) atEnd() bool { return p.pos >= len(p.tokens) }

func (p *parser) peek() (token, bool) {
	if p.atEnd() {
		return token{}, false
	}

	return p.tokens[p.pos], true
}

func (p *parser) accept(kind tokenKind) bool {
	if t, ok := p.peek(); ok && t.kind == kind {
		p.pos++
		return true
	}

	return false
}

func (p *parser) parseOr() (astNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.accept(tokenOr) {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}

		left = boolNode{op: tokenOr, left: left, right: right}
	}

	return left, nil
}

func (p *parser) parseAnd() (astNode, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.accept(tokenAnd) {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}

		left = boolNode{op: tokenAnd, left: left, right: right}
	}

	return left, nil
}

func (p *parser) parseNot() (astNode, error) {
	if p.accept(tokenNot) {
		// "not in" is handled in parseComparison; a leading "not" here is a
		// plain negation.
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}

		return notNode{operand: operand}, nil
	}

	return p.parseComparison()
}

func (p *parser) parseComparison() (astNode, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	t, ok := p.peek()
	if !ok {
		return left, nil
	}

	switch t.kind {
	case tokenEq, tokenNe, tokenLt, tokenLe, tokenGt, tokenGe, tokenIn, tokenContains:
		p.pos++

		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}

		return compareNode{op: t.kind, left: left, right: right}, nil
	case tokenNot:
		// "x not in y"
		p.pos++
		if !p.accept(tokenIn) {
			return nil, errors.New(`expected "in" after "not"`)
		}

		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}

		return compareNode{op: tokenIn, negated: true, left: left, right: right}, nil
	default:
		return left, nil
	}
}

func (p *parser) parsePrimary() (astNode, error) {
	t, ok := p.peek()
	if !ok {
		return nil, errors.New("unexpected end of expression")
	}

	switch t.kind {
	case tokenString:
		p.pos++
		return literalNode{value: t.str}, nil
	case tokenNumber:
		p.pos++
		return literalNode{value: t.num}, nil
	case tokenTrue:
		p.pos++
		return literalNode{value: true}, nil
	case tokenFalse:
		p.pos++
		return literalNode{value: false}, nil
	case tokenNull:
		p.pos++
		return literalNode{value: nil}, nil
	case tokenLParen:
		p.pos++

		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}

		if !p.accept(tokenRParen) {
			return nil, errors.New("missing closing parenthesis")
		}

		return inner, nil
	default:
		return nil, errors.New("expected a literal")
	}
}

// looseEqual compares across numeric representations but never coerces
// between types, matching how the condition expressions behave upstream.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if fa, ok := a.(float64); ok {
		if fb, ok := b.(float64); ok {
			return fa == fb
		}

		return false
	}

	return a == b
}

func order(op tokenKind, a, b any) (any, error) {
	if fa, ok := a.(float64); ok {
		fb, ok := b.(float64)
		if !ok {
			return nil, errNotComparable
		}

		switch op {
		case tokenLt:
			return fa < fb, nil
		case tokenLe:
			return fa <= fb, nil
		case tokenGt:
			return fa > fb, nil
		case tokenGe:
			return fa >= fb, nil
		}
	}

	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		if !ok {
			return nil, errNotComparable
		}

		switch op {
		case tokenLt:
			return sa < sb, nil
		case tokenLe:
			return sa <= sb, nil
		case tokenGt:
			return sa > sb, nil
		case tokenGe:
			return sa >= sb, nil
		}
	}

	return nil, errNotComparable
}

// contains implements membership: substring match for strings.
func contains(haystack, needle any) (bool, error) {
	hs, ok := haystack.(string)
	if !ok {
		return false, errNotComparable
	}

	ns, ok := needle.(string)
	if !ok {
		return false, errNotComparable
	}

	return strings.Contains(hs, ns), nil
}
