package parser

import (
	"fmt"

	"github.com/oxhq/saq/internal/value"
)

// ParseError mirrors engine.ParseError's shape without importing the
// engine package (parser sits below engine in the dependency graph).
type ParseError struct {
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at byte %d: %s", e.Pos, e.Message)
}

// Parse lexes and parses src into a Chain ready for engine.Eval.
func Parse(src string) (*value.Chain, error) {
	toks, err := lex(src)
	if err != nil {
		if le, ok := err.(*lexError); ok {
			return nil, &ParseError{Pos: le.pos, Message: le.msg}
		}
		return nil, &ParseError{Pos: 0, Message: err.Error()}
	}
	p := &parser{toks: toks, src: src}
	steps, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tEOF {
		return nil, &ParseError{Pos: p.cur().pos, Message: "unexpected trailing input"}
	}
	return &value.Chain{Steps: steps}, nil
}

type parser struct {
	toks []token
	pos  int
	src  string
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(k tokenKind, what string) (token, error) {
	if p.cur().kind != k {
		return token{}, &ParseError{Pos: p.cur().pos, Message: "expected " + what}
	}
	return p.advance(), nil
}

// steps is the parser's working unit: every production returns a flat
// []*value.Step list rather than a full Chain, since infix operators fold
// two already-parsed step sequences into a single new step whose Args
// wrap each side as its own Chain.
type steps = []*value.Step

func wrap(s steps) *value.Chain { return &value.Chain{Steps: s} }

// parseOr handles OR/|| at the lowest precedence, left-associative.
func (p *parser) parseOr() (steps, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.cur()
		if tok.kind == tOrOr || (tok.kind == tIdent && tok.text == "OR") {
			pos := tok.pos
			p.advance()
			right, err := p.parseAnd()
			if err != nil {
				return nil, err
			}
			left = []*value.Step{{
				Op:   value.OpOr,
				Pos:  pos,
				Args: []*value.Chain{wrap(left), wrap(right)},
			}}
			continue
		}
		return left, nil
	}
}

// parseAnd handles AND/&&, left-associative, binding tighter than OR.
func (p *parser) parseAnd() (steps, error) {
	left, err := p.parseCompare()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.cur()
		if tok.kind == tAndAnd || (tok.kind == tIdent && tok.text == "AND") {
			pos := tok.pos
			p.advance()
			right, err := p.parseCompare()
			if err != nil {
				return nil, err
			}
			left = []*value.Step{{
				Op:   value.OpAnd,
				Pos:  pos,
				Args: []*value.Chain{wrap(left), wrap(right)},
			}}
			continue
		}
		return left, nil
	}
}

// parseCompare handles == / =~ comparisons, left-associative, binding
// tighter than AND/OR but looser than unary !.
func (p *parser) parseCompare() (steps, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.cur()
		switch tok.kind {
		case tEqEq:
			pos := tok.pos
			p.advance()
			right, err := p.parseNot()
			if err != nil {
				return nil, err
			}
			left = []*value.Step{{
				Op:   value.OpEquals,
				Pos:  pos,
				Args: []*value.Chain{wrap(left), wrap(right)},
			}}
		case tRegexMatch:
			pos := tok.pos
			p.advance()
			right, err := p.parseNot()
			if err != nil {
				return nil, err
			}
			// regex_match is single-arg (Input: string, Args: one string), so
			// "left =~ right" desugars sequentially: left's steps run first,
			// feeding their result as ctx into a trailing regex_match step,
			// rather than the shared-context dual-arg shape equals uses.
			left = append(append(steps{}, left...), &value.Step{
				Op:   value.OpRegexMatch,
				Pos:  pos,
				Args: []*value.Chain{wrap(right)},
			})
		default:
			return left, nil
		}
	}
}

// parseNot handles prefix ! / NOT, which binds tighter than == / =~.
func (p *parser) parseNot() (steps, error) {
	tok := p.cur()
	if tok.kind == tBang || (tok.kind == tIdent && tok.text == "NOT") {
		pos := tok.pos
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return []*value.Step{{
			Op:   value.OpNot,
			Pos:  pos,
			Args: []*value.Chain{wrap(operand)},
		}}, nil
	}
	return p.parsePostfix()
}

// parsePostfix parses one primary expression followed by any number of
// .field / .op(args) / [index-or-filter] / {select} trailers.
func (p *parser) parsePostfix() (steps, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.cur()
		switch tok.kind {
		case tDot:
			p.advance()
			step, err := p.parseDotted()
			if err != nil {
				return nil, err
			}
			base = append(base, step)
		case tLBracket:
			p.advance()
			step, err := p.parseBracket(tok.pos)
			if err != nil {
				return nil, err
			}
			base = append(base, step)
		case tLBrace:
			p.advance()
			step, err := p.parseBrace(tok.pos)
			if err != nil {
				return nil, err
			}
			base = append(base, step)
		default:
			return base, nil
		}
	}
}

// parseDotted parses the token(s) following a consumed '.': either a
// field name (bare get_field) or a call name(args).
func (p *parser) parseDotted() (*value.Step, error) {
	nameTok, err := p.expect(tIdent, "field or operator name after '.'")
	if err != nil {
		return nil, err
	}
	if p.cur().kind == tLParen {
		return p.parseCall(nameTok)
	}
	return &value.Step{
		Op:  value.OpGetField,
		Pos: nameTok.pos,
		Args: []*value.Chain{value.NewLiteralChain(value.Str(nameTok.text))},
	}, nil
}

// parseCall parses "(" arg ("," arg)* ")" after an operator name, each
// arg itself a full expression (so operator arguments can nest filters,
// comparisons, etc).
func (p *parser) parseCall(nameTok token) (*value.Step, error) {
	if _, err := p.expect(tLParen, "'(' after operator name"); err != nil {
		return nil, err
	}
	var args []*value.Chain
	if p.cur().kind != tRParen {
		for {
			if p.cur().kind == tLBrace {
				// A braced field list supplies its get_field chains as
				// the call's arguments directly: ".select({a, b})" gets
				// the same args as ".select(.a, .b)".
				open := p.advance()
				sel, err := p.parseBrace(open.pos)
				if err != nil {
					return nil, err
				}
				args = append(args, sel.Args...)
			} else {
				arg, err := p.parseOr()
				if err != nil {
					return nil, err
				}
				args = append(args, wrap(arg))
			}
			if p.cur().kind == tComma {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(tRParen, "')' to close operator call"); err != nil {
		return nil, err
	}
	op, ok := callOperatorNames[nameTok.text]
	if !ok {
		return nil, &ParseError{Pos: nameTok.pos, Message: "unknown operator " + nameTok.text}
	}
	return &value.Step{Op: op, Pos: nameTok.pos, Args: args}, nil
}

// callOperatorNames maps surface call syntax to the Chain's internal
// operator constants (mostly identical; kept as a table so surface
// aliases can be added without touching the Step shape).
var callOperatorNames = map[string]string{
	"filter":         value.OpFilter,
	"select":         value.OpSelect,
	"count":          value.OpCount,
	"equals":         value.OpEquals,
	"and":            value.OpAnd,
	"or":             value.OpOr,
	"not":            value.OpNot,
	"contains":       value.OpContains,
	"includes":       value.OpContains, // spec prose uses "includes"; same operator as "contains"
	"regex_match":    value.OpRegexMatch,
	"lowest":         value.OpLowest,
	"grouped_lowest": value.OpGroupedLow,
	"grouped_filter": value.OpGroupedFltr,
	"single":         value.OpSingle,
	"value":          value.OpValue,
	"keys":           value.OpKeys,
	"source_of":      value.OpSourceOf,
	"get_field":      value.OpGetField,
}

// parseBracket parses "[" ... "]": an integer literal index, or a filter
// predicate — "[N]" desugars to index(N); anything else desugars to
// filter(expr).
func (p *parser) parseBracket(openPos int) (*value.Step, error) {
	if p.cur().kind == tInt && p.toks[p.pos+1].kind == tRBracket {
		n, err := parseIntLiteral(p.cur())
		if err != nil {
			return nil, err
		}
		p.advance()
		p.advance()
		return &value.Step{Op: value.OpIndex, Pos: openPos, Literal: n}, nil
	}
	pred, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tRBracket, "']' to close index/filter"); err != nil {
		return nil, err
	}
	return &value.Step{Op: value.OpFilter, Pos: openPos, Args: []*value.Chain{wrap(pred)}}, nil
}

// parseBrace parses "{" field ("," field)* "}" into a select() call. Each
// field is an identifier naming a user field, written bare ("name") or
// with a leading dot (".name"); it is desugared to a get_field chain so
// select() shares the same argument shape (chains whose first step is
// get_field) whether written as ".select({a,b})" or ".select(.a,.b)".
func (p *parser) parseBrace(openPos int) (*value.Step, error) {
	var args []*value.Chain
	if p.cur().kind != tRBrace {
		for {
			if p.cur().kind == tDot {
				p.advance()
			}
			nameTok, err := p.expect(tIdent, "field name in select")
			if err != nil {
				return nil, err
			}
			args = append(args, wrap([]*value.Step{{
				Op:   value.OpGetField,
				Pos:  nameTok.pos,
				Args: []*value.Chain{value.NewLiteralChain(value.Str(nameTok.text))},
			}}))
			if p.cur().kind == tComma {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(tRBrace, "'}' to close select"); err != nil {
		return nil, err
	}
	return &value.Step{Op: value.OpSelect, Pos: openPos, Args: args}, nil
}

// parsePrimary parses the leading term of a postfix chain: the identity
// dot, a type identifier (desugars to a type filter), #id, @source, *,
// a literal, or a parenthesized sub-expression.
func (p *parser) parsePrimary() (steps, error) {
	tok := p.cur()
	switch tok.kind {
	case tDot:
		// A lone '.' (identity) or the start of ".field" at the very
		// beginning of an expression (ctx is whatever was passed in).
		p.advance()
		if p.cur().kind == tIdent {
			step, err := p.parseDotted()
			if err != nil {
				return nil, err
			}
			return steps{step}, nil
		}
		return steps{}, nil
	case tStar:
		p.advance()
		return steps{}, nil // '*' is the bare identity over the full object list, same as "."
	case tHash:
		p.advance()
		id, pos, err := p.scanBarewordToken()
		if err != nil {
			return nil, err
		}
		return desugarIDRef(id, pos), nil
	case tAt:
		p.advance()
		src, pos, err := p.scanBarewordToken()
		if err != nil {
			return nil, err
		}
		return desugarSourceRef(src, pos), nil
	case tIdent:
		switch tok.text {
		case "true":
			p.advance()
			return steps{{Op: value.OpLiteral, Pos: tok.pos, Literal: value.Bool(true)}}, nil
		case "false":
			p.advance()
			return steps{{Op: value.OpLiteral, Pos: tok.pos, Literal: value.Bool(false)}}, nil
		case "null":
			p.advance()
			return steps{{Op: value.OpLiteral, Pos: tok.pos, Literal: value.Null{}}}, nil
		default:
			p.advance()
			return desugarTypeRef(tok.text, tok.pos), nil
		}
	case tString:
		p.advance()
		return steps{{Op: value.OpLiteral, Pos: tok.pos, Literal: value.Str(tok.text)}}, nil
	case tInt:
		n, err := parseIntLiteral(tok)
		if err != nil {
			return nil, err
		}
		p.advance()
		return steps{{Op: value.OpLiteral, Pos: tok.pos, Literal: n}}, nil
	case tFloat:
		f, err := parseFloatLiteral(tok)
		if err != nil {
			return nil, err
		}
		p.advance()
		return steps{{Op: value.OpLiteral, Pos: tok.pos, Literal: f}}, nil
	case tLParen:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen, "')' to close grouped expression"); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return nil, &ParseError{Pos: tok.pos, Message: "unexpected token"}
	}
}

// scanBarewordToken re-scans raw source starting at the current token's
// position, since '#'/'@' barewords (ids, source names) are not
// restricted to identifier syntax and so aren't pre-tokenized.
func (p *parser) scanBarewordToken() (string, int, error) {
	tok := p.cur()
	runes := []rune(p.src)
	word, end := scanBareword(runes, tok.pos)
	if word == "" {
		return "", 0, &ParseError{Pos: tok.pos, Message: "expected identifier after '#' or '@'"}
	}
	// Resynchronize the token stream past the consumed bareword: re-lex
	// from end onward isn't necessary here because callers only need the
	// word and position; the outer lexer already tokenized the
	// overlapping characters, so advance past any tokens consumed by the
	// bareword's extent.
	for p.pos < len(p.toks)-1 && p.toks[p.pos].pos < end {
		p.pos++
	}
	return word, tok.pos, nil
}

func parseIntLiteral(tok token) (value.Int, error) {
	var n int64
	_, err := fmt.Sscanf(tok.text, "%d", &n)
	if err != nil {
		return 0, &ParseError{Pos: tok.pos, Message: "invalid integer literal"}
	}
	return value.Int(n), nil
}

func parseFloatLiteral(tok token) (value.Float, error) {
	var f float64
	_, err := fmt.Sscanf(tok.text, "%g", &f)
	if err != nil {
		return 0, &ParseError{Pos: tok.pos, Message: "invalid float literal"}
	}
	return value.Float(f), nil
}

// desugarTypeRef implements "T" -> ".filter(.__types__.contains('T'))".
func desugarTypeRef(typeName string, pos int) steps {
	pred := wrap([]*value.Step{
		{Op: value.OpGetField, Pos: pos, Args: []*value.Chain{value.NewLiteralChain(value.Str(value.FieldTypes))}},
		{Op: value.OpContains, Pos: pos, Args: []*value.Chain{value.NewLiteralChain(value.Str(typeName))}},
	})
	return steps{{Op: value.OpFilter, Pos: pos, Args: []*value.Chain{pred}}}
}

// desugarIDRef implements "#id" -> ".filter(.__id__ =~ '^id$')".
func desugarIDRef(id string, pos int) steps {
	pattern := "^" + regexQuote(id) + "$"
	pred := wrap([]*value.Step{
		{Op: value.OpGetField, Pos: pos, Args: []*value.Chain{value.NewLiteralChain(value.Str(value.FieldID))}},
		{Op: value.OpRegexMatch, Pos: pos, Args: []*value.Chain{value.NewLiteralChain(value.Str(pattern))}},
	})
	return steps{{Op: value.OpFilter, Pos: pos, Args: []*value.Chain{pred}}}
}

// desugarSourceRef implements "@src" -> ".filter(.__source__ == 'src')".
func desugarSourceRef(src string, pos int) steps {
	pred := wrap([]*value.Step{
		{Op: value.OpGetField, Pos: pos, Args: []*value.Chain{value.NewLiteralChain(value.Str(value.FieldSource))}},
		{Op: value.OpEquals, Pos: pos, Args: []*value.Chain{
			wrap(nil),
			value.NewLiteralChain(value.Str(src)),
		}},
	})
	return steps{{Op: value.OpFilter, Pos: pos, Args: []*value.Chain{pred}}}
}

// regexQuote escapes regex metacharacters so a bareword id behaves as a
// literal match rather than a pattern.
func regexQuote(s string) string {
	special := `\.+*?()|[]{}^$`
	out := make([]byte, 0, len(s)*2)
	for i := 0; i < len(s); i++ {
		c := s[i]
		for _, sp := range special {
			if byte(sp) == c {
				out = append(out, '\\')
				break
			}
		}
		out = append(out, c)
	}
	return string(out)
}
