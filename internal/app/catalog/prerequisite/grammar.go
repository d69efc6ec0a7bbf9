// Package prerequisite parses, validates and scopes the prerequisite
// expressions bound to a learning unit inside a training.
//
// An expression is empty, a single acronym, or a list of terms joined by one
// main operator. A term is an acronym or a parenthesised group of at least
// two acronyms joined by the other operator:
//
//	LDRO1001
//	LDRO1001 ET LDRO1002
//	(LDRO1001 OU LDRO1002) ET LDRO1003
package prerequisite

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// AcronymPattern matches one learning unit acronym.
var AcronymPattern = regexp.MustCompile(`^[A-Z]{2,4}[0-9]{4}[A-Z]?$`)

var acronymInText = regexp.MustCompile(`[A-Z]{2,4}[0-9]{4}[A-Z]?`)

// Validation failures. Each carries the message shown to operators.
var (
	ErrAcronymWithSpaces     = errors.New("Prerequisite acronyms cannot contain spaces.")
	ErrMultipleMainOperators = errors.New("Only one main operator is allowed.")
	ErrSameOperators         = errors.New("The operator inside a group must differ from the main operator.")
	ErrGroupTooSmall         = errors.New("A group must contain at least two elements.")
	ErrSingleInParentheses   = errors.New("A single element cannot be surrounded by parentheses.")
	ErrSyntax                = errors.New("Invalid prerequisite syntax.")
)

// Op is a boolean operator.
type Op int

const (
	OpNone Op = iota
	OpAnd
	OpOr
)

// Other returns the opposite operator.
func (o Op) Other() Op {
	switch o {
	case OpAnd:
		return OpOr
	case OpOr:
		return OpAnd
	}
	return OpNone
}

// Language gives the spelling of the operators.
type Language struct {
	And string
	Or  string
}

// Operator spellings. French is the stored form.
var (
	French  = Language{And: "ET", Or: "OU"}
	English = Language{And: "AND", Or: "OR"}
)

func (l Language) word(o Op) string {
	if o == OpOr {
		return l.Or
	}
	return l.And
}

func (l Language) op(word string) Op {
	switch word {
	case l.And:
		return OpAnd
	case l.Or:
		return OpOr
	}
	return OpNone
}

// DetectLanguage returns English when expr uses an English operator word,
// French otherwise.
func DetectLanguage(expr string) Language {
	for _, w := range strings.Fields(strings.NewReplacer("(", " ", ")", " ").Replace(expr)) {
		if English.op(w) != OpNone {
			return English
		}
	}
	return French
}

// Term is one operand of the main operator: a single acronym, or a group of
// acronyms joined by Op.
type Term struct {
	Acronyms []string
	Op       Op
}

// IsGroup reports whether the term is a parenthesised group.
func (t Term) IsGroup() bool { return len(t.Acronyms) > 1 }

// Expression is a parsed prerequisite. Operator is OpNone for an empty or
// single-acronym expression.
type Expression struct {
	Operator Op
	Terms    []Term
}

// Empty reports whether the expression has no term.
func (e Expression) Empty() bool { return len(e.Terms) == 0 }

// Acronyms lists the acronyms in textual order.
func (e Expression) Acronyms() []string {
	var out []string
	for _, t := range e.Terms {
		out = append(out, t.Acronyms...)
	}
	return out
}

// Format renders the expression in lang with single spaces.
func (e Expression) Format(lang Language) string {
	parts := make([]string, 0, len(e.Terms))
	for _, t := range e.Terms {
		if t.IsGroup() {
			parts = append(parts, "("+strings.Join(t.Acronyms, " "+lang.word(t.Op)+" ")+")")
			continue
		}
		parts = append(parts, t.Acronyms[0])
	}
	return strings.Join(parts, " "+lang.word(e.Operator)+" ")
}

// String renders the expression in French.
func (e Expression) String() string { return e.Format(French) }

/* ---------------------------------- lexer --------------------------------- */

type tokenType int

const (
	tokenAcronym tokenType = iota
	tokenLParen
	tokenRParen
	tokenOp
	tokenWord
	tokenEnd
)

type token struct {
	typ   tokenType
	value string
	op    Op
}

func tokenize(expr string, lang Language) []token {
	var tokens []token
	var word strings.Builder
	flush := func() {
		if word.Len() == 0 {
			return
		}
		w := word.String()
		word.Reset()
		switch {
		case lang.op(w) != OpNone:
			tokens = append(tokens, token{typ: tokenOp, value: w, op: lang.op(w)})
		case AcronymPattern.MatchString(w):
			tokens = append(tokens, token{typ: tokenAcronym, value: w})
		default:
			tokens = append(tokens, token{typ: tokenWord, value: w})
		}
	}
	for _, r := range expr {
		switch {
		case r == '(':
			flush()
			tokens = append(tokens, token{typ: tokenLParen, value: "("})
		case r == ')':
			flush()
			tokens = append(tokens, token{typ: tokenRParen, value: ")"})
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			word.WriteRune(r)
		}
	}
	flush()
	return append(tokens, token{typ: tokenEnd, value: "$"})
}

/* --------------------------------- parser --------------------------------- */

type parser struct {
	tokens []token
	pos    int
}

type parsedTerm struct {
	Term
	paren bool
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.typ != tokenEnd {
		p.pos++
	}
	return t
}

func (p *parser) term() (parsedTerm, error) {
	t := p.next()
	switch t.typ {
	case tokenAcronym:
		return parsedTerm{Term: Term{Acronyms: []string{t.value}}}, nil
	case tokenLParen:
		return p.group()
	}
	return parsedTerm{}, fmt.Errorf("%w: unexpected %q", ErrSyntax, t.value)
}

// group reads the rest of a parenthesised group after "(".
func (p *parser) group() (parsedTerm, error) {
	g := parsedTerm{paren: true}
	for {
		t := p.next()
		if t.typ != tokenAcronym {
			return parsedTerm{}, fmt.Errorf("%w: unexpected %q inside a group", ErrSyntax, t.value)
		}
		g.Acronyms = append(g.Acronyms, t.value)

		t = p.next()
		switch t.typ {
		case tokenRParen:
			return g, nil
		case tokenOp:
			if g.Op != OpNone && g.Op != t.op {
				return parsedTerm{}, fmt.Errorf("%w: a group uses a single operator", ErrSyntax)
			}
			g.Op = t.op
		default:
			return parsedTerm{}, fmt.Errorf("%w: unbalanced parentheses", ErrSyntax)
		}
	}
}

// Parse reads expr written with lang operators. Surrounding and repeated
// whitespace is ignored.
func Parse(expr string, lang Language) (Expression, error) {
	if strings.TrimSpace(expr) == "" {
		return Expression{}, nil
	}
	tokens := tokenize(expr, lang)
	for _, t := range tokens {
		if t.typ == tokenWord && isOperatorWord(t.value) {
			return Expression{}, fmt.Errorf("%w: unknown element %q", ErrSyntax, t.value)
		}
	}
	for i := 0; i+1 < len(tokens); i++ {
		if isOperand(tokens[i]) && isOperand(tokens[i+1]) {
			return Expression{}, ErrAcronymWithSpaces
		}
	}
	for _, t := range tokens {
		if t.typ == tokenWord {
			return Expression{}, fmt.Errorf("%w: unknown element %q", ErrSyntax, t.value)
		}
	}

	p := &parser{tokens: tokens}
	var terms []parsedTerm
	var main Op
	for {
		term, err := p.term()
		if err != nil {
			return Expression{}, err
		}
		terms = append(terms, term)

		t := p.next()
		if t.typ == tokenEnd {
			break
		}
		if t.typ != tokenOp {
			return Expression{}, fmt.Errorf("%w: unexpected %q", ErrSyntax, t.value)
		}
		if main != OpNone && main != t.op {
			return Expression{}, ErrMultipleMainOperators
		}
		main = t.op
	}

	if len(terms) == 1 && terms[0].paren {
		return Expression{}, ErrSingleInParentheses
	}
	e := Expression{Operator: main}
	for _, term := range terms {
		if term.paren {
			if len(term.Acronyms) < 2 {
				return Expression{}, ErrGroupTooSmall
			}
			if term.Op == main {
				return Expression{}, ErrSameOperators
			}
		}
		e.Terms = append(e.Terms, term.Term)
	}
	return e, nil
}

// Validate reports whether expr is accepted by Parse in either language.
func Validate(expr string) error {
	_, err := Parse(expr, DetectLanguage(expr))
	return err
}

// Normalize parses expr in its detected language and returns the stored
// (French, single-spaced) form.
func Normalize(expr string) (string, error) {
	e, err := Parse(expr, DetectLanguage(expr))
	if err != nil {
		return "", err
	}
	return e.String(), nil
}

// ExtractAcronyms returns every acronym found in expr, in textual order.
func ExtractAcronyms(expr string) []string {
	return acronymInText.FindAllString(expr, -1)
}

// Compose joins acronyms with op in the French spelling.
func Compose(op Op, acronyms []string) string {
	return strings.Join(acronyms, " "+French.word(op)+" ")
}

// isOperatorWord reports whether w spells an operator in some language or
// case, so that "et" or an English "AND" in a French expression is reported
// as an unknown element rather than as an acronym with spaces.
func isOperatorWord(w string) bool {
	w = strings.ToUpper(w)
	return French.op(w) != OpNone || English.op(w) != OpNone
}

func isOperand(t token) bool {
	return t.typ == tokenAcronym || t.typ == tokenWord
}
