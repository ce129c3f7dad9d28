package explore

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"unicode"

	"github.com/kshedden/dstream/dstream"
	"github.com/kshedden/dstream/formula"
	"github.com/kshedden/glmexplore/table"
	"gonum.org/v1/gonum/floats"
)

// InterceptName is the name of the constant design column.
const InterceptName = "Intercept"

// Transforms that may be applied to a numeric column in a formula,
// e.g. "log(x)".
var transforms = map[string]func(float64) float64{
	"log":  math.Log,
	"exp":  math.Exp,
	"sqrt": math.Sqrt,
}

// Design is the numeric design matrix built from a formula.
type Design struct {

	// Column names, starting with InterceptName when there is an intercept
	Names []string

	// Column-major data
	Cols [][]float64

	// Columns that were linearly dependent on earlier columns and
	// were left out
	Dropped []string
}

// BuildDesign parses fml and expands it into a design matrix over the
// columns of regressors.
//
// Terms are separated by "+".  A term is a column name, a transform
// such as log(x), or an interaction of these joined by ":".  "a*b" is
// shorthand for "a + b + a:b", and parentheses group sums, so
// "(a + b):c" is "a:c + b:c".  A factor repeated within a term counts
// once.  The intercept is included unless the
// formula contains the term "0" or "-1".  An empty formula gives an
// intercept-only design.  Categorical columns are coded with indicator
// columns, the first level in sorted order is the reference level.
func BuildDesign(fml string, regressors *table.Table) (*Design, error) {

	toks, err := tokenize(fml)
	if err != nil {
		return nil, err
	}

	p := &parser{fml: fml, toks: toks}
	pf, err := p.parse()
	if err != nil {
		return nil, err
	}

	if err := pf.check(fml, regressors); err != nil {
		return nil, err
	}

	var names []string
	var cols [][]float64
	n := regressors.NumRows()

	if pf.intercept {
		names = append(names, InterceptName)
		icept := make([]float64, n)
		floats.AddConst(1, icept)
		cols = append(cols, icept)
	}

	if len(pf.terms) > 0 {
		xnames, xcols, err := expand(fml, pf, regressors)
		if err != nil {
			return nil, err
		}
		names = append(names, xnames...)
		cols = append(cols, xcols...)
	}

	if len(cols) == 0 {
		return nil, &FormulaError{Formula: fml, Reason: "the design has no columns"}
	}

	for j, x := range cols {
		if len(x) != n {
			return nil, &FormulaError{Formula: fml, Term: names[j],
				Reason: fmt.Sprintf("expanded to %d rows, expected %d", len(x), n)}
		}
		for _, v := range x {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &FormulaError{Formula: fml, Term: names[j], Reason: "produces non-finite values"}
			}
		}
	}

	d := &Design{}
	d.Names, d.Cols, d.Dropped = prune(names, cols)

	return d, nil
}

// prune drops columns that are linearly dependent on the columns that
// precede them.
func prune(names []string, cols [][]float64) ([]string, [][]float64, []string) {

	var knames, dropped []string
	var kcols, basis [][]float64

	for j, x := range cols {
		r := append([]float64(nil), x...)
		nrm0 := floats.Norm(x, 2)
		for _, q := range basis {
			floats.AddScaled(r, -floats.Dot(q, r), q)
		}
		nrm := floats.Norm(r, 2)
		if nrm0 == 0 || nrm <= 1e-8*nrm0 {
			dropped = append(dropped, names[j])
			continue
		}
		floats.Scale(1/nrm, r)
		basis = append(basis, r)
		knames = append(knames, names[j])
		kcols = append(kcols, x)
	}

	return knames, kcols, dropped
}

// expand uses the dstream formula package to build the design columns
// for the non-intercept terms.
func expand(fml string, pf *parsedFormula, regs *table.Table) (names []string, cols [][]float64, err error) {

	defer func() {
		if r := recover(); r != nil {
			names, cols = nil, nil
			err = &FormulaError{Formula: fml, Reason: fmt.Sprintf("cannot expand formula: %v", r)}
		}
	}()

	used := pf.columns()
	var da [][]interface{}
	reflev := make(map[string]string)
	for _, na := range used {
		c, _ := regs.Column(na)
		if c.Kind() == table.Numeric {
			da = append(da, []interface{}{c.Floats()})
		} else {
			da = append(da, []interface{}{c.Strings()})
			reflev[na] = c.Levels()[0]
		}
	}

	ds := dstream.NewFromArrays(da, used)
	out := formula.New(pf.expansion(), ds).RefLevels(reflev).Funcs(formulaFuncs()).Done()

	names = out.Names()
	cols = make([][]float64, len(names))
	out.Reset()
	for out.Next() {
		for j := range names {
			x, ok := out.GetPos(j).([]float64)
			if !ok {
				return nil, nil, &FormulaError{Formula: fml, Term: names[j], Reason: "expands to a non-numeric column"}
			}
			cols[j] = append(cols[j], x...)
		}
	}

	return names, cols, nil
}

func formulaFuncs() map[string]formula.Func {

	fm := make(map[string]formula.Func)
	for name, f := range transforms {
		fm[name] = func(na string, x []float64) *formula.ColSet {
			y := make([]float64, len(x))
			for i, v := range x {
				y[i] = f(v)
			}
			return &formula.ColSet{
				Names: []string{na},
				Data:  []interface{}{y},
			}
		}
	}

	return fm
}

type factor struct {
	fn  string
	col string
}

func (f factor) String() string {
	if f.fn != "" {
		return f.fn + "(" + f.col + ")"
	}
	return f.col
}

type term []factor

// key identifies a term regardless of factor order.
func (t term) key() string {
	s := make([]string, len(t))
	for i, f := range t {
		s[i] = f.String()
	}
	sort.Strings(s)
	return strings.Join(s, ":")
}

type parsedFormula struct {
	intercept bool
	terms     []term
}

// columns returns the referenced column names in order of appearance.
func (pf *parsedFormula) columns() []string {
	seen := make(map[string]bool)
	var cols []string
	for _, t := range pf.terms {
		for _, f := range t {
			if !seen[f.col] {
				seen[f.col] = true
				cols = append(cols, f.col)
			}
		}
	}
	return cols
}

// expansion returns the formula passed to dstream, where "*" is the
// product of factors.
func (pf *parsedFormula) expansion() string {
	s := make([]string, len(pf.terms))
	for i, t := range pf.terms {
		fs := make([]string, len(t))
		for j, f := range t {
			fs[j] = f.String()
		}
		s[i] = strings.Join(fs, " * ")
	}
	return strings.Join(s, " + ")
}

func (pf *parsedFormula) check(fml string, regs *table.Table) error {
	for _, t := range pf.terms {
		for _, f := range t {
			c, ok := regs.Column(f.col)
			if !ok {
				return &FormulaError{Formula: fml, Term: f.col, Reason: "unknown column"}
			}
			if f.fn != "" && c.Kind() != table.Numeric {
				return &FormulaError{Formula: fml, Term: f.String(), Reason: "transform of a categorical column"}
			}
		}
	}
	return nil
}

type tokKind uint8

const (
	tIdent tokKind = iota
	tNumber
	tOp
)

type token struct {
	kind tokKind
	text string
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func tokenize(fml string) ([]token, error) {

	var toks []token
	rs := []rune(fml)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case strings.ContainsRune("+-*:()", r):
			toks = append(toks, token{tOp, string(r)})
			i++
		case unicode.IsDigit(r):
			j := i
			for j < len(rs) && (unicode.IsDigit(rs[j]) || rs[j] == '.') {
				j++
			}
			if j < len(rs) && isIdentRune(rs[j]) {
				return nil, &FormulaError{Formula: fml, Term: string(rs[i:j+1]), Reason: "names may not start with a digit"}
			}
			toks = append(toks, token{tNumber, string(rs[i:j])})
			i = j
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(rs) && isIdentRune(rs[j]) {
				j++
			}
			toks = append(toks, token{tIdent, string(rs[i:j])})
			i = j
		default:
			return nil, &FormulaError{Formula: fml, Term: string(r), Reason: "unexpected character"}
		}
	}

	return toks, nil
}

type parser struct {
	fml  string
	toks []token
	pos  int
}

func (p *parser) peek() *token {
	if p.pos >= len(p.toks) {
		return nil
	}
	return &p.toks[p.pos]
}

func (p *parser) next() *token {
	t := p.peek()
	if t != nil {
		p.pos++
	}
	return t
}

func (p *parser) isOp(op string) bool {
	t := p.peek()
	return t != nil && t.kind == tOp && t.text == op
}

func (p *parser) fail(term, reason string) error {
	return &FormulaError{Formula: p.fml, Term: term, Reason: reason}
}

func (p *parser) parse() (*parsedFormula, error) {

	pf := &parsedFormula{intercept: true}
	if len(p.toks) == 0 {
		return pf, nil
	}

	seen := make(map[string]bool)
	sign := "+"
	if p.isOp("-") {
		p.next()
		sign = "-"
	}

	for {
		terms, err := p.item(sign, pf)
		if err != nil {
			return nil, err
		}
		for _, t := range terms {
			if k := t.key(); !seen[k] {
				seen[k] = true
				pf.terms = append(pf.terms, t)
			}
		}

		t := p.next()
		if t == nil {
			break
		}
		if t.kind != tOp || (t.text != "+" && t.text != "-") {
			return nil, p.fail(t.text, "expected + or -")
		}
		sign = t.text
	}

	return pf, nil
}

// item parses one "+"-separated item, returning the terms it expands to.
func (p *parser) item(sign string, pf *parsedFormula) ([]term, error) {

	t := p.peek()
	if t == nil {
		return nil, p.fail("", "formula ends with an operator")
	}

	if t.kind == tNumber {
		p.next()
		switch {
		case sign == "-" && t.text == "1", sign == "+" && t.text == "0":
			pf.intercept = false
		case sign == "+" && t.text == "1":
			pf.intercept = true
		default:
			return nil, p.fail(sign+t.text, "only 0, 1 and -1 may appear as numbers")
		}
		return nil, nil
	}

	if sign == "-" {
		return nil, p.fail(t.text, "only the intercept can be removed")
	}

	terms, err := p.product()
	if err != nil {
		return nil, err
	}

	sort.SliceStable(terms, func(i, j int) bool {
		return len(terms[i]) < len(terms[j])
	})

	return terms, nil
}

// product parses operands joined by "*".  a*b expands to a + b + a:b.
func (p *parser) product() ([]term, error) {

	terms, err := p.interaction()
	if err != nil {
		return nil, err
	}

	for p.isOp("*") {
		p.next()
		rhs, err := p.interaction()
		if err != nil {
			return nil, err
		}
		both := colon(terms, rhs)
		terms = append(terms, rhs...)
		terms = uniqueTerms(append(terms, both...))
	}

	return terms, nil
}

// interaction parses operands joined by ":".
func (p *parser) interaction() ([]term, error) {

	terms, err := p.operand()
	if err != nil {
		return nil, err
	}

	for p.isOp(":") {
		p.next()
		rhs, err := p.operand()
		if err != nil {
			return nil, err
		}
		terms = colon(terms, rhs)
	}

	return terms, nil
}

// operand parses a factor or a parenthesized sum of terms.
func (p *parser) operand() ([]term, error) {

	if !p.isOp("(") {
		f, err := p.factor()
		if err != nil {
			return nil, err
		}
		return []term{{f}}, nil
	}
	p.next()

	var terms []term
	for {
		t, err := p.product()
		if err != nil {
			return nil, err
		}
		terms = append(terms, t...)
		if !p.isOp("+") {
			break
		}
		p.next()
	}

	if !p.isOp(")") {
		return nil, p.fail("(", "missing )")
	}
	p.next()

	return uniqueTerms(terms), nil
}

// colon returns the pairwise interactions of two lists of terms.  A
// factor appearing in both terms of a pair is kept once, so x:x is x.
func colon(a, b []term) []term {

	var terms []term
	for _, x := range a {
		for _, y := range b {
			t := append(term(nil), x...)
			for _, f := range y {
				if !slices.Contains(t, f) {
					t = append(t, f)
				}
			}
			terms = append(terms, t)
		}
	}

	return uniqueTerms(terms)
}

func uniqueTerms(terms []term) []term {
	seen := make(map[string]bool)
	var u []term
	for _, t := range terms {
		if k := t.key(); !seen[k] {
			seen[k] = true
			u = append(u, t)
		}
	}
	return u
}

func (p *parser) factor() (factor, error) {

	t := p.next()
	if t == nil {
		return factor{}, p.fail("", "formula ends with an operator")
	}
	if t.kind != tIdent {
		return factor{}, p.fail(t.text, "expected a column name")
	}

	if !p.isOp("(") {
		return factor{col: t.text}, nil
	}
	p.next()

	if _, ok := transforms[t.text]; !ok {
		return factor{}, p.fail(t.text, "unknown transform")
	}
	arg := p.next()
	if arg == nil || arg.kind != tIdent {
		return factor{}, p.fail(t.text, "a transform takes one column name")
	}
	if !p.isOp(")") {
		return factor{}, p.fail(t.text, "missing )")
	}
	p.next()

	return factor{fn: t.text, col: arg.text}, nil
}
