package descriptor

import (
	"fmt"
)

// Parse parses descriptor source. name is only used in positions.
func Parse(name string, src []byte) (*File, error) {
	p := &parser{lex: newLexer(name, src)}
	if err := p.advance(); err != nil {
		return nil, err
	}

	stmts, err := p.parseStmts(false)
	if err != nil {
		return nil, err
	}
	return &File{Name: name, Stmts: stmts}, nil
}

type parser struct {
	lex *lexer
	tok token
}

// state is a parser snapshot for short lookahead.
type state struct {
	lex lexer
	tok token
}

func (p *parser) save() state     { return state{lex: *p.lex, tok: p.tok} }
func (p *parser) restore(s state) { *p.lex, p.tok = s.lex, s.tok }

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Pos: p.tok.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(k tokenKind) (token, error) {
	t := p.tok
	if t.kind != k {
		return t, p.errorf("expected %s, found %s", k, describe(t))
	}
	return t, p.advance()
}

func (p *parser) skipNewlines() error {
	for p.tok.kind == tokNewline || p.tok.kind == tokSemi {
		if err := p.advance(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) isIdent(text string) bool {
	return p.tok.kind == tokIdent && p.tok.text == text
}

func (p *parser) atStmtEnd() bool {
	switch p.tok.kind {
	case tokNewline, tokSemi, tokEOF, tokRBrace:
		return true
	}
	return false
}

func describe(t token) string {
	switch t.kind {
	case tokIdent:
		return fmt.Sprintf("identifier %q", t.text)
	case tokString:
		return fmt.Sprintf("string %q", t.text)
	case tokInt:
		return fmt.Sprintf("integer %s", t.text)
	case tokOp:
		return fmt.Sprintf("operator %s", t.text)
	}
	return t.kind.String()
}

// parseStmts parses statements until '}' (when nested) or EOF.
func (p *parser) parseStmts(nested bool) ([]*Stmt, error) {
	var stmts []*Stmt
	for {
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		switch p.tok.kind {
		case tokEOF:
			if nested {
				return nil, p.errorf("unexpected end of file, missing '}'")
			}
			return stmts, nil
		case tokRBrace:
			if !nested {
				return nil, p.errorf("unexpected '}'")
			}
			return stmts, nil
		}

		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)

		// A statement must be followed by a separator or the end of its block.
		if !p.atStmtEnd() {
			return nil, p.errorf("unexpected %s after statement", describe(p.tok))
		}
	}
}

// parseBlock parses `{ stmts }`, including closure parameters `{ a, b -> }`.
func (p *parser) parseBlock() ([]string, []*Stmt, error) {
	if _, err := p.expect(tokLBrace); err != nil {
		return nil, nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, nil, err
	}
	body, err := p.parseStmts(true)
	if err != nil {
		return nil, nil, err
	}
	if _, err := p.expect(tokRBrace); err != nil {
		return nil, nil, err
	}
	return params, body, nil
}

// parseParams consumes `a, b ->` at the start of a block if present.
func (p *parser) parseParams() ([]string, error) {
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	if p.tok.kind == tokArrow {
		return nil, p.advance()
	}
	if p.tok.kind != tokIdent {
		return nil, nil
	}

	saved := p.save()
	var params []string
	for p.tok.kind == tokIdent {
		params = append(params, p.tok.text)
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind != tokComma {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.tok.kind != tokArrow {
		p.restore(saved)
		return nil, nil
	}
	return params, p.advance()
}

func (p *parser) parsePath() ([]string, Pos, error) {
	start := p.tok.pos
	first, err := p.expect(tokIdent)
	if err != nil {
		return nil, start, err
	}
	path := []string{first.text}
	for p.tok.kind == tokDot {
		if err := p.advance(); err != nil {
			return nil, start, err
		}
		id, err := p.expect(tokIdent)
		if err != nil {
			return nil, start, err
		}
		path = append(path, id.text)
	}
	return path, start, nil
}

func (p *parser) parseStmt() (*Stmt, error) {
	if p.tok.kind != tokIdent {
		return p.exprStmt(p.tok.pos, nil)
	}
	if p.isIdent("import") {
		return p.parseImport()
	}

	path, start, err := p.parsePath()
	if err != nil {
		return nil, err
	}
	s := &Stmt{Pos: start, Path: path, Kind: StmtInvoke}

	if len(path) == 1 {
		switch {
		case (path[0] == "val" || path[0] == "var" || path[0] == "def") && p.tok.kind == tokIdent:
			return p.parseDecl(start)
		case path[0] == "if" && p.tok.kind == tokLParen:
			return p.parseIf(start)
		}
	}

	switch p.tok.kind {
	case tokAssign:
		s.Kind = StmtAssign
		s.Op = p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if s.Value, err = p.parseExpr(); err != nil {
			return nil, err
		}
		return s, nil

	case tokLParen:
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		s.Args = args
		if p.tok.kind == tokLBrace {
			if s.Params, s.Body, err = p.parseBlock(); err != nil {
				return nil, err
			}
			s.HasBody = true
		}
		if p.atStmtEnd() {
			return s, nil
		}
		// f(x).g(), f(x)?.let { }, f(x) == y
		return p.exprStmt(start, &Call{Pos: start, Fun: &Ref{Pos: start, Parts: path}, Args: args})

	case tokLBrace:
		if s.Params, s.Body, err = p.parseBlock(); err != nil {
			return nil, err
		}
		s.HasBody = true
		return s, nil

	case tokString, tokInt, tokIdent:
		// Groovy command call: name arg1, arg2
		for {
			e, err := p.parseArg()
			if err != nil {
				return nil, err
			}
			s.Args = append(s.Args, e)
			if p.tok.kind != tokComma {
				break
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.skipNewlines(); err != nil {
				return nil, err
			}
		}
		return s, nil
	}

	if p.atStmtEnd() {
		return s, nil
	}
	return p.exprStmt(start, &Ref{Pos: start, Parts: path})
}

// exprStmt parses an expression statement, optionally continuing from an
// already parsed operand. `target = value` on a non-path target becomes a
// Binary with the assignment operator.
func (p *parser) exprStmt(start Pos, x Expr) (*Stmt, error) {
	var err error
	if x == nil {
		x, err = p.parseExpr()
	} else {
		x, err = p.continueExpr(x)
	}
	if err != nil {
		return nil, err
	}
	if p.tok.kind == tokAssign {
		op := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		x = &Binary{Pos: x.Position(), Op: op, X: x, Y: v}
	}
	return &Stmt{Pos: start, Kind: StmtExpr, Value: x}, nil
}

// parseDecl parses the rest of `val x = e`, `val x: T = e` or `def x = e`.
func (p *parser) parseDecl(start Pos) (*Stmt, error) {
	name := p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.kind == tokColon {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, _, err := p.parsePath(); err != nil {
			return nil, err
		}
		if p.tok.kind == tokQuestion {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if p.tok.kind != tokAssign || p.tok.text != "=" {
		return nil, p.errorf("expected '=', found %s", describe(p.tok))
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	v, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &Stmt{Pos: start, Kind: StmtDecl, Path: []string{name}, Op: "=", Value: v}, nil
}

// parseIf parses `if (cond) body [else body]`. The condition is kept in
// Args and the branches in Body and Else.
func (p *parser) parseIf(start Pos) (*Stmt, error) {
	cond, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	s := &Stmt{Pos: start, Kind: StmtInvoke, Path: []string{"if"}, Args: cond, HasBody: true}
	if s.Body, err = p.parseBranch(); err != nil {
		return nil, err
	}

	// else may sit on the line after the closing brace.
	saved := p.save()
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	if !p.isIdent("else") {
		p.restore(saved)
		return s, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if s.Else, err = p.parseBranch(); err != nil {
		return nil, err
	}
	if s.Else == nil {
		s.Else = []*Stmt{}
	}
	return s, nil
}

func (p *parser) parseBranch() ([]*Stmt, error) {
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	if p.tok.kind == tokLBrace {
		_, body, err := p.parseBlock()
		return body, err
	}
	s, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return []*Stmt{s}, nil
}

// parseImport parses `import a.b.C`, `import a.b.*` and `import a.b.C as D`.
func (p *parser) parseImport() (*Stmt, error) {
	start := p.tok.pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	ref := &Ref{Pos: p.tok.pos}
	for {
		switch {
		case p.tok.kind == tokIdent:
			ref.Parts = append(ref.Parts, p.tok.text)
		case p.tok.kind == tokOp && p.tok.text == "*" && len(ref.Parts) > 0:
			ref.Parts = append(ref.Parts, "*")
		default:
			return nil, p.errorf("expected identifier, found %s", describe(p.tok))
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind != tokDot || ref.Parts[len(ref.Parts)-1] == "*" {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.isIdent("as") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(tokIdent); err != nil {
			return nil, err
		}
	}
	return &Stmt{Pos: start, Kind: StmtInvoke, Path: []string{"import"}, Args: []Expr{ref}}, nil
}

// parseArgs parses a parenthesised argument list. Newlines are allowed
// anywhere inside the parentheses, as is a trailing comma.
func (p *parser) parseArgs() ([]Expr, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	args, err := p.parseList(tokRParen)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}
	return args, nil
}

// parseList parses comma separated arguments up to, not including, end.
func (p *parser) parseList(end tokenKind) ([]Expr, error) {
	var args []Expr
	for {
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		if p.tok.kind == end {
			break
		}
		e, err := p.parseArg()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		if p.tok.kind != tokComma {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return args, nil
}

// parseArg parses an argument, which may be named: `plugin: "x"` in
// Groovy or `name = "x"` in Kotlin.
func (p *parser) parseArg() (Expr, error) {
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	named := p.tok.kind == tokColon || (p.tok.kind == tokAssign && p.tok.text == "=")
	if !named {
		return e, nil
	}
	var name string
	switch x := e.(type) {
	case *Ref:
		if len(x.Parts) != 1 {
			return e, nil
		}
		name = x.Parts[0]
	case *Literal:
		if x.Kind != LitString || p.tok.kind != tokColon {
			return e, nil
		}
		name = x.Value
	default:
		return e, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	v, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &NamedArg{Pos: e.Position(), Name: name, Value: v}, nil
}

// ── expressions ───────────────────────────────────────────────────────────

// Binding strength of infix operators; higher binds tighter.
var precedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3, "===": 3,
	"<": 4, "<=": 4, ">": 4, ">=": 4,
	"?:": 5,
	"+": 6, "-": 6,
	"*": 7, "/": 7, "%": 7,
}

func (p *parser) parseExpr() (Expr, error) {
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return p.continueBinary(x)
}

// continueExpr resumes parsing after an operand that was already consumed.
func (p *parser) continueExpr(x Expr) (Expr, error) {
	x, err := p.parsePostfix(x)
	if err != nil {
		return nil, err
	}
	return p.continueBinary(x)
}

func (p *parser) continueBinary(x Expr) (Expr, error) {
	x, err := p.parseBinary(x, 1)
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokQuestion {
		return x, nil
	}

	// Groovy ternary.
	if err := p.advance(); err != nil {
		return nil, err
	}
	then, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokColon); err != nil {
		return nil, err
	}
	els, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &Cond{Pos: x.Position(), Cond: x, Then: then, Else: els}, nil
}

func (p *parser) parseBinary(lhs Expr, min int) (Expr, error) {
	for p.tok.kind == tokOp {
		op := p.tok.text
		prec := precedence[op]
		if prec < min {
			return lhs, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		rhs, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		for p.tok.kind == tokOp && precedence[p.tok.text] > prec {
			if rhs, err = p.parseBinary(rhs, prec+1); err != nil {
				return nil, err
			}
		}
		lhs = &Binary{Pos: lhs.Position(), Op: op, X: lhs, Y: rhs}
	}
	return lhs, nil
}

func (p *parser) parseUnary() (Expr, error) {
	t := p.tok
	if t.kind == tokNot || (t.kind == tokOp && t.text == "-") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Pos: t.pos, Op: t.text, X: x}, nil
	}
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return p.parsePostfix(x)
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.tok
	switch t.kind {
	case tokString:
		return &Literal{Pos: t.pos, Kind: LitString, Value: t.text}, p.advance()
	case tokInt:
		return &Literal{Pos: t.pos, Kind: LitInt, Value: t.text}, p.advance()
	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		_, err = p.expect(tokRParen)
		return x, err
	case tokLBracket:
		return p.parseListLit()
	case tokLBrace:
		return p.parseLambda()
	case tokIdent:
		switch t.text {
		case "true", "false":
			return &Literal{Pos: t.pos, Kind: LitBool, Value: t.text}, p.advance()
		case "new":
			return p.parseNew()
		case "if":
			return p.parseIfExpr()
		}
		return &Ref{Pos: t.pos, Parts: []string{t.text}}, p.advance()
	}
	return nil, p.errorf("expected expression, found %s", describe(t))
}

func (p *parser) parsePostfix(x Expr) (Expr, error) {
	for {
		switch p.tok.kind {
		case tokDot, tokSafeDot, tokDoubleColon:
			kind := p.tok.kind
			if err := p.advance(); err != nil {
				return nil, err
			}
			id, err := p.expect(tokIdent)
			if err != nil {
				return nil, err
			}
			r, isRef := x.(*Ref)
			switch {
			case kind == tokDot && isRef:
				r.Parts = append(r.Parts, id.text)
			case kind == tokDoubleColon:
				x = &Selector{Pos: x.Position(), X: x, Sel: "::" + id.text}
			default:
				x = &Selector{Pos: x.Position(), X: x, Sel: id.text, Safe: kind == tokSafeDot}
			}
		case tokLParen:
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			x = &Call{Pos: x.Position(), Fun: x, Args: args}
		case tokLBrace:
			// Trailing lambda: f(x) { }, x?.let { }, list.forEach { }.
			switch x.(type) {
			case *Ref, *Selector, *Call:
			default:
				return x, nil
			}
			fn, err := p.parseLambda()
			if err != nil {
				return nil, err
			}
			if c, ok := x.(*Call); ok {
				c.Args = append(c.Args, fn)
			} else {
				x = &Call{Pos: x.Position(), Fun: x, Args: []Expr{fn}}
			}
		case tokLBracket:
			if err := p.advance(); err != nil {
				return nil, err
			}
			key, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRBracket); err != nil {
				return nil, err
			}
			x = &Index{Pos: x.Position(), X: x, Key: key}
		case tokNotNull:
			if err := p.advance(); err != nil {
				return nil, err
			}
			x = &Unary{Pos: x.Position(), Op: "!!", X: x}
		case tokIdent:
			if p.tok.text != "as" {
				return x, nil
			}
			cast, err := p.parseCast(x)
			if err != nil {
				return nil, err
			}
			x = cast
		default:
			return x, nil
		}
	}
}

// parseCast parses `as Type`, `as Type?` and `as? Type` following x.
func (p *parser) parseCast(x Expr) (Expr, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.kind == tokQuestion {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	typ, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}
	if p.tok.kind == tokQuestion {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return &Cast{Pos: x.Position(), X: x, Type: typ.text}, nil
}

func (p *parser) parseLambda() (Expr, error) {
	start := p.tok.pos
	params, body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &Lambda{Pos: start, Params: params, Body: body}, nil
}

// parseNew parses `new a.b.T(args)`.
func (p *parser) parseNew() (Expr, error) {
	start := p.tok.pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	path, _, err := p.parsePath()
	if err != nil {
		return nil, err
	}
	n := &New{Pos: start, Type: (&Ref{Parts: path}).String()}
	if p.tok.kind == tokLParen {
		if n.Args, err = p.parseArgs(); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// parseIfExpr parses Kotlin `if (c) a else b` in expression position.
func (p *parser) parseIfExpr() (Expr, error) {
	start := p.tok.pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}
	then, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.isIdent("else") {
		return nil, p.errorf("expected else, found %s", describe(p.tok))
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	els, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &Cond{Pos: start, Cond: cond, Then: then, Else: els}, nil
}

// parseListLit parses `[a, b]`, `[k: v]` and the empty map `[:]`.
func (p *parser) parseListLit() (Expr, error) {
	start := p.tok.pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.kind == tokColon {
		if err := p.advance(); err != nil {
			return nil, err
		}
		_, err := p.expect(tokRBracket)
		return &List{Pos: start}, err
	}
	elems, err := p.parseList(tokRBracket)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRBracket); err != nil {
		return nil, err
	}
	return &List{Pos: start, Elems: elems}, nil
}
