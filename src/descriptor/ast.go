// Package descriptor parses Android build descriptors written in the Gradle
// Kotlin DSL (build.gradle.kts). Groovy command syntax such as
// `minSdkVersion 21` is accepted as well.
//
// The parser only builds a statement tree. It knows nothing about which
// blocks or properties Android cares about; that is the job of buildconf.
package descriptor

import (
	"fmt"
	"strings"
)

// Pos is a location inside a descriptor.
type Pos struct {
	File   string
	Line   int
	Column int
}

func (p Pos) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// StmtKind distinguishes assignments from invocations.
type StmtKind int

const (
	StmtAssign StmtKind = iota // a.b = expr
	StmtInvoke                 // f(args), f(args) { ... }, f { ... }, f expr
	StmtDecl                   // val x = expr, def x = expr
	StmtExpr                   // any other expression, e.g. props.load(f) or a?.let { }
)

// Stmt is a single statement in a block.
type Stmt struct {
	Pos  Pos
	Kind StmtKind

	// Path is the assignment target or the invoked name, split on dots.
	Path []string

	// Value is set for StmtAssign, StmtDecl and StmtExpr.
	Value Expr

	// Op is the assignment operator: "=", "+=", "-=" and so on.
	Op string

	// Args holds call arguments for StmtInvoke.
	Args []Expr

	// Body is the trailing block, if any. HasBody distinguishes `f {}` from `f()`.
	Body    []*Stmt
	HasBody bool

	// Params are closure parameters of the body, `{ reader -> ... }`.
	Params []string

	// Else holds the else branch of an if statement. An `else if` is a
	// single nested if statement.
	Else []*Stmt
}

// Name returns the dotted statement path.
func (s *Stmt) Name() string { return strings.Join(s.Path, ".") }

// File is a parsed descriptor.
type File struct {
	Name  string
	Stmts []*Stmt
}

// Expr is any expression node.
type Expr interface {
	Position() Pos
	String() string
}

// LitKind is the type of a literal.
type LitKind int

const (
	LitString LitKind = iota
	LitInt
	LitBool
)

// Literal is a string, integer or boolean constant. Value holds the
// unquoted source text.
type Literal struct {
	Pos   Pos
	Kind  LitKind
	Value string
}

func (l *Literal) Position() Pos { return l.Pos }

func (l *Literal) String() string {
	if l.Kind == LitString {
		return fmt.Sprintf("%q", l.Value)
	}
	return l.Value
}

// Ref is a dotted identifier chain such as flutter.minSdkVersion.
type Ref struct {
	Pos   Pos
	Parts []string
}

func (r *Ref) Position() Pos  { return r.Pos }
func (r *Ref) String() string { return strings.Join(r.Parts, ".") }
func (r *Ref) Head() string   { return r.Parts[0] }
func (r *Ref) Tail() []string { return r.Parts[1:] }

// Call is a function or method call. Fun is usually a *Ref whose last part
// is the method name, e.g. signingConfigs.getByName.
type Call struct {
	Pos  Pos
	Fun  Expr
	Args []Expr
}

func (c *Call) Position() Pos { return c.Pos }

func (c *Call) String() string {
	return c.Fun.String() + "(" + joinExprs(c.Args) + ")"
}

// Selector is a property access on a non-reference expression, e.g. f().x,
// or any safe access x?.y. Sel starts with "::" for a Kotlin member
// reference such as Delete::class.
type Selector struct {
	Pos  Pos
	X    Expr
	Sel  string
	Safe bool
}

func (s *Selector) Position() Pos { return s.Pos }

func (s *Selector) String() string {
	switch {
	case strings.HasPrefix(s.Sel, "::"):
		return s.X.String() + s.Sel
	case s.Safe:
		return s.X.String() + "?." + s.Sel
	}
	return s.X.String() + "." + s.Sel
}

// Index is a subscript such as keystoreProperties["keyAlias"].
type Index struct {
	Pos Pos
	X   Expr
	Key Expr
}

func (i *Index) Position() Pos  { return i.Pos }
func (i *Index) String() string { return i.X.String() + "[" + i.Key.String() + "]" }

// Cast is a Kotlin `x as Type` expression.
type Cast struct {
	Pos  Pos
	X    Expr
	Type string
}

func (c *Cast) Position() Pos  { return c.Pos }
func (c *Cast) String() string { return c.X.String() + " as " + c.Type }

// Unary is a prefix `!x` or `-x`, or a postfix not-null assertion `x!!`.
type Unary struct {
	Pos Pos
	Op  string
	X   Expr
}

func (u *Unary) Position() Pos { return u.Pos }

func (u *Unary) String() string {
	if u.Op == "!!" {
		return u.X.String() + "!!"
	}
	return u.Op + u.X.String()
}

// Binary is an infix expression. Op is one of == != === < <= > >= && ||
// + - * / % or the elvis operator ?:.
type Binary struct {
	Pos Pos
	Op  string
	X   Expr
	Y   Expr
}

func (b *Binary) Position() Pos  { return b.Pos }
func (b *Binary) String() string { return b.X.String() + " " + b.Op + " " + b.Y.String() }

// Cond is a Groovy ternary `c ? a : b`.
type Cond struct {
	Pos  Pos
	Cond Expr
	Then Expr
	Else Expr
}

func (c *Cond) Position() Pos { return c.Pos }

func (c *Cond) String() string {
	return c.Cond.String() + " ? " + c.Then.String() + " : " + c.Else.String()
}

// Lambda is a closure literal such as `{ file(it) }` or `{ reader -> ... }`.
type Lambda struct {
	Pos    Pos
	Params []string
	Body   []*Stmt
}

func (l *Lambda) Position() Pos { return l.Pos }

func (l *Lambda) String() string {
	if len(l.Params) == 0 {
		return "{ ... }"
	}
	return "{ " + strings.Join(l.Params, ", ") + " -> ... }"
}

// New is a Groovy constructor call `new T(args)`.
type New struct {
	Pos  Pos
	Type string
	Args []Expr
}

func (n *New) Position() Pos { return n.Pos }

func (n *New) String() string {
	return "new " + n.Type + "(" + joinExprs(n.Args) + ")"
}

// NamedArg is a Groovy named argument or map entry, `plugin: "x"`.
type NamedArg struct {
	Pos   Pos
	Name  string
	Value Expr
}

func (n *NamedArg) Position() Pos  { return n.Pos }
func (n *NamedArg) String() string { return n.Name + ": " + n.Value.String() }

// List is a Groovy list or map literal `[a, b]`, `[k: v]`.
type List struct {
	Pos   Pos
	Elems []Expr
}

func (l *List) Position() Pos  { return l.Pos }
func (l *List) String() string { return "[" + joinExprs(l.Elems) + "]" }

func joinExprs(es []Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
