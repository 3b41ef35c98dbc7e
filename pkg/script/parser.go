// Copyright 2025 Philipp Hossner
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package script

import (
	"fmt"
	"strings"
)

// reservedWords are the keywords and future reserved words of the language.
// None of them may be used as a variable name.
var reservedWords = map[string]bool{}

func init() {
	for _, word := range strings.Split(
		// keywords
		"break,case,catch,continue,debugger,default,delete,do,else,false,finally,for,function,if"+
			",in,instanceof,new,null,return,switch,this,throw,true,try,typeof,var,void,while,with"+
			// reserved words
			",abstract,boolean,byte,char,class,const,double,enum,export,extends,final,float,goto"+
			",implements,import,int,interface,long,native,package,private,protected,public,short"+
			",static,super,synchronized,throws,transient,volatile"+
			// strict mode
			",arguments,let,yield", ",") {
		reservedWords[word] = true
	}
}

// IsReserved reports whether name is a keyword or reserved word.
func IsReserved(name string) bool {
	return reservedWords[name]
}

var binaryPrecedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3, "===": 3, "!==": 3,
	"<": 4, ">": 4, "<=": 4, ">=": 4, "in": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6, "%": 6,
}

var assignOps = map[string]bool{"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true}

type parser struct {
	toks []token
	pos  int

	funcDepth     int
	breakDepth    int
	continueDepth int
}

// ParseFunction parses body as the statement list of a function taking params.
// The returned literal is what Compile closes over.
func ParseFunction(params []string, body string) (*FuncLit, error) {
	for _, name := range params {
		if !isIdentifierName(name) || IsReserved(name) {
			return nil, &ParseError{Message: fmt.Sprintf("invalid parameter name %q", name)}
		}
	}
	toks, err := lex(body)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, funcDepth: 1}
	var stmts []Stmt
	for p.peek().typ != tokenEOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return &FuncLit{Name: "anonymous", Params: params, Body: stmts}, nil
}

func isIdentifierName(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.typ != tokenEOF {
		p.pos++
	}
	return t
}

func isWord(t token, val string) bool {
	return (t.typ == tokenPunct || t.typ == tokenIdent) && t.val == val
}

func (p *parser) is(val string) bool {
	return isWord(p.peek(), val)
}

func (p *parser) accept(val string) bool {
	if p.is(val) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(val string) (token, error) {
	t := p.peek()
	if !isWord(t, val) {
		return t, p.errorf(t, "expected %q, found %s", val, t)
	}
	return p.next(), nil
}

func (p *parser) errorf(t token, format string, args ...interface{}) error {
	return &ParseError{Pos: t.pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) unexpected(t token) error {
	return p.errorf(t, "unexpected %s", t)
}

// semicolon consumes a statement terminator, inserting one where a line
// break, a closing brace or the end of input allows it.
func (p *parser) semicolon() error {
	if p.accept(";") {
		return nil
	}
	t := p.peek()
	if t.typ == tokenEOF || isWord(t, "}") || t.newlineBefore {
		return nil
	}
	return p.unexpected(t)
}

func (p *parser) bindingName() (string, error) {
	t := p.next()
	if t.typ != tokenIdent {
		return "", p.errorf(t, "expected identifier, found %s", t)
	}
	if IsReserved(t.val) {
		return "", p.errorf(t, "unexpected reserved word %q", t.val)
	}
	return t.val, nil
}

func (p *parser) parseStatement() (Stmt, error) {
	t := p.peek()
	if t.typ == tokenIdent {
		switch t.val {
		case "var", "let", "const":
			decl, err := p.parseVarDecl()
			if err != nil {
				return nil, err
			}
			return decl, p.semicolon()
		case "if":
			return p.parseIf()
		case "for":
			return p.parseFor()
		case "while":
			return p.parseWhile()
		case "do":
			return p.parseDoWhile()
		case "switch":
			return p.parseSwitch()
		case "try":
			return p.parseTry()
		case "function":
			return p.parseFuncDecl()
		case "break":
			p.next()
			if p.breakDepth == 0 {
				return nil, p.errorf(t, "illegal break statement")
			}
			return &BreakStmt{position(t.pos)}, p.semicolon()
		case "continue":
			p.next()
			if p.continueDepth == 0 {
				return nil, p.errorf(t, "illegal continue statement")
			}
			return &ContinueStmt{position(t.pos)}, p.semicolon()
		case "return":
			return p.parseReturn()
		case "throw":
			p.next()
			if p.peek().newlineBefore {
				return nil, p.errorf(t, "illegal newline after throw")
			}
			x, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			return &ThrowStmt{position(t.pos), x}, p.semicolon()
		}
	}
	if isWord(t, "{") {
		return p.parseBlock()
	}
	if isWord(t, ";") {
		p.next()
		return &EmptyStmt{position(t.pos)}, nil
	}
	x, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ExprStmt{position(t.pos), x}, p.semicolon()
}

func (p *parser) parseBlock() (*BlockStmt, error) {
	open, err := p.expect("{")
	if err != nil {
		return nil, err
	}
	block := &BlockStmt{position: position(open.pos)}
	for !p.is("}") {
		if p.peek().typ == tokenEOF {
			return nil, p.errorf(p.peek(), "unexpected end of input, missing '}'")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Body = append(block.Body, stmt)
	}
	p.next()
	return block, nil
}

func (p *parser) parseVarDecl() (*VarDecl, error) {
	t := p.next()
	decl := &VarDecl{position: position(t.pos)}
	for {
		name, err := p.bindingName()
		if err != nil {
			return nil, err
		}
		binding := VarBinding{Name: name}
		if p.accept("=") {
			if binding.Init, err = p.parseAssign(); err != nil {
				return nil, err
			}
		}
		decl.Bindings = append(decl.Bindings, binding)
		if !p.accept(",") {
			return decl, nil
		}
	}
}

func (p *parser) parseIf() (Stmt, error) {
	t := p.next()
	cond, err := p.parseParenExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	stmt := &IfStmt{position: position(t.pos), Cond: cond, Then: then}
	if p.accept("else") {
		if stmt.Else, err = p.parseStatement(); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *parser) parseParenExpr() (Expr, error) {
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	x, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	return x, nil
}

func (p *parser) parseLoopBody() (Stmt, error) {
	p.breakDepth++
	p.continueDepth++
	defer func() {
		p.breakDepth--
		p.continueDepth--
	}()
	return p.parseStatement()
}

func isDeclKeyword(t token) bool {
	return isWord(t, "var") || isWord(t, "let") || isWord(t, "const")
}

func (p *parser) parseFor() (Stmt, error) {
	t := p.next()
	if _, err := p.expect("("); err != nil {
		return nil, err
	}

	// for (var key in object) / for (key in object)
	if isDeclKeyword(p.peek()) && p.peekAt(1).typ == tokenIdent && isWord(p.peekAt(2), "in") {
		p.next()
		return p.parseForIn(t, true)
	}
	if p.peek().typ == tokenIdent && !IsReserved(p.peek().val) && isWord(p.peekAt(1), "in") {
		return p.parseForIn(t, false)
	}

	stmt := &ForStmt{position: position(t.pos)}
	var err error
	switch {
	case p.is(";"):
	case isDeclKeyword(p.peek()):
		if stmt.Init, err = p.parseVarDecl(); err != nil {
			return nil, err
		}
	default:
		start := p.peek()
		x, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		stmt.Init = &ExprStmt{position(start.pos), x}
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	if !p.is(";") {
		if stmt.Cond, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	if !p.is(")") {
		if stmt.Update, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	if stmt.Body, err = p.parseLoopBody(); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *parser) parseForIn(t token, declare bool) (Stmt, error) {
	name, err := p.bindingName()
	if err != nil {
		return nil, err
	}
	p.next() // in
	obj, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	body, err := p.parseLoopBody()
	if err != nil {
		return nil, err
	}
	return &ForInStmt{position: position(t.pos), Name: name, Declare: declare, Object: obj, Body: body}, nil
}

func (p *parser) parseWhile() (Stmt, error) {
	t := p.next()
	cond, err := p.parseParenExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseLoopBody()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{position: position(t.pos), Cond: cond, Body: body}, nil
}

func (p *parser) parseDoWhile() (Stmt, error) {
	t := p.next()
	body, err := p.parseLoopBody()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("while"); err != nil {
		return nil, err
	}
	cond, err := p.parseParenExpr()
	if err != nil {
		return nil, err
	}
	p.accept(";")
	return &DoWhileStmt{position: position(t.pos), Body: body, Cond: cond}, nil
}

func (p *parser) parseSwitch() (Stmt, error) {
	t := p.next()
	disc, err := p.parseParenExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	p.breakDepth++
	defer func() { p.breakDepth-- }()

	stmt := &SwitchStmt{position: position(t.pos), Disc: disc}
	seenDefault := false
	for !p.accept("}") {
		var c SwitchCase
		switch tok := p.next(); {
		case isWord(tok, "case"):
			if c.Test, err = p.parseExpression(); err != nil {
				return nil, err
			}
		case isWord(tok, "default"):
			if seenDefault {
				return nil, p.errorf(tok, "more than one default clause in switch statement")
			}
			seenDefault = true
		default:
			return nil, p.unexpected(tok)
		}
		if _, err := p.expect(":"); err != nil {
			return nil, err
		}
		for !p.is("case") && !p.is("default") && !p.is("}") {
			if p.peek().typ == tokenEOF {
				return nil, p.errorf(p.peek(), "unexpected end of input, missing '}'")
			}
			s, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			c.Body = append(c.Body, s)
		}
		stmt.Cases = append(stmt.Cases, c)
	}
	return stmt, nil
}

func (p *parser) parseTry() (Stmt, error) {
	t := p.next()
	block, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &TryStmt{position: position(t.pos), Block: block}
	if p.accept("catch") {
		if _, err := p.expect("("); err != nil {
			return nil, err
		}
		if stmt.Param, err = p.bindingName(); err != nil {
			return nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		if stmt.Catch, err = p.parseBlock(); err != nil {
			return nil, err
		}
	}
	if p.accept("finally") {
		if stmt.Finally, err = p.parseBlock(); err != nil {
			return nil, err
		}
	}
	if stmt.Catch == nil && stmt.Finally == nil {
		return nil, p.errorf(t, "missing catch or finally after try")
	}
	return stmt, nil
}

func (p *parser) parseFuncDecl() (Stmt, error) {
	t := p.peek()
	fn, err := p.parseFuncLit()
	if err != nil {
		return nil, err
	}
	if fn.Name == "" {
		return nil, p.errorf(t, "function statement requires a name")
	}
	return &FuncDecl{position(t.pos), fn}, nil
}

func (p *parser) parseReturn() (Stmt, error) {
	t := p.next()
	if p.funcDepth == 0 {
		return nil, p.errorf(t, "illegal return statement")
	}
	stmt := &ReturnStmt{position: position(t.pos)}
	next := p.peek()
	if next.typ == tokenEOF || next.newlineBefore || isWord(next, ";") || isWord(next, "}") {
		return stmt, p.semicolon()
	}
	x, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	stmt.X = x
	return stmt, p.semicolon()
}

func (p *parser) parseExpression() (Expr, error) {
	start := p.peek()
	x, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if !p.is(",") {
		return x, nil
	}
	seq := &SeqExpr{position: position(start.pos), List: []Expr{x}}
	for p.accept(",") {
		x, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		seq.List = append(seq.List, x)
	}
	return seq, nil
}

func isAssignable(x Expr) bool {
	switch x.(type) {
	case *Ident, *MemberExpr:
		return true
	}
	return false
}

func (p *parser) parseAssign() (Expr, error) {
	start := p.peek()
	left, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.typ != tokenPunct || !assignOps[t.val] {
		return left, nil
	}
	if !isAssignable(left) {
		return nil, p.errorf(t, "invalid left-hand side in assignment")
	}
	p.next()
	right, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	return &AssignExpr{position: position(start.pos), Op: t.val, Target: left, Value: right}, nil
}

func (p *parser) parseConditional() (Expr, error) {
	start := p.peek()
	test, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if !p.accept("?") {
		return test, nil
	}
	then, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(":"); err != nil {
		return nil, err
	}
	els, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	return &CondExpr{position: position(start.pos), Test: test, Then: then, Else: els}, nil
}

func binaryOp(t token) (string, int, bool) {
	if t.typ == tokenPunct || (t.typ == tokenIdent && t.val == "in") {
		if prec, ok := binaryPrecedence[t.val]; ok {
			return t.val, prec, true
		}
	}
	return "", 0, false
}

func (p *parser) parseBinary(minPrec int) (Expr, error) {
	start := p.peek()
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, prec, ok := binaryOp(p.peek())
		if !ok || prec < minPrec {
			return left, nil
		}
		p.next()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		if op == "&&" || op == "||" {
			left = &LogicalExpr{position: position(start.pos), Op: op, L: left, R: right}
		} else {
			left = &BinaryExpr{position: position(start.pos), Op: op, L: left, R: right}
		}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	t := p.peek()
	switch {
	case t.typ == tokenPunct && (t.val == "!" || t.val == "-" || t.val == "+"),
		t.typ == tokenIdent && (t.val == "typeof" || t.val == "void" || t.val == "delete"):
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if t.val == "delete" {
			if _, ok := x.(*MemberExpr); !ok {
				return nil, p.errorf(t, "delete requires a property reference")
			}
		}
		return &UnaryExpr{position: position(t.pos), Op: t.val, X: x}, nil
	case t.typ == tokenPunct && (t.val == "++" || t.val == "--"):
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if !isAssignable(x) {
			return nil, p.errorf(t, "invalid left-hand side expression in prefix operation")
		}
		return &UpdateExpr{position: position(t.pos), Op: t.val, Prefix: true, X: x}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (Expr, error) {
	start := p.peek()
	x, err := p.parseCallMember()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.typ == tokenPunct && (t.val == "++" || t.val == "--") && !t.newlineBefore {
		if !isAssignable(x) {
			return nil, p.errorf(t, "invalid left-hand side expression in postfix operation")
		}
		p.next()
		return &UpdateExpr{position: position(start.pos), Op: t.val, X: x}, nil
	}
	return x, nil
}

func (p *parser) parseCallMember() (Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		switch {
		case isWord(t, "."):
			p.next()
			name := p.next()
			if name.typ != tokenIdent {
				return nil, p.errorf(name, "unexpected %s after '.'", name)
			}
			x = &MemberExpr{position: position(t.pos), Object: x, Property: &Literal{position(name.pos), name.val}}
		case isWord(t, "["):
			p.next()
			prop, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect("]"); err != nil {
				return nil, err
			}
			x = &MemberExpr{position: position(t.pos), Object: x, Property: prop, Computed: true}
		case isWord(t, "("):
			p.next()
			args, err := p.parseArguments()
			if err != nil {
				return nil, err
			}
			x = &CallExpr{position: position(t.pos), Callee: x, Args: args}
		default:
			return x, nil
		}
	}
}

func (p *parser) parseArguments() ([]Expr, error) {
	var args []Expr
	for !p.accept(")") {
		if len(args) > 0 {
			if _, err := p.expect(","); err != nil {
				return nil, err
			}
			if p.accept(")") {
				break
			}
		}
		arg, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.peek()
	switch t.typ {
	case tokenNumber:
		p.next()
		return &Literal{position(t.pos), t.num}, nil
	case tokenString:
		p.next()
		return &Literal{position(t.pos), t.val}, nil
	case tokenIdent:
		switch t.val {
		case "true", "false":
			p.next()
			return &Literal{position(t.pos), t.val == "true"}, nil
		case "null":
			p.next()
			return &Literal{position(t.pos), nil}, nil
		case "function":
			return p.parseFuncLit()
		}
		if IsReserved(t.val) {
			return nil, p.errorf(t, "unexpected reserved word %q", t.val)
		}
		p.next()
		return &Ident{position(t.pos), t.val}, nil
	case tokenPunct:
		switch t.val {
		case "(":
			p.next()
			x, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			return x, nil
		case "[":
			return p.parseArrayLit()
		case "{":
			return p.parseObjectLit()
		}
	}
	return nil, p.unexpected(t)
}

func (p *parser) parseArrayLit() (Expr, error) {
	t := p.next()
	arr := &ArrayLit{position: position(t.pos)}
	for !p.accept("]") {
		if len(arr.Elems) > 0 {
			if _, err := p.expect(","); err != nil {
				return nil, err
			}
			if p.accept("]") {
				break
			}
		}
		elem, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		arr.Elems = append(arr.Elems, elem)
	}
	return arr, nil
}

func (p *parser) parseObjectLit() (Expr, error) {
	t := p.next()
	obj := &ObjectLit{position: position(t.pos)}
	for !p.accept("}") {
		if len(obj.Props) > 0 {
			if _, err := p.expect(","); err != nil {
				return nil, err
			}
			if p.accept("}") {
				break
			}
		}
		key := p.next()
		switch key.typ {
		case tokenIdent, tokenString, tokenNumber:
		default:
			return nil, p.errorf(key, "unexpected %s in object literal", key)
		}
		name := key.val
		if key.typ == tokenNumber {
			name = formatNumber(key.num)
		}
		if _, err := p.expect(":"); err != nil {
			return nil, err
		}
		value, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		obj.Props = append(obj.Props, Property{Key: name, Value: value})
	}
	return obj, nil
}

func (p *parser) parseFuncLit() (*FuncLit, error) {
	t := p.next() // function
	fn := &FuncLit{position: position(t.pos)}
	if p.peek().typ == tokenIdent && !p.is("(") {
		name, err := p.bindingName()
		if err != nil {
			return nil, err
		}
		fn.Name = name
	}
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	for !p.accept(")") {
		if len(fn.Params) > 0 {
			if _, err := p.expect(","); err != nil {
				return nil, err
			}
		}
		name, err := p.bindingName()
		if err != nil {
			return nil, err
		}
		fn.Params = append(fn.Params, name)
	}

	savedBreak, savedContinue := p.breakDepth, p.continueDepth
	p.breakDepth, p.continueDepth = 0, 0
	p.funcDepth++
	body, err := p.parseBlock()
	p.funcDepth--
	p.breakDepth, p.continueDepth = savedBreak, savedContinue
	if err != nil {
		return nil, err
	}
	fn.Body = body.Body
	return fn, nil
}
