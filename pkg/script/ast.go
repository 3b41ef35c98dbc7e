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

// Node is implemented by every syntax tree node.
type Node interface {
	Pos() int
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

type position int

func (p position) Pos() int { return int(p) }

// Statements

type (
	VarDecl struct {
		position
		Bindings []VarBinding
	}

	VarBinding struct {
		Name string
		Init Expr // nil when declared without initializer
	}

	ExprStmt struct {
		position
		X Expr
	}

	BlockStmt struct {
		position
		Body []Stmt
	}

	IfStmt struct {
		position
		Cond Expr
		Then Stmt
		Else Stmt
	}

	ForStmt struct {
		position
		Init   Stmt // *VarDecl, *ExprStmt or nil
		Cond   Expr
		Update Expr
		Body   Stmt
	}

	ForInStmt struct {
		position
		Name    string
		Declare bool
		Object  Expr
		Body    Stmt
	}

	WhileStmt struct {
		position
		Cond Expr
		Body Stmt
	}

	DoWhileStmt struct {
		position
		Body Stmt
		Cond Expr
	}

	SwitchStmt struct {
		position
		Disc  Expr
		Cases []SwitchCase
	}

	SwitchCase struct {
		Test Expr // nil for default
		Body []Stmt
	}

	BreakStmt struct{ position }

	ContinueStmt struct{ position }

	ReturnStmt struct {
		position
		X Expr
	}

	ThrowStmt struct {
		position
		X Expr
	}

	TryStmt struct {
		position
		Block   *BlockStmt
		Param   string
		Catch   *BlockStmt
		Finally *BlockStmt
	}

	FuncDecl struct {
		position
		Func *FuncLit
	}

	EmptyStmt struct{ position }
)

func (*VarDecl) stmtNode()      {}
func (*ExprStmt) stmtNode()     {}
func (*BlockStmt) stmtNode()    {}
func (*IfStmt) stmtNode()       {}
func (*ForStmt) stmtNode()      {}
func (*ForInStmt) stmtNode()    {}
func (*WhileStmt) stmtNode()    {}
func (*DoWhileStmt) stmtNode()  {}
func (*SwitchStmt) stmtNode()   {}
func (*BreakStmt) stmtNode()    {}
func (*ContinueStmt) stmtNode() {}
func (*ReturnStmt) stmtNode()   {}
func (*ThrowStmt) stmtNode()    {}
func (*TryStmt) stmtNode()      {}
func (*FuncDecl) stmtNode()     {}
func (*EmptyStmt) stmtNode()    {}

// Expressions

type (
	Literal struct {
		position
		Value Value
	}

	Ident struct {
		position
		Name string
	}

	ArrayLit struct {
		position
		Elems []Expr
	}

	ObjectLit struct {
		position
		Props []Property
	}

	Property struct {
		Key   string
		Value Expr
	}

	FuncLit struct {
		position
		Name   string
		Params []string
		Body   []Stmt
	}

	MemberExpr struct {
		position
		Object   Expr
		Property Expr
		Computed bool
	}

	CallExpr struct {
		position
		Callee Expr
		Args   []Expr
	}

	UnaryExpr struct {
		position
		Op string
		X  Expr
	}

	UpdateExpr struct {
		position
		Op     string
		Prefix bool
		X      Expr
	}

	BinaryExpr struct {
		position
		Op   string
		L, R Expr
	}

	LogicalExpr struct {
		position
		Op   string
		L, R Expr
	}

	CondExpr struct {
		position
		Test, Then, Else Expr
	}

	AssignExpr struct {
		position
		Op     string
		Target Expr
		Value  Expr
	}

	SeqExpr struct {
		position
		List []Expr
	}
)

func (*Literal) exprNode()     {}
func (*Ident) exprNode()       {}
func (*ArrayLit) exprNode()    {}
func (*ObjectLit) exprNode()   {}
func (*FuncLit) exprNode()     {}
func (*MemberExpr) exprNode()  {}
func (*CallExpr) exprNode()    {}
func (*UnaryExpr) exprNode()   {}
func (*UpdateExpr) exprNode()  {}
func (*BinaryExpr) exprNode()  {}
func (*LogicalExpr) exprNode() {}
func (*CondExpr) exprNode()    {}
func (*AssignExpr) exprNode()  {}
func (*SeqExpr) exprNode()     {}
