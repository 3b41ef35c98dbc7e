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
	"math"
	"strings"
)

// maxCallDepth bounds script recursion so a runaway template cannot exhaust
// the goroutine stack.
const maxCallDepth = 256

type completion int

const (
	normalCompletion completion = iota
	breakCompletion
	continueCompletion
	returnCompletion
)

type runtime struct {
	depth int
}

type scope struct {
	vars   map[string]Value
	parent *scope
	fn     bool
	rt     *runtime
}

func newScope(parent *scope, fn bool) *scope {
	s := &scope{vars: map[string]Value{}, parent: parent, fn: fn}
	if parent != nil {
		s.rt = parent.rt
	}
	return s
}

var globals = map[string]Value{
	"undefined": Undefined,
	"NaN":       math.NaN(),
	"Infinity":  math.Inf(1),
}

func (s *scope) lookup(name string) (Value, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	v, ok := globals[name]
	return v, ok
}

func (s *scope) assign(name string, v Value) error {
	for cur := s; cur != nil; cur = cur.parent {
		if _, ok := cur.vars[name]; ok {
			cur.vars[name] = v
			return nil
		}
	}
	return &Fault{Value: NewError("ReferenceError", name+" is not defined")}
}

// declare binds name in the nearest function scope.
func (s *scope) declare(name string, v Value) {
	cur := s
	for !cur.fn && cur.parent != nil {
		cur = cur.parent
	}
	cur.vars[name] = v
}

func callFunction(f *Function, args []Value) (Value, error) {
	rt := f.scope.rt
	if rt == nil {
		rt = &runtime{}
	}
	if rt.depth >= maxCallDepth {
		return nil, rangeErrorf("Maximum call stack size exceeded")
	}
	rt.depth++
	defer func() { rt.depth-- }()

	s := newScope(f.scope, true)
	s.rt = rt
	if f.lit.Name != "" {
		s.vars[f.lit.Name] = f
	}
	for i, p := range f.lit.Params {
		s.vars[p] = callArg(args, i)
	}
	hoist(f.lit.Body, s)

	c, v, err := execList(f.lit.Body, s)
	if err != nil {
		return nil, err
	}
	if c == returnCompletion {
		return v, nil
	}
	return Undefined, nil
}

// hoist pre-declares var bindings and function declarations of a function
// body, without descending into nested functions.
func hoist(stmts []Stmt, s *scope) {
	for _, stmt := range stmts {
		hoistStmt(stmt, s)
	}
}

func hoistStmt(stmt Stmt, s *scope) {
	declare := func(name string) {
		if _, ok := s.vars[name]; !ok {
			s.vars[name] = Undefined
		}
	}
	switch st := stmt.(type) {
	case *VarDecl:
		for _, b := range st.Bindings {
			declare(b.Name)
		}
	case *FuncDecl:
		s.vars[st.Func.Name] = &Function{lit: st.Func, scope: s}
	case *BlockStmt:
		hoist(st.Body, s)
	case *IfStmt:
		hoistStmt(st.Then, s)
		if st.Else != nil {
			hoistStmt(st.Else, s)
		}
	case *ForStmt:
		if st.Init != nil {
			hoistStmt(st.Init, s)
		}
		hoistStmt(st.Body, s)
	case *ForInStmt:
		if st.Declare {
			declare(st.Name)
		}
		hoistStmt(st.Body, s)
	case *WhileStmt:
		hoistStmt(st.Body, s)
	case *DoWhileStmt:
		hoistStmt(st.Body, s)
	case *SwitchStmt:
		for _, c := range st.Cases {
			hoist(c.Body, s)
		}
	case *TryStmt:
		hoist(st.Block.Body, s)
		if st.Catch != nil {
			hoist(st.Catch.Body, s)
		}
		if st.Finally != nil {
			hoist(st.Finally.Body, s)
		}
	}
}

func execList(stmts []Stmt, s *scope) (completion, Value, error) {
	for _, stmt := range stmts {
		c, v, err := exec(stmt, s)
		if err != nil || c != normalCompletion {
			return c, v, err
		}
	}
	return normalCompletion, nil, nil
}

func exec(stmt Stmt, s *scope) (completion, Value, error) {
	switch st := stmt.(type) {
	case *ExprStmt:
		_, err := eval(st.X, s)
		return normalCompletion, nil, err
	case *VarDecl:
		for _, b := range st.Bindings {
			if b.Init == nil {
				continue
			}
			v, err := eval(b.Init, s)
			if err != nil {
				return normalCompletion, nil, err
			}
			if err := s.assign(b.Name, v); err != nil {
				s.declare(b.Name, v)
			}
		}
		return normalCompletion, nil, nil
	case *BlockStmt:
		return execList(st.Body, s)
	case *IfStmt:
		cond, err := eval(st.Cond, s)
		if err != nil {
			return normalCompletion, nil, err
		}
		if ToBoolean(cond) {
			return exec(st.Then, s)
		}
		if st.Else != nil {
			return exec(st.Else, s)
		}
		return normalCompletion, nil, nil
	case *ForStmt:
		return execFor(st, s)
	case *ForInStmt:
		return execForIn(st, s)
	case *WhileStmt:
		for {
			cond, err := eval(st.Cond, s)
			if err != nil {
				return normalCompletion, nil, err
			}
			if !ToBoolean(cond) {
				return normalCompletion, nil, nil
			}
			c, v, err := exec(st.Body, s)
			if stop, rc, rv, rerr := loopControl(c, v, err); stop {
				return rc, rv, rerr
			}
		}
	case *DoWhileStmt:
		for {
			c, v, err := exec(st.Body, s)
			if stop, rc, rv, rerr := loopControl(c, v, err); stop {
				return rc, rv, rerr
			}
			cond, err := eval(st.Cond, s)
			if err != nil {
				return normalCompletion, nil, err
			}
			if !ToBoolean(cond) {
				return normalCompletion, nil, nil
			}
		}
	case *SwitchStmt:
		return execSwitch(st, s)
	case *BreakStmt:
		return breakCompletion, nil, nil
	case *ContinueStmt:
		return continueCompletion, nil, nil
	case *ReturnStmt:
		if st.X == nil {
			return returnCompletion, Undefined, nil
		}
		v, err := eval(st.X, s)
		if err != nil {
			return normalCompletion, nil, err
		}
		return returnCompletion, v, nil
	case *ThrowStmt:
		v, err := eval(st.X, s)
		if err != nil {
			return normalCompletion, nil, err
		}
		f := &Fault{Value: v}
		if obj, ok := v.(*Object); ok {
			f.Cause = obj.cause
		}
		return normalCompletion, nil, f
	case *TryStmt:
		return execTry(st, s)
	case *FuncDecl, *EmptyStmt:
		return normalCompletion, nil, nil
	}
	return normalCompletion, nil, fmt.Errorf("unsupported statement %T", stmt)
}

// loopControl folds a loop body completion. stop is true when the loop must
// exit, carrying the completion to propagate.
func loopControl(c completion, v Value, err error) (stop bool, rc completion, rv Value, rerr error) {
	if err != nil {
		return true, normalCompletion, nil, err
	}
	switch c {
	case breakCompletion:
		return true, normalCompletion, nil, nil
	case returnCompletion:
		return true, c, v, nil
	}
	return false, normalCompletion, nil, nil
}

func execFor(st *ForStmt, s *scope) (completion, Value, error) {
	if st.Init != nil {
		if _, _, err := exec(st.Init, s); err != nil {
			return normalCompletion, nil, err
		}
	}
	for {
		if st.Cond != nil {
			cond, err := eval(st.Cond, s)
			if err != nil {
				return normalCompletion, nil, err
			}
			if !ToBoolean(cond) {
				return normalCompletion, nil, nil
			}
		}
		c, v, err := exec(st.Body, s)
		if stop, rc, rv, rerr := loopControl(c, v, err); stop {
			return rc, rv, rerr
		}
		if st.Update != nil {
			if _, err := eval(st.Update, s); err != nil {
				return normalCompletion, nil, err
			}
		}
	}
}

func execForIn(st *ForInStmt, s *scope) (completion, Value, error) {
	obj, err := eval(st.Object, s)
	if err != nil {
		return normalCompletion, nil, err
	}
	for _, key := range Keys(obj) {
		if err := s.assign(st.Name, key); err != nil {
			if !st.Declare {
				return normalCompletion, nil, err
			}
			s.declare(st.Name, key)
		}
		c, v, err := exec(st.Body, s)
		if stop, rc, rv, rerr := loopControl(c, v, err); stop {
			return rc, rv, rerr
		}
	}
	return normalCompletion, nil, nil
}

func execSwitch(st *SwitchStmt, s *scope) (completion, Value, error) {
	disc, err := eval(st.Disc, s)
	if err != nil {
		return normalCompletion, nil, err
	}
	start := -1
	for i, c := range st.Cases {
		if c.Test == nil {
			continue
		}
		v, err := eval(c.Test, s)
		if err != nil {
			return normalCompletion, nil, err
		}
		if StrictEquals(disc, v) {
			start = i
			break
		}
	}
	if start < 0 {
		for i, c := range st.Cases {
			if c.Test == nil {
				start = i
				break
			}
		}
	}
	if start < 0 {
		return normalCompletion, nil, nil
	}
	for _, c := range st.Cases[start:] {
		comp, v, err := execList(c.Body, s)
		if err != nil {
			return normalCompletion, nil, err
		}
		switch comp {
		case breakCompletion:
			return normalCompletion, nil, nil
		case continueCompletion, returnCompletion:
			return comp, v, nil
		}
	}
	return normalCompletion, nil, nil
}

func execTry(st *TryStmt, s *scope) (completion, Value, error) {
	c, v, err := exec(st.Block, s)
	if err != nil && st.Catch != nil {
		f := asFault(err)
		if obj, ok := f.Value.(*Object); ok && obj.cause == nil {
			obj.cause = f.Cause
		}
		cs := newScope(s, false)
		cs.vars[st.Param] = f.Value
		c, v, err = exec(st.Catch, cs)
	}
	if st.Finally != nil {
		fc, fv, ferr := exec(st.Finally, s)
		if ferr != nil || fc != normalCompletion {
			return fc, fv, ferr
		}
	}
	return c, v, err
}

func eval(x Expr, s *scope) (Value, error) {
	switch e := x.(type) {
	case *Literal:
		return e.Value, nil
	case *Ident:
		v, ok := s.lookup(e.Name)
		if !ok {
			return nil, &Fault{Value: NewError("ReferenceError", e.Name+" is not defined")}
		}
		return v, nil
	case *ArrayLit:
		elems := make([]Value, len(e.Elems))
		for i, el := range e.Elems {
			v, err := eval(el, s)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return NewArray(elems...), nil
	case *ObjectLit:
		obj := NewObject()
		for _, p := range e.Props {
			v, err := eval(p.Value, s)
			if err != nil {
				return nil, err
			}
			obj.Set(p.Key, v)
		}
		return obj, nil
	case *FuncLit:
		return &Function{lit: e, scope: s}, nil
	case *MemberExpr:
		obj, key, err := evalMemberParts(e, s)
		if err != nil {
			return nil, err
		}
		return GetMember(obj, key)
	case *CallExpr:
		return evalCall(e, s)
	case *UnaryExpr:
		return evalUnary(e, s)
	case *UpdateExpr:
		old, err := eval(e.X, s)
		if err != nil {
			return nil, err
		}
		n := ToNumber(old)
		updated := n + 1
		if e.Op == "--" {
			updated = n - 1
		}
		if err := assignTo(e.X, updated, s); err != nil {
			return nil, err
		}
		if e.Prefix {
			return updated, nil
		}
		return n, nil
	case *BinaryExpr:
		l, err := eval(e.L, s)
		if err != nil {
			return nil, err
		}
		r, err := eval(e.R, s)
		if err != nil {
			return nil, err
		}
		return binary(e.Op, l, r)
	case *LogicalExpr:
		l, err := eval(e.L, s)
		if err != nil {
			return nil, err
		}
		if (e.Op == "&&") != ToBoolean(l) {
			return l, nil
		}
		return eval(e.R, s)
	case *CondExpr:
		test, err := eval(e.Test, s)
		if err != nil {
			return nil, err
		}
		if ToBoolean(test) {
			return eval(e.Then, s)
		}
		return eval(e.Else, s)
	case *AssignExpr:
		v, err := eval(e.Value, s)
		if err != nil {
			return nil, err
		}
		if e.Op != "=" {
			cur, err := eval(e.Target, s)
			if err != nil {
				return nil, err
			}
			if v, err = binary(strings.TrimSuffix(e.Op, "="), cur, v); err != nil {
				return nil, err
			}
		}
		if err := assignTo(e.Target, v, s); err != nil {
			return nil, err
		}
		return v, nil
	case *SeqExpr:
		var last Value = Undefined
		for _, item := range e.List {
			v, err := eval(item, s)
			if err != nil {
				return nil, err
			}
			last = v
		}
		return last, nil
	}
	return nil, fmt.Errorf("unsupported expression %T", x)
}

func evalMemberParts(e *MemberExpr, s *scope) (Value, Value, error) {
	obj, err := eval(e.Object, s)
	if err != nil {
		return nil, nil, err
	}
	key, err := eval(e.Property, s)
	if err != nil {
		return nil, nil, err
	}
	return obj, key, nil
}

func assignTo(target Expr, v Value, s *scope) error {
	switch t := target.(type) {
	case *Ident:
		return s.assign(t.Name, v)
	case *MemberExpr:
		obj, key, err := evalMemberParts(t, s)
		if err != nil {
			return err
		}
		return SetMember(obj, key, v)
	}
	return fmt.Errorf("invalid assignment target %T", target)
}

// describe renders a callee expression for "is not a function" messages.
func describe(x Expr) string {
	switch e := x.(type) {
	case *Ident:
		return e.Name
	case *MemberExpr:
		if lit, ok := e.Property.(*Literal); ok && !e.Computed {
			return describe(e.Object) + "." + ToString(lit.Value)
		}
		return describe(e.Object) + "[...]"
	case *CallExpr:
		return describe(e.Callee) + "(...)"
	}
	return "expression"
}

func evalCall(e *CallExpr, s *scope) (Value, error) {
	callee, err := eval(e.Callee, s)
	if err != nil {
		return nil, err
	}
	args := make([]Value, len(e.Args))
	for i, a := range e.Args {
		if args[i], err = eval(a, s); err != nil {
			return nil, err
		}
	}
	fn, ok := callee.(Callable)
	if !ok {
		return nil, typeErrorf("%s is not a function", describe(e.Callee))
	}
	v, err := invoke(fn, args)
	if err != nil {
		return nil, asFault(err)
	}
	return Normalize(v), nil
}

// invoke calls fn, turning a panic in native code into a fault that catch
// blocks can handle.
func invoke(fn Callable, args []Value) (v Value, err error) {
	if _, ok := fn.(*Function); !ok {
		defer func() {
			if r := recover(); r != nil {
				v, err = nil, PanicFault(r)
			}
		}()
	}
	return fn.Call(args)
}

func evalUnary(e *UnaryExpr, s *scope) (Value, error) {
	switch e.Op {
	case "typeof":
		if id, ok := e.X.(*Ident); ok {
			if _, found := s.lookup(id.Name); !found {
				return "undefined", nil
			}
		}
		v, err := eval(e.X, s)
		if err != nil {
			return nil, err
		}
		return TypeOf(v), nil
	case "delete":
		m := e.X.(*MemberExpr)
		obj, key, err := evalMemberParts(m, s)
		if err != nil {
			return nil, err
		}
		return DeleteMember(obj, key)
	}
	v, err := eval(e.X, s)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "!":
		return !ToBoolean(v), nil
	case "-":
		return -ToNumber(v), nil
	case "+":
		return ToNumber(v), nil
	case "void":
		return Undefined, nil
	}
	return nil, fmt.Errorf("unsupported unary operator %q", e.Op)
}

func toPrimitive(v Value) Value {
	v = Normalize(v)
	if isPrimitive(v) {
		return v
	}
	return ToString(v)
}

func binary(op string, l, r Value) (Value, error) {
	switch op {
	case "+":
		lp, rp := toPrimitive(l), toPrimitive(r)
		ls, lStr := lp.(string)
		rs, rStr := rp.(string)
		if lStr || rStr {
			if !lStr {
				ls = ToString(lp)
			}
			if !rStr {
				rs = ToString(rp)
			}
			return ls + rs, nil
		}
		return ToNumber(lp) + ToNumber(rp), nil
	case "-":
		return ToNumber(l) - ToNumber(r), nil
	case "*":
		return ToNumber(l) * ToNumber(r), nil
	case "/":
		return ToNumber(l) / ToNumber(r), nil
	case "%":
		return math.Mod(ToNumber(l), ToNumber(r)), nil
	case "==":
		return LooseEquals(l, r), nil
	case "!=":
		return !LooseEquals(l, r), nil
	case "===":
		return StrictEquals(l, r), nil
	case "!==":
		return !StrictEquals(l, r), nil
	case "<", ">", "<=", ">=":
		return compare(op, l, r), nil
	case "in":
		return HasMember(r, l)
	}
	return nil, fmt.Errorf("unsupported operator %q", op)
}

func compare(op string, l, r Value) bool {
	lp, rp := toPrimitive(l), toPrimitive(r)
	ls, lStr := lp.(string)
	rs, rStr := rp.(string)
	if lStr && rStr {
		switch op {
		case "<":
			return ls < rs
		case ">":
			return ls > rs
		case "<=":
			return ls <= rs
		default:
			return ls >= rs
		}
	}
	ln, rn := ToNumber(lp), ToNumber(rp)
	if math.IsNaN(ln) || math.IsNaN(rn) {
		return false
	}
	switch op {
	case "<":
		return ln < rn
	case ">":
		return ln > rn
	case "<=":
		return ln <= rn
	default:
		return ln >= rn
	}
}
