package main

import (
	"text/scanner"
)

type Sym string

func (s Sym) Eval(vm *VM) error {
	name := string(s)
	if name[0] == ':' {
		vm.Push(vm.GetVal(name[1:]))
		return nil
	}
	if method := vm.FindMethod(name); method != nil {
		return method(vm)
	}
	if word := vm.GetVal(name); word != nil {
		if _, ok := word.(Vec); ok {
			return vm.Eval(word)
		}
		if fun, ok := word.(Fun); ok {
			return fun(vm)
		}
		vm.Push(word)
		return nil
	}
	return vm.Errorf("word or method not found: %s", name)
}

func (s Sym) Equal(other Val) bool {
	switch rhs := other.(type) {
	case Sym:
		return s == rhs
	case Word:
		return s == rhs.Sym
	default:
		return false
	}
}

// Word is a symbol read from source together with its position.
type Word struct {
	Sym
	Pos scanner.Position
}

func (w Word) Eval(vm *VM) error {
	vm.currentPos = w.Pos
	return w.Sym.Eval(vm)
}

func (w Word) String() string {
	return string(w.Sym)
}
