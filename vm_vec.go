package main

import (
	"fmt"
)

type Vec []Val

func (v Vec) String() string {
	return fmt.Sprintf("%v", []Val(v))
}

func (v Vec) Eval(vm *VM) error {
	for _, val := range v {
		if err := vm.Eval(val); err != nil {
			return err
		}
	}
	return nil
}

func (v Vec) Equal(other Val) bool {
	switch rhs := other.(type) {
	case Vec:
		if len(v) != len(rhs) {
			return false
		}
		for index, item := range v {
			if !Equal(item, rhs[index]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// definesWords reports which of names are bound with a top-level `>name`
// outside of any quotation.
func (v Vec) definesWords(names ...string) map[string]bool {
	found := make(map[string]bool, len(names))
	depth := 0
	for i, val := range v {
		switch {
		case val == Sym("{"):
			depth++
		case val == Sym("}"):
			depth--
		case depth == 0 && i > 0 && Sym("set").Equal(val):
			if name, ok := v[i-1].(Str); ok {
				for _, want := range names {
					if string(name) == want {
						found[want] = true
					}
				}
			}
		}
	}
	return found
}

func init() {
	RegisterMethod[Vec]("len", 1, func(vm *VM) error {
		v, err := Pop[Vec](vm)
		if err != nil {
			return err
		}
		vm.Push(len(v))
		return nil
	})
	RegisterMethod[Vec]("at", 2, func(vm *VM) error {
		indexNum, err := Pop[Num](vm)
		if err != nil {
			return err
		}
		v, err := Pop[Vec](vm)
		if err != nil {
			return err
		}
		index := int(indexNum)
		if index < 0 || index >= len(v) {
			return vm.Errorf("at: index out of bounds: %d", index)
		}
		vm.Push(v[index])
		return nil
	})
	RegisterMethod[Vec]("append", 2, func(vm *VM) error {
		item := vm.Pop()
		v, err := Pop[Vec](vm)
		if err != nil {
			return err
		}
		vm.Push(append(v[:len(v):len(v)], item))
		return nil
	})
	RegisterMethod[Vec]("each", 2, func(vm *VM) error {
		e, err := Pop[Evaler](vm)
		if err != nil {
			return err
		}
		v, err := Pop[Vec](vm)
		if err != nil {
			return err
		}
		for _, item := range v {
			vm.Push(item)
			if err := e.Eval(vm); err != nil {
				return err
			}
		}
		return nil
	})
	RegisterMethod[Vec]("map", 2, func(vm *VM) error {
		e, err := Pop[Evaler](vm)
		if err != nil {
			return err
		}
		v, err := Pop[Vec](vm)
		if err != nil {
			return err
		}
		mapped := make(Vec, 0, len(v))
		for _, item := range v {
			vm.Push(item)
			if err := e.Eval(vm); err != nil {
				return err
			}
			mapped = append(mapped, vm.Pop())
		}
		vm.Push(mapped)
		return nil
	})
	RegisterMethod[Vec]("reduce", 2, func(vm *VM) error {
		e, err := Pop[Evaler](vm)
		if err != nil {
			return err
		}
		v, err := Pop[Vec](vm)
		if err != nil {
			return err
		}
		if len(v) == 0 {
			vm.Push(Nil)
			return nil
		}
		vm.Push(v[0])
		for i := 1; i < len(v); i++ {
			vm.Push(v[i])
			if err := e.Eval(vm); err != nil {
				return err
			}
		}
		return nil
	})
}
