package main

import (
	"fmt"
)

type Map map[Val]Val

func (m Map) String() string {
	return fmt.Sprintf("%v", map[Val]Val(m))
}

func (m Map) GetVal(k any) Val {
	key := AsVal(k)
	return m[key]
}

func (m Map) SetVal(k, v any) {
	key := AsVal(k)
	val := AsVal(v)
	m[key] = val
}

func (m Map) Eval(vm *VM) error {
	vm.Push(m)
	return nil
}

func init() {
	RegisterMethod[Map]("at", 2, func(vm *VM) error {
		key := vm.Pop()
		m, err := Pop[Map](vm)
		if err != nil {
			return err
		}
		if v := m.GetVal(key); v != nil {
			vm.Push(v)
		} else {
			vm.Push(Nil)
		}
		return nil
	})
}
