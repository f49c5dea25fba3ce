package main

type NilType struct{}

func (NilType) String() string { return "nil" }

func (NilType) Eval(vm *VM) error {
	vm.Push(Nil)
	return nil
}

var Nil = NilType{}
