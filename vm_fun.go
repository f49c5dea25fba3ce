package main

import (
	"reflect"
)

type Fun func(vm *VM) error

func (f Fun) Eval(vm *VM) error {
	return f(vm)
}

type Method struct {
	nargs int
	fun   Fun
}

type MethodMap map[string][]Method

func (mm MethodMap) RegisterMethod(name string, nargs int, fun Fun) {
	mm[name] = append(mm[name], Method{nargs, fun})
}

func (mm MethodMap) FindMethod(name string, nargs int) Fun {
	for _, method := range mm[name] {
		if method.nargs == nargs {
			return method.fun
		}
	}
	return nil
}

type TypeMethodMap map[reflect.Type]MethodMap

// typeMethods dispatches a word on the type of the value found nargs-1
// slots below the top of the stack.
var typeMethods = make(TypeMethodMap)

func RegisterMethod[T any](name string, nargs int, fun Fun) {
	t := reflect.TypeFor[T]()
	if _, ok := typeMethods[t]; !ok {
		typeMethods[t] = make(MethodMap)
	}
	typeMethods[t].RegisterMethod(name, nargs, fun)
}

func FindMethod(val Val, name string, nargs int) Fun {
	mm, ok := typeMethods[reflect.TypeOf(val)]
	if !ok {
		return nil
	}
	return mm.FindMethod(name, nargs)
}
