package main

import (
	"fmt"
	"math/rand/v2"
)

func truthy(v Val) bool {
	switch x := v.(type) {
	case Num:
		return x != 0
	case NilType:
		return false
	case nil:
		return false
	default:
		return true
	}
}

func init() {
	RegisterWord("nil", func(vm *VM) error {
		vm.Push(Nil)
		return nil
	})

	RegisterWord("true", func(vm *VM) error {
		vm.Push(True)
		return nil
	})

	RegisterWord("false", func(vm *VM) error {
		vm.Push(False)
		return nil
	})

	RegisterWord("log", func(vm *VM) error {
		v := vm.Top()
		logger.Info("sketch", "value", fmt.Sprintf("%v", v), "pos", vm.currentPos.String())
		return nil
	})

	RegisterWord("=", func(vm *VM) error {
		if len(vm.valStack) < 2 {
			return vm.Errorf("=: stack underflow")
		}
		rhs := vm.Pop()
		lhs := vm.Pop()
		vm.Push(Equal(lhs, rhs))
		return nil
	})

	RegisterWord("str", func(vm *VM) error {
		vm.Push(fmt.Sprintf("%v", vm.Pop()))
		return nil
	})

	RegisterWord("drop", func(vm *VM) error {
		return vm.DoDrop()
	})

	RegisterWord("nip", func(vm *VM) error {
		return vm.DoNip()
	})

	RegisterWord("dup", func(vm *VM) error {
		return vm.DoDup()
	})

	RegisterWord("swap", func(vm *VM) error {
		return vm.DoSwap()
	})

	RegisterWord("over", func(vm *VM) error {
		return vm.DoOver()
	})

	RegisterWord("(", func(vm *VM) error {
		return vm.DoPushEnv()
	})

	RegisterWord(")", func(vm *VM) error {
		return vm.DoPopEnv()
	})

	RegisterWord("[", func(vm *VM) error {
		return vm.DoMark()
	})

	RegisterWord("]", func(vm *VM) error {
		return vm.DoCollect()
	})

	RegisterWord("{", func(vm *VM) error {
		return vm.DoQuote()
	})

	RegisterWord("}", func(vm *VM) error {
		return vm.Errorf("unbalanced }")
	})

	// value name set
	RegisterWord("set", func(vm *VM) error {
		k, err := Pop[Str](vm)
		if err != nil {
			return err
		}
		if vm.StackSize() == 0 {
			return vm.Errorf("set %s: stack underflow", k)
		}
		vm.SetVal(k, vm.Pop())
		return nil
	})

	RegisterWord("get", func(vm *VM) error {
		k := vm.Pop()
		v := vm.GetVal(k)
		if v == nil {
			v = Nil
		}
		vm.Push(v)
		return nil
	})

	RegisterWord("call", func(vm *VM) error {
		e, err := Pop[Evaler](vm)
		if err != nil {
			return err
		}
		return e.Eval(vm)
	})

	// cond { then } if
	RegisterWord("if", func(vm *VM) error {
		body := vm.Pop()
		cond := vm.Pop()
		if truthy(cond) {
			return vm.Eval(body)
		}
		return nil
	})

	// cond { then } { else } ifelse
	RegisterWord("ifelse", func(vm *VM) error {
		elseBody := vm.Pop()
		thenBody := vm.Pop()
		cond := vm.Pop()
		if truthy(cond) {
			return vm.Eval(thenBody)
		}
		return vm.Eval(elseBody)
	})

	// n { i -- } times
	RegisterWord("times", func(vm *VM) error {
		body, err := Pop[Evaler](vm)
		if err != nil {
			return err
		}
		count, err := Pop[Num](vm)
		if err != nil {
			return err
		}
		for i := range int(count) {
			vm.Push(i)
			if err := body.Eval(vm); err != nil {
				return err
			}
		}
		return nil
	})

	// lo hi random
	RegisterWord("random", func(vm *VM) error {
		args, err := PopNums(vm, 2)
		if err != nil {
			return err
		}
		lo, hi := args[0], args[1]
		vm.Push(lo + rand.Float64()*(hi-lo))
		return nil
	})
}
