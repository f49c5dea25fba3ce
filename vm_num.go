package main

import (
	"math"
	"strconv"
)

type Num float64

func (n Num) Eval(vm *VM) error {
	vm.Push(n)
	return nil
}

func (n Num) Equal(other Val) bool {
	switch rhs := other.(type) {
	case Num:
		return n == rhs
	default:
		return false
	}
}

func (n Num) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

func registerBinaryNum(name string, op func(lhs, rhs Num) (Val, error)) {
	RegisterMethod[Num](name, 2, func(vm *VM) error {
		rhs, err := Pop[Num](vm)
		if err != nil {
			return err
		}
		lhs, err := Pop[Num](vm)
		if err != nil {
			return err
		}
		result, err := op(lhs, rhs)
		if err != nil {
			return err
		}
		vm.Push(result)
		return nil
	})
}

func registerUnaryNum(name string, op func(x float64) float64) {
	RegisterMethod[Num](name, 1, func(vm *VM) error {
		x, err := Pop[Num](vm)
		if err != nil {
			return err
		}
		vm.Push(op(float64(x)))
		return nil
	})
}

func init() {
	registerBinaryNum("+", func(lhs, rhs Num) (Val, error) { return lhs + rhs, nil })
	registerBinaryNum("-", func(lhs, rhs Num) (Val, error) { return lhs - rhs, nil })
	registerBinaryNum("*", func(lhs, rhs Num) (Val, error) { return lhs * rhs, nil })
	registerBinaryNum("/", func(lhs, rhs Num) (Val, error) {
		if rhs == 0 {
			return Num(0), nil
		}
		return lhs / rhs, nil
	})
	registerBinaryNum("mod", func(lhs, rhs Num) (Val, error) {
		if rhs == 0 {
			return Num(0), nil
		}
		return Num(math.Mod(float64(lhs), float64(rhs))), nil
	})
	registerBinaryNum("min", func(lhs, rhs Num) (Val, error) { return min(lhs, rhs), nil })
	registerBinaryNum("max", func(lhs, rhs Num) (Val, error) { return max(lhs, rhs), nil })
	registerBinaryNum("pow", func(lhs, rhs Num) (Val, error) {
		return Num(math.Pow(float64(lhs), float64(rhs))), nil
	})
	registerBinaryNum("<", func(lhs, rhs Num) (Val, error) { return AsVal(lhs < rhs), nil })
	registerBinaryNum("<=", func(lhs, rhs Num) (Val, error) { return AsVal(lhs <= rhs), nil })
	registerBinaryNum(">", func(lhs, rhs Num) (Val, error) { return AsVal(lhs > rhs), nil })
	registerBinaryNum(">=", func(lhs, rhs Num) (Val, error) { return AsVal(lhs >= rhs), nil })

	registerUnaryNum("neg", func(x float64) float64 { return -x })
	registerUnaryNum("abs", math.Abs)
	registerUnaryNum("sqrt", func(x float64) float64 { return math.Sqrt(max(x, 0)) })
	registerUnaryNum("sin", math.Sin)
	registerUnaryNum("cos", math.Cos)
	registerUnaryNum("floor", math.Floor)
	registerUnaryNum("ceil", math.Ceil)

	RegisterMethod[Num]("not", 1, func(vm *VM) error {
		arg, err := Pop[Num](vm)
		if err != nil {
			return err
		}
		vm.Push(arg == 0)
		return nil
	})

	RegisterMethod[Num]("lerp", 3, func(vm *VM) error {
		args, err := PopNums(vm, 3)
		if err != nil {
			return err
		}
		a, b, t := args[0], args[1], args[2]
		vm.Push(a + (b-a)*t)
		return nil
	})

	RegisterNum("pi", math.Pi)
}
