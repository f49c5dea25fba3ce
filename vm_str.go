package main

import (
	"fmt"
	"strconv"
)

type Str string

func (s Str) Eval(vm *VM) error {
	vm.Push(s)
	return nil
}

func (s Str) Equal(other Val) bool {
	rhs, ok := other.(Str)
	return ok && s == rhs
}

func (s Str) String() string {
	return string(s)
}

// scanFloat accepts decimal numbers and n/d fractions.
func scanFloat(text string) (float64, error) {
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f, nil
	}
	var nominator, denominator int
	var rest string
	n, _ := fmt.Sscanf(text, "%d/%d%s", &nominator, &denominator, &rest)
	if n == 2 && denominator != 0 {
		return float64(nominator) / float64(denominator), nil
	}
	return 0, fmt.Errorf("cannot parse float: %s", text)
}

func init() {
	RegisterMethod[Str]("num", 1, func(vm *VM) error {
		arg, err := Pop[Str](vm)
		if err != nil {
			return err
		}
		f, err := scanFloat(string(arg))
		if err != nil {
			return vm.Errorf("num: %w", err)
		}
		vm.Push(f)
		return nil
	})
}
