package main

import (
	"errors"
	"fmt"
	"io"
	"text/scanner"
	"unicode"
)

type Val = any

const (
	True  = Num(-1)
	False = Num(0)
)

// DefaultStepLimit bounds the number of values a single Call may evaluate.
const DefaultStepLimit = 1 << 20

var ErrStepLimit = errors.New("step limit exceeded")

func AsVal(x any) Val {
	switch v := x.(type) {
	case int:
		return Num(v)
	case float64:
		return Num(v)
	case float32:
		return Num(v)
	case string:
		return Str(v)
	case bool:
		if v {
			return True
		} else {
			return False
		}
	case nil:
		return Nil
	default:
		return x
	}
}

type Equaler interface {
	Equal(other Val) bool
}

func Equal(lhs, rhs Val) bool {
	if l, ok := lhs.(Equaler); ok {
		return l.Equal(rhs)
	}
	return lhs == rhs
}

type Evaler interface {
	Eval(vm *VM) error
}

// builtins is the only namespace sketch code can reach. It is shared by
// all VMs and never written after init.
var builtins = make(Map)

func RegisterNum(name string, num Num) {
	builtins.SetVal(name, num)
}

func RegisterWord(name string, fun Fun) {
	builtins.SetVal(name, fun)
}

// VM

type VM struct {
	valStack    Vec   // values
	envStack    []Map // environments
	markerStack []int // [] markers
	quoteBuffer Vec   // quoted code
	quoteDepth  int   // nesting level {... {.. {..} ..} ...}
	currentPos  scanner.Position
	steps       int
	stepLimit   int
	sketch      *sketchInstance
}

// NewVM returns a VM whose root environment holds the builtin words and
// whose global environment starts empty.
func NewVM() *VM {
	return &VM{
		valStack:    make(Vec, 0, 256),
		envStack:    []Map{builtins, make(Map)},
		markerStack: make([]int, 0, 16),
		stepLimit:   DefaultStepLimit,
	}
}

func (vm *VM) Reset() {
	vm.valStack = vm.valStack[:0]
	vm.envStack = vm.envStack[:2]
	vm.markerStack = vm.markerStack[:0]
	vm.quoteBuffer = nil
	vm.quoteDepth = 0
}

func (vm *VM) Errorf(format string, args ...any) error {
	return Err{Pos: vm.currentPos, Err: fmt.Errorf(format, args...)}
}

func (vm *VM) IsQuoting() bool {
	return vm.quoteDepth > 0
}

func (vm *VM) StackSize() int {
	return len(vm.valStack)
}

func (vm *VM) Push(v any) {
	vm.valStack = append(vm.valStack, AsVal(v))
}

func (vm *VM) Top() Val {
	stacksize := len(vm.valStack)
	if stacksize == 0 {
		return nil
	}
	return vm.valStack[stacksize-1]
}

func (vm *VM) Pop() Val {
	stacksize := len(vm.valStack)
	if stacksize == 0 {
		return nil
	}
	result := vm.valStack[stacksize-1]
	vm.valStack = vm.valStack[:stacksize-1]
	return result
}

func Pop[T Val](vm *VM) (T, error) {
	if len(vm.valStack) == 0 {
		return *new(T), vm.Errorf("stack underflow, expected %T", *new(T))
	}
	val := vm.Pop()
	if value, ok := val.(T); ok {
		return value, nil
	}
	return *new(T), vm.Errorf("top of value stack has type %T, expected %T", val, *new(T))
}

// PopNums pops n numbers; the deepest one comes first in the result.
func PopNums(vm *VM, n int) ([]float64, error) {
	out := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		num, err := Pop[Num](vm)
		if err != nil {
			return nil, err
		}
		out[i] = float64(num)
	}
	return out, nil
}

func (vm *VM) DoDrop() error {
	if len(vm.valStack) == 0 {
		return vm.Errorf("drop: stack underflow")
	}
	vm.Pop()
	return nil
}

func (vm *VM) DoNip() error {
	stackSize := len(vm.valStack)
	if stackSize < 2 {
		return vm.Errorf("nip: stack underflow")
	}
	vm.valStack[stackSize-2] = vm.valStack[stackSize-1]
	vm.valStack = vm.valStack[:stackSize-1]
	return nil
}

func (vm *VM) DoDup() error {
	if len(vm.valStack) == 0 {
		return vm.Errorf("dup: stack underflow")
	}
	vm.Push(vm.Top())
	return nil
}

func (vm *VM) DoSwap() error {
	stackSize := len(vm.valStack)
	if stackSize < 2 {
		return vm.Errorf("swap: stack underflow")
	}
	top := vm.valStack[stackSize-1]
	vm.valStack[stackSize-1] = vm.valStack[stackSize-2]
	vm.valStack[stackSize-2] = top
	return nil
}

func (vm *VM) DoOver() error {
	stackSize := len(vm.valStack)
	if stackSize < 2 {
		return vm.Errorf("over: stack underflow")
	}
	vm.Push(vm.valStack[stackSize-2])
	return nil
}

func (vm *VM) DoMark() error {
	vm.markerStack = append(vm.markerStack, len(vm.valStack))
	return nil
}

func (vm *VM) DoCollect() error {
	if len(vm.markerStack) == 0 {
		return vm.Errorf("collect: no active marker")
	}
	markerIndex := vm.markerStack[len(vm.markerStack)-1]
	vm.markerStack = vm.markerStack[:len(vm.markerStack)-1]
	if markerIndex > len(vm.valStack) {
		return vm.Errorf("collect: marker below stack")
	}
	result := make(Vec, len(vm.valStack)-markerIndex)
	copy(result, vm.valStack[markerIndex:])
	vm.valStack = vm.valStack[:markerIndex]
	vm.Push(result)
	return nil
}

func (vm *VM) DoQuote() error {
	vm.quoteDepth = 1
	vm.quoteBuffer = make(Vec, 0, 16)
	return nil
}

func (vm *VM) TopEnv() Map {
	return vm.envStack[len(vm.envStack)-1]
}

func (vm *VM) DoPushEnv() error {
	vm.envStack = append(vm.envStack, make(Map))
	return nil
}

func (vm *VM) DoPopEnv() error {
	if len(vm.envStack) <= 2 {
		return vm.Errorf("attempt to pop global env")
	}
	vm.envStack = vm.envStack[:len(vm.envStack)-1]
	return nil
}

// SetVal binds k in the innermost environment. The builtin root is never
// written.
func (vm *VM) SetVal(k, v any) {
	vm.TopEnv().SetVal(k, v)
}

// SetGlobal binds k in the global environment.
func (vm *VM) SetGlobal(k, v any) {
	vm.envStack[1].SetVal(k, v)
}

func (vm *VM) GetVal(k any) Val {
	for index := len(vm.envStack) - 1; index >= 0; index-- {
		if val := vm.envStack[index].GetVal(k); val != nil {
			return val
		}
	}
	return nil
}

func (vm *VM) GetGlobal(k any) Val {
	return vm.envStack[1].GetVal(k)
}

func (vm *VM) GetNum(k any) (Num, error) {
	val := vm.GetVal(k)
	if num, ok := val.(Num); ok {
		return num, nil
	}
	return 0, vm.Errorf("value at key %v is of type %T, expected Num", k, val)
}

func newScanner(r io.Reader, filename string) *scanner.Scanner {
	var s scanner.Scanner
	s.Init(r)
	s.Mode = scanner.ScanIdents | scanner.ScanStrings | scanner.ScanRawStrings
	s.IsIdentRune = func(ch rune, i int) bool {
		if unicode.IsSpace(ch) || unicode.IsControl(ch) {
			return false
		}
		switch ch {
		case '(', ')', '{', '}', '[', ']':
			return false
		}
		if i == 0 && (ch == '"' || ch == '`' || ch == '#') {
			return false
		}
		return ch != scanner.EOF
	}
	s.Filename = filename
	return &s
}

// Parse turns source text into code. Words carry their source position for
// error reporting.
func Parse(r io.Reader, filename string) (Vec, error) {
	s := newScanner(r, filename)
	var parseErr error
	s.Error = func(s *scanner.Scanner, msg string) {
		if parseErr == nil {
			parseErr = Err{Pos: s.Position, Err: errors.New(msg)}
		}
	}
	code := make(Vec, 0, 1024)
	for tok := s.Scan(); tok != scanner.EOF; tok = s.Scan() {
		if parseErr != nil {
			return nil, parseErr
		}
		switch tok {
		case scanner.String, scanner.RawString:
			text := s.TokenText()
			code = append(code, Str(text[1:len(text)-1]))
		case '#':
			for {
				ch := s.Next()
				if ch == '\n' || ch == scanner.EOF {
					break
				}
			}
		case '(', ')', '{', '}', '[', ']':
			code = append(code, Sym(string(tok)))
		case scanner.Ident:
			text := s.TokenText()
			if f, err := scanFloat(text); err == nil {
				code = append(code, Num(f))
				continue
			}
			pos := s.Position
			if len(text) > 1 {
				switch text[0] {
				case '@':
					code = append(code, Str(text[1:]), Word{Sym: "get", Pos: pos})
					continue
				case '>':
					if text != ">=" {
						code = append(code, Str(text[1:]), Word{Sym: "set", Pos: pos})
						continue
					}
				}
			}
			code = append(code, Word{Sym: Sym(text), Pos: pos})
		default:
			return nil, Err{Pos: s.Position, Err: fmt.Errorf("parse error: unexpected %q", s.TokenText())}
		}
	}
	if parseErr != nil {
		return nil, parseErr
	}
	if depth := quoteBalance(code); depth != 0 {
		return nil, Err{Pos: s.Position, Err: fmt.Errorf("unbalanced quotation: %d unclosed", depth)}
	}
	return code, nil
}

func quoteBalance(code Vec) int {
	depth := 0
	for _, val := range code {
		switch val {
		case Sym("{"):
			depth++
		case Sym("}"):
			depth--
		}
	}
	return depth
}

func (vm *VM) FindMethod(name string) Fun {
	nargs := 1
	for index := len(vm.valStack) - 1; index >= 0; index-- {
		if method := FindMethod(vm.valStack[index], name, nargs); method != nil {
			return method
		}
		nargs++
	}
	return nil
}

func (vm *VM) Eval(val Val) error {
	vm.steps++
	if vm.stepLimit > 0 && vm.steps > vm.stepLimit {
		return vm.Errorf("%w (%d)", ErrStepLimit, vm.stepLimit)
	}
	if vm.IsQuoting() {
		switch val {
		case Sym("{"):
			vm.quoteDepth++
			vm.quoteBuffer = append(vm.quoteBuffer, val)
		case Sym("}"):
			vm.quoteDepth--
			if vm.quoteDepth > 0 {
				vm.quoteBuffer = append(vm.quoteBuffer, val)
			} else {
				vm.Push(vm.quoteBuffer)
				vm.quoteBuffer = nil
			}
		default:
			vm.quoteBuffer = append(vm.quoteBuffer, val)
		}
		return nil
	}
	if e, ok := val.(Evaler); ok {
		return e.Eval(vm)
	}
	return vm.Errorf("don't know how to evaluate value of type %T", val)
}

// Call evaluates code with a fresh step budget.
func (vm *VM) Call(code Val) error {
	vm.steps = 0
	return vm.Eval(code)
}

func (vm *VM) ParseAndEval(r io.Reader, filename string) error {
	code, err := Parse(r, filename)
	if err != nil {
		return err
	}
	return vm.Call(code)
}
