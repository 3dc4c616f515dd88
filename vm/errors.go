package vm

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownRoutine  = errors.New("unknown routine")
	ErrUnknownClass    = errors.New("unknown class")
	ErrUnknownField    = errors.New("unknown field")
	ErrArgCount        = errors.New("wrong number of arguments")
	ErrStackUnderflow  = errors.New("operand stack underflow")
	ErrTypeMismatch    = errors.New("operand type mismatch")
	ErrDivideByZero    = errors.New("integer divide by zero")
	ErrNullReference   = errors.New("null reference")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrInvalidCast     = errors.New("invalid cast")
	ErrStepLimit       = errors.New("step limit exceeded")
	ErrStackOverflow   = errors.New("call depth exceeded")
	ErrNoReturn        = errors.New("execution ran past the end of the routine")
	ErrInvalidOpcode   = errors.New("invalid instruction")
)

// RuntimeError locates a failure at an instruction of a routine.
type RuntimeError struct {
	Routine string
	Offset  int
	Err     error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s at %04X: %v", e.Routine, e.Offset, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// trap carries a RuntimeError up through nested calls to Invoke.
type trap struct {
	err error
}
