package emit

import (
	"errors"

	"github.com/chazu/ilgen/assembly"
	"github.com/chazu/ilgen/pkg/bytecode"
)

// Registry errors.
var (
	ErrUnknownLocal   = errors.New("unknown local")
	ErrDuplicateLocal = errors.New("local already declared")
	ErrTooManyLocals  = errors.New("too many locals")
	ErrUnknownArg     = errors.New("unknown argument")
	ErrUnknownMember  = assembly.ErrUnknownMember
)

// Structural errors.
var (
	ErrLabelStackEmpty      = errors.New("label stack is empty")
	ErrLabelStackUnbalanced = errors.New("label stack not empty at finish")
	ErrLabelPlaced          = bytecode.ErrLabelPlaced
	ErrUnresolvedLabel      = assembly.ErrUnresolvedLabel
	ErrSealed               = assembly.ErrSealed
	ErrNilLabel             = errors.New("nil label")
	ErrOperandCount         = errors.New("expected zero or two operands")
	ErrNotInLoop            = errors.New("not inside a loop")
	ErrUnsupportedType      = errors.New("unsupported type")
)
