package assembly

import "errors"

var (
	ErrDuplicateClass   = errors.New("class already defined")
	ErrDuplicateMember  = errors.New("member already defined")
	ErrUnknownClass     = errors.New("unknown class")
	ErrUnknownMember    = errors.New("unknown member")
	ErrClassFinished    = errors.New("class already finished")
	ErrModuleFinished   = errors.New("module already finished")
	ErrBodyAcquired     = errors.New("routine body already acquired")
	ErrSealed           = errors.New("routine already sealed")
	ErrNotSealed        = errors.New("routine was never sealed")
	ErrRoutineFailed    = errors.New("routine construction failed")
	ErrUnresolvedLabel  = errors.New("branch to a label that was never placed")
	ErrInvalidSignature = errors.New("invalid routine signature")
	ErrDigestMismatch   = errors.New("image digest mismatch")
)
