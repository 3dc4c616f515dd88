package vm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/ilgen/pkg/bytecode"
)

var log = commonlog.GetLogger("ilgen.vm")

const (
	DefaultMaxDepth = 256
	DefaultMaxSteps = 10_000_000
)

// Interpreter executes routines resolved through a Linker. An Interpreter
// runs one invocation at a time; use one per goroutine.
type Interpreter struct {
	linker   Linker
	maxSteps int64
	maxDepth int
	trace    bool

	steps int64
	depth int
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithMaxSteps bounds the number of instructions one Invoke may execute.
// Zero or a negative value removes the bound.
func WithMaxSteps(n int64) Option {
	return func(i *Interpreter) { i.maxSteps = n }
}

// WithMaxDepth bounds the call depth.
func WithMaxDepth(n int) Option {
	return func(i *Interpreter) { i.maxDepth = n }
}

// WithTrace logs every executed instruction at debug level.
func WithTrace(on bool) Option {
	return func(i *Interpreter) { i.trace = on }
}

// New creates an interpreter over the routines and classes of linker.
func New(linker Linker, opts ...Option) *Interpreter {
	i := &Interpreter{
		linker:   linker,
		maxSteps: DefaultMaxSteps,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Steps returns the number of instructions executed by the last Invoke.
func (i *Interpreter) Steps() int64 {
	return i.steps
}

// Invoke runs the routine with the given qualified name. Instance routines
// take the receiver as the first argument.
func (i *Interpreter) Invoke(ctx context.Context, name string, args ...Value) (result Value, err error) {
	if err := ctx.Err(); err != nil {
		return Null, err
	}
	r, ok := i.linker.LookupRoutine(name)
	if !ok {
		return Null, fmt.Errorf("%w: %s", ErrUnknownRoutine, name)
	}
	i.steps = 0
	i.depth = 0

	defer func() {
		if rec := recover(); rec != nil {
			t, ok := rec.(trap)
			if !ok {
				panic(rec)
			}
			result, err = Null, t.err
		}
	}()

	result = i.call(ctx, r, args)
	return result, nil
}

// frame is the activation of one routine.
type frame struct {
	routine *Routine
	chunk   *bytecode.Chunk
	ip      int
	args    []Value
	locals  []Value
	stack   []Value
}

func (i *Interpreter) fail(f *frame, offset int, err error) {
	panic(trap{err: &RuntimeError{Routine: f.routine.Name, Offset: offset, Err: err}})
}

func (f *frame) push(v Value) {
	f.stack = append(f.stack, v)
}

func (i *Interpreter) pop(f *frame, offset int) Value {
	n := len(f.stack)
	if n == 0 {
		i.fail(f, offset, ErrStackUnderflow)
	}
	v := f.stack[n-1]
	f.stack = f.stack[:n-1]
	return v
}

// popN pops n values and returns them in push order.
func (i *Interpreter) popN(f *frame, offset, n int) []Value {
	if len(f.stack) < n {
		i.fail(f, offset, ErrStackUnderflow)
	}
	out := make([]Value, n)
	copy(out, f.stack[len(f.stack)-n:])
	f.stack = f.stack[:len(f.stack)-n]
	return out
}

// call runs r to completion and returns its result (Null for void routines).
func (i *Interpreter) call(ctx context.Context, r *Routine, args []Value) Value {
	chunk := r.Body
	f := &frame{routine: r, chunk: chunk, stack: make([]Value, 0, 16)}

	if i.maxDepth > 0 && i.depth >= i.maxDepth {
		i.fail(f, 0, ErrStackOverflow)
	}
	i.depth++
	defer func() { i.depth-- }()

	if len(args) != chunk.ArgCount() {
		i.fail(f, 0, fmt.Errorf("%w: %s takes %d, got %d", ErrArgCount, r.Name, chunk.ArgCount(), len(args)))
	}
	f.args = make([]Value, len(args))
	params := chunk.ParamTypes
	if chunk.IsInstance() {
		f.args[0] = args[0]
		args = args[1:]
	}
	for n, a := range args {
		f.args[len(f.args)-len(args)+n] = Coerce(params[n], a)
	}
	f.locals = make([]Value, len(chunk.LocalTypes))
	for n, t := range chunk.LocalTypes {
		f.locals[n] = Zero(t)
	}

	return i.run(ctx, f)
}

// argType returns the declared type of argument slot n.
func argType(c *bytecode.Chunk, n int) bytecode.Type {
	if c.IsInstance() {
		if n == 0 {
			return bytecode.TypeObject
		}
		n--
	}
	return c.ParamTypes[n]
}

// run is the main execution loop.
func (i *Interpreter) run(ctx context.Context, f *frame) Value {
	code := f.chunk.Code
	for {
		if f.ip >= len(code) {
			i.fail(f, f.ip, ErrNoReturn)
		}
		in, err := bytecode.Decode(code, f.ip)
		if err != nil {
			i.fail(f, f.ip, fmt.Errorf("%w: %v", ErrInvalidOpcode, err))
		}
		at := f.ip
		f.ip += in.Len()

		i.steps++
		if i.maxSteps > 0 && i.steps > i.maxSteps {
			i.fail(f, at, ErrStepLimit)
		}
		if i.trace {
			log.Debugf("%s %04X %-24s depth=%d sp=%d", f.routine.Name, at, f.chunk.FormatInstruction(in), i.depth, len(f.stack))
		}

		switch op := in.Op; op {
		// ============ Stack ============
		case bytecode.OpNop:

		case bytecode.OpPop:
			i.pop(f, at)

		case bytecode.OpDup:
			v := i.pop(f, at)
			f.push(v)
			f.push(v)

		// ============ Arguments and locals ============
		case bytecode.OpLdArg0, bytecode.OpLdArg1, bytecode.OpLdArg2, bytecode.OpLdArg3:
			f.push(i.arg(f, at, int(op-bytecode.OpLdArg0)))

		case bytecode.OpLdArg:
			f.push(i.arg(f, at, int(in.Int)))

		case bytecode.OpStArg:
			n := int(in.Int)
			if n >= len(f.args) {
				i.fail(f, at, fmt.Errorf("%w: argument %d", ErrIndexOutOfRange, n))
			}
			f.args[n] = Coerce(argType(f.chunk, n), i.pop(f, at))

		case bytecode.OpLdLoc0, bytecode.OpLdLoc1, bytecode.OpLdLoc2, bytecode.OpLdLoc3:
			f.push(i.local(f, at, int(op-bytecode.OpLdLoc0)))

		case bytecode.OpLdLoc:
			f.push(i.local(f, at, int(in.Int)))

		case bytecode.OpStLoc0, bytecode.OpStLoc1, bytecode.OpStLoc2, bytecode.OpStLoc3:
			i.storeLocal(f, at, int(op-bytecode.OpStLoc0))

		case bytecode.OpStLoc:
			i.storeLocal(f, at, int(in.Int))

		// ============ Literals ============
		case bytecode.OpLdNull:
			f.push(Null)

		case bytecode.OpLdcI4M1, bytecode.OpLdcI4_0, bytecode.OpLdcI4_1, bytecode.OpLdcI4_2,
			bytecode.OpLdcI4_3, bytecode.OpLdcI4_4, bytecode.OpLdcI4_5, bytecode.OpLdcI4_6,
			bytecode.OpLdcI4_7, bytecode.OpLdcI4_8:
			f.push(Int32(int32(op) - int32(bytecode.OpLdcI4_0)))

		case bytecode.OpLdcI4S, bytecode.OpLdcI4:
			f.push(Int32(int32(in.Int)))

		case bytecode.OpLdcI8:
			f.push(Int64(in.Int))

		case bytecode.OpLdcR4:
			f.push(Float32(float32(in.Float)))

		case bytecode.OpLdcR8:
			f.push(Float64(in.Float))

		case bytecode.OpLdStr:
			f.push(String(i.token(f, in)))

		// ============ Arithmetic and comparison ============
		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpDivUn,
			bytecode.OpRem, bytecode.OpRemUn:
			b := i.pop(f, at)
			a := i.pop(f, at)
			v, err := arith(op, a, b)
			if err != nil {
				i.fail(f, at, err)
			}
			f.push(v)

		case bytecode.OpNeg:
			v, err := negate(i.pop(f, at))
			if err != nil {
				i.fail(f, at, err)
			}
			f.push(v)

		case bytecode.OpCeq, bytecode.OpCgt, bytecode.OpCgtUn, bytecode.OpClt, bytecode.OpCltUn:
			b := i.pop(f, at)
			a := i.pop(f, at)
			ok, err := compare(op, a, b)
			if err != nil {
				i.fail(f, at, err)
			}
			f.push(Bool(ok))

		// ============ Conversion ============
		case bytecode.OpConvI1, bytecode.OpConvI2, bytecode.OpConvI4, bytecode.OpConvI8,
			bytecode.OpConvU1, bytecode.OpConvU2, bytecode.OpConvU4, bytecode.OpConvU8,
			bytecode.OpConvR4, bytecode.OpConvR8:
			v, err := convert(op, i.pop(f, at))
			if err != nil {
				i.fail(f, at, err)
			}
			f.push(v)

		case bytecode.OpBox:
			t := bytecode.Type(i.token(f, in))
			v := i.pop(f, at)
			if t.StackKind() == bytecode.KindRef {
				f.push(v)
			} else {
				f.push(Ref(&Boxed{Type: t, Value: Coerce(t, v)}))
			}

		case bytecode.OpUnbox:
			t := bytecode.Type(i.token(f, in))
			v := i.pop(f, at)
			if v.IsNull() {
				i.fail(f, at, ErrNullReference)
			}
			b, ok := v.ref.(*Boxed)
			if !ok || b.Type != t {
				i.fail(f, at, fmt.Errorf("%w: %s to %s", ErrInvalidCast, v, t))
			}
			f.push(b.Value)

		case bytecode.OpCastClass:
			t := bytecode.Type(i.token(f, in))
			v := i.pop(f, at)
			if !i.isInstanceOf(v, t) {
				i.fail(f, at, fmt.Errorf("%w: %s to %s", ErrInvalidCast, v, t))
			}
			f.push(v)

		// ============ Branches ============
		case bytecode.OpBr:
			i.jump(ctx, f, in)

		case bytecode.OpBrFalse:
			if !i.pop(f, at).Truthy() {
				i.jump(ctx, f, in)
			}

		case bytecode.OpBrTrue:
			if i.pop(f, at).Truthy() {
				i.jump(ctx, f, in)
			}

		// ============ Calls and objects ============
		case bytecode.OpCall:
			name := i.token(f, in)
			callee, ok := i.linker.LookupRoutine(name)
			if !ok {
				i.fail(f, at, fmt.Errorf("%w: %s", ErrUnknownRoutine, name))
			}
			args := i.popN(f, at, callee.Body.ArgCount())
			result := i.call(ctx, callee, args)
			if !callee.Body.ReturnType.IsVoid() {
				f.push(result)
			}

		case bytecode.OpNewObj:
			name := i.token(f, in)
			className, _ := SplitQualified(name)
			layout, ok := i.linker.LookupClass(className)
			if !ok {
				i.fail(f, at, fmt.Errorf("%w: %s", ErrUnknownClass, className))
			}
			ctor, ok := i.linker.LookupRoutine(name)
			if !ok {
				i.fail(f, at, fmt.Errorf("%w: %s", ErrUnknownRoutine, name))
			}
			params := i.popN(f, at, len(ctor.Body.ParamTypes))
			obj := i.newObject(layout)
			i.call(ctx, ctor, append([]Value{Ref(obj)}, params...))
			f.push(Ref(obj))

		case bytecode.OpNewArr:
			elem := bytecode.Type(i.token(f, in))
			n := i.pop(f, at)
			if !n.IsInt() || n.Int() < 0 {
				i.fail(f, at, fmt.Errorf("%w: array length %s", ErrIndexOutOfRange, n))
			}
			arr := &Array{Elem: elem, Items: make([]Value, n.Int())}
			for k := range arr.Items {
				arr.Items[k] = Zero(elem)
			}
			f.push(Ref(arr))

		case bytecode.OpLdElem:
			idx := i.pop(f, at)
			arr := i.array(f, at, i.pop(f, at))
			f.push(arr.Items[i.index(f, at, arr, idx)])

		case bytecode.OpStElem:
			v := i.pop(f, at)
			idx := i.pop(f, at)
			arr := i.array(f, at, i.pop(f, at))
			arr.Items[i.index(f, at, arr, idx)] = Coerce(arr.Elem, v)

		case bytecode.OpLdLen:
			arr := i.array(f, at, i.pop(f, at))
			f.push(Int32(int32(len(arr.Items))))

		case bytecode.OpLdFld:
			_, field := SplitQualified(i.token(f, in))
			obj := i.object(f, at, i.pop(f, at))
			v, ok := obj.Fields[field]
			if !ok {
				i.fail(f, at, fmt.Errorf("%w: %s.%s", ErrUnknownField, obj.Class.Name, field))
			}
			f.push(v)

		case bytecode.OpStFld:
			_, field := SplitQualified(i.token(f, in))
			v := i.pop(f, at)
			obj := i.object(f, at, i.pop(f, at))
			t, ok := i.fieldType(obj.Class, field)
			if !ok {
				i.fail(f, at, fmt.Errorf("%w: %s.%s", ErrUnknownField, obj.Class.Name, field))
			}
			obj.Fields[field] = Coerce(t, v)

		// ============ Return ============
		case bytecode.OpRet:
			if f.chunk.ReturnType.IsVoid() {
				return Null
			}
			return Coerce(f.chunk.ReturnType, i.pop(f, at))

		default:
			i.fail(f, at, fmt.Errorf("%w: %s", ErrInvalidOpcode, op))
		}
	}
}

// jump moves the instruction pointer to the target of a taken branch.
// Backward branches are where loops spend their time, so cancellation is
// checked there.
func (i *Interpreter) jump(ctx context.Context, f *frame, in bytecode.Instruction) {
	if in.Int < 0 {
		if err := ctx.Err(); err != nil {
			i.fail(f, in.Offset, err)
		}
	}
	target := in.Target()
	if target < 0 || target > len(f.chunk.Code) {
		i.fail(f, in.Offset, fmt.Errorf("%w: branch target %d", ErrInvalidOpcode, target))
	}
	f.ip = target
}

// token returns the constant-pool entry named by the instruction operand.
func (i *Interpreter) token(f *frame, in bytecode.Instruction) string {
	if in.Int < 0 || int(in.Int) >= len(f.chunk.Constants) {
		i.fail(f, in.Offset, fmt.Errorf("%w: bad token %d", ErrInvalidOpcode, in.Int))
	}
	return f.chunk.Constants[in.Int]
}

func (i *Interpreter) arg(f *frame, at, n int) Value {
	if n >= len(f.args) {
		i.fail(f, at, fmt.Errorf("%w: argument %d", ErrIndexOutOfRange, n))
	}
	return f.args[n]
}

func (i *Interpreter) local(f *frame, at, n int) Value {
	if n >= len(f.locals) {
		i.fail(f, at, fmt.Errorf("%w: local %d", ErrIndexOutOfRange, n))
	}
	return f.locals[n]
}

func (i *Interpreter) storeLocal(f *frame, at, n int) {
	if n >= len(f.locals) {
		i.fail(f, at, fmt.Errorf("%w: local %d", ErrIndexOutOfRange, n))
	}
	f.locals[n] = Coerce(f.chunk.LocalTypes[n], i.pop(f, at))
}

func (i *Interpreter) array(f *frame, at int, v Value) *Array {
	if v.IsNull() {
		i.fail(f, at, ErrNullReference)
	}
	arr, ok := v.ref.(*Array)
	if !ok {
		i.fail(f, at, fmt.Errorf("%w: %s is not an array", ErrTypeMismatch, v))
	}
	return arr
}

func (i *Interpreter) index(f *frame, at int, arr *Array, idx Value) int {
	if !idx.IsInt() || idx.Int() < 0 || idx.Int() >= int64(len(arr.Items)) {
		i.fail(f, at, fmt.Errorf("%w: %s of %d", ErrIndexOutOfRange, idx, len(arr.Items)))
	}
	return int(idx.Int())
}

func (i *Interpreter) object(f *frame, at int, v Value) *Object {
	if v.IsNull() {
		i.fail(f, at, ErrNullReference)
	}
	obj, ok := v.ref.(*Object)
	if !ok {
		i.fail(f, at, fmt.Errorf("%w: %s is not an object", ErrTypeMismatch, v))
	}
	return obj
}

func (i *Interpreter) fieldType(c *ClassLayout, name string) (bytecode.Type, bool) {
	for ; c != nil; c = i.baseOf(c) {
		if t, ok := c.FieldType(name); ok {
			return t, true
		}
	}
	return "", false
}

// IsRuntimeError reports whether err came from executing code rather than
// from resolving the entry point.
func IsRuntimeError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re)
}
