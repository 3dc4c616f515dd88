package emit

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/ilgen/assembly"
	"github.com/chazu/ilgen/pkg/bytecode"
)

var log = commonlog.GetLogger("ilgen.emit")

// Label is a jump target in the routine body. It can be branched to
// before it is placed and is placed at most once.
type Label = bytecode.Label

// Option configures a Generator.
type Option func(*Generator)

// WithDebugInfo keeps local names in the serialized body.
func WithDebugInfo() Option {
	return func(g *Generator) { g.debug = true }
}

// WithTrace logs every emitted instruction at debug level.
func WithTrace() Option {
	return func(g *Generator) { g.trace = true }
}

// ---------------------------------------------------------------------------
// Generator
// ---------------------------------------------------------------------------

// Generator emits the body of one routine. Methods return the generator so
// calls chain. The first registry or structural error is kept; after it
// every emitting method is a no-op, Err reports it and Finish hands it to
// the routine, which then refuses to be finalized.
//
// A Generator is not safe for concurrent use.
type Generator struct {
	routine *assembly.Routine
	body    *bytecode.Chunk
	types   *assembly.TypeCache

	locals map[string]local
	params map[string]int
	labels map[string]*Label

	exits []*Label    // label stack: exits[len-1] is the active false target
	loops []loopFrame // enclosing loops, innermost last

	debug  bool
	trace  bool
	err    error
	sealed bool
}

type local struct {
	slot int
	typ  bytecode.Type
}

// loopFrame holds the targets of one loop. cont is where Continue goes,
// exit is where Break goes.
type loopFrame struct {
	cont *Label
	exit *Label
}

// New acquires the body of r and returns a generator emitting into it.
// The body can be acquired once; a second generator for the same routine
// fails.
func New(r *assembly.Routine, opts ...Option) (*Generator, error) {
	body, err := r.Body()
	if err != nil {
		return nil, err
	}
	g := &Generator{
		routine: r,
		body:    body,
		locals:  make(map[string]local),
		params:  make(map[string]int),
		labels:  make(map[string]*Label),
	}
	first := 0
	if !r.IsStatic() {
		g.params["this"] = 0
		first = 1
	}
	for i, name := range r.ParamNames() {
		g.params[name] = first + i
	}
	if c := r.Class(); c != nil {
		g.types = c.Module().Types()
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.debug {
		body.Flags |= bytecode.ChunkFlagDebug
	}
	return g, nil
}

// Routine returns the routine being generated.
func (g *Generator) Routine() *assembly.Routine {
	return g.routine
}

// Body returns the instruction stream emitted so far.
func (g *Generator) Body() *bytecode.Chunk {
	return g.body
}

// Offset returns the position the next instruction is emitted at.
func (g *Generator) Offset() int {
	return g.body.CurrentOffset()
}

// Err returns the first error recorded by the generator.
func (g *Generator) Err() error {
	return g.err
}

// Finish seals the routine with the generator's outcome. A generator that
// failed, left exit targets on the label stack or branches to a label it
// never placed yields a failed routine. Finish returns that failure.
func (g *Generator) Finish() error {
	if g.sealed {
		return fmt.Errorf("%w: %s", ErrSealed, g.routine.Token())
	}
	if g.err == nil && len(g.exits) > 0 {
		g.fail(fmt.Errorf("%w: %d pushed", ErrLabelStackUnbalanced, len(g.exits)))
	}
	g.sealed = true
	err := g.routine.Seal(g.err)
	if err == nil {
		log.Debugf("generated %s (%d bytes, %d locals)", g.routine.Token(), len(g.body.Code), len(g.body.LocalTypes))
	}
	return err
}

// fail records err unless an earlier error is already recorded.
func (g *Generator) fail(err error) *Generator {
	if g.err == nil {
		g.err = err
		log.Errorf("%s: %v", g.routine.Token(), err)
	}
	return g
}

// ok reports whether emission may proceed.
func (g *Generator) ok() bool {
	if g.sealed && g.err == nil {
		g.fail(fmt.Errorf("%w: %s", ErrSealed, g.routine.Token()))
	}
	return g.err == nil
}

// ---------------------------------------------------------------------------
// Raw emission
// ---------------------------------------------------------------------------

func (g *Generator) op(op bytecode.Opcode) *Generator {
	if !g.ok() {
		return g
	}
	g.traced(g.body.Emit(op))
	return g
}

func (g *Generator) instr(in bytecode.Instruction) *Generator {
	if !g.ok() {
		return g
	}
	at, err := g.body.EmitInstruction(in)
	if err != nil {
		return g.fail(err)
	}
	g.traced(at)
	return g
}

func (g *Generator) token(op bytecode.Opcode, token string) *Generator {
	if !g.ok() {
		return g
	}
	g.traced(g.body.EmitToken(op, token))
	return g
}

func (g *Generator) branch(op bytecode.Opcode, l *Label) *Generator {
	if !g.ok() {
		return g
	}
	if l == nil {
		return g.fail(fmt.Errorf("%w: %s", ErrNilLabel, op))
	}
	at, err := g.body.EmitBranch(op, l)
	if err != nil {
		return g.fail(err)
	}
	g.traced(at)
	return g
}

func (g *Generator) traced(at int) {
	if !g.trace {
		return
	}
	if in, err := bytecode.Decode(g.body.Code, at); err == nil {
		log.Debugf("%s: %s", g.routine.Token(), g.body.FormatInstruction(in))
	}
}

// MarkSource maps the next instruction to a source position.
func (g *Generator) MarkSource(line uint32, column uint16) *Generator {
	if !g.ok() {
		return g
	}
	g.body.AddSourceLocation(uint32(g.body.CurrentOffset()), line, column)
	return g
}
