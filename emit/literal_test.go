package emit

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/ilgen/pkg/bytecode"
)

func TestEncodeLiteralTiers(t *testing.T) {
	tests := []struct {
		name string
		lit  Literal
		op   bytecode.Opcode
	}{
		{"int32 -1", Literal{Type: bytecode.TypeInt32, Int: -1}, bytecode.OpLdcI4M1},
		{"int32 0", Literal{Type: bytecode.TypeInt32, Int: 0}, bytecode.OpLdcI4_0},
		{"int32 1", Literal{Type: bytecode.TypeInt32, Int: 1}, bytecode.OpLdcI4_1},
		{"int32 8", Literal{Type: bytecode.TypeInt32, Int: 8}, bytecode.OpLdcI4_8},
		{"int32 9", Literal{Type: bytecode.TypeInt32, Int: 9}, bytecode.OpLdcI4S},
		{"int32 -2", Literal{Type: bytecode.TypeInt32, Int: -2}, bytecode.OpLdcI4S},
		{"int32 127", Literal{Type: bytecode.TypeInt32, Int: 127}, bytecode.OpLdcI4S},
		{"int32 -128", Literal{Type: bytecode.TypeInt32, Int: -128}, bytecode.OpLdcI4S},
		{"int32 128", Literal{Type: bytecode.TypeInt32, Int: 128}, bytecode.OpLdcI4},
		{"int32 -129", Literal{Type: bytecode.TypeInt32, Int: -129}, bytecode.OpLdcI4},
		{"int32 min", Literal{Type: bytecode.TypeInt32, Int: math.MinInt32}, bytecode.OpLdcI4},
		{"int32 max", Literal{Type: bytecode.TypeInt32, Int: math.MaxInt32}, bytecode.OpLdcI4},
		{"int8 min", Literal{Type: bytecode.TypeInt8, Int: math.MinInt8}, bytecode.OpLdcI4S},
		{"int8 5", Literal{Type: bytecode.TypeInt8, Int: 5}, bytecode.OpLdcI4_5},
		{"uint8 max", Literal{Type: bytecode.TypeUint8, Int: math.MaxUint8}, bytecode.OpLdcI4},
		{"uint8 127", Literal{Type: bytecode.TypeUint8, Int: 127}, bytecode.OpLdcI4S},
		{"int16 min", Literal{Type: bytecode.TypeInt16, Int: math.MinInt16}, bytecode.OpLdcI4},
		{"uint16 max", Literal{Type: bytecode.TypeUint16, Int: math.MaxUint16}, bytecode.OpLdcI4},
		{"uint32 3", Literal{Type: bytecode.TypeUint32, Int: 3}, bytecode.OpLdcI4_3},
		{"uint32 max", Literal{Type: bytecode.TypeUint32, Int: math.MaxUint32}, bytecode.OpLdcI4M1},
		{"uint32 0xFFFFFF80", Literal{Type: bytecode.TypeUint32, Int: 0xFFFFFF80}, bytecode.OpLdcI4S},
		{"uint32 0xFFFFFFFE", Literal{Type: bytecode.TypeUint32, Int: 0xFFFFFFFE}, bytecode.OpLdcI4S},
		{"uint32 0xFFFFFF7F", Literal{Type: bytecode.TypeUint32, Int: 0xFFFFFF7F}, bytecode.OpLdcI4},
		{"uint32 1<<31", Literal{Type: bytecode.TypeUint32, Int: 1 << 31}, bytecode.OpLdcI4},
		{"bool true", Literal{Type: bytecode.TypeBool, Int: 1}, bytecode.OpLdcI4_1},
		{"int64 0", Literal{Type: bytecode.TypeInt64, Int: 0}, bytecode.OpLdcI8},
		{"int64 max", Literal{Type: bytecode.TypeInt64, Int: math.MaxInt64}, bytecode.OpLdcI8},
		{"uint64 max", Literal{Type: bytecode.TypeUint64, Int: -1}, bytecode.OpLdcI8},
		{"float32 0", Literal{Type: bytecode.TypeFloat32}, bytecode.OpLdcR4},
		{"float64 1", Literal{Type: bytecode.TypeFloat64, Float: 1}, bytecode.OpLdcR8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := EncodeLiteral(tt.lit)
			if err != nil {
				t.Fatalf("EncodeLiteral failed: %v", err)
			}
			if in.Op != tt.op {
				t.Errorf("opcode = %s, want %s", in.Op, tt.op)
			}

			// Decoding the emitted bytes gives back the literal's bits.
			c := bytecode.NewChunk()
			if _, err := c.EmitInstruction(in); err != nil {
				t.Fatalf("EmitInstruction failed: %v", err)
			}
			dec, err := bytecode.Decode(c.Code, 0)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if dec.Len() != len(c.Code) {
				t.Errorf("decoded length %d, emitted %d bytes", dec.Len(), len(c.Code))
			}
			switch tt.op {
			case bytecode.OpLdcR4, bytecode.OpLdcR8:
				if dec.Float != tt.lit.Float {
					t.Errorf("decoded %v, want %v", dec.Float, tt.lit.Float)
				}
			case bytecode.OpLdcI8:
				if dec.Int != tt.lit.Int {
					t.Errorf("decoded %d, want %d", dec.Int, tt.lit.Int)
				}
			case bytecode.OpLdcI4, bytecode.OpLdcI4S:
				if uint32(dec.Int) != uint32(tt.lit.Int) {
					t.Errorf("decoded %d, want bits of %d", dec.Int, tt.lit.Int)
				}
			}
		})
	}
}

func TestEncodeLiteralRejectsNonNumeric(t *testing.T) {
	for _, typ := range []bytecode.Type{bytecode.TypeString, bytecode.TypeVoid, "Point"} {
		if _, err := EncodeLiteral(Literal{Type: typ}); !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("EncodeLiteral(%s) error = %v, want ErrUnsupportedType", typ, err)
		}
	}
}

func TestLiteralRoundTrip(t *testing.T) {
	ints := []struct {
		name string
		typ  bytecode.Type
		push func(g *Generator)
		want int64
	}{
		{"int8 min", bytecode.TypeInt8, func(g *Generator) { g.PushInt8(math.MinInt8) }, math.MinInt8},
		{"int8 max", bytecode.TypeInt8, func(g *Generator) { g.PushInt8(math.MaxInt8) }, math.MaxInt8},
		{"int16 min", bytecode.TypeInt16, func(g *Generator) { g.PushInt16(math.MinInt16) }, math.MinInt16},
		{"int16 max", bytecode.TypeInt16, func(g *Generator) { g.PushInt16(math.MaxInt16) }, math.MaxInt16},
		{"int32 -1", bytecode.TypeInt32, func(g *Generator) { g.PushInt32(-1) }, -1},
		{"int32 8", bytecode.TypeInt32, func(g *Generator) { g.PushInt32(8) }, 8},
		{"int32 9", bytecode.TypeInt32, func(g *Generator) { g.PushInt32(9) }, 9},
		{"int32 128", bytecode.TypeInt32, func(g *Generator) { g.PushInt32(128) }, 128},
		{"int32 min", bytecode.TypeInt32, func(g *Generator) { g.PushInt32(math.MinInt32) }, math.MinInt32},
		{"int32 max", bytecode.TypeInt32, func(g *Generator) { g.PushInt32(math.MaxInt32) }, math.MaxInt32},
		{"int64 min", bytecode.TypeInt64, func(g *Generator) { g.PushInt64(math.MinInt64) }, math.MinInt64},
		{"int64 max", bytecode.TypeInt64, func(g *Generator) { g.PushInt64(math.MaxInt64) }, math.MaxInt64},
		{"bool", bytecode.TypeBool, func(g *Generator) { g.PushBool(true) }, 1},
	}
	for _, tt := range ints {
		t.Run(tt.name, func(t *testing.T) {
			got := eval(t, tt.typ, nil, func(g *Generator) { tt.push(g); g.Return() })
			if got.Int() != tt.want {
				t.Errorf("got %d, want %d", got.Int(), tt.want)
			}
		})
	}

	uints := []struct {
		name string
		typ  bytecode.Type
		push func(g *Generator)
		want uint64
	}{
		{"uint8 max", bytecode.TypeUint8, func(g *Generator) { g.PushUint8(math.MaxUint8) }, math.MaxUint8},
		{"uint16 max", bytecode.TypeUint16, func(g *Generator) { g.PushUint16(math.MaxUint16) }, math.MaxUint16},
		{"uint32 max", bytecode.TypeUint32, func(g *Generator) { g.PushUint32(math.MaxUint32) }, math.MaxUint32},
		{"uint32 0xFFFFFF80", bytecode.TypeUint32, func(g *Generator) { g.PushUint32(0xFFFFFF80) }, 0xFFFFFF80},
		{"uint32 200", bytecode.TypeUint32, func(g *Generator) { g.PushUint32(200) }, 200},
		{"uint64 max", bytecode.TypeUint64, func(g *Generator) { g.PushUint64(math.MaxUint64) }, math.MaxUint64},
	}
	for _, tt := range uints {
		t.Run(tt.name, func(t *testing.T) {
			got := eval(t, tt.typ, nil, func(g *Generator) { tt.push(g); g.Return() })
			if got.Uint() != tt.want {
				t.Errorf("got %d, want %d", got.Uint(), tt.want)
			}
		})
	}

	floats := []struct {
		name string
		typ  bytecode.Type
		push func(g *Generator)
		want float64
	}{
		{"float32", bytecode.TypeFloat32, func(g *Generator) { g.PushFloat32(1.5) }, 1.5},
		{"float32 max", bytecode.TypeFloat32, func(g *Generator) { g.PushFloat32(math.MaxFloat32) }, math.MaxFloat32},
		{"float64 pi", bytecode.TypeFloat64, func(g *Generator) { g.PushFloat64(math.Pi) }, math.Pi},
		{"float64 tiny", bytecode.TypeFloat64, func(g *Generator) { g.PushFloat64(math.SmallestNonzeroFloat64) }, math.SmallestNonzeroFloat64},
	}
	for _, tt := range floats {
		t.Run(tt.name, func(t *testing.T) {
			got := eval(t, tt.typ, nil, func(g *Generator) { tt.push(g); g.Return() })
			if got.Float() != tt.want {
				t.Errorf("got %v, want %v", got.Float(), tt.want)
			}
		})
	}
}

func TestPushStringAndNull(t *testing.T) {
	got := eval(t, bytecode.TypeString, nil, func(g *Generator) { g.PushString("hello").Return() })
	if s, ok := got.Str(); !ok || s != "hello" {
		t.Errorf("got %s, want \"hello\"", got)
	}

	got = eval(t, bytecode.TypeObject, nil, func(g *Generator) { g.PushNull().Return() })
	if !got.IsNull() {
		t.Errorf("got %s, want null", got)
	}
}
