package model

import "fmt"

type Opcode uint8

// Opcodes the engine looks at; every other opcode is carried as an opaque OpInsn.
const (
	NOP             Opcode = 0x00
	LDC             Opcode = 0x12
	RETURN          Opcode = 0xb1
	GETSTATIC       Opcode = 0xb2
	PUTSTATIC       Opcode = 0xb3
	GETFIELD        Opcode = 0xb4
	PUTFIELD        Opcode = 0xb5
	INVOKEVIRTUAL   Opcode = 0xb6
	INVOKESPECIAL   Opcode = 0xb7
	INVOKESTATIC    Opcode = 0xb8
	INVOKEINTERFACE Opcode = 0xb9
	INVOKEDYNAMIC   Opcode = 0xba
	NEW             Opcode = 0xbb
	ANEWARRAY       Opcode = 0xbd
	CHECKCAST       Opcode = 0xc0
	INSTANCEOF      Opcode = 0xc1
	MULTIANEWARRAY  Opcode = 0xc5
)

// Instruction is one element of a method body. The concrete types are the
// pointer types below; the rewriter mutates them in place.
type Instruction interface {
	Op() Opcode
}

type FieldInsn struct {
	Opcode Opcode
	Owner  string
	Name   string
	Desc   string
}

func (i *FieldInsn) Op() Opcode { return i.Opcode }

func (i *FieldInsn) Key() SymbolKey { return FieldKey(i.Owner, i.Name, i.Desc) }

type MethodInsn struct {
	Opcode    Opcode
	Owner     string
	Name      string
	Desc      string
	Interface bool
}

func (i *MethodInsn) Op() Opcode { return i.Opcode }

func (i *MethodInsn) Key() SymbolKey { return MethodKey(i.Owner, i.Name, i.Desc) }

// TypeInsn carries an internal name or, for array types, an array descriptor.
type TypeInsn struct {
	Opcode Opcode
	Desc   string
}

func (i *TypeInsn) Op() Opcode { return i.Opcode }

// InvokeDynamicInsn is a dynamic call site. Args holds the static bootstrap
// arguments: constants, TypeConstant or Handle values.
type InvokeDynamicInsn struct {
	Name      string
	Desc      string
	Bootstrap Handle
	Args      []any
}

func (i *InvokeDynamicInsn) Op() Opcode { return INVOKEDYNAMIC }

// LdcInsn loads a constant: int32, int64, float32, float64, string,
// TypeConstant or Handle.
type LdcInsn struct {
	Value any
}

func (i *LdcInsn) Op() Opcode { return LDC }

// OpInsn is any instruction without symbolic references.
type OpInsn struct {
	Opcode  Opcode
	Operand int
}

func (i *OpInsn) Op() Opcode { return i.Opcode }

type HandleTag uint8

const (
	HGetField HandleTag = iota + 1
	HGetStatic
	HPutField
	HPutStatic
	HInvokeVirtual
	HInvokeStatic
	HInvokeSpecial
	HNewInvokeSpecial
	HInvokeInterface
)

// Handle is a method handle constant.
type Handle struct {
	Tag       HandleTag
	Owner     string
	Name      string
	Desc      string
	Interface bool
}

func (h Handle) IsField() bool { return h.Tag >= HGetField && h.Tag <= HPutStatic }

func (h Handle) Key() SymbolKey {
	if h.IsField() {
		return FieldKey(h.Owner, h.Name, h.Desc)
	}
	return MethodKey(h.Owner, h.Name, h.Desc)
}

func (h Handle) String() string {
	return fmt.Sprintf("%s.%s%s (tag %d)", h.Owner, h.Name, h.Desc, h.Tag)
}

// TypeConstant is a class literal ("Lapp/A;", "[I") or a method type ("(I)V").
type TypeConstant struct {
	Desc string
}

func (t TypeConstant) IsMethodType() bool { return len(t.Desc) > 0 && t.Desc[0] == '(' }
