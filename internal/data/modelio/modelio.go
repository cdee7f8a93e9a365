// Package modelio reads and writes archives in a JSON interchange format.
// Instruction and constant variants are tagged with a "kind" or "type" field.
package modelio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"mangle/internal/core/errors"
	"mangle/internal/engine/model"
)

type archiveJSON struct {
	Classes []classJSON `json:"classes"`
}

type classJSON struct {
	Name       string       `json:"name"`
	Access     uint16       `json:"access"`
	SuperName  string       `json:"super,omitempty"`
	Interfaces []string     `json:"interfaces,omitempty"`
	Fields     []fieldJSON  `json:"fields,omitempty"`
	Methods    []methodJSON `json:"methods,omitempty"`
}

type fieldJSON struct {
	Name   string        `json:"name"`
	Desc   string        `json:"desc"`
	Access uint16        `json:"access"`
	Value  *constantJSON `json:"value,omitempty"`
}

type methodJSON struct {
	Name         string            `json:"name"`
	Desc         string            `json:"desc"`
	Access       uint16            `json:"access"`
	Instructions []instructionJSON `json:"instructions,omitempty"`
}

const (
	kindOp      = "op"
	kindField   = "field"
	kindMethod  = "method"
	kindType    = "type"
	kindLdc     = "ldc"
	kindDynamic = "indy"
)

type instructionJSON struct {
	Kind      string         `json:"kind"`
	Op        uint8          `json:"op,omitempty"`
	Operand   int            `json:"operand,omitempty"`
	Owner     string         `json:"owner,omitempty"`
	Name      string         `json:"name,omitempty"`
	Desc      string         `json:"desc,omitempty"`
	Interface bool           `json:"interface,omitempty"`
	Value     *constantJSON  `json:"value,omitempty"`
	Bootstrap *handleJSON    `json:"bootstrap,omitempty"`
	Args      []constantJSON `json:"args,omitempty"`
}

const (
	constInt    = "int"
	constLong   = "long"
	constFloat  = "float"
	constDouble = "double"
	constString = "string"
	constType   = "type"
	constHandle = "handle"
)

type constantJSON struct {
	Type   string      `json:"type"`
	Int    int64       `json:"int,omitempty"`
	Float  float64     `json:"float,omitempty"`
	String string      `json:"string,omitempty"`
	Desc   string      `json:"desc,omitempty"`
	Handle *handleJSON `json:"handle,omitempty"`
}

type handleJSON struct {
	Tag       uint8  `json:"tag"`
	Owner     string `json:"owner"`
	Name      string `json:"name"`
	Desc      string `json:"desc"`
	Interface bool   `json:"interface,omitempty"`
}

// Read decodes an archive. Malformed input is a VALIDATION_ERROR.
func Read(r io.Reader) (*model.Archive, error) {
	var doc archiveJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "decode model")
	}

	archive := &model.Archive{Classes: make([]*model.Class, 0, len(doc.Classes))}
	for _, cj := range doc.Classes {
		c, err := decodeClass(cj)
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "decode class"), errors.CtxSymbol, cj.Name)
		}
		archive.Classes = append(archive.Classes, c)
	}
	return archive, nil
}

// ReadFile reads the archive stored at path.
func ReadFile(path string) (*model.Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "open model"), errors.CtxPath, path)
	}
	defer f.Close()
	archive, err := Read(f)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return archive, nil
}

// Write encodes archive as indented JSON.
func Write(w io.Writer, archive *model.Archive) error {
	doc := archiveJSON{Classes: make([]classJSON, 0, len(archive.Classes))}
	for _, c := range archive.Classes {
		cj, err := encodeClass(c)
		if err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "encode class"), errors.CtxSymbol, c.Name)
		}
		doc.Classes = append(doc.Classes, cj)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "encode model")
	}
	return nil
}

// WriteFile writes through a temporary file in the same directory and renames
// it into place, so readers never see a partial model.
func WriteFile(path string, archive *model.Archive) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "create output directory"), errors.CtxPath, dir)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "create temp file"), errors.CtxPath, path)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, archive); err != nil {
		_ = tmp.Close()
		return errors.AddContext(err, errors.CtxPath, path)
	}
	if err := tmp.Close(); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "close temp file"), errors.CtxPath, path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "replace output"), errors.CtxPath, path)
	}
	return nil
}

func decodeClass(cj classJSON) (*model.Class, error) {
	c := &model.Class{
		Name:       cj.Name,
		Access:     model.Access(cj.Access),
		SuperName:  cj.SuperName,
		Interfaces: cj.Interfaces,
	}
	for _, fj := range cj.Fields {
		f := &model.Field{Name: fj.Name, Desc: fj.Desc, Access: model.Access(fj.Access)}
		if fj.Value != nil {
			v, err := decodeConstant(*fj.Value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", fj.Name, err)
			}
			f.Value = v
		}
		c.Fields = append(c.Fields, f)
	}
	for _, mj := range cj.Methods {
		m := &model.Method{Name: mj.Name, Desc: mj.Desc, Access: model.Access(mj.Access)}
		for i, ij := range mj.Instructions {
			insn, err := decodeInstruction(ij)
			if err != nil {
				return nil, fmt.Errorf("method %s%s instruction %d: %w", mj.Name, mj.Desc, i, err)
			}
			m.Instructions = append(m.Instructions, insn)
		}
		c.Methods = append(c.Methods, m)
	}
	return c, nil
}

func decodeInstruction(ij instructionJSON) (model.Instruction, error) {
	switch ij.Kind {
	case kindOp:
		return &model.OpInsn{Opcode: model.Opcode(ij.Op), Operand: ij.Operand}, nil
	case kindField:
		return &model.FieldInsn{Opcode: model.Opcode(ij.Op), Owner: ij.Owner, Name: ij.Name, Desc: ij.Desc}, nil
	case kindMethod:
		return &model.MethodInsn{Opcode: model.Opcode(ij.Op), Owner: ij.Owner, Name: ij.Name, Desc: ij.Desc, Interface: ij.Interface}, nil
	case kindType:
		return &model.TypeInsn{Opcode: model.Opcode(ij.Op), Desc: ij.Desc}, nil
	case kindLdc:
		if ij.Value == nil {
			return nil, fmt.Errorf("ldc without value")
		}
		v, err := decodeConstant(*ij.Value)
		if err != nil {
			return nil, err
		}
		return &model.LdcInsn{Value: v}, nil
	case kindDynamic:
		if ij.Bootstrap == nil {
			return nil, fmt.Errorf("invokedynamic without bootstrap handle")
		}
		insn := &model.InvokeDynamicInsn{Name: ij.Name, Desc: ij.Desc, Bootstrap: decodeHandle(*ij.Bootstrap)}
		for _, aj := range ij.Args {
			v, err := decodeConstant(aj)
			if err != nil {
				return nil, err
			}
			insn.Args = append(insn.Args, v)
		}
		return insn, nil
	default:
		return nil, fmt.Errorf("unknown instruction kind %q", ij.Kind)
	}
}

func decodeConstant(cj constantJSON) (any, error) {
	switch cj.Type {
	case constInt:
		return int32(cj.Int), nil
	case constLong:
		return cj.Int, nil
	case constFloat:
		return float32(cj.Float), nil
	case constDouble:
		return cj.Float, nil
	case constString:
		return cj.String, nil
	case constType:
		return model.TypeConstant{Desc: cj.Desc}, nil
	case constHandle:
		if cj.Handle == nil {
			return nil, fmt.Errorf("handle constant without handle")
		}
		return decodeHandle(*cj.Handle), nil
	default:
		return nil, fmt.Errorf("unknown constant type %q", cj.Type)
	}
}

func decodeHandle(hj handleJSON) model.Handle {
	return model.Handle{Tag: model.HandleTag(hj.Tag), Owner: hj.Owner, Name: hj.Name, Desc: hj.Desc, Interface: hj.Interface}
}

func encodeClass(c *model.Class) (classJSON, error) {
	cj := classJSON{
		Name:       c.Name,
		Access:     uint16(c.Access),
		SuperName:  c.SuperName,
		Interfaces: c.Interfaces,
	}
	for _, f := range c.Fields {
		fj := fieldJSON{Name: f.Name, Desc: f.Desc, Access: uint16(f.Access)}
		if f.Value != nil {
			v, err := encodeConstant(f.Value)
			if err != nil {
				return classJSON{}, fmt.Errorf("field %s: %w", f.Name, err)
			}
			fj.Value = &v
		}
		cj.Fields = append(cj.Fields, fj)
	}
	for _, m := range c.Methods {
		mj := methodJSON{Name: m.Name, Desc: m.Desc, Access: uint16(m.Access)}
		for i, insn := range m.Instructions {
			ij, err := encodeInstruction(insn)
			if err != nil {
				return classJSON{}, fmt.Errorf("method %s%s instruction %d: %w", m.Name, m.Desc, i, err)
			}
			mj.Instructions = append(mj.Instructions, ij)
		}
		cj.Methods = append(cj.Methods, mj)
	}
	return cj, nil
}

func encodeInstruction(insn model.Instruction) (instructionJSON, error) {
	switch i := insn.(type) {
	case *model.OpInsn:
		return instructionJSON{Kind: kindOp, Op: uint8(i.Opcode), Operand: i.Operand}, nil
	case *model.FieldInsn:
		return instructionJSON{Kind: kindField, Op: uint8(i.Opcode), Owner: i.Owner, Name: i.Name, Desc: i.Desc}, nil
	case *model.MethodInsn:
		return instructionJSON{Kind: kindMethod, Op: uint8(i.Opcode), Owner: i.Owner, Name: i.Name, Desc: i.Desc, Interface: i.Interface}, nil
	case *model.TypeInsn:
		return instructionJSON{Kind: kindType, Op: uint8(i.Opcode), Desc: i.Desc}, nil
	case *model.LdcInsn:
		v, err := encodeConstant(i.Value)
		if err != nil {
			return instructionJSON{}, err
		}
		return instructionJSON{Kind: kindLdc, Value: &v}, nil
	case *model.InvokeDynamicInsn:
		bsm := encodeHandle(i.Bootstrap)
		ij := instructionJSON{Kind: kindDynamic, Name: i.Name, Desc: i.Desc, Bootstrap: &bsm}
		for _, arg := range i.Args {
			v, err := encodeConstant(arg)
			if err != nil {
				return instructionJSON{}, err
			}
			ij.Args = append(ij.Args, v)
		}
		return ij, nil
	default:
		return instructionJSON{}, fmt.Errorf("unsupported instruction %T", insn)
	}
}

func encodeConstant(value any) (constantJSON, error) {
	switch v := value.(type) {
	case int32:
		return constantJSON{Type: constInt, Int: int64(v)}, nil
	case int64:
		return constantJSON{Type: constLong, Int: v}, nil
	case float32:
		return constantJSON{Type: constFloat, Float: float64(v)}, nil
	case float64:
		return constantJSON{Type: constDouble, Float: v}, nil
	case string:
		return constantJSON{Type: constString, String: v}, nil
	case model.TypeConstant:
		return constantJSON{Type: constType, Desc: v.Desc}, nil
	case model.Handle:
		h := encodeHandle(v)
		return constantJSON{Type: constHandle, Handle: &h}, nil
	default:
		return constantJSON{}, fmt.Errorf("unsupported constant %T", value)
	}
}

func encodeHandle(h model.Handle) handleJSON {
	return handleJSON{Tag: uint8(h.Tag), Owner: h.Owner, Name: h.Name, Desc: h.Desc, Interface: h.Interface}
}
