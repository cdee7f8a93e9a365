package report

import (
	"strings"

	"mangle/internal/engine/model"
)

var primitiveNames = map[model.Sort]string{
	model.SortVoid:    "void",
	model.SortBoolean: "boolean",
	model.SortChar:    "char",
	model.SortByte:    "byte",
	model.SortShort:   "short",
	model.SortInt:     "int",
	model.SortFloat:   "float",
	model.SortLong:    "long",
	model.SortDouble:  "double",
}

// javaName turns "app/Outer$Inner" into "app.Outer$Inner".
func javaName(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}

func javaType(t model.Type) string {
	switch t.Sort {
	case model.SortObject:
		return javaName(t.InternalName())
	case model.SortArray:
		dims := len(t.Desc) - len(strings.TrimLeft(t.Desc, "["))
		return javaType(t.Element()) + strings.Repeat("[]", dims)
	default:
		return primitiveNames[t.Sort]
	}
}

// fieldSignature renders "int count"; unparseable descriptors are kept raw.
func fieldSignature(name, desc string) string {
	t, err := model.ParseType(desc)
	if err != nil {
		return desc + " " + name
	}
	return javaType(t) + " " + name
}

// methodSignature renders "void run(int,java.lang.String)".
func methodSignature(name, desc string) string {
	params, ret, err := model.ParseMethodDescriptor(desc)
	if err != nil {
		return name + desc
	}
	args := make([]string, len(params))
	for i, p := range params {
		args[i] = javaType(p)
	}
	return javaType(ret) + " " + name + "(" + strings.Join(args, ",") + ")"
}
