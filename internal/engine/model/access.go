package model

// Access flags as they appear in the class file format.
const (
	AccPublic       uint16 = 0x0001
	AccPrivate      uint16 = 0x0002
	AccProtected    uint16 = 0x0004
	AccStatic       uint16 = 0x0008
	AccFinal        uint16 = 0x0010
	AccSuper        uint16 = 0x0020
	AccSynchronized uint16 = 0x0020
	AccVolatile     uint16 = 0x0040
	AccBridge       uint16 = 0x0040
	AccTransient    uint16 = 0x0080
	AccVarargs      uint16 = 0x0080
	AccNative       uint16 = 0x0100
	AccInterface    uint16 = 0x0200
	AccAbstract     uint16 = 0x0400
	AccStrict       uint16 = 0x0800
	AccSynthetic    uint16 = 0x1000
	AccAnnotation   uint16 = 0x2000
	AccEnum         uint16 = 0x4000
)

const visibilityMask = AccPublic | AccPrivate | AccProtected

// Access wraps a raw flag word.
type Access uint16

func (a Access) Has(flags ...uint16) bool {
	for _, f := range flags {
		if uint16(a)&f != f {
			return false
		}
	}
	return true
}

func (a Access) IsPublic() bool    { return a.Has(AccPublic) }
func (a Access) IsPrivate() bool   { return a.Has(AccPrivate) }
func (a Access) IsStatic() bool    { return a.Has(AccStatic) }
func (a Access) IsFinal() bool     { return a.Has(AccFinal) }
func (a Access) IsNative() bool    { return a.Has(AccNative) }
func (a Access) IsInterface() bool { return a.Has(AccInterface) }
func (a Access) IsEnum() bool      { return a.Has(AccEnum) }

// WithVisibility replaces the visibility bits and keeps everything else.
func (a Access) WithVisibility(flag uint16) Access {
	return Access((uint16(a) &^ visibilityMask) | flag)
}
