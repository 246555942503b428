package types

import (
	"bytes"
	"encoding/binary"
)

// Value abstracts the typed values index keys are built from
type Value struct {
	valueType TypeID
	integer   *int32
	boolean   *bool
	varchar   *string
}

func NewInteger(value int32) Value {
	return Value{Integer, &value, nil, nil}
}

func NewBoolean(value bool) Value {
	return Value{Boolean, nil, &value, nil}
}

func NewVarchar(value string) Value {
	return Value{Varchar, nil, nil, &value}
}

func (v Value) ValueType() TypeID {
	return v.valueType
}

func (v Value) ToInteger() int32 {
	return *v.integer
}

func (v Value) ToBoolean() bool {
	return *v.boolean
}

func (v Value) ToVarchar() string {
	return *v.varchar
}

// Serialize converts the value into a byte sequence
func (v Value) Serialize() []byte {
	switch v.valueType {
	case Integer:
		buf := new(bytes.Buffer)
		binary.Write(buf, binary.LittleEndian, v.ToInteger())
		return buf.Bytes()
	case Boolean:
		buf := new(bytes.Buffer)
		binary.Write(buf, binary.LittleEndian, v.ToBoolean())
		return buf.Bytes()
	case Varchar:
		return []byte(v.ToVarchar())
	}
	return []byte{}
}

// CompareEquals reports whether both values carry the same typed content
func (v Value) CompareEquals(right Value) bool {
	if v.valueType != right.valueType {
		return false
	}
	switch v.valueType {
	case Integer:
		return v.ToInteger() == right.ToInteger()
	case Boolean:
		return v.ToBoolean() == right.ToBoolean()
	case Varchar:
		return v.ToVarchar() == right.ToVarchar()
	}
	return false
}
