package core

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ParentKey returns the identity key of a parent. Batch workbooks carry a
// source id per physical parent; form submissions are keyed by phone.
func ParentKey(mode Mode, originalID, phone string) string {
	if mode == ModeBatch {
		return strings.TrimSpace(originalID)
	}
	return NormalizePhone(phone)
}

// ChildKey identifies a child within its parent. Age is part of identity:
// the same name with a different age is a different child.
type ChildKey struct {
	ParentID int64
	Name     string // NameKey of the full name
	Age      int
}

// NewChildKey builds the key for a child slot resolved under parentID.
func NewChildKey(parentID int64, fullName string, age int) ChildKey {
	return ChildKey{ParentID: parentID, Name: NameKey(fullName), Age: age}
}

// String joins the key parts as "<parent>_<NAME>_<age>".
func (k ChildKey) String() string {
	return strconv.FormatInt(k.ParentID, 10) + "_" + k.Name + "_" + strconv.Itoa(k.Age)
}

// NameKey uppercases a name and collapses its whitespace, so "jane  doe "
// and "Jane Doe" compare equal. Names are NFC-normalized first: a form
// typed on a phone may send "é" as "e" plus a combining accent.
func NameKey(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(norm.NFC.String(name)), " "))
}
