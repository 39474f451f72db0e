package heap

import (
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/staticheap/memutils"
)

// FieldWidth is the width in bytes of one header field
type FieldWidth int

const (
	FieldWidth8  FieldWidth = 1
	FieldWidth16 FieldWidth = 2
	FieldWidth32 FieldWidth = 4
)

var fieldWidthMapping = map[FieldWidth]string{
	FieldWidth8:  "FieldWidth8",
	FieldWidth16: "FieldWidth16",
	FieldWidth32: "FieldWidth32",
}

func (w FieldWidth) String() string {
	return fieldWidthMapping[w]
}

// MaxValue is the largest unsigned value the field can hold
func (w FieldWidth) MaxValue() uint64 {
	switch w {
	case FieldWidth8:
		return math.MaxUint8
	case FieldWidth16:
		return math.MaxUint16
	case FieldWidth32:
		return math.MaxUint32
	}

	return 0
}

func (w FieldWidth) validate(name string) error {
	if w < FieldWidth8 || w > FieldWidth32 {
		return errors.Wrapf(ErrInvalidLayout, "%s is %d bytes", name, int(w))
	}

	err := memutils.CheckPow2(int(w), name)
	if err != nil {
		return &invalidWidthError{err: err}
	}

	return nil
}

// invalidWidthError matches ErrInvalidLayout and unwraps to the failed power-of-two check, so both
// sentinels are found by errors.Is
type invalidWidthError struct {
	err error
}

func (e *invalidWidthError) Error() string {
	return ErrInvalidLayout.Error() + ": " + e.err.Error()
}

func (e *invalidWidthError) Unwrap() error {
	return e.err
}

func (e *invalidWidthError) Is(target error) bool {
	return target == ErrInvalidLayout
}

// Layout describes the block header: a size field followed by a link field. The header size is
// also the allocation unit, so every payload is a whole number of header-sized units.
//
// The size field bounds the largest block, and the link field bounds the distance between two
// consecutive free blocks. They can be widened independently.
type Layout struct {
	SizeWidth FieldWidth
	LinkWidth FieldWidth
}

// DefaultLayout is a 2-byte header with two single-byte fields
var DefaultLayout = Layout{SizeWidth: FieldWidth8, LinkWidth: FieldWidth8}

// HeaderSize returns the size in bytes of one header, which is also the allocation unit
func (l Layout) HeaderSize() int {
	return int(l.SizeWidth) + int(l.LinkWidth)
}

// Validate returns an error wrapping ErrInvalidLayout if either field width is unsupported
func (l Layout) Validate() error {
	err := l.SizeWidth.validate("SizeWidth")
	if err != nil {
		return err
	}

	return l.LinkWidth.validate("LinkWidth")
}

// checkUnits verifies that a heap of the provided number of units can be described by this layout:
// no block can be larger than units-1 and no link can be longer than units-1.
func (l Layout) checkUnits(units int) error {
	span := uint64(units - 1)
	if span > l.SizeWidth.MaxValue() {
		return errors.Wrapf(ErrEncodingOverflow, "a block may span %d units, but a %d-byte size field holds at most %d",
			span, int(l.SizeWidth), l.SizeWidth.MaxValue())
	}

	if span > l.LinkWidth.MaxValue() {
		return errors.Wrapf(ErrEncodingOverflow, "free blocks may be %d units apart, but a %d-byte link field holds at most %d",
			span, int(l.LinkWidth), l.LinkWidth.MaxValue())
	}

	return nil
}

func readField(data []byte, width FieldWidth) int {
	switch width {
	case FieldWidth8:
		return int(data[0])
	case FieldWidth16:
		return int(binary.LittleEndian.Uint16(data))
	case FieldWidth32:
		return int(binary.LittleEndian.Uint32(data))
	}

	panic("unsupported field width")
}

func writeField(data []byte, width FieldWidth, value int) {
	switch width {
	case FieldWidth8:
		data[0] = uint8(value)
	case FieldWidth16:
		binary.LittleEndian.PutUint16(data, uint16(value))
	case FieldWidth32:
		binary.LittleEndian.PutUint32(data, uint32(value))
	default:
		panic("unsupported field width")
	}
}
