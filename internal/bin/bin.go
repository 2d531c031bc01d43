// Package bin reads and writes 32-bit words in host byte order, which
// is what the Wayland wire format uses.
package bin

import (
	"io"
	"unsafe"
)

// Word is a type that occupies exactly one wire word.
type Word interface {
	~int32 | ~uint32
}

func Bytes[T Word](v T) [4]byte {
	return *(*[4]byte)(unsafe.Pointer(&v))
}

func Value[T Word](data [4]byte) T {
	return *(*T)(unsafe.Pointer(&data))
}

func Read[T Word](r io.Reader) (T, error) {
	var data [4]byte
	_, err := io.ReadFull(r, data[:])
	if err != nil {
		return 0, err
	}

	return Value[T](data), nil
}

func Write[T Word](w io.Writer, v T) error {
	data := Bytes(v)
	n, err := w.Write(data[:])
	if (err == nil) && (n < len(data)) {
		return io.ErrShortWrite
	}
	return err
}

// Words decodes a byte slice, such as a wl_array argument, into a
// slice of words. Trailing bytes that do not fill a word are ignored.
func Words[T Word](data []byte) []T {
	s := make([]T, 0, len(data)/4)
	for len(data) >= 4 {
		s = append(s, Value[T]([4]byte(data[:4])))
		data = data[4:]
	}
	return s
}
