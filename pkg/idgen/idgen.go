// Package idgen produces the 10-character numeric record ids used for students and mentors.
package idgen

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

const Length = 10

// Generator returns a new id on every call.
type Generator func() string

// New draws a random uint32 and left-pads it with zeros to Length digits.
func New() string {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(fmt.Sprintf("idgen: reading random bytes: %v", err))
	}
	return fmt.Sprintf("%0*d", Length, binary.BigEndian.Uint32(buf[:]))
}

// Sequence returns a deterministic Generator starting at start. Tests use it to get predictable ids.
func Sequence(start uint32) Generator {
	var next atomic.Uint32
	next.Store(start)
	return func() string {
		return fmt.Sprintf("%0*d", Length, next.Add(1)-1)
	}
}
