package controller

import (
	"crypto/rand"
	"encoding/binary"
)

// UniqueID returns a random object ID. The build has no ID allocator; the
// controller picks IDs and 31 random bits make collisions unlikely enough
// for any realistic scene.
func UniqueID() int32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand does not fail on supported platforms.
		panic(err)
	}
	id := int32(binary.LittleEndian.Uint32(b[:]) & 0x7FFFFFFF)
	if id == 0 {
		return 1
	}
	return id
}
