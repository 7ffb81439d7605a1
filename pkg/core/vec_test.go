package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddSubVec4(t *testing.T) {
	a := NewVec4(1, 2, 3, 10)
	b := NewVec4(0.5, -1, 4, 6)

	sum := AddVec4(a, b)
	assert.Equal(t, NewVec4(1.5, 1, 7, 16), sum)
	assert.Equal(t, NewVec4(1, 2, 3, 10), a, "operands are not modified")
	assert.Equal(t, NewVec4(0.5, -1, 4, 6), b)

	assert.Equal(t, a, SubVec4(sum, b))
	assert.Equal(t, NewVec4(0.5, 3, -1, 4), SubVec4(a, b))
}

func TestAbsPAndM2(t *testing.T) {
	p := NewVec4(3, 4, 12, 14)
	assert.Equal(t, 13.0, AbsP(p))
	assert.Equal(t, 27.0, M2(p))

	// negative energy does not flip the magnitude
	assert.Equal(t, 13.0, AbsP(NewVec4(3, 4, 12, -14)))
	assert.Less(t, M2(NewVec4(10, 0, 0, 1)), 0.0)
}
