package shapes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	scalar := Scalar()
	require.True(t, scalar.IsScalar())
	require.Equal(t, 0, scalar.Rank())
	require.Equal(t, 1, scalar.Size())
	require.Equal(t, "()", scalar.String())

	shape := Make(4, 3, 2)
	require.False(t, shape.IsScalar())
	require.Equal(t, 3, shape.Rank())
	require.Equal(t, 4*3*2, shape.Size())
	require.Equal(t, "[4 3 2]", shape.String())
	require.Equal(t, 4, shape.Dim(0))
	require.Equal(t, 2, shape.Dim(-1))

	require.True(t, shape.Equal(Make(4, 3, 2)))
	require.False(t, shape.Equal(Make(4, 3)))
	require.False(t, shape.Equal(Make(4, 3, 1)))

	clone := shape.Clone()
	clone.Dimensions[0] = 7
	require.Equal(t, 4, shape.Dim(0))

	// Zero-sized axes are legal and make the grid empty.
	empty := Make(4, 0, 2)
	require.Equal(t, 0, empty.Size())

	require.Panics(t, func() { Make(3, -1) })
	require.Panics(t, func() { shape.Dim(3) })
	require.Panics(t, func() { shape.Dim(-4) })
}

func TestConcatenate(t *testing.T) {
	require.Equal(t, Make(2, 3, 1024, 5), Concatenate(Make(2, 3), Make(1024, 5)))
	require.Equal(t, Make(1024, 5), Concatenate(Scalar(), Make(1024, 5)))
	require.Equal(t, Make(2, 3), Concatenate(Make(2, 3), Scalar()))
	assert.True(t, Concatenate(Scalar(), Scalar()).IsScalar())
}
