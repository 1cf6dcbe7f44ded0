package geo

import (
	"testing"

	"github.com/TheFortz/combat/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointRoundTrip(t *testing.T) {
	v := core.Vec2{X: 100.5, Y: -200.25}

	p := Point(v)
	assert.False(t, p.IsEmpty())

	got, err := Vec(p)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestVecEmptyPoint(t *testing.T) {
	_, err := Vec(geom.NewEmptyPoint(geom.DimXY))
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestPath(t *testing.T) {
	pts := []core.Vec2{{X: 0, Y: 0}, {X: 3, Y: 4}, {X: 3, Y: 10}}

	ls := Path(pts)
	require.False(t, ls.IsEmpty())
	assert.Equal(t, pts, PathPoints(ls))
	assert.InDelta(t, 11.0, PathLength(pts), 1e-9)
}

func TestPathTooShort(t *testing.T) {
	assert.True(t, Path(nil).IsEmpty())
	assert.True(t, Path([]core.Vec2{{X: 1, Y: 1}}).IsEmpty())
	assert.Empty(t, PathPoints(Path(nil)))
	assert.Zero(t, PathLength([]core.Vec2{{X: 1, Y: 1}}))
}

func TestPointWKT(t *testing.T) {
	assert.Equal(t, "POINT(1 2)", PointWKT(core.Vec2{X: 1, Y: 2}))
}
