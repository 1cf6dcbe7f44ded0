// Package geo converts arena vectors to and from simplefeatures geometry.
// Arena coordinates are planar pixels; geometry is stored as XY WKB with no SRID,
// which works unchanged in both SQLite and PostgreSQL columns.
package geo

import (
	"errors"

	"github.com/TheFortz/combat/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// ErrInvalidCoordinates is returned when a geometry cannot be represented as arena coordinates
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Point builds an XY point from an arena position.
func Point(v core.Vec2) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: v.X, Y: v.Y},
		Type: geom.DimXY,
	})
}

// Vec returns the arena position of a point. An empty point is an error.
func Vec(p geom.Point) (core.Vec2, error) {
	c, ok := p.Coordinates()
	if !ok {
		return core.Vec2{}, ErrInvalidCoordinates
	}
	return core.Vec2{X: c.X, Y: c.Y}, nil
}

// Path builds a LineString from projectile positions. Fewer than two
// positions yield an empty LineString since a single vertex is not a valid line.
func Path(points []core.Vec2) geom.LineString {
	if len(points) < 2 {
		return geom.LineString{}
	}
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.X, p.Y)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
}

// PathPoints returns the vertices of a LineString as arena positions.
func PathPoints(ls geom.LineString) []core.Vec2 {
	seq := ls.Coordinates()
	out := make([]core.Vec2, seq.Length())
	for i := range out {
		xy := seq.GetXY(i)
		out[i] = core.Vec2{X: xy.X, Y: xy.Y}
	}
	return out
}

// PathLength is the distance travelled along a recorded path.
func PathLength(points []core.Vec2) float64 {
	return Path(points).Length()
}

// PointWKT renders a point for log lines.
func PointWKT(v core.Vec2) string {
	return Point(v).AsText()
}
