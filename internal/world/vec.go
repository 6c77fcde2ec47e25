package world

import (
	"math"

	"combat-mc/internal/scenario"
)

// Vec3 is a Cartesian vector in meters or meters per second.
type Vec3 struct{ X, Y, Z float64 }

func fromScenario(v scenario.Vec3) Vec3 { return Vec3{v[0], v[1], v[2]} }

func (a Vec3) Add(b Vec3) Vec3      { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3      { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(k float64) Vec3 { return Vec3{a.X * k, a.Y * k, a.Z * k} }
func (a Vec3) Norm() float64        { return math.Sqrt(a.X*a.X + a.Y*a.Y + a.Z*a.Z) }
func (a Vec3) Dist(b Vec3) float64  { return a.Sub(b).Norm() }

// Toward returns a vector of length speed pointing from a to b.
func (a Vec3) Toward(b Vec3, speed float64) Vec3 {
	d := b.Sub(a)
	n := d.Norm()
	if n == 0 {
		return Vec3{}
	}
	return d.Scale(speed / n)
}
