// Package spatial plays queued audio between a movable 3D emitter and
// the listener's two ears, re-panning running streamers as positions
// change.
package spatial

import "math"

// Vec3 is a point in 3-dimensional space. Units and orientation are up
// to the caller; only relative distances matter to the gain law.
type Vec3 [3]float32

func dist(a, b Vec3) float64 {
	dx := float64(a[0] - b[0])
	dy := float64(a[1] - b[1])
	dz := float64(a[2] - b[2])
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
