// Package kinematics derives joint angles and limb metrics from body keypoints.
package kinematics

import (
	"fmt"
	"math"

	"github.com/ayusman/formcheck/internal/pose"
)

// Reading is a joint angle in degrees, or Undetected when a landmark was missing.
type Reading struct {
	degrees  float64
	detected bool
}

// Undetected is the reading produced when any input landmark sits at the origin.
var Undetected = Reading{}

// Detected wraps a measured angle.
func Detected(degrees float64) Reading {
	return Reading{degrees: degrees, detected: true}
}

// Degrees returns the angle and whether it was detected.
func (r Reading) Degrees() (float64, bool) {
	return r.degrees, r.detected
}

// IsDetected reports whether the reading carries an angle.
func (r Reading) IsDetected() bool {
	return r.detected
}

func (r Reading) String() string {
	if !r.detected {
		return "undetected"
	}
	return fmt.Sprintf("%.1f°", r.degrees)
}

// Angle returns the planar angle at vertex b between the rays b→a and b→c,
// normalized to [0, 180] degrees.
func Angle(a, b, c pose.Point) Reading {
	if a.IsOrigin() || b.IsOrigin() || c.IsOrigin() {
		return Undetected
	}

	radians := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	degrees := math.Abs(radians * 180.0 / math.Pi)

	if degrees > 180.0 {
		degrees = 360.0 - degrees
	}

	return Detected(degrees)
}
