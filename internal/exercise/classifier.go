package exercise

// Form thresholds in degrees, except CurlMaxSwing which is in torso lengths.
const (
	SquatExcellentDepth = 95.0
	SquatShallowLimit   = 115.0

	CurlMaxContraction = 65.0
	CurlMaxSwing       = 0.20

	PressMinLockout = 150.0
	PressMaxBottom  = 105.0
)

// ClassifySquat grades squat depth from the deepest knee angle of the rep.
func ClassifySquat(kneeAngle float64) Feedback {
	switch {
	case kneeAngle <= SquatExcellentDepth:
		return Feedback{Text: "Excellent Depth", Tag: TagNone}
	case kneeAngle < SquatShallowLimit:
		return Feedback{Text: "Slightly Shallow", Tag: TagShallowSquat}
	default:
		return Feedback{Text: "Very Shallow", Tag: TagCriticalShallow}
	}
}

// ClassifyCurl grades a curl from its tightest elbow angle and the largest
// elbow drift seen while lifting. Contraction is checked before swing.
func ClassifyCurl(elbowAngle, swingScore float64) Feedback {
	switch {
	case elbowAngle > CurlMaxContraction:
		return Feedback{Text: "Incomplete Contraction", Tag: TagIncompleteContraction}
	case swingScore > CurlMaxSwing:
		return Feedback{Text: "Elbow Swinging", Tag: TagElbowSwinging}
	default:
		return Feedback{Text: "Good Curl", Tag: TagNone}
	}
}

// ClassifyPress grades a press from the lockout extension and the depth of the
// preceding bottom position. Lockout is checked before range of motion.
func ClassifyPress(maxExtension, minFlexion float64) Feedback {
	switch {
	case maxExtension < PressMinLockout:
		return Feedback{Text: "Incomplete Lockout", Tag: TagIncompleteLockout}
	case minFlexion > PressMaxBottom:
		return Feedback{Text: "Short Range of Motion", Tag: TagShortRangeOfMotion}
	default:
		return Feedback{Text: "Good Press", Tag: TagNone}
	}
}
