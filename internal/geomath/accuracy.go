package geomath

import "minaret/internal/types"

// Platform identifies the sensor API family a raw accuracy code came from.
// The two platforms order their codes in opposite directions, so the
// mapping must stay parameterized; collapsing it to a single ordering
// silently misclassifies one platform.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// ClassifyAccuracy maps a raw platform accuracy code to the four-level
// confidence classification.
//
// iOS reports lower codes for better readings (<=1 best); Android reports
// higher codes for better readings (3 best). Unknown codes and unknown
// platforms classify as unreliable.
func ClassifyAccuracy(code int, platform Platform) types.AccuracyClass {
	switch platform {
	case PlatformIOS:
		switch {
		case code <= 1:
			return types.AccuracyHigh
		case code == 2:
			return types.AccuracyMedium
		case code == 3:
			return types.AccuracyLow
		default:
			return types.AccuracyUnreliable
		}
	case PlatformAndroid:
		switch code {
		case 3:
			return types.AccuracyHigh
		case 2:
			return types.AccuracyMedium
		case 1:
			return types.AccuracyLow
		default:
			return types.AccuracyUnreliable
		}
	default:
		return types.AccuracyUnreliable
	}
}
