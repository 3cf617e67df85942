// Package timezone maps a geographic coordinate to an IANA timezone
// identifier using coarse bounding-box heuristics.
//
// A polygon-accurate timezone database would add megabytes of boundary
// data for a problem the upstream timings provider only needs an
// approximate answer to. The resolver instead prefers the device/system
// zone whenever the coordinate does not actively contradict it, and
// falls back to one representative zone per macro-region.
package timezone

import (
	"log/slog"
	"strings"
	"time"

	"minaret/internal/types"
)

// box is an inclusive latitude/longitude bounding box.
type box struct {
	minLat, maxLat float64
	minLon, maxLon float64
}

func (b box) contains(c types.Coordinate) bool {
	return c.Latitude >= b.minLat && c.Latitude <= b.maxLat &&
		c.Longitude >= b.minLon && c.Longitude <= b.maxLon
}

// Region boxes. Turkey takes priority over the generic Europe box because
// the upstream provider is tuned for the Diyanet calendar in that region.
var (
	turkeyBox       = box{35.8, 42.1, 25.7, 44.8}
	sfBayBox        = box{37.0, 38.0, -123.0, -121.0}
	europeBox       = box{35, 71, -10, 40}
	northAmericaBox = box{25, 70, -170, -50}
	asiaBox         = box{10, 70, 40, 180}
	africaBox       = box{-35, 35, -20, 55}
	australiaBox    = box{-45, -10, 110, 155}
)

// LocalZoneFunc returns the runtime's local timezone name. Injectable so
// tests can simulate arbitrary device settings.
type LocalZoneFunc func() string

// systemZone reads the process-local zone name. time.Local carries the
// IANA name on platforms where TZ or the system zoneinfo is set; an
// empty or non-IANA name simply fails the compatibility check below.
func systemZone() string {
	return time.Now().Location().String()
}

// Resolver implements types.TimezoneResolver. The zero value is not
// usable; construct with NewResolver.
type Resolver struct {
	localZone LocalZoneFunc
	logger    *slog.Logger
}

// NewResolver creates a Resolver. localZone may be nil, in which case the
// process-local zone is used.
func NewResolver(localZone LocalZoneFunc, logger *slog.Logger) *Resolver {
	if localZone == nil {
		localZone = systemZone
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{localZone: localZone, logger: logger}
}

// Resolve maps a coordinate to an IANA timezone string. It never fails
// and always returns a non-empty identifier. Priority order:
//
//  1. Turkey bounding box -> "Europe/Istanbul", unconditionally.
//  2. The local (device/system) zone, if compatible with the coordinate's
//     macro-region.
//  3. A geographic decision table keyed on macro-region boxes.
//  4. "UTC".
func (r *Resolver) Resolve(coord types.Coordinate) string {
	if turkeyBox.contains(coord) {
		return "Europe/Istanbul"
	}

	geographic := geographicZone(coord)

	if local := r.localZone(); local != "" {
		if compatible(local, coord) {
			return local
		}
		r.logger.Debug("local timezone incompatible with coordinate",
			"local", local,
			"coordinate", coord.String(),
			"geographic", geographic,
		)
	}

	return geographic
}

// compatible reports whether a zone name plausibly covers the coordinate.
// The check is deliberately loose: the local zone is usually right, and
// it should only be rejected when the coordinate clearly contradicts it.
func compatible(zone string, coord types.Coordinate) bool {
	switch {
	case turkeyBox.contains(coord):
		return zone == "Europe/Istanbul"
	case sfBayBox.contains(coord):
		return zone == "America/Los_Angeles" || strings.Contains(zone, "America/Pacific")
	case europeBox.contains(coord):
		return strings.HasPrefix(zone, "Europe/")
	case northAmericaBox.contains(coord):
		return strings.HasPrefix(zone, "America/")
	case asiaBox.contains(coord):
		return strings.HasPrefix(zone, "Asia/")
	default:
		// Unknown region: prefer the geographic table.
		return false
	}
}

// geographicZone is the pure coordinate-to-zone decision table: one
// representative zone per macro-region, keyed on longitude bands within
// the continental boxes.
func geographicZone(coord types.Coordinate) string {
	lon := coord.Longitude

	switch {
	case turkeyBox.contains(coord):
		return "Europe/Istanbul"

	case europeBox.contains(coord):
		switch {
		case lon >= 5 && lon <= 15:
			return "Europe/Berlin"
		case lon > 15 && lon <= 25:
			return "Europe/Warsaw"
		case lon >= -5 && lon < 5:
			return "Europe/Paris"
		case lon >= -10 && lon < -5:
			return "Europe/London"
		default:
			return "Europe/Berlin"
		}

	case northAmericaBox.contains(coord):
		if sfBayBox.contains(coord) {
			return "America/Los_Angeles"
		}
		switch {
		case lon >= -75:
			return "America/New_York"
		case lon >= -90:
			return "America/Chicago"
		case lon >= -105:
			return "America/Denver"
		default:
			return "America/Los_Angeles"
		}

	case asiaBox.contains(coord):
		switch {
		case lon >= 100 && lon <= 140:
			return "Asia/Shanghai"
		case lon >= 60 && lon < 100:
			return "Asia/Karachi"
		case lon >= 40 && lon < 60:
			return "Asia/Dubai"
		default:
			return "Asia/Tokyo"
		}

	case africaBox.contains(coord):
		return "Africa/Cairo"

	case australiaBox.contains(coord):
		return "Australia/Sydney"

	default:
		return "UTC"
	}
}
