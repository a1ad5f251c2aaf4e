package stream

import (
	"regexp"
	"strconv"

	"github.com/m-a-x-v/buildings-dashboard/pkg/models"
)

// Header sniffing bounds. Sniffing starts once an in-progress object has
// buffered at least headerScanThreshold bytes and never scans past
// headerScanLimit bytes of one object, so a huge object cannot make repeated
// rescans unbounded.
const (
	headerScanThreshold = 800
	headerScanLimit     = 20000
)

// These match the literal JSON key/value syntax, not parsed structure; a
// value that appears first in the text wins even if a same-named key deeper
// in the object differs. The later full parse supersedes the header anyway.
var (
	headerIDPattern      = regexp.MustCompile(`"buildingId"\s*:\s*"([^"]+)"`)
	headerNamePattern    = regexp.MustCompile(`"name"\s*:\s*"([^"]+)"`)
	headerAddressPattern = regexp.MustCompile(`"address"\s*:\s*"([^"]+)"`)
	headerLatPattern     = regexp.MustCompile(`"lat"\s*:\s*(-?\d+(?:\.\d+)?)`)
	headerLngPattern     = regexp.MustCompile(`"lng"\s*:\s*(-?\d+(?:\.\d+)?)`)
)

// SniffHeader opportunistically extracts a building header from the raw text
// of an object that has not finished streaming. It reports false until the
// identity field has appeared in the buffered text. The scan is capped at
// headerScanLimit bytes.
func SniffHeader(span []byte) (models.BuildingHeader, bool) {
	if len(span) > headerScanLimit {
		span = span[:headerScanLimit]
	}

	idMatch := headerIDPattern.FindSubmatch(span)
	if idMatch == nil {
		return models.BuildingHeader{}, false
	}

	header := models.BuildingHeader{BuildingID: string(idMatch[1])}
	if m := headerNamePattern.FindSubmatch(span); m != nil {
		header.Name = string(m[1])
	}
	if m := headerAddressPattern.FindSubmatch(span); m != nil {
		header.Address = string(m[1])
	}
	if m := headerLatPattern.FindSubmatch(span); m != nil {
		if v, err := strconv.ParseFloat(string(m[1]), 64); err == nil {
			header.Lat = &v
		}
	}
	if m := headerLngPattern.FindSubmatch(span); m != nil {
		if v, err := strconv.ParseFloat(string(m[1]), 64); err == nil {
			header.Lng = &v
		}
	}
	return header, true
}
