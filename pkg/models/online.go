package models

import "strings"

// OnlineState is the tri-state resolution of a device's connectivity signal.
// Unknown devices count toward device totals but are excluded from the
// online/offline tally; they must never be coerced to a boolean.
type OnlineState string

const (
	OnlineStateOnline  OnlineState = "online"
	OnlineStateOffline OnlineState = "offline"
	OnlineStateUnknown OnlineState = "unknown"
)

// Closed vocabulary of status tokens. Tokens outside both sets resolve to
// unknown; the table is deliberately not extensible at runtime.
var onlineTokens = map[string]struct{}{
	"online": {}, "connected": {}, "active": {}, "ok": {}, "normal": {},
	"nominal": {}, "good": {}, "warning": {}, "warn": {}, "available": {},
	"healthy": {}, "up": {}, "on": {}, "ready": {}, "running": {},
	"alive": {}, "enabled": {}, "true": {}, "1": {},
}

var offlineTokens = map[string]struct{}{
	"offline": {}, "disconnected": {}, "inactive": {}, "down": {},
	"error": {}, "err": {}, "fault": {}, "faulted": {}, "fail": {},
	"failed": {}, "bad": {}, "alarm": {}, "alert": {}, "critical": {},
	"off": {}, "unknown": {}, "lost": {}, "false": {}, "0": {},
}

// parseBooleanLike interprets a loosely typed connectivity value: booleans
// pass through, numbers 1/0 map to true/false, and single string tokens are
// matched against the vocabulary. Anything else is unresolved.
func parseBooleanLike(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case float64:
		if val == 1 {
			return true, true
		}
		if val == 0 {
			return false, true
		}
	case string:
		tok := strings.ToLower(strings.TrimSpace(val))
		if tok == "" {
			return false, false
		}
		if _, ok := onlineTokens[tok]; ok {
			return true, true
		}
		if _, ok := offlineTokens[tok]; ok {
			return false, true
		}
	}
	return false, false
}

// ResolveOnline derives the tri-state online flag for a raw device.
// Precedence: the explicit isOnline/online field if boolean-like, then the
// free-text status tokenized against the vocabulary (offline tokens win),
// else unknown.
func (d RawDevice) ResolveOnline() OnlineState {
	direct := d.IsOnline
	if direct == nil {
		direct = d.Online
	}
	if v, ok := parseBooleanLike(direct); ok {
		if v {
			return OnlineStateOnline
		}
		return OnlineStateOffline
	}

	if status, ok := d.Status.(string); ok {
		tokens := tokenizeStatus(status)
		for _, tok := range tokens {
			if _, off := offlineTokens[tok]; off {
				return OnlineStateOffline
			}
		}
		for _, tok := range tokens {
			if _, on := onlineTokens[tok]; on {
				return OnlineStateOnline
			}
		}
	}
	return OnlineStateUnknown
}

// StatusText returns the device status when the feed delivered it as free
// text, or "" when absent or non-string.
func (d RawDevice) StatusText() string {
	s, _ := d.Status.(string)
	return s
}

// tokenizeStatus lowercases a status string and splits it on runs of
// non-alphanumeric characters.
func tokenizeStatus(status string) []string {
	lower := strings.ToLower(strings.TrimSpace(status))
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}
