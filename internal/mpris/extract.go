package mpris

import "github.com/godbus/dbus/v5"

// extractString coerces a D-Bus variant into a string. Most MPRIS string
// fields are sent as plain "s", but this tolerates "g"/"o" signature values
// (dbus.Signature/dbus.ObjectPath) some players send for url-ish fields.
func extractString(v dbus.Variant) (string, bool) {
	switch val := v.Value().(type) {
	case string:
		return val, true
	case dbus.ObjectPath:
		return string(val), true
	case dbus.Signature:
		return val.String(), true
	default:
		return "", false
	}
}

// extractStringList coerces a D-Bus variant into a string slice. Some
// non-compliant players send a bare string instead of an array for fields
// the spec defines as "as" (xesam:artist, xesam:genre, xesam:composer); that
// is accepted as a single-element list.
func extractStringList(v dbus.Variant) ([]string, bool) {
	switch val := v.Value().(type) {
	case []string:
		return val, true
	case string:
		if val == "" {
			return nil, true
		}
		return []string{val}, true
	default:
		return nil, false
	}
}

// extractInt64 coerces a D-Bus variant into an int64. mpris:length is typed
// "x" (int64) by the spec but players disagree in practice: some send "n"
// (int16), "i" (int32), or the unsigned equivalents, so every integer width
// is accepted.
func extractInt64(v dbus.Variant) (int64, bool) {
	return coerceInt64(v.Value())
}

// coerceInt64 does the same width-tolerant coercion as extractInt64, but
// on a raw decoded value — used for signal arguments (e.g. Seeked's
// position), which arrive as plain interface{} rather than wrapped in a
// dbus.Variant.
func coerceInt64(raw any) (int64, bool) {
	switch val := raw.(type) {
	case int64:
		return val, true
	case int32:
		return int64(val), true
	case int16:
		return int64(val), true
	case int:
		return int64(val), true
	case uint64:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint16:
		return int64(val), true
	case byte:
		return int64(val), true
	default:
		return 0, false
	}
}

// extractInt32 coerces a D-Bus variant into an int32, covering the same
// integer-width disagreements as extractInt64 for fields the spec types
// narrower (xesam:trackNumber, xesam:discNumber are "i").
func extractInt32(v dbus.Variant) (int32, bool) {
	switch val := v.Value().(type) {
	case int32:
		return val, true
	case int64:
		return int32(val), true
	case int16:
		return int32(val), true
	case int:
		return int32(val), true
	case uint64:
		return int32(val), true
	case uint32:
		return int32(val), true
	case uint16:
		return int32(val), true
	case byte:
		return int32(val), true
	default:
		return 0, false
	}
}

// extractFloat64 coerces a D-Bus variant into a float64 (xesam:userRating
// is sometimes sent as an integer by players that treat it as a whole
// number). xesam:audioBPM is read with extractInt32 instead.
func extractFloat64(v dbus.Variant) (float64, bool) {
	switch val := v.Value().(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case int:
		return float64(val), true
	default:
		return 0, false
	}
}
