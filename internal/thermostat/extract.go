package thermostat

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// object is a decoded JSON object. Numbers are json.Number.
type object = map[string]any

// firstValue returns the first non-null value among keys.
func firstValue(m object, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// nestedValue returns the first non-null value found by walking each path.
func nestedValue(m object, paths ...[]string) any {
	for _, path := range paths {
		var cur any = m
		for _, k := range path {
			obj, ok := cur.(object)
			if !ok {
				cur = nil
				break
			}
			cur = obj[k]
		}
		if cur != nil {
			return cur
		}
	}
	return nil
}

// capabilityType returns the lower-cased type of a capability list item.
func capabilityType(item object) string {
	v := firstValue(item, "type", "name", "capability")
	s, _ := toText(v)
	return strings.ToLower(s)
}

// capabilityItemValue reads "value", falling back to "val".
func capabilityItemValue(item object) any {
	return firstValue(item, "value", "val")
}

// lowerSet builds a lookup set of lower-cased names.
func lowerSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = true
	}
	return set
}

// airQualityContainers are the keys under which thermostats carry
// air-quality capabilities.
var airQualityContainers = []string{
	"capabilities", "capability", "settings", "equipment", "air_quality", "airQuality",
}

// airQualityValue reads an air-quality reading. runtime.<runtimeKey> wins,
// then capability containers (maps keyed by name or typed lists), then
// top-level fallback keys.
func airQualityValue(t object, runtimeKey string, fallbacks ...string) any {
	if v := nestedValue(t, []string{"runtime", runtimeKey}); v != nil {
		return v
	}

	keys := append([]string{runtimeKey}, fallbacks...)
	types := lowerSet(keys...)
	for _, ck := range airQualityContainers {
		switch c := t[ck].(type) {
		case object:
			if v := firstValue(c, keys...); v != nil {
				return v
			}
		case []any:
			for _, raw := range c {
				item, ok := raw.(object)
				if !ok || !types[capabilityType(item)] {
					continue
				}
				if v := capabilityItemValue(item); v != nil {
					return v
				}
			}
		}
	}

	return firstValue(t, keys...)
}

// sensorCapabilityLists are the keys under which remote sensors carry
// their readings as capabilities.
var sensorCapabilityLists = []string{"capability", "capabilities", "capabilityList"}

// sensorValue reads a remote sensor reading: direct keys, then nested paths,
// then capabilities.
func sensorValue(s object, direct []string, nested [][]string, capTypes ...string) any {
	if v := firstValue(s, direct...); v != nil {
		return v
	}
	if v := nestedValue(s, nested...); v != nil {
		return v
	}

	types := lowerSet(capTypes...)
	for _, lk := range sensorCapabilityLists {
		switch caps := s[lk].(type) {
		case []any:
			for _, raw := range caps {
				item, ok := raw.(object)
				if !ok || !types[capabilityType(item)] {
					continue
				}
				if v := capabilityItemValue(item); v != nil {
					return v
				}
			}
		case object:
			for _, k := range sortedKeys(caps) {
				if !types[strings.ToLower(k)] {
					continue
				}
				if inner, ok := caps[k].(object); ok {
					if v := capabilityItemValue(inner); v != nil {
						return v
					}
					continue
				}
				if caps[k] != nil {
					return caps[k]
				}
			}
		}
	}
	return nil
}

// toNumber coerces a JSON number or numeric string. Booleans and non-finite
// values (NaN, Inf) are rejected.
func toNumber(v any) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch n := v.(type) {
	case json.Number:
		f, err = n.Float64()
	case float64:
		f = n
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err = strconv.ParseFloat(s, 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Boolean spellings accepted in string-typed fields.
var (
	truthy = map[string]bool{"true": true, "on": true, "yes": true, "occupied": true, "present": true, "1": true}
	falsy  = map[string]bool{"false": true, "off": true, "no": true, "unoccupied": true, "not present": true, "away": true, "0": true}
)

// toBool coerces a JSON boolean, number or one of the accepted strings.
func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case json.Number:
		f, err := b.Float64()
		if err != nil {
			return false, false
		}
		return f != 0, true
	case float64:
		return b != 0, true
	case string:
		s := strings.ToLower(strings.TrimSpace(b))
		if truthy[s] {
			return true, true
		}
		if falsy[s] {
			return false, true
		}
	}
	return false, false
}

// toText coerces a string or number. Blank strings, booleans and containers
// are rejected.
func toText(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		t := strings.TrimSpace(s)
		return t, t != ""
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	}
	return "", false
}

func optNumber(v any) Optional[float64] {
	if f, ok := toNumber(v); ok {
		return Some(f)
	}
	return None[float64]()
}

func optBool(v any) Optional[bool] {
	if b, ok := toBool(v); ok {
		return Some(b)
	}
	return None[bool]()
}

func optText(v any) Optional[string] {
	if s, ok := toText(v); ok {
		return Some(s)
	}
	return None[string]()
}
