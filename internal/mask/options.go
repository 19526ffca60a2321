package mask

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// StructuralClasses are the segmentation classes treated as "preserve":
// redecoration must not repaint them.
var StructuralClasses = map[string]bool{
	"wall":    true,
	"window":  true,
	"ceiling": true,
	"floor":   true,
}

// Options control a single mask generation. The zero value is not useful;
// start from DefaultOptions and apply per-call overrides.
type Options struct {
	UseExternal      bool
	MultiPass        bool
	Feather          bool
	HighConfidence   float64
	MediumConfidence float64
	// ClassThresholds overrides HighConfidence for individual classes.
	ClassThresholds map[string]float64
}

// DefaultOptions returns the service-wide defaults.
func DefaultOptions() Options {
	return Options{
		UseExternal:      true,
		MultiPass:        false,
		Feather:          true,
		HighConfidence:   0.85,
		MediumConfidence: 0.55,
	}
}

// Merge applies per-call overrides key-by-key. Recognized keys:
// useExternal, multiPass, feather, highConfidence, mediumConfidence, and
// threshold.<class>. Unrecognized keys are ignored.
func (o Options) Merge(overrides map[string]any) Options {
	merged := o
	if len(o.ClassThresholds) > 0 {
		merged.ClassThresholds = make(map[string]float64, len(o.ClassThresholds))
		for k, v := range o.ClassThresholds {
			merged.ClassThresholds[k] = v
		}
	}
	for key, raw := range overrides {
		switch {
		case key == "useExternal":
			if v, ok := asBool(raw); ok {
				merged.UseExternal = v
			}
		case key == "multiPass":
			if v, ok := asBool(raw); ok {
				merged.MultiPass = v
			}
		case key == "feather":
			if v, ok := asBool(raw); ok {
				merged.Feather = v
			}
		case key == "highConfidence":
			if v, ok := asFloat(raw); ok {
				merged.HighConfidence = v
			}
		case key == "mediumConfidence":
			if v, ok := asFloat(raw); ok {
				merged.MediumConfidence = v
			}
		case strings.HasPrefix(key, "threshold."):
			class := strings.TrimPrefix(key, "threshold.")
			if v, ok := asFloat(raw); ok && class != "" {
				if merged.ClassThresholds == nil {
					merged.ClassThresholds = make(map[string]float64)
				}
				merged.ClassThresholds[class] = v
			}
		}
	}
	return merged
}

// thresholdFor resolves the preserve threshold for a class.
func (o Options) thresholdFor(class string) float64 {
	if v, ok := o.ClassThresholds[class]; ok {
		return v
	}
	return o.HighConfidence
}

// canonical renders the effective option set deterministically so it can be
// folded into the cache fingerprint.
func (o Options) canonical() string {
	parts := []string{
		"feather=" + strconv.FormatBool(o.Feather),
		"high=" + strconv.FormatFloat(o.HighConfidence, 'f', 4, 64),
		"medium=" + strconv.FormatFloat(o.MediumConfidence, 'f', 4, 64),
		"multiPass=" + strconv.FormatBool(o.MultiPass),
		"useExternal=" + strconv.FormatBool(o.UseExternal),
	}
	for class, v := range o.ClassThresholds {
		parts = append(parts, fmt.Sprintf("threshold.%s=%s", class, strconv.FormatFloat(v, 'f', 4, 64)))
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

func asBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(t)
		return b, err == nil
	default:
		return false, false
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
