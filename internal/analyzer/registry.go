package analyzer

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownDetector = errors.New("unknown detector")

var detectors = map[string]func() Detector{
	"tablet":   func() Detector { return NewTabletDetector() },
	"contrast": func() Detector { return NewContrastDetector() },
}

// Detectors lists the registered detector names.
func Detectors() []string {
	names := make([]string, 0, len(detectors))
	for name := range detectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewDetector returns the named detector; an empty name means "tablet".
func NewDetector(name string) (Detector, error) {
	if name == "" {
		name = "tablet"
	}
	ctor, ok := detectors[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (have %v)", ErrUnknownDetector, name, Detectors())
	}
	return ctor(), nil
}
