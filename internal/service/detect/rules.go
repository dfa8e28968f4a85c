package detect

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAML []byte

type markerSpec struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`
	Pattern string `yaml:"pattern"`
}

type rulesFile struct {
	Markers []markerSpec `yaml:"markers"`
}

type marker struct {
	name    string
	literal string
	regex   *regexp.Regexp
}

// Registry holds the compiled boundary markers. The marker set ships
// embedded in the binary; LoadRules can be pointed at alternate YAML for
// tests.
type Registry struct {
	markers []marker
}

// NewRegistry compiles the embedded marker set.
func NewRegistry() (*Registry, error) {
	return LoadRules(rulesYAML)
}

// LoadRules compiles a marker set from YAML.
func LoadRules(data []byte) (*Registry, error) {
	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse boundary rules: %w", err)
	}
	if len(file.Markers) == 0 {
		return nil, fmt.Errorf("boundary rules: no markers defined")
	}

	reg := &Registry{markers: make([]marker, 0, len(file.Markers))}
	for _, spec := range file.Markers {
		switch spec.Kind {
		case "literal":
			reg.markers = append(reg.markers, marker{name: spec.Name, literal: spec.Pattern})
		case "regex":
			re, err := regexp.Compile(spec.Pattern)
			if err != nil {
				return nil, fmt.Errorf("boundary rule %q: %w", spec.Name, err)
			}
			reg.markers = append(reg.markers, marker{name: spec.Name, regex: re})
		default:
			return nil, fmt.Errorf("boundary rule %q: unknown kind %q", spec.Name, spec.Kind)
		}
	}
	return reg, nil
}

// Match returns the union of rune offsets where any marker matches, in no
// particular order and possibly with duplicates. Returns nil when no
// marker matches anywhere, which is the signal to fall back to the
// classifier.
func (r *Registry) Match(text string) []int {
	var positions []int
	for _, m := range r.markers {
		if m.regex != nil {
			for _, loc := range m.regex.FindAllStringIndex(text, -1) {
				positions = append(positions, utf8.RuneCountInString(text[:loc[0]]))
			}
			continue
		}

		from := 0
		for {
			i := strings.Index(text[from:], m.literal)
			if i < 0 {
				break
			}
			at := from + i
			positions = append(positions, utf8.RuneCountInString(text[:at]))
			_, width := utf8.DecodeRuneInString(text[at:])
			from = at + width
		}
	}
	return positions
}
