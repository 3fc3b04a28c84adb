package envelope

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

type DiagnosticKind int

const (
	// shape value outside of known set, replaced
	UnsupportedShape DiagnosticKind = iota
	// behaviors differ or unsupported, coerced
	BehaviorMismatch
	// keys with equal or decreasing time
	DegenerateSegment
	// known shapes imported as smooth keys without resampling
	ShapeDowngraded
	// host modes without engine shape, exported as TCB
	UnsupportedInterpolation
	// host extrapolation without engine behavior, exported as linear
	UnsupportedExtrapolation
)

var diagnosticKindNames = [...]string{
	"UnsupportedShape",
	"BehaviorMismatch",
	"DegenerateSegment",
	"ShapeDowngraded",
	"UnsupportedInterpolation",
	"UnsupportedExtrapolation",
}

func (k DiagnosticKind) String() string {
	if int(k) < len(diagnosticKindNames) {
		return diagnosticKindNames[k]
	}
	return fmt.Sprintf("DiagnosticKind(%d)", int(k))
}

func (k DiagnosticKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *DiagnosticKind) UnmarshalText(text []byte) error {
	for i, name := range diagnosticKindNames {
		if name == string(text) {
			*k = DiagnosticKind(i)
			return nil
		}
	}
	return errors.Errorf("Unknown diagnostic kind %q", text)
}

// Diagnostic is a recoverable problem found during conversion
type Diagnostic struct {
	Kind        DiagnosticKind `json:"kind" yaml:"kind"`
	Envelope    string         `json:"envelope" yaml:"envelope"`
	Values      []string       `json:"values,omitempty" yaml:"values,omitempty"`
	Replacement string         `json:"replacement,omitempty" yaml:"replacement,omitempty"`
}

func (d Diagnostic) String() string {
	s := fmt.Sprintf("%v in %q", d.Kind, d.Envelope)
	if len(d.Values) != 0 {
		s += fmt.Sprintf(": %s", strings.Join(d.Values, ", "))
	}
	if d.Replacement != "" {
		s += fmt.Sprintf(" (replaced with %s)", d.Replacement)
	}
	return s
}

// Diagnostics collects problems of one or more conversions.
// It is not safe for concurrent use, use one collector per goroutine.
type Diagnostics struct {
	List []Diagnostic `json:"list" yaml:"list"`
	// every shape seen by all imports
	shapes map[string]struct{}
}

func NewDiagnostics() *Diagnostics {
	return &Diagnostics{shapes: make(map[string]struct{})}
}

func (d *Diagnostics) Add(diag Diagnostic) {
	if d != nil {
		d.List = append(d.List, diag)
	}
}

// addSet records single diagnostic with sorted distinct values
func (d *Diagnostics) addSet(kind DiagnosticKind, envelope string, set map[string]struct{}, replacement string) {
	if d == nil || len(set) == 0 {
		return
	}
	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Strings(values)
	d.Add(Diagnostic{Kind: kind, Envelope: envelope, Values: values, Replacement: replacement})
}

func (d *Diagnostics) seeShape(name string) {
	if d == nil {
		return
	}
	if d.shapes == nil {
		d.shapes = make(map[string]struct{})
	}
	d.shapes[name] = struct{}{}
}

// Shapes returns sorted names of every shape seen
func (d *Diagnostics) Shapes() []string {
	if d == nil {
		return nil
	}
	names := make([]string, 0, len(d.shapes))
	for name := range d.shapes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Diagnostics) Filter(kind DiagnosticKind) []Diagnostic {
	if d == nil {
		return nil
	}
	var out []Diagnostic
	for _, diag := range d.List {
		if diag.Kind == kind {
			out = append(out, diag)
		}
	}
	return out
}

func (d *Diagnostics) Len() int {
	if d == nil {
		return 0
	}
	return len(d.List)
}

// Merge appends other collector into d
func (d *Diagnostics) Merge(other *Diagnostics) {
	if d == nil || other == nil {
		return
	}
	d.List = append(d.List, other.List...)
	for name := range other.shapes {
		d.seeShape(name)
	}
}
