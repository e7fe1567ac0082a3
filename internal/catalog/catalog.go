// Package catalog resolves target names to estimator targets.
// Built-in targets are always present; a YAML file can add or replace them.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/branched-services/go-montecarlo/pkg/estimator"
	"github.com/branched-services/go-montecarlo/pkg/geom"
)

// ErrUnknownTarget is returned by Lookup for names not in the catalog.
var ErrUnknownTarget = errors.New("unknown target")

//go:embed shapes.schema.json
var schemaJSON []byte

// Kind selects the shape variant.
type Kind string

const (
	// KindCircle is the unit circle. It takes no vertices.
	KindCircle Kind = "circle"

	// KindPolygon is a simple polygon given by at least three vertices.
	KindPolygon Kind = "polygon"
)

// Definition is one catalog entry as written in YAML.
type Definition struct {
	Name        string      `yaml:"name" json:"name"`
	Kind        Kind        `yaml:"kind" json:"kind"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	Vertices    [][]float64 `yaml:"vertices,omitempty" json:"vertices,omitempty"`

	// Region defaults to [-1,1]².
	Region *geom.Rect `yaml:"region,omitempty" json:"region,omitempty"`

	// Reference defaults to the exact area of the shape (π for a circle).
	Reference *float64 `yaml:"reference,omitempty" json:"reference,omitempty"`
}

// document is the top-level YAML layout.
type document struct {
	Shapes []Definition `yaml:"shapes"`
}

// Catalog maps names to targets. It is immutable after Load/Builtin return
// and safe for concurrent reads.
type Catalog struct {
	defs    map[string]Definition
	targets map[string]estimator.Target
	order   []string
}

// Builtin returns the catalog with the "circle" (π) and "star" targets.
func Builtin() *Catalog {
	c := &Catalog{
		defs:    make(map[string]Definition),
		targets: make(map[string]estimator.Target),
	}

	pi := math.Pi
	starRef := 1.40
	starVerts := make([][]float64, 0, 8)
	for _, v := range geom.Star().Vertices() {
		starVerts = append(starVerts, []float64{v.X, v.Y})
	}

	builtins := []Definition{
		{
			Name:        "circle",
			Kind:        KindCircle,
			Description: "Unit circle in [-1,1]²; the estimate approximates π",
			Reference:   &pi,
		},
		{
			Name:        "star",
			Kind:        KindPolygon,
			Description: "Eight-vertex four-pointed star sampled over [-1,1]²",
			Vertices:    starVerts,
			Reference:   &starRef,
		},
	}
	for _, def := range builtins {
		if err := c.add(def); err != nil {
			panic(err)
		}
	}

	return c
}

// Load returns the built-in catalog extended with the shapes in path.
// An empty path returns Builtin().
func Load(path string) (*Catalog, error) {
	c := Builtin()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading shapes file: %w", err)
	}

	defs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	for _, def := range defs {
		if err := c.add(def); err != nil {
			return nil, fmt.Errorf("shape %q: %w", def.Name, err)
		}
	}

	return c, nil
}

// Parse validates a YAML catalog document against the embedded schema and
// decodes its shape definitions. Duplicate names are rejected.
func Parse(data []byte) ([]Definition, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if raw == nil {
		return nil, errors.New("empty document")
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, fmt.Errorf("%w: %s", geom.ErrInvalidArgument, strings.Join(msgs, "; "))
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding shapes: %w", err)
	}

	seen := make(map[string]bool, len(doc.Shapes))
	for _, def := range doc.Shapes {
		if seen[def.Name] {
			return nil, fmt.Errorf("%w: duplicate shape %q", geom.ErrInvalidArgument, def.Name)
		}
		seen[def.Name] = true
	}

	return doc.Shapes, nil
}

// add builds the target for def and registers it, replacing any previous
// entry of the same name in place.
func (c *Catalog) add(def Definition) error {
	target, err := def.Target()
	if err != nil {
		return err
	}

	if _, exists := c.defs[def.Name]; !exists {
		c.order = append(c.order, def.Name)
	}
	c.defs[def.Name] = def
	c.targets[def.Name] = target
	return nil
}

// Target converts the definition into an estimator target.
func (d Definition) Target() (estimator.Target, error) {
	region := geom.UnitSquare()
	if d.Region != nil {
		region = *d.Region
	}

	var shape geom.Shape
	switch d.Kind {
	case KindCircle:
		if len(d.Vertices) > 0 {
			return estimator.Target{}, fmt.Errorf("%w: circle takes no vertices", geom.ErrInvalidArgument)
		}
		shape = geom.Circle{}
	case KindPolygon:
		pts := make([]geom.Point, 0, len(d.Vertices))
		for i, v := range d.Vertices {
			if len(v) != 2 {
				return estimator.Target{}, fmt.Errorf("%w: vertex %d has %d coordinates", geom.ErrInvalidArgument, i, len(v))
			}
			pts = append(pts, geom.Point{X: v[0], Y: v[1]})
		}
		poly, err := geom.NewPolygon(d.Name, pts)
		if err != nil {
			return estimator.Target{}, err
		}
		shape = poly
	default:
		return estimator.Target{}, fmt.Errorf("%w: unknown kind %q", geom.ErrInvalidArgument, d.Kind)
	}

	reference := shape.Area()
	if d.Reference != nil {
		reference = *d.Reference
	}

	target := estimator.AreaTarget(named{shape, d.Name}, region, reference)
	if err := target.Validate(); err != nil {
		return estimator.Target{}, err
	}
	return target, nil
}

// Lookup returns the target registered under name.
func (c *Catalog) Lookup(name string) (estimator.Target, error) {
	t, ok := c.targets[name]
	if !ok {
		return estimator.Target{}, fmt.Errorf("%w: %q", ErrUnknownTarget, name)
	}
	return t, nil
}

// Definition returns the entry registered under name.
func (c *Catalog) Definition(name string) (Definition, bool) {
	d, ok := c.defs[name]
	return d, ok
}

// Definitions returns all entries in registration order.
func (c *Catalog) Definitions() []Definition {
	out := make([]Definition, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.defs[name])
	}
	return out
}

// Names returns the registered names in registration order.
func (c *Catalog) Names() []string {
	return slices.Clone(c.order)
}

// Len returns the number of targets.
func (c *Catalog) Len() int {
	return len(c.order)
}

// named overrides the shape name with the catalog entry name, so a circle
// registered as "pi-wide" reports that name in results.
type named struct {
	geom.Shape
	name string
}

func (n named) Name() string { return n.name }

// Unwrap returns the underlying shape.
func (n named) Unwrap() geom.Shape { return n.Shape }
