package engine

import (
	"github.com/vanderheijden86/graphweave/pkg/drag"
	"github.com/vanderheijden86/graphweave/pkg/fetch"
	"github.com/vanderheijden86/graphweave/pkg/force"
	"github.com/vanderheijden86/graphweave/pkg/model"
	"github.com/vanderheijden86/graphweave/pkg/render"
	"github.com/vanderheijden86/graphweave/pkg/viewport"
)

// Kind selects where graph data comes from.
type Kind string

const (
	// Bundled graphs are already normalized: embedded or a JSON file.
	Bundled Kind = "bundled"
	// Remote graphs are joined from two paginated collections.
	Remote Kind = "remote"
)

// Barrier task names owned by the engine. The collection tasks are
// fetch.TaskEntities and fetch.TaskRelationships.
const (
	TaskSurface = "surface"
	TaskBundle  = "bundle"
)

// ForceOptions tunes the layout.
type ForceOptions struct {
	Charge        float64 `yaml:"charge,omitempty"`
	LinkDistance  float64 `yaml:"link_distance,omitempty"`
	Theta         float64 `yaml:"theta,omitempty"`
	AlphaMin      float64 `yaml:"alpha_min,omitempty"`
	AlphaDecay    float64 `yaml:"alpha_decay,omitempty"`
	VelocityDecay float64 `yaml:"velocity_decay,omitempty"`
	// Seed makes layouts reproducible; zero seeds from the clock.
	Seed int64 `yaml:"seed,omitempty"`
}

// ZoomOptions bounds the viewport.
type ZoomOptions struct {
	MinScale     float64 `yaml:"min_scale,omitempty"`
	MaxScale     float64 `yaml:"max_scale,omitempty"`
	ExtentFactor float64 `yaml:"extent,omitempty"`
}

// DragOptions tunes drag reheating.
type DragOptions struct {
	AlphaTarget float64 `yaml:"alpha_target,omitempty"`
}

// Options is the single configuration of the engine. The zero value of any
// field means "use the default".
type Options struct {
	EnableDrag    bool
	EnableTooltip bool
	DataSource    Kind

	// WaitForSurface adds the surface task to the barrier: the graph is not
	// built until SurfaceReady reports the surface size.
	WaitForSurface bool
	Width, Height  float64

	Forces ForceOptions
	Zoom   ZoomOptions
	Drag   DragOptions
	// Radius overrides the per-source node radius.
	Radius float64

	// Bundle loads the bundled graph for each cycle; nil uses the embedded
	// dataset.
	Bundle func() (*model.Graph, error)

	// Source, Collections and Mapping configure the remote path.
	Source      fetch.PageSource
	Collections fetch.Collections
	Mapping     model.FieldMapping
}

// DefaultOptions returns the bundled, drag-enabled configuration.
func DefaultOptions() Options {
	return Options{EnableDrag: true}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.DataSource == "" {
		o.DataSource = Bundled
	}
	if o.Width <= 0 {
		o.Width = 960
	}
	if o.Height <= 0 {
		o.Height = 600
	}
	if o.Forces.Charge == 0 {
		o.Forces.Charge = force.DefaultCharge
	}
	if o.Forces.LinkDistance <= 0 {
		o.Forces.LinkDistance = force.DefaultLinkDistance
	}
	if o.Forces.Theta <= 0 {
		o.Forces.Theta = force.DefaultTheta
	}
	if o.Forces.AlphaMin <= 0 {
		o.Forces.AlphaMin = force.DefaultAlphaMin
	}
	if o.Forces.AlphaDecay <= 0 {
		o.Forces.AlphaDecay = force.DefaultAlphaDecay
	}
	if o.Forces.VelocityDecay <= 0 {
		o.Forces.VelocityDecay = force.DefaultVelocityDecay
	}
	if o.Zoom.MinScale <= 0 {
		o.Zoom.MinScale = viewport.DefaultMinScale
	}
	if o.Zoom.MaxScale <= 0 {
		o.Zoom.MaxScale = viewport.DefaultMaxScale
	}
	if o.Zoom.ExtentFactor <= 0 {
		o.Zoom.ExtentFactor = viewport.DefaultExtentFactor
	}
	if o.Drag.AlphaTarget <= 0 {
		o.Drag.AlphaTarget = drag.DefaultReheatTarget
	}
	if o.Radius <= 0 {
		if o.DataSource == Remote {
			o.Radius = render.RemoteRadius
		} else {
			o.Radius = render.BundledRadius
		}
	}
	if o.Bundle == nil {
		o.Bundle = func() (*model.Graph, error) { return model.Bundled(), nil }
	}
	def := fetch.DefaultCollections()
	if o.Collections.Entities == "" {
		o.Collections.Entities = def.Entities
	}
	if o.Collections.Relationships == "" {
		o.Collections.Relationships = def.Relationships
	}
	defMap := model.DefaultMapping()
	if o.Mapping.Label == "" {
		o.Mapping.Label = defMap.Label
	}
	if o.Mapping.Group == "" {
		o.Mapping.Group = defMap.Group
	}
	return o
}

func (o Options) tasks() []string {
	var tasks []string
	if o.WaitForSurface {
		tasks = append(tasks, TaskSurface)
	}
	if o.DataSource == Remote {
		return append(tasks, fetch.TaskEntities, fetch.TaskRelationships)
	}
	return append(tasks, TaskBundle)
}
