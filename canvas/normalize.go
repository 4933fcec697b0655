package canvas

import (
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vellum-studio/vellum/errors"
)

// Style defaults applied to every admitted element
const (
	DefaultStrokeColor     = "#1e1e2e"
	DefaultBackgroundColor = "transparent"
	DefaultFillStyle       = "hachure"
	DefaultStrokeStyle     = "solid"
	DefaultStrokeWidth     = 2
	DefaultRoughness       = 1
	DefaultOpacity         = 100

	DefaultWidth  = 200
	DefaultHeight = 100
	DefaultX      = 100
	DefaultY      = 100
)

// NewElementID returns a fresh element id: 20 hex chars from a UUID with
// the dashes stripped
func NewElementID() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return hex[:20]
}

// Normalize admits a raw element object into canonical form: assigns an id
// when absent, fills style and geometry defaults, guarantees linear
// elements are renderable, and stamps version fields. Raw start/end
// endpoint references survive in Extra for the binding resolver.
//
// Rejections surface as ErrInvalidArgument: unknown type tags, non-numeric
// geometry, and non-string binding reference ids.
func Normalize(raw map[string]interface{}) (*Element, error) {
	typeTag, _ := raw["type"].(string)
	if typeTag == "" {
		return nil, errors.Wrap(errors.ErrInvalidArgument, "element type is required")
	}
	if !ElementTypes[typeTag] {
		return nil, errors.NewInvalidArgumentf("unknown element type: %s", typeTag)
	}

	for _, key := range []string{"x", "y", "width", "height", "angle"} {
		if value, present := raw[key]; present {
			if _, ok := asFloat(value); !ok {
				return nil, errors.NewInvalidArgumentf("element field %s must be a number", key)
			}
		}
	}

	for _, key := range []string{"start", "end"} {
		ref, present := raw[key]
		if !present || ref == nil {
			continue
		}
		refMap, ok := ref.(map[string]interface{})
		if !ok {
			return nil, errors.NewInvalidArgumentf("element field %s must be an object", key)
		}
		if id, present := refMap["id"]; present {
			if _, ok := id.(string); !ok {
				return nil, errors.NewInvalidArgumentf("element field %s.id must be a string", key)
			}
		}
	}

	el, err := FromMap(raw)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidArgument, err.Error())
	}

	if el.ID == "" {
		el.ID = NewElementID()
	}

	applyDefaults(el, raw)
	stampVersions(el, raw)

	return el, nil
}

// applyDefaults fills absent fields. Presence is judged against the raw
// object so an explicit zero survives.
func applyDefaults(el *Element, raw map[string]interface{}) {
	if _, present := raw["x"]; !present {
		el.X = DefaultX
	}
	if _, present := raw["y"]; !present {
		el.Y = DefaultY
	}
	if _, present := raw["width"]; !present {
		el.Width = DefaultWidth
	}
	if _, present := raw["height"]; !present {
		el.Height = DefaultHeight
	}

	if el.StrokeColor == "" {
		el.StrokeColor = DefaultStrokeColor
	}
	if el.BackgroundColor == "" {
		el.BackgroundColor = DefaultBackgroundColor
	}
	if el.FillStyle == "" {
		el.FillStyle = DefaultFillStyle
	}
	if el.StrokeStyle == "" {
		el.StrokeStyle = DefaultStrokeStyle
	}
	if _, present := raw["strokeWidth"]; !present {
		el.StrokeWidth = DefaultStrokeWidth
	}
	if _, present := raw["roughness"]; !present {
		el.Roughness = DefaultRoughness
	}
	if _, present := raw["opacity"]; !present {
		el.Opacity = DefaultOpacity
	}

	if el.GroupIDs == nil {
		el.GroupIDs = []string{}
	}
	el.IsDeleted = false

	// Linear elements must always be renderable
	if el.IsLinear() && len(el.Points) < 2 {
		el.Points = [][]float64{{0, 0}, {el.Width, 0}}
	}
}

// stampVersions sets the version fields for a freshly admitted element.
// Stamps already carried by the raw object survive, so re-admitting a scene
// the editor synced back does not reset its last-writer-wins counters.
func stampVersions(el *Element, raw map[string]interface{}) {
	now := time.Now()
	if el.Version <= 0 {
		el.Version = 1
	}
	if _, present := raw["versionNonce"]; !present {
		el.VersionNonce = int64(rand.Int31())
	}
	if _, present := raw["updated"]; !present {
		el.Updated = now.UnixMilli()
	}
	iso := now.UTC().Format(time.RFC3339Nano)
	if el.CreatedAt == "" {
		el.CreatedAt = iso
	}
	if el.UpdatedAt == "" {
		el.UpdatedAt = iso
	}
}

// Touch bumps the version fields after a mutation of a stored element
func Touch(el *Element) {
	now := time.Now()
	el.Version++
	el.VersionNonce = int64(rand.Int31())
	el.Updated = now.UnixMilli()
	el.UpdatedAt = now.UTC().Format(time.RFC3339Nano)
}
