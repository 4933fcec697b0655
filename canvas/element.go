// Package canvas holds the authoritative in-memory scene: the element
// model, the normalizer that admits raw elements, the arrow binding
// resolver, and the store with its snapshot registry.
package canvas

import (
	"encoding/json"
	"fmt"
)

// Element types form a closed set. The tag is immutable after creation.
const (
	TypeRectangle = "rectangle"
	TypeEllipse   = "ellipse"
	TypeDiamond   = "diamond"
	TypeText      = "text"
	TypeLine      = "line"
	TypeArrow     = "arrow"
	TypeFreedraw  = "freedraw"
	TypeImage     = "image"
	TypeFrame     = "frame"
)

// ElementTypes is the closed set of accepted element type tags
var ElementTypes = map[string]bool{
	TypeRectangle: true,
	TypeEllipse:   true,
	TypeDiamond:   true,
	TypeText:      true,
	TypeLine:      true,
	TypeArrow:     true,
	TypeFreedraw:  true,
	TypeImage:     true,
	TypeFrame:     true,
}

// Binding associates an arrow/line endpoint with another element
type Binding struct {
	ElementID string  `json:"elementId"`
	Focus     float64 `json:"focus"`
	Gap       float64 `json:"gap"`
}

// Element is one drawable record. Known fields are typed; anything else a
// client sends rides along in Extra so scenes round-trip losslessly. The
// JSON form is flat: Extra keys serialize as siblings of the known fields.
type Element struct {
	ID   string
	Type string

	X      float64
	Y      float64
	Width  float64
	Height float64
	Angle  float64

	StrokeColor     string
	BackgroundColor string
	FillStyle       string
	StrokeWidth     float64
	StrokeStyle     string
	Roughness       float64
	Opacity         float64

	Text       string
	FontSize   float64
	FontFamily float64

	Points       [][]float64
	StartBinding *Binding
	EndBinding   *Binding

	GroupIDs      []string
	Locked        bool
	IsDeleted     bool
	BoundElements []map[string]interface{}

	Version      int64
	VersionNonce int64
	Updated      int64
	CreatedAt    string
	UpdatedAt    string

	Extra map[string]interface{}
}

// IsLinear reports whether the element is an arrow or line (the types the
// binding resolver and the points default apply to)
func (e *Element) IsLinear() bool {
	return e.Type == TypeArrow || e.Type == TypeLine
}

// Center returns the element's bounding-box center
func (e *Element) Center() (float64, float64) {
	return e.X + e.Width/2, e.Y + e.Height/2
}

// HasText reports whether the element carries a text field
func (e *Element) HasText() bool {
	return e.Text != "" || e.Type == TypeText
}

// Clone returns a deep copy, independent of the original
func (e *Element) Clone() *Element {
	clone := *e

	if e.Points != nil {
		clone.Points = make([][]float64, len(e.Points))
		for i, p := range e.Points {
			clone.Points[i] = append([]float64(nil), p...)
		}
	}
	if e.StartBinding != nil {
		sb := *e.StartBinding
		clone.StartBinding = &sb
	}
	if e.EndBinding != nil {
		eb := *e.EndBinding
		clone.EndBinding = &eb
	}
	if e.GroupIDs != nil {
		clone.GroupIDs = append([]string(nil), e.GroupIDs...)
	}
	if e.BoundElements != nil {
		clone.BoundElements = make([]map[string]interface{}, len(e.BoundElements))
		for i, b := range e.BoundElements {
			m := make(map[string]interface{}, len(b))
			for k, v := range b {
				m[k] = v
			}
			clone.BoundElements[i] = m
		}
	}
	if e.Extra != nil {
		clone.Extra = make(map[string]interface{}, len(e.Extra))
		for k, v := range e.Extra {
			clone.Extra[k] = v
		}
	}

	return &clone
}

// toMap renders the element as the flat JSON object shape
func (e *Element) toMap() map[string]interface{} {
	m := make(map[string]interface{}, 24+len(e.Extra))
	for k, v := range e.Extra {
		m[k] = v
	}

	m["id"] = e.ID
	m["type"] = e.Type
	m["x"] = e.X
	m["y"] = e.Y
	m["width"] = e.Width
	m["height"] = e.Height
	m["angle"] = e.Angle
	m["strokeColor"] = e.StrokeColor
	m["backgroundColor"] = e.BackgroundColor
	m["fillStyle"] = e.FillStyle
	m["strokeWidth"] = e.StrokeWidth
	m["strokeStyle"] = e.StrokeStyle
	m["roughness"] = e.Roughness
	m["opacity"] = e.Opacity

	if e.HasText() {
		m["text"] = e.Text
	}
	if e.FontSize != 0 {
		m["fontSize"] = e.FontSize
	}
	if e.FontFamily != 0 {
		m["fontFamily"] = e.FontFamily
	}
	if e.Points != nil {
		m["points"] = e.Points
	}
	if e.StartBinding != nil {
		m["startBinding"] = e.StartBinding
	}
	if e.EndBinding != nil {
		m["endBinding"] = e.EndBinding
	}

	if e.GroupIDs != nil {
		m["groupIds"] = e.GroupIDs
	} else {
		m["groupIds"] = []string{}
	}
	m["locked"] = e.Locked
	m["isDeleted"] = e.IsDeleted
	if e.BoundElements != nil {
		m["boundElements"] = e.BoundElements
	} else {
		m["boundElements"] = nil
	}

	m["version"] = e.Version
	m["versionNonce"] = e.VersionNonce
	m["updated"] = e.Updated
	if e.CreatedAt != "" {
		m["createdAt"] = e.CreatedAt
	}
	if e.UpdatedAt != "" {
		m["updatedAt"] = e.UpdatedAt
	}

	return m
}

// MarshalJSON flattens known fields and Extra into one object
func (e *Element) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.toMap())
}

// UnmarshalJSON splits a flat object into known fields and Extra
func (e *Element) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	el, err := FromMap(raw)
	if err != nil {
		return err
	}
	*e = *el
	return nil
}

// FromMap builds an Element from a decoded JSON object. Known keys populate
// typed fields; unknown keys are retained in Extra. Type errors on known
// keys are tolerated by falling back to Extra so odd client payloads do not
// lose data.
func FromMap(raw map[string]interface{}) (*Element, error) {
	e := &Element{}
	extra := make(map[string]interface{})

	for key, value := range raw {
		if !e.setKnown(key, value) {
			extra[key] = value
		}
	}
	if len(extra) > 0 {
		e.Extra = extra
	}
	return e, nil
}

// setKnown assigns a known field from a decoded JSON value. Returns false
// when the key is not known (or the value shape does not fit), in which
// case the caller keeps it in Extra.
func (e *Element) setKnown(key string, value interface{}) bool {
	switch key {
	case "id":
		if s, ok := value.(string); ok {
			e.ID = s
			return true
		}
	case "type":
		if s, ok := value.(string); ok {
			e.Type = s
			return true
		}
	case "x":
		if f, ok := asFloat(value); ok {
			e.X = f
			return true
		}
	case "y":
		if f, ok := asFloat(value); ok {
			e.Y = f
			return true
		}
	case "width":
		if f, ok := asFloat(value); ok {
			e.Width = f
			return true
		}
	case "height":
		if f, ok := asFloat(value); ok {
			e.Height = f
			return true
		}
	case "angle":
		if f, ok := asFloat(value); ok {
			e.Angle = f
			return true
		}
	case "strokeColor":
		if s, ok := value.(string); ok {
			e.StrokeColor = s
			return true
		}
	case "backgroundColor":
		if s, ok := value.(string); ok {
			e.BackgroundColor = s
			return true
		}
	case "fillStyle":
		if s, ok := value.(string); ok {
			e.FillStyle = s
			return true
		}
	case "strokeWidth":
		if f, ok := asFloat(value); ok {
			e.StrokeWidth = f
			return true
		}
	case "strokeStyle":
		if s, ok := value.(string); ok {
			e.StrokeStyle = s
			return true
		}
	case "roughness":
		if f, ok := asFloat(value); ok {
			e.Roughness = f
			return true
		}
	case "opacity":
		if f, ok := asFloat(value); ok {
			e.Opacity = f
			return true
		}
	case "text":
		if s, ok := value.(string); ok {
			e.Text = s
			return true
		}
	case "fontSize":
		if f, ok := asFloat(value); ok {
			e.FontSize = f
			return true
		}
	case "fontFamily":
		if f, ok := asFloat(value); ok {
			e.FontFamily = f
			return true
		}
	case "points":
		if pts, ok := asPoints(value); ok {
			e.Points = pts
			return true
		}
	case "startBinding":
		if b, ok := asBinding(value); ok {
			e.StartBinding = b
			return true
		}
	case "endBinding":
		if b, ok := asBinding(value); ok {
			e.EndBinding = b
			return true
		}
	case "groupIds":
		if ids, ok := asStringSlice(value); ok {
			e.GroupIDs = ids
			return true
		}
	case "locked":
		if b, ok := value.(bool); ok {
			e.Locked = b
			return true
		}
	case "isDeleted":
		if b, ok := value.(bool); ok {
			e.IsDeleted = b
			return true
		}
	case "boundElements":
		if value == nil {
			e.BoundElements = nil
			return true
		}
		if items, ok := value.([]interface{}); ok {
			bound := make([]map[string]interface{}, 0, len(items))
			for _, item := range items {
				if m, ok := item.(map[string]interface{}); ok {
					bound = append(bound, m)
				}
			}
			e.BoundElements = bound
			return true
		}
	case "version":
		if f, ok := asFloat(value); ok {
			e.Version = int64(f)
			return true
		}
	case "versionNonce":
		if f, ok := asFloat(value); ok {
			e.VersionNonce = int64(f)
			return true
		}
	case "updated":
		if f, ok := asFloat(value); ok {
			e.Updated = int64(f)
			return true
		}
	case "createdAt":
		if s, ok := value.(string); ok {
			e.CreatedAt = s
			return true
		}
	case "updatedAt":
		if s, ok := value.(string); ok {
			e.UpdatedAt = s
			return true
		}
	}
	return false
}

// FieldString renders a field the way the search surface compares it:
// fmt.Sprint of the merged record's value. The second return is false when
// the element does not carry the key at all.
func (e *Element) FieldString(key string) (string, bool) {
	switch key {
	case "id":
		return e.ID, true
	case "type":
		return e.Type, true
	case "x":
		return formatNumber(e.X), true
	case "y":
		return formatNumber(e.Y), true
	case "width":
		return formatNumber(e.Width), true
	case "height":
		return formatNumber(e.Height), true
	case "angle":
		return formatNumber(e.Angle), true
	case "strokeColor":
		return e.StrokeColor, true
	case "backgroundColor":
		return e.BackgroundColor, true
	case "fillStyle":
		return e.FillStyle, true
	case "strokeWidth":
		return formatNumber(e.StrokeWidth), true
	case "strokeStyle":
		return e.StrokeStyle, true
	case "roughness":
		return formatNumber(e.Roughness), true
	case "opacity":
		return formatNumber(e.Opacity), true
	case "locked":
		return fmt.Sprint(e.Locked), true
	case "isDeleted":
		return fmt.Sprint(e.IsDeleted), true
	case "version":
		return fmt.Sprint(e.Version), true
	case "text":
		if e.HasText() {
			return e.Text, true
		}
		return "", false
	case "fontSize":
		if e.FontSize != 0 {
			return formatNumber(e.FontSize), true
		}
		return "", false
	case "fontFamily":
		if e.FontFamily != 0 {
			return formatNumber(e.FontFamily), true
		}
		return "", false
	default:
		if v, ok := e.Extra[key]; ok {
			return fmt.Sprint(v), true
		}
		return "", false
	}
}

// formatNumber renders floats the way JSON does: integral values without a
// trailing ".0"
func formatNumber(f float64) string {
	return fmt.Sprint(f)
}

func asFloat(value interface{}) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func asPoints(value interface{}) ([][]float64, bool) {
	items, ok := value.([]interface{})
	if !ok {
		return nil, false
	}
	points := make([][]float64, 0, len(items))
	for _, item := range items {
		pair, ok := item.([]interface{})
		if !ok {
			return nil, false
		}
		point := make([]float64, 0, len(pair))
		for _, coord := range pair {
			f, ok := asFloat(coord)
			if !ok {
				return nil, false
			}
			point = append(point, f)
		}
		points = append(points, point)
	}
	return points, true
}

func asBinding(value interface{}) (*Binding, bool) {
	if value == nil {
		return nil, true
	}
	m, ok := value.(map[string]interface{})
	if !ok {
		return nil, false
	}
	b := &Binding{}
	if s, ok := m["elementId"].(string); ok {
		b.ElementID = s
	}
	if f, ok := asFloat(m["focus"]); ok {
		b.Focus = f
	}
	if f, ok := asFloat(m["gap"]); ok {
		b.Gap = f
	}
	return b, true
}

func asStringSlice(value interface{}) ([]string, bool) {
	items, ok := value.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
