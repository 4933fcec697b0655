package canvas

import "math"

// BindingGap is the uniform distance an arrow endpoint stands off from the
// edge of the element it binds to
const BindingGap = 8

// point is a 2D coordinate used during binding resolution
type point struct {
	x, y float64
}

// ResolveBindings rewrites every linear element in the batch that carries
// raw start/end endpoint references. References may point at elements in
// the same batch or at already-stored elements; the batch wins on id
// collisions. After resolution the element's x/y is its start point, points
// is the two-entry relative polyline, startBinding/endBinding carry the
// binding records, and the raw references are stripped.
func ResolveBindings(batch []*Element, existing []*Element) {
	working := make(map[string]*Element, len(existing)+len(batch))
	for _, el := range existing {
		working[el.ID] = el
	}
	for _, el := range batch {
		if el.ID != "" {
			working[el.ID] = el
		}
	}

	for _, el := range batch {
		if !el.IsLinear() {
			continue
		}
		if _, hasStart := el.Extra["start"]; !hasStart {
			if _, hasEnd := el.Extra["end"]; !hasEnd {
				continue
			}
		}
		resolveElement(el, working)
	}
}

func resolveElement(el *Element, working map[string]*Element) {
	startID, startGiven := endpointRef(el, "start")
	endID, endGiven := endpointRef(el, "end")

	startTarget := working[startID]
	endTarget := working[endID]

	// Each endpoint anchors at its referenced element's center; a missing
	// reference falls back to a straight horizontal default.
	startAnchor := point{el.X, el.Y}
	if startTarget != nil {
		cx, cy := startTarget.Center()
		startAnchor = point{cx, cy}
	}
	endAnchor := point{el.X + 100, el.Y}
	if endTarget != nil {
		cx, cy := endTarget.Center()
		endAnchor = point{cx, cy}
	}

	finalStart := startAnchor
	if startTarget != nil {
		attach := edgeAttachment(startTarget, endAnchor)
		finalStart = applyGap(attach, endAnchor)
	}
	finalEnd := endAnchor
	if endTarget != nil {
		attach := edgeAttachment(endTarget, startAnchor)
		finalEnd = applyGap(attach, startAnchor)
	}

	el.X = finalStart.x
	el.Y = finalStart.y
	el.Points = [][]float64{{0, 0}, {finalEnd.x - finalStart.x, finalEnd.y - finalStart.y}}

	if startTarget != nil {
		el.StartBinding = &Binding{ElementID: startTarget.ID, Focus: 0, Gap: BindingGap}
	}
	if endTarget != nil {
		el.EndBinding = &Binding{ElementID: endTarget.ID, Focus: 0, Gap: BindingGap}
	}

	if startGiven {
		delete(el.Extra, "start")
	}
	if endGiven {
		delete(el.Extra, "end")
	}
	if len(el.Extra) == 0 {
		el.Extra = nil
	}
}

// endpointRef pulls the referenced element id out of a raw start/end object
func endpointRef(el *Element, key string) (string, bool) {
	ref, present := el.Extra[key]
	if !present {
		return "", false
	}
	refMap, ok := ref.(map[string]interface{})
	if !ok {
		return "", true
	}
	id, _ := refMap["id"].(string)
	return id, true
}

// edgeAttachment finds the point on the element's silhouette facing the
// target, dispatching on the element's shape
func edgeAttachment(el *Element, target point) point {
	cx, cy := el.Center()
	hw := el.Width / 2
	hh := el.Height / 2
	dx := target.x - cx
	dy := target.y - cy

	// Degenerate direction: pick the bottom face
	if dx == 0 && dy == 0 {
		return point{cx, cy + hh}
	}

	switch el.Type {
	case TypeDiamond:
		return diamondAttachment(cx, cy, hw, hh, dx, dy)
	case TypeEllipse:
		return ellipseAttachment(cx, cy, hw, hh, dx, dy)
	default:
		return rectangleAttachment(cx, cy, hw, hh, dx, dy)
	}
}

// rectangleAttachment projects the direction vector onto the bounding-box
// silhouette, choosing the horizontal or vertical face the ray exits
func rectangleAttachment(cx, cy, hw, hh, dx, dy float64) point {
	if hw == 0 && hh == 0 {
		return point{cx, cy}
	}

	// Compare slopes scaled by the half extents to pick the exit face
	if math.Abs(dx)*hh >= math.Abs(dy)*hw {
		// Exits a vertical face (left or right)
		scale := hw / math.Abs(dx)
		return point{cx + sign(dx)*hw, cy + dy*scale}
	}
	// Exits a horizontal face (top or bottom)
	scale := hh / math.Abs(dy)
	return point{cx + dx*scale, cy + sign(dy)*hh}
}

// diamondAttachment scales the direction vector onto the rhombus edge
func diamondAttachment(cx, cy, hw, hh, dx, dy float64) point {
	if hw == 0 || hh == 0 {
		return point{cx, cy + hh}
	}
	denom := math.Abs(dx)/hw + math.Abs(dy)/hh
	if denom == 0 {
		return point{cx, cy + hh}
	}
	t := 1 / denom
	return point{cx + dx*t, cy + dy*t}
}

// ellipseAttachment parameterizes the ellipse by the direction angle
func ellipseAttachment(cx, cy, hw, hh, dx, dy float64) point {
	theta := math.Atan2(dy, dx)
	return point{cx + hw*math.Cos(theta), cy + hh*math.Sin(theta)}
}

// applyGap backs the attachment point off the edge toward the other
// endpoint by the uniform binding gap
func applyGap(attach, toward point) point {
	dx := toward.x - attach.x
	dy := toward.y - attach.y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return attach
	}
	return point{
		attach.x + dx/dist*BindingGap,
		attach.y + dy/dist*BindingGap,
	}
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}
