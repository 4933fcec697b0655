package gateway

// diagramGuide is served by the read_diagram_guide tool. It is the
// reference text agents consult before drawing on the canvas.
const diagramGuide = `# Canvas Diagram Guide

## Coordinate system

The canvas is an infinite plane. x grows rightward, y grows downward,
and (x, y) is always the top-left corner of an element. Units are
pixels at 100% zoom. Keep roughly 40-80px of clearance between shapes
so arrows have room to route.

## Element types

- rectangle, ellipse, diamond: container shapes with width/height
- arrow, line: linear elements described by relative points
- text: standalone labels (set "text", optionally fontSize)
- freedraw: hand-drawn strokes, rarely useful for generated diagrams

Common properties: strokeColor (hex), backgroundColor (hex or
"transparent"), fillStyle (hachure, cross-hatch, solid), strokeWidth,
roughness (0 = clean lines, higher = sketchy), opacity (0-100).

## Connecting shapes

Give an arrow "start" and "end" references instead of computing
geometry yourself:

    {"type": "arrow", "start": {"id": "<source-id>"}, "end": {"id": "<target-id>"}}

The server resolves both references into edge-to-edge bindings with a
small gap, and keeps the arrow attached when either shape moves. Create
the shapes and the arrows in one batch_create_elements call so the
references resolve atomically.

## Text in diagrams

For labels inside a shape, create a text element centered on the shape
and group the pair. For flowchart labels on arrows, place a small text
element at the arrow midpoint.

## Mermaid shortcut

For flowcharts, sequence diagrams, and class diagrams it is usually
faster to write Mermaid and call create_from_mermaid than to lay out
shapes manually. The converted elements land on the canvas already
positioned.

## Recommended workflow

1. query_elements or describe_scene to see what is already there
2. Plan coordinates on paper: left-to-right or top-to-bottom flow
3. batch_create_elements with shapes plus binding arrows
4. align_elements / distribute_elements to tidy rows and columns
5. snapshot_scene before large destructive edits
`
