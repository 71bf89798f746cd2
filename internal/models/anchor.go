package models

import (
	"encoding/json"
	"fmt"
	"math"
)

type AnchorType string

const (
	AnchorRect  AnchorType = "rect"
	AnchorPoint AnchorType = "point"
)

// Anchor locates an issue on a screen image. Coordinates are normalized to
// [0,1]; values outside that range are kept as stored and clamped on render.
// Implemented by RectAnchor and PointAnchor only.
type Anchor interface {
	Type() AnchorType
	AnchorLabel() string
	isAnchor()
}

type RectAnchor struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
	Label  string
}

func (RectAnchor) Type() AnchorType      { return AnchorRect }
func (a RectAnchor) AnchorLabel() string { return a.Label }
func (RectAnchor) isAnchor()             {}

type PointAnchor struct {
	X     float64
	Y     float64
	Label string
}

func (PointAnchor) Type() AnchorType      { return AnchorPoint }
func (a PointAnchor) AnchorLabel() string { return a.Label }
func (PointAnchor) isAnchor()             {}

// Bounds is a render-ready box in normalized coordinates.
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func clampUnit(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}

// ClampedBounds returns the anchor clamped to the unit square. Points have a
// zero-sized box.
func ClampedBounds(a Anchor) Bounds {
	switch v := a.(type) {
	case RectAnchor:
		return Bounds{X: clampUnit(v.X), Y: clampUnit(v.Y), Width: clampUnit(v.Width), Height: clampUnit(v.Height)}
	case PointAnchor:
		return Bounds{X: clampUnit(v.X), Y: clampUnit(v.Y)}
	default:
		panic(fmt.Sprintf("models: unknown anchor %T", a))
	}
}

// anchorJSON is the tagged wire form shared by persistence and the model
// response.
type anchorJSON struct {
	Type   AnchorType `json:"type"`
	X      *float64   `json:"x"`
	Y      *float64   `json:"y"`
	Width  *float64   `json:"width,omitempty"`
	Height *float64   `json:"height,omitempty"`
	Label  string     `json:"label,omitempty"`
}

func finite(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

// DecodeAnchor validates a tagged anchor and returns the matching variant.
func DecodeAnchor(typ AnchorType, x, y, width, height *float64, label string) (Anchor, error) {
	if !finite(x) || !finite(y) {
		return nil, fmt.Errorf("anchor %q requires finite x and y", typ)
	}
	switch typ {
	case AnchorRect:
		if !finite(width) || !finite(height) {
			return nil, fmt.Errorf("rect anchor requires finite width and height")
		}
		return RectAnchor{X: *x, Y: *y, Width: *width, Height: *height, Label: label}, nil
	case AnchorPoint:
		return PointAnchor{X: *x, Y: *y, Label: label}, nil
	default:
		return nil, fmt.Errorf("unknown anchor type %q", typ)
	}
}

// Anchors is a list of anchor variants with a tagged JSON encoding.
type Anchors []Anchor

func (as Anchors) MarshalJSON() ([]byte, error) {
	out := make([]anchorJSON, 0, len(as))
	for _, a := range as {
		switch v := a.(type) {
		case RectAnchor:
			out = append(out, anchorJSON{Type: AnchorRect, X: &v.X, Y: &v.Y, Width: &v.Width, Height: &v.Height, Label: v.Label})
		case PointAnchor:
			out = append(out, anchorJSON{Type: AnchorPoint, X: &v.X, Y: &v.Y, Label: v.Label})
		default:
			return nil, fmt.Errorf("unknown anchor %T", a)
		}
	}
	return json.Marshal(out)
}

func (as *Anchors) UnmarshalJSON(data []byte) error {
	var raw []anchorJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Anchors, 0, len(raw))
	for i, r := range raw {
		a, err := DecodeAnchor(r.Type, r.X, r.Y, r.Width, r.Height, r.Label)
		if err != nil {
			return fmt.Errorf("anchor %d: %w", i, err)
		}
		out = append(out, a)
	}
	*as = out
	return nil
}
