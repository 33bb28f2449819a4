package script

// Kind identifies which variant of an Output is populated.
type Kind string

// Output kinds. The value doubles as the "type" discriminator scripts use in
// their returned literal.
const (
	KindText  Kind = "text"
	KindList  Kind = "list"
	KindShape Kind = "shape"
)

// Shape is a closed enumeration of drawable shape names.
type Shape string

// Supported shapes.
const (
	ShapeCircle    Shape = "circle"
	ShapeRectangle Shape = "rectangle"
	ShapeEllipse   Shape = "ellipse"
	ShapeCapsule   Shape = "capsule"
	ShapeTriangle  Shape = "triangle"
)

// ValidShape reports whether s is a member of the shape enumeration.
func ValidShape(s Shape) bool {
	switch s {
	case ShapeCircle, ShapeRectangle, ShapeEllipse, ShapeCapsule, ShapeTriangle:
		return true
	}
	return false
}

// Item is a single list entry.
type Item struct {
	Value string `json:"value"`
}

// Output is the validated content produced by a successful run. Exactly one
// variant is populated according to Kind: Value for text, Items for list,
// Shape for shape.
type Output struct {
	Kind  Kind   `json:"type"`
	Value string `json:"value,omitempty"`
	Items []Item `json:"items,omitempty"`
	Shape Shape  `json:"shape,omitempty"`
}

// Result is the outcome of a single Run call. Exactly one of Output and Err
// is set; OK mirrors which one. Failures are always reported here as data,
// never as a Go error or panic.
type Result struct {
	OK        bool     `json:"ok"`
	Output    *Output  `json:"output,omitempty"`
	Err       *Error   `json:"error,omitempty"`
	ElapsedMS int64    `json:"elapsed_ms"`
	Logs      []string `json:"logs,omitempty"`
}

// failure builds an error Result.
func failure(e *Error) Result {
	return Result{Err: e}
}
