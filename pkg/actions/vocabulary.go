// Package actions defines the closed vocabulary of device actions a model may
// request, and the Command type the prediction pipeline emits.
//
// The table in this file is the single source of truth: the prompt builder
// renders it into model instructions and the parser validates replies against
// schemas compiled from it.
package actions

import "sort"

// Kind identifies one action in the vocabulary.
type Kind string

const (
	KindClick     Kind = "click"
	KindLongPress Kind = "long_press"
	KindSwipe     Kind = "swipe"
	KindType      Kind = "type"
	KindWait      Kind = "wait"
	KindTerminate Kind = "terminate"
)

// Field names a parameter carried next to "action" in a model reply.
type Field string

const (
	FieldCoordinate  Field = "coordinate"
	FieldCoordinate2 Field = "coordinate2"
	FieldText        Field = "text"
	FieldTime        Field = "time"
	FieldStatus      Field = "status"
)

// ActionKey is the reply key holding the action name.
const ActionKey = "action"

// Terminate statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// FieldType is the JSON shape a parameter must have.
type FieldType string

const (
	TypePoint  FieldType = "array"
	TypeString FieldType = "string"
	TypeNumber FieldType = "number"
)

// KindSpec describes one action kind.
type KindSpec struct {
	Kind        Kind
	Description string
	Required    []Field
}

// FieldSpec describes one parameter.
type FieldSpec struct {
	Name        Field
	Type        FieldType
	Description string
	Enum        []string
}

var kindTable = []KindSpec{
	{
		Kind:        KindClick,
		Description: "Click the point on the screen with coordinate (x, y).",
		Required:    []Field{FieldCoordinate},
	},
	{
		Kind:        KindLongPress,
		Description: "Press the point on the screen with coordinate (x, y) for specified seconds.",
		Required:    []Field{FieldCoordinate, FieldTime},
	},
	{
		Kind:        KindSwipe,
		Description: "Swipe from the starting point with coordinate (x, y) to the end point with coordinates2 (x2, y2).",
		Required:    []Field{FieldCoordinate, FieldCoordinate2},
	},
	{
		Kind:        KindType,
		Description: "Input the specified text into the activated input box.",
		Required:    []Field{FieldText},
	},
	{
		Kind:        KindWait,
		Description: "Wait specified seconds for the change to happen.",
		Required:    []Field{FieldTime},
	},
	{
		Kind:        KindTerminate,
		Description: "Terminate the current task and report its completion status.",
		Required:    []Field{FieldStatus},
	},
}

var fieldTable = []FieldSpec{
	{
		Name:        FieldCoordinate,
		Type:        TypePoint,
		Description: "(x, y): The x (pixels from the left edge) and y (pixels from the top edge) coordinates to move the mouse to.",
	},
	{
		Name:        FieldCoordinate2,
		Type:        TypePoint,
		Description: "(x, y): The x (pixels from the left edge) and y (pixels from the top edge) coordinates to move the mouse to.",
	},
	{
		Name:        FieldText,
		Type:        TypeString,
		Description: "The text to input.",
	},
	{
		Name:        FieldTime,
		Type:        TypeNumber,
		Description: "The seconds to wait.",
	},
	{
		Name:        FieldStatus,
		Type:        TypeString,
		Description: "The status of the task.",
		Enum:        []string{StatusSuccess, StatusFailure},
	},
}

var (
	kindIndex  = make(map[Kind]KindSpec, len(kindTable))
	fieldIndex = make(map[Field]FieldSpec, len(fieldTable))
)

func init() {
	for _, k := range kindTable {
		kindIndex[k.Kind] = k
	}
	for _, f := range fieldTable {
		fieldIndex[f.Name] = f
	}
}

// Kinds returns the vocabulary in declaration order.
func Kinds() []KindSpec {
	out := make([]KindSpec, len(kindTable))
	for i, k := range kindTable {
		k.Required = append([]Field(nil), k.Required...)
		out[i] = k
	}
	return out
}

// Fields returns every parameter in declaration order.
func Fields() []FieldSpec {
	out := make([]FieldSpec, len(fieldTable))
	for i, f := range fieldTable {
		f.Enum = append([]string(nil), f.Enum...)
		out[i] = f
	}
	return out
}

// IsKnownKind reports whether s names an action in the vocabulary.
func IsKnownKind(s string) bool {
	_, ok := kindIndex[Kind(s)]
	return ok
}

// RequiredFields returns the parameters kind k must carry, or nil for an
// unknown kind.
func RequiredFields(k Kind) []Field {
	spec, ok := kindIndex[k]
	if !ok {
		return nil
	}
	return append([]Field(nil), spec.Required...)
}

// Requires reports whether kind k requires field f.
func Requires(k Kind, f Field) bool {
	for _, r := range kindIndex[k].Required {
		if r == f {
			return true
		}
	}
	return false
}

// LookupField returns the description of parameter f.
func LookupField(f Field) (FieldSpec, bool) {
	spec, ok := fieldIndex[f]
	return spec, ok
}

// RequiredBy lists the kinds that require f, in declaration order.
func RequiredBy(f Field) []Kind {
	var out []Kind
	for _, k := range kindTable {
		if Requires(k.Kind, f) {
			out = append(out, k.Kind)
		}
	}
	return out
}

// KindNames returns the vocabulary as sorted strings.
func KindNames() []string {
	out := make([]string, 0, len(kindTable))
	for _, k := range kindTable {
		out = append(out, string(k.Kind))
	}
	sort.Strings(out)
	return out
}
