package actions

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Point is an (x, y) screen coordinate in pixels.
type Point [2]float64

// X returns the horizontal coordinate.
func (p Point) X() float64 { return p[0] }

// Y returns the vertical coordinate.
func (p Point) Y() float64 { return p[1] }

// Command is one fully specified device action. Only the fields required by
// Kind are set; the rest stay nil.
type Command struct {
	Kind            Kind     `json:"kind"`
	Coordinate      *Point   `json:"coordinate,omitempty"`
	Coordinate2     *Point   `json:"coordinate2,omitempty"`
	Text            *string  `json:"text,omitempty"`
	DurationSeconds *float64 `json:"durationSeconds,omitempty"`
	Status          string   `json:"status,omitempty"`
}

// Validation errors.
var (
	ErrUnknownKind  = errors.New("unknown action kind")
	ErrMissingField = errors.New("missing required field")
)

// Click taps the point (x, y).
func Click(x, y float64) Command {
	return Command{Kind: KindClick, Coordinate: &Point{x, y}}
}

// LongPress holds the point (x, y) for seconds.
func LongPress(x, y, seconds float64) Command {
	return Command{Kind: KindLongPress, Coordinate: &Point{x, y}, DurationSeconds: &seconds}
}

// Swipe drags from one point to another.
func Swipe(from, to Point) Command {
	return Command{Kind: KindSwipe, Coordinate: &from, Coordinate2: &to}
}

// Type enters text into the focused field.
func Type(text string) Command {
	return Command{Kind: KindType, Text: &text}
}

// Wait pauses for seconds.
func Wait(seconds float64) Command {
	return Command{Kind: KindWait, DurationSeconds: &seconds}
}

// Terminate ends the task with status.
func Terminate(status string) Command {
	return Command{Kind: KindTerminate, Status: status}
}

// Validate checks that every field required by the kind is present and that
// terminate carries a known status.
func (c Command) Validate() error {
	if !IsKnownKind(string(c.Kind)) {
		return fmt.Errorf("%w: %q", ErrUnknownKind, c.Kind)
	}
	for _, f := range RequiredFields(c.Kind) {
		if !c.has(f) {
			return fmt.Errorf("%w: %s requires %s", ErrMissingField, c.Kind, f)
		}
	}
	if c.Kind == KindTerminate && c.Status != StatusSuccess && c.Status != StatusFailure {
		return fmt.Errorf("terminate status must be %q or %q, got %q", StatusSuccess, StatusFailure, c.Status)
	}
	return nil
}

// Normalize returns a copy with every field the kind does not require cleared.
func (c Command) Normalize() Command {
	out := Command{Kind: c.Kind}
	if Requires(c.Kind, FieldCoordinate) {
		out.Coordinate = c.Coordinate
	}
	if Requires(c.Kind, FieldCoordinate2) {
		out.Coordinate2 = c.Coordinate2
	}
	if Requires(c.Kind, FieldText) {
		out.Text = c.Text
	}
	if Requires(c.Kind, FieldTime) {
		out.DurationSeconds = c.DurationSeconds
	}
	if Requires(c.Kind, FieldStatus) {
		out.Status = c.Status
	}
	return out
}

func (c Command) has(f Field) bool {
	switch f {
	case FieldCoordinate:
		return c.Coordinate != nil
	case FieldCoordinate2:
		return c.Coordinate2 != nil
	case FieldText:
		return c.Text != nil
	case FieldTime:
		return c.DurationSeconds != nil
	case FieldStatus:
		return c.Status != ""
	}
	return false
}

// String renders the command in the reply format the model is asked for.
func (c Command) String() string {
	s := `{"action": ` + quote(string(c.Kind))
	if c.Coordinate != nil {
		s += `, "coordinate": ` + c.Coordinate.String()
	}
	if c.Coordinate2 != nil {
		s += `, "coordinate2": ` + c.Coordinate2.String()
	}
	if c.Text != nil {
		s += `, "text": ` + quote(*c.Text)
	}
	if c.DurationSeconds != nil {
		s += `, "time": ` + strconv.FormatFloat(*c.DurationSeconds, 'g', -1, 64)
	}
	if c.Status != "" {
		s += `, "status": ` + quote(c.Status)
	}
	return s + "}"
}

// String renders the point as a JSON pair.
func (p Point) String() string {
	return "[" + strconv.FormatFloat(p[0], 'g', -1, 64) + ", " + strconv.FormatFloat(p[1], 'g', -1, 64) + "]"
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
