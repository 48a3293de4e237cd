// Package prompt turns a screenshot and a goal into a chat request that
// carries the action vocabulary as instructions.
package prompt

import (
	"fmt"
	"strings"

	"github.com/Mindburn-Labs/screenpilot/pkg/actions"
	"github.com/Mindburn-Labs/screenpilot/pkg/llm"
)

// Request is the input of one prediction.
type Request struct {
	Screenshot  string `json:"screenshot"`
	Text        string `json:"text,omitempty"`
	UserRequest string `json:"userRequest"`
}

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Validate checks the required fields without touching the network.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Screenshot) == "" {
		return &ValidationError{Field: "screenshot", Reason: "is required"}
	}
	if strings.TrimSpace(r.UserRequest) == "" {
		return &ValidationError{Field: "userRequest", Reason: "is required"}
	}
	return nil
}

const roleLine = "你是一个专业的手机端浏览器自动化助手，能够根据截图和文本内容，预测用户需要在浏览器中执行的操作"

var guidance = []string{
	"Use a touchscreen to interact with a mobile device, You can perform actions like clicking, typing, swiping, etc",
	"Sometimes may take time to start or process actions, so you may need to wait to see the results of your actions.",
	"Make sure to click any buttons, links, icons, etc with the cursor tip in the center of the element. Don't click boxes on their edges unless asked.",
}

// Builder renders chat requests. The zero value is ready to use.
type Builder struct {
	system string
}

// NewBuilder renders the system instruction once from the vocabulary.
func NewBuilder() *Builder {
	return &Builder{system: SystemInstruction()}
}

// SystemInstruction renders the fixed system prompt.
func SystemInstruction() string {
	var b strings.Builder
	b.WriteString(roleLine)
	b.WriteString("\n")
	for _, g := range guidance {
		b.WriteString(g)
		b.WriteString("\n")
	}

	b.WriteString("The action to perform. The available actions are:\n")
	for _, k := range actions.Kinds() {
		fmt.Fprintf(&b, "  * %q: %s\n", k.Kind, k.Description)
	}
	b.WriteString("\nParameters:\n")
	for _, f := range actions.Fields() {
		fmt.Fprintf(&b, "  %q: {\n", f.Name)
		fmt.Fprintf(&b, "    \"description\": %q,\n", f.Description+" "+requiredByLine(f.Name))
		fmt.Fprintf(&b, "    \"type\": %q", f.Type)
		if len(f.Enum) > 0 {
			quoted := make([]string, len(f.Enum))
			for i, e := range f.Enum {
				quoted[i] = fmt.Sprintf("%q", e)
			}
			fmt.Fprintf(&b, ",\n    \"enum\": [%s]", strings.Join(quoted, ", "))
		}
		b.WriteString("\n  },\n")
	}

	b.WriteString("\nFor each call, return exactly one json object with action name and arguments:\n")
	b.WriteString(`{"action": <action-name>, <arguments-name>: <arguments-value>}`)
	b.WriteString("\n")
	return b.String()
}

func requiredByLine(f actions.Field) string {
	kinds := actions.RequiredBy(f)
	tags := make([]string, len(kinds))
	for i, k := range kinds {
		tags[i] = "<action=" + string(k) + ">"
	}
	switch len(tags) {
	case 0:
		return ""
	case 1:
		return "Required only by " + tags[0] + "."
	default:
		return "Required only by " + strings.Join(tags[:len(tags)-1], ", ") + " and " + tags[len(tags)-1] + "."
	}
}

// Build validates req and renders the chat request. Model and sampling
// parameters are left for the client to fill.
func (b *Builder) Build(req Request) (*llm.ChatRequest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	image, err := NormalizeScreenshot(req.Screenshot)
	if err != nil {
		return nil, err
	}

	system := b.system
	if system == "" {
		system = SystemInstruction()
	}

	userText := "用户需求: " + strings.TrimSpace(req.UserRequest) + "\n"
	if t := strings.TrimSpace(req.Text); t != "" {
		userText += "屏幕文本: " + t + "\n"
	}

	return &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: []llm.ContentPart{llm.TextPart(system)}},
			{Role: llm.RoleUser, Content: []llm.ContentPart{llm.TextPart(userText), llm.ImagePart(image)}},
		},
	}, nil
}
