package prompt_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/Mindburn-Labs/screenpilot/pkg/actions"
	"github.com/Mindburn-Labs/screenpilot/pkg/llm"
	"github.com/Mindburn-Labs/screenpilot/pkg/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pngB64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func TestSystemInstruction_ListsVocabulary(t *testing.T) {
	s := prompt.SystemInstruction()

	for _, k := range actions.Kinds() {
		assert.Contains(t, s, `* "`+string(k.Kind)+`": `+k.Description)
	}
	assert.Contains(t, s, "Required only by <action=click>, <action=long_press> and <action=swipe>.")
	assert.Contains(t, s, "Required only by <action=swipe>.")
	assert.Contains(t, s, `"enum": ["success", "failure"]`)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(s), `{"action": <action-name>, <arguments-name>: <arguments-value>}`))
}

func TestBuild(t *testing.T) {
	b := prompt.NewBuilder()
	req, err := b.Build(prompt.Request{
		Screenshot:  "data:image/png;base64," + pngB64,
		UserRequest: "打开设置",
	})
	require.NoError(t, err)
	require.Len(t, req.Messages, 2)

	sys := req.Messages[0]
	assert.Equal(t, llm.RoleSystem, sys.Role)
	require.Len(t, sys.Content, 1)
	assert.Equal(t, prompt.SystemInstruction(), sys.Content[0].Text)

	user := req.Messages[1]
	assert.Equal(t, llm.RoleUser, user.Role)
	require.Len(t, user.Content, 2)
	assert.Equal(t, "用户需求: 打开设置\n", user.Content[0].Text)
	assert.Equal(t, "data:image/png;base64,"+pngB64, user.Content[1].ImageURL.URL)

	assert.Empty(t, req.Model)
	assert.Nil(t, req.Temperature)
}

func TestBuild_AuxiliaryText(t *testing.T) {
	req, err := prompt.NewBuilder().Build(prompt.Request{
		Screenshot:  "https://example.com/shot.png",
		Text:        "  登录  注册 ",
		UserRequest: "log in",
	})
	require.NoError(t, err)
	assert.Equal(t, "用户需求: log in\n屏幕文本: 登录  注册\n", req.Messages[1].Content[0].Text)
}

func TestBuild_ZeroValueBuilder(t *testing.T) {
	var b prompt.Builder
	req, err := b.Build(prompt.Request{Screenshot: pngB64, UserRequest: "x"})
	require.NoError(t, err)
	assert.Equal(t, prompt.SystemInstruction(), req.Messages[0].Content[0].Text)
}

func TestBuild_Validation(t *testing.T) {
	tests := []struct {
		name  string
		req   prompt.Request
		field string
	}{
		{"missing screenshot", prompt.Request{UserRequest: "x"}, "screenshot"},
		{"blank screenshot", prompt.Request{Screenshot: "   ", UserRequest: "x"}, "screenshot"},
		{"missing goal", prompt.Request{Screenshot: pngB64}, "userRequest"},
		{"garbage screenshot", prompt.Request{Screenshot: "not an image!!", UserRequest: "x"}, "screenshot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := prompt.NewBuilder().Build(tt.req)
			var ve *prompt.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestNormalizeScreenshot(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"data:image/jpeg;base64,/9j/4AAQ", "data:image/jpeg;base64,/9j/4AAQ"},
		{"https://cdn.example.com/a.png", "https://cdn.example.com/a.png"},
		{pngB64, "data:image/png;base64," + pngB64},
		{"/9j/4AAQSkZJRg==", "data:image/jpeg;base64,/9j/4AAQSkZJRg=="},
		{"aGVsbG8gd29ybGQ=", "data:image/png;base64,aGVsbG8gd29ybGQ="},
	}
	for _, tt := range tests {
		got, err := prompt.NormalizeScreenshot(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	for _, bad := range []string{"data:image/png;base64", "https://", "%%%"} {
		_, err := prompt.NormalizeScreenshot(bad)
		assert.Error(t, err, bad)
	}
}
