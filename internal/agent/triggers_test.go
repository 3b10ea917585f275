package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsVideoRequest(t *testing.T) {
	assert.True(t, IsVideoRequest("@sora a cat playing with yarn"))
	assert.True(t, IsVideoRequest("please Generate Video: a sunset"))
	assert.True(t, IsVideoRequest("create video a robot dancing"))
	assert.True(t, IsVideoRequest("hey @SORA do something"))

	assert.False(t, IsVideoRequest("hello there"))
	assert.False(t, IsVideoRequest("I watched a video yesterday"))
}

func TestExtractPrompt(t *testing.T) {
	prompt, testMode := ExtractPrompt("@sora a cat playing with yarn")
	assert.Equal(t, "a cat playing with yarn", prompt)
	assert.False(t, testMode)

	prompt, _ = ExtractPrompt("Generate video: a sunset over the ocean")
	assert.Equal(t, "a sunset over the ocean", prompt)

	prompt, _ = ExtractPrompt("create video a robot dancing")
	assert.Equal(t, "a robot dancing", prompt)

	prompt, _ = ExtractPrompt("@sora")
	assert.Empty(t, prompt)

	prompt, testMode = ExtractPrompt("@sora test a quick preview")
	assert.Equal(t, "a quick preview", prompt)
	assert.True(t, testMode)

	// "test" inside the prompt body is not a flag.
	prompt, testMode = ExtractPrompt("@sora a test pilot flying")
	assert.Equal(t, "a test pilot flying", prompt)
	assert.False(t, testMode)
}
