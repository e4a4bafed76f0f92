package payload

import (
	"encoding/base64"
	"errors"

	"github.com/sashabaranov/go-openai"
)

// DefaultModel is the vision model both entry points talk to.
const DefaultModel = openai.GPT4o

// dataURIPrefix is used for every image regardless of its real encoding; the
// remote API sniffs the bytes itself.
const dataURIPrefix = "data:image/png;base64,"

// ErrEmptyImage is returned when there are no image bytes to send.
var ErrEmptyImage = errors.New("image data is empty")

// Prompts is the fixed instruction pair sent along with every image.
type Prompts struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// Builder produces chat completion requests for a single model.
type Builder struct {
	model string
}

// NewBuilder creates a builder; an empty model falls back to DefaultModel.
func NewBuilder(model string) *Builder {
	if model == "" {
		model = DefaultModel
	}
	return &Builder{model: model}
}

// Model returns the model identifier placed in every request.
func (b *Builder) Model() string {
	return b.model
}

// FromBytes base64-encodes raw image bytes and builds the request.
func (b *Builder) FromBytes(image []byte, prompts Prompts) (openai.ChatCompletionRequest, error) {
	if len(image) == 0 {
		return openai.ChatCompletionRequest{}, ErrEmptyImage
	}
	return b.build(base64.StdEncoding.EncodeToString(image), prompts), nil
}

// FromBase64 builds the request from an already encoded image. The string is
// embedded untouched.
func (b *Builder) FromBase64(encoded string, prompts Prompts) (openai.ChatCompletionRequest, error) {
	if encoded == "" {
		return openai.ChatCompletionRequest{}, ErrEmptyImage
	}
	return b.build(encoded, prompts), nil
}

func (b *Builder) build(encoded string, prompts Prompts) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: prompts.System,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: prompts.User,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: DataURI(encoded),
						},
					},
				},
			},
		},
	}
}

// DataURI wraps base64 image data in a data: URI.
func DataURI(encoded string) string {
	return dataURIPrefix + encoded
}
