package imagegen

import (
	"context"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"caricature_studio/logging"
)

const describerSystemPrompt = "You are a technical art director for an animation studio. " +
	"You analyze reference photos to write character descriptions for 3D modelers. " +
	"Describe physical visual traits only. Never try to identify the real person."

const describerUserPrompt = "Write a detailed visual description of the person in this image, " +
	"to be used as a prompt for an image generator. Cover: face shape and structure, " +
	"skin tone, eyes and eyebrows, hair style, texture, colour and length, facial hair, " +
	"distinctive features such as glasses, freckles or dimples, and approximate age. " +
	"Do not describe clothing or background. Answer as a comma-separated list."

// OpenAIDescriber turns a photo into a physical description with a vision
// chat model.
type OpenAIDescriber struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *logging.Logger
}

func NewOpenAIDescriber(opts OpenAIOptions) (*OpenAIDescriber, error) {
	opts = opts.withDefaults()
	client, err := newOpenAIClient(opts)
	if err != nil {
		return nil, err
	}
	return &OpenAIDescriber{
		client:    client,
		model:     opts.VisionModel,
		maxTokens: opts.VisionMaxTokens,
		logger:    opts.Logger.Named("describer"),
	}, nil
}

// Describe makes one vision call. A reply that opens with a refusal phrase
// fails with KindPrivacyRefusal; the refused text is never returned.
func (d *OpenAIDescriber) Describe(ctx context.Context, img SourceImage) (string, error) {
	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     d.model,
		MaxTokens: d.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: describerSystemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: describerUserPrompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    img.DataURI(),
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", classifyOpenAIError(opDescribe, err)
	}
	return d.normalize(resp)
}

// normalize is the only place the chat response shape is read.
func (d *OpenAIDescriber) normalize(resp openai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", &GenerationError{Kind: KindUnknown, Provider: ProviderB, Op: opDescribe, Message: "vision model returned no choices"}
	}
	msg := resp.Choices[0].Message

	if msg.Refusal != "" {
		d.logger.Warn("vision model refused", zap.String("reply", msg.Refusal))
		return "", &GenerationError{Kind: KindPrivacyRefusal, Provider: ProviderB, Op: opDescribe, Message: msg.Refusal}
	}

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return "", &GenerationError{Kind: KindUnknown, Provider: ProviderB, Op: opDescribe, Message: "vision model returned no description"}
	}
	if IsRefusal(content) {
		d.logger.Warn("vision model refused", zap.String("reply", content))
		return "", &GenerationError{Kind: KindPrivacyRefusal, Provider: ProviderB, Op: opDescribe, Message: content}
	}

	d.logger.Debug("physical description", zap.String("description", content))
	return content, nil
}

func (d *OpenAIDescriber) Model() string {
	return d.model
}
