package imagegen

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider generates the caricature from text alone. It never sees
// the photo; the describer's output stands in for it.
//
// Safe for concurrent use.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(opts OpenAIOptions) (*OpenAIProvider, error) {
	opts = opts.withDefaults()
	client, err := newOpenAIClient(opts)
	if err != nil {
		return nil, err
	}
	return &OpenAIProvider{
		client: client,
		model:  opts.ImageModel,
	}, nil
}

// SynthesizeFromDescription renders prompt at size. An empty description is
// rejected without calling the API.
func (p *OpenAIProvider) SynthesizeFromDescription(ctx context.Context, description, prompt, size string) (Image, error) {
	if strings.TrimSpace(description) == "" {
		return Image{}, &GenerationError{Kind: KindUnknown, Provider: ProviderB, Op: opSynthesize, Message: "empty physical description"}
	}

	resp, err := p.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          p.model,
		N:              1,
		Size:           size,
		Quality:        openai.CreateImageQualityHD,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return Image{}, classifyOpenAIError(opSynthesize, err)
	}
	return normalizeOpenAIImage(resp)
}

func normalizeOpenAIImage(resp openai.ImageResponse) (Image, error) {
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return Image{}, noImage(ProviderB, opSynthesize, "image model returned no image data")
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return Image{}, &GenerationError{Kind: KindUnknown, Provider: ProviderB, Op: opSynthesize, Message: "malformed image payload", Err: err}
	}
	return Image{Data: data, MIMEType: "image/png"}, nil
}

func (p *OpenAIProvider) Model() string {
	return p.model
}
