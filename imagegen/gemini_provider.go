package imagegen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"caricature_studio/core"
)

// GeminiOptions configures the direct-edit provider and its quota fallback.
type GeminiOptions struct {
	APIKey string

	// BaseURL overrides the Gemini API endpoint. Tests point it at httptest.
	BaseURL string

	EditModel     string
	FallbackModel string

	HTTPClient *http.Client
}

// GeminiOptionsFromConfig maps the loaded configuration onto GeminiOptions.
func GeminiOptionsFromConfig(cfg *core.Config) GeminiOptions {
	return GeminiOptions{
		APIKey:        cfg.GeminiAPIKey,
		BaseURL:       cfg.GeminiBaseURL,
		EditModel:     cfg.GeminiEditModel,
		FallbackModel: cfg.GeminiFallbackModel,
		HTTPClient:    core.GetHTTPClient(cfg, 0),
	}
}

// GeminiProvider edits the source photo directly with a multimodal model and
// falls back to a text-only image model when the first is over quota.
type GeminiProvider struct {
	client        *genai.Client
	editModel     string
	fallbackModel string
}

func NewGeminiProvider(ctx context.Context, opts GeminiOptions) (*GeminiProvider, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("imagegen: Gemini API key is required")
	}
	if opts.EditModel == "" {
		opts.EditModel = "gemini-2.0-flash-exp"
	}
	if opts.FallbackModel == "" {
		opts.FallbackModel = "imagen-3.0-generate-001"
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("imagegen: create Gemini client: %w", err)
	}
	return &GeminiProvider{
		client:        client,
		editModel:     opts.EditModel,
		fallbackModel: opts.FallbackModel,
	}, nil
}

// SynthesizeDirect sends the prompt and the photo in one request and asks for
// an image at aspectRatio.
func (p *GeminiProvider) SynthesizeDirect(ctx context.Context, img SourceImage, prompt, aspectRatio string) (Image, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(img.Data, img.MIMEType),
	}
	resp, err := p.client.Models.GenerateContent(ctx, p.editModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{string(genai.ModalityText), string(genai.ModalityImage)},
			ImageConfig:        &genai.ImageConfig{AspectRatio: aspectRatio},
		})
	if err != nil {
		return Image{}, classifyGeminiError(opSynthesize, err)
	}
	return normalizeGeminiContent(resp)
}

// SynthesizeFallback generates from text alone. The model never sees the
// photo, so FallbackSubjectSuffix is appended to the prompt.
func (p *GeminiProvider) SynthesizeFallback(ctx context.Context, prompt, aspectRatio string) (Image, error) {
	resp, err := p.client.Models.GenerateImages(ctx, p.fallbackModel, prompt+FallbackSubjectSuffix,
		&genai.GenerateImagesConfig{
			NumberOfImages: 1,
			AspectRatio:    aspectRatio,
			OutputMIMEType: "image/jpeg",
		})
	if err != nil {
		return Image{}, classifyGeminiError(opFallback, err)
	}
	return normalizeGeminiImages(resp)
}

func (p *GeminiProvider) Model() string {
	return p.editModel
}

func (p *GeminiProvider) FallbackModel() string {
	return p.fallbackModel
}

var blockedFinishReasons = map[genai.FinishReason]bool{
	genai.FinishReasonSafety:                 true,
	genai.FinishReasonProhibitedContent:      true,
	genai.FinishReasonBlocklist:              true,
	genai.FinishReasonSPII:                   true,
	genai.FinishReasonImageSafety:            true,
	genai.FinishReasonImageProhibitedContent: true,
}

// normalizeGeminiContent is the only place the generateContent shape is read.
func normalizeGeminiContent(resp *genai.GenerateContentResponse) (Image, error) {
	if resp == nil {
		return Image{}, noImage(ProviderA, opSynthesize, "empty response")
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return Image{}, &GenerationError{
			Kind:     KindSafetyRefusal,
			Provider: ProviderA,
			Op:       opSynthesize,
			Message:  "prompt blocked: " + string(fb.BlockReason),
		}
	}
	if len(resp.Candidates) == 0 {
		return Image{}, noImage(ProviderA, opSynthesize, "no candidates returned")
	}

	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil {
			continue
		}
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if part == nil {
					continue
				}
				if part.InlineData != nil && len(part.InlineData.Data) > 0 {
					mime := part.InlineData.MIMEType
					if mime == "" {
						mime = "image/png"
					}
					return Image{Data: part.InlineData.Data, MIMEType: mime}, nil
				}
				text.WriteString(part.Text)
			}
		}
		if blockedFinishReasons[cand.FinishReason] {
			return Image{}, &GenerationError{
				Kind:     KindSafetyRefusal,
				Provider: ProviderA,
				Op:       opSynthesize,
				Message:  "generation stopped: " + string(cand.FinishReason),
			}
		}
	}

	msg := "no image in response"
	if t := strings.TrimSpace(text.String()); t != "" {
		msg = "model answered with text only: " + t
	}
	return Image{}, noImage(ProviderA, opSynthesize, msg)
}

func normalizeGeminiImages(resp *genai.GenerateImagesResponse) (Image, error) {
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return Image{}, noImage(ProviderA, opFallback, "no images generated")
	}
	generated := resp.GeneratedImages[0]
	if generated == nil || generated.Image == nil || len(generated.Image.ImageBytes) == 0 {
		if generated != nil && generated.RAIFilteredReason != "" {
			return Image{}, &GenerationError{
				Kind:     KindSafetyRefusal,
				Provider: ProviderA,
				Op:       opFallback,
				Message:  generated.RAIFilteredReason,
			}
		}
		return Image{}, noImage(ProviderA, opFallback, "no image bytes returned")
	}
	mime := generated.Image.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	return Image{Data: generated.Image.ImageBytes, MIMEType: mime}, nil
}

// classifyGeminiError is the single place Gemini failures are mapped onto
// the taxonomy. Codes come from the gRPC-style status and the ErrorInfo
// reason in the details.
func classifyGeminiError(op string, err error) *GenerationError {
	apiErr, ok := asGeminiAPIError(err)
	if !ok {
		return classifyTransport(ProviderA, op, err)
	}

	codes := []string{apiErr.Status}
	for _, detail := range apiErr.Details {
		if reason, ok := detail["reason"].(string); ok {
			codes = append(codes, reason)
		}
	}
	kind := classifyStatus(apiErr.Code, codes...)
	if kind == KindUnknown && strings.Contains(strings.ToLower(apiErr.Message), "api key") {
		kind = KindInvalidCredential
	}

	return &GenerationError{
		Kind:       kind,
		Provider:   ProviderA,
		Op:         op,
		Message:    apiErr.Message,
		StatusCode: apiErr.Code,
		Err:        err,
	}
}

func asGeminiAPIError(err error) (genai.APIError, bool) {
	var value genai.APIError
	if errors.As(err, &value) {
		return value, true
	}
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	return genai.APIError{}, false
}
