package imagegen

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"caricature_studio/core"
	"caricature_studio/logging"
)

// OpenAIOptions configures the describe-then-generate provider. The same
// client serves the vision describer and the image model.
type OpenAIOptions struct {
	APIKey string

	// BaseURL overrides https://api.openai.com/v1. Azure resources are
	// detected with IsAzureEndpoint and use APIVersion.
	BaseURL    string
	APIVersion string

	VisionModel     string
	ImageModel      string
	VisionMaxTokens int

	HTTPClient *http.Client
	Logger     *logging.Logger
}

// OpenAIOptionsFromConfig maps the loaded configuration onto OpenAIOptions.
func OpenAIOptionsFromConfig(cfg *core.Config, logger *logging.Logger) OpenAIOptions {
	return OpenAIOptions{
		APIKey:          cfg.OpenAIAPIKey,
		BaseURL:         cfg.OpenAIBaseURL,
		APIVersion:      cfg.AzureOpenAIAPIVersion,
		VisionModel:     cfg.OpenAIVisionModel,
		ImageModel:      cfg.OpenAIImageModel,
		VisionMaxTokens: cfg.VisionMaxTokens,
		HTTPClient:      core.GetHTTPClient(cfg, 0),
		Logger:          logger,
	}
}

func (o OpenAIOptions) withDefaults() OpenAIOptions {
	if o.VisionModel == "" {
		o.VisionModel = "gpt-4o"
	}
	if o.ImageModel == "" {
		o.ImageModel = openai.CreateImageModelDallE3
	}
	if o.VisionMaxTokens <= 0 {
		o.VisionMaxTokens = 300
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	return o
}

func newOpenAIClient(opts OpenAIOptions) (*openai.Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("imagegen: OpenAI API key is required")
	}

	var clientConfig openai.ClientConfig
	if IsAzureEndpoint(opts.BaseURL) {
		clientConfig = openai.DefaultAzureConfig(opts.APIKey, opts.BaseURL)
		if opts.APIVersion != "" {
			clientConfig.APIVersion = opts.APIVersion
		}
	} else {
		clientConfig = openai.DefaultConfig(opts.APIKey)
		if opts.BaseURL != "" {
			clientConfig.BaseURL = opts.BaseURL
		}
	}
	if opts.HTTPClient != nil {
		clientConfig.HTTPClient = opts.HTTPClient
	}
	return openai.NewClientWithConfig(clientConfig), nil
}

// classifyOpenAIError is the single place OpenAI failures are mapped onto the
// taxonomy.
func classifyOpenAIError(op string, err error) *GenerationError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := ""
		if apiErr.Code != nil {
			code = fmt.Sprint(apiErr.Code)
		}
		status := apiErr.HTTPStatusCode
		var outer *openai.RequestError
		if status == 0 && errors.As(err, &outer) {
			status = outer.HTTPStatusCode
		}
		return &GenerationError{
			Kind:       classifyStatus(status, code, apiErr.Type),
			Provider:   ProviderB,
			Op:         op,
			Message:    apiErr.Message,
			StatusCode: status,
			Err:        err,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := string(reqErr.Body)
		if msg == "" && reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &GenerationError{
			Kind:       classifyStatus(reqErr.HTTPStatusCode),
			Provider:   ProviderB,
			Op:         op,
			Message:    msg,
			StatusCode: reqErr.HTTPStatusCode,
			Err:        err,
		}
	}

	return classifyTransport(ProviderB, op, err)
}
