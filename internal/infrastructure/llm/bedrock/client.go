package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/kirillkom/docqa/internal/infrastructure/awsclient"
	"github.com/kirillkom/docqa/internal/infrastructure/resilience"
)

const (
	DefaultEmbedModel = "amazon.titan-embed-text-v1"
	DefaultTextModel  = "amazon.titan-text-express-v1"
)

// API is the subset of the Bedrock runtime client the adapters need.
type API interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// NewClientFromConfig disables SDK retries so throttling reaches the caller's own policy.
func NewClientFromConfig(cfg aws.Config) *bedrockruntime.Client {
	return bedrockruntime.NewFromConfig(cfg, func(o *bedrockruntime.Options) {
		o.Retryer = aws.NopRetryer{}
	})
}

func invokeJSON(ctx context.Context, api API, modelID string, request any, response any) error {
	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", modelID, err)
	}
	out, err := api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return awsclient.ClassifyError("bedrock invoke "+modelID, err)
	}
	if err := json.Unmarshal(out.Body, response); err != nil {
		return fmt.Errorf("decode %s response: %w", modelID, err)
	}
	return nil
}

type Embedder struct {
	api      API
	modelID  string
	executor *resilience.Executor
}

type EmbedderOption func(*Embedder)

// WithEmbedExecutor retries throttled and temporary embedding calls.
func WithEmbedExecutor(executor *resilience.Executor) EmbedderOption {
	return func(e *Embedder) {
		e.executor = executor
	}
}

func NewEmbedder(api API, modelID string, opts ...EmbedderOption) *Embedder {
	if strings.TrimSpace(modelID) == "" {
		modelID = DefaultEmbedModel
	}
	e := &Embedder{api: api, modelID: modelID}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Embedder) Model() string {
	return "bedrock/" + e.modelID
}

// Embed calls the model once per text; Titan embeddings accept a single input.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vector, err := e.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, vector)
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var response struct {
		Embedding []float32 `json:"embedding"`
	}
	call := func(callCtx context.Context) error {
		return invokeJSON(callCtx, e.api, e.modelID, map[string]any{"inputText": text}, &response)
	}
	var err error
	if e.executor != nil {
		err = e.executor.Execute(ctx, "bedrock.embed", call, classifyEmbedError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}
	if len(response.Embedding) == 0 {
		return nil, fmt.Errorf("bedrock %s returned an empty embedding", e.modelID)
	}
	return response.Embedding, nil
}

type TextConfig struct {
	MaxTokenCount int     `json:"maxTokenCount"`
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"topP"`
}

func DefaultTextConfig() TextConfig {
	return TextConfig{MaxTokenCount: 512, Temperature: 0, TopP: 1}
}

type Completer struct {
	api     API
	modelID string
	config  TextConfig
}

func NewCompleter(api API, modelID string, config TextConfig) *Completer {
	if strings.TrimSpace(modelID) == "" {
		modelID = DefaultTextModel
	}
	if config.MaxTokenCount <= 0 {
		config.MaxTokenCount = DefaultTextConfig().MaxTokenCount
	}
	if config.TopP <= 0 {
		config.TopP = DefaultTextConfig().TopP
	}
	return &Completer{api: api, modelID: modelID, config: config}
}

func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	request := map[string]any{
		"inputText":            prompt,
		"textGenerationConfig": c.config,
	}
	var response struct {
		Results []struct {
			OutputText string `json:"outputText"`
		} `json:"results"`
	}
	if err := invokeJSON(ctx, c.api, c.modelID, request, &response); err != nil {
		return "", err
	}
	if len(response.Results) == 0 {
		return "", fmt.Errorf("bedrock %s returned no results", c.modelID)
	}
	return strings.TrimSpace(response.Results[0].OutputText), nil
}
