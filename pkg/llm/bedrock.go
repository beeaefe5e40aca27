package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// DefaultModel is the Bedrock inference profile used when none is configured.
const DefaultModel = "us.anthropic.claude-3-5-sonnet-20241022-v2:0"

// ErrMissingCredentials is returned when the Bedrock region or keys are empty.
var ErrMissingCredentials = errors.New("missing AWS Bedrock credentials")

// BedrockClient implements Client with Anthropic models served by AWS Bedrock.
type BedrockClient struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration

	region       string
	accessKey    string
	secretKey    string
	sessionToken string
	extra        []option.RequestOption
}

// BedrockOption configures BedrockClient.
type BedrockOption func(*BedrockClient)

// WithRegion sets the AWS region.
func WithRegion(region string) BedrockOption {
	return func(c *BedrockClient) { c.region = strings.TrimSpace(region) }
}

// WithCredentials sets static AWS credentials. token may be empty.
func WithCredentials(accessKey, secretKey, token string) BedrockOption {
	return func(c *BedrockClient) {
		c.accessKey = accessKey
		c.secretKey = secretKey
		c.sessionToken = token
	}
}

// WithModel sets the default model id.
func WithModel(model string) BedrockOption {
	return func(c *BedrockClient) { c.model = model }
}

// WithMaxTokens sets the default output token bound.
func WithMaxTokens(n int) BedrockOption {
	return func(c *BedrockClient) { c.maxTokens = n }
}

// WithTemperature sets the default sampling temperature.
func WithTemperature(t float64) BedrockOption {
	return func(c *BedrockClient) { c.temperature = ClampTemperature(t) }
}

// WithTimeout bounds each Complete call. Zero disables the bound.
func WithTimeout(d time.Duration) BedrockOption {
	return func(c *BedrockClient) { c.timeout = d }
}

// WithRequestOptions appends raw SDK request options, applied after the
// Bedrock transport.
func WithRequestOptions(opts ...option.RequestOption) BedrockOption {
	return func(c *BedrockClient) { c.extra = append(c.extra, opts...) }
}

// NewBedrockClient creates a Bedrock-backed client.
// Returns ErrMissingCredentials unless region and both keys are set.
func NewBedrockClient(opts ...BedrockOption) (*BedrockClient, error) {
	c := &BedrockClient{
		model:       DefaultModel,
		maxTokens:   4096,
		temperature: 0.7,
		timeout:     60 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.region == "" || c.accessKey == "" || c.secretKey == "" {
		return nil, ErrMissingCredentials
	}

	awsCfg := aws.Config{
		Region:      c.region,
		Credentials: credentials.NewStaticCredentialsProvider(c.accessKey, c.secretKey, c.sessionToken),
	}
	clientOpts := []option.RequestOption{
		bedrock.WithConfig(awsCfg),
		// Retries are opt-in through WithRetry.
		option.WithMaxRetries(0),
	}
	clientOpts = append(clientOpts, c.extra...)
	c.client = anthropic.NewClient(clientOpts...)

	return c, nil
}

// Model returns the default model id.
func (c *BedrockClient) Model() string {
	return c.model
}

// Region returns the configured AWS region.
func (c *BedrockClient) Region() string {
	return c.region
}

// Complete implements Client.
func (c *BedrockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	params, err := c.buildParams(req)
	if err != nil {
		return nil, NewError("complete", err, false)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, NewError("complete", ctxErr, errors.Is(ctxErr, context.DeadlineExceeded))
		}
		return nil, NewError("complete", err, IsRetryable(err))
	}

	resp := convertMessage(msg)
	resp.Duration = time.Since(start)
	return resp, nil
}

func (c *BedrockClient) buildParams(req CompletionRequest) (anthropic.MessageNewParams, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	temperature := c.temperature
	if req.Temperature != nil {
		temperature = ClampTemperature(*req.Temperature)
	}

	messages, system, err := convertMessages(req.Messages)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}
	if req.SystemPrompt != "" {
		system = append([]anthropic.TextBlockParam{{Text: req.SystemPrompt}}, system...)
	}
	if len(messages) == 0 {
		return anthropic.MessageNewParams{}, errors.New("at least one non-system message is required")
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokens),
		Messages:    messages,
		Temperature: anthropic.Float(temperature),
	}
	if len(system) > 0 {
		params.System = system
	}
	if len(req.Tools) > 0 {
		tools, err := convertTools(req.Tools)
		if err != nil {
			return anthropic.MessageNewParams{}, err
		}
		params.Tools = tools
	}
	return params, nil
}

// convertMessages maps conversation turns to Anthropic messages. System
// turns become system blocks; tool results become user turns.
func convertMessages(msgs []Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam, error) {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	var system []anthropic.TextBlockParam

	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case RoleUser, "":
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, 1+len(m.ToolCalls))
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, decodeArguments(tc.Arguments), tc.Name))
			}
			if len(blocks) == 0 {
				continue
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		case RoleTool:
			out = append(out, anthropic.NewUserMessage(anthropic.NewToolResultBlock(m.ToolCallID, m.Content, m.IsError)))
		default:
			return nil, nil, fmt.Errorf("unsupported message role %q", m.Role)
		}
	}
	return out, system, nil
}

func convertTools(tools []Tool) ([]anthropic.ToolUnionParam, error) {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		var schema struct {
			Properties map[string]any `json:"properties"`
			Required   []string       `json:"required"`
		}
		if len(t.Parameters) > 0 {
			if err := json.Unmarshal(t.Parameters, &schema); err != nil {
				return nil, fmt.Errorf("tool %s: invalid input schema: %w", t.Name, err)
			}
		}
		if schema.Properties == nil {
			schema.Properties = map[string]any{}
		}
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: schema.Properties,
					Required:   schema.Required,
				},
			},
		})
	}
	return out, nil
}

func convertMessage(msg *anthropic.Message) *CompletionResponse {
	var text strings.Builder
	var calls []ToolCall
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(b.Text)
		case anthropic.ToolUseBlock:
			calls = append(calls, ToolCall{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: json.RawMessage(b.Input),
			})
		}
	}

	in, out := int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens)
	return &CompletionResponse{
		Content:      text.String(),
		ToolCalls:    calls,
		Model:        string(msg.Model),
		FinishReason: string(msg.StopReason),
		Usage: TokenUsage{
			InputTokens:  in,
			OutputTokens: out,
			TotalTokens:  in + out,
		},
	}
}

func decodeArguments(raw json.RawMessage) any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return map[string]any{}
	}
	return v
}
