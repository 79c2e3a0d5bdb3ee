package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/teamflow/rolecall/internal/logging"
	"github.com/teamflow/rolecall/types"
)

// Config holds the recommendation service connection settings.
type Config struct {
	// APIKey authenticates against the chat-completions endpoint.
	APIKey string `yaml:"apiKey"`

	// BaseURL overrides the service endpoint. Empty uses the SDK default;
	// set it to target an OpenAI-compatible provider.
	BaseURL string `yaml:"baseUrl"`

	// Model is the chat model name to invoke.
	Model string `yaml:"model"`

	// Timeout bounds each call. Expiry surfaces as ErrTransport.
	Timeout time.Duration `yaml:"timeout"`

	// Temperature and TopP control sampling.
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"topP"`

	// MaxTokens caps the completion length.
	MaxTokens int64 `yaml:"maxTokens"`
}

// DefaultConfig returns client settings matching the service defaults.
func DefaultConfig() Config {
	return Config{
		Model:       "gpt-4o-mini",
		Timeout:     30 * time.Second,
		Temperature: 0.7,
		TopP:        0.8,
		MaxTokens:   800,
	}
}

// SetDefaults fills in missing configuration values.
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaults.Temperature
	}
	if cfg.TopP == 0 {
		cfg.TopP = defaults.TopP
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaults.MaxTokens
	}
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger types.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client calls the recommendation service. Stateless and safe for
// concurrent use.
type Client struct {
	api    openai.Client
	cfg    Config
	logger types.Logger
}

// Compile-time assertion that Client implements Recommender.
var _ types.Recommender = (*Client)(nil)

// NewClient creates a recommendation client.
//
// Parameters:
//   - cfg: Connection settings (missing values get defaults)
//   - opts: Optional configuration
//
// Returns:
//   - *Client: Initialized client
//   - error: Configuration error
//
// Example:
//
//	client, err := recommend.NewClient(recommend.Config{
//	    APIKey:  os.Getenv("OPENAI_API_KEY"),
//	    BaseURL: "https://clovastudio.stream.ntruss.com/v1/openai",
//	    Model:   "HCX-005",
//	})
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	SetDefaults(&cfg)

	if cfg.APIKey == "" {
		return nil, errors.New("API key is required")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0), // single call per invocation, retries are the caller's policy
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}

	c := &Client{
		api:    openai.NewClient(reqOpts...),
		cfg:    cfg,
		logger: logging.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// RecommendAssignments asks the service for a conflict-free assignment of
// role slots to the submitted profiles.
//
// The raw response is untrusted: it is sanitized and reduced to the first
// well-formed JSON array of {"username","assigned_role"} objects. Failures
// map onto the taxonomy: transport/HTTP errors (including timeout) are
// ErrTransport, unparsable bodies are ErrMalformedResponse and a valid but
// empty array is ErrEmptyResult.
func (c *Client) RecommendAssignments(ctx context.Context, roleSlots []string, profiles []types.Profile) ([]types.AssignmentPair, error) {
	if len(roleSlots) == 0 {
		return nil, types.ErrNoRoleSlots
	}
	if len(profiles) == 0 {
		return nil, types.ErrNoSubmissions
	}

	content, err := c.complete(ctx, teamAssignmentInstruction, buildTeamPrompt(roleSlots, profiles))
	if err != nil {
		return nil, err
	}

	pairs, err := parseAssignmentArray(content)
	if err != nil {
		c.logger.Warn("recommendation response rejected",
			"error", err,
			"body_length", len(content),
		)

		return nil, err
	}

	if len(pairs) == 0 {
		return nil, types.ErrEmptyResult
	}

	return pairs, nil
}

// RecommendRole asks the service for a single role suggestion for one
// participant, returning the role name and a short reason.
func (c *Client) RecommendRole(ctx context.Context, profile types.Profile, roleSlots []string) (role, reason string, err error) {
	if len(roleSlots) == 0 {
		return "", "", types.ErrNoRoleSlots
	}

	content, err := c.complete(ctx, singleRoleInstruction, buildSinglePrompt(profile, roleSlots))
	if err != nil {
		return "", "", err
	}

	rec, err := parseRoleRecommendation(content)
	if err != nil {
		c.logger.Warn("role recommendation response rejected", "error", err)

		return "", "", err
	}

	return rec.RecommendedRole, rec.Reason, nil
}

// complete issues one chat-completions call and returns the raw message
// content.
func (c *Client) complete(ctx context.Context, instruction, prompt string) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(instruction),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.cfg.Temperature),
		TopP:        openai.Float(c.cfg.TopP),
		MaxTokens:   openai.Int(c.cfg.MaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrTransport, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: response carried no message content", types.ErrMalformedResponse)
	}

	return resp.Choices[0].Message.Content, nil
}
