package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/MegaGrindStone/gemini-web-chat/internal/handlers"
	"github.com/MegaGrindStone/gemini-web-chat/internal/services"
	"gopkg.in/yaml.v3"
)

const defaultPort = "8080"

type llmConfig interface {
	generator(logger *slog.Logger) (services.Generator, error)
}

// BaseLLMConfig contains the common fields for all LLM configurations.
type BaseLLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

type config struct {
	Port          string
	LogLevel      slog.Level
	FormatReplies bool
	CodeStyle     string
	SessionTTL    time.Duration
	LLM           llmConfig
}

type geminiConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string `yaml:"apiKey"`
	Endpoint      string `yaml:"endpoint"`
}

type anthropicConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string `yaml:"apiKey"`
	MaxTokens     int    `yaml:"maxTokens"`
	Endpoint      string `yaml:"endpoint"`
}

type ollamaConfig struct {
	BaseLLMConfig `yaml:",inline"`
	Host          string `yaml:"host"`
}

type openaiConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string `yaml:"apiKey"`
	BaseURL       string `yaml:"baseURL"`
}

func defaultConfig() config {
	return config{
		Port:          defaultPort,
		LogLevel:      slog.LevelInfo,
		FormatReplies: true,
		LLM:           &geminiConfig{},
	}
}

// loadConfig reads the config file at path. A missing file yields the defaults.
func loadConfig(path string) (config, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return defaultConfig(), nil
	}
	if err != nil {
		return config{}, fmt.Errorf("error opening config file: %w", err)
	}
	defer f.Close()

	return decodeConfig(f)
}

func decodeConfig(r io.Reader) (config, error) {
	cfg := defaultConfig()
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return config{}, fmt.Errorf("error decoding config file: %w", err)
	}
	return cfg, nil
}

func (c *config) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig struct {
		Port          string         `yaml:"port"`
		LogLevel      string         `yaml:"logLevel"`
		FormatReplies *bool          `yaml:"formatReplies"`
		CodeStyle     string         `yaml:"codeStyle"`
		SessionTTL    time.Duration  `yaml:"sessionTTL"`
		LLM           map[string]any `yaml:"llm"`
	}

	if err := value.Decode(&rawConfig); err != nil {
		return err
	}

	if rawConfig.Port != "" {
		c.Port = rawConfig.Port
	}
	if rawConfig.LogLevel != "" {
		if err := c.LogLevel.UnmarshalText([]byte(rawConfig.LogLevel)); err != nil {
			return fmt.Errorf("invalid logLevel: %w", err)
		}
	}
	if rawConfig.FormatReplies != nil {
		c.FormatReplies = *rawConfig.FormatReplies
	}
	c.CodeStyle = rawConfig.CodeStyle
	c.SessionTTL = rawConfig.SessionTTL

	llmProvider := "gemini"
	if p, ok := rawConfig.LLM["provider"]; ok {
		s, ok := p.(string)
		if !ok {
			return fmt.Errorf("llm provider must be a string")
		}
		llmProvider = strings.ToLower(s)
	}

	var llm llmConfig
	switch llmProvider {
	case "gemini":
		llm = &geminiConfig{}
	case "anthropic":
		llm = &anthropicConfig{}
	case "ollama":
		llm = &ollamaConfig{}
	case "openai":
		llm = &openaiConfig{}
	default:
		return fmt.Errorf("unknown llm provider: %s", llmProvider)
	}

	if rawConfig.LLM != nil {
		llmRawYAML, err := yaml.Marshal(rawConfig.LLM)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(llmRawYAML, llm); err != nil {
			return err
		}
	}

	c.LLM = llm

	return nil
}

func (c config) handlerOptions() handlers.Options {
	return handlers.Options{
		FormatReplies: c.FormatReplies,
		CodeStyle:     c.CodeStyle,
		SessionTTL:    c.SessionTTL,
	}
}

func (g geminiConfig) generator(logger *slog.Logger) (services.Generator, error) {
	apiKey := g.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		logger.Warn("No Gemini API key configured, requests will be rejected upstream")
	}
	return services.NewGemini(apiKey, g.Model, g.Endpoint, logger), nil
}

func (a anthropicConfig) generator(logger *slog.Logger) (services.Generator, error) {
	if a.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	apiKey := a.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		logger.Warn("No Anthropic API key configured, requests will be rejected upstream")
	}
	return services.NewAnthropic(apiKey, a.Model, a.Endpoint, a.MaxTokens, logger), nil
}

func (o ollamaConfig) generator(logger *slog.Logger) (services.Generator, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	host := o.Host
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	ollama, err := services.NewOllama(host, o.Model, logger)
	if err != nil {
		return nil, err
	}
	return ollama, nil
}

func (o openaiConfig) generator(logger *slog.Logger) (services.Generator, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	apiKey := o.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	return services.NewOpenAI(apiKey, o.BaseURL, o.Model, logger), nil
}
