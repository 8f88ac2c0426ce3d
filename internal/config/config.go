package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

type BackendConfig struct {
	// URL is the base URL of the document-database deployment the daemon
	// claims and completes work against. The BACKEND_URL environment
	// variable overrides this value.
	URL       string `yaml:"url"`
	TimeoutMs int    `yaml:"timeoutMs"`
}

type WorkerConfig struct {
	Count          int `yaml:"count"`
	PollIntervalMs int `yaml:"pollIntervalMs"`
}

type BrowserConfig struct {
	// ControlURL points at a remote browser (ws://...). Empty launches a
	// local browser via rod's default launcher.
	ControlURL     string `yaml:"controlURL"`
	NavTimeoutMs   int    `yaml:"navTimeoutMs"`
	SettleDelayMs  int    `yaml:"settleDelayMs"`
	MaxSniffedBody int    `yaml:"maxSniffedBody"`
}

type AgentConfig struct {
	// Command is the code-generating agent CLI. Args are appended before
	// the prompt.
	Command   string   `yaml:"command"`
	Args      []string `yaml:"args"`
	TimeoutMs int      `yaml:"timeoutMs"`
	ExtraPath string   `yaml:"extraPath"`
}

type TestConfig struct {
	// Runtime is the command used to execute generated TypeScript, e.g.
	// "npx" with RuntimeArgs ["tsx"].
	Runtime        string   `yaml:"runtime"`
	RuntimeArgs    []string `yaml:"runtimeArgs"`
	HarnessScript  string   `yaml:"harnessScript"`
	MockTimeoutMs  int      `yaml:"mockTimeoutMs"`
	LiveTimeoutMs  int      `yaml:"liveTimeoutMs"`
	MaxSampleCount int      `yaml:"maxSampleCount"`
}

type ScratchpadConfig struct {
	Dir string `yaml:"dir"`
}

type DirectoryConfig struct {
	IntervalMs    int    `yaml:"intervalMs"`
	BatchSize     int    `yaml:"batchSize"`
	UserAgent     string `yaml:"userAgent"`
	RespectRobots bool   `yaml:"respectRobots"`
}

type ContactConfig struct {
	IntervalMs int `yaml:"intervalMs"`
	BatchSize  int `yaml:"batchSize"`
}

type DiscoveryConfig struct {
	IntervalMs       int    `yaml:"intervalMs"`
	SearchEngineURL  string `yaml:"searchEngineURL"`
	MaxSearchResults int    `yaml:"maxSearchResults"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL"`
	Model   string `yaml:"model"`
}

type AnthropicConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

type GoogleLLMConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

type LLMConfig struct {
	DefaultProvider string          `yaml:"defaultProvider"`
	OpenAI          OpenAIConfig    `yaml:"openai"`
	Anthropic       AnthropicConfig `yaml:"anthropic"`
	Google          GoogleLLMConfig `yaml:"google"`
}

// SearxngConfig holds provider-specific configuration for SearxNG-based search.
type SearxngConfig struct {
	BaseURL      string `yaml:"baseURL"`
	DefaultLimit int    `yaml:"defaultLimit"`
	TimeoutMs    int    `yaml:"timeoutMs"`
}

// SearchConfig controls how the discovery loop runs search queries. When a
// SearxNG instance is configured it is preferred over driving a search
// engine through the browser.
type SearchConfig struct {
	Provider string        `yaml:"provider"`
	Searxng  SearxngConfig `yaml:"searxng"`
}

type StatusServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type PromptConfig struct {
	TemplatePath string `yaml:"templatePath"`
}

type Config struct {
	Backend    BackendConfig      `yaml:"backend"`
	Worker     WorkerConfig       `yaml:"worker"`
	Browser    BrowserConfig      `yaml:"browser"`
	Agent      AgentConfig        `yaml:"agent"`
	Test       TestConfig         `yaml:"test"`
	Scratchpad ScratchpadConfig   `yaml:"scratchpad"`
	Directory  DirectoryConfig    `yaml:"directory"`
	Contact    ContactConfig      `yaml:"contact"`
	Discovery  DiscoveryConfig    `yaml:"discovery"`
	LLM        LLMConfig          `yaml:"llm"`
	Search     SearchConfig       `yaml:"search"`
	Status     StatusServerConfig `yaml:"status"`
	Prompt     PromptConfig       `yaml:"prompt"`
}

func Load(path string) *Config {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		log.Fatalf("failed to decode config: %v", err)
	}

	if v := os.Getenv("BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}

	return &cfg
}
