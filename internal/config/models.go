package config

import (
	"time"
)

// PhishingConfig represents the scoring configuration
type PhishingConfig struct {
	Threshold int
	Parallel  bool
}

// RulesConfig represents where the rule document lives
type RulesConfig struct {
	Path  string
	Watch bool
}

// TrustConfig represents the global trusted senders and trust manager options
type TrustConfig struct {
	GlobalPath              string
	GlobalEmails            []string
	GlobalDomains           []string
	CacheTTL                time.Duration
	IgnorePromotesWhitelist bool
}

// StoreConfig represents the trust store backend
type StoreConfig struct {
	Type          string
	SQLitePath    string
	MySQLDSN      string
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// CacheConfig represents the result cache
type CacheConfig struct {
	Enabled          bool
	Type             string
	TTL              time.Duration
	CleanupFrequency time.Duration
}

// DeepScanConfig represents the optional remote second opinion
type DeepScanConfig struct {
	Enabled         bool
	Provider        string
	Threshold       int
	Timeout         time.Duration
	RatePerMinute   int
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	Minimal         bool
	MaxBodySize     int
}

// HeadersConfig names the headers added by the SMTP filter
type HeadersConfig struct {
	Status  string
	Score   string
	Reasons string
	Trust   string
}

// RelayConfig is where the SMTP filter re-injects mail
type RelayConfig struct {
	Enabled bool
	Address string
	Port    int
}

// ServerConfig represents the mail filter configuration
type ServerConfig struct {
	FilterType    string
	ListenAddress string
	BlockPhishing bool
	Headers       HeadersConfig
	Relay         RelayConfig
	SubjectPrefix string
	ModifySubject bool
	MaxBodySize   int
}

// HTTPConfig represents the HTTP API
type HTTPConfig struct {
	ListenAddress  string
	RatePerMinute  int
	AllowedOrigins []string
	DevToken       string
}

// MetricsConfig represents the metrics endpoint
type MetricsConfig struct {
	Enabled       bool
	ListenAddress string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// URLhausConfig represents the configuration for abuse.ch URLhaus
type URLhausConfig struct {
	Endpoint string
	AuthKey  string
}

// GetPhishing returns the scoring configuration
func (c *Config) GetPhishing() PhishingConfig {
	return PhishingConfig{
		Threshold: c.GetInt("phishing.threshold"),
		Parallel:  c.GetBool("phishing.parallel"),
	}
}

// GetRules returns the rules configuration
func (c *Config) GetRules() RulesConfig {
	return RulesConfig{
		Path:  c.GetString("rules.path"),
		Watch: c.GetBool("rules.watch"),
	}
}

// GetTrust returns the trust configuration
func (c *Config) GetTrust() TrustConfig {
	return TrustConfig{
		GlobalPath:              c.GetString("trust.global_path"),
		GlobalEmails:            c.GetStringSlice("trust.global_emails"),
		GlobalDomains:           c.GetStringSlice("trust.global_domains"),
		CacheTTL:                c.durationOr("trust.cache_ttl", 0),
		IgnorePromotesWhitelist: c.GetBool("trust.ignore_promotes_whitelist"),
	}
}

// GetStore returns the trust store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:          c.GetString("store.type"),
		SQLitePath:    c.GetString("store.sqlite_path"),
		MySQLDSN:      c.GetString("store.mysql_dsn"),
		PostgresDSN:   c.GetString("store.postgres_dsn"),
		RedisAddr:     c.GetString("store.redis_addr"),
		RedisPassword: c.GetString("store.redis_password"),
		RedisDB:       c.GetInt("store.redis_db"),
		RedisPrefix:   c.GetString("store.redis_prefix"),
	}
}

// GetCache returns the result cache configuration
func (c *Config) GetCache() CacheConfig {
	return CacheConfig{
		Enabled:          c.GetBool("cache.enabled"),
		Type:             c.GetString("cache.type"),
		TTL:              c.durationOr("cache.ttl", 10*time.Minute),
		CleanupFrequency: c.durationOr("cache.cleanup_frequency", 5*time.Minute),
	}
}

// GetDeepScan returns the deep scan configuration
func (c *Config) GetDeepScan() DeepScanConfig {
	return DeepScanConfig{
		Enabled:         c.GetBool("deep_scan.enabled"),
		Provider:        c.GetString("deep_scan.provider"),
		Threshold:       c.GetInt("deep_scan.threshold"),
		Timeout:         c.durationOr("deep_scan.timeout", 30*time.Second),
		RatePerMinute:   c.GetInt("deep_scan.rate_per_minute"),
		BreakerFailures: uint32(c.GetInt("deep_scan.breaker_failures")),
		BreakerTimeout:  c.durationOr("deep_scan.breaker_timeout", time.Minute),
		Minimal:         c.GetBool("deep_scan.minimal"),
		MaxBodySize:     c.GetInt("deep_scan.max_body_size"),
	}
}

// GetServer returns the mail filter configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		FilterType:    c.GetString("server.filter_type"),
		ListenAddress: c.GetString("server.listen_address"),
		BlockPhishing: c.GetBool("server.block_phishing"),
		Headers: HeadersConfig{
			Status:  c.GetString("server.headers.status"),
			Score:   c.GetString("server.headers.score"),
			Reasons: c.GetString("server.headers.reasons"),
			Trust:   c.GetString("server.headers.trust"),
		},
		Relay: RelayConfig{
			Enabled: c.GetBool("server.relay.enabled"),
			Address: c.GetString("server.relay.address"),
			Port:    c.GetInt("server.relay.port"),
		},
		SubjectPrefix: c.GetString("server.subject_prefix"),
		ModifySubject: c.GetBool("server.modify_subject"),
		MaxBodySize:   c.GetInt("server.max_body_size"),
	}
}

// GetHTTP returns the HTTP API configuration
func (c *Config) GetHTTP() HTTPConfig {
	return HTTPConfig{
		ListenAddress:  c.GetString("http.listen_address"),
		RatePerMinute:  c.GetInt("http.rate_per_minute"),
		AllowedOrigins: c.GetStringSlice("http.allowed_origins"),
		DevToken:       c.GetString("http.dev_token"),
	}
}

// GetMetrics returns the metrics configuration
func (c *Config) GetMetrics() MetricsConfig {
	return MetricsConfig{
		Enabled:       c.GetBool("metrics.enabled"),
		ListenAddress: c.GetString("metrics.listen_address"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetURLhaus returns the URLhaus configuration
func (c *Config) GetURLhaus() URLhausConfig {
	return URLhausConfig{
		Endpoint: c.GetString("urlhaus.endpoint"),
		AuthKey:  c.GetString("urlhaus.auth_key"),
	}
}

// durationOr parses key, falling back to def when it is not a duration
func (c *Config) durationOr(key string, def time.Duration) time.Duration {
	d, err := c.GetDuration(key)
	if err != nil {
		return def
	}
	return d
}
