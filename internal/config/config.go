package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the application configuration. It is populated once at startup
// from a yaml file and/or environment variables; every default the engine
// relies on is enumerated here rather than scattered through the code.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`

	// HTTP contains the link-service HTTP server settings.
	HTTP struct {
		// Addr is the address and port the HTTP server will listen on
		Addr string `env:"HTTP_ADDR" env-default:":8080" yaml:"addr"`
		// ReadTimeout is the maximum duration for reading the entire request, including the body
		ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"1m" yaml:"readTimeout"`
		// ReadHeaderTimeout is the amount of time allowed to read request headers
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
		// WriteTimeout is the maximum duration before timing out writes of the response
		WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"2m" yaml:"writeTimeout"`
		// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled
		IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m" yaml:"idleTimeout"`
		// RequestTimeout is the maximum time allowed for processing a single request
		RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" env-default:"45s" yaml:"requestTimeout"`
		// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header
		MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" env-default:"0" yaml:"maxHeaderBytes"`
		// MetricsPath defines the URL path where metrics are exposed
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath"`
	} `yaml:"http"`

	// Amazon configures direct Amazon monetization.
	Amazon struct {
		// AssociateTag is appended to Amazon product URLs as the tag query parameter.
		AssociateTag string `env:"AMAZON_ASSOCIATE_TAG" yaml:"associateTag"`
		// MarketplaceBase is the canonical marketplace origin used when
		// rebuilding product URLs, e.g. https://www.amazon.com.
		MarketplaceBase string `env:"AMAZON_MARKETPLACE_BASE" env-default:"https://www.amazon.com" yaml:"marketplaceBase"`

		Mask struct {
			// Enabled turns tagged Amazon URLs into masked markdown links.
			Enabled bool `env:"AMAZON_MASK_ENABLED" env-default:"true" yaml:"enabled"`
			// Prefix is the short-link-looking display host, e.g. amzn.to.
			Prefix string `env:"AMAZON_MASK_PREFIX" env-default:"amzn.to" yaml:"prefix"`
			// SlugLength is the random slug length; clamped to 4..20.
			SlugLength int `env:"AMAZON_MASK_SLUG_LENGTH" env-default:"7" yaml:"slugLength"`
		} `yaml:"mask"`
	} `yaml:"amazon"`

	// PAAPI configures the signed product-data enrichment call. Enrichment is
	// optional; leaving AccessKey empty disables it.
	PAAPI struct {
		AccessKey  string `env:"PAAPI_ACCESS_KEY" yaml:"accessKey"`
		SecretKey  string `env:"PAAPI_SECRET_KEY" yaml:"secretKey"`
		PartnerTag string `env:"PAAPI_PARTNER_TAG" yaml:"partnerTag"`
		// Host is the PA-API endpoint host, e.g. webservices.amazon.com.
		Host string `env:"PAAPI_HOST" env-default:"webservices.amazon.com" yaml:"host"`
		// Region is the signing region for the host, e.g. us-east-1.
		Region string `env:"PAAPI_REGION" env-default:"us-east-1" yaml:"region"`
		// Marketplace identifies the marketplace in the request payload.
		Marketplace string `env:"PAAPI_MARKETPLACE" env-default:"www.amazon.com" yaml:"marketplace"`
		// Timeout bounds one enrichment call.
		Timeout time.Duration `env:"PAAPI_TIMEOUT" env-default:"10s" yaml:"timeout"`
	} `yaml:"paapi"`

	// Expand configures short-link and deal-hub resolution.
	Expand struct {
		// Enabled toggles all network resolution; pure query unwrapping still runs.
		Enabled bool `env:"EXPAND_ENABLED" env-default:"true" yaml:"enabled"`
		// MaxRedirects bounds the redirect hops followed in one attempt.
		MaxRedirects int `env:"EXPAND_MAX_REDIRECTS" env-default:"8" yaml:"maxRedirects"`
		// Timeout bounds one resolution hop; enforced ceiling is 12s.
		Timeout time.Duration `env:"EXPAND_TIMEOUT" env-default:"8s" yaml:"timeout"`
		// ExtraHosts are additional hosts treated as shorteners beyond the
		// built-in allowlist.
		ExtraHosts []string `env:"EXPAND_EXTRA_HOSTS" yaml:"extraHosts"`
		// HubHosts overrides the built-in set of deal-hub hosts whose pages
		// are scanned for an outbound merchant link. The scan is best-effort
		// and site-specific, so the set is configuration, not a constant.
		HubHosts []string `env:"EXPAND_HUB_HOSTS" yaml:"hubHosts"`
		// UserAgent is sent on resolution requests.
		UserAgent string `env:"EXPAND_USER_AGENT" env-default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/144.0.0.0 Safari/537.36" yaml:"userAgent"` //nolint: lll
	} `yaml:"expand"`

	// Network configures the affiliate network client and its session.
	Network struct {
		// BaseURL is the partner dashboard origin.
		BaseURL string `env:"NETWORK_BASE_URL" env-default:"https://creators.joinmavely.com" yaml:"baseURL"`
		// GraphQLEndpoint overrides the default {BaseURL}/api/graphql.
		GraphQLEndpoint string `env:"NETWORK_GRAPHQL_ENDPOINT" yaml:"graphqlEndpoint"`
		// LinkDomain is the network's own short-link domain; URLs on it are
		// classified as already monetized.
		LinkDomain string `env:"NETWORK_LINK_DOMAIN" env-default:"mavely.app.link" yaml:"linkDomain"`
		// Cookie is the session artifact: either the raw session-token value
		// or a full cookie header fragment. Treated as opaque, never logged.
		Cookie string `env:"NETWORK_COOKIE" yaml:"cookie"`
		// CookieFile is read at startup and re-read when the session expires
		// (hot reload).
		CookieFile string `env:"NETWORK_COOKIE_FILE" yaml:"cookieFile"`
		// BearerToken is an optional token used instead of or with cookies.
		BearerToken string `env:"NETWORK_BEARER_TOKEN" yaml:"bearerToken"`
		// MinInterval is the global minimum spacing between network calls.
		MinInterval time.Duration `env:"NETWORK_MIN_INTERVAL" env-default:"2s" yaml:"minInterval"`
		// Timeout bounds one network call.
		Timeout time.Duration `env:"NETWORK_TIMEOUT" env-default:"20s" yaml:"timeout"`
		// MaxRetries bounds attempts per link creation.
		MaxRetries int `env:"NETWORK_MAX_RETRIES" env-default:"3" yaml:"maxRetries"`

		Refresh struct {
			// Enabled allows invoking the external re-authentication
			// collaborator when the session expires.
			Enabled bool `env:"NETWORK_REFRESH_ENABLED" env-default:"false" yaml:"enabled"`
			// Command is the collaborator invoked to refresh the session
			// artifact on disk (e.g. an automated browser login).
			Command string `env:"NETWORK_REFRESH_COMMAND" yaml:"command"`
			// Cooldown is the minimum time between collaborator invocations,
			// regardless of call volume.
			Cooldown time.Duration `env:"NETWORK_REFRESH_COOLDOWN" env-default:"10m" yaml:"cooldown"`
		} `yaml:"refresh"`
	} `yaml:"network"`

	// Cache configures the product enrichment cache.
	Cache struct {
		// TTL is how long an enrichment entry stays usable; expiry is lazy.
		TTL time.Duration `env:"CACHE_TTL" env-default:"6h" yaml:"ttl"`
		// RedisAddr, when set, backs the cache with redis instead of process
		// memory so entries survive restarts.
		RedisAddr     string `env:"CACHE_REDIS_ADDR" yaml:"redisAddr"`
		RedisPassword string `env:"CACHE_REDIS_PASSWORD" yaml:"redisPassword"`
		RedisDB       int    `env:"CACHE_REDIS_DB" env-default:"0" yaml:"redisDB"`
	} `yaml:"cache"`

	// Workers bounds how many URLs of one batch resolve concurrently.
	Workers int `env:"WORKERS" env-default:"4" yaml:"workers"`

	// GracefulShutdownTimeout is the maximum duration to wait for ongoing requests to complete during shutdown
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// maxExpandTimeout is the hard ceiling on the per-hop resolution timeout.
const maxExpandTimeout = 12 * time.Second

// Load receives the path for yaml config file and returns a filled Config struct.
func Load(configPath string) (*Config, error) {
	var cfg Config
	err := cleanenv.ReadConfig(configPath, &cfg)
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	if cfg.Expand.Timeout > maxExpandTimeout {
		cfg.Expand.Timeout = maxExpandTimeout
	}

	return &cfg, nil
}
