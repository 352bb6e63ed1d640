// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// HTTP Server - these keys configure the inbound HTTP surface.
const (
	ServerAddress       = "server.address"
	ServerAPIKey        = "server.api_key"
	ServerRateLimit     = "server.rate_limit"
	ServerRateBurst     = "server.rate_burst"
	ServerRequireSigned = "server.require_signed"
)

// Source Validation - these keys govern which inbound URLs are accepted.
const (
	SourceAllowedHosts = "source.allowed_hosts"
)

// Quality Selection - these keys define the target stream quality.
const (
	QualityTarget = "quality.target"
)

// Extraction - these keys manage strategy ordering and failure classification.
const (
	ExtractOrder             = "extract.order"
	ExtractMetadataTimeout   = "extract.metadata_timeout"
	ExtractTransientRetries  = "extract.transient_retries"
	ExtractAuthKeywords      = "extract.auth_keywords"
	ExtractNotFoundKeywords  = "extract.notfound_keywords"
	ExtractTransientKeywords = "extract.transient_keywords"
)

// Downloader Tool - these keys configure the external downloader subprocess.
const (
	ToolPath       = "tool.path"
	ToolTimeout    = "tool.timeout"
	ToolFormat     = "tool.format"
	ToolSelfUpdate = "tool.self_update"
	ToolReleaseURL = "tool.release_url"
)

// Scrape Endpoints - base URLs of the third-party conversion services.
const (
	ScrapeMatesURL    = "scrape.mates_url"
	ScrapeSavefromURL = "scrape.savefrom_url"
)

// Identity Provider - these keys drive the login flow used to mint session cookies.
const (
	IdentityEmail            = "identity.email"
	IdentityPassword         = "identity.password"
	IdentityLoginURL         = "identity.login_url"
	IdentityFormURL          = "identity.form_url"
	IdentityTargetURL        = "identity.target_url"
	IdentityChallengeMarkers = "identity.challenge_markers"
)

// Browser Automation - these keys configure the headless browser driver.
const (
	BrowserBin      = "browser.bin"
	BrowserHeadless = "browser.headless"
	BrowserTimeout  = "browser.timeout"
	BrowserSettle   = "browser.settle"
)

// Cookie Lifecycle - these keys manage the credential bundle health policy.
const (
	CookiesDomains            = "cookies.domains"
	CookiesMaxFailures        = "cookies.max_failures"
	CookiesMaxRefreshAttempts = "cookies.max_refresh_attempts"
	CookiesCooldown           = "cookies.cooldown"
	CookiesCheckInterval      = "cookies.check_interval"
	CookiesMaxAge             = "cookies.max_age"
	CookiesProbeURL           = "cookies.probe_url"
)

// Retention - these keys bound storage growth.
const (
	RetentionMaxAge   = "retention.max_age"
	RetentionInterval = "retention.interval"
)

// Fetch & Storage - these keys govern media persistence.
const (
	FetchTimeout        = "fetch.timeout"
	StorageSignedURLTTL = "storage.signed_url_ttl"
	StorageSecret       = "storage.secret"
)

// Iconography - these keys manage the visual rendering of CLI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment.
const (
	CliColored = "cli.colored"
)
