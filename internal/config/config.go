package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process and the operator CLI.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
//
// Provider credentials are optional at load time. Adapters fail fast with a
// configuration error on first use when a credential they need is missing.
type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	Auth       AuthConfig
	ElevenLabs ElevenLabsConfig
	Audio      AudioConfig
	Twilio     TwilioConfig
	Vapi       VapiConfig
	Dialer     DialerConfig
}

type AppConfig struct {
	Env  string
	Port int

	// PublicBaseURL is the externally reachable origin of this deployment.
	// Audio references and provider callbacks are resolved against it.
	PublicBaseURL string
}

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

type DBConfig struct {
	Driver string

	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit for AWS-ready posture.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string

	// Path is the SQLite database file, used when Driver is sqlite.
	Path string
}

// RedisConfig is optional. When Host is empty the cross-process session cap is disabled.
type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type ElevenLabsConfig struct {
	APIKey          string
	VoiceID         string
	ModelID         string
	BaseURL         string
	Stability       float64
	SimilarityBoost float64
}

const (
	AudioStoreLocal = "local"
	AudioStoreS3    = "s3"
)

type AudioConfig struct {
	Store string

	// Dir is where the local store writes files; it is served under /audio.
	Dir string

	S3Bucket string
	S3Region string
}

const (
	TelephonyTwilio = "twilio"
	TelephonyDryRun = "dryrun"
)

type TwilioConfig struct {
	Provider   string
	AccountSID string
	AuthToken  string
	FromNumber string
}

// Configured reports whether enough credentials are present to place calls.
func (t TwilioConfig) Configured() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.FromNumber != ""
}

type VapiConfig struct {
	APIKey        string
	AssistantID   string
	PhoneNumberID string
	BaseURL       string
}

type DialerConfig struct {
	DefaultRegion string

	// Pacing is the fixed delay applied after every number in a session.
	Pacing time.Duration

	// ProviderTimeout bounds every call to an external provider.
	ProviderTimeout time.Duration

	// Workers caps concurrently running sessions inside one process.
	Workers int

	// MaxSessionsPerOwner caps concurrently running sessions per owner across replicas (needs Redis).
	MaxSessionsPerOwner int

	UseAgent bool
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.PublicBaseURL = strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL"))

	c.DB.Driver = strings.TrimSpace(os.Getenv("DB_DRIVER"))
	c.DB.Path = strings.TrimSpace(os.Getenv("DB_PATH"))
	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	if c.DB.Driver != DBDriverSQLite {
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	if c.Redis.Host != "" {
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate() based on env.
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")

	c.ElevenLabs.APIKey = os.Getenv("ELEVENLABS_API_KEY")
	c.ElevenLabs.VoiceID = strings.TrimSpace(os.Getenv("ELEVENLABS_VOICE_ID"))
	c.ElevenLabs.ModelID = strings.TrimSpace(os.Getenv("ELEVENLABS_MODEL_ID"))
	c.ElevenLabs.BaseURL = strings.TrimSpace(os.Getenv("ELEVENLABS_BASE_URL"))
	{
		f, err := optionalFloat("ELEVENLABS_STABILITY")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.ElevenLabs.Stability = f
	}
	{
		f, err := optionalFloat("ELEVENLABS_SIMILARITY_BOOST")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.ElevenLabs.SimilarityBoost = f
	}

	c.Audio.Store = strings.TrimSpace(os.Getenv("AUDIO_STORE"))
	c.Audio.Dir = strings.TrimSpace(os.Getenv("AUDIO_DIR"))
	c.Audio.S3Bucket = strings.TrimSpace(os.Getenv("AUDIO_S3_BUCKET"))
	c.Audio.S3Region = strings.TrimSpace(os.Getenv("AUDIO_S3_REGION"))

	c.Twilio.Provider = strings.TrimSpace(os.Getenv("TELEPHONY_PROVIDER"))
	c.Twilio.AccountSID = strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID"))
	c.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	c.Twilio.FromNumber = strings.TrimSpace(os.Getenv("TWILIO_PHONE_NUMBER"))

	c.Vapi.APIKey = os.Getenv("VAPI_API_KEY")
	c.Vapi.AssistantID = strings.TrimSpace(os.Getenv("VAPI_ASSISTANT_ID"))
	c.Vapi.PhoneNumberID = strings.TrimSpace(os.Getenv("VAPI_PHONE_NUMBER_ID"))
	c.Vapi.BaseURL = strings.TrimSpace(os.Getenv("VAPI_BASE_URL"))

	c.Dialer.DefaultRegion = strings.ToUpper(strings.TrimSpace(os.Getenv("DIAL_DEFAULT_REGION")))
	c.Dialer.Pacing = mustDuration("DIAL_PACING")
	c.Dialer.ProviderTimeout = mustDuration("DIAL_PROVIDER_TIMEOUT")
	{
		n, err := optionalInt("DIAL_WORKERS")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Dialer.Workers = n
	}
	{
		n, err := optionalInt("DIAL_MAX_SESSIONS_PER_OWNER")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Dialer.MaxSessionsPerOwner = n
	}
	{
		b, err := optionalBool("DIAL_USE_AGENT", true)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Dialer.UseAgent = b
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.PublicBaseURL == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("PUBLIC_BASE_URL is required in production"))
		} else {
			c.App.PublicBaseURL = fmt.Sprintf("http://localhost:%d", c.App.Port)
		}
	}
	c.App.PublicBaseURL = strings.TrimRight(c.App.PublicBaseURL, "/")

	errs = append(errs, c.validateDB()...)

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if c.ElevenLabs.VoiceID == "" {
		c.ElevenLabs.VoiceID = "21m00Tcm4TlvDq8ikWAM"
	}
	if c.ElevenLabs.ModelID == "" {
		c.ElevenLabs.ModelID = "eleven_multilingual_v2"
	}
	if c.ElevenLabs.BaseURL == "" {
		c.ElevenLabs.BaseURL = "https://api.elevenlabs.io/v1/text-to-speech"
	}
	if c.ElevenLabs.Stability == 0 {
		c.ElevenLabs.Stability = 0.5
	}
	if c.ElevenLabs.SimilarityBoost == 0 {
		c.ElevenLabs.SimilarityBoost = 0.75
	}

	switch c.Audio.Store {
	case "":
		c.Audio.Store = AudioStoreLocal
	case AudioStoreLocal, AudioStoreS3:
	default:
		errs = append(errs, fmt.Errorf("AUDIO_STORE must be one of local, s3, got %q", c.Audio.Store))
	}
	if c.Audio.Dir == "" {
		c.Audio.Dir = "public"
	}
	if c.Audio.Store == AudioStoreS3 {
		if c.Audio.S3Bucket == "" {
			errs = append(errs, errors.New("AUDIO_S3_BUCKET is required when AUDIO_STORE=s3"))
		}
		if c.Audio.S3Region == "" {
			errs = append(errs, errors.New("AUDIO_S3_REGION is required when AUDIO_STORE=s3"))
		}
	}

	switch c.Twilio.Provider {
	case "":
		c.Twilio.Provider = TelephonyTwilio
	case TelephonyTwilio, TelephonyDryRun:
	default:
		errs = append(errs, fmt.Errorf("TELEPHONY_PROVIDER must be one of twilio, dryrun, got %q", c.Twilio.Provider))
	}
	if c.IsProduction() && c.Twilio.Provider == TelephonyDryRun {
		errs = append(errs, errors.New("TELEPHONY_PROVIDER=dryrun is not allowed in production"))
	}

	if c.Vapi.BaseURL == "" {
		c.Vapi.BaseURL = "https://api.vapi.ai"
	}
	c.Vapi.BaseURL = strings.TrimRight(c.Vapi.BaseURL, "/")

	if c.Dialer.Pacing <= 0 {
		c.Dialer.Pacing = time.Second
	}
	if c.Dialer.ProviderTimeout <= 0 {
		c.Dialer.ProviderTimeout = 15 * time.Second
	}
	if c.Dialer.Workers <= 0 {
		c.Dialer.Workers = 16
	}
	if c.Dialer.MaxSessionsPerOwner <= 0 {
		c.Dialer.MaxSessionsPerOwner = 2
	}

	return joinErrors(errs)
}

func (c *Config) validateDB() []error {
	var errs []error

	switch c.DB.Driver {
	case "":
		c.DB.Driver = DBDriverPostgres
	case DBDriverPostgres, DBDriverSQLite:
	default:
		return []error{fmt.Errorf("DB_DRIVER must be one of postgres, sqlite, got %q", c.DB.Driver)}
	}

	if c.DB.Driver == DBDriverSQLite {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_DRIVER=sqlite is not allowed in production"))
		}
		if c.DB.Path == "" {
			c.DB.Path = "dialer.db"
		}
		return errs
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	return errs
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

// DatabaseDSN returns the driver name and DSN for database/sql.
// Avoid logging the DSN; it contains secrets.
func (c Config) DatabaseDSN() (driver, dsn string) {
	if c.DB.Driver == DBDriverSQLite {
		return "sqlite", c.DB.Path
	}
	return "pgx", fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalFloat(key string) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, v)
	}
	return f, nil
}

func optionalBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
