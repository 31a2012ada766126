// Package config loads storefront settings from layered JSONC files, a .env
// file and the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tailscale/hujson"

	"github.com/stringartkit/storefront/internal/storage"
)

// FileName is the project config file looked up in the working directory.
const FileName = ".storefront.json"

// DotEnvFileName is merged under the process environment when present.
const DotEnvFileName = ".env"

// Environment variables that override file settings.
const (
	EnvUPIID      = "STOREFRONT_UPI_ID"
	EnvPayeeName  = "STOREFRONT_PAYEE_NAME"
	EnvAPIBaseURL = "STOREFRONT_API_BASE_URL"
	EnvListenAddr = "STOREFRONT_LISTEN_ADDR"
)

// Config holds all configuration options.
type Config struct {
	ContentDir   string   `json:"content_dir"`
	Output       string   `json:"output"`
	StaticDir    string   `json:"static_dir"`
	CartStorage  string   `json:"cart_storage"`
	CartPath     string   `json:"cart_path"`
	APIBaseURL   string   `json:"api_base_url"`
	UPIID        string   `json:"upi_id"`
	PayeeName    string   `json:"payee_name"`
	ListenAddr   string   `json:"listen_addr"`
	AllowOrigins []string `json:"allow_origins"`
	AllowRawHTML bool     `json:"allow_raw_html"`
	BuildWorkers int      `json:"build_workers"`

	// Resolved against EffectiveCwd, not serialized.
	EffectiveCwd string `json:"-"`
	Sources      Sources `json:"-"`
}

// Sources records where settings came from, for print-config.
type Sources struct {
	Global  string   // global config path if loaded
	Project string   // project or -c config path if loaded
	DotEnv  string   // .env path if loaded
	Env     []string // environment variables that overrode file settings
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ContentDir:   "content",
		Output:       filepath.Join("public", "data", "app.json"),
		StaticDir:    "public",
		CartStorage:  storage.KindFile,
		CartPath:     filepath.Join(".storefront", "cart"),
		APIBaseURL:   "http://localhost:8080/api",
		UPIID:        "stringart@upi",
		PayeeName:    "StringArt",
		ListenAddr:   ":8080",
		AllowOrigins: []string{},
		BuildWorkers: 4,
	}
}

// fileConfig mirrors Config with pointers so an absent key can be told apart
// from an explicit zero value.
type fileConfig struct {
	ContentDir   *string   `json:"content_dir"`
	Output       *string   `json:"output"`
	StaticDir    *string   `json:"static_dir"`
	CartStorage  *string   `json:"cart_storage"`
	CartPath     *string   `json:"cart_path"`
	APIBaseURL   *string   `json:"api_base_url"`
	UPIID        *string   `json:"upi_id"`
	PayeeName    *string   `json:"payee_name"`
	ListenAddr   *string   `json:"listen_addr"`
	AllowOrigins *[]string `json:"allow_origins"`
	AllowRawHTML *bool     `json:"allow_raw_html"`
	BuildWorkers *int      `json:"build_workers"`
}

// LoadInput holds the inputs for Load.
type LoadInput struct {
	WorkDirOverride string            // -C/--cwd; empty uses os.Getwd
	ConfigPath      string            // -c/--config; must exist when set
	Env             map[string]string // process environment
}

// Load resolves configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global config ($XDG_CONFIG_HOME/storefront/config.json or ~/.config/storefront/config.json)
// 3. Project config (.storefront.json), or the -c file instead
// 4. Environment overrides, with .env values under the process environment.
//
// The merged environment is returned for callers that read other variables.
func Load(input LoadInput) (Config, map[string]string, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, nil, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := Default()

	env, dotEnvPath, err := mergeDotEnv(workDir, input.Env)
	if err != nil {
		return Config{}, nil, err
	}

	cfg.Sources.DotEnv = dotEnvPath

	globalPath := globalConfigPath(env)
	if globalPath != "" {
		loaded, loadErr := loadFile(globalPath, false)
		if loadErr != nil {
			return Config{}, nil, loadErr
		}

		if loaded != nil {
			cfg = merge(cfg, *loaded)
			cfg.Sources.Global = globalPath
		}
	}

	projectPath, mustExist := filepath.Join(workDir, FileName), false

	if input.ConfigPath != "" {
		projectPath, mustExist = input.ConfigPath, true
		if !filepath.IsAbs(projectPath) {
			projectPath = filepath.Join(workDir, projectPath)
		}
	}

	loaded, err := loadFile(projectPath, mustExist)
	if err != nil {
		return Config{}, nil, err
	}

	if loaded != nil {
		cfg = merge(cfg, *loaded)
		cfg.Sources.Project = projectPath
	}

	cfg = applyEnv(cfg, env)

	err = validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}

	cfg.EffectiveCwd = workDir

	return cfg, env, nil
}

// Abs resolves p against the effective working directory.
func (c *Config) Abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(c.EffectiveCwd, p)
}

func globalConfigPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "storefront", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "storefront", "config.json")
	}

	return ""
}

// mergeDotEnv returns env with values from workDir/.env added for keys the
// process environment does not set.
func mergeDotEnv(workDir string, env map[string]string) (map[string]string, string, error) {
	merged := make(map[string]string, len(env))
	for k, v := range env {
		merged[k] = v
	}

	path := filepath.Join(workDir, DotEnvFileName)

	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return merged, "", nil
		}

		return nil, "", fmt.Errorf("%w %s: %w", ErrDotEnvInvalid, path, err)
	}

	for k, v := range values {
		if _, set := merged[k]; !set {
			merged[k] = v
		}
	}

	return merged, path, nil
}

// loadFile returns nil when the file is absent and mustExist is false.
func loadFile(path string, mustExist bool) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		switch {
		case errors.Is(err, os.ErrNotExist) && mustExist:
			return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		case errors.Is(err, os.ErrNotExist):
			return nil, nil
		default:
			return nil, fmt.Errorf("%w %s: %w", ErrConfigFileRead, path, err)
		}
	}

	fc, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return fc, nil
}

func parse(data []byte) (*fileConfig, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONC: %w", err)
	}

	var fc fileConfig

	dec := json.NewDecoder(strings.NewReader(string(standardized)))
	dec.DisallowUnknownFields()

	err = dec.Decode(&fc)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	// Keys that must not be blanked by a file.
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"content_dir", fc.ContentDir},
		{"output", fc.Output},
		{"cart_storage", fc.CartStorage},
		{"cart_path", fc.CartPath},
		{"api_base_url", fc.APIBaseURL},
		{"upi_id", fc.UPIID},
		{"payee_name", fc.PayeeName},
		{"listen_addr", fc.ListenAddr},
	} {
		if f.value != nil && strings.TrimSpace(*f.value) == "" {
			return nil, fmt.Errorf("%s %w", f.name, ErrFieldEmpty)
		}
	}

	return &fc, nil
}

func merge(base Config, overlay fileConfig) Config {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}

	set(&base.ContentDir, overlay.ContentDir)
	set(&base.Output, overlay.Output)
	set(&base.StaticDir, overlay.StaticDir)
	set(&base.CartStorage, overlay.CartStorage)
	set(&base.CartPath, overlay.CartPath)
	set(&base.APIBaseURL, overlay.APIBaseURL)
	set(&base.UPIID, overlay.UPIID)
	set(&base.PayeeName, overlay.PayeeName)
	set(&base.ListenAddr, overlay.ListenAddr)

	if overlay.AllowOrigins != nil {
		base.AllowOrigins = slices.Clone(*overlay.AllowOrigins)
	}

	if overlay.AllowRawHTML != nil {
		base.AllowRawHTML = *overlay.AllowRawHTML
	}

	if overlay.BuildWorkers != nil {
		base.BuildWorkers = *overlay.BuildWorkers
	}

	return base
}

func applyEnv(cfg Config, env map[string]string) Config {
	for _, o := range []struct {
		key string
		dst *string
	}{
		{EnvUPIID, &cfg.UPIID},
		{EnvPayeeName, &cfg.PayeeName},
		{EnvAPIBaseURL, &cfg.APIBaseURL},
		{EnvListenAddr, &cfg.ListenAddr},
	} {
		if v := env[o.key]; v != "" {
			*o.dst = v
			cfg.Sources.Env = append(cfg.Sources.Env, o.key)
		}
	}

	return cfg
}

func validate(cfg Config) error {
	if !slices.Contains(storage.Kinds(), cfg.CartStorage) {
		return fmt.Errorf("%w: %q", ErrStorageKind, cfg.CartStorage)
	}

	if cfg.BuildWorkers < 1 {
		return ErrWorkers
	}

	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrAPIBaseURL, cfg.APIBaseURL)
	}

	return nil
}

// Format renders the serialized settings as indented JSON.
func Format(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format config: %w", err)
	}

	return string(data), nil
}
