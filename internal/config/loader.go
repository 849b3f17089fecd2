package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up when Load is given a directory.
const DefaultFileName = "hearth.yaml"

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Load reads and parses configuration from a file or a directory holding
// hearth.yaml. Files listed under include are merged in order, later files
// taking precedence for non-zero values.
func Load(configPath string) (*Config, error) {
	absPath, err := resolveRoot(configPath)
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfigFile(absPath)
	if err != nil {
		return nil, err
	}
	cfg.SourceFiles = []string{absPath}

	if len(cfg.Include) > 0 {
		visited := map[string]bool{absPath: true}
		if err := loadIncludes(cfg, cfg.Include, filepath.Dir(absPath), visited); err != nil {
			return nil, err
		}
	}

	cfg = applyConfigDefaults(cfg)

	if err := verifyAllConfigHashes(cfg.SourceFiles); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.Hash, err = hashFiles(cfg.SourceFiles)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// DiscoverConfigPath finds the config file by checking standard locations.
// Priority order: $HEARTH_CONFIG, ./hearth.yaml, ~/.config/hearth/hearth.yaml, /etc/hearth/hearth.yaml
func DiscoverConfigPath() (string, error) {
	if p := os.Getenv("HEARTH_CONFIG"); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	candidates := []string{DefaultFileName}
	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homeDir, ".config", "hearth", DefaultFileName))
	}
	candidates = append(candidates, filepath.Join("/etc", "hearth", DefaultFileName))

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("no config found (checked: $HEARTH_CONFIG, %s)", strings.Join(candidates, ", "))
}

func resolveRoot(configPath string) (string, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	if info.IsDir() {
		absPath = filepath.Join(absPath, DefaultFileName)
		if _, err := os.Stat(absPath); err != nil {
			return "", fmt.Errorf("directory provided but %s not found: %s", DefaultFileName, absPath)
		}
	}
	return absPath, nil
}

// loadIncludes recursively loads and merges files from the include array.
// visited tracks loaded files to prevent cycles.
func loadIncludes(cfg *Config, includes []string, baseDir string, visited map[string]bool) error {
	for i, includePath := range includes {
		includePath = interpolateEnv(includePath)

		resolvedPath := includePath
		if !filepath.IsAbs(includePath) {
			resolvedPath = filepath.Join(baseDir, includePath)
		}

		absPath, err := filepath.Abs(resolvedPath)
		if err != nil {
			return fmt.Errorf("include[%d]: failed to resolve path %q: %w", i, includePath, err)
		}

		if visited[absPath] {
			return fmt.Errorf("include[%d]: circular dependency detected: %s", i, absPath)
		}

		if _, err := os.Stat(absPath); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("include[%d]: file not found: %s\n"+
					"Referenced from: %s\n"+
					"Hint: Check the path is correct and the file exists", i, absPath, baseDir)
			}
			return fmt.Errorf("include[%d]: failed to access file %s: %w", i, absPath, err)
		}

		visited[absPath] = true
		cfg.SourceFiles = append(cfg.SourceFiles, absPath)

		includedCfg, err := loadConfigFile(absPath)
		if err != nil {
			return fmt.Errorf("include[%d] (%s): %w", i, includePath, err)
		}

		mergeConfig(cfg, includedCfg)

		if len(includedCfg.Include) > 0 {
			if err := loadIncludes(cfg, includedCfg.Include, filepath.Dir(absPath), visited); err != nil {
				return err
			}
		}
	}
	return nil
}

// loadConfigFile loads and parses a single config file without defaults.
func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolateEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML in %s: %w", path, err)
	}
	return &cfg, nil
}

// mergeConfig merges src into dst, with src taking precedence for non-zero values.
func mergeConfig(dst, src *Config) {
	if src.Engine.Name != "" {
		dst.Engine.Name = src.Engine.Name
	}
	if src.Engine.TickRate != 0 {
		dst.Engine.TickRate = src.Engine.TickRate
	}
	if src.Engine.Workers != 0 {
		dst.Engine.Workers = src.Engine.Workers
	}
	if src.Engine.MaxTicks != 0 {
		dst.Engine.MaxTicks = src.Engine.MaxTicks
	}
	if src.Engine.LogLevel != "" {
		dst.Engine.LogLevel = src.Engine.LogLevel
	}
	if src.Engine.LogFormat != "" {
		dst.Engine.LogFormat = src.Engine.LogFormat
	}
	if src.Engine.TickEventEvery != 0 {
		dst.Engine.TickEventEvery = src.Engine.TickEventEvery
	}

	if src.State.Path != "" {
		dst.State.Path = src.State.Path
	}

	if src.API.Enabled {
		dst.API.Enabled = true
	}
	if src.API.Listen != "" {
		dst.API.Listen = src.API.Listen
	}
	if src.API.Auth.APIKey != "" {
		dst.API.Auth.APIKey = src.API.Auth.APIKey
	}
	dst.API.Auth.Tokens = append(dst.API.Auth.Tokens, src.API.Auth.Tokens...)

	if src.Profile.Enabled {
		dst.Profile.Enabled = true
	}
	if src.Profile.CSVEvery != 0 {
		dst.Profile.CSVEvery = src.Profile.CSVEvery
	}

	// Modules are additive, a later file replaces a module entry as a whole.
	if src.Modules != nil {
		if dst.Modules == nil {
			dst.Modules = make(map[string]ModuleConf)
		}
		for name, m := range src.Modules {
			dst.Modules[name] = m
		}
	}
}

func verifyAllConfigHashes(paths []string) error {
	// Group paths by directory to avoid loading the same checksums file multiple times
	dirToFiles := make(map[string][]string)
	for _, path := range paths {
		dir := filepath.Dir(path)
		dirToFiles[dir] = append(dirToFiles[dir], path)
	}

	for dir, files := range dirToFiles {
		checksums, err := LoadChecksums(dir)
		if err != nil {
			if errors.Is(err, ErrNoChecksums) {
				continue
			}
			return err
		}

		for _, path := range files {
			basename := filepath.Base(path)
			expectedHash, ok := checksums.Hashes[basename]
			if !ok {
				return fmt.Errorf("config file %s has no hash in checksums at %s\n"+
					"Run: hearth config hash --config %s", basename, dir, dir)
			}

			if err := VerifyFileHash(path, expectedHash); err != nil {
				return fmt.Errorf("config verification failed for %s: %w\n"+
					"If you edited this file intentionally, run: hearth config hash --config %s", path, err, dir)
			}
		}
	}
	return nil
}

// hashFiles digests the contents of paths in order.
func hashFiles(paths []string) (string, error) {
	h := blake3.New()
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", p, err)
		}
		_, _ = h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// applyConfigDefaults merges default values into config where not explicitly set.
func applyConfigDefaults(cfg *Config) *Config {
	defaults := Defaults()

	if cfg.Engine.Name == "" {
		cfg.Engine.Name = defaults.Engine.Name
	}
	if cfg.Engine.TickRate == 0 {
		cfg.Engine.TickRate = defaults.Engine.TickRate
	}
	if cfg.Engine.LogLevel == "" {
		cfg.Engine.LogLevel = defaults.Engine.LogLevel
	}
	if cfg.Engine.LogFormat == "" {
		cfg.Engine.LogFormat = defaults.Engine.LogFormat
	}

	if cfg.State.Path == "" {
		cfg.State.Path = defaults.State.Path
	}

	if cfg.API.Listen == "" {
		cfg.API.Listen = defaults.API.Listen
	}

	if cfg.Profile.CSVEvery == 0 {
		cfg.Profile.CSVEvery = defaults.Profile.CSVEvery
	}

	if cfg.Modules == nil {
		cfg.Modules = make(map[string]ModuleConf)
	}
	return cfg
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Left in place so validation can name the variable.
		return match
	})
}

// Validate reports every problem with cfg. Load fails on the first one.
func Validate(cfg *Config) []error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if cfg.Engine.TickRate < 0 {
		add("engine.tick_rate must not be negative")
	}
	if cfg.Engine.Workers < 0 {
		add("engine.workers must not be negative (0 means one per CPU)")
	}
	if !validLogLevels[cfg.Engine.LogLevel] {
		add("engine.log_level must be one of: debug, info, warn, error (got %q)", cfg.Engine.LogLevel)
	}
	if cfg.Engine.LogFormat != "json" && cfg.Engine.LogFormat != "text" {
		add("engine.log_format must be json or text (got %q)", cfg.Engine.LogFormat)
	}

	if cfg.State.Path == "" {
		add("state.path is required")
	}

	if cfg.API.Enabled {
		if cfg.API.Listen == "" {
			add("api.listen is required when api is enabled")
		}
		if name, ok := unresolvedVar(cfg.API.Auth.APIKey); ok {
			add("api.auth.api_key: environment variable ${%s} is not set", name)
		}
		if cfg.API.Auth.APIKey == "" && len(cfg.API.Auth.Tokens) == 0 {
			add("api.auth: api_key or tokens required when api is enabled")
		}
		for i, tok := range cfg.API.Auth.Tokens {
			if tok.Token == "" {
				add("api.auth.tokens[%d].token is required", i)
				continue
			}
			if name, ok := unresolvedVar(tok.Token); ok {
				add("api.auth.tokens[%d].token: environment variable ${%s} is not set", i, name)
			}
			if len(tok.Scopes) == 0 {
				add("api.auth.tokens[%d].scopes must be non-empty", i)
			}
		}
	}

	for name, m := range cfg.Modules {
		if strings.TrimSpace(name) == "" {
			add("modules: empty module name")
			continue
		}
		if err := checkUnresolvedEnvVars(m.Options, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func validate(cfg *Config) error {
	if errs := Validate(cfg); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func unresolvedVar(s string) (string, bool) {
	m := envVarPattern.FindStringSubmatch(s)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// checkUnresolvedEnvVars recursively checks for ${VAR} placeholders in option values.
func checkUnresolvedEnvVars(data map[string]any, module string) error {
	for key, value := range data {
		switch v := value.(type) {
		case string:
			if name, ok := unresolvedVar(v); ok {
				return fmt.Errorf("module %q: environment variable ${%s} is not set (options.%s)", module, name, key)
			}
		case map[string]any:
			if err := checkUnresolvedEnvVars(v, module); err != nil {
				return err
			}
		}
	}
	return nil
}

func dirOf(path string) string {
	if path == "" {
		return "."
	}
	return filepath.Dir(path)
}
