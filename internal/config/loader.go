package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/errdefs"
)

// EnvPrefix marks environment variables that override configuration.
const EnvPrefix = "TUTOR_"

const maxConfigFileSize = 1024 * 1024 // 1MB

//go:embed defaults.yaml
var defaultsYAML []byte

// nestedSections lists the subsections an environment variable can
// descend into. Everything after the deepest match is the field name, so
// TUTOR_VECTORSTORE_QDRANT_API_KEY maps to vectorstore.qdrant.api_key.
var nestedSections = map[string][]string{
	"logging":        {"output", "sampling", "redaction", "fields"},
	"logging.output": {"file"},
	"telemetry":      {"sampling", "metrics"},
	"embeddings":     {"cache"},
	"vectorstore":    {"chromem", "qdrant"},
	"store":          {"redis", "badger"},
	"archive":        {"redis", "badger"},
}

// DefaultPath returns ~/.config/tutor/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "tutor", "config.yaml"), nil
}

// Load reads configuration from the embedded defaults, the YAML file at
// path, and the environment, then validates it.
//
// An empty path loads the default file if it exists. An explicit path
// that does not exist is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	content, err := readConfigFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		content = nil
	case err != nil:
		return nil, fmt.Errorf("config file %s: %v: %w", path, err, errdefs.ErrConfiguration)
	}

	return load(content)
}

// load layers defaults, file content and the environment.
func load(content []byte) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaultsYAML), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if len(content) > 0 {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config: %v: %w", err, errdefs.ErrConfiguration)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %v: %w", err, errdefs.ErrConfiguration)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps TUTOR_SECTION_FIELD_NAME to section.field_name, descending
// into known subsections first.
func envKey(name string) string {
	name = strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	section, field, ok := strings.Cut(name, "_")
	if !ok {
		return name
	}

	path := section
	for {
		descended := false
		for _, sub := range nestedSections[path] {
			if rest, ok := strings.CutPrefix(field, sub+"_"); ok && rest != "" {
				path += "." + sub
				field = rest
				descended = true
				break
			}
		}
		if !descended {
			break
		}
	}
	return path + "." + field
}

// readConfigFile opens path once and checks size and permissions on the
// open descriptor.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	// The file may hold API keys.
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o022 != 0 {
		return nil, fmt.Errorf("insecure config file permissions: %v (must not be group or world writable)", info.Mode().Perm())
	}

	return io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
}
