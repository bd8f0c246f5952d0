package publisher

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile = "templates.yaml"
	DefaultOutputFile = "templates-output.json"

	// ServerTokenEnv is consulted after every configuration key.
	ServerTokenEnv = "POSTMARK_SERVER_TOKEN"
)

// Fallback keys for the server token, in lookup order.
var serverTokenKeys = []string{
	"secrets.serverToken",
	"secret.postmark.server_token",
}

// Options are the per-task options of the publish task.
type Options struct {
	ServerToken string `json:"serverToken,omitempty" yaml:"serverToken,omitempty"`
}

type OutputOptions struct {
	Filename string `json:"filename,omitempty" yaml:"filename,omitempty"`
}

type Config struct {
	Options   Options       `json:"options" yaml:"options"`
	Templates Targets       `json:"templates" yaml:"templates"`
	Output    OutputOptions `json:"output" yaml:"output"`

	// Dir is the directory of the config file; template sources are
	// resolved against it.
	Dir string `json:"-" yaml:"-"`

	// Store holds the whole document for key lookups.
	Store Store `json:"-" yaml:"-"`
}

func (c *Config) OutputFilename() string {
	if c.Output.Filename == "" {
		return DefaultOutputFile
	}

	return c.Output.Filename
}

// LoadConfig reads a YAML or JSON (comments allowed) config file.
func LoadConfig(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, NewIOError(path, err)
	}

	cfg, err := ParseConfig(data, filepath.Ext(path))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}

	cfg.Dir = filepath.Dir(path)

	return cfg, nil
}

// ParseConfig decodes data according to ext (".json", ".jsonc", anything
// else is YAML).
func ParseConfig(data []byte, ext string) (*Config, error) {
	cfg := &Config{}
	store := map[string]interface{}{}

	switch strings.ToLower(ext) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)

		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}

		if err := json.Unmarshal(data, &store); err != nil {
			return nil, err
		}

	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}

		if err := yaml.Unmarshal(data, &store); err != nil {
			return nil, err
		}
	}

	cfg.Store = Store(store)

	return cfg, nil
}

// Store is a generic configuration tree.
type Store map[string]interface{}

// Lookup walks a dotted key such as "secret.postmark.server_token" and
// returns the string found there.
func (s Store) Lookup(key string) (string, bool) {
	var node interface{} = map[string]interface{}(s)

	for _, part := range strings.Split(key, ".") {
		switch m := node.(type) {
		case map[string]interface{}:
			node = m[part]
		case Store:
			node = m[part]
		case map[interface{}]interface{}:
			node = m[part]
		default:
			return "", false
		}

		if node == nil {
			return "", false
		}
	}

	switch v := node.(type) {
	case string:
		return v, v != ""
	case fmt.Stringer:
		return v.String(), v.String() != ""
	default:
		return "", false
	}
}

// ResolveServerToken picks the credential from the task options, then the
// fallback keys in store, then the environment.
func ResolveServerToken(opts Options, store Store) (string, error) {
	if opts.ServerToken != "" {
		return opts.ServerToken, nil
	}

	for _, key := range serverTokenKeys {
		if token, ok := store.Lookup(key); ok {
			return token, nil
		}
	}

	if token := os.Getenv(ServerTokenEnv); token != "" {
		return token, nil
	}

	return "", NewValidationError("serverToken")
}
