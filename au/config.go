// Package au describes archival units: the per-site parameter set a plugin is
// instantiated with, and the printf-style templates expanded against it.
package au

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Well-known AU parameter names.
const (
	ParamBaseURL     = "base_url"
	ParamBaseURL2    = "base_url2"
	ParamYear        = "year"
	ParamVolumeName  = "volume_name"
	ParamVolume      = "volume"
	ParamIssue       = "issue"
	ParamJournalID   = "journal_id"
	ParamJournalAbbr = "journal_abbr"
	ParamJournalISSN = "journal_issn"
	ParamBookISBN    = "book_isbn"
)

// Parameter errors.
var (
	ErrMissingParam = errors.New("missing required parameter")
	ErrInvalidParam = errors.New("invalid parameter value")
)

// ParamError reports a configuration problem with a single AU parameter.
type ParamError struct {
	Param  string
	Detail string
	Err    error
}

func (e *ParamError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %v: %s", e.Param, e.Err, e.Detail)
	}
	return fmt.Sprintf("%s: %v", e.Param, e.Err)
}

func (e *ParamError) Unwrap() error {
	return e.Err
}

// Config is the parameter set of one archival unit.
type Config struct {
	// Name is an optional human-readable AU name
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Plugin is the plugin ID this AU belongs to
	Plugin string `yaml:"plugin,omitempty" json:"plugin,omitempty"`

	// Params holds the named configuration values (base_url, year, ...)
	Params map[string]string `yaml:"params" json:"params"`
}

// NewConfig creates a Config holding a copy of params.
func NewConfig(params map[string]string) Config {
	c := Config{Params: make(map[string]string, len(params))}
	for k, v := range params {
		c.Params[k] = v
	}
	return c
}

// Get returns the value of a parameter. Empty values count as absent.
func (c Config) Get(key string) (string, bool) {
	v, ok := c.Params[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Require returns the value of a parameter or a *ParamError.
func (c Config) Require(key string) (string, error) {
	v, ok := c.Get(key)
	if !ok {
		return "", &ParamError{Param: key, Err: ErrMissingParam}
	}
	return v, nil
}

// Int returns an integer parameter.
func (c Config) Int(key string) (int, error) {
	v, err := c.Require(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, &ParamError{Param: key, Err: ErrInvalidParam, Detail: fmt.Sprintf("%q is not an integer", v)}
	}
	return n, nil
}

// URL parses a URL-valued parameter. The URL must be absolute.
func (c Config) URL(key string) (*url.URL, error) {
	v, err := c.Require(key)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(v)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &ParamError{Param: key, Err: ErrInvalidParam, Detail: fmt.Sprintf("%q is not an absolute URL", v)}
	}
	return u, nil
}

// BaseURL parses the base_url parameter.
func (c Config) BaseURL() (*url.URL, error) {
	return c.URL(ParamBaseURL)
}

// BaseHost returns the lowercased host of base_url, or "" when unavailable.
func (c Config) BaseHost() string {
	u, err := c.BaseURL()
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// With returns a copy of c with key set to value.
func (c Config) With(key, value string) Config {
	out := NewConfig(c.Params)
	out.Name = c.Name
	out.Plugin = c.Plugin
	out.Params[key] = value
	return out
}

// Keys returns the parameter names in sorted order.
func (c Config) Keys() []string {
	keys := make([]string, 0, len(c.Params))
	for k := range c.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the AU as "plugin&k1~v1&k2~v2" with keys sorted, the shape of
// an AU id. Values are query-escaped.
func (c Config) String() string {
	parts := make([]string, 0, len(c.Params))
	for _, k := range c.Keys() {
		parts = append(parts, k+"~"+url.QueryEscape(c.Params[k]))
	}
	return c.Plugin + "&" + strings.Join(parts, "&")
}

// ParseParams builds a Config from "key=value" pairs.
func ParseParams(pairs []string) (Config, error) {
	c := Config{Params: make(map[string]string, len(pairs))}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return Config{}, fmt.Errorf("invalid parameter %q, expected key=value", p)
		}
		c.Params[k] = strings.TrimSpace(v)
	}
	return c, nil
}

type configFile struct {
	AUs []Config `yaml:"aus"`
}

// LoadConfigs reads a YAML file holding a list of AU configurations under "aus".
func LoadConfigs(path string) ([]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading AU file: %w", err)
	}
	return ParseConfigs(data)
}

// ParseConfigs parses YAML AU configurations.
func ParseConfigs(data []byte) ([]Config, error) {
	var f configFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing AU YAML: %w", err)
	}
	for i := range f.AUs {
		if f.AUs[i].Params == nil {
			f.AUs[i].Params = map[string]string{}
		}
	}
	return f.AUs, nil
}
