package rules

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// FileNames lists the configuration files Discover looks for, in order.
var FileNames = []string{"relevo.yml", "relevo.yaml", "relevo.json"}

// ConfigError reports an invalid update configuration.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config: " + e.Msg
	}
	return fmt.Sprintf("config %s: %s", e.Field, e.Msg)
}

// rawBytesProvider implements koanf provider for raw bytes
type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("rawBytesProvider does not support Read")
}

// Load reads a configuration file. The format follows the file extension:
// .json is JSON, everything else parses as YAML.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	cfg, err := fromKoanf(k)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseBytes parses configuration bytes in the named format ("yaml" or
// "json").
func ParseBytes(data []byte, format string) (*Config, error) {
	k := koanf.New(".")
	parser := koanf.Parser(kyaml.Parser())
	if format == "json" {
		parser = kjson.Parser()
	}
	if err := k.Load(&rawBytesProvider{bytes: data}, parser); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return fromKoanf(k)
}

// Discover finds the configuration file in dir, trying each of FileNames.
// When none exists the zero-configuration default applies and the returned
// path is empty.
func Discover(dir string) (*Config, string, error) {
	for _, filename := range FileNames {
		path := filepath.Join(dir, filename)
		if _, err := os.Stat(path); err == nil {
			cfg, err := Load(path)
			if err != nil {
				return nil, path, err
			}
			return cfg, path, nil
		}
	}
	return Default(), "", nil
}

func parserFor(path string) koanf.Parser {
	if filepath.Ext(path) == ".json" {
		return kjson.Parser()
	}
	return kyaml.Parser()
}

// ruleDefaults are the per-rule settings a rule inherits unless it overrides
// them, built from the top-level config keys.
type ruleDefaults struct {
	allow AllowSet
	skip  bool
}

func fromKoanf(k *koanf.Koanf) (*Config, error) {
	cfg := &Config{MaxRulesApplied: BoundedLimit(1)}

	if k.Exists("maxRulesApplied") {
		limit, err := parseLimit(k.Get("maxRulesApplied"), "maxRulesApplied")
		if err != nil {
			return nil, err
		}
		cfg.MaxRulesApplied = limit
	}

	defaults := ruleDefaults{allow: AllowAll()}
	if k.Exists("allow") {
		allow, err := allowFromKoanf(k, "allow", AllowAll())
		if err != nil {
			return nil, err
		}
		defaults.allow = allow
	}
	if k.Exists("skipManifestOnlyChanges") {
		defaults.skip = k.Bool("skipManifestOnlyChanges")
	}

	// A missing (or null) rules key means the implicit catch-all rule; an
	// explicitly empty list means no rule at all.
	if !k.Exists("rules") || k.Get("rules") == nil {
		rule := Default().Rules[0]
		rule.Allow = defaults.allow
		rule.SkipManifestOnlyChanges = defaults.skip
		cfg.Rules = []*Rule{rule}
		return cfg, nil
	}

	rawList, ok := k.Get("rules").([]interface{})
	if !ok {
		return nil, &ConfigError{Field: "rules", Msg: "must be a list of rule mappings"}
	}
	subs := k.Slices("rules")
	if len(subs) != len(rawList) {
		return nil, &ConfigError{Field: "rules", Msg: "each rule must be a mapping"}
	}

	for i, sub := range subs {
		rule, err := ruleFromKoanf(sub, i, defaults)
		if err != nil {
			return nil, err
		}
		cfg.Rules = append(cfg.Rules, rule)
	}

	return cfg, nil
}

func ruleFromKoanf(sub *koanf.Koanf, idx int, defaults ruleDefaults) (*Rule, error) {
	field := func(name string) string { return fmt.Sprintf("rules[%d].%s", idx, name) }

	pattern := strings.TrimSpace(sub.String("pattern"))
	if pattern == "" {
		return nil, &ConfigError{Field: field("pattern"), Msg: "pattern is required"}
	}

	rule, err := NewRule(pattern)
	if err != nil {
		return nil, &ConfigError{Field: field("pattern"), Msg: err.Error()}
	}
	rule.Allow = defaults.allow
	rule.SkipManifestOnlyChanges = defaults.skip

	if sub.Exists("maxPackageUpdates") {
		limit, err := parseLimit(sub.Get("maxPackageUpdates"), field("maxPackageUpdates"))
		if err != nil {
			return nil, err
		}
		rule.MaxPackageUpdates = limit
	}

	if sub.Exists("preserveSemVerRange") {
		preserve := sub.Bool("preserveSemVerRange")
		rule.PreserveSemVerRange = &preserve
	}
	if sub.Exists("skipManifestOnlyChanges") {
		rule.SkipManifestOnlyChanges = sub.Bool("skipManifestOnlyChanges")
	}

	if sub.Exists("allow") {
		allow, err := allowFromKoanf(sub, field("allow"), defaults.allow)
		if err != nil {
			return nil, err
		}
		rule.Allow = allow
	}

	return rule, nil
}

// allowFromKoanf merges an allow block over its defaults. Keys left out keep
// the default; a result allowing nothing is rejected.
func allowFromKoanf(k *koanf.Koanf, field string, base AllowSet) (AllowSet, error) {
	prefix := "allow"
	allow := AllowSet{
		Major: boolOr(k, prefix+".major", base.Major),
		Minor: boolOr(k, prefix+".minor", base.Minor),
		Patch: boolOr(k, prefix+".patch", base.Patch),
	}
	if allow.Empty() {
		return AllowSet{}, &ConfigError{Field: field, Msg: "selects zero applicable update categories"}
	}
	return allow, nil
}

func boolOr(k *koanf.Koanf, path string, def bool) bool {
	if !k.Exists(path) {
		return def
	}
	return k.Bool(path)
}

// parseLimit interprets the integer-or-false union both caps use.
func parseLimit(v interface{}, field string) (Limit, error) {
	invalid := &ConfigError{Field: field, Msg: "must be a positive integer or false"}

	var count int
	switch n := v.(type) {
	case bool:
		if n {
			return Limit{}, &ConfigError{Field: field, Msg: "true is not a valid cap, use a count or false"}
		}
		return UnboundedLimit(), nil
	case int:
		count = n
	case int64:
		count = int(n)
	case float64:
		if n != math.Trunc(n) {
			return Limit{}, invalid
		}
		count = int(n)
	default:
		return Limit{}, invalid
	}

	if count <= 0 {
		return Limit{}, invalid
	}
	return BoundedLimit(count), nil
}
