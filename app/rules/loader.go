package rules

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Loader reads seed rule definitions from YAML files. Seed files are used to
// bootstrap the keyword_rules table on first start; after that the database
// is the source of truth.
type Loader struct {
	rulesDir string
}

func NewLoader(rulesDir string) *Loader {
	return &Loader{rulesDir: rulesDir}
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadAll loads every *.yml / *.yaml file from the rules directory. A missing
// directory yields an empty result, not an error. Rules without an explicit
// id get sequential ids in file order so priority tie-breaks stay stable.
func (l *Loader) LoadAll() ([]Rule, error) {
	if _, err := os.Stat(l.rulesDir); os.IsNotExist(err) {
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(l.rulesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}
	yamlFiles, err := filepath.Glob(filepath.Join(l.rulesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YAML files: %w", err)
	}
	files = append(files, yamlFiles...)

	var all []Rule
	nextID := int64(1)
	for _, file := range files {
		rs, err := l.loadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}
		for i := range rs {
			if rs[i].ID == 0 {
				rs[i].ID = nextID
			}
			nextID = rs[i].ID + 1
		}
		all = append(all, rs...)
		slog.Debug("Rule file loaded", "file", file, "rules", len(rs))
	}

	return all, nil
}

func (l *Loader) loadFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i := range rf.Rules {
		l.setDefaults(&rf.Rules[i])
		if err := l.validate(rf.Rules[i], i); err != nil {
			return nil, err
		}
	}

	return rf.Rules, nil
}

func (l *Loader) setDefaults(r *Rule) {
	if r.MatchType == "" {
		r.MatchType = MatchAny
	}
	if r.Priority == 0 {
		r.Priority = 5
	}
	if len(r.Platforms) == 0 {
		r.Platforms = []string{"twitter", "reddit", "telegram"}
	}
}

func (l *Loader) validate(r Rule, index int) error {
	if r.Name == "" {
		return fmt.Errorf("rule at index %d: name is required", index)
	}
	if len(r.Keywords) == 0 {
		return fmt.Errorf("rule %q: at least one keyword is required", r.Name)
	}
	if !ValidMatchType(r.MatchType) {
		return fmt.Errorf("rule %q: invalid match type %q", r.Name, r.MatchType)
	}
	if r.Priority < 0 {
		return fmt.Errorf("rule %q: priority must be non-negative", r.Name)
	}
	return nil
}
