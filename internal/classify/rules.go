// Package classify maps category codes to DRE buckets by prefix.
package classify

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// Bucket is a coarse DRE classification.
type Bucket string

const (
	BucketRevenue      Bucket = "revenue"
	BucketCost         Bucket = "cost"
	BucketExpense      Bucket = "expense"
	BucketUnclassified Bucket = "unclassified"
)

// Valid reports whether b is a known bucket.
func (b Bucket) Valid() bool {
	switch b {
	case BucketRevenue, BucketCost, BucketExpense, BucketUnclassified:
		return true
	}
	return false
}

// Rule assigns a bucket to every code starting with Prefix.
type Rule struct {
	Prefix string `yaml:"prefix"`
	Bucket Bucket `yaml:"bucket"`
}

// Rules is an ordered prefix table. The first matching rule wins.
type Rules struct {
	rules []Rule
}

// DefaultRules returns the chart-of-accounts prefixes: 1. is revenue,
// 2.1. cost of sales, 2.2. and 2.3. administrative and operating expense.
func DefaultRules() *Rules {
	return &Rules{rules: []Rule{
		{Prefix: "1.", Bucket: BucketRevenue},
		{Prefix: "2.1.", Bucket: BucketCost},
		{Prefix: "2.2.", Bucket: BucketExpense},
		{Prefix: "2.3.", Bucket: BucketExpense},
	}}
}

// NewRules validates and wraps a prefix table.
func NewRules(rules []Rule) (*Rules, error) {
	out := make([]Rule, 0, len(rules))
	for i, r := range rules {
		if r.Prefix == "" {
			return nil, fmt.Errorf("rule %d: empty prefix", i+1)
		}
		if !r.Bucket.Valid() {
			return nil, fmt.Errorf("rule %d: unknown bucket %q", i+1, r.Bucket)
		}
		out = append(out, r)
	}
	return &Rules{rules: out}, nil
}

// Classify returns the bucket of a category code. Codes matching no rule
// are unclassified and contribute to no DRE line.
func (r *Rules) Classify(code string) Bucket {
	for _, rule := range r.rules {
		if strings.HasPrefix(code, rule.Prefix) {
			return rule.Bucket
		}
	}
	return BucketUnclassified
}

// List returns a copy of the rule table.
func (r *Rules) List() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

var defaultRules = DefaultRules()

// Classify classifies code with the default rules.
func Classify(code string) Bucket {
	return defaultRules.Classify(code)
}

// IsRevenueCode reports whether code belongs to the revenue branch of the
// chart of accounts.
func IsRevenueCode(code string) bool {
	return strings.HasPrefix(code, "1.")
}

// IsOutflowCode reports whether code belongs to the outflow branch (2.x).
func IsOutflowCode(code string) bool {
	return strings.HasPrefix(code, "2.")
}

// File is the YAML layout of a classification file. Empty sections keep
// the defaults.
type File struct {
	Rules  []Rule      `yaml:"rules"`
	Groups []GroupRule `yaml:"groups"`
}

// LoadFile reads rules and groups from a YAML file.
func LoadFile(path string) (*Rules, *Groups, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("LoadFile: reading %s: %w", path, err)
	}
	return ParseFile(data)
}

// ParseFile parses the YAML layout of LoadFile.
func ParseFile(data []byte) (*Rules, *Groups, error) {
	var f File
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, nil, fmt.Errorf("ParseFile: %w", err)
	}

	rules := DefaultRules()
	if len(f.Rules) > 0 {
		r, err := NewRules(f.Rules)
		if err != nil {
			return nil, nil, fmt.Errorf("ParseFile: %w", err)
		}
		rules = r
	}

	groups := DefaultGroups()
	if len(f.Groups) > 0 {
		g, err := NewGroups(f.Groups)
		if err != nil {
			return nil, nil, fmt.Errorf("ParseFile: %w", err)
		}
		groups = g
	}

	return rules, groups, nil
}
