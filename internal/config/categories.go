package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"fintrack/internal/core"
)

// categoriesFile is the on-disk shape of CATEGORIES_FILE:
//
//	expense: [Food, Transport]
//	income: [Salary]
type categoriesFile struct {
	Expense []string `yaml:"expense"`
	Income  []string `yaml:"income"`
}

// LoadBuiltins returns the built-in categories, read from path when set and
// falling back to the defaults otherwise. A type missing from the file keeps
// its default list.
func LoadBuiltins(path string) (core.Builtins, error) {
	builtins := core.DefaultBuiltins()
	if path == "" {
		return builtins, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read categories file: %w", err)
	}

	var f categoriesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse categories file: %w", err)
	}

	for typ, list := range map[core.TransactionType][]string{core.Expense: f.Expense, core.Income: f.Income} {
		if len(list) == 0 {
			continue
		}
		cleaned, err := cleanCategories(list)
		if err != nil {
			return nil, fmt.Errorf("%s categories: %w", typ, err)
		}
		builtins[typ] = cleaned
	}
	return builtins, nil
}

func cleanCategories(list []string) ([]string, error) {
	set := core.NewOrderedSet()
	for _, c := range list {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if c == core.CustomSentinel {
			return nil, fmt.Errorf("%q is reserved", c)
		}
		set.Append(c)
	}
	return set.Items(), nil
}
