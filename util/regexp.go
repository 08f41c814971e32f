// Package util holds small configuration plumbing shared by the rest of
// the module: regexp config values and generic config-section decoding.
package util

import (
	"fmt"
	"regexp"
)

// Regexp is a regular expression that can live in a YAML config file, a
// JSON document, or an environment variable. The zero value is unset.
type Regexp struct {
	Value *regexp.Regexp
}

// IsSet reports whether a pattern was configured.
func (r Regexp) IsSet() bool {
	return r.Value != nil
}

// MatchString reports whether the pattern matches s. An unset Regexp
// matches nothing.
func (r Regexp) MatchString(s string) bool {
	return r.Value != nil && r.Value.MatchString(s)
}

// Decode parses the pattern from its environment-variable form. Used by
// envconfig.
func (r *Regexp) Decode(value string) error {
	var err error
	r.Value, err = regexp.Compile(value)
	return err
}

func (r Regexp) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", r.Value.String())), nil
}

func (r Regexp) MarshalYAML() (interface{}, error) {
	return r.Value.String(), nil
}

func (r *Regexp) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var value string
	err := unmarshal(&value)
	if err != nil {
		return err
	}
	r.Value, err = regexp.Compile(value)
	return err
}
