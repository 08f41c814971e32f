package matcher_test

import (
	"testing"

	"github.com/kelseyhightower/envconfig"
	"github.com/perimetric/tracewire/util/matcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type config struct {
	Origins []matcher.URLMatcher `yaml:"origins"`
}

func TestMatchAny(t *testing.T) {
	config := config{}
	err := yaml.Unmarshal([]byte(`---
origins:
  - kind: any
`), &config)

	require.Nil(t, err)
	assert.True(t, matcher.Match(config.Origins, "/fetch-partners"))
	assert.True(t, matcher.Match(config.Origins, "https://anything.example.com"))
}

func TestMatchExact(t *testing.T) {
	config := config{}
	err := yaml.Unmarshal([]byte(`---
origins:
  - kind: exact
    value: /fetch-partners
`), &config)

	require.Nil(t, err)
	assert.True(t, matcher.Match(config.Origins, "/fetch-partners"))
	assert.False(t, matcher.Match(config.Origins, "/fetch-partners/1"))
	assert.False(t, matcher.Match(config.Origins, "/fetch"))
}

func TestMatchContains(t *testing.T) {
	config := config{}
	err := yaml.Unmarshal([]byte(`---
origins:
  - kind: contains
    value: localhost
`), &config)

	require.Nil(t, err)
	assert.True(t, matcher.Match(config.Origins, "http://localhost:3000/x"))
	assert.True(t, matcher.Match(config.Origins, "localhost"))
	assert.False(t, matcher.Match(config.Origins, "https://example.com/x"))
}

func TestMatchPrefix(t *testing.T) {
	config := config{}
	err := yaml.Unmarshal([]byte(`---
origins:
  - kind: prefix
    value: /api/
`), &config)

	require.Nil(t, err)
	assert.True(t, matcher.Match(config.Origins, "/api/partners"))
	assert.False(t, matcher.Match(config.Origins, "/apiary"))
	assert.False(t, matcher.Match(config.Origins, "https://example.com/api/"))
}

func TestMatchRegex(t *testing.T) {
	config := config{}
	err := yaml.Unmarshal([]byte(`---
origins:
  - kind: regex
    value: "^/"
`), &config)

	require.Nil(t, err)
	assert.True(t, matcher.Match(config.Origins, "/fetch-partners"))
	assert.False(t, matcher.Match(config.Origins, "https://example.com/"))
}

func TestMatchOrderedList(t *testing.T) {
	config := config{}
	err := yaml.Unmarshal([]byte(`---
origins:
  - kind: exact
    value: /a
  - kind: prefix
    value: /b
`), &config)

	require.Nil(t, err)
	assert.True(t, matcher.Match(config.Origins, "/a"))
	assert.True(t, matcher.Match(config.Origins, "/b/c"))
	assert.False(t, matcher.Match(config.Origins, "/c"))
}

func TestUnmarshalInvalidKind(t *testing.T) {
	config := config{}
	err := yaml.Unmarshal([]byte(`---
origins:
  - kind: glob
    value: "*"
`), &config)

	assert.Error(t, err)
}

func TestUnmarshalInvalidRegex(t *testing.T) {
	config := config{}
	err := yaml.Unmarshal([]byte(`---
origins:
  - kind: regex
    value: "("
`), &config)

	assert.Error(t, err)
}

func TestCreateURLMatcher(t *testing.T) {
	m, err := matcher.CreateURLMatcher(matcher.URLMatcherConfig{
		Kind:  "prefix",
		Value: "/internal",
	})
	require.Nil(t, err)
	assert.True(t, m.Match("/internal/users"))
	assert.False(t, m.Match("/external"))

	_, err = matcher.CreateURLMatcher(matcher.URLMatcherConfig{Kind: "bogus"})
	assert.Error(t, err)
}

func TestDecodeFromEnvironment(t *testing.T) {
	t.Setenv("MATCHER_TEST_ORIGINS", "contains:localhost,regex:^/")

	data := struct {
		Origins []matcher.URLMatcher `envconfig:"ORIGINS"`
	}{}
	err := envconfig.Process("MATCHER_TEST", &data)
	require.Nil(t, err)
	require.Len(t, data.Origins, 2)
	assert.True(t, matcher.Match(data.Origins, "http://localhost/x"))
	assert.True(t, matcher.Match(data.Origins, "/relative"))
	assert.False(t, matcher.Match(data.Origins, "https://example.com"))
}

func TestZeroValueMatchesNothing(t *testing.T) {
	zero := matcher.URLMatcher{}
	assert.False(t, zero.Match("/anything"))
}
