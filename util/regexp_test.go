package util_test

import (
	"encoding/json"
	"regexp"
	"testing"

	"github.com/kelseyhightower/envconfig"
	"github.com/perimetric/tracewire/util"
	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

type regexpYamlStruct struct {
	Regexp util.Regexp `yaml:"regexp"`
}

func TestRegexpMarshalJSON(t *testing.T) {
	marshaled, err := json.Marshal(util.Regexp{
		Value: regexp.MustCompile("^foo$"),
	})
	assert.Nil(t, err)
	assert.Equal(t, "\"^foo$\"", string(marshaled))
}

func TestRegexpMarshalYAML(t *testing.T) {
	marshaled, err := yaml.Marshal(util.Regexp{
		Value: regexp.MustCompile("^foo$"),
	})
	assert.Nil(t, err)
	assert.Equal(t, "^foo$\n", string(marshaled))
}

func TestRegexpUnmarshalYAML(t *testing.T) {
	data := regexpYamlStruct{}
	err := yaml.Unmarshal([]byte(`regexp: ^foo$`), &data)
	assert.Nil(t, err)
	assert.True(t, data.Regexp.MatchString("foo"))
	assert.False(t, data.Regexp.MatchString("bar"))
}

func TestRegexpUnmarshalInvalid(t *testing.T) {
	data := regexpYamlStruct{}
	err := yaml.Unmarshal([]byte(`regexp: (`), &data)
	assert.Error(t, err)
}

func TestRegexpDecode(t *testing.T) {
	t.Setenv("REGEXP_TEST_REGEXP", "^foo$")

	data := regexpYamlStruct{}
	err := envconfig.Process("REGEXP_TEST", &data)
	assert.Nil(t, err)
	assert.True(t, data.Regexp.MatchString("foo"))
}

func TestRegexpZeroValue(t *testing.T) {
	zero := util.Regexp{}
	assert.False(t, zero.IsSet())
	assert.False(t, zero.MatchString("anything"))
}
