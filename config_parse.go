package tracewire

import (
	"io"
	"io/ioutil"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/perimetric/tracewire/util"
)

// envPrefix is the prefix for environment overrides, e.g.
// TRACEWIRE_SAMPLE_RATE.
const envPrefix = "tracewire"

// ReadConfig unmarshals the config file and slurps in its data, applying
// environment overrides and defaults.
func ReadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "opening config file")
	}
	defer f.Close()
	return readConfig(f)
}

func readConfig(r io.Reader) (c Config, err error) {
	bts, err := ioutil.ReadAll(r)
	if err != nil {
		return c, errors.Wrap(err, "reading config")
	}
	err = yaml.Unmarshal(bts, &c)
	if err != nil {
		return c, errors.Wrap(err, "unmarshalling config")
	}

	err = envconfig.Process(envPrefix, &c)
	if err != nil {
		return c, errors.Wrap(err, "processing environment overrides")
	}

	c.applyDefaults()
	return c, nil
}

// DecodeConfigSection unpacks a generic map, such as one section of a
// host application's larger config file, into a Config. Environment
// overrides and defaults are applied the same way ReadConfig does.
func DecodeConfigSection(section map[string]interface{}) (Config, error) {
	c := Config{}
	err := util.DecodeConfig(envPrefix, section, &c)
	if err != nil {
		return c, errors.Wrap(err, "decoding config section")
	}
	c.applyDefaults()
	return c, nil
}
