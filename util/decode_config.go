package util

import (
	"fmt"
	"reflect"

	"github.com/kelseyhightower/envconfig"
	"github.com/mitchellh/mapstructure"
)

type stringUnmarshaler interface {
	Decode(value string) error
}

var stringUnmarshalerType = reflect.TypeOf((*stringUnmarshaler)(nil)).Elem()

// DecodeConfig wraps the mapstructure decoder to unpack a generic map
// into a typed config struct, then applies environment overrides with
// envconfig under the given prefix.
//
// Host applications usually embed this module's configuration as one
// untyped section of their own config file; this is the seam that turns
// that section into a Config without the host having to know its fields.
// Fields implementing Decode(string) (Regexp, URLMatcher, Rate) are
// handled through the same string form envconfig uses.
func DecodeConfig(name string, input interface{}, output interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			stringUnmarshalerDecode,
		),
		Result:  &output,
		TagName: "yaml",
	})
	if err != nil {
		return err
	}
	err = decoder.Decode(input)
	if err != nil {
		return err
	}
	return envconfig.Process(name, output)
}

// A mapstructure decode hook that routes string values through a field's
// own Decode method.
func stringUnmarshalerDecode(
	inputType reflect.Type, outputType reflect.Type, data interface{},
) (interface{}, error) {
	if !reflect.PtrTo(outputType).Implements(stringUnmarshalerType) {
		return data, nil
	}
	value, ok := data.(string)
	if !ok {
		return nil, fmt.Errorf("invalid type %v", inputType)
	}
	parsed, ok := reflect.New(outputType).Interface().(stringUnmarshaler)
	if !ok {
		return nil, fmt.Errorf("invalid output type %v", outputType)
	}
	err := parsed.Decode(value)
	if err != nil {
		return nil, err
	}
	return parsed, nil
}
