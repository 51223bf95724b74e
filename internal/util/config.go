package util

import (
	mapstructure "github.com/go-viper/mapstructure/v2"
)

// DecodeConfig decodes a generic map (toml section, JSON body) into target
// using json tags. Duration strings such as "5m" and comma separated lists
// are converted on the way.
func DecodeConfig(source any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata: nil,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           target,
		TagName:          "json",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(source)
}
