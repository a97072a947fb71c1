package kvfs

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Config is the option bag accepted by Write, Update and CreateDir. The only
// key that is acted upon is "visibility"; anything else is ignored.
type Config map[string]interface{}

// writeOptions is the decoded form of a Config.
type writeOptions struct {
	Visibility string `mapstructure:"visibility"`
}

// visibility returns the requested visibility, if any.
func (o writeOptions) visibility() (Visibility, bool, error) {
	if o.Visibility == "" {
		return "", false, nil
	}
	v, err := ParseVisibility(o.Visibility)
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func decodeConfig(cfg Config) (writeOptions, error) {
	var opts writeOptions
	if len(cfg) == 0 {
		return opts, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return opts, err
	}
	if err := decoder.Decode(map[string]interface{}(cfg)); err != nil {
		return opts, fmt.Errorf("invalid config: %w", err)
	}
	return opts, nil
}

// configVisibility decodes cfg and validates its visibility option.
func configVisibility(op, p string, cfg Config) (Visibility, bool, error) {
	opts, err := decodeConfig(cfg)
	if err != nil {
		return "", false, newError(op, p, ErrInvalidArgument, err)
	}
	v, ok, err := opts.visibility()
	if err != nil {
		return "", false, newError(op, p, ErrInvalidArgument, err)
	}
	return v, ok, nil
}
