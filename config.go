package canonize

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadOptions reads Options from a YAML file and validates them
func LoadOptions(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read options file")
	}

	opts := &Options{}
	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, errors.Wrap(err, "failed to parse options file")
	}

	if _, err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}
