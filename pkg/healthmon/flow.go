package healthmon

import "fmt"

// Conf loads the YAML config at path and builds a Runtime from it. An
// empty path reads defaults and the environment only.
func Conf(path string, opts ...RuntimeOption) (*Runtime, error) {
	var (
		cfg *Config
		err error
	)
	if path == "" {
		cfg, err = LoadConfigFromEnv()
	} else {
		cfg, err = LoadConfig(path)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewRuntime(cfg, opts...)
}
