package libpostal

import "os"

// DataDirEnv names the environment variable consulted when Config.DataDir
// is empty.
const DataDirEnv = "LIBPOSTAL_DATA_DIR"

// Config selects which libpostal models to load.
type Config struct {
	// DataDir is the directory holding libpostal's trained models. Empty
	// falls back to $LIBPOSTAL_DATA_DIR and then to the directory compiled
	// into libpostal.
	DataDir string

	Parser             bool
	LanguageClassifier bool
}

func (c Config) dataDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return os.Getenv(DataDirEnv)
}
