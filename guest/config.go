package guest

import (
	"io"

	"github.com/tetratelabs/wazero"
)

// GuestDataDir is where the host data directory is mounted inside the guest.
const GuestDataDir = "/libpostal"

// Config holds configuration for loading a libpostal guest module.
type Config struct {
	// DataDir is the host directory holding libpostal's trained models. It is
	// mounted read-only at GuestDataDir. Empty means the guest's compiled-in
	// default, which only works when the guest embeds its own filesystem.
	DataDir string

	// Parser and LanguageClassifier select the optional model setups.
	// ParseAddress needs the parser; ClassifyLanguage, the duplicate checks
	// and near-dupe hashing need the classifier.
	Parser             bool
	LanguageClassifier bool

	// MemoryLimitPages sets the maximum guest memory in pages (64KB each).
	// 0 means the wazero default. The full libpostal models need roughly
	// 2GB (32768 pages).
	MemoryLimitPages uint32

	// CompilationCache lets several loads share compiled machine code.
	CompilationCache wazero.CompilationCache

	Stdout io.Writer
	Stderr io.Writer
}

// setupStep is one libpostal setup/teardown pair.
type setupStep struct {
	setup        string
	setupDatadir string
	teardown     string
}

var (
	stepCore = setupStep{
		setup:        "libpostal_setup",
		setupDatadir: "libpostal_setup_datadir",
		teardown:     "libpostal_teardown",
	}
	stepParser = setupStep{
		setup:        "libpostal_setup_parser",
		setupDatadir: "libpostal_setup_parser_datadir",
		teardown:     "libpostal_teardown_parser",
	}
	stepClassifier = setupStep{
		setup:        "libpostal_setup_language_classifier",
		setupDatadir: "libpostal_setup_language_classifier_datadir",
		teardown:     "libpostal_teardown_language_classifier",
	}
)

func (c Config) steps() []setupStep {
	steps := []setupStep{stepCore}
	if c.Parser {
		steps = append(steps, stepParser)
	}
	if c.LanguageClassifier {
		steps = append(steps, stepClassifier)
	}
	return steps
}

// requiredExports lists the functions a guest must export for cfg.
func requiredExports(cfg Config) []string {
	names := []string{exportMalloc, exportFree}
	for _, s := range cfg.steps() {
		if cfg.DataDir != "" {
			names = append(names, s.setupDatadir)
		} else {
			names = append(names, s.setup)
		}
		names = append(names, s.teardown)
	}
	return names
}
