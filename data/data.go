// Package data installs libpostal's trained models.
//
// An Installer owns a root directory laid out as:
//
//	<root>/datadir/            the data directory handed to libpostal
//	<root>/datadir/data_version
//	<root>/datadir.backup/     the previous install, kept on version change
//	<root>/lock                serializes installs across processes
//
// The release archives are streamed from the libpostal GitHub releases and
// unpacked in place. The version marker is written last, so an interrupted
// install is redone on the next Ensure.
package data

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/postal/errors"
)

const (
	DefaultBaseURL = "https://github.com/openvenues/libpostal/releases/download"
	DefaultVersion = "v1.0.0"

	// VersionFile records the installed release inside the data directory.
	VersionFile = "data_version"
)

// DefaultArchives returns the release assets that make up a complete data
// directory.
func DefaultArchives() []string {
	return []string{
		"language_classifier.tar.gz",
		"libpostal_data.tar.gz",
		"parser.tar.gz",
	}
}

// DefaultRoot returns the per-user directory installs go to by default.
func DefaultRoot() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", errors.Wrap(errors.PhaseSetup, errors.KindSetupFailed, err, "locate user cache directory")
	}
	return filepath.Join(dir, "postal"), nil
}

// installMu serializes installs within the process; the lock file does the
// same across processes where the platform supports it.
var installMu sync.Mutex

// Installer downloads one libpostal data release into a root directory.
type Installer struct {
	root     string
	baseURL  string
	version  string
	archives []string
	client   *http.Client
	logger   *zap.Logger
}

// Option configures an Installer.
type Option func(*Installer)

// WithBaseURL sets the release download prefix. Archives are fetched from
// <base>/<version>/<archive>.
func WithBaseURL(u string) Option {
	return func(i *Installer) {
		if u != "" {
			i.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithVersion(v string) Option {
	return func(i *Installer) {
		if v != "" {
			i.version = v
		}
	}
}

// WithArchives replaces DefaultArchives.
func WithArchives(names ...string) Option {
	return func(i *Installer) {
		i.archives = names
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(i *Installer) {
		if c != nil {
			i.client = c
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(i *Installer) {
		if l != nil {
			i.logger = l
		}
	}
}

// New returns an Installer rooted at root.
func New(root string, opts ...Option) *Installer {
	i := &Installer{
		root:     root,
		baseURL:  DefaultBaseURL,
		version:  DefaultVersion,
		archives: DefaultArchives(),
		client:   http.DefaultClient,
		logger:   Logger(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Dir is the data directory to hand to libpostal.
func (i *Installer) Dir() string {
	return filepath.Join(i.root, "datadir")
}

// BackupDir holds the install replaced by the last version change.
func (i *Installer) BackupDir() string {
	return filepath.Join(i.root, "datadir.backup")
}

// Version is the release this installer installs.
func (i *Installer) Version() string {
	return i.version
}

// Installed returns the release recorded in the data directory, or "" when
// nothing has been installed completely.
func (i *Installer) Installed() (string, error) {
	b, err := os.ReadFile(filepath.Join(i.Dir(), VersionFile))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(errors.PhaseSetup, errors.KindSetupFailed, err, "read data version")
	}
	return strings.TrimSpace(string(b)), nil
}

// Ensure installs the configured release unless it is already present and
// returns the data directory. A different installed release is moved to
// BackupDir first.
func (i *Installer) Ensure(ctx context.Context) (string, error) {
	installMu.Lock()
	defer installMu.Unlock()

	if err := os.MkdirAll(i.root, 0o755); err != nil {
		return "", errors.Wrap(errors.PhaseSetup, errors.KindSetupFailed, err, "create data root")
	}
	unlock, err := lockFile(ctx, filepath.Join(i.root, "lock"))
	if err != nil {
		return "", err
	}
	defer unlock()

	dir := i.Dir()
	installed, err := i.Installed()
	if err != nil {
		return "", err
	}
	if installed == i.version {
		i.logger.Debug("libpostal data up to date",
			zap.String("dir", dir),
			zap.String("version", installed))
		return dir, nil
	}
	if installed != "" {
		i.logger.Info("replacing libpostal data",
			zap.String("installed", installed),
			zap.String("version", i.version))
		if err := i.backup(); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(errors.PhaseSetup, errors.KindSetupFailed, err, "create data directory")
	}
	for _, name := range i.archives {
		if err := i.fetch(ctx, name, dir); err != nil {
			return "", err
		}
	}
	if err := os.WriteFile(filepath.Join(dir, VersionFile), []byte(i.version), 0o644); err != nil {
		return "", errors.Wrap(errors.PhaseSetup, errors.KindSetupFailed, err, "write data version")
	}
	i.logger.Info("libpostal data installed",
		zap.String("dir", dir),
		zap.String("version", i.version))
	return dir, nil
}

// backup moves the data directory to BackupDir, replacing any older backup.
func (i *Installer) backup() error {
	temp := filepath.Join(i.root, "datadir.backup-temp")
	if err := os.RemoveAll(temp); err != nil {
		return errors.Wrap(errors.PhaseSetup, errors.KindSetupFailed, err, "clear backup staging")
	}
	if err := os.Rename(i.Dir(), temp); err != nil {
		return errors.Wrap(errors.PhaseSetup, errors.KindSetupFailed, err, "stage data directory backup")
	}
	if err := os.RemoveAll(i.BackupDir()); err != nil {
		return errors.Wrap(errors.PhaseSetup, errors.KindSetupFailed, err, "remove old backup")
	}
	if err := os.Rename(temp, i.BackupDir()); err != nil {
		return errors.Wrap(errors.PhaseSetup, errors.KindSetupFailed, err, "move data directory to backup")
	}
	return nil
}

func (i *Installer) fetch(ctx context.Context, name, dir string) error {
	url := i.baseURL + "/" + i.version + "/" + name
	fail := func(err error, detail string, args ...any) error {
		return errors.New(errors.PhaseSetup, errors.KindSetupFailed).
			Entry(name).
			Cause(err).
			Detail(detail, args...).
			Build()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fail(err, "build request for %s", url)
	}
	i.logger.Info("downloading libpostal data", zap.String("url", url))
	resp, err := i.client.Do(req)
	if err != nil {
		return fail(err, "download %s", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fail(nil, "download %s: %s", url, resp.Status)
	}

	files, err := extractTarGz(resp.Body, dir)
	if err != nil {
		return fail(err, "unpack %s", name)
	}
	i.logger.Debug("unpacked archive", zap.String("archive", name), zap.Int("files", files))
	return nil
}
