// Package backup snapshots the platform's persistent state before a
// deployment touches anything. Every artifact is best-effort: a missing
// source is skipped silently, a failed copy is logged and the rest of the
// snapshot continues. Backups advise, they never block.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"stackctl/pkg/logging"
)

const subsystem = "Backup"

// Archive describes one completed snapshot.
type Archive struct {
	Dir       string   // Timestamped directory holding the artifacts
	Artifacts []string // Names of the artifacts actually written
}

// Manager snapshots the data store file, the documents directory, and the
// model artifacts directory into a timestamped archive directory.
type Manager struct {
	dataStore    string
	documentsDir string
	modelsDir    string
	backupsDir   string

	now func() time.Time // injectable for tests
}

// NewManager creates a Manager for the given source and destination paths.
func NewManager(dataStore, documentsDir, modelsDir, backupsDir string) *Manager {
	return &Manager{
		dataStore:    dataStore,
		documentsDir: documentsDir,
		modelsDir:    modelsDir,
		backupsDir:   backupsDir,
		now:          time.Now,
	}
}

// Snapshot creates a fresh timestamped archive directory and independently
// attempts each of the three artifacts. It fails only when the archive
// directory itself cannot be created.
func (m *Manager) Snapshot() (Archive, error) {
	stamp := m.now().Format("20060102-150405")
	dir := filepath.Join(m.backupsDir, stamp)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Archive{}, fmt.Errorf("creating backup directory %s: %w", dir, err)
	}

	archive := Archive{Dir: dir}

	if name, ok := m.copyDataStore(dir); ok {
		archive.Artifacts = append(archive.Artifacts, name)
	}
	if name, ok := m.archiveDir(dir, m.documentsDir, "documents.tar.gz"); ok {
		archive.Artifacts = append(archive.Artifacts, name)
	}
	if name, ok := m.archiveDir(dir, m.modelsDir, "ai-models.tar.gz"); ok {
		archive.Artifacts = append(archive.Artifacts, name)
	}

	logging.Info(subsystem, "snapshot %s complete with %d artifact(s)", stamp, len(archive.Artifacts))
	return archive, nil
}

func (m *Manager) copyDataStore(destDir string) (string, bool) {
	if _, err := os.Stat(m.dataStore); os.IsNotExist(err) {
		return "", false
	}
	name := filepath.Base(m.dataStore)
	if err := copyFile(m.dataStore, filepath.Join(destDir, name)); err != nil {
		logging.Warn(subsystem, "data store copy failed: %v", err)
		return "", false
	}
	return name, true
}

func (m *Manager) archiveDir(destDir, srcDir, name string) (string, bool) {
	if info, err := os.Stat(srcDir); err != nil || !info.IsDir() {
		return "", false
	}
	if err := tarGzDir(srcDir, filepath.Join(destDir, name)); err != nil {
		logging.Warn(subsystem, "archiving %s failed: %v", srcDir, err)
		return "", false
	}
	return name, true
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// tarGzDir writes a gzip-compressed tarball of srcDir. Entries are stored
// relative to srcDir's parent so the archive unpacks as one directory.
func tarGzDir(srcDir, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	defer gz.Close()

	tw := tar.NewWriter(gz)
	defer tw.Close()

	base := filepath.Dir(srcDir)
	return filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)

		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(tw, f)
		return err
	})
}
