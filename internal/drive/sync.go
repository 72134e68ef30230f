// backend-go/internal/drive/sync.go
package drive

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/retailinsight/backend-go/internal/dataset"
	"github.com/retailinsight/backend-go/pkg/logger"
)

// snapshotFiles are the three dataset CSVs a complete snapshot consists of.
var snapshotFiles = []string{
	dataset.SalesFile,
	dataset.ProductsFile,
	dataset.CalendarFile,
}

// Syncer downloads dataset snapshots from a shared Drive folder into the
// local data directory, where dataset.Load picks them up.
type Syncer struct {
	service    *Service
	folderPath string
	dataDir    string
	log        zerolog.Logger
}

func NewSyncer(service *Service, folderPath, dataDir string) *Syncer {
	return &Syncer{
		service:    service,
		folderPath: folderPath,
		dataDir:    dataDir,
		log:        logger.Component("drive"),
	}
}

// Sync downloads the three snapshot CSVs. All three must be present in the
// folder; a partial snapshot would desync sales from the calendar table.
func (s *Syncer) Sync() error {
	folderID, err := s.service.FindFolderByPath(s.folderPath)
	if err != nil {
		return fmt.Errorf("failed to resolve snapshot folder: %w", err)
	}

	files, err := s.service.ListFiles(folderID)
	if err != nil {
		return fmt.Errorf("failed to list snapshot folder: %w", err)
	}

	byName := make(map[string]*File, len(files))
	for _, f := range files {
		byName[f.Name] = f
	}

	for _, name := range snapshotFiles {
		if _, ok := byName[name]; !ok {
			return fmt.Errorf("snapshot folder %s is missing %s", s.folderPath, name)
		}
	}

	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	for _, name := range snapshotFiles {
		if err := s.downloadTo(byName[name], filepath.Join(s.dataDir, name)); err != nil {
			return err
		}
	}

	s.log.Info().Str("folder", s.folderPath).Str("data_dir", s.dataDir).Msg("snapshot synced")
	return nil
}

func (s *Syncer) downloadTo(file *File, dest string) error {
	// Write to a temp file first so a failed download never clobbers the
	// previous snapshot.
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".sync-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", file.Name, err)
	}
	defer os.Remove(tmp.Name())

	if err := s.service.DownloadFile(file.ID, tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to download %s: %w", file.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", file.Name, err)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", file.Name, err)
	}

	s.log.Debug().Str("file", file.Name).Int64("size", file.Size).Msg("downloaded snapshot file")
	return nil
}
