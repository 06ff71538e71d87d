package attachments

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/nwstraits/survey-etl/internal/domain"
)

// BeachAlbumDir holds a copy of every to-beach photo.
const BeachAlbumDir = "to_beach_album"

const beachTag = "_ToBe"

// Store copies survey attachments from the export folder into the per-county
// output tree. It implements pipeline.BatchLoader.
type Store struct {
	srcDir string
	outDir string
	logger *slog.Logger

	mu      sync.Mutex
	index   map[string]string // file name -> path
	copied  map[string]string // survey prefix + tag -> copied path
	missing []string
}

// NewStore creates a store reading from srcDir and writing below outDir.
func NewStore(srcDir, outDir string, logger *slog.Logger) *Store {
	return &Store{
		srcDir: srcDir,
		outDir: outDir,
		logger: logger,
		copied: make(map[string]string),
	}
}

// Index walks the attachment folder and records every file by name.
func (s *Store) Index() error {
	index := make(map[string]string)
	err := filepath.WalkDir(s.srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			index[d.Name()] = path
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("index attachments in %s: %w", s.srcDir, err)
	}

	s.mu.Lock()
	s.index = index
	s.mu.Unlock()

	s.logger.Info("attachments indexed", "dir", s.srcDir, "files", len(index))
	return nil
}

// Find returns the path of an attachment by the name entered in the survey.
func (s *Store) Find(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.index[name]; ok {
		return p, true
	}
	p, ok := s.index[domain.NormalizeAttachmentName(name)]
	return p, ok
}

// TargetPath is where an attachment of the survey is copied to.
func (s *Store) TargetPath(survey domain.Survey, a domain.Attachment) string {
	return filepath.Join(s.outDir, survey.County(), a.Folder, a.TargetName(survey.FilePrefix()))
}

// ToBeachPath returns the target path of the survey's to-beach photo, or ""
// when the survey has none or the file is not in the export.
func (s *Store) ToBeachPath(survey domain.Survey) string {
	for _, a := range survey.Attachments() {
		if a.Tag != beachTag {
			continue
		}
		if _, ok := s.Find(a.FileName); ok {
			return s.TargetPath(survey, a)
		}
	}
	return ""
}

// CreateCountyDirs creates the output folders for each county.
func (s *Store) CreateCountyDirs(counties []string, folders ...string) error {
	for _, county := range counties {
		for _, folder := range folders {
			dir := filepath.Join(s.outDir, county, folder)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}
		}
	}
	return nil
}

// LoadBatch copies the attachments of every survey in the batch.
func (s *Store) LoadBatch(ctx context.Context, surveys []domain.Survey) error {
	for _, survey := range surveys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.CopySurvey(survey); err != nil {
			return err
		}
	}
	return nil
}

// CopySurvey copies each attachment of the survey that exists in the export.
// Missing files are logged and skipped. It returns the number copied.
func (s *Store) CopySurvey(survey domain.Survey) (int, error) {
	prefix := survey.FilePrefix()
	copied := 0
	for _, a := range survey.Attachments() {
		src, ok := s.Find(a.FileName)
		if !ok {
			s.logger.Warn("attachment not found", "survey", prefix, "file", a.FileName)
			s.mu.Lock()
			s.missing = append(s.missing, a.FileName)
			s.mu.Unlock()
			continue
		}

		dst := s.TargetPath(survey, a)
		if err := copyFile(src, dst); err != nil {
			return copied, fmt.Errorf("copy %s for %s: %w", a.FileName, prefix, err)
		}
		s.mu.Lock()
		s.copied[prefix+a.Tag] = dst
		s.mu.Unlock()
		copied++
	}
	return copied, nil
}

// CopyBeachImages copies every to-beach photo copied so far into the album folder.
func (s *Store) CopyBeachImages() (int, error) {
	album := filepath.Join(s.outDir, BeachAlbumDir)
	if err := os.MkdirAll(album, 0o755); err != nil {
		return 0, fmt.Errorf("create %s: %w", album, err)
	}

	n := 0
	for _, src := range s.CopiedPaths() {
		if !strings.Contains(filepath.Base(src), beachTag+".") {
			continue
		}
		if err := copyFile(src, filepath.Join(album, filepath.Base(src))); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// CopiedPaths returns the destination of every copied file, sorted.
func (s *Store) CopiedPaths() []string {
	s.mu.Lock()
	paths := make([]string, 0, len(s.copied))
	for _, p := range s.copied {
		paths = append(paths, p)
	}
	s.mu.Unlock()
	sort.Strings(paths)
	return paths
}

// Missing returns the attachment names that were not found in the export.
func (s *Store) Missing() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.missing...)
}

// copyFile copies src to dst, creating dst's directory and keeping the
// source modification time.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
