// Package docs stores generated application artifacts on the local
// filesystem and hands back opaque refs for the ledger.
package docs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"applypilot-engine/internal/domain"
)

type Storage struct {
	BaseDir string
}

func NewStorage(baseDir string) (*Storage, error) {
	dir := filepath.Join(baseDir, "artifacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifacts dir: %w", err)
	}
	return &Storage{BaseDir: dir}, nil
}

// Save writes both documents and returns their refs. Either both files are
// written or neither ref is returned; a half-written pair is cleaned up so
// the ledger's resume/cover invariant can't be violated by a disk error.
func (s *Storage) Save(ident string, docs domain.Documents) (resumeRef, coverRef string, err error) {
	stamp := time.Now().UTC().Format("20060102150405")
	key := shortKey(ident)

	resumeRef = filepath.Join(s.BaseDir, fmt.Sprintf("resume_%s_%s.txt", key, stamp))
	coverRef = filepath.Join(s.BaseDir, fmt.Sprintf("cover_%s_%s.txt", key, stamp))

	if err := os.WriteFile(resumeRef, []byte(docs.Resume), 0o644); err != nil {
		return "", "", fmt.Errorf("write resume: %w", err)
	}
	if err := os.WriteFile(coverRef, []byte(docs.CoverLetter), 0o644); err != nil {
		_ = os.Remove(resumeRef)
		return "", "", fmt.Errorf("write cover letter: %w", err)
	}
	return resumeRef, coverRef, nil
}

// Load reads a stored pair back, for re-submission of a DOCS_READY row
// without regenerating.
func (s *Storage) Load(resumeRef, coverRef string) (domain.Documents, error) {
	r, err := os.ReadFile(resumeRef)
	if err != nil {
		return domain.Documents{}, fmt.Errorf("read resume ref: %w", err)
	}
	c, err := os.ReadFile(coverRef)
	if err != nil {
		return domain.Documents{}, fmt.Errorf("read cover ref: %w", err)
	}
	return domain.Documents{Resume: string(r), CoverLetter: string(c)}, nil
}

// SaveDraft stores a follow-up reply draft next to the artifacts.
func (s *Storage) SaveDraft(ident, text string) (string, error) {
	ref := filepath.Join(s.BaseDir,
		fmt.Sprintf("draft_%s_%s.txt", shortKey(ident), time.Now().UTC().Format("20060102150405")))
	if err := os.WriteFile(ref, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write draft: %w", err)
	}
	return ref, nil
}

func shortKey(ident string) string {
	h := sha256.Sum256([]byte(strings.TrimSpace(ident)))
	return hex.EncodeToString(h[:])[:12]
}
