// Package session implements the owning collection of artifacts for one
// workflow run.
//
// The session is the single arena: it exclusively owns every artifact,
// holds insertion order, persists itself to a versioned XML session file
// and derives the on-disk layout for artifact payloads. Actions hold
// references only and mutate the store solely through AddArtifact.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MIC-DKFZ/AVID-sub001/internal/artefact"
	"github.com/MIC-DKFZ/AVID-sub001/internal/settings"
)

// TokenRecord is the persistence-oriented outcome of one executed action.
// It deliberately carries no references back into the session.
type TokenRecord struct {
	SessionName     string
	ActionTag       string
	InstanceName    string
	State           string
	DurationSeconds float64
	ArtifactIDs     []string
}

// TokenRecorder receives token records as actions finish. The sqlite run
// journal implements this.
type TokenRecorder interface {
	Record(rec TokenRecord) error
}

// Session owns the ordered artifact store of one workflow run.
type Session struct {
	mu sync.Mutex

	name      string
	root      string
	filePath  string
	settings  *settings.Settings
	artifacts []*artefact.Artifact
	ids       map[string]bool
	tokens    []TokenRecord
	recorders []TokenRecorder
}

// New creates an empty session. root is the content directory under which
// artifact payloads, launch scripts and logs are laid out.
func New(name, root string, st *settings.Settings) *Session {
	if st == nil {
		st = settings.Default()
	}
	return &Session{
		name:     name,
		root:     root,
		settings: st,
		ids:      map[string]bool{},
	}
}

// Name returns the session name.
func (s *Session) Name() string { return s.name }

// ContentRoot returns the directory artifact payload paths derive from.
func (s *Session) ContentRoot() string { return s.root }

// Settings returns the settings handle of this session.
func (s *Session) Settings() *settings.Settings { return s.settings }

// SetFilePath attaches the session file location; once set, every commit
// re-persists the session.
func (s *Session) SetFilePath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filePath = path
}

// FilePath returns the attached session file location, if any.
func (s *Session) FilePath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filePath
}

// AddRecorder registers an additional token sink (e.g. the run journal).
func (s *Session) AddRecorder(r TokenRecorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorders = append(s.recorders, r)
}

// AddArtifact commits an artifact to the store and persists the session
// file when one is attached. The artifact id must be unique; an empty tag
// is rejected.
func (s *Session) AddArtifact(a *artefact.Artifact) error {
	if a == nil {
		return fmt.Errorf("session: nil artifact")
	}
	if a.ID == "" {
		return fmt.Errorf("session: artifact without id")
	}
	if a.ActionTag == "" {
		return fmt.Errorf("session: artifact %s without action tag", a.ShortID())
	}

	s.mu.Lock()
	if s.ids[a.ID] {
		s.mu.Unlock()
		return fmt.Errorf("session: duplicate artifact id %s", a.ID)
	}
	s.ids[a.ID] = true
	s.artifacts = append(s.artifacts, a)
	path := s.filePath
	s.mu.Unlock()

	if path != "" {
		if err := s.Save(path); err != nil {
			return fmt.Errorf("session: persist after commit: %w", err)
		}
	}
	return nil
}

// Artifacts returns a snapshot of the store in insertion order. The slice
// is fresh; the artifact pointers are shared, per the ownership model.
func (s *Session) Artifacts() []*artefact.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*artefact.Artifact, len(s.artifacts))
	copy(out, s.artifacts)
	return out
}

// FindSimilar returns all stored artifacts similar to the reference, in
// insertion order.
func (s *Session) FindSimilar(ref *artefact.Artifact) []*artefact.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*artefact.Artifact
	for _, a := range s.artifacts {
		if a.Similar(ref) {
			out = append(out, a)
		}
	}
	return out
}

// RegisterToken appends a token record to the session log and forwards it
// to every attached recorder.
func (s *Session) RegisterToken(rec TokenRecord) error {
	rec.SessionName = s.name
	s.mu.Lock()
	s.tokens = append(s.tokens, rec)
	recorders := make([]TokenRecorder, len(s.recorders))
	copy(recorders, s.recorders)
	s.mu.Unlock()

	for _, r := range recorders {
		if err := r.Record(rec); err != nil {
			return fmt.Errorf("session: record token: %w", err)
		}
	}
	return nil
}

// Tokens returns the registered token records in registration order.
func (s *Session) Tokens() []TokenRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TokenRecord, len(s.tokens))
	copy(out, s.tokens)
	return out
}

// ArtifactPath derives the payload destination for an artifact:
// <root>/<action_tag>/<case>/<case_instance>/<name>.<id>.<ext>.
// Empty case or case-instance segments collapse.
func (s *Session) ArtifactPath(a *artefact.Artifact, name, ext string) string {
	segments := []string{s.root, sanitizeSegment(a.ActionTag)}
	if a.Case != "" {
		segments = append(segments, sanitizeSegment(a.Case))
	}
	if a.CaseInstance != "" {
		segments = append(segments, sanitizeSegment(a.CaseInstance))
	}
	file := sanitizeSegment(name) + "." + a.ID
	if ext != "" {
		file += "." + strings.TrimPrefix(ext, ".")
	}
	segments = append(segments, file)
	return filepath.Join(segments...)
}

// sanitizeSegment makes a property value safe as a path segment.
func sanitizeSegment(v string) string {
	if v == "" {
		return "_"
	}
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
	)
	return replacer.Replace(v)
}

// EnsureDir creates the parent directory of a payload path.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
