package session

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MIC-DKFZ/AVID-sub001/internal/artefact"
	"github.com/MIC-DKFZ/AVID-sub001/internal/settings"
)

// FileVersion is the session file format version written by Save.
const FileVersion = "1.0"

// xmlSession is the on-disk shape of a session file. Every artifact is a
// flat list of key/value property entries so that readers can skip keys
// they do not know (forward compatibility).
type xmlSession struct {
	XMLName   xml.Name      `xml:"avid_session"`
	Version   string        `xml:"version,attr"`
	Name      string        `xml:"name,attr"`
	Artifacts []xmlArtifact `xml:"artefact"`
}

type xmlArtifact struct {
	Properties []xmlProperty `xml:"property"`
}

type xmlProperty struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// writeOrder fixes the serialization order of well-known keys so saved
// files are diff-friendly.
var writeOrder = []string{
	artefact.KeyID,
	artefact.KeyCase,
	artefact.KeyCaseInstance,
	artefact.KeyTimepoint,
	artefact.KeyActionTag,
	artefact.KeyType,
	artefact.KeyFormat,
	artefact.KeyObjective,
	artefact.KeyURL,
	artefact.KeyInvalid,
	artefact.KeyExecutionDuration,
	artefact.KeyResultSubTag,
}

// Save writes the session to path as indented XML. The write is atomic:
// content lands in a temp file that is renamed into place, so a crash
// cannot leave a torn session file.
func (s *Session) Save(path string) error {
	s.mu.Lock()
	doc := xmlSession{Version: FileVersion, Name: s.name}
	for _, a := range s.artifacts {
		doc.Artifacts = append(doc.Artifacts, encodeArtifact(a))
	}
	s.mu.Unlock()

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}
	data = append([]byte(xml.Header), data...)
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("session: create session dir: %w", err)
	}
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("session: write %s: %w", path, err)
	}
	return nil
}

func encodeArtifact(a *artefact.Artifact) xmlArtifact {
	var xa xmlArtifact
	for _, key := range writeOrder {
		v, _ := a.Value(key)
		xa.Properties = append(xa.Properties, xmlProperty{Key: key, Value: v})
	}
	for _, key := range a.UserKeys() {
		xa.Properties = append(xa.Properties, xmlProperty{Key: key, Value: a.Properties[key]})
	}
	return xa
}

// Load reads a session file and bootstraps a session from it. Unknown
// property keys are kept as user properties rather than rejected.
func Load(path, root string, st *settings.Settings) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("session: read %s: %w", path, err)
	}
	var doc xmlSession
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", path, err)
	}

	sess := New(doc.Name, root, st)
	for i, xa := range doc.Artifacts {
		a := &artefact.Artifact{Properties: map[string]string{}}
		for _, p := range xa.Properties {
			if err := a.SetValue(p.Key, p.Value); err != nil {
				return nil, fmt.Errorf("session: artefact %d: %w", i, err)
			}
		}
		if err := sess.AddArtifact(a); err != nil {
			return nil, err
		}
	}
	sess.SetFilePath(path)
	return sess, nil
}

// writeFileAtomic writes data to path via a temp file and rename.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	_ = tmp.Sync() // best-effort durability
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
