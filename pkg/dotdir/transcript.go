package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	transcriptFile = "transcript.json"
)

// Transcript is the conversation from the last "folio chat" session, kept so
// a later session can resume with the same history.
type Transcript struct {
	// Target is the API the conversation was held against.
	Target string `json:"target"`

	// Messages in chronological order.
	Messages []TranscriptMessage `json:"messages"`
}

type TranscriptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LoadTranscript loads .folio/transcript.json.
// Returns nil, nil when there is no saved transcript.
func (m *Manager) LoadTranscript(overrideDir string) (*Transcript, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return nil, nil
	}

	data, err := os.ReadFile(filepath.Join(dir, transcriptFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading transcript: %w", err)
	}

	t := &Transcript{}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("parsing transcript: %w", err)
	}

	return t, nil
}

// SaveTranscript persists t to .folio/transcript.json.
func (m *Manager) SaveTranscript(t *Transcript, overrideDir string) error {
	if t == nil {
		return errors.New("cannot save nil transcript")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}
	if dir == "" {
		return errors.New("no .folio directory found, run \"folio init\" first")
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling transcript: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, transcriptFile), data, 0o600); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}

	return nil
}

// ClearTranscript removes the saved transcript. Missing files are not an error.
func (m *Manager) ClearTranscript(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}
	if dir == "" {
		return nil
	}

	if err := os.Remove(filepath.Join(dir, transcriptFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing transcript: %w", err)
	}

	return nil
}
