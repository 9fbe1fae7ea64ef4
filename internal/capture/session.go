package capture

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MaxClips is the hard cap on finished clips held by one capture session.
const MaxClips = 2

var (
	ErrAlreadyRecording    = errors.New("already recording")
	ErrNotRecording        = errors.New("not recording")
	ErrClipLimitReached    = fmt.Errorf("clip limit reached (%d), delete one to record again", MaxClips)
	ErrUnsupportedFormat   = errors.New("unsupported audio format")
	ErrClipIndexOutOfRange = errors.New("clip index out of range")
)

// supportedMimeTypes mirrors the formats the transcription backends accept.
var supportedMimeTypes = map[string]bool{
	"audio/webm": true,
	"audio/mp4":  true,
	"audio/mpeg": true,
	"audio/wav":  true,
	"audio/ogg":  true,
	"audio/m4a":  true,
	"audio/aac":  true,
}

// Clip is one finalized audio recording. Immutable once produced.
type Clip struct {
	Data      []byte
	MimeType  string
	CreatedAt time.Time
}

// Filename returns a synthetic filename with an extension matching the clip's
// MIME type. Transcription backends use it for format detection.
func (c Clip) Filename() string {
	ext := "webm"
	if i := strings.LastIndex(c.MimeType, "/"); i >= 0 && i < len(c.MimeType)-1 {
		switch c.MimeType[i+1:] {
		case "mpeg":
			ext = "mp3"
		default:
			ext = c.MimeType[i+1:]
		}
	}
	return "clip." + ext
}

// Session is one user's capture session: Idle -> Recording -> Idle, holding
// at most MaxClips finished clips.
type Session struct {
	mu        sync.Mutex
	recording bool
	mimeType  string
	buf       []byte
	clips     []Clip
}

func NewSession() *Session {
	return &Session{}
}

// Start begins a new recording. It fails without mutating state if a
// recording is in progress, the clip cap is reached, or the MIME type is not
// one the pipeline can capture.
func (s *Session) Start(mimeType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recording {
		return ErrAlreadyRecording
	}
	if len(s.clips) >= MaxClips {
		return ErrClipLimitReached
	}
	if !supportedMimeTypes[strings.ToLower(strings.TrimSpace(mimeType))] {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}

	s.recording = true
	s.mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	s.buf = nil
	return nil
}

// Write appends audio data to the in-progress recording.
func (s *Session) Write(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.recording {
		return ErrNotRecording
	}
	s.buf = append(s.buf, chunk...)
	return nil
}

// Stop finalizes the in-progress buffer into an immutable clip and returns
// to idle. Calling Stop while idle is a silent no-op per the recorder
// contract; callers get ErrNotRecording to distinguish, but no state changes.
func (s *Session) Stop() (Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.recording {
		return Clip{}, ErrNotRecording
	}

	data := make([]byte, len(s.buf))
	copy(data, s.buf)

	clip := Clip{
		Data:      data,
		MimeType:  s.mimeType,
		CreatedAt: time.Now(),
	}
	s.clips = append(s.clips, clip)

	s.recording = false
	s.buf = nil
	s.mimeType = ""
	return clip, nil
}

// Abort abandons the in-progress recording without producing a clip.
// Used when capture setup fails mid-way.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recording = false
	s.buf = nil
	s.mimeType = ""
}

// Delete removes the clip at index, preserving the order of the rest.
func (s *Session) Delete(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.clips) {
		return ErrClipIndexOutOfRange
	}
	s.clips = append(s.clips[:index], s.clips[index+1:]...)
	return nil
}

// Clips returns a copy of the finished clip list, oldest first.
func (s *Session) Clips() []Clip {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Clip, len(s.clips))
	copy(out, s.clips)
	return out
}

// LastClip returns the most recent finished clip, if any.
func (s *Session) LastClip() (Clip, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.clips) == 0 {
		return Clip{}, false
	}
	return s.clips[len(s.clips)-1], true
}

// Recording reports whether a recording is in progress.
func (s *Session) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}
