package capture

import (
	"bytes"
	"errors"
	"testing"
)

func recordClip(t *testing.T, s *Session, data []byte) {
	t.Helper()
	if err := s.Start("audio/webm"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Write(data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestSessionStateMachine(t *testing.T) {
	s := NewSession()

	if s.Recording() {
		t.Error("new session should be idle")
	}

	if err := s.Start("audio/webm"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !s.Recording() {
		t.Error("expected recording state after Start")
	}

	// Starting while recording must fail without mutating state.
	if err := s.Start("audio/webm"); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("expected ErrAlreadyRecording, got %v", err)
	}

	if err := s.Write([]byte("abc")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	clip, err := s.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if s.Recording() {
		t.Error("expected idle state after Stop")
	}
	if !bytes.Equal(clip.Data, []byte("abc")) {
		t.Errorf("expected clip data %q, got %q", "abc", clip.Data)
	}

	// Stop while idle is a no-op.
	if _, err := s.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("expected ErrNotRecording, got %v", err)
	}
	if len(s.Clips()) != 1 {
		t.Errorf("expected 1 clip, got %d", len(s.Clips()))
	}
}

func TestClipCapNeverExceeded(t *testing.T) {
	s := NewSession()

	recordClip(t, s, []byte("one"))
	recordClip(t, s, []byte("two"))

	if err := s.Start("audio/webm"); !errors.Is(err, ErrClipLimitReached) {
		t.Errorf("expected ErrClipLimitReached, got %v", err)
	}
	if len(s.Clips()) != MaxClips {
		t.Errorf("expected %d clips, got %d", MaxClips, len(s.Clips()))
	}

	// Deleting one makes room again.
	if err := s.Delete(0); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Start("audio/webm"); err != nil {
		t.Errorf("Start after delete failed: %v", err)
	}
}

func TestDeletePreservesOrder(t *testing.T) {
	s := NewSession()

	recordClip(t, s, []byte("one"))
	recordClip(t, s, []byte("two"))

	if err := s.Delete(0); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	clips := s.Clips()
	if len(clips) != 1 {
		t.Fatalf("expected 1 clip, got %d", len(clips))
	}
	if string(clips[0].Data) != "two" {
		t.Errorf("expected remaining clip %q, got %q", "two", clips[0].Data)
	}
}

func TestDeleteOutOfRangeIsNoop(t *testing.T) {
	s := NewSession()
	recordClip(t, s, []byte("one"))

	if err := s.Delete(5); !errors.Is(err, ErrClipIndexOutOfRange) {
		t.Errorf("expected ErrClipIndexOutOfRange, got %v", err)
	}
	if err := s.Delete(-1); !errors.Is(err, ErrClipIndexOutOfRange) {
		t.Errorf("expected ErrClipIndexOutOfRange, got %v", err)
	}
	if len(s.Clips()) != 1 {
		t.Errorf("expected 1 clip after no-op deletes, got %d", len(s.Clips()))
	}
}

func TestStartRejectsUnsupportedFormat(t *testing.T) {
	s := NewSession()

	if err := s.Start("video/mp4"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	if s.Recording() {
		t.Error("failed Start must not enter recording state")
	}
}

func TestAbortAbandonsBuffer(t *testing.T) {
	s := NewSession()

	if err := s.Start("audio/webm"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Write([]byte("partial")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	s.Abort()

	if s.Recording() {
		t.Error("expected idle state after Abort")
	}
	if len(s.Clips()) != 0 {
		t.Errorf("abort must not produce a clip, got %d", len(s.Clips()))
	}
}

func TestClipFilename(t *testing.T) {
	cases := []struct {
		mime string
		want string
	}{
		{"audio/webm", "clip.webm"},
		{"audio/mpeg", "clip.mp3"},
		{"audio/wav", "clip.wav"},
		{"", "clip.webm"},
	}
	for _, tc := range cases {
		got := Clip{MimeType: tc.mime}.Filename()
		if got != tc.want {
			t.Errorf("Filename for %q: expected %q, got %q", tc.mime, tc.want, got)
		}
	}
}
