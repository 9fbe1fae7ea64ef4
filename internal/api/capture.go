package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"germantopic/internal/capture"
	"germantopic/internal/utils"
)

// createCaptureSession handles POST /api/v1/capture/sessions
func (h *Handlers) createCaptureSession(c *gin.Context) {
	id := h.Sessions.Create()
	log.Printf("[Capture] Session created: %s", id)
	utils.Success(c, gin.H{
		"session_id": id,
	})
}

// removeCaptureSession tears down a session, releasing its clips and any
// in-progress recording.
func (h *Handlers) removeCaptureSession(c *gin.Context) {
	id := c.Param("session_id")
	h.Sessions.Remove(id)
	log.Printf("[Capture] Session removed: %s", id)
	utils.Success(c, gin.H{
		"session_id": id,
		"status":     "removed",
	})
}

// StartRecordingRequest carries the MIME type the client will stream.
type StartRecordingRequest struct {
	MimeType string `json:"mime_type"`
}

// startRecording handles POST /api/v1/capture/sessions/:session_id/start
func (h *Handlers) startRecording(c *gin.Context) {
	session, ok := h.captureSession(c)
	if !ok {
		return
	}

	var req StartRecordingRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MimeType == "" {
		req.MimeType = "audio/webm"
	}

	if err := session.Start(req.MimeType); err != nil {
		switch {
		case errors.Is(err, capture.ErrAlreadyRecording):
			utils.Error(c, http.StatusConflict, "already recording")
		case errors.Is(err, capture.ErrClipLimitReached):
			utils.Error(c, http.StatusConflict,
				"you can only have up to 2 recordings, please delete one to record a new one")
		case errors.Is(err, capture.ErrUnsupportedFormat):
			utils.Error(c, http.StatusBadRequest, "audio capture not available for this format")
		default:
			utils.Error(c, http.StatusInternalServerError, "failed to start recording")
		}
		return
	}

	utils.Success(c, gin.H{
		"status": "recording",
	})
}

// appendChunk handles POST /api/v1/capture/sessions/:session_id/chunk with
// raw audio bytes in the body.
func (h *Handlers) appendChunk(c *gin.Context) {
	session, ok := h.captureSession(c)
	if !ok {
		return
	}

	data, err := c.GetRawData()
	if err != nil {
		// Capture setup broke mid-recording: abandon the in-flight
		// buffer rather than keep a torn one.
		session.Abort()
		utils.Error(c, http.StatusBadRequest, "failed to read audio data")
		return
	}

	if err := session.Write(data); err != nil {
		utils.Error(c, http.StatusConflict, "not recording")
		return
	}

	utils.Success(c, gin.H{
		"received": len(data),
	})
}

// stopRecording handles POST /api/v1/capture/sessions/:session_id/stop.
// Stopping while idle is a no-op, mirroring the recorder contract.
func (h *Handlers) stopRecording(c *gin.Context) {
	session, ok := h.captureSession(c)
	if !ok {
		return
	}

	clip, err := session.Stop()
	if err != nil {
		utils.Success(c, gin.H{
			"finalized": false,
		})
		return
	}

	clips := session.Clips()
	utils.Success(c, gin.H{
		"finalized":  true,
		"index":      len(clips) - 1,
		"size_bytes": len(clip.Data),
		"mime_type":  clip.MimeType,
	})
}

// listClips handles GET /api/v1/capture/sessions/:session_id/clips
func (h *Handlers) listClips(c *gin.Context) {
	session, ok := h.captureSession(c)
	if !ok {
		return
	}

	clips := session.Clips()
	items := make([]gin.H, 0, len(clips))
	for i, clip := range clips {
		items = append(items, gin.H{
			"index":      i,
			"size_bytes": len(clip.Data),
			"mime_type":  clip.MimeType,
			"created_at": clip.CreatedAt,
		})
	}

	utils.Success(c, gin.H{
		"recording": session.Recording(),
		"clips":     items,
	})
}

// deleteClip handles DELETE /api/v1/capture/sessions/:session_id/clips/:index.
// An out-of-range index is a no-op.
func (h *Handlers) deleteClip(c *gin.Context) {
	session, ok := h.captureSession(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid clip index")
		return
	}

	deleted := session.Delete(index) == nil
	utils.Success(c, gin.H{
		"deleted": deleted,
	})
}

func (h *Handlers) captureSession(c *gin.Context) (*capture.Session, bool) {
	id := c.Param("session_id")
	session, ok := h.Sessions.Get(id)
	if !ok {
		utils.Error(c, http.StatusNotFound, "capture session not found")
		return nil, false
	}
	return session, true
}
