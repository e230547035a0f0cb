package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cbegin/loopgen-go/internal/artifact"
	"github.com/cbegin/loopgen-go/internal/midifile"
	"github.com/cbegin/loopgen-go/internal/studio"
)

type Handler struct {
	studio  *studio.Studio
	exports *artifact.MemoryStore
}

type GenerateRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

type MuteRequest struct {
	Muted bool `json:"muted"`
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *Handler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.studio.State())
}

func (h *Handler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	l, err := h.studio.Generate(c.Request.Context(), req.Prompt)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"loop": l, "playing": true})
}

func (h *Handler) Regenerate(c *gin.Context) {
	l, err := h.studio.Regenerate(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"loop": l, "playing": true})
}

func (h *Handler) Play(c *gin.Context) {
	playing, err := h.studio.Play()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playing": playing})
}

func (h *Handler) Stop(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"playing": h.studio.Stop()})
}

func (h *Handler) Toggle(c *gin.Context) {
	playing, err := h.studio.Toggle()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playing": playing})
}

func (h *Handler) Mute(c *gin.Context) {
	var req MuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := c.Param("id")
	if !h.studio.SetMuted(id, req.Muted) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown track"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "muted": req.Muted})
}

func (h *Handler) Export(c *gin.Context) {
	exp, err := h.studio.Download(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, exp)
}

func (h *Handler) MIDI(c *gin.Context) {
	l := h.studio.Current()
	if l == nil {
		h.fail(c, studio.ErrNoLoop)
		return
	}
	data, err := midifile.Encode(l)
	if err != nil {
		captureError(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+l.FileName(".mid")+`"`)
	c.Data(http.StatusOK, "audio/midi", data)
}

func (h *Handler) ExportFile(c *gin.Context) {
	a, err := h.exports.Get(c.Param("id"))
	if err != nil || a.Name != c.Param("name") {
		c.JSON(http.StatusNotFound, gin.H{"error": "export not found"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+a.Name+`"`)
	c.Data(http.StatusOK, "audio/wav", a.Data)
}

// fail writes one of the two user-facing failure texts with a status that
// matches its category.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, studio.ErrNoLoop):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, studio.ErrDownloadFailed):
		captureError(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": studio.UserMessage(err)})
	default:
		captureError(c, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": studio.UserMessage(err)})
	}
}
