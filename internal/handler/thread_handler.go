package handler

import (
	"net/http"
	"strconv"
	"time"

	"sentinal-threads/internal/commands"
	"sentinal-threads/internal/domain/interaction"
	"sentinal-threads/internal/domain/thread"
	"sentinal-threads/internal/repository"
	"sentinal-threads/internal/services"
	"sentinal-threads/internal/transport/httpdto"
	sentinal_errors "sentinal-threads/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type ThreadHandler struct {
	store        *repository.Store
	threads      *services.ThreadService
	interactions *services.InteractionService
	bus          *commands.Bus
	clock        func() time.Time
}

func NewThreadHandler(store *repository.Store, threads *services.ThreadService, interactions *services.InteractionService, bus *commands.Bus) *ThreadHandler {
	return &ThreadHandler{
		store:        store,
		threads:      threads,
		interactions: interactions,
		bus:          bus,
		clock:        time.Now,
	}
}

// Register mounts the thread routes on r.
func (h *ThreadHandler) Register(r gin.IRouter) {
	threads := r.Group("/threads")
	{
		threads.POST("", h.Create)
		threads.GET("", h.List)
		threads.GET("/:id", h.Get)
		threads.GET("/:id/appearance", h.Appearance)
		for _, action := range []commands.ThreadAction{
			commands.ActionArchive,
			commands.ActionUnarchive,
			commands.ActionUnarchiveVisible,
			commands.ActionMarkRead,
			commands.ActionMarkUnread,
			commands.ActionClearUnread,
			commands.ActionSoftDelete,
		} {
			threads.POST("/:id/"+string(action), h.Action(action))
		}
		threads.GET("/:id/draft", h.GetDraft)
		threads.PUT("/:id/draft", h.SetDraft)
		threads.PUT("/:id/mute", h.SetMute)
		threads.PUT("/:id/mention-mode", h.SetMentionMode)
		threads.PUT("/:id/color", h.SetColor)
		threads.GET("/:id/disappearing", h.Disappearing)
		threads.POST("/:id/interactions", h.CreateInteraction)
	}
	r.POST("/thread-actions/bulk-archive", h.BulkArchive)
	r.PUT("/interactions/:id/hidden", h.SetInteractionHidden)
	r.DELETE("/interactions/:id", h.DeleteInteraction)
}

func (h *ThreadHandler) Create(c *gin.Context) {
	var req httpdto.CreateThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", httpdto.CodeInvalidRequest))
		return
	}
	params := services.CreateParams{Kind: req.Kind(), ColorSeed: req.ColorSeed}
	if req.ID != "" {
		id, err := uuid.Parse(req.ID)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid thread id", httpdto.CodeInvalidRequest))
			return
		}
		params.ID = id
	}

	var created thread.Thread
	err := h.store.Write(c.Request.Context(), func(tx *repository.Tx) error {
		var err error
		created, err = h.threads.Create(tx, params)
		return err
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromThread(created, h.clock())))
}

func (h *ThreadHandler) List(c *gin.Context) {
	archived := false
	if raw := c.Query("archived"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid archived flag", httpdto.CodeInvalidRequest))
			return
		}
		archived = v
	}

	var items []thread.Thread
	err := h.store.Read(c.Request.Context(), func(tx *repository.Tx) error {
		var err error
		items, err = h.threads.ListInbox(tx, archived)
		return err
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	now := h.clock()
	out := make([]httpdto.ThreadDTO, 0, len(items))
	for _, t := range items {
		out = append(out, httpdto.FromThread(t, now))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListThreadsResponse{Threads: out, Total: len(out)}))
}

func (h *ThreadHandler) Get(c *gin.Context) {
	id, ok := threadID(c)
	if !ok {
		return
	}
	var t thread.Thread
	err := h.store.Read(c.Request.Context(), func(tx *repository.Tx) error {
		var err error
		t, err = h.threads.Get(tx, id)
		return err
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromThread(t, h.clock())))
}

func (h *ThreadHandler) Appearance(c *gin.Context) {
	id, ok := threadID(c)
	if !ok {
		return
	}
	var a thread.Appearance
	err := h.store.Read(c.Request.Context(), func(tx *repository.Tx) error {
		var err error
		a, err = h.threads.InboxAppearance(tx, id)
		return err
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(a))
}

// Action runs a read/visibility action through the command bus.
// ?sync=false keeps the change on this device.
func (h *ThreadHandler) Action(action commands.ThreadAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := threadID(c)
		if !ok {
			return
		}
		propagate, ok := syncFlag(c)
		if !ok {
			return
		}
		res, err := h.bus.Execute(c.Request.Context(), commands.ThreadActionCommand{
			ThreadID:      id,
			Action:        action,
			PropagateSync: propagate,
		})
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(res.Payload))
	}
}

func (h *ThreadHandler) BulkArchive(c *gin.Context) {
	var req httpdto.BulkArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", httpdto.CodeInvalidRequest))
		return
	}
	propagate, ok := syncFlag(c)
	if !ok {
		return
	}
	ids := make([]uuid.UUID, 0, len(req.ThreadIDs))
	for _, raw := range req.ThreadIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid thread id", httpdto.CodeInvalidRequest))
			return
		}
		ids = append(ids, id)
	}

	res, err := h.bus.Execute(c.Request.Context(), commands.BulkArchiveCommand{
		ThreadIDs:     ids,
		Archive:       req.Archive,
		PropagateSync: propagate,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	results, _ := res.Payload.([]commands.BulkArchiveResult)
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.BulkArchiveResponse{Results: results}))
}

func (h *ThreadHandler) GetDraft(c *gin.Context) {
	id, ok := threadID(c)
	if !ok {
		return
	}
	var d *thread.Draft
	err := h.store.Read(c.Request.Context(), func(tx *repository.Tx) error {
		var err error
		d, err = h.threads.Draft(tx, id)
		return err
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromDraft(d)))
}

func (h *ThreadHandler) SetDraft(c *gin.Context) {
	id, ok := threadID(c)
	if !ok {
		return
	}
	var req httpdto.DraftDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", httpdto.CodeInvalidRequest))
		return
	}
	h.write(c, func(tx *repository.Tx) error {
		return h.threads.SetDraft(tx, id, req.ToDraft())
	})
}

func (h *ThreadHandler) SetMute(c *gin.Context) {
	id, ok := threadID(c)
	if !ok {
		return
	}
	propagate, ok := syncFlag(c)
	if !ok {
		return
	}
	var req httpdto.MuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", httpdto.CodeInvalidRequest))
		return
	}
	h.write(c, func(tx *repository.Tx) error {
		return h.threads.SetMutedUntil(tx, id, req.MutedUntil, propagate)
	})
}

func (h *ThreadHandler) SetMentionMode(c *gin.Context) {
	id, ok := threadID(c)
	if !ok {
		return
	}
	propagate, ok := syncFlag(c)
	if !ok {
		return
	}
	var req httpdto.MentionModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", httpdto.CodeInvalidRequest))
		return
	}
	h.write(c, func(tx *repository.Tx) error {
		return h.threads.SetMentionMode(tx, id, thread.MentionNotificationMode(req.Mode), propagate)
	})
}

func (h *ThreadHandler) SetColor(c *gin.Context) {
	id, ok := threadID(c)
	if !ok {
		return
	}
	var req httpdto.ColorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", httpdto.CodeInvalidRequest))
		return
	}
	h.write(c, func(tx *repository.Tx) error {
		return h.threads.UpdateColorName(tx, id, thread.ColorName(req.Color))
	})
}

func (h *ThreadHandler) Disappearing(c *gin.Context) {
	id, ok := threadID(c)
	if !ok {
		return
	}
	var out httpdto.DisappearingDTO
	err := h.store.Read(c.Request.Context(), func(tx *repository.Tx) error {
		cfg, err := h.threads.DisappearingConfiguration(tx, id)
		if err != nil {
			return err
		}
		out = httpdto.DisappearingDTO{Enabled: cfg.Enabled, DurationSeconds: cfg.EffectiveDuration()}
		return nil
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(out))
}

func (h *ThreadHandler) CreateInteraction(c *gin.Context) {
	id, ok := threadID(c)
	if !ok {
		return
	}
	var req httpdto.CreateInteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", httpdto.CodeInvalidRequest))
		return
	}
	i := req.ToInteraction(id)
	err := h.store.Write(c.Request.Context(), func(tx *repository.Tx) error {
		return h.interactions.Insert(tx, &i)
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromInteraction(i)))
}

func (h *ThreadHandler) SetInteractionHidden(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Hidden bool `json:"hidden"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", httpdto.CodeInvalidRequest))
		return
	}
	var updated interaction.Interaction
	err := h.store.Write(c.Request.Context(), func(tx *repository.Tx) error {
		i, err := h.interactions.Get(tx, id)
		if err != nil {
			return err
		}
		i.HiddenFromInbox = req.Hidden
		updated = i
		return h.interactions.Update(tx, i)
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromInteraction(updated)))
}

func (h *ThreadHandler) DeleteInteraction(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	err := h.store.Write(c.Request.Context(), func(tx *repository.Tx) error {
		return h.interactions.Remove(tx, id)
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// write runs fn in a write transaction and answers with the thread as
// committed.
func (h *ThreadHandler) write(c *gin.Context, fn func(tx *repository.Tx) error) {
	id, _ := uuid.Parse(c.Param("id"))
	var t thread.Thread
	err := h.store.Write(c.Request.Context(), func(tx *repository.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		var err error
		t, err = h.threads.Get(tx, id)
		return err
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromThread(t, h.clock())))
}

func threadID(c *gin.Context) (uuid.UUID, bool) {
	return pathUUID(c, "id")
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		_ = c.Error(errors.Wrapf(sentinal_errors.ErrInvalidInput, "invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

func syncFlag(c *gin.Context) (bool, bool) {
	raw := c.Query("sync")
	if raw == "" {
		return true, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		_ = c.Error(errors.Wrap(sentinal_errors.ErrInvalidInput, "invalid sync flag"))
		return false, false
	}
	return v, true
}
