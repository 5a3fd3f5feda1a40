package collab

import (
	"net/http"
	"strconv"

	"offer-collab-service/internal/domain"
	"offer-collab-service/internal/errors"
	"offer-collab-service/internal/utils"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func getOfferID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid offer id", err))
		return 0, false
	}
	return id, true
}

type CreateOfferRequest struct {
	Fields domain.FieldMap `json:"fields" binding:"required"`
}

// Create seeds a new negotiable offer. Internal route: the marketplace API
// calls it when a deal negotiation opens.
func (h *Handler) Create(c *gin.Context) {
	var form CreateOfferRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	o, err := h.service.CreateOffer(c.Request.Context(), form.Fields)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, o)
}

func (h *Handler) Show(c *gin.Context) {
	docID, ok := getOfferID(c)
	if !ok {
		return
	}

	o, err := h.service.GetOffer(c.Request.Context(), docID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, o)
}

func (h *Handler) StartSession(c *gin.Context) {
	docID, ok := getOfferID(c)
	if !ok {
		return
	}

	userID, _ := c.Get("user_id")
	role, _ := c.Get("user_role")

	sess, err := h.service.StartSession(c.Request.Context(), docID, userID.(uint64), role.(string))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, sess)
}

type HeartbeatRequest struct {
	EditingFields []string `json:"editing_fields"`
}

func (h *Handler) Heartbeat(c *gin.Context) {
	var form HeartbeatRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	if err := h.service.Heartbeat(c.Request.Context(), c.Param("sessionId"), form.EditingFields); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) EndSession(c *gin.Context) {
	if err := h.service.EndSession(c.Request.Context(), c.Param("sessionId")); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) ListActiveEditors(c *gin.Context) {
	docID, ok := getOfferID(c)
	if !ok {
		return
	}

	sessions, err := h.service.ListActiveEditors(c.Request.Context(), docID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

type SubmitUpdateRequest struct {
	SessionID       string          `json:"session_id" binding:"required"`
	Changes         domain.FieldMap `json:"changes" binding:"required"`
	ExpectedVersion *uint64         `json:"expected_version" binding:"required"`
}

func (h *Handler) SubmitUpdate(c *gin.Context) {
	docID, ok := getOfferID(c)
	if !ok {
		return
	}

	var form SubmitUpdateRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	result, err := h.service.SubmitUpdate(
		c.Request.Context(),
		docID,
		form.SessionID,
		form.Changes,
		*form.ExpectedVersion,
	)
	if err != nil {
		c.Error(err)
		return
	}

	// a version conflict is a normal outcome, answered with the full result
	// body so the client can merge and resubmit
	if result.Conflict != nil {
		c.JSON(http.StatusConflict, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) ShowHistory(c *gin.Context) {
	docID, ok := getOfferID(c)
	if !ok {
		return
	}

	limit, offset := utils.GetLimitOffset(c)
	page, err := h.service.ReadHistory(c.Request.Context(), docID, limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, page)
}
