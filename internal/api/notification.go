package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cleancare/backend/internal/middleware"
	"github.com/cleancare/backend/internal/models"
	"github.com/cleancare/backend/internal/notification"
	"github.com/cleancare/backend/internal/repository"
)

// streamInterval is how often the websocket feed re-checks for unread
// notifications.
const streamInterval = 5 * time.Second

// NotificationHandler is the staff notification surface. Creation is
// gated by the scope guard, so a notification aimed at a staff member
// who cannot see the complaint is dropped at the door instead of
// stored and cleaned up later.
type NotificationHandler struct {
	notifications repository.NotificationRepository
	complaints    repository.ComplaintRepository
	guard         *notification.Guard
	logger        *zap.Logger
	upgrader      websocket.Upgrader
}

func NewNotificationHandler(
	notifications repository.NotificationRepository,
	complaints repository.ComplaintRepository,
	guard *notification.Guard,
	logger *zap.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		complaints:    complaints,
		guard:         guard,
		logger:        logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

type createNotificationRequest struct {
	RecipientStaffID string `json:"recipient_staff_id" binding:"required,uuid"`
	ComplaintID      int64  `json:"complaint_id" binding:"required"`
	Title            string `json:"title" binding:"required"`
	Message          string `json:"message" binding:"required"`
	Type             string `json:"type" binding:"required"`
}

// Create handles POST /v1/admin/notifications — the entry point for
// notification generators. The guard decides delivery; a rejected
// notification is acknowledged but never stored.
func (h *NotificationHandler) Create(c *gin.Context) {
	var req createNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	recipientID, _ := uuid.Parse(req.RecipientStaffID)

	complaint, err := h.complaints.GetByID(c.Request.Context(), req.ComplaintID)
	if err != nil {
		h.logger.Error("failed to load complaint for notification", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create notification"})
		return
	}
	if complaint == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "complaint not found"})
		return
	}

	n := &models.Notification{
		RecipientStaffID: recipientID,
		ComplaintID:      req.ComplaintID,
		Title:            req.Title,
		Message:          req.Message,
		Type:             req.Type,
	}

	deliver, err := h.guard.ShouldDeliver(c.Request.Context(), n, complaint)
	if err != nil {
		h.logger.Error("delivery check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create notification"})
		return
	}
	if !deliver {
		c.JSON(http.StatusOK, gin.H{"delivered": false})
		return
	}

	n.Delivered = true
	out, err := h.notifications.Create(c.Request.Context(), n)
	if err != nil {
		h.logger.Error("failed to store notification", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create notification"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"delivered": true, "notification": out})
}

// List handles GET /v1/admin/notifications?unread=true
func (h *NotificationHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	unreadOnly := c.Query("unread") == "true"

	list, err := h.notifications.ListByStaff(c.Request.Context(), middleware.GetSubjectID(c), unreadOnly, limit, offset)
	if err != nil {
		h.logger.Error("failed to list notifications", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
		return
	}
	c.JSON(http.StatusOK, list)
}

// UnreadCount handles GET /v1/admin/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.notifications.UnreadCount(c.Request.Context(), middleware.GetSubjectID(c))
	if err != nil {
		h.logger.Error("failed to count notifications", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkRead handles POST /v1/admin/notifications/:id/read. A read
// notification becomes historical record: reconciliation will never
// touch it again.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), middleware.GetSubjectID(c), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

// Reconcile handles POST /v1/admin/notifications/reconcile — a manual
// sweep of the caller's own inbox. The same sweep runs automatically
// on every assignment change; this exists for operations and tests.
func (h *NotificationHandler) Reconcile(c *gin.Context) {
	res, err := h.guard.Reconcile(c.Request.Context(), middleware.GetSubjectID(c))
	if err != nil {
		h.logger.Error("manual reconciliation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation failed", "result": res})
		return
	}
	c.JSON(http.StatusOK, res)
}

// Stream handles GET /v1/admin/notifications/stream — a websocket feed
// that pushes the staff member's unread notifications as they appear.
// Each push re-reads the store, so notifications removed by a
// reconciliation sweep silently disappear from the feed too.
func (h *NotificationHandler) Stream(c *gin.Context) {
	staffID := middleware.GetSubjectID(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	// Track the highest ID pushed so far; only newer ones go out.
	var lastSent int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			unread, err := h.notifications.ListUnreadByStaff(ctx, staffID)
			if err != nil {
				h.logger.Warn("stream read failed", zap.Error(err))
				return
			}
			for _, n := range unread {
				if n.ID <= lastSent {
					continue
				}
				if err := conn.WriteJSON(n); err != nil {
					return
				}
				lastSent = n.ID
			}
		}
	}
}
