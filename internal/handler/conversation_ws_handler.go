package handler

import (
	"context"
	"errors"

	"ai-networking-be/internal/dto"
	"ai-networking-be/internal/pkg/logger"
	"ai-networking-be/internal/pkg/serverutils"
	"ai-networking-be/internal/service"
	internalWS "ai-networking-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// ConversationSocketHandler serves the live conversation channel: messages in,
// replies and lifecycle events out.
type ConversationSocketHandler struct {
	service service.IConversationService
	hub     *internalWS.Hub
	secret  string
	logger  logger.ILogger
}

func NewConversationSocketHandler(svc service.IConversationService, hub *internalWS.Hub, secret string, log logger.ILogger) *ConversationSocketHandler {
	return &ConversationSocketHandler{
		service: svc,
		hub:     hub,
		secret:  secret,
		logger:  log,
	}
}

// ServeWs authenticates the handshake and upgrades the connection.
func (h *ConversationSocketHandler) ServeWs(c *fiber.Ctx) error {
	// Browsers cannot set headers on a websocket handshake, so the query wins.
	tokenStr := c.Query("token")
	if tokenStr == "" {
		tokenStr = serverutils.BearerToken(c)
	}

	userID, err := serverutils.ParseUserID(h.secret, tokenStr)
	if err != nil {
		h.logger.Warn(logger.ModuleHTTP, "Rejected WebSocket handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, err.Error()))
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info(logger.ModuleHTTP, "Starting WebSocket session", map[string]interface{}{"user_id": userID})
		internalWS.ServeWs(context.Background(), h.hub, conn, userID, h.HandleText)
		h.logger.Info(logger.ModuleHTTP, "WebSocket session ended", map[string]interface{}{"user_id": userID})
	})(c)
}

// HandleText runs one socket message through the same path as the REST route.
func (h *ConversationSocketHandler) HandleText(ctx context.Context, userID, text string) internalWS.Frame {
	req := dto.SendMessageRequest{Text: text}
	if err := serverutils.ValidateRequest(req); err != nil {
		return errorFrame(err)
	}

	res, err := h.service.SendMessage(ctx, userID, &req)
	if err != nil {
		h.logger.Error(logger.ModuleHTTP, "Socket message failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return errorFrame(err)
	}
	return internalWS.Frame{Type: internalWS.FrameReply, Data: serverutils.SuccessResponse("Message handled", res)}
}

func errorFrame(err error) internalWS.Frame {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code, msg = fe.Code, fe.Message
	}
	return internalWS.Frame{Type: internalWS.FrameError, Data: serverutils.ErrorResponse(code, msg)}
}

func (h *ConversationSocketHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws/conversation", h.ServeWs)
}
