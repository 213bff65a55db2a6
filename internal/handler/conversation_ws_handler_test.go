package handler

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-networking-be/internal/dto"
	"ai-networking-be/internal/pkg/logger"
	"ai-networking-be/internal/pkg/serverutils"
	internalWS "ai-networking-be/internal/websocket"
)

type stubConversation struct {
	err error
}

func (s *stubConversation) SendMessage(ctx context.Context, userId string, req *dto.SendMessageRequest) (*dto.MessageResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.MessageResponse{Reply: "got " + req.Text, State: "COLLECTING"}, nil
}

func (s *stubConversation) GetSession(ctx context.Context, userId string) (*dto.SessionResponse, error) {
	return &dto.SessionResponse{}, nil
}

const secret = "test-secret"

func newHandler(svc *stubConversation) *ConversationSocketHandler {
	return NewConversationSocketHandler(svc, internalWS.NewHub(nil, logger.NewNopLogger()), secret, logger.NewNopLogger())
}

func TestHandleText(t *testing.T) {
	h := newHandler(&stubConversation{})

	f := h.HandleText(context.Background(), "u1", "Met Sarah from Acme")
	assert.Equal(t, internalWS.FrameReply, f.Type)
	res := f.Data.(serverutils.BaseResponse[*dto.MessageResponse])
	assert.Equal(t, "got Met Sarah from Acme", res.Data.Reply)

	f = h.HandleText(context.Background(), "u1", "")
	assert.Equal(t, internalWS.FrameError, f.Type)
	assert.Equal(t, fiber.StatusBadRequest, f.Data.(serverutils.BaseResponse[any]).Code)

	f = newHandler(&stubConversation{err: errors.New("boom")}).HandleText(context.Background(), "u1", "hi")
	assert.Equal(t, internalWS.FrameError, f.Type)
	assert.Equal(t, fiber.StatusInternalServerError, f.Data.(serverutils.BaseResponse[any]).Code)
}

func TestServeWsHandshake(t *testing.T) {
	app := fiber.New()
	newHandler(&stubConversation{}).RegisterRoutes(app.Group("/api"))

	token, err := serverutils.SignToken(secret, "u1")
	require.NoError(t, err)

	cases := []struct {
		name string
		url  string
		auth string
		want int
	}{
		{"no token", "/api/ws/conversation", "", fiber.StatusUnauthorized},
		{"bad token", "/api/ws/conversation?token=nope", "", fiber.StatusUnauthorized},
		{"query token without upgrade", "/api/ws/conversation?token=" + token, "", fiber.StatusUpgradeRequired},
		{"header token without upgrade", "/api/ws/conversation", "Bearer " + token, fiber.StatusUpgradeRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.url, strings.NewReader(""))
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}
