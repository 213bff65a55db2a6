package service

import (
	"context"
	"fmt"

	"ai-networking-be/internal/dto"
	"ai-networking-be/pkg/conversation/engine"
	"ai-networking-be/pkg/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("ai-networking-be/conversation")

type IConversationService interface {
	SendMessage(ctx context.Context, userId string, req *dto.SendMessageRequest) (*dto.MessageResponse, error)
	GetSession(ctx context.Context, userId string) (*dto.SessionResponse, error)
}

// MessageHandler is satisfied by *engine.Engine.
type MessageHandler interface {
	HandleMessage(ctx context.Context, userID, text string) (*engine.Reply, error)
}

// SessionReader is satisfied by the session repository.
type SessionReader interface {
	Snapshot(ctx context.Context, userID string) (*store.UserSession, bool, error)
}

type conversationService struct {
	handler  MessageHandler
	sessions SessionReader
}

func NewConversationService(handler MessageHandler, sessions SessionReader) IConversationService {
	return &conversationService{
		handler:  handler,
		sessions: sessions,
	}
}

func (s *conversationService) SendMessage(ctx context.Context, userId string, req *dto.SendMessageRequest) (*dto.MessageResponse, error) {
	ctx, span := tracer.Start(ctx, "conversation.HandleMessage")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userId),
		attribute.Int("message.length", len(req.Text)),
	)

	reply, err := s.handler.HandleMessage(ctx, userId, req.Text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("handle message: %w", err)
	}

	span.SetAttributes(
		attribute.String("conversation.action", string(reply.Action)),
		attribute.String("conversation.rule", reply.Rule),
		attribute.String("conversation.state", string(reply.State)),
	)

	return &dto.MessageResponse{
		Reply:   reply.Text,
		Action:  string(reply.Action),
		Rule:    reply.Rule,
		State:   string(reply.State),
		Draft:   reply.Draft,
		Ref:     reply.Ref,
		Missing: reply.Missing,
	}, nil
}

func (s *conversationService) GetSession(ctx context.Context, userId string) (*dto.SessionResponse, error) {
	session, found, err := s.sessions.Snapshot(ctx, userId)
	if err != nil {
		return nil, err
	}
	if !found {
		session = store.NewUserSession(userId)
	}

	res := &dto.SessionResponse{
		UserId:               session.UserID,
		State:                string(session.State),
		LastCommittedRef:     session.LastCommittedRef,
		LastCommittedSubject: session.LastCommittedSubject,
		RecentSubjects:       append([]string{}, session.RecentSubjects...),
		MessageCount:         session.MessageCount,
	}
	if session.HasDraft() {
		res.Draft = session.PendingDraft.ToMap()
		res.DraftRef = session.PendingDraft.Ref
	}
	if !session.LastCommittedAt.IsZero() {
		t := session.LastCommittedAt
		res.LastCommittedAt = &t
	}
	if !session.LastActivityAt.IsZero() {
		t := session.LastActivityAt
		res.LastActivityAt = &t
	}
	return res, nil
}
