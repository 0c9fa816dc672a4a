package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"classifieds/internal/domain"
	"classifieds/internal/query"
	"classifieds/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// unreadCountConcurrency caps the parallel unread-count queries of a
// conversation listing.
const unreadCountConcurrency = 4

var (
	ErrReceiverUnavailable = domain.NewNotFound("Receiver not found or inactive")
	ErrMessageToSelf       = domain.NewValidation("Cannot send message to yourself")
	ErrMessageAdInactive   = domain.NewNotFound("Ad not found or inactive")
	ErrMessageNotFound     = domain.NewNotFound("Message not found")
	ErrNotMessageSender    = domain.NewForbidden("Not authorized to delete this message")
	ErrSearchTooShort      = domain.NewValidation("Search query must be at least 2 characters long")
	ErrEmptyMessage        = domain.NewValidation("Message content is required")
)

// MessageInput is a new direct message from the acting user.
type MessageInput struct {
	Content    string
	ReceiverID uuid.UUID
	AdID       *uuid.UUID
}

// MessageService defines the messaging operations of the current user.
type MessageService interface {
	Conversations(ctx context.Context, actor domain.Principal) ([]domain.Conversation, error)
	Thread(ctx context.Context, actor domain.Principal, otherUserID uuid.UUID, page query.Page) (*query.Result[domain.MessageDetails], error)
	Send(ctx context.Context, actor domain.Principal, input MessageInput) (*domain.MessageDetails, error)
	MarkRead(ctx context.Context, actor domain.Principal, otherUserID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, actor domain.Principal) (int, error)
	Search(ctx context.Context, actor domain.Principal, search query.MessageSearch) ([]domain.MessageDetails, error)
	Delete(ctx context.Context, actor domain.Principal, id uuid.UUID) error
}

type messageService struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	adRepo      repository.AdRepository
	now         func() time.Time
	logger      *zap.Logger
}

// NewMessageService creates a new instance of MessageService
func NewMessageService(
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	adRepo repository.AdRepository,
	logger *zap.Logger,
) MessageService {
	return &messageService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		adRepo:      adRepo,
		now:         time.Now,
		logger:      logger,
	}
}

// Conversations lists one entry per counterpart, most recently active first,
// with the number of unread messages from that counterpart.
func (s *messageService) Conversations(ctx context.Context, actor domain.Principal) ([]domain.Conversation, error) {
	messages, err := s.messageRepo.ListForUser(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	conversations := AggregateConversations(actor.UserID, messages)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(unreadCountConcurrency)
	for i := range conversations {
		g.Go(func() error {
			count, err := s.messageRepo.CountUnreadFrom(gctx, actor.UserID, conversations[i].OtherUser.ID)
			if err != nil {
				return err
			}
			conversations[i].UnreadCount = count
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to count unread messages: %w", err)
	}

	return conversations, nil
}

// Thread returns a page of the messages exchanged with otherUserID, oldest
// first, and marks the counterpart's messages to the actor as read.
func (s *messageService) Thread(ctx context.Context, actor domain.Principal, otherUserID uuid.UUID, page query.Page) (*query.Result[domain.MessageDetails], error) {
	messages, total, err := s.messageRepo.ListThread(ctx, actor.UserID, otherUserID, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list thread: %w", err)
	}

	if _, err := s.messageRepo.MarkRead(ctx, actor.UserID, otherUserID); err != nil {
		return nil, fmt.Errorf("failed to mark messages read: %w", err)
	}

	slices.Reverse(messages)
	return query.NewResult(messages, page, total), nil
}

func (s *messageService) Send(ctx context.Context, actor domain.Principal, input MessageInput) (*domain.MessageDetails, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if input.ReceiverID == actor.UserID {
		return nil, ErrMessageToSelf
	}

	receiver, err := s.userRepo.FindByID(ctx, input.ReceiverID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrReceiverUnavailable
		}
		return nil, fmt.Errorf("failed to find receiver: %w", err)
	}
	if !receiver.IsActive {
		return nil, ErrReceiverUnavailable
	}

	if input.AdID != nil {
		ad, err := s.adRepo.FindByID(ctx, *input.AdID)
		if err != nil {
			if errors.Is(err, repository.ErrAdNotFound) {
				return nil, ErrMessageAdInactive
			}
			return nil, fmt.Errorf("failed to find ad: %w", err)
		}
		if !ad.IsActive {
			return nil, ErrMessageAdInactive
		}
	}

	message := &domain.Message{
		ID:         uuid.New(),
		Content:    content,
		SenderID:   actor.UserID,
		ReceiverID: input.ReceiverID,
		AdID:       input.AdID,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		if errors.Is(err, repository.ErrInvalidMessage) {
			return nil, ErrReceiverUnavailable
		}
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	details, err := s.messageRepo.FindDetails(ctx, message.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load message: %w", err)
	}
	return details, nil
}

func (s *messageService) MarkRead(ctx context.Context, actor domain.Principal, otherUserID uuid.UUID) (int64, error) {
	updated, err := s.messageRepo.MarkRead(ctx, actor.UserID, otherUserID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	return updated, nil
}

func (s *messageService) UnreadCount(ctx context.Context, actor domain.Principal) (int, error) {
	count, err := s.messageRepo.CountUnread(ctx, actor.UserID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

func (s *messageService) Search(ctx context.Context, actor domain.Principal, search query.MessageSearch) ([]domain.MessageDetails, error) {
	search.Query = strings.TrimSpace(search.Query)
	if len([]rune(search.Query)) < query.MinMessageSearchLen {
		return nil, ErrSearchTooShort
	}

	messages, err := s.messageRepo.Search(ctx, actor.UserID, search, query.MessageSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	return messages, nil
}

// Delete removes a message. Only its sender may do so.
func (s *messageService) Delete(ctx context.Context, actor domain.Principal, id uuid.UUID) error {
	message, err := s.messageRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return ErrMessageNotFound
		}
		return fmt.Errorf("failed to find message: %w", err)
	}
	if message.SenderID != actor.UserID {
		return ErrNotMessageSender
	}

	if err := s.messageRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return ErrMessageNotFound
		}
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}
