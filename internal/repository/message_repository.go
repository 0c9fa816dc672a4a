package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"classifieds/internal/domain"
	"classifieds/internal/query"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrInvalidMessage  = errors.New("message references a missing user or ad")
)

var messageColumns = []string{
	"m.id", "m.content", "m.sender_id", "m.receiver_id", "m.ad_id", "m.is_read", "m.created_at",
}

var messageDetailColumns = []string{
	"s.name AS sender_name",
	"rc.name AS receiver_name",
	"ad.title AS ad_title",
	"ad.price AS ad_price",
	"ad.is_active AS ad_is_active",
	"(SELECT img.url FROM ad_images img WHERE img.ad_id = m.ad_id AND img.is_main ORDER BY img.created_at LIMIT 1) AS ad_main_image_url",
}

// messageRow is the flat shape of a message joined with its participants and ad.
type messageRow struct {
	domain.Message
	SenderName     string   `db:"sender_name"`
	ReceiverName   string   `db:"receiver_name"`
	AdTitle        *string  `db:"ad_title"`
	AdPrice        *float64 `db:"ad_price"`
	AdIsActive     *bool    `db:"ad_is_active"`
	AdMainImageURL *string  `db:"ad_main_image_url"`
}

func (row messageRow) details() domain.MessageDetails {
	d := domain.MessageDetails{
		Message:  row.Message,
		Sender:   domain.UserRef{ID: row.SenderID, Name: row.SenderName},
		Receiver: domain.UserRef{ID: row.ReceiverID, Name: row.ReceiverName},
	}

	if row.AdID != nil && row.AdTitle != nil {
		d.Ad = &domain.AdRef{
			ID:           *row.AdID,
			Title:        *row.AdTitle,
			MainImageURL: row.AdMainImageURL,
		}
		if row.AdPrice != nil {
			d.Ad.Price = *row.AdPrice
		}
		if row.AdIsActive != nil {
			d.Ad.IsActive = *row.AdIsActive
		}
	}
	return d
}

func toMessageDetails(rows []messageRow) []domain.MessageDetails {
	out := make([]domain.MessageDetails, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.details())
	}
	return out
}

// betweenUsers matches the messages exchanged by a and b in either direction.
func betweenUsers(a, b uuid.UUID) sq.Sqlizer {
	return sq.Or{
		sq.Eq{"m.sender_id": a, "m.receiver_id": b},
		sq.Eq{"m.sender_id": b, "m.receiver_id": a},
	}
}

func involvingUser(id uuid.UUID) sq.Sqlizer {
	return sq.Or{sq.Eq{"m.sender_id": id}, sq.Eq{"m.receiver_id": id}}
}

// MessageRepository defines the interface for message data access
type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	FindDetails(ctx context.Context, id uuid.UUID) (*domain.MessageDetails, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.MessageDetails, error)
	ListThread(ctx context.Context, userID, otherUserID uuid.UUID, page query.Page) ([]domain.MessageDetails, int, error)
	Search(ctx context.Context, userID uuid.UUID, search query.MessageSearch, limit int) ([]domain.MessageDetails, error)
	CountUnread(ctx context.Context, receiverID uuid.UUID) (int, error)
	CountUnreadFrom(ctx context.Context, receiverID, senderID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, receiverID, senderID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type messageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository creates a new instance of MessageRepository
func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepository{db: db}
}

func detailedMessages() sq.SelectBuilder {
	return psql.Select(messageColumns...).
		Columns(messageDetailColumns...).
		From("messages m").
		Join("users s ON s.id = m.sender_id").
		Join("users rc ON rc.id = m.receiver_id").
		LeftJoin("ads ad ON ad.id = m.ad_id")
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	insert := psql.Insert("messages").
		Columns("id", "content", "sender_id", "receiver_id", "ad_id", "is_read", "created_at").
		Values(message.ID, message.Content, message.SenderID, message.ReceiverID,
			nullableUUID(message.AdID), message.IsRead, message.CreatedAt)

	if _, err := exec(ctx, r.db, insert); err != nil {
		if isForeignKeyViolation(err) {
			return ErrInvalidMessage
		}
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *messageRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	message := &domain.Message{}
	err := getOne(ctx, r.db, message, psql.Select(messageColumns...).From("messages m").Where(sq.Eq{"m.id": id}))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to find message by ID: %w", err)
	}
	return message, nil
}

func (r *messageRepository) FindDetails(ctx context.Context, id uuid.UUID) (*domain.MessageDetails, error) {
	var row messageRow
	if err := getOne(ctx, r.db, &row, detailedMessages().Where(sq.Eq{"m.id": id})); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to find message details: %w", err)
	}
	details := row.details()
	return &details, nil
}

// ListForUser returns every message sent or received by userID, newest first.
func (r *messageRepository) ListForUser(ctx context.Context, userID uuid.UUID) (messages []domain.MessageDetails, err error) {
	ctx, span := startSpan(ctx, "MessageRepository.ListForUser")
	span.SetAttributes(attribute.String("user.id", userID.String()))
	defer func() { endSpan(span, err) }()

	rows := []messageRow{}
	err = selectAll(ctx, r.db, &rows, detailedMessages().
		Where(involvingUser(userID)).
		OrderBy("m.created_at DESC", "m.id DESC"))
	if err != nil {
		return nil, fmt.Errorf("failed to list user messages: %w", err)
	}
	return toMessageDetails(rows), nil
}

// ListThread returns one page of the conversation between the two users,
// newest first.
func (r *messageRepository) ListThread(ctx context.Context, userID, otherUserID uuid.UUID, p query.Page) (messages []domain.MessageDetails, total int, err error) {
	ctx, span := startSpan(ctx, "MessageRepository.ListThread")
	defer func() { endSpan(span, err) }()

	where := betweenUsers(userID, otherUserID)
	page := detailedMessages().
		Where(where).
		OrderBy("m.created_at DESC", "m.id DESC").
		Limit(uint64(p.Limit)).
		Offset(p.Offset())
	count := psql.Select("COUNT(*)").From("messages m").Where(where)

	rows, total, err := fetchPage[messageRow](ctx, r.db, page, count)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list thread: %w", err)
	}
	return toMessageDetails(rows), total, nil
}

func (r *messageRepository) Search(ctx context.Context, userID uuid.UUID, search query.MessageSearch, limit int) (messages []domain.MessageDetails, err error) {
	ctx, span := startSpan(ctx, "MessageRepository.Search")
	defer func() { endSpan(span, err) }()

	scope := involvingUser(userID)
	if search.OtherUserID != nil {
		scope = betweenUsers(userID, *search.OtherUserID)
	}

	rows := []messageRow{}
	err = selectAll(ctx, r.db, &rows, detailedMessages().
		Where(sq.And{scope, sq.ILike{"m.content": query.ContainsPattern(search.Query)}}).
		OrderBy("m.created_at DESC", "m.id DESC").
		Limit(uint64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	return toMessageDetails(rows), nil
}

func (r *messageRepository) CountUnread(ctx context.Context, receiverID uuid.UUID) (int, error) {
	return r.countUnread(ctx, sq.Eq{"receiver_id": receiverID, "is_read": false})
}

func (r *messageRepository) CountUnreadFrom(ctx context.Context, receiverID, senderID uuid.UUID) (int, error) {
	return r.countUnread(ctx, sq.Eq{"receiver_id": receiverID, "sender_id": senderID, "is_read": false})
}

func (r *messageRepository) countUnread(ctx context.Context, where sq.Eq) (int, error) {
	var count int
	if err := getOne(ctx, r.db, &count, psql.Select("COUNT(*)").From("messages").Where(where)); err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

// MarkRead flags every unread message from senderID to receiverID as read and
// returns how many changed.
func (r *messageRepository) MarkRead(ctx context.Context, receiverID, senderID uuid.UUID) (int64, error) {
	updated, err := exec(ctx, r.db, psql.Update("messages").
		Set("is_read", true).
		Where(sq.Eq{"receiver_id": receiverID, "sender_id": senderID, "is_read": false}))
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	return updated, nil
}

func (r *messageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	rowsAffected, err := exec(ctx, r.db, psql.Delete("messages").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}
