package repository

import (
	"context"
	"testing"
	"time"

	"classifieds/internal/domain"
	"classifieds/internal/query"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sendTestMessage(t *testing.T, repo MessageRepository, from, to uuid.UUID, adID *uuid.UUID, content string, at time.Time) *domain.Message {
	t.Helper()
	msg := &domain.Message{
		ID: uuid.New(), Content: content, SenderID: from, ReceiverID: to, AdID: adID, CreatedAt: at,
	}
	require.NoError(t, repo.Create(context.Background(), msg))
	return msg
}

func TestMessageRepository_ThreadAndReadMarking(t *testing.T) {
	db := requireDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	alice := newTestUser(t, db)
	bob := newTestUser(t, db)
	carol := newTestUser(t, db)

	base := time.Now().UTC()
	sendTestMessage(t, repo, alice.ID, bob.ID, nil, "t1", base)
	sendTestMessage(t, repo, bob.ID, alice.ID, nil, "t2", base.Add(time.Second))
	sendTestMessage(t, repo, bob.ID, alice.ID, nil, "t3", base.Add(2*time.Second))
	sendTestMessage(t, repo, carol.ID, alice.ID, nil, "other", base)

	messages, total, err := repo.ListThread(ctx, alice.ID, bob.ID, query.Page{Page: 1, Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, messages, 3)
	assert.Equal(t, "t3", messages[0].Content, "newest first")
	assert.Equal(t, bob.Name, messages[0].Sender.Name)

	unread, err := repo.CountUnread(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, unread)

	fromBob, err := repo.CountUnreadFrom(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, fromBob)

	updated, err := repo.MarkRead(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	unread, err = repo.CountUnread(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
}

func TestMessageRepository_DetailsWithAd(t *testing.T) {
	db := requireDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	seller := newTestUser(t, db)
	buyer := newTestUser(t, db)
	category := newTestCategory(t, db, nil)
	ad := newTestAd(t, db, seller.ID, category.ID, "Chair",
		domain.AdImage{ID: uuid.New(), URL: "http://img/chair.jpg", IsMain: true, CreatedAt: time.Now().UTC()})

	msg := sendTestMessage(t, repo, buyer.ID, seller.ID, &ad.ID, "Still available?", time.Now().UTC())

	details, err := repo.FindDetails(ctx, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, details.Ad)
	assert.Equal(t, "Chair", details.Ad.Title)
	assert.Equal(t, 100.0, details.Ad.Price)
	require.NotNil(t, details.Ad.MainImageURL)
	assert.Equal(t, "http://img/chair.jpg", *details.Ad.MainImageURL)

	all, err := repo.ListForUser(ctx, seller.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, buyer.ID, all[0].Sender.ID)
}

func TestMessageRepository_SearchScopesToUser(t *testing.T) {
	db := requireDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	alice := newTestUser(t, db)
	bob := newTestUser(t, db)
	carol := newTestUser(t, db)
	now := time.Now().UTC()

	sendTestMessage(t, repo, alice.ID, bob.ID, nil, "Price is FIRM", now)
	sendTestMessage(t, repo, carol.ID, alice.ID, nil, "is the price firm?", now)
	sendTestMessage(t, repo, bob.ID, carol.ID, nil, "firm offer", now)

	found, err := repo.Search(ctx, alice.ID, query.MessageSearch{Query: "firm"}, 50)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = repo.Search(ctx, alice.ID, query.MessageSearch{Query: "firm", OtherUserID: &bob.ID}, 50)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Price is FIRM", found[0].Content)
}

func TestMessageRepository_RejectsSelfMessageAndDeletes(t *testing.T) {
	db := requireDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	alice := newTestUser(t, db)
	bob := newTestUser(t, db)

	err := repo.Create(ctx, &domain.Message{
		ID: uuid.New(), Content: "me", SenderID: alice.ID, ReceiverID: alice.ID, CreatedAt: time.Now().UTC(),
	})
	assert.Error(t, err)

	msg := sendTestMessage(t, repo, alice.ID, bob.ID, nil, "bye", time.Now().UTC())
	require.NoError(t, repo.Delete(ctx, msg.ID))
	_, err = repo.FindByID(ctx, msg.ID)
	assert.ErrorIs(t, err, ErrMessageNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, msg.ID), ErrMessageNotFound)
}
