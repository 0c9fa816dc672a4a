package query

import (
	"net/url"

	"github.com/google/uuid"
)

const (
	DefaultThreadLimit  = 50
	MessageSearchLimit  = 50
	MinMessageSearchLen = 2
)

// MessageSearch holds the message search parameters.
type MessageSearch struct {
	Query       string
	OtherUserID *uuid.UUID
}

// ParseMessageSearch reads GET /api/messages/search parameters.
func ParseMessageSearch(values url.Values) MessageSearch {
	return MessageSearch{
		Query:       stringParam(values, "query"),
		OtherUserID: uuidParam(values, "userId"),
	}
}
