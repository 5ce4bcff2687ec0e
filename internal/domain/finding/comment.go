package finding

import (
	"strings"
	"time"
)

type CommentType string

const (
	CommentZeroRisk     CommentType = "zero_risk"
	CommentVerification CommentType = "verification"
	CommentConsult      CommentType = "consult"
)

// Comment is one entry in a finding's discussion thread.
type Comment struct {
	ID        string
	FindingID string
	Type      CommentType
	Content   string
	Email     string
	CreatedAt time.Time
}

func NewComment(id, findingID string, t CommentType, content, email string, now time.Time) (*Comment, error) {
	switch t {
	case CommentZeroRisk, CommentVerification, CommentConsult:
	default:
		return nil, ErrInvalidCommentType
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyComment
	}
	return &Comment{
		ID:        id,
		FindingID: findingID,
		Type:      t,
		Content:   content,
		Email:     strings.ToLower(email),
		CreatedAt: now.UTC(),
	}, nil
}
