package finding

import "context"

type Repository interface {
	Get(ctx context.Context, id string) (*Finding, error)
	Create(ctx context.Context, f *Finding) error
	Update(ctx context.Context, f *Finding) error
	ListByGroup(ctx context.Context, groupName string) ([]*Finding, error)
}

type CommentRepository interface {
	Add(ctx context.Context, c *Comment) error
	ListByFinding(ctx context.Context, findingID string) ([]*Comment, error)
}
