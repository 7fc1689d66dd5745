package goals

import (
	"context"

	"perfdash/internal/domain/directory"
)

type StoreAPI interface {
	CreateGoal(ctx context.Context, goal Goal) (Goal, error)
	GetGoal(ctx context.Context, id string) (Goal, error)
	ListGoals(ctx context.Context, q ListQuery) ([]Goal, error)
	UpdateProgress(ctx context.Context, goal Goal) (Goal, error)
}

// UserLookup resolves goal owners and the roster used for statistics.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (directory.User, error)
	ListUsers(ctx context.Context, filter directory.Filter) ([]directory.User, error)
}
