package directory

import "context"

type StoreAPI interface {
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context, filter Filter) ([]User, error)
	CreateUser(ctx context.Context, user User) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	SetPassword(ctx context.Context, userID, hash string) error
	Roster(ctx context.Context) ([]RosterEntry, error)
}
