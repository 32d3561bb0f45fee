package repo

import (
	"context"

	"tasksync/internal/model"
	"tasksync/internal/store"
)

// SignedInUser returns the account the local replica belongs to.
func (r *Repository) SignedInUser(ctx context.Context) (model.User, error) {
	return r.store.SignedInUser(ctx)
}

// SetSignedInUser records the account after a successful login.
func (r *Repository) SetSignedInUser(ctx context.Context, email string) error {
	u := model.User{ID: store.NewID(), Email: email, SignedIn: true}
	return r.store.SetSignedInUser(ctx, u)
}

// ClearSignedInUser forgets the account on logout. Local data stays.
func (r *Repository) ClearSignedInUser(ctx context.Context) error {
	return r.store.ClearSignedIn(ctx)
}

// PendingChanges counts local mutations the remote has not acknowledged
// yet: dirty rows and tombstones, lists and tasks alike.
func (r *Repository) PendingChanges(ctx context.Context) (int, error) {
	lists, err := r.store.AllTaskLists(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, l := range lists {
		if l.Dirty || l.Deleted {
			n++
		}
		tasks, err := r.store.AllTasksForList(ctx, l.ID)
		if err != nil {
			return 0, err
		}
		for _, t := range tasks {
			if t.Dirty || t.Deleted {
				n++
			}
		}
	}
	return n, nil
}
