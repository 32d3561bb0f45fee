package store

import (
	"context"
	"database/sql"

	"tasksync/internal/model"
)

// SetSignedInUser upserts the user row and marks it the sole signed-in
// user, clearing the flag everywhere else in the same transaction.
func (s *Store) SetSignedInUser(ctx context.Context, u model.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `UPDATE users SET signed_in = 0`); err != nil {
		return wrapErr("user", err)
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO users(id, remote_id, email, display_name, avatar_url, signed_in)
VALUES(?,?,?,?,?,1)
ON CONFLICT(id) DO UPDATE SET
  remote_id = excluded.remote_id,
  email = excluded.email,
  display_name = excluded.display_name,
  avatar_url = excluded.avatar_url,
  signed_in = 1`,
		u.ID, u.RemoteID, u.Email, u.Name, u.AvatarURL,
	)
	if err != nil {
		return wrapErr("user", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.notify()
	return nil
}

// SignedInUser returns the user currently marked signed-in, or
// ErrNotFound when nobody is.
func (s *Store) SignedInUser(ctx context.Context) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, remote_id, email, display_name, avatar_url, signed_in
FROM users WHERE signed_in = 1 LIMIT 1`)

	var u model.User
	var signedIn int
	err := row.Scan(&u.ID, &u.RemoteID, &u.Email, &u.Name, &u.AvatarURL, &signedIn)
	if err == sql.ErrNoRows {
		return model.User{}, model.ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.SignedIn = signedIn != 0
	return u, nil
}

// ClearSignedIn drops the signed-in flag from every user row.
func (s *Store) ClearSignedIn(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET signed_in = 0`); err != nil {
		return wrapErr("user", err)
	}
	s.notify()
	return nil
}
