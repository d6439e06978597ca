package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/purplepatch/notify-hub/internal/domain/user"
)

// UserRepository implements user.Repository for PostgreSQL.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

const userColumns = `id, username, full_name, email, phone_number,
	on_quizard, on_brainburst, on_triviapark, contact_profile_id, created_at`

// GetByID returns a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	row := r.conn.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	u, err := scanUser(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// GetByUsername returns a user by exact username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	row := r.conn.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username)

	u, err := scanUser(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

// List returns all users ordered by ID.
func (r *UserRepository) List(ctx context.Context) ([]*user.User, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SetContactProfile attaches a contact profile to a user.
func (r *UserRepository) SetContactProfile(ctx context.Context, userID, profileID int64) error {
	tag, err := r.conn.Exec(ctx,
		`UPDATE users SET contact_profile_id = $1 WHERE id = $2`, profileID, userID)
	if err != nil {
		return fmt.Errorf("set contact profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.FullName,
		&u.Email,
		&u.PhoneNumber,
		&u.OnQuizard,
		&u.OnBrainburst,
		&u.OnTriviapark,
		&u.ContactProfileID,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
