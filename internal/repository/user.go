package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/rocketscienceinc/damas-backend/internal/apperror"
	"github.com/rocketscienceinc/damas-backend/internal/entity"
	"github.com/rocketscienceinc/damas-backend/internal/repository/storage"
)

const pqUniqueViolation = "23505"

type UserRepository interface {
	Create(ctx context.Context, user entity.User) error
	GetByID(ctx context.Context, id string) (entity.User, error)
	GetByUsername(ctx context.Context, username string) (entity.User, error)
	GetMany(ctx context.Context, ids []string) (map[string]entity.User, error)
	RecordResult(ctx context.Context, winnerID string, playerIDs []string, winScore int) error
}

type userRepository struct {
	conn   *sql.DB
	driver string
}

func NewUserRepository(store *storage.SQLStorage) UserRepository {
	return &userRepository{
		conn:   store.Connection,
		driver: store.Driver,
	}
}

func (that *userRepository) Create(ctx context.Context, user entity.User) error {
	query := `INSERT INTO users (id, username, played, won, score, created_at) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := that.conn.ExecContext(ctx, that.rebind(query),
		user.ID, user.Username, user.Played, user.Won, user.Score, user.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: username %s is taken", apperror.ErrConflict, user.Username)
	}

	if err != nil {
		return fmt.Errorf("can't save user: %w", err)
	}

	return nil
}

func (that *userRepository) GetByID(ctx context.Context, id string) (entity.User, error) {
	query := `SELECT id, username, played, won, score, created_at FROM users WHERE id = ?`

	return that.getOne(ctx, query, id)
}

func (that *userRepository) GetByUsername(ctx context.Context, username string) (entity.User, error) {
	query := `SELECT id, username, played, won, score, created_at FROM users WHERE username = ?`

	return that.getOne(ctx, query, username)
}

// GetMany returns the known users among ids; unknown ids are skipped.
func (that *userRepository) GetMany(ctx context.Context, ids []string) (map[string]entity.User, error) {
	users := make(map[string]entity.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	query := `SELECT id, username, played, won, score, created_at FROM users WHERE id IN (` + placeholders + `)`

	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := that.conn.QueryContext(ctx, that.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("can't find users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var user entity.User
		if err = rows.Scan(&user.ID, &user.Username, &user.Played, &user.Won, &user.Score, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("can't scan user: %w", err)
		}

		users[user.ID] = user
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("can't iterate users: %w", err)
	}

	return users, nil
}

// RecordResult counts a played match for every player and a win with winScore points
// for the winner. An empty winnerID records the match without a winner.
func (that *userRepository) RecordResult(ctx context.Context, winnerID string, playerIDs []string, winScore int) error {
	tx, err := that.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("can't begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	played := that.rebind(`UPDATE users SET played = played + 1 WHERE id = ?`)
	for _, id := range playerIDs {
		if err = that.execOne(ctx, tx, played, id); err != nil {
			return err
		}
	}

	if winnerID != "" {
		won := that.rebind(`UPDATE users SET won = won + 1, score = score + ? WHERE id = ?`)
		if err = that.execOne(ctx, tx, won, winScore, winnerID); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("can't commit result: %w", err)
	}

	return nil
}

func (that *userRepository) execOne(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("can't update user stats: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("can't read affected rows: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: user %v", apperror.ErrNotFound, args[len(args)-1])
	}

	return nil
}

func (that *userRepository) getOne(ctx context.Context, query string, arg string) (entity.User, error) {
	var user entity.User

	err := that.conn.QueryRowContext(ctx, that.rebind(query), arg).
		Scan(&user.ID, &user.Username, &user.Played, &user.Won, &user.Score, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.User{}, fmt.Errorf("%w: user %s", apperror.ErrNotFound, arg)
	}

	if err != nil {
		return entity.User{}, fmt.Errorf("can't find user: %w", err)
	}

	return user, nil
}

// rebind turns "?" placeholders into "$n" for postgres.
func (that *userRepository) rebind(query string) string {
	if that.driver != storage.DriverPostgres {
		return query
	}

	var builder strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			builder.WriteString("$" + strconv.Itoa(n))
			continue
		}
		builder.WriteRune(r)
	}

	return builder.String()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pqUniqueViolation
	}

	return false
}
