package postgres

import (
	"context"
	"strings"

	"github.com/uptrace/bun"

	"clinicbook/internal/domain"
)

// UserRepo reads the directory projection maintained by the account system.
type UserRepo struct {
	db bun.IDB
}

func NewUserRepo(db bun.IDB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) GetUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	err := r.db.NewSelect().
		Model(&u).
		Where("id = ?", strings.TrimSpace(id)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.User{}, classify(err)
	}
	return u, nil
}
