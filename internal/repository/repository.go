package repository

import (
	"context"
	"database/sql"

	"github.com/suar-net/arango-go/internal/model"
)

type IRequestRepository interface {
	Create(ctx context.Context, entry *model.HistoryEntry) error
	GetByUsername(ctx context.Context, username string, limit int) ([]*model.HistoryEntry, error)
}

type IRepository interface {
	Request() IRequestRepository
}

type Repository struct {
	request IRequestRepository
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		request: NewRequestRepository(db),
	}
}

func (r *Repository) Request() IRequestRepository {
	return r.request
}
