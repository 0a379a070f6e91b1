package service

import (
	"context"

	"github.com/suar-net/arango-go/internal/model"
)

type IAuthService interface {
	Login(ctx context.Context, req *model.DTOLoginRequest) (*model.DTOLoginResponse, error)
	ValidateToken(ctx context.Context, tokenString string) (*model.Claims, error)
}

type IGatewayService interface {
	ProcessRequest(ctx context.Context, username string, dto *model.DTORequest) (*model.DTOResponse, error)
	History(ctx context.Context, username string, limit int) ([]*model.HistoryEntry, error)
	Aliases() []string
}
