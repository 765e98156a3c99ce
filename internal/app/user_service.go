package app

import "context"

type UserRepository interface {
	UserExists(ctx context.Context, userID int64) (bool, error)
}

type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) Exists(ctx context.Context, userID int64) (bool, error) {
	if userID <= 0 {
		return false, nil
	}
	return s.repo.UserExists(ctx, userID)
}
