package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/group_sub_server/config"
	"github.com/qs3c/group_sub_server/internal/model"
	"github.com/qs3c/group_sub_server/internal/model/dto"
	"github.com/qs3c/group_sub_server/internal/pkg/jwt"
	"github.com/qs3c/group_sub_server/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrOperatorExists     = errors.New("operator already exists")
)

// AuthService 运营账号登录
type AuthService struct {
	store *repository.Store
	clock clockwork.Clock
	cfg   *config.Config
}

func NewAuthService(store *repository.Store, clock clockwork.Clock, cfg *config.Config) *AuthService {
	return &AuthService{
		store: store,
		clock: clock,
		cfg:   cfg,
	}
}

// Login 校验密码并签发 token，token 中的运营 ID 即审批人 ID
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	store := s.store.WithContext(ctx)

	op, err := store.Operators.GetByUsername(req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := jwt.GenerateToken(op.ID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	if err := store.Operators.UpdateLastLogin(op.ID, s.clock.Now()); err != nil {
		log.Warn().Err(err).Int64("operator_id", op.ID).Msg("failed to update last login")
	}

	return &dto.LoginResponse{
		Token: token,
		Operator: &dto.OperatorInfo{
			ID:       op.ID,
			Username: op.Username,
		},
	}, nil
}

// CreateOperator 新建运营账号
func (s *AuthService) CreateOperator(ctx context.Context, username, password string) (*model.Operator, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(password) < 8 {
		return nil, newError(KindInvalidInput, "auth.create_operator", "Username required and password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.createWithHash(ctx, username, string(hash))
}

func (s *AuthService) createWithHash(ctx context.Context, username, hash string) (*model.Operator, error) {
	store := s.store.WithContext(ctx)

	exists, err := store.Operators.ExistsByUsername(username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrOperatorExists
	}

	op := &model.Operator{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.clock.Now(),
	}
	if err := store.Operators.Create(op); err != nil {
		return nil, err
	}
	return op, nil
}

// SeedOperators 写入配置中的运营账号，已存在的跳过
func (s *AuthService) SeedOperators(ctx context.Context) (int, error) {
	created := 0
	for _, oc := range s.cfg.Operators {
		if oc.Username == "" || oc.PasswordHash == "" {
			continue
		}
		if _, err := bcrypt.Cost([]byte(oc.PasswordHash)); err != nil {
			log.Warn().Str("username", oc.Username).Msg("operator password_hash is not a bcrypt hash, skipped")
			continue
		}

		_, err := s.createWithHash(ctx, oc.Username, oc.PasswordHash)
		if errors.Is(err, ErrOperatorExists) {
			continue
		}
		if err != nil {
			return created, err
		}
		created++
	}

	if created > 0 {
		log.Info().Int("operators", created).Msg("operators seeded from config")
	}
	return created, nil
}

// GetOperator 按 ID 查询运营
func (s *AuthService) GetOperator(ctx context.Context, id int64) (*model.Operator, error) {
	op, err := s.store.WithContext(ctx).Operators.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(KindNotFound, "auth.get_operator", "Operator not found")
	}
	return op, err
}
