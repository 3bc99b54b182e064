package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/LimoEisbxr/untis-pro-sub002/config"
	"github.com/LimoEisbxr/untis-pro-sub002/internal/dto"
	"github.com/LimoEisbxr/untis-pro-sub002/internal/model"
	"github.com/LimoEisbxr/untis-pro-sub002/internal/repository"
	"github.com/LimoEisbxr/untis-pro-sub002/pkg/crypto"
	pkgerrors "github.com/LimoEisbxr/untis-pro-sub002/pkg/errors"
)

// CredentialService Untis 凭据管理接口
// 密码落库前用当前活跃密钥版本加密，任何接口都不回读明文。
type CredentialService interface {
	Set(ctx context.Context, ownerID string, req *dto.SetCredentialRequest) error
	Get(ctx context.Context, ownerID string) (*dto.CredentialInfo, error)
	Delete(ctx context.Context, ownerID string) error
}

type credentialService struct {
	credentials repository.CredentialRepository
	cryptoCfg   *config.CryptoConfig
}

// NewCredentialService 创建凭据服务
func NewCredentialService(credentials repository.CredentialRepository, cryptoCfg *config.CryptoConfig) CredentialService {
	return &credentialService{credentials: credentials, cryptoCfg: cryptoCfg}
}

func (s *credentialService) Set(ctx context.Context, ownerID string, req *dto.SetCredentialRequest) error {
	key, err := s.cryptoCfg.ActiveKey()
	if err != nil {
		return fmt.Errorf("加载加密密钥失败: %w", err)
	}
	secret, nonce, err := crypto.Seal(key, []byte(req.Password))
	if err != nil {
		return fmt.Errorf("加密凭据失败: %w", err)
	}

	return s.credentials.Upsert(ctx, &model.Credential{
		OwnerID:    ownerID,
		School:     req.School,
		Username:   req.Username,
		Secret:     secret,
		Nonce:      nonce,
		KeyVersion: s.cryptoCfg.ActiveKeyVersion,
	})
}

func (s *credentialService) Get(ctx context.Context, ownerID string) (*dto.CredentialInfo, error) {
	credential, err := s.credentials.GetByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrCredentialMissing
		}
		return nil, fmt.Errorf("读取凭据失败: %w", err)
	}
	return &dto.CredentialInfo{
		School:     credential.School,
		Username:   credential.Username,
		KeyVersion: credential.KeyVersion,
		UpdatedAt:  credential.UpdatedAt,
	}, nil
}

func (s *credentialService) Delete(ctx context.Context, ownerID string) error {
	return s.credentials.Delete(ctx, ownerID)
}
