package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LimoEisbxr/untis-pro-sub002/internal/model"
)

// CredentialRepository Untis 凭据数据访问接口
type CredentialRepository interface {
	GetByOwner(ctx context.Context, ownerID string) (*model.Credential, error)
	Upsert(ctx context.Context, credential *model.Credential) error
	Delete(ctx context.Context, ownerID string) error
}

type credentialRepo struct {
	db *gorm.DB
}

func NewCredentialRepo(db *gorm.DB) CredentialRepository {
	return &credentialRepo{db: db}
}

func (r *credentialRepo) GetByOwner(ctx context.Context, ownerID string) (*model.Credential, error) {
	var credential model.Credential
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		First(&credential).Error
	if err != nil {
		return nil, err
	}
	return &credential, nil
}

func (r *credentialRepo) Upsert(ctx context.Context, credential *model.Credential) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "owner_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"school", "username", "secret", "nonce", "key_version", "updated_at",
			}),
		}).
		Create(credential).Error
}

func (r *credentialRepo) Delete(ctx context.Context, ownerID string) error {
	return r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Delete(&model.Credential{}).Error
}
