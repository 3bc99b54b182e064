package service

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/LimoEisbxr/untis-pro-sub002/config"
	"github.com/LimoEisbxr/untis-pro-sub002/internal/dto"
	"github.com/LimoEisbxr/untis-pro-sub002/pkg/crypto"
	pkgerrors "github.com/LimoEisbxr/untis-pro-sub002/pkg/errors"
)

func TestCredential_SetEncryptsPassword(t *testing.T) {
	repo := &mockCredentialRepo{}
	cryptoCfg := &config.CryptoConfig{
		ActiveKeyVersion: 1,
		Keys:             map[string]string{"1": testKeyHex},
	}
	svc := NewCredentialService(repo, cryptoCfg)

	err := svc.Set(context.Background(), testOwnerID, &dto.SetCredentialRequest{
		School: "gym-musterstadt", Username: "schueler", Password: "geheim123",
	})
	if err != nil {
		t.Fatalf("设置凭据失败: %v", err)
	}

	stored := repo.credential
	if stored == nil {
		t.Fatal("凭据应已落库")
	}
	if string(stored.Secret) == "geheim123" {
		t.Fatal("密码绝不能以明文落库")
	}
	if stored.KeyVersion != 1 {
		t.Errorf("密钥版本期望 1, 实际 %d", stored.KeyVersion)
	}

	// 用对应版本的密钥可以还原明文
	key, _ := hex.DecodeString(testKeyHex)
	plaintext, err := crypto.Open(key, stored.Secret, stored.Nonce)
	if err != nil {
		t.Fatalf("解密失败: %v", err)
	}
	if string(plaintext) != "geheim123" {
		t.Errorf("解密结果期望 geheim123, 实际 %s", plaintext)
	}
}

func TestCredential_GetWithoutRecord(t *testing.T) {
	svc := NewCredentialService(&mockCredentialRepo{}, &config.CryptoConfig{
		ActiveKeyVersion: 1,
		Keys:             map[string]string{"1": testKeyHex},
	})

	if _, err := svc.Get(context.Background(), testOwnerID); !errors.Is(err, pkgerrors.ErrCredentialMissing) {
		t.Errorf("期望 ErrCredentialMissing, 实际: %v", err)
	}
}
