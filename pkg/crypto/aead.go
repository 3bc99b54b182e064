package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// ── 凭据加密原语 ──
//
// Untis 密码以 AES-256-GCM 密文落库，nonce 与密钥版本随行存储。
// 密钥本身来自配置（crypto.keys），支持多版本共存以便轮换：
// 新写入使用 active_key_version，解密按记录中的版本取密钥。

var ErrCiphertextInvalid = errors.New("密文无效或密钥不匹配")

// Seal 用给定密钥加密明文，返回密文与随机 nonce
func Seal(key, plaintext []byte) (ciphertext, nonce []byte, err error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("生成 nonce 失败: %w", err)
	}

	return aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Open 用给定密钥与 nonce 解密密文
func Open(key, ciphertext, nonce []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, ErrCiphertextInvalid
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrCiphertextInvalid
	}
	return plaintext, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("创建 AES cipher 失败: %w", err)
	}
	return cipher.NewGCM(block)
}
