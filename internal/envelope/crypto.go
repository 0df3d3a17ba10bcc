// Package envelope implements the WeChat official-account message
// envelope: the sorted-SHA1 request signatures and the AES-256-CBC
// encrypted payload framing used when the account runs in secure mode.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	apperrors "wxbridge/pkg/errors"
)

const (
	// The platform pads to a 32-byte boundary even though the AES block
	// size is 16.
	padBlockSize = 32

	randomPrefixLen = 16
	lengthFieldLen  = 4
)

// DecodeAESKey turns the 43-character EncodingAESKey from the account
// settings into the raw 32-byte AES key. The platform strips the
// trailing '=' from the base64 form, so it is re-appended here.
func DecodeAESKey(encodingAESKey string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encodingAESKey + "=")
	if err != nil {
		return nil, apperrors.ErrCrypto.WithCause(fmt.Errorf("decode encoding key: %w", err))
	}
	if len(key) != 32 {
		return nil, apperrors.ErrCrypto.WithCause(fmt.Errorf("encoding key decodes to %d bytes, want 32", len(key)))
	}
	return key, nil
}

// Decrypt opens a base64 envelope payload and returns the plaintext XML
// message inside. The decrypted frame is
// random(16) || msgLen(4, big-endian) || msg || appid,
// and the trailing appid must match the configured one.
func Decrypt(encryptedB64 string, key []byte, appID string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encryptedB64)
	if err != nil {
		return "", apperrors.ErrCrypto.WithCause(fmt.Errorf("decode payload: %w", err))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", apperrors.ErrCrypto.WithCause(fmt.Errorf("init cipher: %w", err))
	}

	if len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return "", apperrors.ErrCrypto.WithCause(fmt.Errorf("ciphertext length %d is not a multiple of the block size", len(ciphertext)))
	}

	// Platform scheme: the IV is the first 16 bytes of the key.
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, key[:aes.BlockSize]).CryptBlocks(plaintext, ciphertext)

	plaintext = pkcs7Unpad(plaintext)

	if len(plaintext) < randomPrefixLen+lengthFieldLen {
		return "", apperrors.ErrCrypto.WithCause(fmt.Errorf("decrypted frame too short: %d bytes", len(plaintext)))
	}

	msgLen := binary.BigEndian.Uint32(plaintext[randomPrefixLen : randomPrefixLen+lengthFieldLen])
	msgStart := randomPrefixLen + lengthFieldLen
	msgEnd := msgStart + int(msgLen)
	if msgEnd < msgStart || msgEnd > len(plaintext) {
		return "", apperrors.ErrCrypto.WithCause(fmt.Errorf("message length %d overruns frame of %d bytes", msgLen, len(plaintext)))
	}

	msg := string(plaintext[msgStart:msgEnd])
	frameAppID := string(plaintext[msgEnd:])

	if frameAppID != appID {
		return "", apperrors.ErrAppIDMismatch.WithDetail("frame_appid", frameAppID)
	}

	return msg, nil
}

// Encrypt frames and encrypts a plaintext XML message for the platform.
// A fresh random prefix is generated per call, so encrypting the same
// message twice never yields the same ciphertext.
func Encrypt(plaintextXML string, key []byte, appID string) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", apperrors.ErrCrypto.WithCause(fmt.Errorf("init cipher: %w", err))
	}

	random := make([]byte, randomPrefixLen)
	if _, err := rand.Read(random); err != nil {
		return "", apperrors.ErrCrypto.WithCause(fmt.Errorf("random prefix: %w", err))
	}

	msg := []byte(plaintextXML)
	frame := make([]byte, 0, randomPrefixLen+lengthFieldLen+len(msg)+len(appID))
	frame = append(frame, random...)
	frame = binary.BigEndian.AppendUint32(frame, uint32(len(msg)))
	frame = append(frame, msg...)
	frame = append(frame, []byte(appID)...)

	frame = pkcs7Pad(frame, padBlockSize)

	ciphertext := make([]byte, len(frame))
	cipher.NewCBCEncrypter(block, key[:aes.BlockSize]).CryptBlocks(ciphertext, frame)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// BuildEncryptedReply renders the fixed reply template for secure mode.
// Values are injected inside CDATA unescaped; none of them can contain
// "]]>" (base64, hex digest, digits).
func BuildEncryptedReply(encrypted, signature, timestamp, nonce string) string {
	return fmt.Sprintf(`<xml>
<Encrypt><![CDATA[%s]]></Encrypt>
<MsgSignature><![CDATA[%s]]></MsgSignature>
<TimeStamp>%s</TimeStamp>
<Nonce><![CDATA[%s]]></Nonce>
</xml>`, encrypted, signature, timestamp, nonce)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data), len(data)+padLen)
	copy(padded, data)
	for i := 0; i < padLen; i++ {
		padded = append(padded, byte(padLen))
	}
	return padded
}

// pkcs7Unpad strips PKCS#7 padding leniently: a pad byte outside [1,32]
// means the buffer is returned unpadded rather than rejected, matching
// the platform reference implementation.
func pkcs7Unpad(data []byte) []byte {
	if len(data) == 0 {
		return data
	}
	padLen := int(data[len(data)-1])
	if padLen < 1 || padLen > padBlockSize || padLen > len(data) {
		return data
	}
	return data[:len(data)-padLen]
}
