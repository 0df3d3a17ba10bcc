package message

import (
	"encoding/xml"
	"fmt"

	apperrors "wxbridge/pkg/errors"
)

// Parse decodes a platform XML body into a Message. The three
// load-bearing fields must be present; everything else defaults to the
// zero value when absent.
func Parse(body []byte) (*Message, error) {
	var msg Message
	if err := xml.Unmarshal(body, &msg); err != nil {
		return nil, apperrors.ErrMalformedMessage.WithCause(err)
	}

	if msg.FromUserName == "" || msg.ToUserName == "" || msg.MsgType == "" {
		return nil, apperrors.ErrMalformedMessage.WithCause(
			fmt.Errorf("missing required field (FromUserName=%q, ToUserName=%q, MsgType=%q)",
				msg.FromUserName, msg.ToUserName, msg.MsgType))
	}

	return &msg, nil
}

type encryptedEnvelope struct {
	Encrypt string `xml:"Encrypt"`
}

// ExtractEncrypted pulls the base64 payload out of an encrypted-mode
// envelope body.
func ExtractEncrypted(body []byte) (string, error) {
	var env encryptedEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return "", apperrors.ErrMalformedMessage.WithCause(err)
	}
	if env.Encrypt == "" {
		return "", apperrors.ErrMalformedMessage.WithCause(fmt.Errorf("missing Encrypt element"))
	}
	return env.Encrypt, nil
}
