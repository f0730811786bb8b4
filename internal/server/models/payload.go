package models

import (
	"encoding/json"
	"strings"
)

// PayloadEnvelope is the client-produced ciphertext blob stored in the
// password attribute. The base ciphertext is encrypted for the owner; the
// sharedWith section carries per-recipient re-encrypted copies. The server
// never decrypts any of it.
type PayloadEnvelope struct {
	EncryptedPassword string             `json:"encryptedPassword"`
	SharedWith        EnvelopeRecipients `json:"sharedWith"`
}

type EnvelopeRecipients struct {
	Users  []UserCiphertext  `json:"users"`
	Groups []GroupCiphertext `json:"groups"`
}

type UserCiphertext struct {
	UserID            string `json:"userId"`
	EncryptedPassword string `json:"encryptedPassword"`
}

type GroupCiphertext struct {
	GroupID           string `json:"groupId"`
	EncryptedPassword string `json:"encryptedPassword"`
}

// ParsePayload decodes the stored password attribute. Legacy rows hold a bare
// ciphertext string instead of a JSON envelope; those are wrapped as the
// entire ciphertext and ok is false so callers can record the anomaly.
func ParsePayload(raw string) (PayloadEnvelope, bool) {
	if strings.HasPrefix(raw, "{") {
		var env PayloadEnvelope
		if err := json.Unmarshal([]byte(raw), &env); err == nil {
			return env, true
		}
	}
	return PayloadEnvelope{EncryptedPassword: raw}, false
}

// GroupCiphertext returns the ciphertext re-encrypted for the given group,
// falling back to the base ciphertext when no per-group copy exists.
func (e PayloadEnvelope) GroupCiphertext(groupID string) string {
	for _, g := range e.SharedWith.Groups {
		if g.GroupID == groupID && g.EncryptedPassword != "" {
			return g.EncryptedPassword
		}
	}
	return e.EncryptedPassword
}

// Encode serializes the envelope back to the stored string form.
func (e PayloadEnvelope) Encode() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
