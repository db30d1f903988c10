package feishu

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

// MessageEvent is the payload Feishu/Lark posts for an im.message.receive_v1
// event.
type MessageEvent struct {
	Header struct {
		EventType string `json:"event_type"`
	} `json:"header"`
	Event struct {
		Message struct {
			MessageID   string         `json:"message_id"`
			ChatID      string         `json:"chat_id"`
			ChatType    string         `json:"chat_type"`
			MessageType string         `json:"message_type"`
			Content     string         `json:"content"`
			Mentions    []mentionEvent `json:"mentions"`
		} `json:"message"`
		Sender struct {
			SenderID struct {
				OpenID string `json:"open_id"`
			} `json:"sender_id"`
		} `json:"sender"`
	} `json:"event"`
}

type mentionEvent struct {
	Key string `json:"key"`
	ID  struct {
		OpenID string `json:"open_id"`
	} `json:"id"`
	Name string `json:"name"`
}

type encryptedPayload struct {
	Encrypt string `json:"encrypt"`
}

type challengePayload struct {
	Challenge string `json:"challenge"`
	Token     string `json:"token"`
	Type      string `json:"type"`
}

// NewWebhookHandler returns an HTTP handler for Feishu's event callback:
// it answers the one-time URL verification challenge, decrypts the event
// body when encryptKey is set, and invokes onEvent for message events.
func NewWebhookHandler(verificationToken, encryptKey string, onEvent func(*MessageEvent)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}

		if encryptKey != "" {
			var enc encryptedPayload
			if err := json.Unmarshal(body, &enc); err == nil && enc.Encrypt != "" {
				plain, err := decryptAES(enc.Encrypt, encryptKey)
				if err != nil {
					slog.Warn("feishu webhook decrypt failed", "error", err)
					http.Error(w, "decrypt failed", http.StatusBadRequest)
					return
				}
				body = plain
			}
		}

		var challenge challengePayload
		if err := json.Unmarshal(body, &challenge); err == nil && challenge.Type == "url_verification" {
			if verificationToken != "" && challenge.Token != verificationToken {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"challenge": challenge.Challenge})
			return
		}

		var event MessageEvent
		if err := json.Unmarshal(body, &event); err != nil {
			http.Error(w, "invalid event body", http.StatusBadRequest)
			return
		}
		if event.Header.EventType == "im.message.receive_v1" {
			onEvent(&event)
		}
		w.WriteHeader(http.StatusOK)
	}
}

// decryptAES reverses Feishu's event encryption: base64-decode, then
// AES-256-CBC with key = sha256(encryptKey), IV = first block of ciphertext.
func decryptAES(encoded, encryptKey string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}

	key := sha256.Sum256([]byte(encryptKey))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	if len(raw) < aes.BlockSize {
		return nil, io.ErrUnexpectedEOF
	}

	iv := raw[:aes.BlockSize]
	ciphertext := raw[aes.BlockSize:]
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)

	if n := len(plain); n > 0 {
		if pad := int(plain[n-1]); pad > 0 && pad <= aes.BlockSize {
			plain = plain[:n-pad]
		}
	}
	return plain, nil
}
