package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

const defaultHashSalt = "default-salt-change-in-production"

var hashSalt = defaultHashSalt

// InitHashSalt loads the hashing salt from LOG_HASH_SALT.
// In production, set LOG_HASH_SALT so hashes cannot be correlated across deployments.
func InitHashSalt() {
	hashSalt = os.Getenv("LOG_HASH_SALT")
	if hashSalt == "" {
		Log.Warn().Msg("LOG_HASH_SALT not set, using default salt")
		hashSalt = defaultHashSalt
	}
}

// InitHashSaltForTesting sets a fixed salt.
func InitHashSaltForTesting(salt string) {
	hashSalt = salt
}

func saltedHash(value string) string {
	data := fmt.Sprintf("%s:%s", value, hashSalt)
	hash := sha256.Sum256([]byte(data))
	// First 8 hex characters are enough to correlate log lines.
	return hex.EncodeToString(hash[:])[:8]
}

// HashUserID creates a privacy-preserving hash of a Telegram user ID.
func HashUserID(userID int64) string {
	return saltedHash(fmt.Sprintf("%d", userID))
}

// HashChatID creates a privacy-preserving hash of a chat ID.
func HashChatID(chatID int64) string {
	return saltedHash(fmt.Sprintf("chat:%d", chatID))
}

// HashUsername creates a privacy-preserving hash of an API username.
func HashUsername(username string) string {
	if username == "" {
		return "<empty>"
	}
	return saltedHash("user:" + strings.ToLower(username))
}

// SanitizeName redacts an expense name but preserves length information for debugging.
func SanitizeName(name string) string {
	if name == "" {
		return "<empty>"
	}

	words := strings.Fields(name)
	return fmt.Sprintf("<redacted: %d words, %d chars>", len(words), len(name))
}

// SanitizeText is a general-purpose sanitizer for any user-provided text.
func SanitizeText(text string) string {
	if text == "" {
		return "<empty>"
	}

	// For short text, show only the length.
	if len(text) <= 10 {
		return fmt.Sprintf("<%d chars>", len(text))
	}

	return fmt.Sprintf("%s...<%d chars>", text[:3], len(text))
}
