package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/ManuelReschke/CleanConnect/app/models"
)

// DefaultAvatarSize is used when size is not positive
const DefaultAvatarSize = 200

// GravatarURL returns the Gravatar avatar of email, falling back to the
// generic silhouette for unknown addresses.
func GravatarURL(email string, size int) string {
	if size <= 0 {
		size = DefaultAvatarSize
	}
	sum := sha256.Sum256([]byte(models.NormalizeEmail(email)))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%s?s=%d&d=mp", hex.EncodeToString(sum[:]), size)
}
