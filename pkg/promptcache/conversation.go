package promptcache

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// conversationIDLength is the hex-prefix length of derived ids.
const conversationIDLength = 16

// ConversationID derives a stable identifier for a conversation from the
// text of its first turn, so repeated calls over the same growing
// conversation key the same placement state. An empty conversation gets a
// random id, which effectively makes its state unshareable.
func ConversationID(turns []Turn) string {
	if len(turns) == 0 {
		return uuid.New().String()
	}

	hash := sha256.New()
	hasText := false
	for _, block := range turns[0].Content {
		if block.Type == ContentTypeText && block.Text != "" {
			hash.Write([]byte(block.Text))
			hasText = true
		}
	}
	if !hasText {
		return uuid.New().String()
	}
	return hex.EncodeToString(hash.Sum(nil))[:conversationIDLength]
}
