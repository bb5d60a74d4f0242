package models

import (
	"time"

	"github.com/soltrees/api/internal/types"
)

// Tree is a placed marker on the shared terrain. Immutable after creation
// except for the click counter. Positions are stored as text to preserve
// whatever precision the client sent.
type Tree struct {
	ID            string          `json:"id"`
	PositionX     string          `json:"position_x"`
	PositionY     string          `json:"position_y"`
	UserAddress   string          `json:"userAddress"`
	Handle        string          `json:"handle"`
	ProfilePicURL string          `json:"profilePicUrl"`
	Description   string          `json:"description"`
	Link          string          `json:"link"`
	Size          types.TreeSize  `json:"size"`
	Shape         types.TreeShape `json:"type"`
	Category      string          `json:"category"`
	Clicks        int64           `json:"clicks"`
	CreatedAt     time.Time       `json:"createdAt"`
}
