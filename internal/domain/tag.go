package domain

import (
	"math/rand/v2"
	"time"
)

// Tag classifies links. Tags and links are many-to-many.
type Tag struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	WorkspaceID string    `json:"workspaceId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TagColors is the closed set of tag colours.
var TagColors = []string{"red", "yellow", "green", "blue", "purple", "pink", "brown"}

// RandomTagColor picks a colour for tags created without one.
func RandomTagColor() string {
	return TagColors[rand.IntN(len(TagColors))]
}

// NewTag creates a tag. An empty colour is replaced by a random one.
func NewTag(name, color, workspaceID string) *Tag {
	if color == "" {
		color = RandomTagColor()
	}
	now := time.Now().UTC()
	return &Tag{
		Name:        name,
		Color:       color,
		WorkspaceID: workspaceID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
