package model

import (
	"strings"
	"time"

	"github.com/dukerupert/chorestar/internal/apperr"
)

type Child struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	AvatarEmoji string    `json:"avatar_emoji"`
	Color       string    `json:"color"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewChild validates the editable fields of a child.
func NewChild(name, avatarEmoji, color string) (Child, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Child{}, apperr.Validation("name is required")
	}
	color = strings.TrimSpace(color)
	if color != "" && !hexColor.MatchString(color) {
		return Child{}, apperr.Validation("color must be #RRGGBB")
	}
	return Child{Name: name, AvatarEmoji: strings.TrimSpace(avatarEmoji), Color: color}, nil
}
