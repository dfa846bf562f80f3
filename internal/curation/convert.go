package curation

import "github.com/caribbeat/caribbeat/internal/models"

// FromModel converts a stored content item into its feed document form.
func FromModel(c *models.ContentItem) Content {
	out := Content{
		ID:          c.ID.String(),
		CreatorID:   c.CreatorID.String(),
		CreatorName: c.CreatorName,
		Title:       c.Title,
		MainURL:     c.MainURL,
		ContentType: c.ContentType,
		IsActive:    c.IsActive,
		IsFeatured:  c.IsFeatured,
		ViewCount:   c.ViewCount,
		LikeCount:   c.LikeCount,
		CreatedAt:   c.CreatedAt,
	}
	if c.Description != nil {
		out.Description = *c.Description
	}
	if c.EmbedURL != nil {
		out.EmbedURL = *c.EmbedURL
	}
	if c.CustomThumbnailURL != nil {
		out.CustomThumbnailURL = *c.CustomThumbnailURL
	}
	return out
}
