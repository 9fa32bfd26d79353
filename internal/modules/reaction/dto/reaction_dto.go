package dto

import "github.com/communelab/commune/internal/entity"

type SetReactionRequest struct {
	Kind entity.ReactionKind `json:"kind" binding:"required,oneof=LIKE DISLIKE NONE"`
}

type SetFavoriteRequest struct {
	Favorite *bool `json:"favorite" binding:"required"`
}

// ReactionResponse is the authoritative item state returned after a settled
// write: the recounted score and the viewer's own reaction in effect.
type ReactionResponse struct {
	Score            int     `json:"score"`
	PersonalReaction *string `json:"personal_reaction"`
}

type FavoriteResponse struct {
	Favorited bool `json:"favorited"`
}

// PersonalView maps a stored kind to the viewer-facing state string
// ("liked"/"disliked"), nil for neutral.
func PersonalView(kind entity.ReactionKind) *string {
	var s string
	switch kind {
	case entity.KindLike:
		s = "liked"
	case entity.KindDislike:
		s = "disliked"
	default:
		return nil
	}
	return &s
}
