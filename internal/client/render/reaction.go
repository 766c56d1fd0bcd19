package render

// Reaction is the like/dislike state attached to one rendered AI message.
type Reaction int

const (
	ReactionNone Reaction = iota
	ReactionLike
	ReactionDislike
)

// ReactionTag returns the transcript marker for a reaction, or "" for none.
func ReactionTag(r Reaction) string {
	switch r {
	case ReactionLike:
		return "[liked]"
	case ReactionDislike:
		return "[disliked]"
	}
	return ""
}

// ToggleReaction applies one like or dislike press to the current state.
// Pressing the active reaction clears it; pressing the other one replaces
// it, so like and dislike are never set at the same time.
func ToggleReaction(current, pressed Reaction) Reaction {
	if pressed == ReactionNone {
		return current
	}
	if current == pressed {
		return ReactionNone
	}
	return pressed
}
