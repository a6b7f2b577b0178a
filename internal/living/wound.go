package living

import "strings"

// WoundFilter colors generated text with a remembered wound. It reads its
// wound and nothing else; it never touches memory or phase.
type WoundFilter struct {
	wound string
}

// NewWoundFilter returns a filter for wound. An empty wound disables tinting.
func NewWoundFilter(wound string) WoundFilter {
	return WoundFilter{wound: strings.TrimSpace(wound)}
}

// Wound returns the configured wound, or "".
func (w WoundFilter) Wound() string { return w.wound }

// Tint appends a single remembrance footer when a wound is set.
func (w WoundFilter) Tint(text string) string {
	if w.wound == "" {
		return text
	}
	return text + "\n\n(где-то внутри я всё ещё помню: " + strings.ToLower(w.wound) + ")"
}
