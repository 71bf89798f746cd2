package models

import "fmt"

// ReorderScreens returns the screens arranged in the order of ids with Order
// reassigned from zero. ids must name every screen exactly once.
func ReorderScreens(screens []Screen, ids []string) ([]Screen, error) {
	if len(ids) != len(screens) {
		return nil, fmt.Errorf("expected %d screen ids, got %d", len(screens), len(ids))
	}
	byID := make(map[string]Screen, len(screens))
	for _, s := range screens {
		byID[s.ID] = s
	}
	out := make([]Screen, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for i, id := range ids {
		screen, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("unknown screen %q", id)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate screen %q", id)
		}
		seen[id] = true
		screen.Order = i
		out = append(out, screen)
	}
	return out, nil
}

// ValidateScreens checks ids are present and unique and types are known.
func ValidateScreens(screens []Screen) error {
	seen := make(map[string]bool, len(screens))
	for _, s := range screens {
		if s.ID == "" {
			return fmt.Errorf("screen id is required")
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate screen id %q", s.ID)
		}
		seen[s.ID] = true
		if !s.Type.Valid() {
			return fmt.Errorf("screen %q has unknown type %q", s.ID, s.Type)
		}
	}
	return nil
}
