package auth

import (
	"fmt"
)

// AdminChecker answers whether a user is an authorized moderator.
// Authorization is a plain identity comparison against the configured IDs.
type AdminChecker struct {
	adminIDs map[int64]struct{}
	ordered  []int64
}

// NewAdminChecker creates a new AdminChecker from the configured admin IDs.
func NewAdminChecker(adminIDs []int64) (*AdminChecker, error) {
	if len(adminIDs) == 0 {
		return nil, fmt.Errorf("at least one admin ID must be configured")
	}
	ids := make(map[int64]struct{}, len(adminIDs))
	ordered := make([]int64, 0, len(adminIDs))
	for _, id := range adminIDs {
		if _, seen := ids[id]; seen {
			continue
		}
		ids[id] = struct{}{}
		ordered = append(ordered, id)
	}
	return &AdminChecker{adminIDs: ids, ordered: ordered}, nil
}

// IsAdmin reports whether userID is one of the configured administrators.
func (ac *AdminChecker) IsAdmin(userID int64) bool {
	_, ok := ac.adminIDs[userID]
	return ok
}

// AdminIDs returns the configured administrator IDs in configuration order.
func (ac *AdminChecker) AdminIDs() []int64 {
	out := make([]int64, len(ac.ordered))
	copy(out, ac.ordered)
	return out
}
