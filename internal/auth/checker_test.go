package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAdminCheckerRequiresIDs(t *testing.T) {
	_, err := NewAdminChecker(nil)
	assert.Error(t, err)

	_, err = NewAdminChecker([]int64{})
	assert.Error(t, err)
}

func TestIsAdmin(t *testing.T) {
	checker, err := NewAdminChecker([]int64{10, 20})
	require.NoError(t, err)

	assert.True(t, checker.IsAdmin(10))
	assert.True(t, checker.IsAdmin(20))
	assert.False(t, checker.IsAdmin(30))
	assert.False(t, checker.IsAdmin(0))
}

func TestAdminIDsKeepsOrderAndDedupes(t *testing.T) {
	checker, err := NewAdminChecker([]int64{20, 10, 20, 10})
	require.NoError(t, err)

	assert.Equal(t, []int64{20, 10}, checker.AdminIDs())

	// The returned slice is a copy.
	ids := checker.AdminIDs()
	ids[0] = 999
	assert.Equal(t, []int64{20, 10}, checker.AdminIDs())
}
