package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccountStatus(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	disabled := MaxLockoutEnd
	future := now.AddDate(1, 0, 0)
	past := now.Add(-time.Hour)

	assert.Equal(t, StatusDisabled, AccountStatus(&disabled, now))
	assert.True(t, strings.HasPrefix(AccountStatus(&future, now), "Locked Out"))
	assert.Equal(t, "Locked Out (until 3/1/2026 12:00 PM)", AccountStatus(&future, now))
	assert.Equal(t, StatusActive, AccountStatus(&past, now))
	assert.Equal(t, StatusActive, AccountStatus(nil, now))
}

func TestIsDisabledToleratesTruncatedSentinel(t *testing.T) {
	truncated := MaxLockoutEnd.Truncate(time.Millisecond)
	assert.True(t, IsDisabled(&truncated))

	wholeSecond := MaxLockoutEnd.Truncate(time.Second)
	assert.True(t, IsDisabled(&wholeSecond))

	almost := MaxLockoutEnd.Add(-time.Hour)
	assert.False(t, IsDisabled(&almost))
}

func TestAsErrors(t *testing.T) {
	var err error = Errors{DuplicateUserName("alice"), InvalidEmail("x")}
	errs, ok := AsErrors(err)
	assert.True(t, ok)
	assert.Len(t, errs, 2)
	assert.Equal(t, "identity: DuplicateUserName, InvalidEmail", err.Error())

	_, ok = AsErrors(ErrNotFound)
	assert.False(t, ok)
}
