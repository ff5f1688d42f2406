package demo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nielslerches/ddd-scaffold/internal/demo"
)

// S5 — service-level predicate.
func TestUsersEligibleForGiftcard(t *testing.T) {
	service := demo.NewUserService(demo.Users(), demo.DefaultEligibility())

	result, err := service.UsersEligibleForGiftcard(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.Equal(t, "Jane2", result[0].User.Name)
	require.Equal(t, 250, result[0].GiftcardValue)
}
