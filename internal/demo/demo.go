// Package demo is a small repository/service façade that gives
// cmd/queryctl something concrete to query and exercises a realistic
// composed predicate end to end. UserService runs it on the in-memory
// backend; cmd/queryctl runs the same predicate on the relational one.
package demo

import (
	"context"

	"github.com/nielslerches/ddd-scaffold/query/ast"
	"github.com/nielslerches/ddd-scaffold/query/memory"
	"github.com/nielslerches/ddd-scaffold/query/queryset"
)

// Giftcard is a reward already issued to a user, tagged with the reason
// it was granted.
type Giftcard struct {
	Value  int
	Reason string
}

// User is a name, a loyalty point balance, and any giftcards already
// issued.
type User struct {
	Name      string
	Points    int
	Giftcards []Giftcard
}

// Users is the seed dataset cmd/queryctl runs both backends over: Jane has enough points but already redeemed a giftcard
// for this reason; John falls short on points; Jane2 has exactly the
// threshold and no giftcard yet; Jane3 falls one point short.
func Users() []User {
	return []User{
		{Name: "Jane", Points: 1200, Giftcards: []Giftcard{{Value: 250, Reason: "welcome giftcard"}}},
		{Name: "John", Points: 600, Giftcards: nil},
		{Name: "Jane2", Points: 1000, Giftcards: nil},
		{Name: "Jane3", Points: 999, Giftcards: nil},
	}
}

// GiftcardEligibility names the reason and value used to decide who
// qualifies for a loyalty giftcard.
type GiftcardEligibility struct {
	MinPoints     int
	GiftcardValue int
	Reason        string
}

// DefaultEligibility: 1000 points buys a 250-value giftcard tagged
// "welcome giftcard".
func DefaultEligibility() GiftcardEligibility {
	return GiftcardEligibility{MinPoints: 1000, GiftcardValue: 250, Reason: "welcome giftcard"}
}

// UserService finds users with enough points who have not already
// redeemed a giftcard for a given reason, composing Filter/Exclude/Has.
type UserService struct {
	Users       queryset.QuerySet[User]
	Eligibility GiftcardEligibility
}

// NewUserService wraps an in-memory queryset over users using the given
// eligibility rule.
func NewUserService(users []User, eligibility GiftcardEligibility) *UserService {
	return &UserService{
		Users:       memory.FromSlice(memory.NewCompiler(nil), users),
		Eligibility: eligibility,
	}
}

// EligibleUser pairs a qualifying User with the giftcard value they are
// due.
type EligibleUser struct {
	User          User
	GiftcardValue int
}

// UsersEligibleForGiftcard returns every user with at least MinPoints
// loyalty points who has not already been issued a giftcard for Reason.
func (s *UserService) UsersEligibleForGiftcard(ctx context.Context) ([]EligibleUser, error) {
	qualifying, err := s.Users.
		Filter(ast.Field("points").Ge(s.Eligibility.MinPoints)).
		Exclude(ast.Has("giftcards").Where(ast.Field("reason").Eq(s.Eligibility.Reason))).
		Slice(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]EligibleUser, len(qualifying))
	for i, u := range qualifying {
		result[i] = EligibleUser{User: u, GiftcardValue: s.Eligibility.GiftcardValue}
	}
	return result, nil
}
