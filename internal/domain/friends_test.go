package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalPair(t *testing.T) {
	a, b := CanonicalPair("b-user", "a-user")
	assert.Equal(t, "a-user", a)
	assert.Equal(t, "b-user", b)

	c, d := CanonicalPair("a-user", "b-user")
	assert.Equal(t, a, c)
	assert.Equal(t, b, d)
}

func TestCanonicalPairIgnoresCase(t *testing.T) {
	lower := "8f14e45f-ceea-467f-a3f0-2b0d3d0d9a11"
	upper := "8F14E45F-CEEA-467F-A3F0-2B0D3D0D9A11"
	other := "1c9a0b52-7d7c-4b3e-9f4a-6a1d2e3f4b5c"

	a, b := CanonicalPair(upper, other)
	c, d := CanonicalPair(other, lower)
	assert.Equal(t, a, c)
	assert.Equal(t, b, d)
	assert.Equal(t, lower, b)

	x, y := CanonicalPair(upper, lower)
	assert.Equal(t, x, y)
}

func TestNormalizeID(t *testing.T) {
	id, ok := NormalizeID(" 8F14E45F-CEEA-467F-A3F0-2B0D3D0D9A11 ")
	assert.True(t, ok)
	assert.Equal(t, "8f14e45f-ceea-467f-a3f0-2b0d3d0d9a11", id)

	_, ok = NormalizeID("user-1")
	assert.False(t, ok)
	_, ok = NormalizeID("")
	assert.False(t, ok)

	a, b := "8F14E45F-CEEA-467F-A3F0-2B0D3D0D9A11", "nope"
	assert.NoError(t, NormalizeIDs(&a))
	assert.Equal(t, "8f14e45f-ceea-467f-a3f0-2b0d3d0d9a11", a)
	assert.ErrorIs(t, NormalizeIDs(&a, &b), ErrNotFound)
}

func TestFriendshipOther(t *testing.T) {
	f := Friendship{User1ID: "a", User2ID: "b"}

	other, ok := f.Other("a")
	assert.True(t, ok)
	assert.Equal(t, "b", other)

	other, ok = f.Other("b")
	assert.True(t, ok)
	assert.Equal(t, "a", other)

	_, ok = f.Other("c")
	assert.False(t, ok)
}

func TestDecisionStatus(t *testing.T) {
	s, err := DecisionAccept.Status()
	assert.NoError(t, err)
	assert.Equal(t, RequestStatusAccepted, s)
	assert.True(t, s.Terminal())

	s, err = DecisionDecline.Status()
	assert.NoError(t, err)
	assert.Equal(t, RequestStatusDeclined, s)

	_, err = Decision("later").Status()
	assert.ErrorIs(t, err, ErrValidation)
	assert.False(t, RequestStatusPending.Terminal())
}

func TestRequestInvolves(t *testing.T) {
	r := Request{SenderID: "a", ReceiverID: "b"}
	assert.True(t, r.Involves("a", "b"))
	assert.True(t, r.Involves("b", "a"))
	assert.False(t, r.Involves("a", "c"))
}

func TestParseReversePolicy(t *testing.T) {
	p, err := ParseReversePolicy("")
	assert.NoError(t, err)
	assert.Equal(t, ReversePolicyReject, p)

	p, err = ParseReversePolicy("auto-accept-reverse")
	assert.NoError(t, err)
	assert.Equal(t, ReversePolicyAutoAccept, p)

	_, err = ParseReversePolicy("merge")
	assert.Error(t, err)
}

func TestReactionKindsAndPostTypes(t *testing.T) {
	for _, k := range ReactionKinds {
		assert.True(t, k.Valid())
	}
	assert.False(t, ReactionKind("meh").Valid())

	pt, ok := ParsePostType("")
	assert.True(t, ok)
	assert.Equal(t, PostTypeStatus, pt)
	_, ok = ParsePostType("meme")
	assert.False(t, ok)

	assert.Equal(t, 3, ReactionCounts{ReactionWow: 2, ReactionLike: 1}.Total())
}
