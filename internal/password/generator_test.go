package password

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tfmagician/mi-users/internal/common"
	"github.com/tfmagician/mi-users/internal/hashx"
	"github.com/tfmagician/mi-users/internal/policy"
	"github.com/tfmagician/mi-users/internal/rules"
)

func newGenerator(t *testing.T, tier string) (*Generator, *rules.Engine, *hashx.Hasher) {
	t.Helper()
	catalog, err := policy.Default().WithCurrent(tier)
	require.NoError(t, err)
	hasher := hashx.New("test-salt")
	engine := rules.NewEngine(catalog, hasher)
	return NewGenerator(engine, hasher), engine, hasher
}

func TestGenerate_SatisfiesActiveTier(t *testing.T) {
	for _, tier := range []string{policy.Weak, policy.Normal, policy.Medium, policy.Strong} {
		t.Run(tier, func(t *testing.T) {
			gen, engine, hasher := newGenerator(t, tier)

			plain, hash, err := gen.Generate(0)
			require.NoError(t, err)

			min := engine.Catalog().EffectiveMinLength(tier)
			assert.GreaterOrEqual(t, len(plain), min)
			assert.Equal(t, hasher.Sum(plain), hash)
			assert.Nil(t, engine.Validate(rules.Input{Password: hash, Confirm: plain}))
		})
	}
}

func TestGenerate_HonoursRequestedLength(t *testing.T) {
	gen, _, _ := newGenerator(t, policy.Medium)

	plain, _, err := gen.Generate(24)
	require.NoError(t, err)
	assert.Len(t, plain, 24)
}

func TestGenerate_UnsatisfiablePolicyFails(t *testing.T) {
	// a single-character alphabet can never produce a digit and a letter
	catalog, err := policy.New([]policy.Tier{
		{Name: policy.Weak, MinLength: 4, Salt: "a"},
		{Name: policy.Normal, MinLength: 4},
	}, policy.Normal)
	require.NoError(t, err)

	hasher := hashx.New("test-salt")
	gen := NewGenerator(rules.NewEngine(catalog, hasher), hasher)

	_, _, err = gen.Generate(0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrPolicyUnsatisfiable))
}

func TestGenerate_EmptyAlphabetFails(t *testing.T) {
	catalog, err := policy.New([]policy.Tier{{Name: policy.Weak, MinLength: 4}}, policy.Weak)
	require.NoError(t, err)

	hasher := hashx.New("test-salt")
	gen := NewGenerator(rules.NewEngine(catalog, hasher), hasher)

	_, _, err = gen.Generate(0)
	assert.True(t, errors.Is(err, common.ErrPolicyUnsatisfiable))
}
