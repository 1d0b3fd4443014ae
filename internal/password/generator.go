// Package password generates random candidate passwords that satisfy the
// active policy tier.
package password

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/tfmagician/mi-users/internal/common"
	"github.com/tfmagician/mi-users/internal/hashx"
	"github.com/tfmagician/mi-users/internal/rules"
)

// maxAttempts bounds the rejection-sampling loop. Hitting it means the
// policy and rule set are mutually unsatisfiable, a configuration error.
const maxAttempts = 1000

type Generator struct {
	engine *rules.Engine
	hasher *hashx.Hasher
}

func NewGenerator(engine *rules.Engine, hasher *hashx.Hasher) *Generator {
	return &Generator{engine: engine, hasher: hasher}
}

// Generate draws characters uniformly from the cumulative alphabet of the
// active tier until a candidate passes the full rule set. The candidate
// length is the larger of requested and the tier's effective minimum.
// It returns the plaintext candidate together with its hash; nothing is
// persisted.
func (g *Generator) Generate(requested int) (plain, hash string, err error) {
	catalog := g.engine.Catalog()
	current := catalog.Current().Name

	length := catalog.EffectiveMinLength(current)
	if requested > length {
		length = requested
	}
	alphabet := catalog.CumulativeAlphabet(current)
	if alphabet == "" {
		return "", "", fmt.Errorf("tier %q has no alphabet: %w", current, common.ErrPolicyUnsatisfiable)
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate, err := randomString(length, alphabet)
		if err != nil {
			return "", "", fmt.Errorf("read randomness: %w", err)
		}
		digest := g.hasher.Sum(candidate)
		if g.engine.Validate(rules.Input{Password: digest, Confirm: candidate}) == nil {
			return candidate, digest, nil
		}
	}
	return "", "", fmt.Errorf("no candidate passed after %d attempts: %w", maxAttempts, common.ErrPolicyUnsatisfiable)
}

// randomString samples length characters uniformly from alphabet and
// shuffles the result.
func randomString(length int, alphabet string) (string, error) {
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		out[i] = alphabet[n.Int64()]
	}
	for i := len(out) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		j := n.Int64()
		out[i], out[j] = out[j], out[i]
	}
	return string(out), nil
}
