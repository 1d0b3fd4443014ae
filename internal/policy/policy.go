// Package policy defines the password-strength tier catalog.
//
// Tiers form a fixed total order (weak < normal < medium < strong <
// super) and are cumulative: a tier's effective character alphabet is the
// union of its own and all weaker tiers' alphabets, and its effective
// minimum length is the running maximum of the lengths seen while walking
// from the weakest tier up. Note the running maximum means a weaker tier
// configured with a larger length raises the minimum for every stronger
// tier as well.
package policy

import "fmt"

type Tier struct {
	Name      string
	MinLength int
	// Salt is the character alphabet this tier contributes to password
	// generation. Empty means the tier only tightens other constraints.
	Salt string
}

// Names of the built-in tiers, weakest first.
const (
	Weak   = "weak"
	Normal = "normal"
	Medium = "medium"
	Strong = "strong"
	Super  = "super"
)

// Catalog holds an ordered tier list and the currently active tier.
type Catalog struct {
	tiers   []Tier
	current int
}

// Default returns the built-in catalog with "medium" active.
func Default() *Catalog {
	c, _ := New([]Tier{
		{Name: Weak, MinLength: 6, Salt: "abcdefghijklmnopqrstuvwxyz0123456789"},
		{Name: Normal, MinLength: 8},
		{Name: Medium, MinLength: 8, Salt: "ABCDEFGHIJKLMNOPQRSTUVWXYZ"},
		{Name: Strong, MinLength: 8, Salt: `!@#~$%&/()=+?"',.;:-_*\/`},
		{Name: Super, MinLength: 40},
	}, Medium)
	return c
}

// New builds a catalog from an ordered tier list (weakest first) and the
// name of the active tier.
func New(tiers []Tier, current string) (*Catalog, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("policy: empty tier list")
	}
	c := &Catalog{tiers: tiers, current: -1}
	for i, tier := range tiers {
		if tier.Name == current {
			c.current = i
		}
		for _, other := range tiers[:i] {
			if other.Name == tier.Name {
				return nil, fmt.Errorf("policy: duplicate tier %q", tier.Name)
			}
		}
	}
	if c.current < 0 {
		return nil, fmt.Errorf("policy: unknown tier %q", current)
	}
	return c, nil
}

// Current returns the active tier.
func (c *Catalog) Current() Tier {
	return c.tiers[c.current]
}

// Tiers returns all tiers, weakest first.
func (c *Catalog) Tiers() []Tier {
	out := make([]Tier, len(c.tiers))
	copy(out, c.tiers)
	return out
}

// Compare orders two tier names by position: -1 if a is weaker than b,
// 0 if equal, 1 if stronger. Unknown names sort below every known tier.
func (c *Catalog) Compare(a, b string) int {
	ia, ib := c.index(a), c.index(b)
	switch {
	case ia < ib:
		return -1
	case ia > ib:
		return 1
	}
	return 0
}

// AtLeast reports whether the active tier is name or stronger.
func (c *Catalog) AtLeast(name string) bool {
	return c.Compare(c.Current().Name, name) >= 0
}

// CumulativeAlphabet concatenates every tier's alphabet from the weakest
// up to and including name, skipping tiers without one.
func (c *Catalog) CumulativeAlphabet(name string) string {
	salt := ""
	for _, tier := range c.tiers {
		salt += tier.Salt
		if tier.Name == name {
			break
		}
	}
	return salt
}

// EffectiveMinLength returns the maximum MinLength among all tiers from
// the weakest up to and including name.
func (c *Catalog) EffectiveMinLength(name string) int {
	length := 0
	for _, tier := range c.tiers {
		if tier.MinLength > length {
			length = tier.MinLength
		}
		if tier.Name == name {
			break
		}
	}
	return length
}

// WithCurrent returns a copy of the catalog with a different active tier.
func (c *Catalog) WithCurrent(name string) (*Catalog, error) {
	return New(c.tiers, name)
}

func (c *Catalog) index(name string) int {
	for i, tier := range c.tiers {
		if tier.Name == name {
			return i
		}
	}
	return -1
}
