// Copyright 2024 The go-equa Authors

package permia

import "math/big"

// MaxServiceMultiplier is the ceiling the combined bonus multiplier is
// capped at.
const MaxServiceMultiplier = 2.0

// ServiceProofKind names a kind of attested service a validator may supply
// proof of. Verifying that a proof of a given kind is genuine is the
// external service-proof subsystem; this package only knows that a proof
// of some kind was presented.
type ServiceProofKind int

const (
	ServiceProofStorage ServiceProofKind = iota
	ServiceProofCompute
	ServiceProofCDN
)

// ServiceMultiplier is the additive bundle of reward bonuses a block
// producer may qualify for, capped at MaxServiceMultiplier once totaled.
type ServiceMultiplier struct {
	Storage    float64
	Compute    float64
	CDN        float64
	Uptime     float64
	Geographic float64
}

// Total sums the bonuses on top of the 1.0 baseline, capped at
// MaxServiceMultiplier.
func (m ServiceMultiplier) Total() float64 {
	sum := 1.0 + m.Storage + m.Compute + m.CDN + m.Uptime + m.Geographic
	if sum > MaxServiceMultiplier {
		return MaxServiceMultiplier
	}
	return sum
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// WithStorage sets the storage bonus from a proof quality in [0,1]: 0.1 to
// 0.3.
func (m ServiceMultiplier) WithStorage(quality float64) ServiceMultiplier {
	m.Storage = 0.1 + clamp01(quality)*0.2
	return m
}

// WithCompute sets the compute bonus from a proof quality in [0,1]: 0.1 to
// 0.3.
func (m ServiceMultiplier) WithCompute(quality float64) ServiceMultiplier {
	m.Compute = 0.1 + clamp01(quality)*0.2
	return m
}

// WithCDN sets the CDN bonus from a bandwidth-served factor in [0,1]: 0.05
// to 0.15.
func (m ServiceMultiplier) WithCDN(bandwidthFactor float64) ServiceMultiplier {
	m.CDN = 0.05 + clamp01(bandwidthFactor)*0.1
	return m
}

// WithUptime sets the uptime bonus: 0.1 at 99%+, 0.05 at 95%+, 0 below.
func (m ServiceMultiplier) WithUptime(uptimePercent float64) ServiceMultiplier {
	switch {
	case uptimePercent >= 99.0:
		m.Uptime = 0.1
	case uptimePercent >= 95.0:
		m.Uptime = 0.05
	default:
		m.Uptime = 0
	}
	return m
}

// WithGeographic sets the geographic bonus from a region-rarity factor in
// [0,1]: 0.2 to 0.5.
func (m ServiceMultiplier) WithGeographic(rarityFactor float64) ServiceMultiplier {
	m.Geographic = 0.2 + clamp01(rarityFactor)*0.3
	return m
}

// CalculateMultiplier builds a ServiceMultiplier from the proof kinds a
// producer presented plus its uptime and geographic rarity, using a fixed
// 0.5 "quality" for any presented proof (this package takes proof
// presence as given; judging proof quality is the external service-proof
// subsystem's job).
func CalculateMultiplier(kinds []ServiceProofKind, uptimePercent, geographicRarity float64) ServiceMultiplier {
	m := ServiceMultiplier{}

	var hasStorage, hasCompute, hasCDN bool
	for _, k := range kinds {
		switch k {
		case ServiceProofStorage:
			hasStorage = true
		case ServiceProofCompute:
			hasCompute = true
		case ServiceProofCDN:
			hasCDN = true
		}
	}

	if hasStorage {
		m = m.WithStorage(0.5)
	}
	if hasCompute {
		m = m.WithCompute(0.5)
	}
	if hasCDN {
		m = m.WithCDN(0.5)
	}
	m = m.WithUptime(uptimePercent)
	if geographicRarity > 0 {
		m = m.WithGeographic(geographicRarity)
	}
	return m
}

// ApplyMultiplier scales a base reward by m's total multiplier.
func ApplyMultiplier(baseReward *big.Int, m ServiceMultiplier) *big.Int {
	factor := m.Total()
	// Scale at 1e6 fixed point so the final multiplication is big.Int
	// integer arithmetic, with no big.Float involved.
	const scale = 1_000_000
	factorFixed := int64(factor * scale)
	scaled := new(big.Int).Mul(baseReward, big.NewInt(factorFixed))
	return scaled.Div(scaled, big.NewInt(scale))
}
