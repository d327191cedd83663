// Copyright 2024 The go-equa Authors

package permia

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestServiceMultiplierBaseline(t *testing.T) {
	var m ServiceMultiplier
	require.Equal(t, 1.0, m.Total())
}

func TestServiceMultiplierCapsAtMax(t *testing.T) {
	m := ServiceMultiplier{}.
		WithStorage(1.0).
		WithCompute(1.0).
		WithCDN(1.0).
		WithUptime(99.5).
		WithGeographic(1.0)

	require.Equal(t, MaxServiceMultiplier, m.Total())
}

func TestServiceMultiplierPartial(t *testing.T) {
	m := ServiceMultiplier{}.WithStorage(0.5).WithUptime(99.0)
	require.InDelta(t, 1.3, m.Total(), 0.01)
}

func TestApplyMultiplier(t *testing.T) {
	base := big.NewInt(1000)
	m := ServiceMultiplier{}.WithStorage(0.5) // 1.2x
	result := ApplyMultiplier(base, m)
	require.Equal(t, big.NewInt(1200), result)
}

func TestCalculateMultiplierFromProofKinds(t *testing.T) {
	m := CalculateMultiplier([]ServiceProofKind{ServiceProofStorage, ServiceProofCDN}, 99.5, 0)
	require.Greater(t, m.Storage, 0.0)
	require.Greater(t, m.CDN, 0.0)
	require.Equal(t, 0.0, m.Compute)
	require.Equal(t, 0.1, m.Uptime)
}
