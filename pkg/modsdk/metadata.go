// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

package modsdk

// Metadata describes a game module to the host. It is owned by the
// module and immutable once constructed; derived values like the
// difficulty bounds are computed on read, never stored.
type Metadata struct {
	Name              string
	Version           string
	Author            string
	Description       string
	MinPlayers        int
	MaxPlayers        int
	EstimatedDuration int // minutes
	SupportedModes    []string
	// SupportedDifficulties are the difficulty levels the module offers,
	// higher meaning harder. Order is not significant.
	SupportedDifficulties []int
}

// MinDifficulty returns the lowest supported difficulty, or 0 if none.
func (m Metadata) MinDifficulty() int {
	if len(m.SupportedDifficulties) == 0 {
		return 0
	}
	minD := m.SupportedDifficulties[0]
	for _, d := range m.SupportedDifficulties[1:] {
		if d < minD {
			minD = d
		}
	}
	return minD
}

// MaxDifficulty returns the highest supported difficulty, or 0 if none.
func (m Metadata) MaxDifficulty() int {
	if len(m.SupportedDifficulties) == 0 {
		return 0
	}
	maxD := m.SupportedDifficulties[0]
	for _, d := range m.SupportedDifficulties[1:] {
		if d > maxD {
			maxD = d
		}
	}
	return maxD
}

// ToMessage serializes the metadata as the plain mapping the host
// returns for a {"function": "metadata"} request.
func (m Metadata) ToMessage() Message {
	modes := make([]any, len(m.SupportedModes))
	for i, mode := range m.SupportedModes {
		modes[i] = mode
	}
	difficulties := make([]any, len(m.SupportedDifficulties))
	for i, d := range m.SupportedDifficulties {
		difficulties[i] = d
	}
	return Message{
		FunctionKey:                  FunctionMetadata,
		"name":                       m.Name,
		"version":                    m.Version,
		"description":                m.Description,
		"author":                     m.Author,
		"min_players":                m.MinPlayers,
		"max_players":                m.MaxPlayers,
		"estimated_duration_minutes": m.EstimatedDuration,
		"supported_modes":            modes,
		"supported_difficulties":     difficulties,
	}
}
