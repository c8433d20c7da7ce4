package server

import (
	"strings"
)

const maxNicknameLength = 20

const (
	minSpyCount     = 1
	maxSpyCount     = 10
	minGameDuration = 1
	maxGameDuration = 60
	minVoteDuration = 0.5
	maxVoteDuration = 5
	minRoomSize     = 3
	maxRoomSize     = 16
)

func validateNickname(nickname string) (string, error) {
	trimmed := strings.TrimSpace(nickname)
	if trimmed == "" {
		return "", validationError("nickname is required")
	}
	if len(trimmed) > maxNicknameLength {
		return "", validationError("nickname must be %d characters or fewer", maxNicknameLength)
	}
	return trimmed, nil
}

// clampSettings normalizes raw settings into the canonical bounds. Zero
// values fall back to defaults so a partial payload behaves predictably.
func clampSettings(raw Settings) Settings {
	defaults := defaultSettings()
	if raw.SpyCount == 0 {
		raw.SpyCount = defaults.SpyCount
	}
	if raw.GameDuration == 0 {
		raw.GameDuration = defaults.GameDuration
	}
	if raw.VoteDuration == 0 {
		raw.VoteDuration = defaults.VoteDuration
	}
	if raw.MaxPlayers == 0 {
		raw.MaxPlayers = defaults.MaxPlayers
	}
	return Settings{
		SpyCount:           clampInt(raw.SpyCount, minSpyCount, maxSpyCount),
		GameDuration:       clampInt(raw.GameDuration, minGameDuration, maxGameDuration),
		VoteDuration:       clampFloat(raw.VoteDuration, minVoteDuration, maxVoteDuration),
		ModeRoles:          raw.ModeRoles,
		ModeTheme:          raw.ModeTheme,
		ModeSpyChaos:       raw.ModeSpyChaos,
		ModeHiddenThreat:   raw.ModeHiddenThreat,
		ModeShadowAlliance: raw.ModeShadowAlliance,
		MaxPlayers:         clampInt(raw.MaxPlayers, minRoomSize, maxRoomSize),
	}
}

// validateSettings applies cross-field rules on top of clamping. With the
// shadow alliance mode the effective spy count must end up at least 2;
// spy chaos sidesteps that because its count is drawn at round start.
func validateSettings(raw Settings) (Settings, error) {
	clamped := clampSettings(raw)
	if clamped.ModeShadowAlliance && !clamped.ModeSpyChaos && clamped.SpyCount < 2 {
		return Settings{}, validationError("shadow alliance needs at least 2 spies")
	}
	return clamped, nil
}

func clampInt(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}

func clampFloat(value, low, high float64) float64 {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
