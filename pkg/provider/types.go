// Package provider defines the normalized data shapes shared by all upstream
// adapters and the typed error taxonomy the orchestrator branches on.
package provider

import (
	"time"
)

// MatchRecord is the provider-agnostic view of a single finished match from
// one player's perspective. Both adapters must produce identical field
// semantics so cached records are interchangeable regardless of source.
type MatchRecord struct {
	// MatchID is the upstream match identifier.
	MatchID int64 `json:"match_id"`

	// HeroID is the Dota 2 hero id played by the subject.
	HeroID int `json:"hero_id"`

	// HeroName is the hero display name. Best-effort: the secondary
	// provider's schema does not carry it and leaves it empty.
	HeroName string `json:"hero_name,omitempty"`

	Kills   int `json:"kills"`
	Deaths  int `json:"deaths"`
	Assists int `json:"assists"`

	// GoldPerMin and XPPerMin are the per-minute farm metrics.
	GoldPerMin int `json:"gold_per_min"`
	XPPerMin   int `json:"xp_per_min"`

	// NetWorth is the end-of-game net worth. Best-effort on the secondary.
	NetWorth int `json:"net_worth,omitempty"`

	// DurationSeconds is the match length.
	DurationSeconds int `json:"duration_seconds"`

	// Won reports whether the subject's side won. Derived identically in
	// every adapter via DeriveWin.
	Won bool `json:"won"`

	// StartTime is when the match started.
	StartTime time.Time `json:"start_time"`

	// ItemIDs are the six inventory item ids at match end. Empty when the
	// source schema does not expose them.
	ItemIDs []int `json:"item_ids,omitempty"`
}

// HeroStat is an aggregate over a player's games on one hero.
type HeroStat struct {
	HeroID int    `json:"hero_id"`
	Name   string `json:"name,omitempty"`
	Games  int    `json:"games"`
	Wins   int    `json:"wins"`
}

// Profile is the provider-agnostic view of a player profile.
type Profile struct {
	// SteamID is the 32-bit Steam account id as a string.
	SteamID string `json:"steam_id"`

	// Name is the current persona name.
	Name string `json:"name"`

	// AvatarURL is the profile avatar, when the source exposes one.
	AvatarURL string `json:"avatar_url,omitempty"`

	Wins   int `json:"wins"`
	Losses int `json:"losses"`

	// RankTier encodes medal and stars (e.g. 54 = Archon 4). Zero when
	// uncalibrated or hidden.
	RankTier int `json:"rank_tier"`

	// TopHeroes are the most-played heroes, most games first.
	TopHeroes []HeroStat `json:"top_heroes,omitempty"`
}

// HistoryEntry is one row of a match-history listing. A reduced MatchRecord:
// listings never carry item or net-worth detail.
type HistoryEntry struct {
	MatchID         int64     `json:"match_id"`
	HeroID          int       `json:"hero_id"`
	Kills           int       `json:"kills"`
	Deaths          int       `json:"deaths"`
	Assists         int       `json:"assists"`
	DurationSeconds int       `json:"duration_seconds"`
	Won             bool      `json:"won"`
	StartTime       time.Time `json:"start_time"`
}
