package opendota

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/perceforge/dotafetch/pkg/provider"
)

// Wire types mirroring the OpenDota REST payloads.

type playerMatch struct {
	MatchID    int64 `json:"match_id"`
	PlayerSlot int   `json:"player_slot"`
	RadiantWin bool  `json:"radiant_win"`
	Duration   int   `json:"duration"`
	HeroID     int   `json:"hero_id"`
	StartTime  int64 `json:"start_time"`
	Kills      int   `json:"kills"`
	Deaths     int   `json:"deaths"`
	Assists    int   `json:"assists"`
	GoldPerMin int   `json:"gold_per_min"`
	XPPerMin   int   `json:"xp_per_min"`
}

type playerInfo struct {
	Profile *struct {
		PersonaName string `json:"personaname"`
		AvatarFull  string `json:"avatarfull"`
	} `json:"profile"`
	RankTier int `json:"rank_tier"`
}

type winLoss struct {
	Win  int `json:"win"`
	Lose int `json:"lose"`
}

// heroStat's hero_id arrives as a string in this endpoint, unlike
// everywhere else in the API.
type heroStat struct {
	HeroID string `json:"hero_id"`
	Games  int    `json:"games"`
	Win    int    `json:"win"`
}

// LastMatch fetches and normalizes the subject's most recent match.
// Item ids and net worth are not part of the recent-matches schema and
// stay empty.
func (c *Client) LastMatch(ctx context.Context, steamID string) (*provider.MatchRecord, error) {
	var matches []playerMatch
	if err := c.get(ctx, playerPath(steamID, "/recentMatches"), nil, &matches); err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		return nil, &provider.Error{Kind: provider.KindNotFound, Provider: Name, Message: "no matches for player"}
	}

	m := matches[0]
	return &provider.MatchRecord{
		MatchID:         m.MatchID,
		HeroID:          m.HeroID,
		Kills:           m.Kills,
		Deaths:          m.Deaths,
		Assists:         m.Assists,
		GoldPerMin:      m.GoldPerMin,
		XPPerMin:        m.XPPerMin,
		DurationSeconds: m.Duration,
		Won:             provider.DeriveWin(m.PlayerSlot, m.RadiantWin),
		StartTime:       time.Unix(m.StartTime, 0).UTC(),
	}, nil
}

// Profile fetches and normalizes the subject's profile. Three endpoints
// compose one normalized shape: the base profile, the win/loss totals and
// the per-hero aggregates.
func (c *Client) Profile(ctx context.Context, steamID string) (*provider.Profile, error) {
	var info playerInfo
	if err := c.get(ctx, playerPath(steamID, ""), nil, &info); err != nil {
		return nil, err
	}
	if info.Profile == nil {
		// OpenDota answers 200 with an empty object for unknown ids.
		return nil, &provider.Error{Kind: provider.KindNotFound, Provider: Name, Message: "player not found"}
	}

	var wl winLoss
	if err := c.get(ctx, playerPath(steamID, "/wl"), nil, &wl); err != nil {
		return nil, err
	}

	var heroes []heroStat
	if err := c.get(ctx, playerPath(steamID, "/heroes"), nil, &heroes); err != nil {
		return nil, err
	}

	profile := &provider.Profile{
		SteamID:   steamID,
		Name:      info.Profile.PersonaName,
		AvatarURL: info.Profile.AvatarFull,
		Wins:      wl.Win,
		Losses:    wl.Lose,
		RankTier:  info.RankTier,
	}

	sort.SliceStable(heroes, func(i, j int) bool { return heroes[i].Games > heroes[j].Games })
	for i, h := range heroes {
		if i == 5 || h.Games == 0 {
			break
		}
		heroID, err := strconv.Atoi(h.HeroID)
		if err != nil {
			continue
		}
		profile.TopHeroes = append(profile.TopHeroes, provider.HeroStat{
			HeroID: heroID,
			Games:  h.Games,
			Wins:   h.Win,
		})
	}

	return profile, nil
}

// History fetches and normalizes the subject's recent matches, newest first.
func (c *Client) History(ctx context.Context, steamID string, limit int) ([]provider.HistoryEntry, error) {
	query := url.Values{"limit": []string{strconv.Itoa(limit)}}

	var matches []playerMatch
	if err := c.get(ctx, playerPath(steamID, "/matches"), query, &matches); err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		return nil, &provider.Error{Kind: provider.KindNotFound, Provider: Name, Message: "no matches for player"}
	}

	entries := make([]provider.HistoryEntry, 0, len(matches))
	for _, m := range matches {
		entries = append(entries, provider.HistoryEntry{
			MatchID:         m.MatchID,
			HeroID:          m.HeroID,
			Kills:           m.Kills,
			Deaths:          m.Deaths,
			Assists:         m.Assists,
			DurationSeconds: m.Duration,
			Won:             provider.DeriveWin(m.PlayerSlot, m.RadiantWin),
			StartTime:       time.Unix(m.StartTime, 0).UTC(),
		})
	}
	return entries, nil
}
