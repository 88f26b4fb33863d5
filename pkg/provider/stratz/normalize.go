package stratz

import (
	"context"
	"time"

	"github.com/perceforge/dotafetch/pkg/provider"
)

// Wire types mirroring the slice of the Stratz schema the queries select.

type matchPayload struct {
	ID              int64         `json:"id"`
	DurationSeconds int           `json:"durationSeconds"`
	StartDateTime   int64         `json:"startDateTime"`
	DidRadiantWin   bool          `json:"didRadiantWin"`
	Players         []matchPlayer `json:"players"`
}

type matchPlayer struct {
	HeroID              int       `json:"heroId"`
	Hero                *heroInfo `json:"hero"`
	PlayerSlot          int       `json:"playerSlot"`
	Kills               int       `json:"kills"`
	Deaths              int       `json:"deaths"`
	Assists             int       `json:"assists"`
	GoldPerMinute       int       `json:"goldPerMinute"`
	ExperiencePerMinute int       `json:"experiencePerMinute"`
	Networth            int       `json:"networth"`
	Item0ID             int       `json:"item0Id"`
	Item1ID             int       `json:"item1Id"`
	Item2ID             int       `json:"item2Id"`
	Item3ID             int       `json:"item3Id"`
	Item4ID             int       `json:"item4Id"`
	Item5ID             int       `json:"item5Id"`
}

type heroInfo struct {
	DisplayName string `json:"displayName"`
}

type playerMatches struct {
	Player *struct {
		Matches []matchPayload `json:"matches"`
	} `json:"player"`
}

type playerProfile struct {
	Player *struct {
		SteamAccount *struct {
			Name       string `json:"name"`
			Avatar     string `json:"avatar"`
			SeasonRank int    `json:"seasonRank"`
		} `json:"steamAccount"`
		MatchCount        int `json:"matchCount"`
		WinCount          int `json:"winCount"`
		HeroesPerformance []struct {
			HeroID     int       `json:"heroId"`
			Hero       *heroInfo `json:"hero"`
			MatchCount int       `json:"matchCount"`
			WinCount   int       `json:"winCount"`
		} `json:"heroesPerformance"`
	} `json:"player"`
}

// LastMatch fetches and normalizes the subject's most recent match.
func (c *Client) LastMatch(ctx context.Context, token, steamID string) (*provider.MatchRecord, error) {
	id, err := parseSteamID(steamID)
	if err != nil {
		return nil, err
	}

	var payload playerMatches
	if err := c.do(ctx, token, lastMatchQuery, map[string]any{"steamAccountId": id}, &payload); err != nil {
		return nil, err
	}

	if payload.Player == nil || len(payload.Player.Matches) == 0 {
		return nil, &provider.Error{Kind: provider.KindNotFound, Provider: Name, Message: "no matches for player"}
	}

	return normalizeMatch(payload.Player.Matches[0])
}

// Profile fetches and normalizes the subject's profile.
func (c *Client) Profile(ctx context.Context, token, steamID string) (*provider.Profile, error) {
	id, err := parseSteamID(steamID)
	if err != nil {
		return nil, err
	}

	var payload playerProfile
	if err := c.do(ctx, token, profileQuery, map[string]any{"steamAccountId": id}, &payload); err != nil {
		return nil, err
	}

	p := payload.Player
	if p == nil || p.SteamAccount == nil {
		return nil, &provider.Error{Kind: provider.KindNotFound, Provider: Name, Message: "player not found"}
	}

	profile := &provider.Profile{
		SteamID:   steamID,
		Name:      p.SteamAccount.Name,
		AvatarURL: p.SteamAccount.Avatar,
		Wins:      p.WinCount,
		Losses:    p.MatchCount - p.WinCount,
		RankTier:  p.SteamAccount.SeasonRank,
	}
	for _, h := range p.HeroesPerformance {
		stat := provider.HeroStat{HeroID: h.HeroID, Games: h.MatchCount, Wins: h.WinCount}
		if h.Hero != nil {
			stat.Name = h.Hero.DisplayName
		}
		profile.TopHeroes = append(profile.TopHeroes, stat)
	}
	return profile, nil
}

// History fetches and normalizes the subject's recent matches, newest first.
func (c *Client) History(ctx context.Context, token, steamID string, limit int) ([]provider.HistoryEntry, error) {
	id, err := parseSteamID(steamID)
	if err != nil {
		return nil, err
	}

	var payload playerMatches
	vars := map[string]any{"steamAccountId": id, "take": limit}
	if err := c.do(ctx, token, historyQuery, vars, &payload); err != nil {
		return nil, err
	}

	if payload.Player == nil || len(payload.Player.Matches) == 0 {
		return nil, &provider.Error{Kind: provider.KindNotFound, Provider: Name, Message: "no matches for player"}
	}

	entries := make([]provider.HistoryEntry, 0, len(payload.Player.Matches))
	for _, m := range payload.Player.Matches {
		if len(m.Players) == 0 {
			continue
		}
		p := m.Players[0]
		entries = append(entries, provider.HistoryEntry{
			MatchID:         m.ID,
			HeroID:          p.HeroID,
			Kills:           p.Kills,
			Deaths:          p.Deaths,
			Assists:         p.Assists,
			DurationSeconds: m.DurationSeconds,
			Won:             provider.DeriveWin(p.PlayerSlot, m.DidRadiantWin),
			StartTime:       time.Unix(m.StartDateTime, 0).UTC(),
		})
	}
	return entries, nil
}

func normalizeMatch(m matchPayload) (*provider.MatchRecord, error) {
	if len(m.Players) == 0 {
		return nil, &provider.Error{Kind: provider.KindTransient, Provider: Name, Message: "match payload missing player row"}
	}
	p := m.Players[0]

	rec := &provider.MatchRecord{
		MatchID:         m.ID,
		HeroID:          p.HeroID,
		Kills:           p.Kills,
		Deaths:          p.Deaths,
		Assists:         p.Assists,
		GoldPerMin:      p.GoldPerMinute,
		XPPerMin:        p.ExperiencePerMinute,
		NetWorth:        p.Networth,
		DurationSeconds: m.DurationSeconds,
		Won:             provider.DeriveWin(p.PlayerSlot, m.DidRadiantWin),
		StartTime:       time.Unix(m.StartDateTime, 0).UTC(),
	}
	if p.Hero != nil {
		rec.HeroName = p.Hero.DisplayName
	}
	for _, item := range []int{p.Item0ID, p.Item1ID, p.Item2ID, p.Item3ID, p.Item4ID, p.Item5ID} {
		if item != 0 {
			rec.ItemIDs = append(rec.ItemIDs, item)
		}
	}
	return rec, nil
}
