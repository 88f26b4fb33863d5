package testutil

import "fmt"

// Canned upstream payloads shared by adapter and integration tests. The
// fixture match is a radiant win with the subject on radiant (slot 2).

// StratzLastMatchBody returns a GraphQL data payload for a last-match
// lookup with the given side and outcome.
func StratzLastMatchBody(playerSlot int, radiantWin bool) string {
	return fmt.Sprintf(`{"data": {"player": {"matches": [{
		"id": 7891234567,
		"durationSeconds": 2190,
		"startDateTime": 1722700800,
		"didRadiantWin": %t,
		"players": [{
			"heroId": 14,
			"hero": {"displayName": "Pudge"},
			"playerSlot": %d,
			"kills": 11, "deaths": 2, "assists": 19,
			"goldPerMinute": 512, "experiencePerMinute": 601,
			"networth": 21540,
			"item0Id": 1, "item1Id": 29, "item2Id": 50,
			"item3Id": 0, "item4Id": 108, "item5Id": 0
		}]
	}]}}}`, radiantWin, playerSlot)
}

// StratzProfileBody returns a GraphQL data payload for a profile lookup.
func StratzProfileBody() string {
	return `{"data": {"player": {
		"steamAccount": {"name": "tester", "avatar": "https://example.test/avatar.jpg", "seasonRank": 54},
		"matchCount": 1500,
		"winCount": 820,
		"heroesPerformance": [
			{"heroId": 14, "hero": {"displayName": "Pudge"}, "matchCount": 200, "winCount": 120},
			{"heroId": 1, "hero": {"displayName": "Anti-Mage"}, "matchCount": 90, "winCount": 40}
		]
	}}}`
}

// StratzErrorBody returns a GraphQL error payload with the given message.
func StratzErrorBody(message string) string {
	return fmt.Sprintf(`{"errors": [{"message": %q}]}`, message)
}

// OpenDotaRecentMatchesBody returns a recent-matches payload with the given
// side and outcome.
func OpenDotaRecentMatchesBody(playerSlot int, radiantWin bool) string {
	return fmt.Sprintf(`[{
		"match_id": 7891234567,
		"player_slot": %d,
		"radiant_win": %t,
		"duration": 2190,
		"hero_id": 14,
		"start_time": 1722700800,
		"kills": 11, "deaths": 2, "assists": 19,
		"gold_per_min": 512, "xp_per_min": 601
	}]`, playerSlot, radiantWin)
}

// OpenDotaPlayerBody returns a player payload.
func OpenDotaPlayerBody() string {
	return `{
		"profile": {"personaname": "tester", "avatarfull": "https://example.test/avatar.jpg"},
		"rank_tier": 54
	}`
}

// OpenDotaWinLossBody returns a win/loss payload.
func OpenDotaWinLossBody() string {
	return `{"win": 820, "lose": 680}`
}

// OpenDotaHeroesBody returns a per-hero aggregate payload.
func OpenDotaHeroesBody() string {
	return `[
		{"hero_id": "14", "games": 200, "win": 120},
		{"hero_id": "1", "games": 90, "win": 40}
	]`
}
