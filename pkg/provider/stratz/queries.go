package stratz

// GraphQL documents for the three player lookups. Each selects only the
// fields the normalized shapes need; the players(steamAccountId:) filter
// returns just the subject's row of the match.
const (
	lastMatchQuery = `query LastMatch($steamAccountId: Long!) {
  player(steamAccountId: $steamAccountId) {
    matches(request: { take: 1 }) {
      id
      durationSeconds
      startDateTime
      didRadiantWin
      players(steamAccountId: $steamAccountId) {
        heroId
        hero { displayName }
        playerSlot
        kills
        deaths
        assists
        goldPerMinute
        experiencePerMinute
        networth
        item0Id
        item1Id
        item2Id
        item3Id
        item4Id
        item5Id
      }
    }
  }
}`

	profileQuery = `query Profile($steamAccountId: Long!) {
  player(steamAccountId: $steamAccountId) {
    steamAccount {
      name
      avatar
      seasonRank
    }
    matchCount
    winCount
    heroesPerformance(request: { take: 5 }) {
      heroId
      hero { displayName }
      matchCount
      winCount
    }
  }
}`

	historyQuery = `query History($steamAccountId: Long!, $take: Int!) {
  player(steamAccountId: $steamAccountId) {
    matches(request: { take: $take }) {
      id
      durationSeconds
      startDateTime
      didRadiantWin
      players(steamAccountId: $steamAccountId) {
        heroId
        playerSlot
        kills
        deaths
        assists
      }
    }
  }
}`
)
