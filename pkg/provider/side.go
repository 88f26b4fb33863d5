package provider

// Player slot encoding: bit 7 set means the player was on the dire side.
// Slots 0-4 are radiant, 128-132 are dire.
const direSlotBit = 0x80

// IsRadiant reports whether a player slot belongs to the radiant side.
func IsRadiant(playerSlot int) bool {
	return playerSlot&direSlotBit == 0
}

// DeriveWin computes the subject's win flag from their slot and the match
// outcome. Every adapter must use this so the normalized Won flag cannot
// flip depending on which provider answered.
func DeriveWin(playerSlot int, radiantWin bool) bool {
	return IsRadiant(playerSlot) == radiantWin
}
