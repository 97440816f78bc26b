package engine

// ActivePlayerFor rotates through the player list in join order.
func ActivePlayerFor(players []Player, roundIndex int) string {
	if len(players) == 0 {
		return ""
	}
	return players[roundIndex%len(players)].ID
}
