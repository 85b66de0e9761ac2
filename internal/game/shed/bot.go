package shed

// runBotLocked plays out the bot seat's turns, if any. Bot moves run under
// the same per-match lock as human actions, so a human frame arriving
// mid-sequence waits its turn.
func (e *Engine) runBotLocked() {
	for !e.over && e.seats[e.current].ID == BotID {
		e.botMoveLocked()
		e.broadcastStateLocked()
	}
}

// botMoveLocked performs a single bot action: settle a pending draw stack,
// play the first legal card, otherwise draw (playing the drawn card when the
// rules allow an immediate follow-up).
func (e *Engine) botMoveLocked() {
	idx := e.current
	seat := e.seats[idx]

	if e.pending > 0 {
		e.resolveDrawLocked(idx)
		return
	}

	for _, card := range seat.Hand {
		if e.playable(card) {
			e.playCardLocked(idx, card)
			return
		}
	}

	// No legal card: draw. resolveDrawLocked keeps the turn when the drawn
	// card is playable, so the next loop iteration plays it.
	e.resolveDrawLocked(idx)
}
