package world

import "regexp"

var (
	reTurn   = regexp.MustCompile(`^I turn (left|right)\.$`)
	reMove   = regexp.MustCompile(`^I move forward\.$`)
	rePickUp = regexp.MustCompile(`^I pick up the (\w+)\.$`)
)

// Interpret executes a world verb spoken by the learner and returns the
// world's reply. ok is false when text is not a world verb; the world is then
// unchanged.
func (w *World) Interpret(text string) (reply string, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if m := reTurn.FindStringSubmatch(text); m != nil {
		if m[1] == "right" {
			w.turnLocked(1)
		} else {
			w.turnLocked(-1)
		}
		return "You turned.", true
	}
	if reMove.MatchString(text) {
		if !w.moveLocked() {
			return "You can't move there.", true
		}
		return "You moved.", true
	}
	if m := rePickUp.FindStringSubmatch(text); m != nil {
		if !w.pickUpLocked(m[1]) {
			return "There is no " + m[1] + " here.", true
		}
		return "You picked up the " + m[1] + ".", true
	}
	return "", false
}
