package tasks

// Timing derives task budgets from the cost of one character on the
// channel. Each unit is the length of a typical exchange for that action.
type Timing struct {
	Char int
}

func (t Timing) exchange(say, reply string) int {
	return (len(say) + len(reply)) * t.Char
}

func (t Timing) Turn() int { return t.exchange("I turn right.", "You turned.") }

func (t Timing) Move() int { return t.exchange("I move forward.", "You moved.") }

func (t Timing) Pick() int {
	return t.exchange("I pick up the xxxxxxxxxxxx.", "You picked up the xxxxxxxxxxxx.")
}

func (t Timing) Verb() int {
	return t.exchange("Say 'I xxxxxxxxxxxx' to xxxxxxxxxxxx.", "You xxxxxxxxxxxxed.")
}

func (t Timing) Give() int {
	return t.exchange("I give you an xxxxxxxxxxxx.", "You gave me an xxxxxxxxxxxx.")
}

// Chars is n characters worth of time.
func (t Timing) Chars(n int) int { return n * t.Char }
