// Package learner is a scripted learner that solves the shipped curriculum
// from the teacher's text alone. It tracks its own facing and inventory from
// what it is told.
package learner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"tutorsim.ai/internal/sim/world"
)

// Message kinds as sent by the teacher.
const (
	KindEpisode     = "episode"
	KindInstruction = "instruction"
	KindFeedback    = "feedback"
	KindWorld       = "world"
	KindReward      = "reward"
)

// Idle is said when the learner has no plan.
const Idle = "I wait."

var (
	reSay        = regexp.MustCompile(`^Say 'I (\w+)' to \w+\.$`)
	reTurn       = regexp.MustCompile(`^Turn (left|right)\.$`)
	reMoveSide   = regexp.MustCompile(`^Move (left|right)\.$`)
	reFacing     = regexp.MustCompile(`^You are facing (\w+), move (\w+)\.$`)
	rePickHere   = regexp.MustCompile(`^Pick up the (\w+)\.$`)
	reInFront    = regexp.MustCompile(`^There is an? (\w+) in front of you\.`)
	reAround     = regexp.MustCompile(`^There is an? (\w+) (\w+) from you\.( Pick it up and give it to me\.)?`)
	reGiveBack   = regexp.MustCompile(`"(I give you an? \w+)"`)
	reHowMany    = regexp.MustCompile(`How many (\w+)s do you have(?: now)?\?$`)
	reNowGive    = regexp.MustCompile(`Now give the (\w+) back to me\.$`)
	reAssociate  = regexp.MustCompile(`^(.*); what is (\w+) like\?$`)
	reReceived   = regexp.MustCompile(`I gave you an? (\w+)\.`)
	reTakenBack  = regexp.MustCompile(`You gave me an? (\w+)\.`)
	reCorrection = regexp.MustCompile(`^No, you have (\d+) (\w+)\.$`)
	rePickedUp   = regexp.MustCompile(`^You picked up the (\w+)\.$`)
)

type Learner struct {
	facing world.Direction
	inv    world.Inventory
	plan   []string

	// proj is the facing once the plan so far has been said.
	proj world.Direction
}

func New(facing world.Direction, starter map[string]int) *Learner {
	inv := world.Inventory{}
	for k, v := range starter {
		inv[k] = v
	}
	return &Learner{facing: facing, inv: inv}
}

func (l *Learner) Facing() world.Direction { return l.facing }
func (l *Learner) Holding(item string) int { return l.inv.Count(item) }
func (l *Learner) Pending() int            { return len(l.plan) }

// Next pops the next planned utterance, or Idle.
func (l *Learner) Next() string {
	if len(l.plan) == 0 {
		return Idle
	}
	u := l.plan[0]
	l.plan = l.plan[1:]
	switch u {
	case "I turn right.":
		l.facing = world.Clockwise(l.facing, 1)
	case "I turn left.":
		l.facing = world.Clockwise(l.facing, -1)
	}
	return u
}

func (l *Learner) projected() world.Direction {
	d := l.facing
	for _, u := range l.plan {
		switch u {
		case "I turn right.":
			d = world.Clockwise(d, 1)
		case "I turn left.":
			d = world.Clockwise(d, -1)
		}
	}
	return d
}

// Hear updates beliefs and the plan from one teacher message.
func (l *Learner) Hear(kind, text string) {
	switch kind {
	case KindEpisode:
		l.plan = nil
		return
	case KindWorld:
		if m := rePickedUp.FindStringSubmatch(text); m != nil {
			l.inv[m[1]]++
		}
		return
	case KindInstruction, KindFeedback:
	default:
		return
	}

	for _, m := range reReceived.FindAllStringSubmatch(text, -1) {
		l.inv[m[1]]++
	}
	for _, m := range reTakenBack.FindAllStringSubmatch(text, -1) {
		if l.inv[m[1]] > 0 {
			l.inv[m[1]]--
		}
	}
	if m := reCorrection.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		item := m[2]
		if n != 1 {
			item = strings.TrimSuffix(item, "s")
		}
		l.inv[item] = n
		l.say(fmt.Sprintf("%d.", n))
		return
	}
	l.proj = l.projected()
	l.plan = append(l.plan, l.respond(text)...)
}

func (l *Learner) say(u ...string) { l.plan = append(l.plan, u...) }

func (l *Learner) respond(text string) []string {
	switch {
	case reSay.MatchString(text):
		return []string{"I " + reSay.FindStringSubmatch(text)[1] + "."}
	case reTurn.MatchString(text):
		return l.turn(reTurn.FindStringSubmatch(text)[1])
	case text == "Move forward.":
		return []string{"I move forward."}
	case reMoveSide.MatchString(text):
		return append(l.turn(reMoveSide.FindStringSubmatch(text)[1]), "I move forward.")
	case reFacing.MatchString(text):
		m := reFacing.FindStringSubmatch(text)
		if d, err := world.ParseDirection(m[1]); err == nil && len(l.plan) == 0 {
			l.facing, l.proj = d, d
		}
		return append(l.turnTo(m[2]), "I move forward.")
	case rePickHere.MatchString(text):
		return []string{"I pick up the " + rePickHere.FindStringSubmatch(text)[1] + "."}
	case reInFront.MatchString(text):
		obj := reInFront.FindStringSubmatch(text)[1]
		return []string{"I move forward.", "I pick up the " + obj + "."}
	case reAround.MatchString(text):
		m := reAround.FindStringSubmatch(text)
		out := append(l.turnTo(m[2]), "I move forward.", "I pick up the "+m[1]+".")
		if m[3] != "" {
			out = append(out, "I give you "+article(m[1])+".")
		}
		return out
	case reGiveBack.MatchString(text):
		return []string{reGiveBack.FindStringSubmatch(text)[1] + "."}
	case reHowMany.MatchString(text):
		obj := reHowMany.FindStringSubmatch(text)[1]
		return []string{strconv.Itoa(l.inv.Count(obj)) + "."}
	case reNowGive.MatchString(text):
		return []string{"I give you " + article(reNowGive.FindStringSubmatch(text)[1]) + "."}
	case reAssociate.MatchString(text):
		m := reAssociate.FindStringSubmatch(text)
		for _, fact := range strings.Split(m[1], ", ") {
			if strings.HasPrefix(fact, m[2]+" is ") {
				return []string{fact + "."}
			}
		}
	}
	return nil
}

func (l *Learner) turn(side string) []string {
	if side == "right" {
		l.proj = world.Clockwise(l.proj, 1)
	} else {
		l.proj = world.Clockwise(l.proj, -1)
	}
	return []string{"I turn " + side + "."}
}

// turnTo plans the shortest turns from the projected facing to target.
func (l *Learner) turnTo(target string) []string {
	want, err := world.ParseDirection(target)
	if err != nil {
		return nil
	}
	var out []string
	switch {
	case world.Clockwise(l.proj, 1) == want:
		out = l.turn("right")
	case world.Clockwise(l.proj, -1) == want:
		out = l.turn("left")
	case world.Clockwise(l.proj, 2) == want:
		out = append(l.turn("right"), l.turn("right")...)
	}
	return out
}

func article(word string) string {
	if strings.ContainsRune("aeiou", rune(word[0])) {
		return "an " + word
	}
	return "a " + word
}
