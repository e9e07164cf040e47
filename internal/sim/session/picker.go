package session

import (
	"errors"
	"math/rand"
)

// Picker chooses the task for the next episode.
type Picker interface {
	Next() string
}

// RandomPicker draws uniformly from a fixed list.
type RandomPicker struct {
	r     *rand.Rand
	names []string
}

func NewRandomPicker(r *rand.Rand, names []string) (*RandomPicker, error) {
	if len(names) == 0 {
		return nil, errors.New("picker: no task names")
	}
	if r == nil {
		return nil, errors.New("picker: nil rand")
	}
	return &RandomPicker{r: r, names: append([]string(nil), names...)}, nil
}

func (p *RandomPicker) Next() string { return p.names[p.r.Intn(len(p.names))] }

// SequencePicker cycles through names in order.
type SequencePicker struct {
	names []string
	i     int
}

func NewSequencePicker(names ...string) (*SequencePicker, error) {
	if len(names) == 0 {
		return nil, errors.New("picker: no task names")
	}
	return &SequencePicker{names: append([]string(nil), names...)}, nil
}

func (p *SequencePicker) Next() string {
	name := p.names[p.i%len(p.names)]
	p.i++
	return name
}
