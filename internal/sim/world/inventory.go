package world

import (
	"fmt"
	"sort"
	"strings"
)

// Inventory maps item identifiers to counts. Unseen items count as zero.
type Inventory map[string]int

func (inv Inventory) Count(item string) int { return inv[item] }

func (inv Inventory) Clone() Inventory {
	out := make(Inventory, len(inv))
	for k, v := range inv {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}

// Equal treats missing keys and explicit zeros as the same.
func (inv Inventory) Equal(o Inventory) bool {
	for k, v := range inv {
		if o[k] != v {
			return false
		}
	}
	for k, v := range o {
		if inv[k] != v {
			return false
		}
	}
	return true
}

// Items returns the items with a non-zero count, sorted.
func (inv Inventory) Items() []string {
	out := make([]string, 0, len(inv))
	for k, v := range inv {
		if v != 0 {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func validateItem(item string) error {
	if strings.TrimSpace(item) == "" {
		return fmt.Errorf("empty item id")
	}
	if strings.ContainsAny(item, " \t\n") {
		return fmt.Errorf("item id %q contains whitespace", item)
	}
	return nil
}

func (inv Inventory) add(item string, delta int) error {
	if err := validateItem(item); err != nil {
		return err
	}
	n := inv[item] + delta
	if n < 0 {
		return fmt.Errorf("inventory %s: count would drop to %d", item, n)
	}
	if n == 0 {
		delete(inv, item)
		return nil
	}
	inv[item] = n
	return nil
}
