package kernel

// NextReady advances cyclically from index from and returns the first slot
// with the Ready bit set. The slot at from is considered last, so a lone ready
// task selects itself.
//
// If no slot is ever ready this spins forever. That is a configuration error
// the scheduler does not recover from.
func (t *Table) NextReady(from int) int {
	i := from
	for {
		i++
		if i == len(t.slots) {
			i = 0
		}
		if t.slots[i].Flags&Ready != 0 {
			return i
		}
	}
}
