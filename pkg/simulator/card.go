package simulator

// MemoryCard is a minimal NFC Forum Type 2 tag: it answers REQA/WUPA with
// its ATQA and READ with four pages starting at the requested one.
type MemoryCard struct {
	ATQA  []byte
	Pages [][4]byte
}

// NFC-A frames understood by MemoryCard.
const (
	cmdREQA = 0x26
	cmdWUPA = 0x52
	cmdREAD = 0x30
)

// NewMemoryCard returns a card with n zeroed pages.
func NewMemoryCard(n int) *MemoryCard {
	return &MemoryCard{ATQA: []byte{0x44, 0x00}, Pages: make([][4]byte, n)}
}

// Respond implements Card.
func (c *MemoryCard) Respond(frame []byte) ([]byte, bool) {
	if len(frame) == 0 {
		return nil, false
	}

	switch frame[0] {
	case cmdREQA, cmdWUPA:
		return c.ATQA, true
	case cmdREAD:
		if len(frame) != 2 || int(frame[1]) >= len(c.Pages) {
			return []byte{0x00}, true // NAK
		}
		out := make([]byte, 0, 16)
		for i := 0; i < 4; i++ {
			p := (int(frame[1]) + i) % len(c.Pages)
			out = append(out, c.Pages[p][:]...)
		}
		return out, true
	default:
		return nil, false
	}
}
