package engine

// Script is the append-only ledger of everything narrated so far: how
// many times each identified message was narrated, how many times each
// observed tag was seen, and the flat transcript text in order.
type Script struct {
	Narrated map[string]int `json:"narrated"`
	Observed map[string]int `json:"observed"`
	Words    []string       `json:"words"`
}

// NewScript returns an empty ledger.
func NewScript() Script {
	return Script{
		Narrated: map[string]int{},
		Observed: map[string]int{},
	}
}

// ensure re-establishes map invariants after a decode that may have
// produced nil maps.
func (s *Script) ensure() {
	if s.Narrated == nil {
		s.Narrated = map[string]int{}
	}
	if s.Observed == nil {
		s.Observed = map[string]int{}
	}
}

func (s *Script) recordMessage(m Message) {
	if m.ID != "" {
		s.Narrated[m.ID]++
	}
	if m.Text != "" {
		s.Words = append(s.Words, m.Text)
	}
}

func (s *Script) observe(tags []Tag) {
	for _, tag := range tags {
		if tag.Observe {
			s.Observed[tag.Name]++
		}
	}
}

func (s *Script) recordNarration(n Narration) {
	for _, m := range n.Messages {
		s.recordMessage(m)
	}
	s.observe(n.Tags)
}

// recordAnswer appends validated player text to the transcript. Answers
// carry no message id, so only the words change.
func (s *Script) recordAnswer(text string) {
	if text != "" {
		s.Words = append(s.Words, text)
	}
}

// clone returns an independent copy safe to hand outside the run loop.
func (s Script) clone() Script {
	out := Script{
		Narrated: make(map[string]int, len(s.Narrated)),
		Observed: make(map[string]int, len(s.Observed)),
	}
	for k, v := range s.Narrated {
		out.Narrated[k] = v
	}
	for k, v := range s.Observed {
		out.Observed[k] = v
	}
	if len(s.Words) > 0 {
		out.Words = append([]string(nil), s.Words...)
	}
	return out
}
