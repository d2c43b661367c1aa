package pipeline

import (
	"github.com/example/go-utterance/internal/utterance"
)

// LevelSize is the item count of one level.
type LevelSize struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// Summary describes a built utterance.
type Summary struct {
	ID        string      `json:"id"`
	Text      string      `json:"text,omitempty"`
	Levels    []LevelSize `json:"levels"`
	Relations int         `json:"relations"`
}

// Summarize reports the size of every built-in level present on u, in
// Levels order, and the number of registered relations.
func Summarize(u *utterance.Utterance) Summary {
	s := Summary{
		ID:        u.ID().String(),
		Levels:    []LevelSize{},
		Relations: len(u.Relations()),
	}
	for _, name := range Levels() {
		seq, err := u.Sequence(name)
		if err != nil {
			continue
		}
		s.Levels = append(s.Levels, LevelSize{Name: name, Size: seq.Size()})
	}
	return s
}

// AlignedItem is one source item and the target items it is aligned with.
type AlignedItem struct {
	Index   int      `json:"index"`
	Label   string   `json:"label"`
	Related []int    `json:"related"`
	Labels  []string `json:"labels"`
}

// Align lists, for every item of the sequence named from, the items of the
// sequence named to that it is aligned with. The relation is derived when
// the two are not directly related.
func Align(u *utterance.Utterance, from, to string) ([]AlignedItem, error) {
	rel, err := u.GetRelation(from, to)
	if err != nil {
		return nil, err
	}

	src := rel.Source()
	out := make([]AlignedItem, src.Size())
	for i := range out {
		item, err := src.ItemAt(i)
		if err != nil {
			return nil, err
		}
		related, err := rel.RelatedItems(i)
		if err != nil {
			return nil, err
		}
		labels := make([]string, len(related))
		for k, r := range related {
			labels[k] = r.Label()
		}
		out[i] = AlignedItem{
			Index:   i,
			Label:   item.Label(),
			Related: rel.RelatedIndexes(i),
			Labels:  labels,
		}
	}
	return out, nil
}
