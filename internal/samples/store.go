// Package samples holds the named, pre-decoded clips clocks play.
package samples

import "github.com/cbegin/polyclock-go/internal/audio"

// Kit lists the built-in sample names in cycling order.
var Kit = []string{
	"hihat_closed",
	"hihat_open",
	"kick",
	"snare",
	"rim",
	"timbale_1",
	"timbale_2",
	"sticks",
}

// CountInSample is the clip the recording count-in clicks with.
const CountInSample = "sticks"

// Store is an ordered set of clips addressed by name or position.
// It is immutable after construction.
type Store struct {
	clips []*audio.Clip
	index map[string]int
}

// NewStore builds a store; later clips with a duplicate name are dropped.
func NewStore(clips ...*audio.Clip) *Store {
	s := &Store{index: make(map[string]int, len(clips))}
	for _, c := range clips {
		if c == nil {
			continue
		}
		if _, dup := s.index[c.Name]; dup {
			continue
		}
		s.index[c.Name] = len(s.clips)
		s.clips = append(s.clips, c)
	}
	return s
}

func (s *Store) Len() int { return len(s.clips) }

func (s *Store) Clips() []*audio.Clip {
	return append([]*audio.Clip(nil), s.clips...)
}

func (s *Store) Names() []string {
	names := make([]string, len(s.clips))
	for i, c := range s.clips {
		names[i] = c.Name
	}
	return names
}

// Get returns the clip called name, or nil.
func (s *Store) Get(name string) *audio.Clip {
	if i, ok := s.index[name]; ok {
		return s.clips[i]
	}
	return nil
}

// Index returns the position of name, or -1.
func (s *Store) Index(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

func (s *Store) First() *audio.Clip {
	if len(s.clips) == 0 {
		return nil
	}
	return s.clips[0]
}

// Next returns the clip after cur, wrapping around. An unknown or nil cur
// yields the first clip.
func (s *Store) Next(cur *audio.Clip) *audio.Clip {
	if len(s.clips) == 0 {
		return nil
	}
	if cur == nil {
		return s.clips[0]
	}
	i, ok := s.index[cur.Name]
	if !ok {
		return s.clips[0]
	}
	return s.clips[(i+1)%len(s.clips)]
}
