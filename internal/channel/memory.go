package channel

import "github.com/presbrey/dircproxy/internal/ircmsg"

// MemRegistry is a simple in-process Registry keyed by RFC1459-folded
// channel name, matching the map-keyed bookkeeping the teacher's Server
// uses for its own client/channel maps.
type MemRegistry struct {
	byName map[string]*Channel
	order  []string
}

// NewMemRegistry returns an empty registry.
func NewMemRegistry() *MemRegistry {
	return &MemRegistry{byName: make(map[string]*Channel)}
}

func (r *MemRegistry) AddChannel(ch *Channel) {
	key := ircmsg.Fold(ch.Name)
	if _, exists := r.byName[key]; !exists {
		r.order = append(r.order, key)
	}
	r.byName[key] = ch
}

func (r *MemRegistry) DelChannel(name string) {
	key := ircmsg.Fold(name)
	if _, exists := r.byName[key]; !exists {
		return
	}
	delete(r.byName, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *MemRegistry) FetchChannel(name string) (*Channel, bool) {
	ch, ok := r.byName[ircmsg.Fold(name)]
	return ch, ok
}

func (r *MemRegistry) Channels() []*Channel {
	out := make([]*Channel, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.byName[k])
	}
	return out
}
