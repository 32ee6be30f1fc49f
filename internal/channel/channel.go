// Package channel holds the channel record the client state machine
// tracks per joined channel, and the narrow collaborator contracts (log
// recall, channel registry) that the rest of the system is defined
// against but does not implement here. Per the system's scope, the log
// file format and its recall engine are collaborators with named
// interfaces, not something this package implements.
package channel

// Channel is one channel a session is (or was) joined to.
type Channel struct {
	Name string
	Key  string

	// Inactive means the channel was queued at bind-fresh but has never
	// been successfully joined.
	Inactive bool

	// Unjoined means the channel was parted (channel_leave_on_detach)
	// and is pending rejoin on reattach.
	Unjoined bool

	Log Log
}

// NewChannel constructs a channel record queued for an initial join.
func NewChannel(name, key string) *Channel {
	return &Channel{Name: name, Key: key, Inactive: true}
}

// MarkJoined clears Inactive and Unjoined once a JOIN succeeds.
func (c *Channel) MarkJoined() {
	c.Inactive = false
	c.Unjoined = false
}

// Registry tracks the set of channels a session currently knows about,
// keyed by RFC1459-folded name.
type Registry interface {
	AddChannel(ch *Channel)
	DelChannel(name string)
	FetchChannel(name string) (*Channel, bool)
	Channels() []*Channel
}

// Log is the per-channel (or per-session, for "other"/private traffic)
// logging collaborator. The on-disk format and the recall query engine
// live outside this system's scope; this is only the interface the
// client state machine calls through.
type Log interface {
	Open(name string) error
	Close(name string) error
	Msg(target, source, text string) error
	Notice(target, source, text string) error
	CTCP(target, source, command, text string) error
	Recall(src string, start, lines int, filter string) ([]string, error)
	AutoRecall(name string) ([]string, error)
}
