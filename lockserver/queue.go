package lockserver

import "github.com/distlock/txagent/types"

// lockState is one object's queue plus its monotonic version counter, the
// unit a Server stores per object.
type lockState struct {
	version types.Index
	queue   []types.QueueElement
}

// snapshot renders the current state as a wire types.Lock for the given
// object/node pair.
func (s *lockState) snapshot(object types.ObjectPath, node string) types.Lock {
	return types.Lock{
		ObjectID: types.LockID{Object: object, Node: types.NodeID(node)},
		Version:  s.version,
		Queue:    append([]types.QueueElement(nil), s.queue...),
	}
}

// memberOf reports whether agent already appears anywhere in the queue,
// and if so in which position (0 = head).
func (s *lockState) memberOf(agent types.AgentID) (pos int, found bool) {
	for i, el := range s.queue {
		if el.Has(agent) {
			return i, true
		}
	}
	return -1, false
}

// wouldAppend reports whether enqueue(agent, mode) would add a new
// QueueElement to the queue, as opposed to merging into the existing head
// read group or being a no-op for an agent already queued. Used to apply
// MaxQueueDepth only to requests that would actually grow the queue.
func (s *lockState) wouldAppend(agent types.AgentID, mode types.Mode) bool {
	if _, found := s.memberOf(agent); found {
		return false
	}
	if len(s.queue) == 0 {
		return true
	}
	if mode == types.ModeRead && !s.queue[0].IsWrite && len(s.queue) == 1 {
		return false
	}
	return true
}

// enqueue implements the grant/merge/append decision for a Lock request
// under the Read(set)|Write(entry) queue model: concurrent readers
// coalesce into the head group, a writer always takes its own queue
// position. Returns true if the agent newly entered the queue.
func (s *lockState) enqueue(agent types.AgentID, mode types.Mode) bool {
	if pos, found := s.memberOf(agent); found {
		if pos == 0 && s.queue[0].Mode().Covers(mode) {
			return false // already holds a covering mode at the head
		}
		if pos > 0 {
			return false // already queued behind the head
		}
	}

	if len(s.queue) == 0 {
		s.queue = append(s.queue, newElement(agent, mode))
		return true
	}

	if mode == types.ModeRead && !s.queue[0].IsWrite && len(s.queue) == 1 {
		// Join the head read group only while it is uncontested; once a
		// waiter exists behind it, new readers queue fairly rather than
		// jumping the line.
		s.queue[0].Readers = append(s.queue[0].Readers, types.Entry{Agent: agent, Version: s.version})
		return true
	}

	s.queue = append(s.queue, newElement(agent, mode))
	return true
}

// release removes agent from the head group. If the head becomes empty,
// the next queue element is promoted. Reports whether a promotion
// occurred.
func (s *lockState) release(agent types.AgentID) (promoted bool) {
	if len(s.queue) == 0 {
		return false
	}
	head := s.queue[0]
	if !head.Has(agent) {
		return false
	}
	if head.IsWrite {
		s.queue = s.queue[1:]
		return len(s.queue) > 0
	}
	remaining := head.Readers[:0]
	for _, e := range head.Readers {
		if e.Agent != agent {
			remaining = append(remaining, e)
		}
	}
	if len(remaining) > 0 {
		s.queue[0] = types.QueueElement{Readers: remaining}
		return false
	}
	s.queue = s.queue[1:]
	return len(s.queue) > 0
}

func newElement(agent types.AgentID, mode types.Mode) types.QueueElement {
	if mode == types.ModeWrite {
		return types.QueueElement{IsWrite: true, Write: types.Entry{Agent: agent}}
	}
	return types.QueueElement{Readers: []types.Entry{{Agent: agent}}}
}
