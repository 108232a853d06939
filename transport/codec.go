package transport

import (
	"fmt"

	"github.com/distlock/txagent/types"
	"google.golang.org/protobuf/types/known/structpb"
)

// This module ships no .proto/protoc pipeline, so every RPC in this package
// carries a google.golang.org/protobuf well-known structpb.Struct as its
// request and response message (structpb.Struct already satisfies
// proto.Message, so it rides gRPC's default codec with no generated stubs
// needed). The functions below are the hand-rolled marshal/unmarshal layer
// a protoc-gen-go step would otherwise produce.

func objectPathToValues(o types.ObjectPath) []any {
	out := make([]any, len(o))
	for i, n := range o {
		out[i] = string(n)
	}
	return out
}

func objectPathFromValues(v []any) (types.ObjectPath, error) {
	out := make(types.ObjectPath, len(v))
	for i, e := range v {
		s, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("transport: object path element %d is not a string", i)
		}
		out[i] = types.ObjectName(s)
	}
	return out, nil
}

func modeToString(m types.Mode) string { return m.String() }

func modeFromString(s string) (types.Mode, error) {
	switch s {
	case "read":
		return types.ModeRead, nil
	case "write":
		return types.ModeWrite, nil
	default:
		return 0, fmt.Errorf("transport: unknown mode %q", s)
	}
}

func entryToMap(e types.Entry) map[string]any {
	return map[string]any{"agent": string(e.Agent), "version": float64(e.Version)}
}

func entryFromMap(m map[string]any) (types.Entry, error) {
	agent, _ := m["agent"].(string)
	version, _ := m["version"].(float64)
	return types.Entry{Agent: types.AgentID(agent), Version: types.Index(version)}, nil
}

func queueElementToMap(q types.QueueElement) map[string]any {
	if q.IsWrite {
		return map[string]any{"is_write": true, "write": entryToMap(q.Write)}
	}
	readers := make([]any, len(q.Readers))
	for i, e := range q.Readers {
		readers[i] = entryToMap(e)
	}
	return map[string]any{"is_write": false, "readers": readers}
}

func queueElementFromMap(m map[string]any) (types.QueueElement, error) {
	isWrite, _ := m["is_write"].(bool)
	if isWrite {
		wm, ok := m["write"].(map[string]any)
		if !ok {
			return types.QueueElement{}, fmt.Errorf("transport: queue element missing write entry")
		}
		e, err := entryFromMap(wm)
		if err != nil {
			return types.QueueElement{}, err
		}
		return types.QueueElement{IsWrite: true, Write: e}, nil
	}
	raw, _ := m["readers"].([]any)
	readers := make([]types.Entry, 0, len(raw))
	for _, r := range raw {
		rm, ok := r.(map[string]any)
		if !ok {
			continue
		}
		e, err := entryFromMap(rm)
		if err != nil {
			return types.QueueElement{}, err
		}
		readers = append(readers, e)
	}
	return types.QueueElement{Readers: readers}, nil
}

func lockToMap(l types.Lock) map[string]any {
	queue := make([]any, len(l.Queue))
	for i, q := range l.Queue {
		queue[i] = queueElementToMap(q)
	}
	return map[string]any{
		"object":  objectPathToValues(l.ObjectID.Object),
		"node":    string(l.ObjectID.Node),
		"version": float64(l.Version),
		"queue":   queue,
	}
}

func lockFromMap(m map[string]any) (types.Lock, error) {
	objRaw, _ := m["object"].([]any)
	object, err := objectPathFromValues(objRaw)
	if err != nil {
		return types.Lock{}, err
	}
	node, _ := m["node"].(string)
	version, _ := m["version"].(float64)
	queueRaw, _ := m["queue"].([]any)
	queue := make([]types.QueueElement, 0, len(queueRaw))
	for _, qr := range queueRaw {
		qm, ok := qr.(map[string]any)
		if !ok {
			continue
		}
		qe, err := queueElementFromMap(qm)
		if err != nil {
			return types.Lock{}, err
		}
		queue = append(queue, qe)
	}
	return types.Lock{
		ObjectID: types.LockID{Object: object, Node: types.NodeID(node)},
		Version:  types.Index(version),
		Queue:    queue,
	}, nil
}

func noteToMap(n types.Note) map[string]any {
	return map[string]any{"kind": float64(n.Kind), "agent": string(n.Agent)}
}

func noteFromMap(m map[string]any) types.Note {
	kind, _ := m["kind"].(float64)
	agent, _ := m["agent"].(string)
	return types.Note{Kind: types.NoteKind(kind), Agent: types.AgentID(agent)}
}

// encodeLockRequest builds the wire payload for a Lock RPC.
func encodeLockRequest(object types.ObjectPath, agentID types.AgentID, mode types.Mode) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"object": objectPathToValues(object),
		"agent":  string(agentID),
		"mode":   modeToString(mode),
	})
}

func decodeLockRequest(s *structpb.Struct) (object types.ObjectPath, agentID types.AgentID, mode types.Mode, err error) {
	m := s.AsMap()
	objRaw, _ := m["object"].([]any)
	if object, err = objectPathFromValues(objRaw); err != nil {
		return nil, "", 0, err
	}
	a, _ := m["agent"].(string)
	agentID = types.AgentID(a)
	modeStr, _ := m["mode"].(string)
	if mode, err = modeFromString(modeStr); err != nil {
		return nil, "", 0, err
	}
	return object, agentID, mode, nil
}

// encodeSurrenderRequest builds the wire payload for a Surrender RPC.
func encodeSurrenderRequest(object types.ObjectPath, agentID types.AgentID) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"object": objectPathToValues(object),
		"agent":  string(agentID),
	})
}

func decodeSurrenderRequest(s *structpb.Struct) (object types.ObjectPath, agentID types.AgentID, err error) {
	m := s.AsMap()
	objRaw, _ := m["object"].([]any)
	if object, err = objectPathFromValues(objRaw); err != nil {
		return nil, "", err
	}
	a, _ := m["agent"].(string)
	return object, types.AgentID(a), nil
}

// encodeLockStateUpdate builds the wire payload carrying a LockStateUpdate,
// used both for the lock server's push to subscribed agents and for the
// peer-to-peer RelayLockState call of §6.3.
func encodeLockStateUpdate(u types.LockStateUpdate) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"lock":  lockToMap(u.Lock),
		"where": string(u.Where),
		"note":  noteToMap(u.Note),
	})
}

func decodeLockStateUpdate(s *structpb.Struct) (types.LockStateUpdate, error) {
	m := s.AsMap()
	lockRaw, _ := m["lock"].(map[string]any)
	lock, err := lockFromMap(lockRaw)
	if err != nil {
		return types.LockStateUpdate{}, err
	}
	where, _ := m["where"].(string)
	noteRaw, _ := m["note"].(map[string]any)
	return types.LockStateUpdate{Lock: lock, Where: types.NodeID(where), Note: noteFromMap(noteRaw)}, nil
}

// encodeNotifySurrendered builds the wire payload for a NotifySurrendered
// call.
func encodeNotifySurrendered(to, from types.AgentID, lockID types.LockID) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"to":     string(to),
		"from":   string(from),
		"object": objectPathToValues(lockID.Object),
		"node":   string(lockID.Node),
	})
}

func decodeNotifySurrendered(s *structpb.Struct) (to, from types.AgentID, lockID types.LockID, err error) {
	m := s.AsMap()
	toStr, _ := m["to"].(string)
	fromStr, _ := m["from"].(string)
	objRaw, _ := m["object"].([]any)
	object, err := objectPathFromValues(objRaw)
	if err != nil {
		return "", "", types.LockID{}, err
	}
	node, _ := m["node"].(string)
	return types.AgentID(toStr), types.AgentID(fromStr), types.LockID{Object: object, Node: types.NodeID(node)}, nil
}

func encodeAck() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"ok": true})
}
