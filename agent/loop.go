package agent

import "github.com/distlock/txagent/types"

// Run is the single-threaded event loop of §4.H. It processes one event
// to completion before taking the next, owns every table exclusively, and
// never blocks on I/O (§5). Run returns when the agent terminates: client
// death, explicit stop, unrecoverable node loss, or deadlock abort.
func (a *Agent) Run() {
	defer a.releaseResources()
	ticker := a.deps.Clock.NewTicker(a.cfg.DeadlockScanInterval)
	defer ticker.Stop()
	for {
		select {
		case ev := <-a.inbox:
			if a.dispatch(ev) {
				return
			}
		case <-ticker.Chan():
			a.post(deadlockScanEvent{})
		}
	}
}

// dispatch handles one event and reports whether the agent should
// terminate.
func (a *Agent) dispatch(ev event) bool {
	switch e := ev.(type) {
	case commandEvent:
		return a.handleCommand(e.Cmd)
	case lockStateEvent:
		a.ingestLockState(e.Update, noteFromUpdate(e.Update))
		return false
	case peerLockStateEvent:
		a.ingestLockState(e.Update, noteFromUpdate(e.Update))
		return false
	case peerSurrenderEvent:
		a.deadlocks = append(a.deadlocks, DeadlockRecord{Victim: e.Sender, LockID: e.LockID})
		return false
	case nodeUpEvent:
		a.handleNodeUp(e.Node)
		return false
	case nodeDownEvent:
		return a.handleNodeDown(e.Node)
	case locksRunningEvent:
		return a.handleLocksRunning(e.Node)
	case deadlockScanEvent:
		a.logStuckSurrenders()
		if !a.stopped && !a.haveAll {
			a.runDeadlockAnalysis()
		}
		return false
	case clientDeadEvent:
		a.log.Infow("client terminated, ending transaction")
		return true
	default:
		a.log.Warnw("dropping unrecognized event", "type", e)
		return false
	}
}

// handleCommand dispatches one client command (§4.G) and reports whether
// it ends the transaction.
func (a *Agent) handleCommand(cmd Command) bool {
	if a.stopped {
		a.replyStopped(cmd)
		return false
	}
	switch c := cmd.(type) {
	case LockCommand:
		return a.handleLock(c)
	case LockObjectsCommand:
		return a.handleLockObjects(c)
	case SurrenderNowaitCommand:
		return a.handleSurrenderNowait(c)
	case AwaitAllLocksCommand:
		return a.handleAwaitAllLocks(c)
	case ChangeFlagCommand:
		return a.handleChangeFlag(c)
	case LockInfoCommand:
		return a.handleLockInfo(c)
	case StopCommand:
		return a.handleStop(c)
	case SubscribeNotifyCommand:
		return a.handleSubscribeNotify(c)
	default:
		a.log.Warnw("dropping unrecognized command")
	}
	return false
}

// replyStopped answers any command received after the transaction has
// already ended, per §7: a dead agent never silently swallows traffic
// directed at it, though in practice nothing services the inbox once Run
// has returned, so this only covers commands queued just before Stop was
// processed.
func (a *Agent) replyStopped(cmd Command) {
	switch c := cmd.(type) {
	case LockCommand:
		sendErr(c.Reply, ErrAgentStopped)
	case LockObjectsCommand:
		if c.Reply != nil {
			errs := make([]error, len(c.Specs))
			for i := range errs {
				errs[i] = ErrAgentStopped
			}
			c.Reply <- errs
		}
	case SurrenderNowaitCommand:
		sendErr(c.Reply, ErrAgentStopped)
	case AwaitAllLocksCommand:
		if c.Reply != nil {
			c.Reply <- AwaitResult{Status: StatusCannotServe}
		}
	case ChangeFlagCommand:
		sendErr(c.Reply, ErrAgentStopped)
	case LockInfoCommand:
		if c.Reply != nil {
			c.Reply <- LockInfoSnapshot{}
		}
	case StopCommand:
		sendErr(c.Reply, nil)
	case SubscribeNotifyCommand:
		if c.Reply != nil {
			c.Reply <- struct{}{}
		}
	}
}

// releaseResources releases every monitor token held for the agent's
// lifetime and signals exit, per §5's resource-ownership rule.
func (a *Agent) releaseResources() {
	for _, token := range a.monitored {
		a.deps.Monitor.Unmonitor(token)
	}
	close(a.done)
}

func sendErr(ch chan error, err error) {
	if ch != nil {
		ch <- err
	}
}

// noteFromUpdate extracts the optional surrender note embedded in a
// LockStateUpdate, normalizing an unset note to NoteNone.
func noteFromUpdate(u types.LockStateUpdate) types.Note { return u.Note }
