package state

import (
	"github.com/ewasm/eeivm/internal/runtime/db"
	"github.com/ewasm/eeivm/types"
)

// journalEntry is a state change that can be undone.
type journalEntry interface {
	revert(*StateDB)
	// dirtied returns the account touched by the entry, if any.
	dirtied() *types.Address
}

// journal records every modification since the last Finalise so that
// snapshots can be rolled back.
type journal struct {
	entries []journalEntry
	dirties map[types.Address]int
}

func newJournal() *journal {
	return &journal{dirties: make(map[types.Address]int)}
}

func (j *journal) append(entry journalEntry) {
	j.entries = append(j.entries, entry)
	if addr := entry.dirtied(); addr != nil {
		j.dirties[*addr]++
	}
}

// revert undoes all entries from index snapshot onwards, newest first.
func (j *journal) revert(s *StateDB, snapshot int) {
	for i := len(j.entries) - 1; i >= snapshot; i-- {
		j.entries[i].revert(s)
		if addr := j.entries[i].dirtied(); addr != nil {
			if j.dirties[*addr]--; j.dirties[*addr] == 0 {
				delete(j.dirties, *addr)
			}
		}
	}
	j.entries = j.entries[:snapshot]
}

func (j *journal) length() int {
	return len(j.entries)
}

func (j *journal) reset() {
	j.entries = j.entries[:0]
	j.dirties = make(map[types.Address]int)
}

type (
	createObjectChange struct {
		account *types.Address
		prev    *stateObject
	}
	balanceChange struct {
		account *types.Address
		prev    types.Value
	}
	nonceChange struct {
		account *types.Address
		prev    uint64
	}
	codeChange struct {
		account  *types.Address
		prevCode []byte
		prevHash types.Uint256
	}
	storageChange struct {
		account  *types.Address
		key      types.Uint256
		prevalue types.Uint256
	}
	selfDestructChange struct {
		account *types.Address
	}
	addLogChange struct{}
)

func (ch createObjectChange) revert(s *StateDB) {
	if ch.prev == nil {
		delete(s.objects, *ch.account)
		return
	}
	s.objects[*ch.account] = ch.prev
}

func (ch createObjectChange) dirtied() *types.Address { return ch.account }

func (ch balanceChange) revert(s *StateDB) {
	s.getStateObject(*ch.account).setBalance(ch.prev)
}

func (ch balanceChange) dirtied() *types.Address { return ch.account }

func (ch nonceChange) revert(s *StateDB) {
	s.getStateObject(*ch.account).setNonce(ch.prev)
}

func (ch nonceChange) dirtied() *types.Address { return ch.account }

func (ch codeChange) revert(s *StateDB) {
	s.getStateObject(*ch.account).setCode(ch.prevHash, ch.prevCode)
}

func (ch codeChange) dirtied() *types.Address { return ch.account }

func (ch storageChange) revert(s *StateDB) {
	s.getStateObject(*ch.account).setState(ch.key, ch.prevalue)
}

func (ch storageChange) dirtied() *types.Address { return ch.account }

func (ch selfDestructChange) revert(s *StateDB) {
	s.destructed.Remove(*ch.account)
	for i := len(s.pendingDestructs) - 1; i >= 0; i-- {
		if s.pendingDestructs[i].Account == *ch.account {
			s.pendingDestructs = append(s.pendingDestructs[:i], s.pendingDestructs[i+1:]...)
			break
		}
	}
}

func (ch selfDestructChange) dirtied() *types.Address { return ch.account }

func (ch addLogChange) revert(s *StateDB) {
	s.logs = s.logs[:len(s.logs)-1]
}

func (ch addLogChange) dirtied() *types.Address { return nil }

// emptyAccount is the record of an account that was never written.
var emptyAccount = db.Account{CodeHash: db.EmptyCodeHash}
