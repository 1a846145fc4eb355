package lobby

import (
	"github.com/Elekrisk/moba-try-5/internal/protocol"
)

// ChampSelect is the champion-selection phase. Selected always has exactly
// one entry per lobby member; a nil value means no pick yet.
type ChampSelect struct {
	Available []string
	Selected  map[protocol.PlayerID]*protocol.ChampionSelection
}

// EnterChampSelect transitions the lobby into champion select with the given
// catalog and an empty selection per member.
func (l *Lobby) EnterChampSelect(available []string) *ChampSelect {
	cs := &ChampSelect{
		Available: available,
		Selected:  make(map[protocol.PlayerID]*protocol.ChampionSelection, l.MemberCount()),
	}
	for _, p := range l.Members() {
		cs.Selected[p] = nil
	}
	l.Phase = cs
	return cs
}

// HasChampion reports whether name is in the catalog.
func (cs *ChampSelect) HasChampion(name string) bool {
	for _, c := range cs.Available {
		if c == name {
			return true
		}
	}
	return false
}

// Select records an unlocked pick for the player.
func (cs *ChampSelect) Select(p protocol.PlayerID, champion string) {
	cs.Selected[p] = &protocol.ChampionSelection{Champion: champion}
}

// Lock locks the player's current pick.
func (cs *ChampSelect) Lock(p protocol.PlayerID) {
	cs.Selected[p].Locked = true
}

// SelectionOf returns the player's pick, nil when none.
func (cs *ChampSelect) SelectionOf(p protocol.PlayerID) *protocol.ChampionSelection {
	return cs.Selected[p]
}

// AllLocked reports whether every member has a locked pick.
func (cs *ChampSelect) AllLocked() bool {
	for _, sel := range cs.Selected {
		if sel == nil || !sel.Locked {
			return false
		}
	}
	return true
}

func (cs *ChampSelect) addMember(p protocol.PlayerID) {
	if _, ok := cs.Selected[p]; !ok {
		cs.Selected[p] = nil
	}
}

func (cs *ChampSelect) removeMember(p protocol.PlayerID) {
	delete(cs.Selected, p)
}

func (cs *ChampSelect) snapshot() *protocol.ChampSelectSnapshot {
	selected := make(map[protocol.PlayerID]*protocol.ChampionSelection, len(cs.Selected))
	for p, sel := range cs.Selected {
		if sel == nil {
			selected[p] = nil
			continue
		}
		clone := *sel
		selected[p] = &clone
	}
	return &protocol.ChampSelectSnapshot{
		AvailableChamps: append([]string{}, cs.Available...),
		SelectedChamps:  selected,
	}
}
