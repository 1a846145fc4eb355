// Package lobby holds the in-memory lobby state and every deterministic
// mutation the event loop performs on it. Nothing here touches the network;
// the server package owns the maps and calls in.
package lobby

import (
	"fmt"

	"github.com/Elekrisk/moba-try-5/internal/protocol"
)

// Phase is the lobby lifecycle: Normal → ChampSelect → InGame. The variants
// are mutually exclusive; guards branch on the concrete type.
type Phase interface {
	phase()
}

// Normal is the pre-game phase: members join, leave and shuffle teams.
type Normal struct{}

// InGame marks a lobby whose game server is live (or being started).
type InGame struct{}

func (Normal) phase()       {}
func (*ChampSelect) phase() {}
func (InGame) phase()       {}

// Lobby is one named group of players split into teams. Team indices are
// contiguous from 0; order within a team is presentation order and is
// preserved by every operation except the explicit swaps.
type Lobby struct {
	ID       protocol.LobbyID
	Settings protocol.LobbySettings
	Leader   protocol.PlayerID
	Teams    [][]protocol.PlayerID
	Phase    Phase
}

// DefaultSettings are the settings a freshly created lobby gets.
func DefaultSettings(leaderName string) protocol.LobbySettings {
	return protocol.LobbySettings{
		Name:                 fmt.Sprintf("%s's Lobby", leaderName),
		Map:                  "Default",
		TeamCount:            2,
		PlayerLimitPerTeam:   5,
		PlayersCanChangeTeam: true,
		LobbyIsOpen:          true,
	}
}

// New creates a lobby with default settings, the creator as leader and sole
// member of team 0.
func New(id protocol.LobbyID, leader protocol.PlayerID, leaderName string) *Lobby {
	return &Lobby{
		ID:       id,
		Settings: DefaultSettings(leaderName),
		Leader:   leader,
		Teams: [][]protocol.PlayerID{
			{leader},
			{},
		},
		Phase: Normal{},
	}
}

// Members returns every member, teams in ascending index order, intra-team
// order preserved.
func (l *Lobby) Members() []protocol.PlayerID {
	var out []protocol.PlayerID
	for _, team := range l.Teams {
		out = append(out, team...)
	}
	return out
}

// MemberCount returns the number of players across all teams.
func (l *Lobby) MemberCount() int {
	n := 0
	for _, team := range l.Teams {
		n += len(team)
	}
	return n
}

// MaxPlayers is the capacity implied by the current settings.
func (l *Lobby) MaxPlayers() int {
	return l.Settings.TeamCount * l.Settings.PlayerLimitPerTeam
}

// IsFull reports whether no further player can join.
func (l *Lobby) IsFull() bool {
	return l.MemberCount() >= l.MaxPlayers()
}

// HasTeam reports whether the team index exists.
func (l *Lobby) HasTeam(t protocol.Team) bool {
	return t >= 0 && int(t) < len(l.Teams)
}

// TeamIsFull reports whether the team is at the per-team limit.
func (l *Lobby) TeamIsFull(t protocol.Team) bool {
	return len(l.Teams[t]) >= l.Settings.PlayerLimitPerTeam
}

// PositionOf finds a member's (team, slot). ok is false for non-members.
func (l *Lobby) PositionOf(p protocol.PlayerID) (team protocol.Team, slot int, ok bool) {
	for ti, members := range l.Teams {
		for si, member := range members {
			if member == p {
				return protocol.Team(ti), si, true
			}
		}
	}
	return 0, 0, false
}

// Contains reports lobby membership.
func (l *Lobby) Contains(p protocol.PlayerID) bool {
	_, _, ok := l.PositionOf(p)
	return ok
}

// smallestTeam picks the team with the fewest members, lowest index on ties.
func (l *Lobby) smallestTeam() protocol.Team {
	best := protocol.Team(0)
	for ti := 1; ti < len(l.Teams); ti++ {
		if len(l.Teams[ti]) < len(l.Teams[best]) {
			best = protocol.Team(ti)
		}
	}
	return best
}

// AddToSmallestTeam appends the player to the currently smallest team and
// returns that team.
func (l *Lobby) AddToSmallestTeam(p protocol.PlayerID) protocol.Team {
	t := l.smallestTeam()
	l.Teams[t] = append(l.Teams[t], p)
	if cs, ok := l.Phase.(*ChampSelect); ok {
		cs.addMember(p)
	}
	return t
}

// Remove deletes the player from its team, preserving the order of the
// others. Reports whether the player was a member.
func (l *Lobby) Remove(p protocol.PlayerID) bool {
	team, slot, ok := l.PositionOf(p)
	if !ok {
		return false
	}
	l.Teams[team] = append(l.Teams[team][:slot], l.Teams[team][slot+1:]...)
	if cs, ok := l.Phase.(*ChampSelect); ok {
		cs.removeMember(p)
	}
	return true
}

// MoveToTeam removes the player from its current team and appends it to t.
func (l *Lobby) MoveToTeam(p protocol.PlayerID, t protocol.Team) {
	team, slot, ok := l.PositionOf(p)
	if !ok {
		return
	}
	l.Teams[team] = append(l.Teams[team][:slot], l.Teams[team][slot+1:]...)
	l.Teams[t] = append(l.Teams[t], p)
}

// SwapPlaces exchanges the (team, slot) positions of two members.
func (l *Lobby) SwapPlaces(a, b protocol.PlayerID) {
	at, as, aok := l.PositionOf(a)
	bt, bs, bok := l.PositionOf(b)
	if !aok || !bok {
		return
	}
	l.Teams[at][as], l.Teams[bt][bs] = l.Teams[bt][bs], l.Teams[at][as]
}

// PromoteNextLeader makes the first member (team-ascending, then slot order)
// the new leader and returns it. Must not be called on an empty lobby.
func (l *Lobby) PromoteNextLeader() protocol.PlayerID {
	for _, team := range l.Teams {
		if len(team) > 0 {
			l.Leader = team[0]
			return team[0]
		}
	}
	panic("PromoteNextLeader on empty lobby")
}

// ApplySettings replaces the settings, redistributing displaced players.
// Returns false (and changes nothing) when the new settings equal the
// current ones.
//
// Displacement order: teams removed by a lower team count contribute their
// members first (ascending team index, intra-team order kept), then each
// surviving team's tail beyond the new per-team limit (ascending index).
// Displaced players are then greedily appended to the smallest team, lowest
// index on ties.
func (l *Lobby) ApplySettings(next protocol.LobbySettings) bool {
	if next == l.Settings {
		return false
	}

	var displaced []protocol.PlayerID

	switch {
	case next.TeamCount < l.Settings.TeamCount:
		for _, team := range l.Teams[next.TeamCount:] {
			displaced = append(displaced, team...)
		}
		l.Teams = l.Teams[:next.TeamCount]
	case next.TeamCount > l.Settings.TeamCount:
		for len(l.Teams) < next.TeamCount {
			l.Teams = append(l.Teams, nil)
		}
	}

	if next.PlayerLimitPerTeam < l.Settings.PlayerLimitPerTeam || l.anyTeamOver(next.PlayerLimitPerTeam) {
		for ti, team := range l.Teams {
			if len(team) > next.PlayerLimitPerTeam {
				displaced = append(displaced, team[next.PlayerLimitPerTeam:]...)
				l.Teams[ti] = team[:next.PlayerLimitPerTeam]
			}
		}
	}

	l.Settings = next

	for _, p := range displaced {
		t := l.smallestTeam()
		l.Teams[t] = append(l.Teams[t], p)
	}
	return true
}

func (l *Lobby) anyTeamOver(limit int) bool {
	for _, team := range l.Teams {
		if len(team) > limit {
			return true
		}
	}
	return false
}

// Snapshot builds the wire view of the lobby.
func (l *Lobby) Snapshot() protocol.LobbySnapshot {
	players := make(map[protocol.Team][]protocol.PlayerID, len(l.Teams))
	for ti, team := range l.Teams {
		players[protocol.Team(ti)] = append([]protocol.PlayerID{}, team...)
	}
	return protocol.LobbySnapshot{
		ID:       l.ID,
		Settings: l.Settings,
		Leader:   l.Leader,
		Players:  players,
		State:    l.stateSnapshot(),
	}
}

func (l *Lobby) stateSnapshot() protocol.LobbyStateSnapshot {
	switch phase := l.Phase.(type) {
	case *ChampSelect:
		return protocol.LobbyStateSnapshot{Kind: protocol.PhaseChampSelect, ChampSelect: phase.snapshot()}
	case InGame:
		return protocol.LobbyStateSnapshot{Kind: protocol.PhaseInGame}
	default:
		return protocol.LobbyStateSnapshot{Kind: protocol.PhaseNormal}
	}
}

// ShortInfo builds the lobby-list entry.
func (l *Lobby) ShortInfo() protocol.LobbyShortInfo {
	return protocol.LobbyShortInfo{
		ID:             l.ID,
		Name:           l.Settings.Name,
		PlayerCount:    l.MemberCount(),
		MaxPlayerCount: l.MaxPlayers(),
	}
}
