// Package catalog holds the static game definitions: FPS map pools,
// Splatoon map pools per mode, veto pattern lists, and the mode translation
// table. It has no dependency on engine, store, or transport — every other
// component reads from it.
//
// New seeds the mutable pool table from the built-in defaults through a
// JSON round trip (see clone, below), and every accessor returns a fresh
// copy, so later admin edits to the in-process catalog never retroactively
// mutate a lobby that already captured a snapshot at creation time.
package catalog

import (
	"encoding/json"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// titleCaser renders a mode key as a display title when it has no entry in
// modeTranslations (an admin-added mode, say) rather than echoing the raw
// lowercase key back to the client.
var titleCaser = cases.Title(language.English)

// TokenActor names who acts on one veto-pattern step: the team holding
// round priority, or the other team.
type TokenActor string

const (
	ActorPriority TokenActor = "priority"
	ActorOther    TokenActor = "other"
)

// TokenAction names what kind of action a pattern step requires.
type TokenAction string

const (
	TokenBan     TokenAction = "ban"
	TokenPick    TokenAction = "pick"
	TokenDecider TokenAction = "decider"
)

// PatternToken is one step of a veto pattern.
type PatternToken struct {
	Actor  TokenActor
	Action TokenAction
}

// defaultFPSPools maps an FPS game identifier to its canonical 7-map pool,
// in pick/ban display order. "cs2" is the reference title; other FPS
// titles can be added the same way without touching the turn controller.
var defaultFPSPools = map[string][]string{
	"cs2": {
		"Mirage", "Inferno", "Ancient", "Anubis", "Nuke", "Overpass", "Dust2",
	},
}

// defaultSplatoonPools maps a Splatoon mode to its map pool. Round 1's map
// pattern consumes 6 maps (2 priority bans, 3 other bans, 1 priority pick),
// so every pool carries at least 6 entries.
var defaultSplatoonPools = map[string][]string{
	"tower":     {"Hagglefish Market", "Eeltail Alley", "Undertow Spillway", "Mincemeat Metalworks", "Barnacle & Dime", "Robo ROM-en"},
	"zones":     {"Scorch Gorge", "Flounder Heights", "Hagglefish Market", "Robo ROM-en", "Brinewater Springs", "Undertow Spillway"},
	"rainmaker": {"Wahoo World", "Humpback Pump Track", "Manta Maria", "Sturgeon Shipyard", "Museum d'Alfonsino", "Flounder Heights"},
	"clams":     {"MakoMart", "Shellendorf Institute", "Crableg Capital", "Inkblot Art Academy", "Sturgeon Shipyard", "Barnacle & Dime"},
}

var modeTranslations = map[string]string{
	"tower":     "Tower Control",
	"zones":     "Splat Zones",
	"rainmaker": "Rainmaker",
	"clams":     "Clam Blitz",
}

// Catalog is the process-wide, mutable set of game definitions. The admin
// surface's editFPSMapPool mutates it (internal/admin); everything else
// reads through Snapshot-returning accessors that always clone.
type Catalog struct {
	mu              sync.RWMutex
	fpsPools        map[string][]string
	cardColors      []string
	coinFlipDefault bool
}

// defaultCardColors is the cosmetic palette the admin surface can replace
// wholesale via editCardColors.
var defaultCardColors = []string{"#2e86de", "#e74c3c"}

// New returns a Catalog seeded with the built-in defaults.
func New() *Catalog {
	return &Catalog{
		fpsPools:        clone(defaultFPSPools),
		cardColors:      append([]string(nil), defaultCardColors...),
		coinFlipDefault: true,
	}
}

// CoinFlipDefault returns the process-wide default new lobby-creation forms
// prefill, toggled by the admin surface's coinFlipUpdate.
func (c *Catalog) CoinFlipDefault() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.coinFlipDefault
}

// SetCoinFlipDefault flips the process-wide default.
func (c *Catalog) SetCoinFlipDefault(flag bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.coinFlipDefault = flag
}

// FPSMapPool returns a defensively-copied map pool for game, trimmed to
// size (4 or 7 — 7 is the canonical pool; a 4-pool BO1 takes the pool's
// first four entries). An unknown game or unsupported size is an error the
// caller turns into ErrBadConfig / lobbyCreationError.
func (c *Catalog) FPSMapPool(game string, size int) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pool, ok := c.fpsPools[game]
	if !ok {
		return nil, false
	}
	if size != 4 && size != 7 {
		return nil, false
	}
	if size > len(pool) {
		return nil, false
	}
	out := make([]string, size)
	copy(out, pool[:size])
	return out, true
}

// EditFPSMapPool replaces game's pool, or resets it to the built-in default
// when newPool is nil (admin surface).
func (c *Catalog) EditFPSMapPool(game string, newPool []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if newPool == nil {
		if def, ok := defaultFPSPools[game]; ok {
			c.fpsPools[game] = append([]string(nil), def...)
		} else {
			delete(c.fpsPools, game)
		}
		return
	}
	c.fpsPools[game] = append([]string(nil), newPool...)
}

// SplatoonMapPool returns a defensively-copied pool for mode.
func SplatoonMapPool(mode string) ([]string, bool) {
	pool, ok := defaultSplatoonPools[mode]
	if !ok {
		return nil, false
	}
	out := make([]string, len(pool))
	copy(out, pool)
	return out, true
}

// ModeTranslation returns mode's display name.
func ModeTranslation(mode string) string {
	if name, ok := modeTranslations[strings.ToLower(mode)]; ok {
		return name
	}
	return titleCaser.String(mode)
}

// FPSPattern returns the 7-token veto pattern for gameType. The first
// 7-poolSize tokens are consumed implicitly before any action — the Lobby's
// initial GameStep encodes that, not the pattern itself, so the pattern
// returned here is always the full-length canonical one.
func FPSPattern(gameType string) []TokenAction {
	switch gameType {
	case "bo1":
		return []TokenAction{TokenBan, TokenBan, TokenBan, TokenBan, TokenBan, TokenBan, TokenPick}
	case "bo3", "bo5":
		return []TokenAction{TokenBan, TokenBan, TokenPick, TokenPick, TokenBan, TokenBan, TokenDecider}
	default:
		return nil
	}
}

// SplatoonPattern returns the (modesRules, mapsRules) pair for a Splatoon
// round. Round 1 uses the "first" shape; subsequent rounds use the "next"
// shape. modesRules is empty when modesSize == 2 (no mode-veto phase).
//
// The round-N>1, 4-mode modesRules ("priority bans 1, other picks") is
// asymmetric relative to round 1's shape by design; DESIGN.md records the
// decision to implement it as written.
func SplatoonPattern(modesSize int, firstRound bool) (modesRules, mapsRules []PatternToken) {
	if modesSize == 4 {
		if firstRound {
			modesRules = []PatternToken{
				{Actor: ActorPriority, Action: TokenBan},
				{Actor: ActorOther, Action: TokenBan},
				{Actor: ActorPriority, Action: TokenPick},
			}
		} else {
			modesRules = []PatternToken{
				{Actor: ActorPriority, Action: TokenBan},
				{Actor: ActorOther, Action: TokenPick},
			}
		}
	}

	if firstRound || modesSize == 2 {
		mapsRules = []PatternToken{
			{Actor: ActorPriority, Action: TokenBan},
			{Actor: ActorPriority, Action: TokenBan},
			{Actor: ActorOther, Action: TokenBan},
			{Actor: ActorOther, Action: TokenBan},
			{Actor: ActorOther, Action: TokenBan},
			{Actor: ActorPriority, Action: TokenPick},
		}
		return
	}

	// Round N>1, 4-mode: winner bans 3, loser picks.
	mapsRules = []PatternToken{
		{Actor: ActorPriority, Action: TokenBan},
		{Actor: ActorPriority, Action: TokenBan},
		{Actor: ActorPriority, Action: TokenBan},
		{Actor: ActorOther, Action: TokenPick},
	}
	return
}

// DefaultActiveModes returns the canonical mode set for a pool size.
// modesSize=2 is always exactly the {tower, zones} subset.
func DefaultActiveModes(modesSize int) ([]string, bool) {
	switch modesSize {
	case 2:
		return []string{"tower", "zones"}, true
	case 4:
		return []string{"tower", "zones", "rainmaker", "clams"}, true
	default:
		return nil, false
	}
}

// CardColors returns a defensively-copied cosmetic palette.
func (c *Catalog) CardColors() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.cardColors))
	copy(out, c.cardColors)
	return out
}

// EditCardColors replaces the palette wholesale, or resets to default when
// newColors is nil.
func (c *Catalog) EditCardColors(newColors []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if newColors == nil {
		c.cardColors = append([]string(nil), defaultCardColors...)
		return
	}
	c.cardColors = append([]string(nil), newColors...)
}

// clone performs the JSON round-trip New uses to deep-copy the built-in
// FPS pools into a fresh Catalog.
func clone(pools map[string][]string) map[string][]string {
	data, err := json.Marshal(pools)
	if err != nil {
		// Only reachable if defaultFPSPools contains non-JSON-able data,
		// which it never does — map[string][]string always marshals.
		panic(err)
	}
	out := make(map[string][]string)
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return out
}
