// Package admin implements the privileged control surface: lobby
// lifecycle (create/delete), catalog edits, and the OBS overlay selection.
// Lobby ID generation is a collision-checked random code generator;
// admin-token signing and catalog-edit collapsing are built on
// golang.org/x/crypto and golang.org/x/sync.
package admin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"math/big"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"github.com/veto-ceremony/server/internal/catalog"
	"github.com/veto-ceremony/server/internal/dispatch"
	"github.com/veto-ceremony/server/internal/engine"
	"github.com/veto-ceremony/server/internal/lobbyactor"
	"github.com/veto-ceremony/server/internal/store"
)

var (
	ErrBadToken    = errors.New("admin: invalid admin token")
	ErrCodeExhaust = errors.New("admin: could not find an unused lobby id")
)

// Surface is the admin control surface.
type Surface struct {
	store   *store.Store
	catalog *catalog.Catalog
	pub     *dispatch.Service
	log     *zap.Logger
	secret  []byte // blake2b MAC key for admin tokens; regenerated every process start
	editSF  singleflight.Group
}

func New(st *store.Store, cat *catalog.Catalog, pub *dispatch.Service, log *zap.Logger) (*Surface, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return &Surface{store: st, catalog: cat, pub: pub, log: log, secret: secret}, nil
}

// Token derives the bearer token that authorizes admin actions on lobbyID:
// a blake2b-256 MAC over the process secret, so a leaked lobby code alone
// never grants admin control of it.
func (s *Surface) Token(lobbyID string) (string, error) {
	h, err := blake2b.New256(s.secret)
	if err != nil {
		return "", err
	}
	h.Write([]byte(lobbyID))
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *Surface) Authorize(lobbyID, token string) bool {
	want, err := s.Token(lobbyID)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(token)) == 1
}

const idCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // excludes easily-confused glyphs

func generateID() (string, error) {
	const length = 6
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(idCharset))))
		if err != nil {
			return "", err
		}
		b[i] = idCharset[n.Int64()]
	}
	return string(b), nil
}

func (s *Surface) freshID() (string, error) {
	for attempt := 0; attempt < 20; attempt++ {
		id, err := generateID()
		if err != nil {
			return "", err
		}
		if _, exists := s.store.Get(id); !exists {
			return id, nil
		}
	}
	return "", ErrCodeExhaust
}

// CreateFPSLobbyRequest mirrors the fields an admin (or the first client,
// for a self-service lobby) supplies at creation time.
type CreateFPSLobbyRequest struct {
	GameType     engine.FPSGameType
	PoolSize     int // 4 or 7
	Game         string
	KnifeDecider bool
	CoinFlip     bool
	Admin        bool
}

func (s *Surface) CreateFPSLobby(ctx context.Context, req CreateFPSLobbyRequest) (*lobbyactor.Actor, string, error) {
	pool, ok := s.catalog.FPSMapPool(req.Game, req.PoolSize)
	if !ok {
		return nil, "", engine.ErrBadConfig
	}
	id, err := s.freshID()
	if err != nil {
		return nil, "", err
	}
	l, err := engine.NewFPSLobby(id, req.GameType, pool, req.KnifeDecider, req.CoinFlip, req.Admin)
	if err != nil {
		return nil, "", err
	}
	a := lobbyactor.New(ctx, l, s.pub)
	a.SetEmptyHandler(s.handleLobbyEmptied)
	s.store.Put(a)
	return a, id, nil
}

type CreateSplatoonLobbyRequest struct {
	ModesSize   int
	ActiveModes []string
	CoinFlip    bool
	Admin       bool
}

func (s *Surface) CreateSplatoonLobby(ctx context.Context, req CreateSplatoonLobbyRequest) (*lobbyactor.Actor, string, error) {
	id, err := s.freshID()
	if err != nil {
		return nil, "", err
	}
	l, err := engine.NewSplatoonLobby(id, req.ModesSize, req.ActiveModes, req.CoinFlip, req.Admin)
	if err != nil {
		return nil, "", err
	}
	a := lobbyactor.New(ctx, l, s.pub)
	a.SetEmptyHandler(s.handleLobbyEmptied)
	s.store.Put(a)
	return a, id, nil
}

// DeleteLobby evicts id's members, shuts the actor's loop down, and
// removes it from the registry. The lobbyDeleted broadcast goes out
// before teardown so the members still in the room receive it; Shutdown
// is requested before the store entry is dropped so a concurrent lookup
// never races a half-torn-down actor.
func (s *Surface) DeleteLobby(id string) {
	a, ok := s.store.Get(id)
	if !ok {
		return
	}
	s.pub.Publish(id, []engine.Event{{Type: engine.EvtLobbyDeleted}})
	a.Shutdown()
	s.store.Delete(id)
	s.pub.PublishLobbiesUpdated(s.lobbyIDs())
}

// handleLobbyEmptied is the lobbyactor.EmptyHandler wired into every
// non-admin lobby: it's called back on the lobby's own actor goroutine the
// moment its last member disconnects, and tears that lobby down the same
// way an explicit DeleteLobby does, short of the lobbyDeleted broadcast
// (there is nobody left in the room to receive it).
func (s *Surface) handleLobbyEmptied(id string) {
	a, ok := s.store.Get(id)
	if !ok {
		return
	}
	a.Shutdown()
	s.store.Delete(id)
	s.pub.PublishLobbiesUpdated(s.lobbyIDs())
}

func (s *Surface) lobbyIDs() []string {
	actors := s.store.List()
	ids := make([]string, 0, len(actors))
	for _, a := range actors {
		ids = append(ids, a.ID())
	}
	return ids
}

// EditFPSMapPool replaces game's catalog pool. Concurrent identical edits
// (two admin tabs saving the same form) collapse onto one catalog mutation
// via singleflight rather than racing each other.
func (s *Surface) EditFPSMapPool(game string, newPool []string) {
	key := "fps:" + game
	s.editSF.Do(key, func() (interface{}, error) {
		s.catalog.EditFPSMapPool(game, newPool)
		return nil, nil
	})
}

func (s *Surface) EditCardColors(newColors []string) {
	s.editSF.Do("cardColors", func() (interface{}, error) {
		s.catalog.EditCardColors(newColors)
		return nil, nil
	})
}

// SetObsLobby pins id as the lobby feeding the obs overlay room and
// immediately replays its current picked/banned state into that room, so a
// viewer who was not connected for the live sequence sees the ceremony's
// state as it stands right now rather than starting from nothing.
func (s *Surface) SetObsLobby(ctx context.Context, id string) error {
	a, ok := s.store.Get(id)
	if !ok {
		return store.ErrNotFound
	}
	s.store.SetObsLobby(id)
	snap, err := a.Snapshot(ctx)
	if err != nil {
		return err
	}
	s.pub.PublishObsSnapshot(id, snap)
	return nil
}

// ClearObsLobby unpins whichever lobby currently feeds the obs overlay and
// tells that room its feed is gone.
func (s *Surface) ClearObsLobby() {
	prev := s.store.ObsLobby()
	s.store.SetObsLobby("")
	if prev != "" {
		s.pub.PublishObsClear(prev)
	}
}

// Start begins the ceremony for lobbyID immediately, bypassing the normal
// "both team names bound" trigger (admin-controlled lobbies only; a
// non-admin lobby with fewer than two members rejects this the same way
// the engine rejects it when driven from applyTeamName).
func (s *Surface) Start(ctx context.Context, lobbyID string) error {
	a, ok := s.store.Get(lobbyID)
	if !ok {
		return store.ErrNotFound
	}
	return a.Start(ctx)
}

// CoinFlipDefault returns the process-wide default new lobby-creation forms
// prefill.
func (s *Surface) CoinFlipDefault() bool {
	return s.catalog.CoinFlipDefault()
}

// CoinFlipUpdate flips the process-wide coin-flip default. Concurrent
// identical toggles collapse onto one mutation via singleflight, same as
// the catalog edit methods above.
func (s *Surface) CoinFlipUpdate(flag bool) {
	s.editSF.Do("coinFlip", func() (interface{}, error) {
		s.catalog.SetCoinFlipDefault(flag)
		return nil, nil
	})
}
