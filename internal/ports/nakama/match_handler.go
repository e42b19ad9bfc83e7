package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/Nektarios-I/Kouppi-sub000/internal/app"
	"github.com/Nektarios-I/Kouppi-sub000/internal/bot"
	"github.com/Nektarios-I/Kouppi-sub000/internal/clock"
	"github.com/Nektarios-I/Kouppi-sub000/internal/config"
	"github.com/Nektarios-I/Kouppi-sub000/internal/domain"
	"github.com/Nektarios-I/Kouppi-sub000/internal/ports"
	"github.com/Nektarios-I/Kouppi-sub000/internal/registry"

	"github.com/heroiclabs/nakama-common/runtime"
)

// MatchState holds the authoritative runtime state for one Kouppi room.
type MatchState struct {
	RoomID  string        `json:"room_id"`
	HostID  string        `json:"host_id"`
	Secret  string        `json:"-"`
	Private bool          `json:"private"`
	Stage   stage         `json:"stage"`
	Tick    int64         `json:"tick"`
	Players []*roomPlayer `json:"players"` // seat order is the engine's player order

	Rules domain.TableRules `json:"rules"`

	Presences  map[string]runtime.Presence `json:"-"` // user id -> connection, seated players only
	Spectators map[string]runtime.Presence `json:"-"`

	App      *app.Service       `json:"-"`
	Game     *domain.Game       `json:"-"` // nil until the host starts
	Clock    *clock.Clock       `json:"-"`
	Decision *app.DecisionPhase `json:"-"`
	Chat     *chatRing          `json:"-"`

	Economy ports.EconomyPort `json:"-"`
	Stats   ports.StatsPort   `json:"-"`

	// Baselines are each player's bankroll at game start; settlement writes
	// the delta against this when they leave or the room closes.
	Baselines map[string]int64 `json:"-"`
	Settled   map[string]bool  `json:"-"`

	BotsEnabled      bool                  `json:"bots_enabled"`
	BotMinDelay      int                   `json:"bot_min_delay"`
	BotMaxDelay      int                   `json:"bot_max_delay"`
	BotAutoFillDelay int                   `json:"bot_auto_fill_delay"`
	BotWaitUntil     int64                 `json:"bot_wait_until"`
	SoloHumanSince   int64                 `json:"solo_human_since"`
	Bots             map[string]*bot.Agent `json:"-"`

	IdleSince int64 `json:"idle_since"`
	Closing   bool  `json:"-"`
}

func (ms *MatchState) seatIndex(userID string) int {
	for i, p := range ms.Players {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

func (ms *MatchState) seatedPlayer(userID string) *roomPlayer {
	if i := ms.seatIndex(userID); i >= 0 {
		return ms.Players[i]
	}
	return nil
}

func (ms *MatchState) seatedIDs() []string {
	ids := make([]string, len(ms.Players))
	for i, p := range ms.Players {
		ids[i] = p.UserID
	}
	return ids
}

func (ms *MatchState) humanSeatCount() int {
	count := 0
	for _, p := range ms.Players {
		if !p.IsBot {
			count++
		}
	}
	return count
}

func (ms *MatchState) openSeatCount() int {
	open := ms.Rules.MaxPlayers - len(ms.Players)
	if open < 0 {
		open = 0
	}
	return open
}

// shouldTerminateNoHumans reports whether nobody human is left to play for.
func shouldTerminateNoHumans(ms *MatchState) bool {
	return ms.humanSeatCount() == 0 && len(ms.Spectators) == 0
}

// NewMatch returns the factory function registered with Nakama. The shared
// registry is captured so rooms and RPC goroutines see the same index.
func NewMatch(reg *registry.Registry) func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return &matchHandler{registry: reg}, nil
	}
}

type matchHandler struct {
	registry *registry.Registry
}

// MatchInit is called when the room is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing Kouppi room.")

	if err := config.LoadTableCatalog("data/table_catalog.json"); err != nil {
		logger.Warn("MatchInit: Could not load table catalog: %v", err)
	}

	tier, _ := params["tier"].(string)
	secret, _ := params["secret"].(string)
	hostID, _ := params["host_id"].(string)

	state := &MatchState{
		HostID:     hostID,
		Secret:     secret,
		Private:    secret != "",
		Stage:      stageLobby,
		Rules:      config.ResolveRules(tier),
		Presences:  make(map[string]runtime.Presence),
		Spectators: make(map[string]runtime.Presence),
		App:        app.NewService(),
		Clock:      clock.New(),
		Chat:       newChatRing(),
		Economy:    NewNakamaEconomyAdapter(nk),
		Stats:      NewNakamaStatsAdapter(nk),
		Baselines:  make(map[string]int64),
		Settled:    make(map[string]bool),
		Bots:       make(map[string]*bot.Agent),
	}

	if roomID, ok := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string); ok {
		state.RoomID = roomID
	}

	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	if val, ok := env["kouppi_bots_enabled"]; ok {
		state.BotsEnabled = val == "true"
	}
	if val, ok := env["kouppi_bot_min_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotMinDelay = i
		}
	}
	if val, ok := env["kouppi_bot_max_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotMaxDelay = i
		}
	}
	if val, ok := env["kouppi_bot_auto_fill_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotAutoFillDelay = i
		}
	}
	if state.BotMinDelay == 0 {
		state.BotMinDelay = 1
	}
	if state.BotMaxDelay == 0 {
		state.BotMaxDelay = 3
	}
	if state.BotAutoFillDelay == 0 {
		state.BotAutoFillDelay = 5
		if cat := config.GetTableCatalog(); cat != nil && cat.BotAutoFillDelaySeconds > 0 {
			state.BotAutoFillDelay = cat.BotAutoFillDelaySeconds
		}
	}

	if err := mh.registry.Create(registry.RoomInfo{
		ID:         state.RoomID,
		MaxPlayers: state.Rules.MaxPlayers,
		HostID:     state.HostID,
		Private:    state.Private,
	}); err != nil {
		logger.Error("MatchInit: Failed to register room %s: %v", state.RoomID, err)
	}

	tickRate := 1 // turn clock and deadlines are driven in whole seconds
	return state, tickRate, mh.labelJSON(state, logger)
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	userID := presence.GetUserId()

	if matchState.Secret != "" && metadata["secret"] != matchState.Secret {
		return matchState, false, "bad secret"
	}

	// Rejoining your own room is always allowed; otherwise the registry's
	// one-active-room rule applies.
	if matchState.seatIndex(userID) >= 0 {
		return matchState, true, ""
	}
	if roomID, inRoom := mh.registry.RoomOfPlayer(userID); inRoom && roomID != matchState.RoomID {
		return matchState, false, "already in another room"
	}

	// A full lobby has no seat to give and nothing to watch yet.
	if matchState.Stage == stageLobby && len(matchState.Players) >= matchState.Rules.MaxPlayers {
		return matchState, false, "room full"
	}

	// Started rooms still accept joiners, as spectators.
	return matchState, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()

		// Reconnection: same player id while still a member updates only
		// the connection mapping, never the game state.
		if rp := matchState.seatedPlayer(userID); rp != nil {
			matchState.Presences[userID] = p
			rp.SessionID = p.GetSessionId()
			logger.Debug("MatchJoin: %s reconnected.", userID)
			continue
		}

		if matchState.Stage == stageLobby && len(matchState.Players) < matchState.Rules.MaxPlayers {
			matchState.Players = append(matchState.Players, &roomPlayer{
				UserID:      userID,
				DisplayName: p.GetUsername(),
				SessionID:   p.GetSessionId(),
			})
			matchState.Presences[userID] = p
			if err := mh.registry.Join(matchState.RoomID, userID); err != nil {
				logger.Warn("MatchJoin: Registry join for %s failed: %v", userID, err)
			}
			if matchState.HostID == "" {
				matchState.HostID = userID
				mh.registry.SetHost(matchState.RoomID, userID)
			}
			continue
		}

		// Late joiners watch and chat, but never act.
		matchState.Spectators[userID] = p
		logger.Debug("MatchJoin: %s joined as spectator.", userID)
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastSnapshot(matchState, dispatcher, logger)

	return matchState
}

// MatchLeave handles connection loss. In the lobby the seat is freed; during
// a game membership survives the disconnect and the AFK escalation decides.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		delete(matchState.Presences, userID)
		if _, spectating := matchState.Spectators[userID]; spectating {
			delete(matchState.Spectators, userID)
			continue
		}

		if matchState.Stage == stageLobby && matchState.seatIndex(userID) >= 0 {
			mh.unseat(ctx, matchState, logger, userID, "left")
			if userID == matchState.HostID {
				mh.closeRoom(ctx, matchState, dispatcher, logger, "host_left")
				break
			}
		}
	}

	if matchState.Closing || shouldTerminateNoHumans(matchState) {
		logger.Info("MatchLeave: Closing room %s.", matchState.RoomID)
		mh.teardown(ctx, matchState, logger)
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastSnapshot(matchState, dispatcher, logger)

	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpStartGame:
			mh.handleStartGame(ctx, matchState, dispatcher, logger, msg)
		case OpPass, OpBet, OpKouppi, OpShistri:
			mh.handleTurnAction(ctx, matchState, dispatcher, logger, msg)
		case OpDecision:
			mh.handleDecision(ctx, matchState, dispatcher, logger, msg)
		case OpLeaveTable:
			mh.handleLeaveTable(ctx, matchState, dispatcher, logger, msg)
		case OpChatSend:
			mh.handleChat(matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
		if matchState.Closing {
			break
		}
	}

	if !matchState.Closing {
		mh.processTick(ctx, matchState, dispatcher, logger)
	}

	if matchState.Closing || shouldTerminateNoHumans(matchState) {
		mh.teardown(ctx, matchState, logger)
		return nil
	}

	return matchState
}

// processTick runs the stage's timed behavior for this second.
func (mh *matchHandler) processTick(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	switch state.Stage {
	case stageLobby:
		if state.BotsEnabled {
			mh.processLobbyBots(state, dispatcher, logger)
		}

	case stageTurn:
		g := state.Game
		if g == nil || g.Turn == nil {
			mh.drive(ctx, state, dispatcher, logger)
			return
		}
		mh.broadcastJSON(state, dispatcher, logger, OpTurnClock, TurnClockEvent{
			Remaining:       state.Clock.Remaining(clock.KindTurn, state.Tick),
			Total:           state.Clock.Total(clock.KindTurn),
			CurrentPlayerID: g.Turn.PlayerID,
		}, nil)
		if bot.IsBot(g.Turn.PlayerID) {
			mh.processBotTurn(ctx, state, dispatcher, logger)
			return
		}
		state.BotWaitUntil = 0
		if state.Clock.Expired(clock.KindTurn, state.Tick) {
			mh.handleTurnTimeout(ctx, state, dispatcher, logger)
		}

	case stageReview:
		if state.Clock.Expired(clock.KindReview, state.Tick) {
			if err := state.App.Advance(state.Game); err != nil {
				logger.Error("processTick: Advance after review failed: %v", err)
			}
			mh.drive(ctx, state, dispatcher, logger)
			mh.broadcastSnapshot(state, dispatcher, logger)
		}

	case stageDecision:
		if state.Decision == nil {
			mh.drive(ctx, state, dispatcher, logger)
			return
		}
		if state.Decision.Complete() {
			mh.resolveDecision(ctx, state, dispatcher, logger, false)
		} else if state.Clock.Expired(clock.KindDecision, state.Tick) {
			mh.resolveDecision(ctx, state, dispatcher, logger, true)
		}

	case stageIdle:
		if state.Tick-state.IdleSince >= idleGraceSeconds {
			mh.closeRoom(ctx, state, dispatcher, logger, "idle")
		}
	}
}

// drive moves the room to the stage its game state demands. It is the only
// place stages change after game start, so every transition cancels the
// deadlines of the stage it leaves.
func (mh *matchHandler) drive(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	state.Clock.CancelAll()
	g := state.Game
	if g == nil {
		state.Stage = stageLobby
		return
	}

	switch {
	case g.Phase == domain.PhaseRound && g.Turn != nil:
		state.Stage = stageTurn
		state.BotWaitUntil = 0
		state.Clock.Start(clock.KindTurn, state.Tick, g.Rules.TurnSeconds)
		mh.broadcastJSON(state, dispatcher, logger, OpTurnClock, TurnClockEvent{
			Remaining:       state.Clock.Remaining(clock.KindTurn, state.Tick),
			Total:           state.Clock.Total(clock.KindTurn),
			CurrentPlayerID: g.Turn.PlayerID,
		}, nil)

	case g.Phase == domain.PhaseRound && g.AwaitNext:
		state.Stage = stageReview
		state.Clock.Start(clock.KindReview, state.Tick, g.Rules.ReviewSeconds)

	case g.Phase == domain.PhaseRound:
		events, err := state.App.EnsureTurn(g)
		if err != nil {
			logger.Error("drive: EnsureTurn failed: %v", err)
			return
		}
		for _, ev := range events {
			mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
		}
		mh.drive(ctx, state, dispatcher, logger)

	case g.Phase == domain.PhaseRoundEnd:
		mh.openDecision(state, dispatcher, logger)
	}
}

// openDecision starts the stay/leave window for everyone still seated.
func (mh *matchHandler) openDecision(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	state.Stage = stageDecision
	ids := state.seatedIDs()
	state.Decision = app.NewDecisionPhase(ids, state.Tick+int64(state.Rules.DecisionSeconds))
	state.Clock.Start(clock.KindDecision, state.Tick, state.Rules.DecisionSeconds)

	mh.broadcastJSON(state, dispatcher, logger, OpDecisionOpened, DecisionOpenedEvent{
		Seconds:   int64(state.Rules.DecisionSeconds),
		PlayerIDs: ids,
	}, nil)

	// Bots choose immediately.
	for _, rp := range state.Players {
		if !rp.IsBot {
			continue
		}
		agent := state.Bots[rp.UserID]
		choice := app.ChoiceLeave
		if agent != nil && agent.DecideStay(state.Game) {
			choice = app.ChoiceStay
		}
		if err := state.Decision.Submit(rp.UserID, choice); err != nil {
			logger.Warn("openDecision: Bot %s choice rejected: %v", rp.UserID, err)
		}
	}
	mh.broadcastJSON(state, dispatcher, logger, OpDecisionUpdate, DecisionUpdateEvent{Choices: state.Decision.Choices()}, nil)
}

// resolveDecision closes the stay/leave window. Forced resolution treats
// every unset choice as a leave.
func (mh *matchHandler) resolveDecision(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, forced bool) {
	stay, leave := state.Decision.Resolve(forced)
	state.Decision = nil
	state.Clock.CancelAll()

	reason := "left"
	if forced {
		reason = "decision_timeout"
	}

	hostLeaving := false
	for _, id := range leave {
		if id == state.HostID {
			hostLeaving = true
		}
		mh.unseat(ctx, state, logger, id, reason)
		if p, ok := state.Presences[id]; ok {
			delete(state.Presences, id)
			if err := dispatcher.MatchKick([]runtime.Presence{p}); err != nil {
				logger.Warn("resolveDecision: Kick for %s failed: %v", id, err)
			}
		}
	}
	if len(leave) > 0 {
		for _, ev := range state.App.RemovePlayers(state.Game, leave, reason) {
			mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
		}
	}

	nextRound := len(stay) >= app.MinPlayersToStart && !hostLeaving
	mh.broadcastJSON(state, dispatcher, logger, OpDecisionResolved, DecisionResolvedEvent{
		Stay:      stay,
		Leave:     leave,
		NextRound: nextRound,
	}, nil)

	if hostLeaving {
		mh.closeRoom(ctx, state, dispatcher, logger, "host_left")
		return
	}
	if !nextRound {
		state.Stage = stageIdle
		state.IdleSince = state.Tick
		mh.updateLabel(state, dispatcher, logger)
		mh.broadcastSnapshot(state, dispatcher, logger)
		return
	}

	events, err := state.App.StartNextRound(state.Game)
	if err != nil {
		logger.Error("resolveDecision: StartNextRound failed: %v", err)
		state.Stage = stageIdle
		state.IdleSince = state.Tick
		return
	}
	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
	mh.drive(ctx, state, dispatcher, logger)
	mh.updateLabel(state, dispatcher, logger)
	mh.broadcastSnapshot(state, dispatcher, logger)
}

// handleTurnTimeout applies the AFK escalation for the current player: pass
// on their behalf, skip the review pause, and kick at the threshold.
func (mh *matchHandler) handleTurnTimeout(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	g := state.Game
	if g == nil || g.Turn == nil {
		mh.drive(ctx, state, dispatcher, logger)
		return
	}
	current := g.Turn.PlayerID
	rp := state.seatedPlayer(current)
	if rp == nil {
		mh.drive(ctx, state, dispatcher, logger)
		return
	}

	rp.AFKCount++
	kicked := rp.AFKCount >= afkKickThreshold
	mh.broadcastJSON(state, dispatcher, logger, OpTurnTimeout, TurnTimeoutEvent{
		PlayerID: current,
		AFKCount: rp.AFKCount,
		Kicked:   kicked,
	}, nil)
	logger.Info("handleTurnTimeout: %s timed out (afk=%d, kicked=%v).", current, rp.AFKCount, kicked)

	events, err := state.App.Pass(g, current)
	if err != nil {
		logger.Error("handleTurnTimeout: Forced pass for %s failed: %v", current, err)
		state.Clock.CancelAll()
		mh.drive(ctx, state, dispatcher, logger)
		return
	}
	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
	state.Clock.CancelAll()

	if kicked {
		mh.unseat(ctx, state, logger, current, "afk")
		if p, ok := state.Presences[current]; ok {
			delete(state.Presences, current)
			if err := dispatcher.MatchKick([]runtime.Presence{p}); err != nil {
				logger.Warn("handleTurnTimeout: Kick for %s failed: %v", current, err)
			}
		}
		for _, ev := range state.App.RemovePlayers(g, []string{current}, "afk") {
			mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
		}
		if current == state.HostID {
			mh.closeRoom(ctx, state, dispatcher, logger, "host_left")
			return
		}
	}

	// Timeouts skip the review pause so an absent player cannot slow the
	// table to one action per deadline pair.
	if g.Phase == domain.PhaseRound && g.AwaitNext {
		if err := state.App.Advance(g); err != nil {
			logger.Error("handleTurnTimeout: Advance failed: %v", err)
		}
	}
	mh.drive(ctx, state, dispatcher, logger)
	mh.updateLabel(state, dispatcher, logger)
	mh.broadcastSnapshot(state, dispatcher, logger)
}

func (mh *matchHandler) processLobbyBots(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.humanSeatCount() != 1 {
		state.SoloHumanSince = 0
		return
	}
	if state.SoloHumanSince == 0 {
		state.SoloHumanSince = state.Tick
		return
	}
	if state.Tick-state.SoloHumanSince < int64(state.BotAutoFillDelay) {
		return
	}
	state.SoloHumanSince = 0

	added := false
	for seat := len(state.Players); seat < botFillSeats && seat < state.Rules.MaxPlayers; seat++ {
		identity := bot.GetIdentity(seat)
		if state.seatIndex(identity.UserID) >= 0 {
			continue
		}
		state.Players = append(state.Players, &roomPlayer{
			UserID:      identity.UserID,
			DisplayName: identity.Username,
			IsBot:       true,
		})
		state.Bots[identity.UserID] = bot.NewAgent(identity.UserID, time.Now().UnixNano())
		logger.Info("processLobbyBots: Seated bot %s (%s).", identity.Username, identity.UserID)
		added = true
	}
	if added {
		mh.updateLabel(state, dispatcher, logger)
		mh.broadcastSnapshot(state, dispatcher, logger)
	}
}

func (mh *matchHandler) processBotTurn(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	g := state.Game
	botID := g.Turn.PlayerID
	if state.BotWaitUntil == 0 {
		delay := rand.Intn(state.BotMaxDelay-state.BotMinDelay+1) + state.BotMinDelay
		state.BotWaitUntil = state.Tick + int64(delay)
		return
	}
	if state.Tick < state.BotWaitUntil {
		return
	}
	state.BotWaitUntil = 0

	agent, ok := state.Bots[botID]
	if !ok {
		agent = bot.NewAgent(botID, time.Now().UnixNano())
		state.Bots[botID] = agent
	}

	move := agent.Decide(g)
	var events []app.Event
	var err error
	switch move.Kind {
	case domain.ResolveBet:
		events, err = state.App.Bet(g, botID, move.Amount)
	case domain.ResolveKouppi:
		events, err = state.App.Kouppi(g, botID)
	case domain.ResolveShistri:
		events, err = state.App.Shistri(g, botID)
	default:
		events, err = state.App.Pass(g, botID)
	}
	if err != nil {
		logger.Error("processBotTurn: Bot %s move %s failed: %v", botID, move.Kind, err)
		events, err = state.App.Pass(g, botID)
		if err != nil {
			logger.Error("processBotTurn: Bot %s fallback pass failed: %v", botID, err)
			return
		}
	}
	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
	mh.drive(ctx, state, dispatcher, logger)
	mh.broadcastSnapshot(state, dispatcher, logger)
}

func (mh *matchHandler) handleStartGame(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if senderID != state.HostID {
		mh.sendError(state, dispatcher, logger, senderID, CodeNotHost, "only the host can start the game")
		return
	}
	if state.Stage != stageLobby {
		mh.sendError(state, dispatcher, logger, senderID, CodeRoomStarted, "game already running")
		return
	}
	if len(state.Players) < app.MinPlayersToStart {
		mh.sendError(state, dispatcher, logger, senderID, CodeTooFewPlayers, "need at least two players")
		return
	}

	game := domain.NewGame(time.Now().UnixNano(), state.Rules)
	for _, rp := range state.Players {
		bankroll := int64(botBankroll)
		if !rp.IsBot {
			balance, err := state.Economy.GetBalance(ctx, rp.UserID)
			if err != nil {
				logger.Error("handleStartGame: Balance read for %s failed: %v", rp.UserID, err)
				mh.sendError(state, dispatcher, logger, senderID, CodeInternal, "could not read balances")
				return
			}
			bankroll = balance
		}
		if err := game.AddPlayer(domain.Player{
			ID:       rp.UserID,
			Name:     rp.DisplayName,
			IsBot:    rp.IsBot,
			Bankroll: bankroll,
		}); err != nil {
			logger.Error("handleStartGame: Seating %s failed: %v", rp.UserID, err)
			mh.sendError(state, dispatcher, logger, senderID, CodeInternal, "could not seat players")
			return
		}
		state.Baselines[rp.UserID] = bankroll
	}

	events, err := state.App.BeginMatch(game)
	if err != nil {
		logger.Error("handleStartGame: BeginMatch failed: %v", err)
		mh.sendError(state, dispatcher, logger, senderID, codeForErr(err), err.Error())
		return
	}
	state.Game = game
	mh.registry.SetStarted(state.RoomID, true)

	logger.Info("handleStartGame: Game started with %d players.", len(state.Players))
	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
	mh.drive(ctx, state, dispatcher, logger)
	mh.updateLabel(state, dispatcher, logger)
	mh.broadcastSnapshot(state, dispatcher, logger)
}

func (mh *matchHandler) handleTurnAction(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	rp := state.seatedPlayer(senderID)
	if rp == nil {
		mh.sendError(state, dispatcher, logger, senderID, CodeNotSeated, "spectators cannot act")
		return
	}
	if state.Game == nil {
		mh.sendError(state, dispatcher, logger, senderID, CodeRoomNotStarted, "game not started")
		return
	}

	var events []app.Event
	var err error
	switch msg.GetOpCode() {
	case OpPass:
		events, err = state.App.Pass(state.Game, senderID)
	case OpBet:
		var req BetRequest
		if jsonErr := json.Unmarshal(msg.GetData(), &req); jsonErr != nil {
			mh.sendError(state, dispatcher, logger, senderID, CodeBadPayload, "malformed bet payload")
			return
		}
		events, err = state.App.Bet(state.Game, senderID, req.Amount)
	case OpKouppi:
		events, err = state.App.Kouppi(state.Game, senderID)
	case OpShistri:
		events, err = state.App.Shistri(state.Game, senderID)
	}
	if err != nil {
		logger.Warn("handleTurnAction: %s action rejected: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, codeForErr(err), err.Error())
		return
	}

	rp.AFKCount = 0
	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
	mh.drive(ctx, state, dispatcher, logger)
	mh.updateLabel(state, dispatcher, logger)
	mh.broadcastSnapshot(state, dispatcher, logger)
}

func (mh *matchHandler) handleDecision(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if state.Stage != stageDecision || state.Decision == nil {
		mh.sendError(state, dispatcher, logger, senderID, CodeNoDecision, "no decision pending")
		return
	}
	var req DecisionRequest
	if err := json.Unmarshal(msg.GetData(), &req); err != nil {
		mh.sendError(state, dispatcher, logger, senderID, CodeBadPayload, "malformed decision payload")
		return
	}
	choice := app.Choice(req.Choice)
	if choice == app.ChoiceLeave {
		if _, deciding := state.Decision.Choices()[senderID]; !deciding {
			mh.sendError(state, dispatcher, logger, senderID, CodeNoDecision, app.ErrNotDeciding.Error())
			return
		}
		mh.decisionLeave(ctx, state, dispatcher, logger, senderID)
		return
	}
	if err := state.Decision.Submit(senderID, choice); err != nil {
		mh.sendError(state, dispatcher, logger, senderID, codeForErr(err), err.Error())
		return
	}
	if rp := state.seatedPlayer(senderID); rp != nil {
		rp.AFKCount = 0
	}

	mh.broadcastJSON(state, dispatcher, logger, OpDecisionUpdate, DecisionUpdateEvent{Choices: state.Decision.Choices()}, nil)
	if state.Decision.Complete() {
		mh.resolveDecision(ctx, state, dispatcher, logger, false)
	}
}

// decisionLeave applies a leave chosen during the decision window right away:
// the player is unseated and kicked, not merely marked, and the remaining
// choices are re-checked for completion.
func (mh *matchHandler) decisionLeave(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string) {
	state.Decision.Drop(userID)
	mh.unseat(ctx, state, logger, userID, "left")
	if p, ok := state.Presences[userID]; ok {
		delete(state.Presences, userID)
		if err := dispatcher.MatchKick([]runtime.Presence{p}); err != nil {
			logger.Warn("decisionLeave: Kick for %s failed: %v", userID, err)
		}
	}
	for _, ev := range state.App.RemovePlayers(state.Game, []string{userID}, "left") {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
	if userID == state.HostID {
		mh.closeRoom(ctx, state, dispatcher, logger, "host_left")
		return
	}

	mh.broadcastJSON(state, dispatcher, logger, OpDecisionUpdate, DecisionUpdateEvent{Choices: state.Decision.Choices()}, nil)
	if state.Decision.Complete() {
		mh.resolveDecision(ctx, state, dispatcher, logger, false)
		return
	}
	mh.updateLabel(state, dispatcher, logger)
	mh.broadcastSnapshot(state, dispatcher, logger)
}

func (mh *matchHandler) handleLeaveTable(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	if p, spectating := state.Spectators[senderID]; spectating {
		delete(state.Spectators, senderID)
		if err := dispatcher.MatchKick([]runtime.Presence{p}); err != nil {
			logger.Warn("handleLeaveTable: Kick for %s failed: %v", senderID, err)
		}
		return
	}
	if state.seatIndex(senderID) < 0 {
		mh.sendError(state, dispatcher, logger, senderID, CodeNotSeated, "not at this table")
		return
	}

	// During the decision window leaving is the leave choice, applied at once.
	if state.Stage == stageDecision && state.Decision != nil {
		mh.decisionLeave(ctx, state, dispatcher, logger, senderID)
		return
	}

	if !state.App.CanLeave(state.Game, senderID) {
		mh.sendError(state, dispatcher, logger, senderID, CodeLeaveLocked, app.ErrLeaveLocked.Error())
		return
	}

	mh.unseat(ctx, state, logger, senderID, "left")
	if p, ok := state.Presences[senderID]; ok {
		delete(state.Presences, senderID)
		dispatcher.MatchKick([]runtime.Presence{p})
	}
	if state.Game != nil {
		for _, ev := range state.App.RemovePlayers(state.Game, []string{senderID}, "left") {
			mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
		}
	}
	if senderID == state.HostID {
		mh.closeRoom(ctx, state, dispatcher, logger, "host_left")
		return
	}

	mh.drive(ctx, state, dispatcher, logger)
	mh.updateLabel(state, dispatcher, logger)
	mh.broadcastSnapshot(state, dispatcher, logger)
}

func (mh *matchHandler) handleChat(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	var req ChatRequest
	if err := json.Unmarshal(msg.GetData(), &req); err != nil {
		mh.sendError(state, dispatcher, logger, senderID, CodeBadPayload, "malformed chat payload")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return
	}
	if runes := []rune(text); len(runes) > chatMaxRunes {
		text = string(runes[:chatMaxRunes])
	}

	name := senderID
	if rp := state.seatedPlayer(senderID); rp != nil {
		name = rp.DisplayName
	} else if p, ok := state.Spectators[senderID]; ok {
		name = p.GetUsername()
	} else {
		mh.sendError(state, dispatcher, logger, senderID, CodeNotSeated, "not in this room")
		return
	}

	event := ChatMessageEvent{UserID: senderID, Name: name, Text: text}
	state.Chat.Push(event)
	mh.broadcastJSON(state, dispatcher, logger, OpChatMessage, event, nil)
}

// unseat removes a member from the room-level seat list, the registry and,
// for humans with a running game, settles their bankroll delta. Engine
// removal is the caller's job so settlement still sees the final bankroll.
func (mh *matchHandler) unseat(ctx context.Context, state *MatchState, logger runtime.Logger, userID, reason string) {
	idx := state.seatIndex(userID)
	if idx < 0 {
		return
	}
	rp := state.Players[idx]
	state.Players = append(state.Players[:idx], state.Players[idx+1:]...)

	if rp.IsBot {
		delete(state.Bots, userID)
		return
	}
	if err := mh.registry.Leave(state.RoomID, userID); err != nil {
		logger.Warn("unseat: Registry leave for %s failed: %v", userID, err)
	}
	mh.settle(state, logger, userID, reason)
}

// settle dispatches the wallet and stats writes for one departing human.
// Fire-and-forget: gameplay never blocks on persistence.
func (mh *matchHandler) settle(state *MatchState, logger runtime.Logger, userID, reason string) {
	if state.Game == nil || bot.IsBot(userID) || state.Settled[userID] {
		return
	}
	p := state.Game.PlayerByID(userID)
	if p == nil {
		return
	}
	state.Settled[userID] = true

	net := p.Bankroll - state.Baselines[userID]
	rounds := state.Game.RoundNumber
	roomID := state.RoomID
	economy, stats := state.Economy, state.Stats

	go func() {
		bg := context.Background()
		if net != 0 && economy != nil {
			err := economy.UpdateBalances(bg, []ports.WalletUpdate{{
				UserID: userID,
				Amount: net,
				Metadata: map[string]interface{}{
					"match_id": roomID,
					"reason":   reason,
				},
			}})
			if err != nil {
				logger.Error("settle: Wallet update for %s failed: %v", userID, err)
			}
		}
		if stats != nil {
			if err := stats.RecordMatchResult(bg, ports.MatchResult{
				RoomID:   roomID,
				PlayerID: userID,
				Rounds:   rounds,
				Net:      net,
			}); err != nil {
				logger.Warn("settle: Match result for %s failed: %v", userID, err)
			}
			if err := stats.UpdateRating(bg, userID, ratingDelta(net)); err != nil {
				logger.Warn("settle: Rating update for %s failed: %v", userID, err)
			}
		}
	}()
}

// ratingDelta maps a chip outcome onto standing movement.
func ratingDelta(net int64) int64 {
	switch {
	case net > 0:
		return 10
	case net < 0:
		return -5
	}
	return 0
}

// closeRoom settles everyone still seated and announces the shutdown. The
// loop sees Closing and returns nil, which terminates the match.
func (mh *matchHandler) closeRoom(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, reason string) {
	logger.Info("closeRoom: Room %s closing (%s).", state.RoomID, reason)
	state.Clock.CancelAll()
	for _, rp := range state.Players {
		if !rp.IsBot {
			mh.settle(state, logger, rp.UserID, reason)
		}
	}
	mh.broadcastJSON(state, dispatcher, logger, OpRoomClosed, RoomClosedEvent{Reason: reason}, nil)
	state.Closing = true
}

// teardown clears the shared registry entry once the match is ending.
func (mh *matchHandler) teardown(ctx context.Context, state *MatchState, logger runtime.Logger) {
	for _, rp := range state.Players {
		if !rp.IsBot {
			mh.settle(state, logger, rp.UserID, "room_closed")
		}
	}
	mh.registry.Close(state.RoomID)
}

// broadcastEvent converts an app event to its wire opcode and dispatches it.
func (mh *matchHandler) broadcastEvent(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	var opCode int64
	switch ev.Kind {
	case app.EventRoundStarted:
		opCode = OpRoundStarted
	case app.EventTurnStarted:
		opCode = OpTurnStarted
	case app.EventTurnResolved:
		opCode = OpTurnResolved
	case app.EventRoundEnded:
		opCode = OpRoundEnded
	case app.EventPlayersRemoved:
		opCode = OpPlayersRemoved
	default:
		logger.Warn("broadcastEvent: Unknown event kind: %v", ev.Kind)
		return
	}
	mh.broadcastJSON(state, dispatcher, logger, opCode, ev.Payload, ev.Recipients)
}

// broadcastJSON marshals a payload and sends it to the given recipients, or
// to the whole room when recipients is empty. Targeted messages whose
// recipients are all offline are dropped, never widened.
func (mh *matchHandler) broadcastJSON(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, opCode int64, payload any, recipientIDs []string) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("broadcastJSON: Failed to marshal payload for opcode %d: %v", opCode, err)
		return
	}

	var recipients []runtime.Presence
	if len(recipientIDs) > 0 {
		for _, uid := range recipientIDs {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			} else if p, ok := state.Spectators[uid]; ok {
				recipients = append(recipients, p)
			}
		}
		if len(recipients) == 0 {
			return
		}
	}

	if err := dispatcher.BroadcastMessage(opCode, data, recipients, nil, true); err != nil {
		logger.Error("broadcastJSON: Broadcast for opcode %d failed: %v", opCode, err)
	}
}

// sendError reports a rejected action to the offending client only.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID, code, message string) {
	payload := GameErrorEvent{Code: code, Message: message}
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("sendError: Failed to marshal error event: %v", err)
		return
	}
	presence, ok := state.Presences[userID]
	if !ok {
		presence, ok = state.Spectators[userID]
	}
	if !ok {
		logger.Warn("sendError: Cannot send %s to %s: presence not found", code, userID)
		return
	}
	if err := dispatcher.BroadcastMessage(OpGameError, data, []runtime.Presence{presence}, nil, true); err != nil {
		logger.Error("sendError: Send failed: %v", err)
	}
}

// broadcastSnapshot pushes the full authoritative room view to everyone.
func (mh *matchHandler) broadcastSnapshot(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	mh.broadcastJSON(state, dispatcher, logger, OpRoomState, mh.snapshot(state), nil)
}

func (mh *matchHandler) snapshot(state *MatchState) RoomSnapshot {
	snap := RoomSnapshot{
		RoomID:     state.RoomID,
		Stage:      string(state.Stage),
		Players:    make([]PlayerSnapshot, 0, len(state.Players)),
		Spectators: len(state.Spectators),
		Chat:       state.Chat.Messages(),
		MaxPlayers: state.Rules.MaxPlayers,
		HostID:     state.HostID,
		Tick:       state.Tick,
	}
	for _, rp := range state.Players {
		ps := PlayerSnapshot{
			UserID:   rp.UserID,
			Name:     rp.DisplayName,
			AFKCount: rp.AFKCount,
			IsBot:    rp.IsBot,
			IsHost:   rp.UserID == state.HostID,
			Online:   rp.IsBot,
		}
		if _, ok := state.Presences[rp.UserID]; ok {
			ps.Online = true
		}
		if state.Game != nil {
			if p := state.Game.PlayerByID(rp.UserID); p != nil {
				ps.Bankroll = p.Bankroll
			}
		}
		snap.Players = append(snap.Players, ps)
	}
	if g := state.Game; g != nil {
		snap.Phase = g.Phase
		snap.Round = g.RoundNumber
		snap.Pot = g.Round.Pot
		snap.Turn = g.Turn
		snap.LastResolution = g.LastResolution
		if cp := g.CurrentPlayer(); cp != nil {
			snap.CurrentPlayerID = cp.ID
		}
	}
	if state.Decision != nil {
		snap.Decision = state.Decision.Choices()
	}
	return snap
}

func (mh *matchHandler) labelJSON(state *MatchState, logger runtime.Logger) string {
	label := Label{
		Open:    state.openSeatCount(),
		Game:    "kouppi",
		Phase:   string(state.Stage),
		Private: state.Private,
	}
	data, err := json.Marshal(label)
	if err != nil {
		logger.Error("labelJSON: Failed to marshal label: %v", err)
		return "{}"
	}
	return string(data)
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if err := dispatcher.MatchLabelUpdate(mh.labelJSON(state, logger)); err != nil {
		logger.Error("updateLabel: Failed to update: %v", err)
	}
}

// codeForErr maps engine and app errors to stable wire codes.
func codeForErr(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotYourTurn):
		return CodeNotYourTurn
	case errors.Is(err, domain.ErrNoOpenTurn), errors.Is(err, domain.ErrAwaitingNext), errors.Is(err, domain.ErrNotAwaitingNext):
		return CodeNoOpenTurn
	case errors.Is(err, domain.ErrBetOutOfRange):
		return CodeBetOutOfRange
	case errors.Is(err, domain.ErrKouppiShortStacked):
		return CodeKouppiShort
	case errors.Is(err, domain.ErrShistriUnavailable):
		return CodeShistriBlocked
	case errors.Is(err, domain.ErrTooFewPlayers):
		return CodeTooFewPlayers
	case errors.Is(err, domain.ErrWrongPhase):
		return CodeRoomNotStarted
	case errors.Is(err, domain.ErrUnknownPlayer):
		return CodeNotSeated
	case errors.Is(err, app.ErrNotDeciding):
		return CodeNoDecision
	case errors.Is(err, app.ErrBadChoice):
		return CodeBadPayload
	case errors.Is(err, app.ErrLeaveLocked):
		return CodeLeaveLocked
	}
	return CodeInternal
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}
	logger.Debug("MatchTerminate: Room %s terminated for reason %d", matchState.RoomID, reason)
	mh.teardown(ctx, matchState, logger)
	return matchState
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
