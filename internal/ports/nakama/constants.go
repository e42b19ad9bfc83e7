package nakama

const (
	// RpcCreateRoom creates a table from a stake tier and returns its match id.
	RpcCreateRoom = "create_room"
	// RpcQuickJoin finds an open public table or creates one.
	RpcQuickJoin = "quick_join"
	// RpcListRooms returns the lobby-browsing view of open tables.
	RpcListRooms = "list_rooms"
	// RpcVoiceToken signs a voice-channel access token.
	RpcVoiceToken = "voice_token"

	// MatchNameKouppi is the authoritative match handler name registered with Nakama.
	MatchNameKouppi = "kouppi_match"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpStartGame  int64 = 1
	OpPass       int64 = 2
	OpBet        int64 = 3
	OpKouppi     int64 = 4
	OpShistri    int64 = 5
	OpDecision   int64 = 6
	OpLeaveTable int64 = 7
	OpChatSend   int64 = 8

	// Server -> Client events
	OpRoomState        int64 = 101
	OpRoundStarted     int64 = 102
	OpTurnStarted      int64 = 103
	OpTurnResolved     int64 = 104
	OpRoundEnded       int64 = 105
	OpTurnClock        int64 = 106
	OpTurnTimeout      int64 = 107
	OpDecisionOpened   int64 = 108
	OpDecisionUpdate   int64 = 109
	OpDecisionResolved int64 = 110
	OpPlayersRemoved   int64 = 111
	OpChatMessage      int64 = 112
	OpRoomClosed       int64 = 113
	OpGameError        int64 = 114
)
