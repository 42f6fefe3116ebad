package types

import "time"

// Collection names used by the memory adapter.
const (
	CollectionAgents       = "agents"
	CollectionEntities     = "entities"
	CollectionWorlds       = "worlds"
	CollectionRooms        = "rooms"
	CollectionParticipants = "participants"
	CollectionMemories     = "memories"
	CollectionCache        = "cache"
)

// Well-known table names carried in Memory.Metadata["type"].
const (
	TableMessages     = "messages"
	TableFacts        = "facts"
	TableDocuments    = "documents"
	TableFragments    = "fragments"
	TableDescriptions = "descriptions"
)

// MetadataTypeKey is the metadata field holding the logical table name.
const MetadataTypeKey = "type"

// Memory is a single memory record stored in the "memories" collection.
// Records are immutable once written.
//
// Content holds any JSON-encodable payload. After a store round trip an
// object reads back as map[string]any, an array as []any and a number as float64.
type Memory struct {
	ID         string         `json:"id,omitempty"`
	AgentID    string         `json:"agentId,omitempty"`
	EntityID   string         `json:"entityId,omitempty"`
	RoomID     string         `json:"roomId,omitempty"`
	WorldID    string         `json:"worldId,omitempty"`
	Content    any            `json:"content"`
	Embedding  []float32      `json:"embedding,omitempty"`
	Unique     bool           `json:"unique"`
	CreatedAt  int64          `json:"createdAt,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Similarity *float64       `json:"similarity,omitempty"`
}

// TableName returns the metadata type tag, or "" when absent.
func (m *Memory) TableName() string {
	if m == nil || m.Metadata == nil {
		return ""
	}
	s, _ := m.Metadata[MetadataTypeKey].(string)
	return s
}

// HasEmbedding reports whether the record carries a non-empty embedding.
func (m *Memory) HasEmbedding() bool {
	return m != nil && len(m.Embedding) > 0
}

// CreatedTime converts CreatedAt (epoch millis) to time.Time.
func (m *Memory) CreatedTime() time.Time {
	return time.UnixMilli(m.CreatedAt)
}

// Agent represents a configured agent.
type Agent struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Username  string         `json:"username,omitempty"`
	Enabled   *bool          `json:"enabled,omitempty"`
	Bio       []string       `json:"bio,omitempty"`
	Settings  map[string]any `json:"settings,omitempty"`
	CreatedAt int64          `json:"createdAt,omitempty"`
	UpdatedAt int64          `json:"updatedAt,omitempty"`
}

// Entity is a participant identity (user, bot) known to an agent.
type Entity struct {
	ID       string         `json:"id,omitempty"`
	AgentID  string         `json:"agentId,omitempty"`
	Names    []string       `json:"names,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// World groups rooms, e.g. a chat server.
type World struct {
	ID       string         `json:"id,omitempty"`
	AgentID  string         `json:"agentId,omitempty"`
	Name     string         `json:"name,omitempty"`
	ServerID string         `json:"serverId,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RoomType classifies a room.
type RoomType string

const (
	RoomTypeSelf     RoomType = "SELF"
	RoomTypeDM       RoomType = "DM"
	RoomTypeGroup    RoomType = "GROUP"
	RoomTypeThread   RoomType = "THREAD"
	RoomTypeFeed     RoomType = "FEED"
	RoomTypeAPI      RoomType = "API"
	RoomTypeWorld    RoomType = "WORLD"
	RoomTypeForum    RoomType = "FORUM"
	RoomTypeVoiceDM  RoomType = "VOICE_DM"
	RoomTypeVoiceGrp RoomType = "VOICE_GROUP"
)

// Room is a conversation space inside a world.
type Room struct {
	ID        string         `json:"id,omitempty"`
	AgentID   string         `json:"agentId,omitempty"`
	Name      string         `json:"name,omitempty"`
	Source    string         `json:"source,omitempty"`
	Type      RoomType       `json:"type,omitempty"`
	ChannelID string         `json:"channelId,omitempty"`
	ServerID  string         `json:"serverId,omitempty"`
	WorldID   string         `json:"worldId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ParticipantState is the follow/mute state of a participant in a room.
type ParticipantState string

const (
	ParticipantFollowed ParticipantState = "FOLLOWED"
	ParticipantMuted    ParticipantState = "MUTED"
)

// Participant links an entity to a room.
type Participant struct {
	ID        string           `json:"id,omitempty"`
	EntityID  string           `json:"entityId"`
	RoomID    string           `json:"roomId"`
	AgentID   string           `json:"agentId,omitempty"`
	UserState ParticipantState `json:"userState,omitempty"`
}

// CacheEntry is a cached value with an optional expiry in epoch millis.
type CacheEntry struct {
	Value     any    `json:"value"`
	ExpiresAt *int64 `json:"expiresAt,omitempty"`
}

// Expired reports whether the entry is past its expiry at now.
func (e *CacheEntry) Expired(now time.Time) bool {
	return e != nil && e.ExpiresAt != nil && now.UnixMilli() > *e.ExpiresAt
}
