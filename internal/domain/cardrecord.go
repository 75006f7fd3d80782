package domain

import (
	"encoding/json"
	"time"
)

// CardRecord is one element of the bulk card dataset. JSON keys follow the
// upstream card object and double as column names of the card tables.
//
// Absent scalars are nil pointers, absent arrays are nil slices and absent
// objects are nil RawMessages; all of them are stored as NULL.
type CardRecord struct {
	// Core identifiers.
	ID                string  `json:"id" validate:"required"`
	OracleID          *string `json:"oracle_id"`
	MultiverseIDs     []int32 `json:"multiverse_ids"`
	MtgoID            *int32  `json:"mtgo_id"`
	MtgoFoilID        *int32  `json:"mtgo_foil_id"`
	ArenaID           *int32  `json:"arena_id"`
	TcgplayerID       *int32  `json:"tcgplayer_id"`
	TcgplayerEtchedID *int32  `json:"tcgplayer_etched_id"`
	CardmarketID      *int32  `json:"cardmarket_id"`
	Object            *string `json:"object"`
	Lang              *string `json:"lang"`
	Layout            *string `json:"layout"`
	URI               *string `json:"uri"`
	ScryfallURI       *string `json:"scryfall_uri"`
	PrintsSearchURI   *string `json:"prints_search_uri"`
	RulingsURI        *string `json:"rulings_uri"`

	// Gameplay.
	Name           *string         `json:"name"`
	ManaCost       *string         `json:"mana_cost"`
	Cmc            *float64        `json:"cmc"`
	TypeLine       *string         `json:"type_line"`
	OracleText     *string         `json:"oracle_text"`
	Power          *string         `json:"power"`
	Toughness      *string         `json:"toughness"`
	Loyalty        *string         `json:"loyalty"`
	Defense        *string         `json:"defense"`
	HandModifier   *string         `json:"hand_modifier"`
	LifeModifier   *string         `json:"life_modifier"`
	Colors         []string        `json:"colors"`
	ColorIdentity  []string        `json:"color_identity"`
	ColorIndicator []string        `json:"color_indicator"`
	Keywords       []string        `json:"keywords"`
	ProducedMana   []string        `json:"produced_mana"`
	Legalities     json.RawMessage `json:"legalities"`
	CardFaces      json.RawMessage `json:"card_faces"`
	AllParts       json.RawMessage `json:"all_parts"`
	Reserved       *bool           `json:"reserved"`
	GameChanger    *bool           `json:"game_changer"`
	EdhrecRank     *int32          `json:"edhrec_rank"`
	PennyRank      *int32          `json:"penny_rank"`

	// Print.
	Artist           *string         `json:"artist"`
	ArtistIDs        []string        `json:"artist_ids"`
	IllustrationID   *string         `json:"illustration_id"`
	BorderColor      *string         `json:"border_color"`
	CardBackID       *string         `json:"card_back_id"`
	CollectorNumber  *string         `json:"collector_number"`
	ContentWarning   *bool           `json:"content_warning"`
	Digital          *bool           `json:"digital"`
	Finishes         []string        `json:"finishes"`
	Foil             *bool           `json:"foil"`
	Nonfoil          *bool           `json:"nonfoil"`
	FlavorName       *string         `json:"flavor_name"`
	FlavorText       *string         `json:"flavor_text"`
	Frame            *string         `json:"frame"`
	FrameEffects     []string        `json:"frame_effects"`
	FullArt          *bool           `json:"full_art"`
	Games            []string        `json:"games"`
	HighresImage     *bool           `json:"highres_image"`
	ImageStatus      *string         `json:"image_status"`
	ImageURIs        json.RawMessage `json:"image_uris"`
	Oversized        *bool           `json:"oversized"`
	Prices           json.RawMessage `json:"prices"`
	PrintedName      *string         `json:"printed_name"`
	PrintedText      *string         `json:"printed_text"`
	PrintedTypeLine  *string         `json:"printed_type_line"`
	Promo            *bool           `json:"promo"`
	PromoTypes       []string        `json:"promo_types"`
	PurchaseURIs     json.RawMessage `json:"purchase_uris"`
	Rarity           *string         `json:"rarity"`
	RelatedURIs      json.RawMessage `json:"related_uris"`
	ReleasedAt       *string         `json:"released_at" validate:"omitempty,datetime=2006-01-02"`
	Reprint          *bool           `json:"reprint"`
	ScryfallSetURI   *string         `json:"scryfall_set_uri"`
	SetName          *string         `json:"set_name"`
	SetSearchURI     *string         `json:"set_search_uri"`
	SetType          *string         `json:"set_type"`
	SetURI           *string         `json:"set_uri"`
	Set              *string         `json:"set"`
	SetID            *string         `json:"set_id"`
	StorySpotlight   *bool           `json:"story_spotlight"`
	Textless         *bool           `json:"textless"`
	Variation        *bool           `json:"variation"`
	VariationOf      *string         `json:"variation_of"`
	SecurityStamp    *string         `json:"security_stamp"`
	Watermark        *string         `json:"watermark"`
	Booster          *bool           `json:"booster"`
	Preview          json.RawMessage `json:"preview"`
	AttractionLights []int32         `json:"attraction_lights"`
}

// DatasetLocation is the resolved download location of the current bulk
// dataset. It is produced once per run and not persisted.
type DatasetLocation struct {
	URI        string
	ResolvedAt time.Time

	// Optional metadata reported by the catalog endpoint.
	Type      string
	UpdatedAt *time.Time
	Size      int64
}

// Download describes the local result of fetching a DatasetLocation.
type Download struct {
	// PayloadPath is the JSON file to decode.
	PayloadPath string
	// Files lists every file the fetch created, payload included.
	Files []string
}
