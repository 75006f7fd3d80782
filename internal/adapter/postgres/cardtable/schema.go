package cardtable

import (
	"strings"

	"github.com/jackc/pgx/v5"
)

// Column is one column of the card tables. UDT is the type name reported by
// information_schema.columns.udt_name for SQLType.
type Column struct {
	Name    string
	SQLType string
	UDT     string
}

const (
	typeText    = "text"
	typeInt     = "integer"
	typeNumeric = "numeric"
	typeBool    = "boolean"
	typeDate    = "date"
	typeJSONB   = "jsonb"
	typeTextArr = "text[]"
	typeIntArr  = "integer[]"
)

var udtNames = map[string]string{
	typeText:    "text",
	typeInt:     "int4",
	typeNumeric: "numeric",
	typeBool:    "bool",
	typeDate:    "date",
	typeJSONB:   "jsonb",
	typeTextArr: "_text",
	typeIntArr:  "_int4",
}

func col(name, sqlType string) Column {
	return Column{Name: name, SQLType: sqlType, UDT: udtNames[sqlType]}
}

// Columns is the card table layout. Names match the json tags of
// domain.CardRecord; staging and live are both created from this list.
var Columns = []Column{
	col("id", typeText),
	col("oracle_id", typeText),
	col("multiverse_ids", typeIntArr),
	col("mtgo_id", typeInt),
	col("mtgo_foil_id", typeInt),
	col("arena_id", typeInt),
	col("tcgplayer_id", typeInt),
	col("tcgplayer_etched_id", typeInt),
	col("cardmarket_id", typeInt),
	col("object", typeText),
	col("lang", typeText),
	col("layout", typeText),
	col("uri", typeText),
	col("scryfall_uri", typeText),
	col("prints_search_uri", typeText),
	col("rulings_uri", typeText),

	col("name", typeText),
	col("mana_cost", typeText),
	col("cmc", typeNumeric),
	col("type_line", typeText),
	col("oracle_text", typeText),
	col("power", typeText),
	col("toughness", typeText),
	col("loyalty", typeText),
	col("defense", typeText),
	col("hand_modifier", typeText),
	col("life_modifier", typeText),
	col("colors", typeTextArr),
	col("color_identity", typeTextArr),
	col("color_indicator", typeTextArr),
	col("keywords", typeTextArr),
	col("produced_mana", typeTextArr),
	col("legalities", typeJSONB),
	col("card_faces", typeJSONB),
	col("all_parts", typeJSONB),
	col("reserved", typeBool),
	col("game_changer", typeBool),
	col("edhrec_rank", typeInt),
	col("penny_rank", typeInt),

	col("artist", typeText),
	col("artist_ids", typeTextArr),
	col("illustration_id", typeText),
	col("border_color", typeText),
	col("card_back_id", typeText),
	col("collector_number", typeText),
	col("content_warning", typeBool),
	col("digital", typeBool),
	col("finishes", typeTextArr),
	col("foil", typeBool),
	col("nonfoil", typeBool),
	col("flavor_name", typeText),
	col("flavor_text", typeText),
	col("frame", typeText),
	col("frame_effects", typeTextArr),
	col("full_art", typeBool),
	col("games", typeTextArr),
	col("highres_image", typeBool),
	col("image_status", typeText),
	col("image_uris", typeJSONB),
	col("oversized", typeBool),
	col("prices", typeJSONB),
	col("printed_name", typeText),
	col("printed_text", typeText),
	col("printed_type_line", typeText),
	col("promo", typeBool),
	col("promo_types", typeTextArr),
	col("purchase_uris", typeJSONB),
	col("rarity", typeText),
	col("related_uris", typeJSONB),
	col("released_at", typeDate),
	col("reprint", typeBool),
	col("scryfall_set_uri", typeText),
	col("set_name", typeText),
	col("set_search_uri", typeText),
	col("set_type", typeText),
	col("set_uri", typeText),
	col("set", typeText),
	col("set_id", typeText),
	col("story_spotlight", typeBool),
	col("textless", typeBool),
	col("variation", typeBool),
	col("variation_of", typeText),
	col("security_stamp", typeText),
	col("watermark", typeText),
	col("booster", typeBool),
	col("preview", typeJSONB),
	col("attraction_lights", typeIntArr),
}

func quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// quotedColumns returns every column name quoted, in table order.
func quotedColumns() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = quote(c.Name)
	}
	return out
}

// createTableSQL renders the idempotent DDL for one card table.
func createTableSQL(table string) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(quote(table))
	b.WriteString(" (\n")
	for i, c := range Columns {
		b.WriteString("\t")
		b.WriteString(quote(c.Name))
		b.WriteString(" ")
		b.WriteString(c.SQLType)
		if c.Name == "id" {
			b.WriteString(" PRIMARY KEY")
		}
		if i < len(Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String()
}
