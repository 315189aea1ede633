package model

// CategoryTarkov はプライマリカテゴリのキー。
const CategoryTarkov = "escape_from_tarkov"

// Category はマーケットプレイスのカテゴリ定義。
type Category struct {
	Key      string
	Name     string
	ID       int
	Endpoint string
}

// categories はサポートするカテゴリの一覧（表示順）。
var categories = []Category{
	{Key: "steam", Name: "Steam", ID: 1, Endpoint: "steam"},
	{Key: "fortnite", Name: "Fortnite", ID: 9, Endpoint: "fortnite"},
	{Key: "riot", Name: "Riot", ID: 13, Endpoint: "riot"},
	{Key: "telegram", Name: "Telegram", ID: 17, Endpoint: "telegram"},
	{Key: "supercell", Name: "Supercell", ID: 12, Endpoint: "supercell"},
	{Key: "gifts", Name: "Gifts", ID: 5, Endpoint: "gifts"},
	{Key: "epic_games", Name: "Epic Games", ID: 14, Endpoint: "epic-games"},
	{Key: CategoryTarkov, Name: "Escape from Tarkov", ID: 18, Endpoint: "escape-from-tarkov"},
	{Key: "social_club", Name: "Social Club", ID: 3, Endpoint: "social-club"},
	{Key: "uplay", Name: "Uplay", ID: 11, Endpoint: "uplay"},
	{Key: "war_thunder", Name: "War Thunder", ID: 7, Endpoint: "war-thunder"},
	{Key: "discord", Name: "Discord", ID: 31, Endpoint: "discord"},
	{Key: "tiktok", Name: "TikTok", ID: 35, Endpoint: "tiktok"},
	{Key: "instagram", Name: "Instagram", ID: 32, Endpoint: "instagram"},
	{Key: "battlenet", Name: "BattleNet", ID: 15, Endpoint: "battlenet"},
	{Key: "vpn", Name: "VPN", ID: 4, Endpoint: "vpn"},
	{Key: "roblox", Name: "Roblox", ID: 33, Endpoint: "roblox"},
	{Key: "warface", Name: "Warface", ID: 36, Endpoint: "warface"},
	{Key: "minecraft", Name: "Minecraft", ID: 37, Endpoint: "minecraft"},
	{Key: "chatgpt", Name: "ChatGPT", ID: 38, Endpoint: "chatgpt"},
	{Key: "mihoyo", Name: "miHoYo", ID: 39, Endpoint: "mihoyo"},
	{Key: "world_of_tanks", Name: "World of Tanks", ID: 40, Endpoint: "world-of-tanks"},
	{Key: "wot_blitz", Name: "WoT Blitz", ID: 41, Endpoint: "wot-blitz"},
	{Key: "ea_origin", Name: "EA (Origin)", ID: 42, Endpoint: "ea-origin"},
}

var categoryIndex = func() map[string]Category {
	m := make(map[string]Category, len(categories))
	for _, c := range categories {
		m[c.Key] = c
	}
	return m
}()

// LookupCategory はキーからカテゴリ定義を返す。
func LookupCategory(key string) (Category, bool) {
	c, ok := categoryIndex[key]
	return c, ok
}

// Categories はサポートするカテゴリの一覧のコピーを返す。
func Categories() []Category {
	return append([]Category(nil), categories...)
}

var editionNames = map[string]string{
	"standard":           "Standard Edition",
	"left_behind":        "Left Behind Edition",
	"prepare_for_escape": "Prepare for Escape Edition",
	"edge_of_darkness":   "Edge of Darkness Edition",
	"unheard_edition":    "The Unheard Edition",
}

var regionNames = map[string]string{
	"af":  "Africa",
	"as":  "Asia",
	"cis": "Russia + CIS",
	"eu":  "Europe",
	"me":  "Middle East",
	"oc":  "Oceania",
	"us":  "North America",
}

var originNames = map[string]string{
	"brute":                "Brute",
	"phishing":             "Phishing",
	"stealer":              "Stealer",
	"personal":             "Personal",
	"resale":               "Resale",
	"autoreg":              "Autoreg",
	"self_registration":    "Self registration",
	"retrieve":             "Retrieve",
	"retrieve_via_support": "Retrieve via support",
	"dummy":                "Dummy",
}

// EditionName はエディションの表示名を返す。未知の値はそのまま返す。
func EditionName(v string) string { return displayName(editionNames, v) }

// RegionName はリージョンの表示名を返す。未知の値はそのまま返す。
func RegionName(v string) string { return displayName(regionNames, v) }

// OriginName は出自の表示名を返す。未知の値はそのまま返す。
func OriginName(v string) string { return displayName(originNames, v) }

func displayName(names map[string]string, v string) string {
	if n, ok := names[v]; ok {
		return n
	}
	return v
}
