package models

import (
	"net/url"
	"strings"
)

// Preset is a well-known service offered by the add form's autocomplete.
type Preset struct {
	Name      string   `json:"name"`
	Domain    string   `json:"domain"`
	Category  Category `json:"category"`
	Color     string   `json:"color"`
	Price     string   `json:"price"`
	CancelURL string   `json:"cancelUrl"`
}

// Presets is the built-in service catalogue.
var Presets = []Preset{
	{Name: "Netflix", Domain: "netflix.com", Category: CategoryEntertainment, Color: "#E50914", Price: "15.49", CancelURL: "https://help.netflix.com/en/node/407"},
	{Name: "Spotify", Domain: "spotify.com", Category: CategoryEntertainment, Color: "#1DB954", Price: "11.99", CancelURL: "https://support.spotify.com/us/article/cancel-premium/"},
	{Name: "Amazon Prime", Domain: "amazon.com", Category: CategoryShopping, Color: "#00A8E1", Price: "14.99", CancelURL: "https://www.amazon.com/gp/help/customer/display.html?nodeId=GTJQ7QZY7QL2HK4Y"},
	{Name: "Apple One", Domain: "apple.com", Category: CategoryProductivity, Color: "#000000", Price: "19.95", CancelURL: "https://support.apple.com/en-us/118428"},
	{Name: "Disney+", Domain: "disneyplus.com", Category: CategoryEntertainment, Color: "#113CCF", Price: "13.99", CancelURL: "https://help.disneyplus.com/article/disneyplus-cancel-subscription"},
	{Name: "Hulu", Domain: "hulu.com", Category: CategoryEntertainment, Color: "#1CE783", Price: "7.99", CancelURL: "https://help.hulu.com/article/hulu-cancel-hulu-subscription"},
	{Name: "YouTube Premium", Domain: "youtube.com", Category: CategoryEntertainment, Color: "#FF0000", Price: "13.99", CancelURL: "https://support.google.com/youtube/answer/6308278"},
	{Name: "ChatGPT Plus", Domain: "openai.com", Category: CategoryProductivity, Color: "#74AA9C", Price: "20.00", CancelURL: "https://help.openai.com/en/articles/7232927-how-do-i-cancel-my-chatgpt-plus-subscription"},
	{Name: "Adobe Creative Cloud", Domain: "adobe.com", Category: CategoryProductivity, Color: "#FF0000", Price: "59.99", CancelURL: "https://helpx.adobe.com/manage-account/using/cancel-subscription.html"},
	{Name: "Dropbox", Domain: "dropbox.com", Category: CategoryProductivity, Color: "#0061FF", Price: "11.99", CancelURL: "https://help.dropbox.com/account-settings/cancel-subscription"},
	{Name: "Gym Membership", Domain: "equinox.com", Category: CategoryHealth, Color: "#F59E0B", Price: "45.00", CancelURL: "https://www.equinox.com/member-services"},
	{Name: "PlayStation Plus", Domain: "playstation.com", Category: CategoryGaming, Color: "#00439C", Price: "9.99", CancelURL: "https://www.playstation.com/support/store/cancel-ps-store-subscription/"},
	{Name: "Xbox Game Pass", Domain: "xbox.com", Category: CategoryGaming, Color: "#107C10", Price: "16.99", CancelURL: "https://support.xbox.com/help/subscriptions-billing/manage-subscriptions/cancel-recurring-billing"},
	{Name: "Slack", Domain: "slack.com", Category: CategoryWork, Color: "#4A154B", Price: "8.75", CancelURL: "https://slack.com/help/articles/115003098563-Cancel-your-paid-Slack-subscription"},
	{Name: "Zoom", Domain: "zoom.us", Category: CategoryWork, Color: "#2D8CFF", Price: "15.99", CancelURL: "https://support.zoom.us/hc/en-us/articles/201362003-Cancel-an-account"},
}

// LookupPreset finds a preset whose name equals name, ignoring case.
func LookupPreset(name string) (Preset, bool) {
	name = strings.TrimSpace(name)
	for _, p := range Presets {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Preset{}, false
}

// SearchPresets returns presets whose name contains query, ignoring case.
// Queries shorter than two characters match nothing.
func SearchPresets(query string) []Preset {
	query = strings.ToLower(strings.TrimSpace(query))
	if len(query) < 2 {
		return nil
	}
	var matches []Preset
	for _, p := range Presets {
		if strings.Contains(strings.ToLower(p.Name), query) {
			matches = append(matches, p)
		}
	}
	return matches
}

// LogoURL returns the favicon URL for a service domain.
func LogoURL(domain string) string {
	return "https://www.google.com/s2/favicons?sz=128&domain=" + url.QueryEscape(domain)
}

// CancelGuideURL returns a web search for cancellation instructions.
func CancelGuideURL(name string) string {
	if preset, ok := LookupPreset(name); ok && preset.CancelURL != "" {
		return preset.CancelURL
	}
	return "https://www.google.com/search?q=" + url.QueryEscape(name+" cancel subscription")
}
