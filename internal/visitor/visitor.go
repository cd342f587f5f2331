// Package visitor classifies the client following a short link from its
// User-Agent.
package visitor

import (
	"strings"

	"github.com/simplesagar/dub/internal/domain"

	"github.com/mssola/user_agent"
)

// Device classes recorded on click events.
const (
	DeviceMobile  = "Mobile"
	DeviceDesktop = "Desktop"
	DeviceBot     = "Bot"
)

// crawlers fetch links to build social previews. Some of them do not
// identify as bots in a way the UA parser recognizes.
var crawlers = []string{
	"facebookexternalhit", "facebookcatalog", "twitterbot", "linkedinbot",
	"slackbot", "discordbot", "telegrambot", "whatsapp", "skypeuripreview",
	"pinterest", "redditbot", "applebot", "embedly", "iframely",
}

// Info is what the redirect path needs to know about a client.
type Info struct {
	// OS is "ios", "android" or "" for everything else.
	OS      string
	Device  string
	Browser string
	Bot     bool
}

// Parse classifies a User-Agent string.
func Parse(userAgent string) Info {
	ua := user_agent.New(userAgent)

	info := Info{Device: DeviceDesktop}
	info.Browser, _ = ua.Browser()

	platform := strings.ToLower(ua.Platform())
	osName := strings.ToLower(ua.OS())
	switch {
	case strings.Contains(platform, "iphone"), strings.Contains(platform, "ipad"),
		strings.Contains(platform, "ipod"), strings.Contains(osName, "iphone os"):
		info.OS = "ios"
	case strings.Contains(osName, "android"):
		info.OS = "android"
	}

	info.Bot = ua.Bot() || isCrawler(userAgent)
	switch {
	case info.Bot:
		info.Device = DeviceBot
	case ua.Mobile() || info.OS != "":
		info.Device = DeviceMobile
	}
	return info
}

// Visitor combines the parsed agent with a resolved country.
func (i Info) Visitor(country domain.CountryCode) domain.Visitor {
	return domain.Visitor{OS: i.OS, Country: country}
}

func isCrawler(userAgent string) bool {
	lower := strings.ToLower(userAgent)
	for _, c := range crawlers {
		if strings.Contains(lower, c) {
			return true
		}
	}
	return false
}
