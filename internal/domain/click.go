package domain

import "time"

// ClickEvent is a single followed short link, recorded for analytics.
// One Link has many ClickEvents; the Link itself only keeps the running
// counter and the last click time.
type ClickEvent struct {
	ID        int64
	LinkID    string
	ClickedAt time.Time
	Target    string // which destination was served (see Target* constants)
	Country   CountryCode
	Device    string
	Browser   string
	Referer   string
	UserAgent string
}

// NewClickEvent creates a click event stamped with the current time.
func NewClickEvent(linkID, target, userAgent, referer string) *ClickEvent {
	return &ClickEvent{
		LinkID:    linkID,
		ClickedAt: time.Now().UTC(),
		Target:    target,
		UserAgent: userAgent,
		Referer:   referer,
	}
}

// WithVisitor copies what is known about the client onto the event.
func (c *ClickEvent) WithVisitor(country CountryCode, device, browser string) *ClickEvent {
	c.Country = country
	c.Device = device
	c.Browser = browser
	return c
}
