package domain

import (
	"time"

	"github.com/google/uuid"
)

// Workspace is the tenant and billing boundary that owns links and tags.
// Limits are carried for representation only; nothing here enforces them.
type Workspace struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Slug string  `json:"slug"`
	Logo *string `json:"logo"`
	Plan string  `json:"plan"`

	// BillingCycleStart is the day of month (1-31) the usage counters reset.
	BillingCycleStart int     `json:"billingCycleStart"`
	InviteCode        *string `json:"inviteCode"`

	Usage        int64 `json:"usage"`
	UsageLimit   int64 `json:"usageLimit"`
	LinksUsage   int64 `json:"linksUsage"`
	LinksLimit   int64 `json:"linksLimit"`
	DomainsLimit int   `json:"domainsLimit"`
	TagsLimit    int   `json:"tagsLimit"`
	UsersLimit   int   `json:"usersLimit"`
	AIUsage      int64 `json:"aiUsage"`
	AILimit      int64 `json:"aiLimit"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Free plan limits applied to new workspaces.
const (
	PlanFree             = "free"
	FreeUsageLimit int64 = 1000
	FreeLinksLimit int64 = 25
	FreeDomainsLimit     = 3
	FreeTagsLimit        = 5
	FreeUsersLimit       = 1
	FreeAILimit    int64 = 10
)

// NewWorkspace creates a workspace on the free plan whose billing cycle
// starts on the creation day.
func NewWorkspace(name, slug string) *Workspace {
	now := time.Now().UTC()
	invite := uuid.NewString()
	return &Workspace{
		Name:              name,
		Slug:              slug,
		Plan:              PlanFree,
		BillingCycleStart: now.Day(),
		InviteCode:        &invite,
		UsageLimit:        FreeUsageLimit,
		LinksLimit:        FreeLinksLimit,
		DomainsLimit:      FreeDomainsLimit,
		TagsLimit:         FreeTagsLimit,
		UsersLimit:        FreeUsersLimit,
		AILimit:           FreeAILimit,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
