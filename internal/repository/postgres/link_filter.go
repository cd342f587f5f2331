package postgres

import (
	"fmt"
	"strings"

	"github.com/simplesagar/dub/internal/domain"
)

// buildLinkWhere renders the WHERE clause for a listing or count. The
// links table is aliased l. Placeholders start at $1.
func buildLinkWhere(f domain.LinkFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conds = append(conds, "l.workspace_id = "+arg(f.WorkspaceID))

	if !f.ShowArchived {
		conds = append(conds, "l.archived = false")
	}
	if f.Domain != "" {
		conds = append(conds, "l.domain = "+arg(f.Domain))
	}
	if len(f.TagIDs) > 0 {
		conds = append(conds, "EXISTS (SELECT 1 FROM link_tags x WHERE x.link_id = l.id AND x.tag_id = ANY("+arg(f.TagIDs)+"))")
	}
	if len(f.TagNames) > 0 {
		conds = append(conds, "EXISTS (SELECT 1 FROM link_tags x JOIN tags t ON t.id = x.tag_id WHERE x.link_id = l.id AND t.name = ANY("+arg(f.TagNames)+"))")
	}
	if f.WithTags {
		conds = append(conds, "EXISTS (SELECT 1 FROM link_tags x WHERE x.link_id = l.id)")
	}
	if f.Search != "" {
		p := arg("%" + escapeLike(f.Search) + "%")
		conds = append(conds, "(l.key ILIKE "+p+" OR l.url ILIKE "+p+")")
	}
	if f.UserID != "" {
		conds = append(conds, "l.user_id = "+arg(f.UserID))
	}

	return strings.Join(conds, " AND "), args
}

// orderBy maps a sort field to its column. Listings are always
// descending; never-clicked links go last.
func orderBy(sort domain.LinkSort) string {
	switch sort {
	case domain.SortClicks:
		return "l.clicks DESC, l.created_at DESC"
	case domain.SortLastClicked:
		return "l.last_clicked DESC NULLS LAST, l.created_at DESC"
	default:
		return "l.created_at DESC"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
