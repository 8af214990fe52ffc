package rawwriter

import (
	"strings"

	"github.com/emi420/underpass-go/internal/domain"
	"github.com/emi420/underpass-go/internal/store"
)

// membersExpr renders relation members as a JSON array of
// {role, type, ref} objects (spec §4.2).
func membersExpr(members []domain.Member) string {
	if len(members) == 0 {
		return "NULL"
	}

	objs := make([]string, len(members))
	for i, m := range members {
		objs[i] = "jsonb_build_object(" +
			"'role', '" + store.EscapeJSON(m.Role) + "', " +
			"'type', '" + store.EscapeJSON(string(m.Type)) + "', " +
			"'ref', " + intLit(m.Ref) +
			")"
	}
	return "jsonb_build_array(" + strings.Join(objs, ", ") + ")"
}
