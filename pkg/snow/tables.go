package snow

import "strings"

// tableAliases maps friendly entity names onto backend table names so tool
// callers can say "incidents" instead of memorizing table identifiers.
var tableAliases = map[string]string{
	"user":      "sys_user",
	"users":     "sys_user",
	"group":     "sys_user_group",
	"groups":    "sys_user_group",
	"incident":  "incident",
	"incidents": "incident",
	"task":      "task",
	"tasks":     "task",
	"page":      "sp_page",
	"pages":     "sp_page",
	"widget":    "sp_widget",
	"widgets":   "sp_widget",
}

// ResolveTable maps a friendly entity alias to its table name; unrecognized
// names pass through unchanged so any table stays reachable.
func ResolveTable(name string) string {
	if table, ok := tableAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return table
	}
	return strings.TrimSpace(name)
}
