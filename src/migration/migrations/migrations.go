package migrations

import (
	"git.burrowchat.net/burrow/burrow/src/migration/types"
)

var All = make(map[types.MigrationVersion]types.Migration)

func registerMigration(m types.Migration) {
	All[m.Version()] = m
}
