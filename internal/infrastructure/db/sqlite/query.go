package sqlite

import (
	"database/sql/driver"
	"strings"

	"modernc.org/sqlite"

	"github.com/99minutos/restaurant-directory/internal/core/domain"
)

// foldFunc names the SQL function that lowercases text with Unicode rules.
// The built-in lower() and LIKE only fold ASCII.
const foldFunc = "directory_fold"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(foldFunc, 1, func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case string:
			return strings.ToLower(v), nil
		case []byte:
			return strings.ToLower(string(v)), nil
		default:
			return v, nil
		}
	})
}

// likeEscaper makes LIKE wildcards in a search term match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// directoryWhere builds the WHERE clause for a directory query over the
// "accounts a" alias. It returns "1 = 1" when nothing filters.
func directoryWhere(q domain.DirectoryQuery) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	if q.Search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(q.Search)) + "%"
		clauses = append(clauses, `(`+foldFunc+`(a.name) LIKE ? ESCAPE '\' OR `+foldFunc+`(a.email) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	if len(q.Roles) > 0 {
		in := placeholders(len(q.Roles))
		if q.RoleMatch == domain.RoleMatchAll {
			clauses = append(clauses, `(SELECT COUNT(DISTINCT r.name) FROM role_user ru JOIN roles r ON r.id = ru.role_id
				WHERE ru.account_id = a.id AND r.name IN (`+in+`)) = ?`)
		} else {
			clauses = append(clauses, `EXISTS (SELECT 1 FROM role_user ru JOIN roles r ON r.id = ru.role_id
				WHERE ru.account_id = a.id AND r.name IN (`+in+`))`)
		}
		for _, r := range q.Roles {
			args = append(args, r)
		}
		if q.RoleMatch == domain.RoleMatchAll {
			args = append(args, len(q.Roles))
		}
	}

	if len(clauses) == 0 {
		return "1 = 1", nil
	}
	return strings.Join(clauses, " AND "), args
}
