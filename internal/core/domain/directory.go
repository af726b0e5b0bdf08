package domain

// DirectoryPageSize is the fixed number of accounts per directory page.
const DirectoryPageSize = 10

// DirectoryQuery is the effective search applied to the account directory.
type DirectoryQuery struct {
	Search    string
	Roles     []string
	RoleMatch RoleMatch
	Page      int
	PerPage   int
}

// Offset returns how many accounts precede the requested page.
func (q DirectoryQuery) Offset() int {
	return (q.Page - 1) * q.PerPage
}

// Normalized clamps paging and fills defaults.
func (q DirectoryQuery) Normalized() DirectoryQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage <= 0 {
		q.PerPage = DirectoryPageSize
	}
	if q.RoleMatch == "" {
		q.RoleMatch = RoleMatchAny
	}
	q.Roles = NormalizeRoleNames(q.Roles)
	return q
}
