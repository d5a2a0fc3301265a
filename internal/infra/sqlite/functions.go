package sqlite

import (
	"database/sql/driver"
	"strings"

	msqlite "modernc.org/sqlite"
)

// CaseFoldFunc is the SQL name of a Unicode-aware lower(). SQLite's built-in lower()
// and LIKE only fold ASCII, so "SEGURANÇA" would never match "segurança".
const CaseFoldFunc = "casefold"

func init() {
	msqlite.MustRegisterDeterministicScalarFunction(CaseFoldFunc, 1, casefold)
}

func casefold(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// EscapeLike escapes LIKE wildcards so s matches literally under ESCAPE '\'.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ContainsPattern returns a case-folded '%s%' pattern for use with
// casefold(col) LIKE ? ESCAPE '\'.
func ContainsPattern(s string) string {
	return "%" + EscapeLike(strings.ToLower(s)) + "%"
}
