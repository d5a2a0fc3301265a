package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

func smells(m dsl.Matcher) {
	// Two guards returning the same value can be merged.
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)

	m.Match(`if $c1 { continue }; if $c2 { continue }`).
		Report(`two consecutive continues; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { continue }`)

	m.Match(`for $*_ { for $*_ { $*_ } }`).
		Report(`nested for-loop; consider extracting inner loop logic or reducing algorithmic complexity`)
}

// sentinels: domain errors are wrapped with %w, so equality misses them.
func sentinels(m dsl.Matcher) {
	m.Match(`$err == $sentinel`, `$err != $sentinel`).
		Where(m["err"].Type.Is(`error`) && m["sentinel"].Text.Matches(`(^|\.)Err[A-Z]\w*$`)).
		Report(`compare sentinel errors with errors.Is`)
}

// conventions specific to this repository.
func conventions(m dsl.Matcher) {
	m.Match(`fmt.Println($*_)`, `fmt.Printf($*_)`, `log.Printf($*_)`, `log.Println($*_)`).
		Where(!m.File().PkgPath.Matches(`/cmd/`)).
		Report(`log through logger.Get() so output stays structured`)

	m.Match(`uuid.New()`, `uuid.NewString()`).
		Report(`ids are time-ordered; use uuid.Must(uuid.NewV7()).String()`)

	// Stored timestamps must be fixed width or ORDER BY on TEXT columns breaks.
	m.Match(`$t.Format(time.RFC3339Nano)`, `$t.Format(time.RFC3339)`).
		Where(m.File().PkgPath.Matches(`internal/domain`)).
		Report(`format stored timestamps with sqlite.FormatTime`)

	// User input in LIKE patterns needs sqlite.ContainsPattern plus an ESCAPE clause.
	m.Match(`$db.QueryContext($ctx, $q, $*_)`, `$db.QueryRowContext($ctx, $q, $*_)`).
		Where(m["q"].Text.Matches(`LIKE`) && !m["q"].Text.Matches(`ESCAPE`)).
		Report(`LIKE without ESCAPE lets % and _ in user queries act as wildcards`)
}
