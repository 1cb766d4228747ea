package postgresql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/hobbyfinder/internal/storage"
)

func TestSelectQuery(t *testing.T) {
	tests := []struct {
		name     string
		filter   storage.Filter
		limit    int
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "empty filter",
			wantSQL:  "SELECT body FROM documents WHERE kind = $1 ORDER BY seq",
			wantArgs: []any{"hobbies"},
		},
		{
			name:     "nested eq with limit",
			filter:   storage.Where(storage.Eq("author.id", "u1")),
			limit:    1,
			wantSQL:  "SELECT body FROM documents WHERE kind = $1 AND body #> '{author,id}' = $2::jsonb ORDER BY seq LIMIT 1",
			wantArgs: []any{"hobbies", `"u1"`},
		},
		{
			name:     "eq null",
			filter:   storage.Where(storage.Eq("evaluation", nil)),
			wantSQL:  "SELECT body FROM documents WHERE kind = $1 AND COALESCE(body #> '{evaluation}', 'null'::jsonb) = 'null'::jsonb ORDER BY seq",
			wantArgs: []any{"hobbies"},
		},
		{
			name:     "in",
			filter:   storage.Where(storage.In("id", []string{"a", "b"})),
			wantSQL:  "SELECT body FROM documents WHERE kind = $1 AND body #> '{id}' IN ($2::jsonb, $3::jsonb) ORDER BY seq",
			wantArgs: []any{"hobbies", `"a"`, `"b"`},
		},
		{
			name:     "empty in",
			filter:   storage.Where(storage.In("id", []string{})),
			wantSQL:  "SELECT body FROM documents WHERE kind = $1 AND FALSE ORDER BY seq",
			wantArgs: []any{"hobbies"},
		},
		{
			name:     "contains escapes like wildcards",
			filter:   storage.Where(storage.Contains("label", "100%_ok")),
			wantSQL:  "SELECT body FROM documents WHERE kind = $1 AND body #>> '{label}' ILIKE $2 ORDER BY seq",
			wantArgs: []any{"hobbies", `%100\%\_ok%`},
		},
		{
			name:     "exists and any of",
			filter:   storage.Filter{All: []storage.Cond{storage.Exists("evaluation")}, Any: []storage.Cond{storage.Eq("email", "a"), storage.Eq("phone", "b")}},
			wantSQL:  "SELECT body FROM documents WHERE kind = $1 AND COALESCE(jsonb_typeof(body #> '{evaluation}'), 'null') <> 'null' AND (body #> '{email}' = $2::jsonb OR body #> '{phone}' = $3::jsonb) ORDER BY seq",
			wantArgs: []any{"hobbies", `"a"`, `"b"`},
		},
		{
			name:     "numeric value",
			filter:   storage.Where(storage.Eq("metroId", 42)),
			wantSQL:  "SELECT body FROM documents WHERE kind = $1 AND body #> '{metroId}' = $2::jsonb ORDER BY seq",
			wantArgs: []any{"hobbies", `42`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := selectQuery(storage.KindHobby, tt.filter, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, q.String())
			assert.Equal(t, tt.wantArgs, q.args)
		})
	}
}

func TestSelectQuery_RejectsInjectedField(t *testing.T) {
	_, err := selectQuery(storage.KindHobby, storage.Where(storage.Eq("label}' OR 1=1 --", "x")), 0)
	assert.ErrorIs(t, err, storage.ErrInvalidFilter)
}
