package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinterAcceptsMarkedQueries(t *testing.T) {
	src := "package q\n\nconst QOne = `--sql 0b5d3c1e-1111-4a2b-9c3d-000000000001\nselect 1`\n\nconst QTwo = `--sql 0b5d3c1e-1111-4a2b-9c3d-000000000002\nupdate t set a = 1`\n\nconst greeting = \"hello\"\n"
	l := newLinter()
	require.NoError(t, l.source("q.go", []byte(src)))
	assert.Empty(t, l.violations)
}

func TestLinterViolations(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "missing marker",
			src:  "package q\n\nconst QBare = `select * from projects`\n",
			want: "missing or invalid",
		},
		{
			name: "bad uuid",
			src:  "package q\n\nconst QBad = `--sql not-a-uuid\nselect 1`\n",
			want: "missing or invalid",
		},
		{
			name: "prefix",
			src:  "package q\n\nconst ListJobs = `--sql 0b5d3c1e-1111-4a2b-9c3d-000000000003\nselect 1`\n",
			want: "prefixed with Q",
		},
		{
			name: "duplicate",
			src:  "package q\n\nconst QA = `--sql 0b5d3c1e-1111-4a2b-9c3d-000000000004\nselect 1`\nconst QB = `--sql 0b5d3c1e-1111-4a2b-9c3d-000000000004\nselect 2`\n",
			want: "already used by QA",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := newLinter()
			require.NoError(t, l.source("q.go", []byte(tc.src)))
			require.Len(t, l.violations, 1)
			assert.Contains(t, l.violations[0].message, tc.want)
		})
	}
}

func TestLinterDuplicateAcrossFiles(t *testing.T) {
	l := newLinter()
	a := "package q\n\nconst QA = `--sql 0b5d3c1e-1111-4a2b-9c3d-000000000005\nselect 1`\n"
	b := "package q\n\nconst QB = `--sql 0b5d3c1e-1111-4a2b-9c3d-000000000005\nselect 1`\n"
	require.NoError(t, l.source("a.go", []byte(a)))
	require.NoError(t, l.source("b.go", []byte(b)))
	require.Len(t, l.violations, 1)
	assert.Equal(t, "b.go", l.violations[0].file)
}
