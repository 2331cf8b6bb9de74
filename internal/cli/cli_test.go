package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSeedThenMatch(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "data", "catalog.db")
	seedFile := writeFile(t, dir, "seed.yaml", `
entities:
  - {name: Adam, kind: person}
  - {name: Eve, kind: person}
relation_types:
  - is married to
`)
	factsFile := writeFile(t, dir, "facts.jsonl", `
{"source": "Adam", "role": "is married to", "target": "Eve"}
{"source": "Adam", "role": "knows", "target": "Lilith"}
`)

	out, err := execute(t, "--db", db, "seed", seedFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Created 2 entities and 1 relation types")

	out, err = execute(t, "--db", db, "match", factsFile)
	require.NoError(t, err)

	var report struct {
		Matches []struct {
			Source *struct {
				Name string `json:"name"`
			} `json:"source"`
			Target *struct {
				Name string `json:"name"`
			} `json:"target"`
		} `json:"matches"`
		Entities map[string]struct {
			Count  int             `json:"count"`
			Object json.RawMessage `json:"object"`
		} `json:"entities"`
		UnmatchedEntities      []string `json:"unmatched_entities"`
		UnmatchedRelationTypes []string `json:"unmatched_relation_types"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))

	require.Len(t, report.Matches, 2)
	require.NotNil(t, report.Matches[0].Source)
	assert.Equal(t, "Adam", report.Matches[0].Source.Name)
	assert.Equal(t, "Eve", report.Matches[0].Target.Name)
	assert.Nil(t, report.Matches[1].Target)

	assert.Equal(t, 2, report.Entities["Adam"].Count)
	assert.JSONEq(t, "null", string(report.Entities["Lilith"].Object))
	assert.Equal(t, []string{"Lilith"}, report.UnmatchedEntities)
	assert.Equal(t, []string{"knows"}, report.UnmatchedRelationTypes)
}

func TestMatchWithRulesAndFieldNames(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "catalog.db")
	seedFile := writeFile(t, dir, "seed.yaml", `
entities:
  - {name: Adam}
  - {name: Eve}
relation_types:
  - is married to
`)
	rules := writeFile(t, dir, "rules.yaml", `
rules:
  - type: rewrite
    field: What
    replacements:
      married: is married to
`)
	factsFile := writeFile(t, dir, "facts.csv", "Who,What,To whom\nAdam,married,Eve\n")

	_, err := execute(t, "--db", db, "seed", seedFile)
	require.NoError(t, err)

	out, err := execute(t, "--db", db, "--rules", rules,
		"--source-name", "Who", "--role-name", "What", "--target-name", "To whom",
		"match", "--compact", factsFile)
	require.NoError(t, err)

	var report struct {
		Summary struct {
			RelationTypes struct {
				Matched int `json:"matched"`
			} `json:"relation_types"`
		} `json:"summary"`
		FieldNames map[string]string `json:"field_names"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Summary.RelationTypes.Matched)
	assert.Equal(t, "To whom", report.FieldNames["target_name"])
}

func TestMatchMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--db", filepath.Join(dir, "catalog.db"), "match", filepath.Join(dir, "nope.jsonl"))
	assert.Error(t, err)
}

func TestInvalidConfigRejected(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--db", filepath.Join(dir, "catalog.db"), "--storage-driver", "postgres", "match", "facts.jsonl")
	assert.ErrorContains(t, err, "storage.driver")
}

func TestServeFlagsReachConfig(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--db", filepath.Join(dir, "catalog.db"), "serve", "--transport", "grpc")
	assert.ErrorContains(t, err, "server.transport")
}

func TestBindFlagsPanicsOnUnknownFlag(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("port", "8081", "")
	v := viper.New()

	assert.NotPanics(t, func() { bindFlags(v, fs, map[string]string{"server.port": "port"}) })
	assert.Panics(t, func() { bindFlags(v, fs, map[string]string{"server.port": "prot"}) })
}
