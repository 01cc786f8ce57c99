package tabular

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/tbmerge/internal/reconcile"
)

func TestRead(t *testing.T) {
	input := "\ufeffcountry, iso3 ,year,e_inc_100k\n" +
		"Afghanistan,AFG,2000,190\n" +
		"Albania,ALB,2000,NA\n" +
		"\"Bonaire, Saint Eustatius and Saba\",BES,2010,\n"

	src, err := Read(strings.NewReader(input), "new", ReadOptions{Mapping: reconcile.NewMapping()})
	require.NoError(t, err)

	assert.Equal(t, "new", src.Name)
	assert.Equal(t, []string{"country", "iso3", "year", "e_inc_100k"}, src.Columns)
	require.Len(t, src.Rows, 3)
	assert.Equal(t, "190", src.Rows[0]["e_inc_100k"])
	assert.Nil(t, src.Rows[1]["e_inc_100k"])
	assert.Equal(t, "Bonaire, Saint Eustatius and Saba", src.Rows[2]["country"])
	assert.Nil(t, src.Rows[2]["e_inc_100k"])
	assert.NotNil(t, src.Mapping)
}

func TestRead_CustomOptions(t *testing.T) {
	input := "iso3\tyear\tnote\nIND\t2005\t-\nIND\t2006\t\n"

	src, err := Read(strings.NewReader(input), "tsv", ReadOptions{Delimiter: '\t', NAValues: []string{"-"}})
	require.NoError(t, err)
	require.Len(t, src.Rows, 2)
	assert.Nil(t, src.Rows[0]["note"])
	assert.Nil(t, src.Rows[1]["note"], "empty fields are missing whatever the NA list")
}

func TestRead_ISO2IgnoresNATokens(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		mapping map[string]string
		column  string
	}{
		{
			name:   "canonical header",
			input:  "country,iso2,iso3,year\nNamibia,NA,NAM,2005\n",
			column: "iso2",
		},
		{
			name:    "mapped header",
			input:   "ISO 2-character country/territory code,ISO 3-character country/territory code,Year\nNA,NAM,2005\n",
			mapping: reconcile.OldMapping(),
			column:  "ISO 2-character country/territory code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Read(strings.NewReader(tt.input), "new", ReadOptions{Mapping: tt.mapping})
			require.NoError(t, err)
			require.Len(t, src.Rows, 1)
			assert.Equal(t, "NA", src.Rows[0][tt.column])
		})
	}

	src, err := Read(strings.NewReader("iso2,iso3,year\n,NAM,2005\n"), "new", ReadOptions{})
	require.NoError(t, err)
	assert.Nil(t, src.Rows[0]["iso2"])
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		errSubstr string
	}{
		{name: "empty input", input: "", errSubstr: "no header row"},
		{name: "ragged row", input: "iso3,year\nIND,2005,extra\n", errSubstr: "wrong number of fields"},
		{name: "repeated header", input: "iso3,year,iso3\n", errSubstr: "the header repeats it"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input), "new", ReadOptions{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestRead_RepeatedHeaderIsSchemaError(t *testing.T) {
	_, err := ReadFile(writeTemp(t, "dup.csv", "iso3,year,iso3\nIND,2005,IND\n"), "old", ReadOptions{})

	var se *reconcile.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "old", se.Source)
	assert.Equal(t, "iso3", se.Column)
	assert.True(t, reconcile.IsInputError(err))
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "burden.tsv")
	require.NoError(t, os.WriteFile(path, []byte("iso3\tyear\nIND\t2005\n"), 0o600))

	src, err := ReadFile(path, "new", ReadOptions{})
	require.NoError(t, err)
	require.Len(t, src.Rows, 1)
	assert.Equal(t, "IND", src.Rows[0]["iso3"])

	_, err = ReadFile(filepath.Join(dir, "missing.csv"), "old", ReadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open old source")
}

func TestDelimiterFor(t *testing.T) {
	assert.Equal(t, '\t', DelimiterFor("a/b.TSV", 0))
	assert.Equal(t, ',', DelimiterFor("a/b.csv", 0))
	assert.Equal(t, ';', DelimiterFor("a/b.tsv", ';'))
}

func sampleTable(t *testing.T) *reconcile.Table {
	t.Helper()
	a := reconcile.Source{
		Name:    "new",
		Columns: []string{"iso3", "year", "e_inc_100k", "country"},
		Rows: []reconcile.Record{
			{"iso3": "IND", "year": "2005", "e_inc_100k": "200", "country": "India"},
		},
		Mapping: reconcile.NewMapping(),
	}
	b := reconcile.Source{
		Name:    "old",
		Columns: []string{"ISO 3-character country/territory code", "Year", "Country or territory name"},
		Rows: []reconcile.Record{
			{"ISO 3-character country/territory code": "IND", "Year": "1995", "Country or territory name": "India"},
		},
		Mapping: reconcile.OldMapping(),
	}
	table, err := reconcile.Reconcile(a, b)
	require.NoError(t, err)
	return table
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleTable(t), 0))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(reconcile.Columns, ","), lines[0])
	assert.Equal(t, "India,,IND,,,1995,,,,,,,,,,,,,,,,", lines[1])
	assert.Equal(t, "India,,IND,,,2005,,200,,,,,,,,,,,,,,", lines[2])
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "combined.csv")

	require.NoError(t, WriteFileAtomic(path, sampleTable(t), 0))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "country,iso2,iso3,"))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")

	// Idempotent: a second write yields the same bytes.
	require.NoError(t, WriteFileAtomic(path, sampleTable(t), 0))
	again, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestWriteFileAtomic_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "combined.csv")
	table := sampleTable(t)
	require.NoError(t, WriteFileAtomic(path, table, 0))

	src, err := ReadFile(path, "combined", ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, reconcile.Columns, src.Columns)
	require.Len(t, src.Rows, table.Len())
	assert.Nil(t, src.Rows[0]["population"], "missing values are written as empty fields")
}
