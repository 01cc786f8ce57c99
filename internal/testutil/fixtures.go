package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// NewSourceCSV is a small extract in the current WHO header vocabulary.
// e_inc_tbhiv_num is not part of the canonical set.
const NewSourceCSV = `country,iso2,iso3,g_whoregion,year,e_pop_num,e_inc_100k,e_inc_num,e_mort_exc_tbhiv_100k,e_inc_tbhiv_num
India,IN,IND,SEA,2005,1000000,200,2000,30,15
India,IN,IND,SEA,2006,1010000,190,,28,14
Pakistan,PK,PAK,EMR,2005,500000,250,1250,40,3
`

// OldSourceCSV is a small extract in the historical verbose header vocabulary.
const OldSourceCSV = `Country or territory name,ISO 3-character country/territory code,Region,Year,Estimated total population number,Estimated incidence (all forms) per 100 000 population,Estimated number of incident cases (all forms),Source
India,IND,SEA,1995,900000,300,2700,model
India,IND,SEA,2005,1000000,150,1500,model
India,IND,SEA,2006,1010000,180,1818,model
Afghanistan,AFG,EMR,2000,200000,190,380,survey
`

// WriteFile writes content to dir/name and returns the path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// WriteSources writes NewSourceCSV and OldSourceCSV into dir and returns
// their paths.
func WriteSources(t testing.TB, dir string) (newPath, oldPath string) {
	t.Helper()
	return WriteFile(t, dir, "new.csv", NewSourceCSV), WriteFile(t, dir, "old.csv", OldSourceCSV)
}
