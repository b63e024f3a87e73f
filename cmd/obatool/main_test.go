package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/obakv/internal/ldif"
	"github.com/KilimcininKorOglu/obakv/internal/storage"
)

const testLDIF = `dn: dc=example,dc=com
objectClass: domain
dc: example

dn: ou=people,dc=example,dc=com
objectClass: organizationalUnit
ou: people

dn: uid=alice,ou=people,dc=example,dc=com
objectClass: person
uid: alice
cn: Alice Smith

dn: uid=bob,ou=people,dc=example,dc=com
objectClass: person
uid: bob
cn: Bob Jones
`

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := `backend:
  suffix: "dc=example,dc=com"
  dataDir: "` + filepath.Join(dir, "db") + `"
  noSync: true
  indexes:
    - attribute: objectClass
      types: [eq]
    - attribute: uid
      types: [eq]
    - attribute: cn
      types: [eq, sub]
tool:
  writesPerCommit: 2
  stampOperational: false
logging:
  level: debug
  output: "` + filepath.Join(dir, "obatool.log") + `"
`
	path := filepath.Join(dir, "obakv.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0600))
	return path
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func export(t *testing.T, cfg string, args ...string) []*storage.Entry {
	t.Helper()
	out := filepath.Join(t.TempDir(), "out.ldif")
	argv := append([]string{"obatool", "cat", "-config", cfg, "-o", out}, args...)
	require.Equal(t, 0, run(argv))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	entries, err := ldif.ReadAll(f)
	require.NoError(t, err)
	return entries
}

func dns(entries []*storage.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.DN
	}
	return out
}

func TestRun(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected int
	}{
		{"no command", []string{"obatool"}, 1},
		{"unknown command", []string{"obatool", "bogus"}, 1},
		{"help", []string{"obatool", "help"}, 0},
		{"help flag", []string{"obatool", "-h"}, 0},
		{"version", []string{"obatool", "version"}, 0},
		{"version short", []string{"obatool", "version", "-short"}, 0},
		{"version missing config", []string{"obatool", "version", "-config", "/nonexistent/obakv.yaml"}, 1},
		{"add help", []string{"obatool", "add", "-h"}, 0},
		{"index help", []string{"obatool", "index", "-help"}, 0},
		{"cat help", []string{"obatool", "cat", "-h"}, 0},
		{"delete help", []string{"obatool", "delete", "-h"}, 0},
		{"delete without dn", []string{"obatool", "delete"}, 1},
		{"bad flag", []string{"obatool", "add", "-nope"}, 1},
		{"missing config", []string{"obatool", "add", "-config", "/nonexistent/obakv.yaml"}, 1},
		{"config without subcommand", []string{"obatool", "config"}, 1},
		{"config init", []string{"obatool", "config", "init", "-suffix", "dc=example,dc=com"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, run(tt.args))
		})
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := writeConfig(t)
	assert.Equal(t, 0, run([]string{"obatool", "config", "validate", "-config", cfg}))

	bad := writeFile(t, "bad.yaml", "backend:\n  dataDir: relative/path\n")
	assert.Equal(t, 1, run([]string{"obatool", "config", "validate", "-config", bad}))
}

func TestVersionDescribesDatabase(t *testing.T) {
	var out bytes.Buffer
	writeVersion(&out)
	assert.Contains(t, out.String(), "obatool "+version)
	assert.Contains(t, out.String(), "Data file:    data.obakv")
	assert.Contains(t, out.String(), "Compression: none lz4 zstd")

	cfg := writeConfig(t)
	require.Equal(t, 0, run([]string{"obatool", "add", "-config", cfg, "-l", writeFile(t, "in.ldif", testLDIF)}))
	require.Equal(t, 0, run([]string{"obatool", "version", "-config", cfg}))

	e, err := openEnv(cfg, true, nil)
	require.NoError(t, err)
	defer e.close()

	out.Reset()
	describeDatabase(&out, e)
	assert.Contains(t, out.String(), "Suffix:       dc=example,dc=com")
	assert.Contains(t, out.String(), "Compression:  lz4")
	assert.Contains(t, out.String(), "DN tree:      current")
	assert.Contains(t, out.String(), "Index:        cn (eq,sub)")
	assert.Contains(t, out.String(), "Index:        uid (eq)")
}

func TestAddAndCat(t *testing.T) {
	for _, quick := range []bool{false, true} {
		name := "safe"
		if quick {
			name = "quick"
		}
		t.Run(name, func(t *testing.T) {
			cfg := writeConfig(t)
			input := writeFile(t, "in.ldif", testLDIF)

			args := []string{"obatool", "add", "-config", cfg, "-l", input}
			if quick {
				args = append(args, "-q", "-threads", "2")
			}
			require.Equal(t, 0, run(args))

			entries := export(t, cfg)
			assert.Equal(t, []string{
				"dc=example,dc=com",
				"ou=people,dc=example,dc=com",
				"uid=alice,ou=people,dc=example,dc=com",
				"uid=bob,ou=people,dc=example,dc=com",
			}, dns(entries))
			assert.Equal(t, "Alice Smith", string(entries[2].GetAttribute("cn")[0]))

			assert.Equal(t, []string{"uid=bob,ou=people,dc=example,dc=com"},
				dns(export(t, cfg, "-f", "(uid=bob)")))
			assert.Equal(t, []string{"uid=alice,ou=people,dc=example,dc=com"},
				dns(export(t, cfg, "-f", "(cn=*lice*)")))
			assert.Equal(t, []string{"ou=people,dc=example,dc=com"},
				dns(export(t, cfg, "-b", "dc=example,dc=com", "-s", "one")))
		})
	}
}

func TestAddStampsOperationalAttributes(t *testing.T) {
	cfg := writeConfig(t)
	data, err := os.ReadFile(cfg)
	require.NoError(t, err)
	stamped := strings.Replace(string(data), "stampOperational: false", "stampOperational: true", 1)
	require.NoError(t, os.WriteFile(cfg, []byte(stamped), 0600))

	input := writeFile(t, "in.ldif", testLDIF)
	require.Equal(t, 0, run([]string{"obatool", "add", "-config", cfg, "-l", input, "-creator", "cn=admin,dc=example,dc=com"}))

	entries := export(t, cfg, "-b", "uid=alice,ou=people,dc=example,dc=com", "-s", "base")
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].GetAttribute("entryUUID"), 1)
	assert.Equal(t, "cn=admin,dc=example,dc=com", string(entries[0].GetAttribute("creatorsName")[0]))
}

func TestAddFailures(t *testing.T) {
	cfg := writeConfig(t)
	input := writeFile(t, "in.ldif", testLDIF)
	require.Equal(t, 0, run([]string{"obatool", "add", "-config", cfg, "-l", input}))

	// every entry already exists
	assert.Equal(t, 1, run([]string{"obatool", "add", "-config", cfg, "-l", input}))
	assert.Equal(t, 1, run([]string{"obatool", "add", "-config", cfg, "-l", input, "-c"}))

	foreign := writeFile(t, "foreign.ldif", "dn: dc=other,dc=org\nobjectClass: domain\n")
	assert.Equal(t, 1, run([]string{"obatool", "add", "-config", cfg, "-l", foreign}))

	broken := writeFile(t, "broken.ldif", "cn: no dn\n")
	assert.Equal(t, 1, run([]string{"obatool", "add", "-config", cfg, "-l", broken}))

	assert.Len(t, export(t, cfg), 4)
}

func TestAddReportsMissingParents(t *testing.T) {
	cfg := writeConfig(t)
	input := writeFile(t, "orphan.ldif", "dn: uid=carol,ou=staff,dc=example,dc=com\nobjectClass: person\nuid: carol\n")

	// the suffix and ou=staff are left as placeholders
	assert.Equal(t, 1, run([]string{"obatool", "add", "-config", cfg, "-l", input}))
	assert.Equal(t, []string{"uid=carol,ou=staff,dc=example,dc=com"}, dns(export(t, cfg)))
}

func TestIndex(t *testing.T) {
	cfg := writeConfig(t)
	input := writeFile(t, "in.ldif", testLDIF)
	require.Equal(t, 0, run([]string{"obatool", "add", "-config", cfg, "-l", input}))

	tests := []struct {
		name     string
		args     []string
		expected int
	}{
		{"all indexes", nil, 0},
		{"one attribute truncated", []string{"-t", "uid"}, 0},
		{"quick truncated", []string{"-q", "-t", "cn", "objectClass"}, 0},
		{"unindexed attribute", []string{"mail"}, 1},
		{"dn tree upgrade", []string{"entryDN"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"obatool", "index", "-config", cfg}, tt.args...)
			assert.Equal(t, tt.expected, run(args))
		})
	}

	assert.Equal(t, []string{"uid=alice,ou=people,dc=example,dc=com"},
		dns(export(t, cfg, "-f", "(&(objectClass=person)(uid=alice))")))
	assert.Equal(t, []string{"uid=bob,ou=people,dc=example,dc=com"},
		dns(export(t, cfg, "-f", "(cn=bob*)")))
}

func TestDelete(t *testing.T) {
	cfg := writeConfig(t)
	input := writeFile(t, "in.ldif", testLDIF)
	require.Equal(t, 0, run([]string{"obatool", "add", "-config", cfg, "-l", input}))

	// ou=people still has children
	assert.Equal(t, 1, run([]string{"obatool", "delete", "-config", cfg, "ou=people,dc=example,dc=com"}))
	assert.Equal(t, 1, run([]string{"obatool", "delete", "-config", cfg, "uid=nobody,ou=people,dc=example,dc=com"}))

	assert.Equal(t, 0, run([]string{"obatool", "delete", "-config", cfg,
		"uid=alice,ou=people,dc=example,dc=com", "UID=Bob,OU=People,DC=Example,DC=Com"}))
	assert.Equal(t, 0, run([]string{"obatool", "delete", "-config", cfg, "ou=people,dc=example,dc=com"}))

	assert.Equal(t, []string{"dc=example,dc=com"}, dns(export(t, cfg)))
	assert.Empty(t, export(t, cfg, "-f", "(uid=alice)"))
}

func TestCatErrors(t *testing.T) {
	cfg := writeConfig(t)
	input := writeFile(t, "in.ldif", testLDIF)
	require.Equal(t, 0, run([]string{"obatool", "add", "-config", cfg, "-l", input}))

	assert.Equal(t, 1, run([]string{"obatool", "cat", "-config", cfg, "-s", "deep"}))
	assert.Equal(t, 1, run([]string{"obatool", "cat", "-config", cfg, "-f", "(uid=alice"}))
}

func TestParseScope(t *testing.T) {
	tests := []struct {
		in       string
		expected storage.Scope
		wantErr  bool
	}{
		{"base", storage.ScopeBase, false},
		{"one", storage.ScopeOneLevel, false},
		{"ONELEVEL", storage.ScopeOneLevel, false},
		{"sub", storage.ScopeSubtree, false},
		{"subtree", storage.ScopeSubtree, false},
		{"children", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseScope(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
