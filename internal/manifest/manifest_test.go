package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/section-installer/internal/domain/section"
)

const sampleManifest = `; installation plan
orphan=ignored

[runtime]
zipFile=https://packages.local/runtime.zip#v2
scriptFile=setup/install.sh
iniFile=https://packages.local/runtime.ini

# drivers come second
[drivers]
zipFile=https://packages.local/drivers.zip
scriptFile=install.cmd
this line has no assignment

[tools]
`

// TestListSectionNames_Order verifies that names keep textual order rather than sorted order.
func TestListSectionNames_Order(t *testing.T) {
	t.Parallel()

	src := []byte("[c]\nk=v\n[a]\n[b]\n")
	require.Equal(t, []string{"c", "a", "b"}, ListSectionNames(src))

	src = []byte("[a]\n[b]\n[c]\n")
	require.Equal(t, []string{"a", "b", "c"}, ListSectionNames(src))
}

// TestValidate_DuplicateSection reports the section name and its occurrence count.
func TestValidate_DuplicateSection(t *testing.T) {
	t.Parallel()

	err := Validate([]byte("[a]\nzipFile=x\n[b]\n[a]\nscriptFile=y\n"))
	require.ErrorIs(t, err, ErrDuplicateSection)

	var dup *DuplicateSectionError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "a", dup.Name)
	require.Equal(t, 2, dup.Count)
	require.Contains(t, err.Error(), "[a]")
	require.Contains(t, err.Error(), "2")

	require.NoError(t, Validate([]byte("[a]\n[b]\n[c]\n")))
}

// TestValidate_InvalidSyntax rejects assignments without a key directly followed by '='.
func TestValidate_InvalidSyntax(t *testing.T) {
	t.Parallel()

	cases := map[string]int{
		"[a]\n=value\n":        2,
		"[a]\nkey =value\n":    2,
		"[a]\nk=v\nmy key=v\n": 3,
		"=orphan\n[a]\n":       1,
	}

	for src, wantLine := range cases {
		err := Validate([]byte(src))
		require.ErrorIs(t, err, ErrInvalidSyntax, src)

		var syntaxErr *SyntaxError
		require.ErrorAs(t, err, &syntaxErr)
		require.Equal(t, wantLine, syntaxErr.Line, src)
	}
}

// TestValidate_IgnoresOtherLines accepts comments, blank lines and free text.
func TestValidate_IgnoresOtherLines(t *testing.T) {
	t.Parallel()

	require.NoError(t, Validate([]byte(sampleManifest)))
}

// TestParse_Settings checks that each section gets only its own settings and values stay literal.
func TestParse_Settings(t *testing.T) {
	t.Parallel()

	sections, err := Parse([]byte(sampleManifest))
	require.NoError(t, err)
	require.Len(t, sections, 3)

	runtime := sections[0]
	require.Equal(t, "runtime", runtime.Name)
	require.Equal(t, "https://packages.local/runtime.zip#v2", runtime.ZipFile())
	require.Equal(t, "setup/install.sh", runtime.ScriptFile())
	require.Equal(t, "https://packages.local/runtime.ini", runtime.IniFile())

	drivers := sections[1]
	require.Equal(t, "drivers", drivers.Name)
	require.Empty(t, drivers.IniFile())
	require.NotContains(t, drivers.Settings, "orphan")

	tools := sections[2]
	require.Equal(t, "tools", tools.Name)
	require.Empty(t, tools.Settings)
	require.ErrorIs(t, tools.Validate(), section.ErrMissingSetting)
}

// TestOpen_SectionLookup covers name-keyed lookups and unknown names.
func TestOpen_SectionLookup(t *testing.T) {
	t.Parallel()

	m, err := Open([]byte(sampleManifest))
	require.NoError(t, err)
	require.Equal(t, []string{"runtime", "drivers", "tools"}, m.SectionNames())

	drivers, err := m.Section("drivers")
	require.NoError(t, err)
	require.Equal(t, "install.cmd", drivers.ScriptFile())

	_, err = m.Section("missing")
	require.ErrorIs(t, err, ErrSectionNotFound)

	_, err = m.Section("DEFAULT")
	require.ErrorIs(t, err, ErrSectionNotFound)
}

// TestOpen_RejectsDuplicates makes sure nothing is built from an invalid manifest.
func TestOpen_RejectsDuplicates(t *testing.T) {
	t.Parallel()

	m, err := Open([]byte("[a]\n[a]\n"))
	require.ErrorIs(t, err, ErrDuplicateSection)
	require.Nil(t, m)
}

// TestLoad_FromFile reads a manifest with Windows line endings and a BOM.
func TestLoad_FromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "plan.ini")
	src := "\xEF\xBB\xBF[base]\r\nzipFile=https://packages.local/base.zip\r\nscriptFile=install.sh\r\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	m, err := Load(path)
	require.NoError(t, err)

	base, err := m.Section("base")
	require.NoError(t, err)
	require.Equal(t, "https://packages.local/base.zip", base.ZipFile())
	require.NoError(t, base.Validate())

	_, err = Load(filepath.Join(t.TempDir(), "absent.ini"))
	require.Error(t, err)
}

// TestOpen_KeepsValuesVerbatim accepts every assignment Validate accepts and
// returns keys and values exactly as written.
func TestOpen_KeepsValuesVerbatim(t *testing.T) {
	t.Parallel()

	src := []byte("[a]\n" +
		"[opt=1\n" +
		"`tick`=`x`\n" +
		"iniFile=\"\"\"x\"\"\"\n" +
		"quoted='single'\n" +
		"zipFile=https://packages.local/a.zip;v=2 # not a comment\n" +
		"scriptFile=install.cmd\n" +
		"scriptFile=setup.cmd\n")

	require.NoError(t, Validate(src))

	sections, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, sections, 1)

	require.Equal(t, map[string]string{
		"[opt":       "1",
		"`tick`":     "`x`",
		"iniFile":    `"""x"""`,
		"quoted":     "'single'",
		"zipFile":    "https://packages.local/a.zip;v=2 # not a comment",
		"scriptFile": "setup.cmd",
	}, sections[0].Settings)
}
