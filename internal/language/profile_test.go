package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	p, err := Lookup("java")
	require.NoError(t, err)
	assert.Equal(t, ".java", p.Extension())

	p, err = Lookup(" Kotlin ")
	require.NoError(t, err)
	assert.Equal(t, ".kt", p.Extension())

	_, err = Lookup("cobol")
	assert.ErrorContains(t, err, "unknown language profile")
	assert.ErrorContains(t, err, "java, kotlin")
}

func TestJavaIsImportLine(t *testing.T) {
	tests := []struct {
		line     string
		expected bool
	}{
		{"import a.b.C;", true},
		{"import static org.junit.Assert.*;", true},
		{"import java.util.*;", true},
		{"  import a.b.C;", false},
		{"// import a.b.C;", false},
		{"important();", false},
		{"package p;", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.expected, Java{}.IsImportLine(tt.line))
		})
	}
}

func TestIsRelevant(t *testing.T) {
	assert.True(t, IsRelevant(Java{}, "/src/A.java"))
	assert.False(t, IsRelevant(Java{}, "/src/A.java~"))
	assert.False(t, IsRelevant(Java{}, "/src/A.kt"))
	assert.True(t, IsRelevant(Kotlin{}, "/src/A.kt"))
}

type bareProfile struct{}

func (bareProfile) Extension() string { return ".x" }
func (bareProfile) IsImportLine(string) bool { return false }

func TestDialectOfFallsBackToJava(t *testing.T) {
	d := DialectOf(bareProfile{})
	assert.Equal(t, "package", d.PackageKeyword())
	assert.Equal(t, ";", d.StatementTerminator())
	assert.Len(t, d.VisibilityRewrites(), 6)

	k := DialectOf(Kotlin{})
	assert.Equal(t, "", k.StatementTerminator())
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"java", "kotlin"}, Names())
}
