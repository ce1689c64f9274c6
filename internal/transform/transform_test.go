package transform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mergeerrors "github.com/conneroisu/srcmerge/internal/errors"
	"github.com/conneroisu/srcmerge/internal/language"
)

func newJava(t *testing.T, mode Mode) *Transformer {
	t.Helper()
	tr, err := New(language.Java{}, Options{Mode: mode, CacheSize: 16})
	require.NoError(t, err)
	return tr
}

func TestVisibilityRewrite(t *testing.T) {
	tests := []struct {
		line     string
		expected string
	}{
		{"public final class Foo {", "final class Foo {"},
		{"public interface Bar {", "interface Bar {"},
		{"class Baz {", "class Baz {"},
		{"public class A {}", "class A {}"},
		{"public abstract class Shape {", "abstract class Shape {"},
		{"public enum Color { RED }", "enum Color { RED }"},
		{"public record Point(int x, int y) {}", "record Point(int x, int y) {}"},
		{"    public class Inner {", "    public class Inner {"},
		{"public static void main(String[] a) {", "public static void main(String[] a) {"},
		// A matching line has every occurrence replaced.
		{"public class A { public class B {} }", "class A { class B {} }"},
		{"public class A { String s = \"public class\"; }", "class A { String s = \"class\"; }"},
		{"public enum E { A } public enum F { B }", "enum E { A } enum F { B }"},
	}

	tr := newJava(t, ModeNaive)
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			parsed := tr.Parse(tt.line + "\n")
			assert.Equal(t, tt.expected+"\n", parsed.Content)
		})
	}
}

func TestParse_PackageAndImports(t *testing.T) {
	src := "package com.example.game;\n" +
		"\n" +
		"import java.util.List;\n" +
		"import static java.lang.Math.max;\n" +
		"import java.util.List;\n" +
		"\n" +
		"public class Player {\n" +
		"    int hp;\n" +
		"}\n"

	parsed := newJava(t, ModeNaive).Parse(src)

	assert.Equal(t, "com.example.game", parsed.Package)
	assert.Equal(t, []string{"import java.util.List;", "import static java.lang.Math.max;"}, parsed.Imports)
	assert.Equal(t, "\n\nclass Player {\n    int hp;\n}\n", parsed.Content)
}

func TestParse_NewlineNormalization(t *testing.T) {
	tr := newJava(t, ModeNaive)

	crlf := tr.Parse("package p;\r\nimport a.B;\r\npublic class A {\r\n}\r\n")
	lf := tr.Parse("package p;\nimport a.B;\npublic class A {\n}\n")
	cr := tr.Parse("package p;\rimport a.B;\rpublic class A {\r}")

	assert.Equal(t, lf, crlf)
	assert.Equal(t, lf, cr)
	assert.Equal(t, "class A {\n}\n", lf.Content)
}

func TestParse_NoTrailingNewline(t *testing.T) {
	parsed := newJava(t, ModeNaive).Parse("class A {}")
	assert.Equal(t, "class A {}\n", parsed.Content)

	empty := newJava(t, ModeNaive).Parse("")
	assert.Equal(t, "", empty.Content)
	assert.Empty(t, empty.Imports)
	assert.Empty(t, empty.Package)
}

func TestParse_TokenizedLeavesCommentsAlone(t *testing.T) {
	src := "package p;\n" +
		"/*\n" +
		"public class NotAClass {\n" +
		"import fake.Import;\n" +
		"*/\n" +
		"public class Real {\n" +
		"    String doc = \"\"\"\n" +
		"public interface Quoted {\n" +
		"\"\"\";\n" +
		"}\n" +
		"public enum After { A }\n"

	naive := newJava(t, ModeNaive).Parse(src)
	tokenized := newJava(t, ModeTokenized).Parse(src)

	assert.Contains(t, naive.Content, "\nclass NotAClass {\n")
	assert.Contains(t, naive.Content, "\ninterface Quoted {\n")
	assert.Equal(t, []string{"import fake.Import;"}, naive.Imports)

	assert.Contains(t, tokenized.Content, "\npublic class NotAClass {\n")
	assert.Contains(t, tokenized.Content, "\nimport fake.Import;\n")
	assert.Contains(t, tokenized.Content, "\npublic interface Quoted {\n")
	assert.Contains(t, tokenized.Content, "\nclass Real {\n")
	assert.Contains(t, tokenized.Content, "\nenum After { A }\n")
	assert.Empty(t, tokenized.Imports)
	assert.Equal(t, "p", tokenized.Package)
}

func TestParse_TokenizedIgnoresNestedDeclarations(t *testing.T) {
	src := "public class Outer {\n" +
		"public class Inner {}\n" +
		"}\n" +
		"public class Next {}\n"

	parsed := newJava(t, ModeTokenized).Parse(src)

	assert.Equal(t, "class Outer {\npublic class Inner {}\n}\nclass Next {}\n", parsed.Content)
}

func TestParse_TokenizedRewritesPrefixOnly(t *testing.T) {
	line := "public class A { public class B {} }\n"

	assert.Equal(t, "class A { class B {} }\n", newJava(t, ModeNaive).Parse(line).Content)
	assert.Equal(t, "class A { public class B {} }\n", newJava(t, ModeTokenized).Parse(line).Content)
}

func TestParse_Kotlin(t *testing.T) {
	tr, err := New(language.Kotlin{}, Options{})
	require.NoError(t, err)

	parsed := tr.Parse("package game.core\n\nimport kotlin.math.max\n\npublic data class Unit(val hp: Int)\n")

	assert.Equal(t, "game.core", parsed.Package)
	assert.Equal(t, []string{"import kotlin.math.max"}, parsed.Imports)
	assert.Equal(t, "\n\ndata class Unit(val hp: Int)\n", parsed.Content)
}

func TestTransform_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A.java")
	require.NoError(t, os.WriteFile(path, []byte("package p;\nimport x.Y;\npublic class A {}\n"), 0644))

	file, err := newJava(t, ModeNaive).Transform(path)
	require.NoError(t, err)

	assert.Equal(t, path, file.Path)
	assert.Equal(t, "p", file.Package)
	assert.Equal(t, []string{"import x.Y;"}, file.Imports)
	assert.Equal(t, "class A {}\n", file.Content)
	assert.Len(t, file.Hash, 8)
	assert.False(t, file.ModTime.IsZero())
}

func TestTransform_MissingFile(t *testing.T) {
	file, err := newJava(t, ModeNaive).Transform(filepath.Join(t.TempDir(), "Gone.java"))

	assert.Nil(t, file)
	require.Error(t, err)
	assert.True(t, mergeerrors.IsType(err, mergeerrors.ErrorTypeRead))
	assert.True(t, mergeerrors.IsRecoverable(err))
}

func TestTransform_Idempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A.java")
	require.NoError(t, os.WriteFile(path, []byte("package p;\nimport x.Y;\nimport z.W;\npublic class A {}\n"), 0644))

	for _, cacheSize := range []int{0, 8} {
		tr, err := New(language.Java{}, Options{CacheSize: cacheSize})
		require.NoError(t, err)

		first, err := tr.Transform(path)
		require.NoError(t, err)
		second, err := tr.Transform(path)
		require.NoError(t, err)

		assert.Equal(t, first.Package, second.Package)
		assert.Equal(t, first.Imports, second.Imports)
		assert.Equal(t, first.Content, second.Content)
		assert.Equal(t, first.Hash, second.Hash)
	}
}

func TestTransform_RebuildsImportsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A.java")
	tr := newJava(t, ModeNaive)

	require.NoError(t, os.WriteFile(path, []byte("import a.A;\nimport b.B;\nclass A {}\n"), 0644))
	first, err := tr.Transform(path)
	require.NoError(t, err)
	assert.Len(t, first.Imports, 2)

	require.NoError(t, os.WriteFile(path, []byte("import c.C;\nclass A {}\n"), 0644))
	second, err := tr.Transform(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"import c.C;"}, second.Imports)
}

func TestTransformBytes_CacheReturnsIndependentSlices(t *testing.T) {
	tr := newJava(t, ModeNaive)
	data := []byte("import a.A;\nclass A {}\n")

	first := tr.TransformBytes("/src/A.java", data)
	first.Imports[0] = "import mutated;"

	second := tr.TransformBytes("/src/B.java", data)
	assert.Equal(t, []string{"import a.A;"}, second.Imports)
	assert.Equal(t, "/src/B.java", second.Path)
}

func TestDecode_BOM(t *testing.T) {
	utf8BOM := append([]byte{0xEF, 0xBB, 0xBF}, []byte("package p;\n")...)
	assert.Equal(t, "package p;\n", decode(utf8BOM))

	utf16LE := []byte{0xFF, 0xFE, 'p', 0, ';', 0}
	assert.Equal(t, "p;", decode(utf16LE))

	latin1 := []byte{'c', 0xE9, '\n'}
	assert.Equal(t, string(latin1), decode(latin1))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("tokenized")
	require.NoError(t, err)
	assert.Equal(t, ModeTokenized, m)
	assert.Equal(t, "tokenized", m.String())

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeNaive, m)

	_, err = ParseMode("ast")
	assert.Error(t, err)
}
