package language

import "strings"

// Kotlin merges .kt sources. Kotlin declarations are public by default, so
// only an explicit "public" modifier is stripped.
type Kotlin struct{}

var kotlinRewrites = []Rewrite{
	{From: "public class", To: "class"},
	{From: "public object", To: "object"},
	{From: "public interface", To: "interface"},
	{From: "public enum class", To: "enum class"},
	{From: "public data class", To: "data class"},
	{From: "public sealed class", To: "sealed class"},
	{From: "public abstract class", To: "abstract class"},
	{From: "public fun", To: "fun"},
}

func (Kotlin) Extension() string { return ".kt" }

func (Kotlin) IsImportLine(line string) bool {
	return strings.HasPrefix(line, "import ")
}

func (Kotlin) PackageKeyword() string { return "package" }

func (Kotlin) StatementTerminator() string { return "" }

func (Kotlin) VisibilityRewrites() []Rewrite { return kotlinRewrites }
