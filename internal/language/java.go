package language

import "strings"

// Java is the default profile.
type Java struct{}

var javaRewrites = []Rewrite{
	{From: "public final class", To: "final class"},
	{From: "public class", To: "class"},
	{From: "public abstract class", To: "abstract class"},
	{From: "public interface", To: "interface"},
	{From: "public enum", To: "enum"},
	{From: "public record", To: "record"},
}

func (Java) Extension() string { return ".java" }

// IsImportLine matches single-type, on-demand and static imports.
func (Java) IsImportLine(line string) bool {
	return strings.HasPrefix(line, "import ")
}

func (Java) PackageKeyword() string { return "package" }

func (Java) StatementTerminator() string { return ";" }

func (Java) VisibilityRewrites() []Rewrite { return javaRewrites }
