package fixup

import (
	"os"
	"strings"
)

// FixXMLDeclaration forces the `<?xml …?>` declaration to line 1 by
// re-emitting it first and appending all other lines, exactly as
// fixups_blob.py's fix_xml_impl does. A textual line-shuffle is used
// instead of a full XML parse/re-serialize to avoid reformatting
// attribute order, which would break the canonical-tree determinism
// invariant in spec.md §8.
func FixXMLDeclaration(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	lines := strings.SplitAfter(string(data), "\n")

	var declLine string
	var rest []string
	for _, line := range lines {
		if declLine == "" && strings.HasPrefix(line, "<?xml version") {
			declLine = line
			continue
		}
		rest = append(rest, line)
	}

	if declLine == "" {
		// No declaration found; nothing to reorder.
		return nil
	}

	out := declLine + strings.Join(rest, "")
	return os.WriteFile(filePath, []byte(out), 0644)
}
