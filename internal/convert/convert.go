package convert

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
)

// MapToXML renders m as child elements of root. Keys are sorted so the output
// is stable; empty strings are skipped. Nested maps become nested elements.
func MapToXML(root string, m map[string]any) ([]byte, error) {
	var b strings.Builder
	b.WriteString(xml.Header)
	if err := writeElement(&b, root, m); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func writeElement(b *strings.Builder, name string, v any) error {
	switch v := v.(type) {
	case string:
		if v == "" {
			return nil
		}
		b.WriteString("<" + name + ">")
		if err := xml.EscapeText(b, []byte(v)); err != nil {
			return err
		}
		b.WriteString("</" + name + ">")
	case float64, int, int64, bool:
		fmt.Fprintf(b, "<%s>%v</%s>", name, v, name)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("<" + name + ">")
		for _, k := range keys {
			if err := writeElement(b, k, v[k]); err != nil {
				return err
			}
		}
		b.WriteString("</" + name + ">")
	case nil:
	default:
		return fmt.Errorf("unsupported xml value for <%s>: %T", name, v)
	}
	return nil
}
