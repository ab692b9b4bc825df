package viewutil

// ShouldShowBaggedColumn reports whether the table needs the summary column
// for one kind (params or metrics): some key is still bagged, or there are no
// keys at all and the placeholder says so.
func ShouldShowBaggedColumn(unbagged, allKeys []string) bool {
	return len(unbagged) != len(allKeys) || len(allKeys) == 0
}

// BaggedKeys returns the keys of allKeys that are not unbagged and that the
// run reports, in allKeys order.
func BaggedKeys(allKeys, unbagged []string, has func(key string) bool) []string {
	split := make(map[string]struct{}, len(unbagged))
	for _, k := range unbagged {
		split[k] = struct{}{}
	}
	var out []string
	for _, k := range allKeys {
		if _, ok := split[k]; ok {
			continue
		}
		if has != nil && !has(k) {
			continue
		}
		out = append(out, k)
	}
	return out
}
