package importer

import "github.com/fwolasyar/car-perfector/vpic"

// FilterAllowed keeps the makes whose name exactly matches an allow-list
// entry. Matching is case-sensitive and upstream order is preserved.
func FilterAllowed(makes []vpic.Make, allowList []string) []vpic.Make {
	allowed := make(map[string]struct{}, len(allowList))
	for _, name := range allowList {
		allowed[name] = struct{}{}
	}

	var out []vpic.Make
	for _, m := range makes {
		if _, ok := allowed[m.Name]; ok {
			out = append(out, m)
		}
	}
	return out
}
