package remote

import "encoding/json"

// listKeys are the wrapper fields the API has been seen nesting its arrays
// under, in the order they are tried.
var listKeys = []string{"products", "data", "results", "reviews", "orders", "addresses"}

// UnwrapList decodes raw into a slice of T whether the API returned a bare
// array or wrapped it in an object under one of the known keys. Content that
// is neither decodes to an empty slice rather than failing, matching the
// defensive posture of every list-rendering page.
func UnwrapList[T any](raw json.RawMessage) []T {
	var direct []T
	if err := json.Unmarshal(raw, &direct); err == nil {
		return direct
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil
	}
	for _, key := range listKeys {
		nested, ok := wrapper[key]
		if !ok {
			continue
		}
		var items []T
		if err := json.Unmarshal(nested, &items); err == nil {
			return items
		}
	}
	return nil
}
