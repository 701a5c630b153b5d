package kubernetes

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ExcludedNamespaces are platform namespaces hidden from list responses.
var ExcludedNamespaces = []string{"armada", "cert-manager", "flux-helm", "kube-system"}

// FilterNamespaces drops items[] entries living in an excluded namespace.
// Payloads that are not a JSON object with an items array come back unchanged.
// So does the whole payload when any item has no string metadata.namespace,
// which is the case for cluster scoped lists.
func FilterNamespaces(body []byte) string {
	if !gjson.ValidBytes(body) {
		return string(body)
	}

	items := gjson.GetBytes(body, "items")
	if !items.IsArray() {
		return string(body)
	}

	kept := make([]string, 0)
	removed := 0
	namespaced := true
	items.ForEach(func(_, item gjson.Result) bool {
		namespace := item.Get("metadata.namespace")
		if namespace.Type != gjson.String {
			namespaced = false
			return false
		}
		if isExcluded(namespace.String()) {
			removed++
			return true
		}
		kept = append(kept, item.Raw)
		return true
	})
	if !namespaced || removed == 0 {
		return string(body)
	}

	filtered, err := sjson.SetRawBytes(body, "items", []byte("["+strings.Join(kept, ",")+"]"))
	if err != nil {
		return string(body)
	}
	return string(filtered)
}

func isExcluded(namespace string) bool {
	for _, excluded := range ExcludedNamespaces {
		if namespace == excluded {
			return true
		}
	}
	return false
}
