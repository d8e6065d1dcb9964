package deployer

import (
	"github.com/google/go-containerregistry/pkg/name"
)

// MatchImageOverrides maps a list of image references, typically read from a
// component images file, onto the logical image keys of the named catalog
// component. An image replaces a default when both live in the same
// repository, so "confluentinc/cp-kafka:7.6.1" overrides the kafka key.
// Images that match nothing, and unknown components, are ignored.
func MatchImageOverrides(component string, images []string) map[string]string {
	def, ok := Lookup(component)
	if !ok {
		return nil
	}

	byRepo := make(map[string]string, len(def.Images))
	for key, ref := range def.Images {
		if repo, ok := repository(ref); ok {
			byRepo[repo] = key
		}
	}

	overrides := map[string]string{}
	for _, ref := range images {
		repo, ok := repository(ref)
		if !ok {
			continue
		}
		if key, found := byRepo[repo]; found {
			overrides[key] = ref
		}
	}
	return overrides
}

func repository(ref string) (string, bool) {
	parsed, err := name.ParseReference(ref)
	if err != nil {
		return "", false
	}
	return parsed.Context().Name(), true
}
