package content

import (
	"fmt"
	"strings"
)

// PathSeparator separates property names in a document path.
const PathSeparator = "."

// PathError reports a path that does not resolve in the current document. It is a
// programmer error: callers are expected to only use paths known to exist in the schema.
type PathError struct {
	Path    string
	Segment string
	Reason  string
}

func (e *PathError) Error() string {
	if e.Segment == "" {
		return fmt.Sprintf("content path %q: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("content path %q: segment %q %s", e.Path, e.Segment, e.Reason)
}

// SplitPath breaks a dot-separated path into its segments. Empty paths and empty
// segments are rejected.
func SplitPath(path string) ([]string, error) {
	if path == "" {
		return nil, &PathError{Path: path, Reason: "is empty"}
	}
	segments := strings.Split(path, PathSeparator)
	for _, s := range segments {
		if s == "" {
			return nil, &PathError{Path: path, Reason: "contains an empty segment"}
		}
	}
	return segments, nil
}

// SetAtPath returns a document equal to doc except that the container reached by all
// but the last segment of path has its last segment rebound to value.
//
// doc is never modified: every container along the path is shallow-copied and the
// rest of the tree is shared with the input. Every intermediate segment must already
// exist and be a non-null object. Lists are leaves; callers replace whole lists.
func SetAtPath(doc Document, path string, value any) (Document, error) {
	segments, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, &PathError{Path: path, Reason: "document is nil"}
	}

	root := copyObject(doc)
	parent := root
	for _, seg := range segments[:len(segments)-1] {
		child, ok := parent[seg]
		if !ok {
			return nil, &PathError{Path: path, Segment: seg, Reason: "does not exist"}
		}
		obj, ok := asObject(child)
		if !ok {
			if child == nil {
				return nil, &PathError{Path: path, Segment: seg, Reason: "is null"}
			}
			return nil, &PathError{Path: path, Segment: seg, Reason: fmt.Sprintf("is a %T, not an object", child)}
		}
		cp := copyObject(obj)
		parent[seg] = cp
		parent = cp
	}
	parent[segments[len(segments)-1]] = value
	return Document(root), nil
}

// GetAtPath returns the value stored at path.
func GetAtPath(doc Document, path string) (any, error) {
	segments, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	var current any = map[string]any(doc)
	for _, seg := range segments {
		obj, ok := asObject(current)
		if !ok {
			return nil, &PathError{Path: path, Segment: seg, Reason: "has no object parent"}
		}
		v, exists := obj[seg]
		if !exists {
			return nil, &PathError{Path: path, Segment: seg, Reason: "does not exist"}
		}
		current = v
	}
	return current, nil
}

func asObject(v any) (map[string]any, bool) {
	switch obj := v.(type) {
	case map[string]any:
		return obj, obj != nil
	case Document:
		return obj, obj != nil
	default:
		return nil, false
	}
}

func copyObject(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src)+1)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
