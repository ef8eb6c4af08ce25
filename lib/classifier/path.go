package classifier

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ether/lastupdated-go/lib/exception"
	"github.com/ether/lastupdated-go/lib/host"
)

var segmentPattern = regexp.MustCompile(`^([A-Za-z_]\w*)\[(\d+)\]$`)

var fillImagePattern = regexp.MustCompile(`\.style\.fills\[\d+\]\.image$`)

var errEmptyPath = errors.New("path is empty")

// ParsePath splits a structural path such as pages[0].layers[2] into its
// segments. Every segment must be field[index].
func ParsePath(path string) ([]host.PathSegment, error) {
	if path == "" {
		return nil, errEmptyPath
	}
	parts := strings.Split(path, ".")
	segments := make([]host.PathSegment, 0, len(parts))
	for _, part := range parts {
		m := segmentPattern.FindStringSubmatch(part)
		if m == nil {
			return nil, fmt.Errorf("malformed segment %q", part)
		}
		idx, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, fmt.Errorf("malformed index in %q: %w", part, err)
		}
		segments = append(segments, host.PathSegment{Field: m[1], Index: idx})
	}
	return segments, nil
}

// LogicalParentPath reconstructs the path of the layer that owns a leaf record:
// the trailing segment is dropped, everything from a style segment onwards is
// dropped, and an override-values segment at the end is dropped as well.
//
//	pages[0].layers[0].layers[1].style.fills[0].pattern.image -> pages[0].layers[0].layers[1]
//	pages[0].layers[0].layers[0].overrideValues[9].value      -> pages[0].layers[0].layers[0]
func LogicalParentPath(fullPath string) (string, error) {
	if fullPath == "" {
		return "", errEmptyPath
	}
	parts := strings.Split(fullPath, ".")
	parts = parts[:len(parts)-1]
	for i, p := range parts {
		if p == "style" {
			parts = parts[:i]
			break
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no parent in %q", fullPath)
	}
	if strings.Contains(parts[len(parts)-1], "overrideValues") {
		parts = parts[:len(parts)-1]
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no parent in %q", fullPath)
	}
	return strings.Join(parts, "."), nil
}

// ResolveLogicalParent maps the path of a parentless leaf onto the live layer
// owning it.
func ResolveLogicalParent(fullPath string, tree host.Tree) (host.Layer, error) {
	parentPath, err := LogicalParentPath(fullPath)
	if err != nil {
		return nil, exception.NewInvalidPathError(fullPath, err)
	}
	segments, err := ParsePath(parentPath)
	if err != nil {
		return nil, exception.NewInvalidPathError(fullPath, err)
	}
	layer, ok := tree.Resolve(segments)
	if !ok || layer == nil {
		return nil, exception.NewInvalidPathError(fullPath, fmt.Errorf("%s not in document", parentPath))
	}
	return layer, nil
}

// ResolveOwningArtboard returns the artboard owning the record at fullPath, or
// nil when the path cannot be resolved or does not lead into an artboard.
func ResolveOwningArtboard(fullPath string, tree host.Tree) host.Layer {
	parent, err := ResolveLogicalParent(fullPath, tree)
	if err != nil {
		return nil
	}
	return host.ArtboardOf(parent)
}
