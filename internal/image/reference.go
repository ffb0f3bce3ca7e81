package image

import "strings"

// Kind tags the variant held by a Reference.
type Kind string

const (
	KindNone       Kind = "none"
	KindURL        Kind = "url"
	KindInlineData Kind = "inlineData"
)

// Reference points at an image produced by a Source. Value is a URL for
// KindURL and base64 text for KindInlineData; it is empty for KindNone.
type Reference struct {
	Kind  Kind
	Value string
}

func None() Reference {
	return Reference{Kind: KindNone}
}

func URL(u string) Reference {
	return Reference{Kind: KindURL, Value: u}
}

func Inline(b64 string) Reference {
	return Reference{Kind: KindInlineData, Value: b64}
}

// IsNone also treats the zero Reference and empty values as none.
func (r Reference) IsNone() bool {
	return r.Kind == KindNone || r.Kind == "" || r.Value == ""
}

// Detect classifies a provider result item that may be either a link or
// inline base64 data.
func Detect(item string) Reference {
	item = strings.TrimSpace(item)
	switch {
	case item == "":
		return None()
	case strings.HasPrefix(item, "http://"), strings.HasPrefix(item, "https://"):
		return URL(item)
	default:
		return Inline(item)
	}
}
